package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"path/filepath"
	"time"

	"github.com/gymdash/gymdash-api/utils"
)

// ImageService handles activity cover images: upload, retrieval and deletion
type ImageService interface {
	// UploadImage validates and stores an image for the activity, returning its storage key
	UploadImage(ctx context.Context, activityID uint, fileHeader *multipart.FileHeader) (string, error)

	// GetImageURL generates a URL for accessing a stored image
	GetImageURL(ctx context.Context, imageKey string) (string, error)

	// DeleteImage removes an image from storage
	DeleteImage(ctx context.Context, imageKey string) error
}

// StorageImageService implements ImageService on top of an ObjectStorage
type StorageImageService struct {
	storage ObjectStorage
	logger  *slog.Logger
	now     func() time.Time
}

// NewImageService creates an image service backed by storage
func NewImageService(storage ObjectStorage, logger *slog.Logger) *StorageImageService {
	return &StorageImageService{storage: storage, logger: logger, now: time.Now}
}

// UploadImage validates the file and stores it under activities/{id}/
func (s *StorageImageService) UploadImage(ctx context.Context, activityID uint, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			s.logger.Warn("failed to close uploaded file", slog.String("error", closeErr.Error()))
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	key := fmt.Sprintf("activities/%d/%d_%s", activityID, s.now().Unix(), filepath.Base(fileHeader.Filename))
	if err := s.storage.PutObject(ctx, key, content, utils.ImageContentType); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return key, nil
}

// GetImageURL generates a presigned URL for an image
func (s *StorageImageService) GetImageURL(ctx context.Context, imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}

	url, err := s.storage.PresignGet(ctx, imageKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate image URL: %w", err)
	}
	return url, nil
}

// DeleteImage deletes an image from storage
func (s *StorageImageService) DeleteImage(ctx context.Context, imageKey string) error {
	if imageKey == "" {
		return nil
	}

	if err := s.storage.DeleteObject(ctx, imageKey); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
