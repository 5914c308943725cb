package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/gymdash/gymdash-api/models"
	"github.com/gymdash/gymdash-api/repository"
	"gorm.io/gorm"
)

const (
	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes
	maxPasswordLength = 72
)

// RegisterInput is the payload of a new account
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// TokenResponse is returned by both login flows
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// AuthService registers users and exchanges credentials for tokens
type AuthService struct {
	db          *gorm.DB
	users       *repository.UserRepository
	roles       *repository.RoleRepository
	credentials Credentials
	tokenTTL    time.Duration
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewAuthService creates an authentication service
func NewAuthService(db *gorm.DB, credentials Credentials, tokenTTL time.Duration, logger *slog.Logger) *AuthService {
	return &AuthService{
		db:          db,
		users:       repository.NewUserRepository(db),
		roles:       repository.NewRoleRepository(db),
		credentials: credentials,
		tokenTTL:    tokenTTL,
		validate:    validator.New(),
		logger:      logger,
	}
}

// Register creates a user holding the client role. The email is checked up
// front and again by the unique index, so concurrent registrations of the same
// address still yield ErrEmailTaken for the loser.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	input.Email = normalizeEmail(input.Email)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Phone = strings.TrimSpace(input.Phone)

	if err := s.validateRegistration(input); err != nil {
		return nil, err
	}

	hash, err := s.credentials.Hash(input.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	user := &models.User{
		Email:          input.Email,
		HashedPassword: hash,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Phone:          input.Phone,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)

		taken, err := users.EmailExists(ctx, user.Email, 0)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}

		if err := users.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrEmailTaken
			}
			return err
		}

		if _, err := s.roles.WithTx(tx).AddRole(ctx, user.ID, models.RoleClient); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		s.logger.Error("failed to register user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	s.logger.Info("user registered", slog.Uint64("user_id", uint64(user.ID)))
	return s.users.GetWithRoles(ctx, user.ID)
}

// Authenticate checks an email and password pair. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Info("login attempt with unknown email")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	if !s.credentials.Verify(password, user.HashedPassword) {
		s.logger.Info("login failed with wrong password", slog.Uint64("user_id", uint64(user.ID)))
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues an access token
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.Uint64("user_id", uint64(user.ID)))
	return token, nil
}

// IssueToken mints a bearer token for the user's current email. Tokens are
// keyed by email, so a user who changes it needs a new one.
func (s *AuthService) IssueToken(user *models.User) (*TokenResponse, error) {
	token, err := s.credentials.IssueToken(Claims{Subject: user.Email, Roles: user.RoleNames()}, s.tokenTTL)
	if err != nil {
		s.logger.Error("failed to issue token", slog.String("error", err.Error()))
		return nil, err
	}
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokenTTL.Seconds()),
	}, nil
}

// CurrentUser resolves decoded token claims to the stored user with roles.
// Roles are read from the database, not the token, so revocations apply at once.
func (s *AuthService) CurrentUser(ctx context.Context, claims *Claims) (*models.User, error) {
	if claims == nil || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByEmail(ctx, claims.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	return user, nil
}

func (s *AuthService) validateRegistration(input RegisterInput) error {
	verr := NewValidationError()

	if err := s.validate.Var(input.Email, "required,email"); err != nil {
		verr.Add("email", "must be a valid email address")
	}
	if msg := passwordProblem(input.Password); msg != "" {
		verr.Add("password", msg)
	}
	if input.FirstName == "" {
		verr.Add("first_name", "is required")
	}
	if input.LastName == "" {
		verr.Add("last_name", "is required")
	}
	if err := s.validate.Var(input.Phone, "required,e164"); err != nil {
		verr.Add("phone", "must be an E.164 phone number such as +15555550100")
	}

	return verr.OrNil()
}

func passwordProblem(password string) string {
	if len(password) < minPasswordLength {
		return fmt.Sprintf("must be at least %d characters", minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Sprintf("must be at most %d bytes", maxPasswordLength)
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return "must contain at least one letter and one digit"
	}
	return ""
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
