package services

import (
	"io"
	"log/slog"
	"strconv"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
