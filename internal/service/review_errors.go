package service

import (
	"context"
	"errors"

	"doc-review-be/internal/pkg/mailer"
	"doc-review-be/pkg/assistant"
	"doc-review-be/pkg/review/criteria"
	"doc-review-be/pkg/review/documents"
	"doc-review-be/pkg/review/gateway"
	"doc-review-be/pkg/review/ledger"
	"doc-review-be/pkg/store"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrSessionNotFound = errors.New("review session not found or expired")
	ErrArchiveDisabled = errors.New("report archive is not configured")
)

// StatusOf maps review errors to HTTP statuses for the error middleware.
func StatusOf(err error) int {
	var timeout *gateway.RunTimeoutError
	var failed *gateway.RunFailedError
	var remote *assistant.APIError

	switch {
	case errors.Is(err, gateway.ErrNotConfigured):
		return fiber.StatusPreconditionFailed
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, criteria.ErrUnknownGroup),
		errors.Is(err, documents.ErrUnknownDocument),
		errors.Is(err, ledger.ErrNothingToExport):
		return fiber.StatusNotFound
	case errors.Is(err, documents.ErrNoContent):
		return fiber.StatusBadRequest
	case errors.Is(err, store.ErrSessionBusy):
		return fiber.StatusConflict
	case errors.As(err, &timeout), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	case errors.As(err, &failed), errors.As(err, &remote):
		return fiber.StatusBadGateway
	case errors.Is(err, mailer.ErrMailerDisabled), errors.Is(err, ErrArchiveDisabled):
		return fiber.StatusServiceUnavailable
	}
	return 0
}
