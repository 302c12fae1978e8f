// Package businessflow contains the core business logic and use cases for generation workflows
package businessflow

import (
	"errors"
)

// Business flow error constants
var (
	// Template-related errors
	ErrTemplateNotFound        = errors.New("prompt template not found")
	ErrTemplateContentRequired = errors.New("template content is required")
	ErrTemplateAppIDRequired   = errors.New("template app ID is required")
	ErrTemplateTypeRequired    = errors.New("template type is required")

	// Key resolution errors
	ErrProviderKeyNotConfigured = errors.New("provider API key not configured")
	ErrInvalidKeyMode           = errors.New("key mode must be byok or app")

	// Report errors
	ErrInvalidDateRange = errors.New("start date cannot be after end date")
)

func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

func IsTemplateContentRequired(err error) bool {
	return errors.Is(err, ErrTemplateContentRequired)
}

func IsTemplateTypeRequired(err error) bool {
	return errors.Is(err, ErrTemplateTypeRequired)
}

func IsProviderKeyNotConfigured(err error) bool {
	return errors.Is(err, ErrProviderKeyNotConfigured)
}

func IsInvalidKeyMode(err error) bool {
	return errors.Is(err, ErrInvalidKeyMode)
}

func IsInvalidDateRange(err error) bool {
	return errors.Is(err, ErrInvalidDateRange)
}
