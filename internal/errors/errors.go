package errors

import (
	"errors"
	"fmt"
)

// NotFoundError represents an error when an entity is not found
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Entity)
}

// Is enables errors.Is() comparison for NotFoundError
func (e *NotFoundError) Is(target error) bool {
	t, ok := target.(*NotFoundError)
	if !ok {
		return false
	}
	return e.Entity == t.Entity
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// MissingMetadataError is returned when a sync record carries no metadata payload
type MissingMetadataError struct {
	Slug string
}

func (e *MissingMetadataError) Error() string {
	if e.Slug != "" {
		return fmt.Sprintf("sync plugin %s has no metadata", e.Slug)
	}
	return "sync plugin has no metadata"
}

// Is matches any MissingMetadataError regardless of slug
func (e *MissingMetadataError) Is(target error) bool {
	_, ok := target.(*MissingMetadataError)
	return ok
}

// SlugMismatchError is returned when a metadata payload belongs to a different plugin
type SlugMismatchError struct {
	Expected string
	Actual   string
}

func (e *SlugMismatchError) Error() string {
	return fmt.Sprintf("metadata slug does not match [%s !== %s]", e.Actual, e.Expected)
}

// Is matches any SlugMismatchError regardless of the slugs involved
func (e *SlugMismatchError) Is(target error) bool {
	_, ok := target.(*SlugMismatchError)
	return ok
}

// ConfigurationError represents configuration-related errors
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// Entity Not Found Errors
var (
	ErrPluginNotFound     = &NotFoundError{Entity: "plugin"}
	ErrSyncPluginNotFound = &NotFoundError{Entity: "sync plugin"}
)

// Validation Errors
var (
	ErrMissingMetadata = &MissingMetadataError{}
	ErrSlugMismatch    = &SlugMismatchError{}
	ErrInvalidMetadata = &ValidationError{Field: "metadata", Message: "metadata must be a JSON object"}
)

// Configuration Errors
var (
	ErrDatabaseDSNMissing = &ConfigurationError{Message: "database DSN is required (database.dsn or DATABASE_URL)"}
	ErrInvalidBatchSize   = &ConfigurationError{Message: "resync batch size must be positive"}
)

// Helper Functions

// IsNotFound checks if an error is a NotFoundError
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// IsValidation checks if an error is a ValidationError or one of the metadata validation errors
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr) || IsMissingMetadata(err) || IsSlugMismatch(err)
}

// IsMissingMetadata checks if an error is a MissingMetadataError
func IsMissingMetadata(err error) bool {
	return errors.Is(err, ErrMissingMetadata)
}

// IsSlugMismatch checks if an error is a SlugMismatchError
func IsSlugMismatch(err error) bool {
	return errors.Is(err, ErrSlugMismatch)
}

// IsConfiguration checks if an error is a ConfigurationError
func IsConfiguration(err error) bool {
	var configErr *ConfigurationError
	return errors.As(err, &configErr)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewMissingMetadataError creates a MissingMetadataError for the given sync plugin slug
func NewMissingMetadataError(slug string) error {
	return &MissingMetadataError{Slug: slug}
}

// NewSlugMismatchError creates a SlugMismatchError carrying both slugs
func NewSlugMismatchError(expected, actual string) error {
	return &SlugMismatchError{Expected: expected, Actual: actual}
}
