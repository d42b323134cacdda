package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugMismatchError(t *testing.T) {
	err := NewSlugMismatchError("akismet", "hello-dolly")

	assert.Equal(t, "metadata slug does not match [hello-dolly !== akismet]", err.Error())
	assert.True(t, IsSlugMismatch(err))
	assert.True(t, IsValidation(err))
	assert.False(t, IsMissingMetadata(err))

	var mismatch *SlugMismatchError
	if assert.True(t, errors.As(err, &mismatch)) {
		assert.Equal(t, "akismet", mismatch.Expected)
		assert.Equal(t, "hello-dolly", mismatch.Actual)
	}
}

func TestMissingMetadataError(t *testing.T) {
	err := NewMissingMetadataError("akismet")

	assert.Equal(t, "sync plugin akismet has no metadata", err.Error())
	assert.Equal(t, "sync plugin has no metadata", ErrMissingMetadata.Error())
	assert.True(t, IsMissingMetadata(err))
	assert.True(t, IsValidation(err))
	assert.False(t, IsSlugMismatch(err))
}

func TestWrappedErrorsAreDetected(t *testing.T) {
	wrapped := fmt.Errorf("refresh plugin: %w", NewMissingMetadataError("akismet"))
	assert.True(t, IsMissingMetadata(wrapped))

	wrapped = fmt.Errorf("create plugin: %w", ErrPluginNotFound)
	assert.True(t, IsNotFound(wrapped))
	assert.True(t, errors.Is(wrapped, ErrPluginNotFound))
	assert.False(t, errors.Is(wrapped, ErrSyncPluginNotFound))
}

func TestValidationError(t *testing.T) {
	assert.Equal(t, "validation error: metadata - metadata must be a JSON object", ErrInvalidMetadata.Error())
	assert.Equal(t, "validation error: broken", NewValidationError("", "broken").Error())
	assert.True(t, IsValidation(ErrInvalidMetadata))
	assert.False(t, IsValidation(errors.New("plain")))
}

func TestConfigurationError(t *testing.T) {
	assert.True(t, IsConfiguration(ErrDatabaseDSNMissing))
	assert.True(t, IsConfiguration(fmt.Errorf("load: %w", ErrInvalidBatchSize)))
	assert.False(t, IsConfiguration(ErrPluginNotFound))
}
