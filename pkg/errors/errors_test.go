package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorPassesTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrLimitExceeded, "max 3 courses"))
	appErr := FromError(wrapped)
	assert.Equal(t, ErrLimitExceeded.Code, appErr.Code)
	assert.Equal(t, "max 3 courses", appErr.Message)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Nil(t, FromError(nil))
}

func TestCloneMatchesOriginalWithIs(t *testing.T) {
	err := Clone(ErrNotFound, "video not found")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := Internal(errors.New("db down"), "failed to load")
	assert.Equal(t, "failed to load: db down", err.Error())
	assert.Equal(t, "db down", errors.Unwrap(err).Error())
}
