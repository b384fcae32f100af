package exception_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hjyangBig2/lighter/pkg/session/support/util/exception"

	"github.com/stretchr/testify/assert"
)

func TestNewServiceError(t *testing.T) {
	originalErr := errors.New("db connection refused")
	se := exception.NewServiceError("storage", "failed to save application", originalErr, true)

	assert.Equal(t, "storage", se.Module)
	assert.Equal(t, "failed to save application", se.Message)
	assert.Equal(t, originalErr, se.Unwrap())
	assert.True(t, se.IsRetryable())
	assert.Equal(t, "[storage] failed to save application: db connection refused", se.Error())
	assert.NotEmpty(t, se.StackTrace)
}

func TestNewServiceErrorf(t *testing.T) {
	// Message arguments only
	se1 := exception.NewServiceErrorf("backend", "kill of %s failed", "app-1")
	assert.Nil(t, se1.Unwrap())
	assert.False(t, se1.IsRetryable())
	assert.Equal(t, "[backend] kill of app-1 failed", se1.Error())

	// Trailing error is wrapped, not formatted
	cause := errors.New("unreachable")
	se2 := exception.NewServiceErrorf("backend", "kill of %s failed", "app-2", cause)
	assert.Equal(t, cause, se2.Unwrap())
	assert.Equal(t, "kill of app-2 failed", se2.Message)
	assert.True(t, errors.Is(se2, cause))
}

func TestSessionAlreadyExistsError(t *testing.T) {
	err := fmt.Errorf("create: %w", exception.NewSessionAlreadyExistsError("perm-1"))

	id, ok := exception.IsConflict(err)
	assert.True(t, ok)
	assert.Equal(t, "perm-1", id)
	assert.Contains(t, err.Error(), "perm-1")

	_, ok = exception.IsConflict(errors.New("other"))
	assert.False(t, ok)
	_, ok = exception.IsConflict(nil)
	assert.False(t, ok)
}

func TestIsTemporary(t *testing.T) {
	assert.False(t, exception.IsTemporary(nil))
	assert.True(t, exception.IsTemporary(exception.NewServiceError("storage", "x", errors.New("permission denied"), true)))
	// The ServiceError flag wins over the message
	assert.False(t, exception.IsTemporary(exception.NewServiceError("storage", "x", errors.New("timeout"), false)))
	assert.True(t, exception.IsTemporary(errors.New("i/o timeout")))
	assert.True(t, exception.IsTemporary(errors.New("dial tcp: connection refused")))
	assert.False(t, exception.IsTemporary(exception.ErrPermanentSessionNotFound))
}

func TestExtractErrorMessage(t *testing.T) {
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
	wrapped := fmt.Errorf("outer: %w", exception.NewServiceError("session", "failed to load application", errors.New("boom"), false))
	assert.Equal(t, "failed to load application", exception.ExtractErrorMessage(wrapped))
	assert.Equal(t, "plain", exception.ExtractErrorMessage(errors.New("plain")))
}
