package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	custom := ErrNotFound.WithMessage("Quote not found")
	assert.True(t, errors.Is(custom, ErrNotFound))
	assert.True(t, errors.Is(fmt.Errorf("load: %w", custom), ErrNotFound))
	assert.False(t, errors.Is(custom, ErrAlreadyExists))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(ErrInvalidInput))
	assert.Equal(t, KindPermissionDenied, KindOf(fmt.Errorf("wrap: %w", ErrForbidden)))
	assert.Equal(t, KindUnexpected, KindOf(errors.New("boom")))
	assert.Equal(t, KindUnexpected, KindOf(ErrUnexpected))
}
