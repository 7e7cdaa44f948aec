package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	notFound := New(CodeNotFound, "event not found")
	wrapped := fmt.Errorf("lookup: %w", notFound)

	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
	assert.True(t, HasCode(wrapped, CodeNotFound))
	assert.True(t, errors.Is(wrapped, notFound))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.False(t, HasCode(nil, CodeInternal))
}

func TestMessageOfHidesInternalDetail(t *testing.T) {
	err := Wrap(errors.New("dial tcp: refused"), CodeInternal, "load member")
	assert.Equal(t, "internal server error", MessageOf(err))
	assert.Equal(t, "load member: dial tcp: refused", err.Error())

	assert.Equal(t, "name is required", MessageOf(Validation("name is required")))
	assert.Equal(t, "internal server error", MessageOf(errors.New("raw")))
}
