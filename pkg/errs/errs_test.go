package errs

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOfWalksWrappedChains(t *testing.T) {
	base := Missing("messages.delete", "message not found")
	wrapped := errors.Wrap(fmt.Errorf("outer: %w", base), "handler")

	assert.Equal(t, NotFound, KindOf(wrapped))
	assert.True(t, Is(wrapped, NotFound))
	assert.False(t, Is(wrapped, Forbidden))
	assert.Equal(t, "message not found", Message(wrapped))
}

func TestWrapKeepsExistingKind(t *testing.T) {
	err := Wrap("op", Denied("op", "not the sender"))
	assert.Equal(t, Forbidden, KindOf(err))

	err = Wrap("op", errors.New("disk full"))
	assert.Equal(t, Internal, KindOf(err))
	assert.Equal(t, "internal error", Message(err))
	assert.Contains(t, err.Error(), "disk full")

	assert.NoError(t, Wrap("op", nil))
}

func TestPlainErrorsAreInternal(t *testing.T) {
	assert.Equal(t, Internal, KindOf(errors.New("boom")))
	assert.False(t, Is(nil, Internal))
	assert.Equal(t, "not_found", NotFound.String())
}
