package pmtiles

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	err := &Error{Kind: ErrBadMagic, Msg: "nope"}
	sentinel := &Error{Kind: ErrBadMagic}
	assert.True(t, errors.Is(err, sentinel))
	assert.False(t, errors.Is(err, &Error{Kind: ErrUnsupportedVersion}))
}

func TestErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("disk exploded")
	err := ioError(cause)
	assert.ErrorIs(t, err, cause)
}

func TestKindOfOnPlainError(t *testing.T) {
	_, ok := KindOf(fmt.Errorf("not tagged"))
	assert.False(t, ok)
}

func TestKindOfOnWrappedError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &Error{Kind: ErrEmptyWriter})
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, ErrEmptyWriter, kind)
}
