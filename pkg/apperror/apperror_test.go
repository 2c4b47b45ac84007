package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	err := InvalidState("estimate %s is CONVERTED", "EST-000001")

	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "estimate EST-000001 is CONVERTED", err.Error())
}

func TestKindOfSurvivesWrapping(t *testing.T) {
	base := NotFound("invoice not found")
	wrapped := fmt.Errorf("record payment: %w", base)

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("strconv: bad digit")
	err := Wrap(KindInvalidAmount, cause, "invalid subtotal")

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, "invalid subtotal: strconv: bad digit", err.Error())
}
