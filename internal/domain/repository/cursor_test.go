package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

func TestMovementCursor_RoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 0, 0, 123, time.UTC)
	c := MovementCursor{CreatedAt: ts, ID: "m-2"}

	got, err := DecodeMovementCursor(c.Encode())
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(ts))
	assert.Equal(t, "m-2", got.ID)
}

func TestMovementCursor_Before(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := MovementCursor{CreatedAt: ts, ID: "m-5"}

	assert.True(t, c.Before(ts.Add(-time.Second), "z"))
	assert.True(t, c.Before(ts, "m-4"), "mismo instante: desempata por id")
	assert.False(t, c.Before(ts, "m-5"))
	assert.False(t, c.Before(ts.Add(time.Second), "a"))
}

func TestDecodeMovementCursor_TokenInvalido(t *testing.T) {
	c, err := DecodeMovementCursor("")
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = DecodeMovementCursor("%%%")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = DecodeMovementCursor("e30") // "{}"
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
