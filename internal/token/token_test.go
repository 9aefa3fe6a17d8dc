package token

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShape(t *testing.T) {
	tok, err := New()
	require.NoError(t, err)
	assert.Len(t, tok, Length)
	assert.True(t, Valid(tok))
}

func TestNewUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 10000; i++ {
		tok, err := New()
		require.NoError(t, err)
		require.False(t, seen[tok], "duplicate token generated: %s", tok)
		seen[tok] = true
	}
}

func TestGenerateRetriesOnCollision(t *testing.T) {
	calls := 0
	exists := func(ctx context.Context, tok string) (bool, error) {
		calls++
		return calls <= 2, nil // first two candidates "exist"
	}

	tok, err := Generate(context.Background(), exists)
	require.NoError(t, err)
	assert.True(t, Valid(tok))
	assert.Equal(t, 3, calls)
}

func TestGenerateGivesUp(t *testing.T) {
	exists := func(ctx context.Context, tok string) (bool, error) {
		return true, nil
	}

	_, err := Generate(context.Background(), exists)
	assert.ErrorIs(t, err, ErrTooManyCollisions)
}

func TestGeneratePropagatesStoreError(t *testing.T) {
	boom := errors.New("db down")
	exists := func(ctx context.Context, tok string) (bool, error) {
		return false, boom
	}

	_, err := Generate(context.Background(), exists)
	assert.ErrorIs(t, err, boom)
}

func TestValid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"generated token", "AbCdEfGhIjKlMnOpQrStUv12", true},
		{"with url-safe chars", "Ab-dEfGhIjKlMnOpQrStU_12", true},
		{"empty", "", false},
		{"too short", "abc", false},
		{"too long", "AbCdEfGhIjKlMnOpQrStUv12x", false},
		{"standard base64 char", "AbCdEfGhIjKlMnOpQrStUv1+", false},
		{"padding", "AbCdEfGhIjKlMnOpQrStUv1=", false},
		{"whitespace", "AbCdEfGhIjKlMnOpQrStUv1 ", false},
		{"sql-ish", "'; DROP TABLE assets; --x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.input))
		})
	}
}
