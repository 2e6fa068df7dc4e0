package codec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func neverExists(context.Context, string) (bool, error) {
	return false, nil
}

func TestGenerator_DeterministicWhenFree(t *testing.T) {
	g := NewGenerator(6)

	code, err := g.Generate(context.Background(), 42, neverExists)
	require.NoError(t, err)
	assert.Equal(t, Encode(42, 6), code)
}

func TestGenerator_FallsBackOnCollision(t *testing.T) {
	g := NewGenerator(6)
	primary := Encode(42, 6)

	code, err := g.Generate(context.Background(), 42, func(_ context.Context, c string) (bool, error) {
		return c == primary, nil
	})
	require.NoError(t, err)
	assert.NotEqual(t, primary, code)
	assert.True(t, IsValidCode(code))
	assert.GreaterOrEqual(t, len(code), 6)
}

func TestGenerator_ExhaustedAttemptsUseUniqueFallback(t *testing.T) {
	g := NewGenerator(6)

	calls := 0
	code, err := g.Generate(context.Background(), 42, func(context.Context, string) (bool, error) {
		calls++
		return true, nil
	})
	require.NoError(t, err)
	assert.True(t, IsValidCode(code))
	// Primary attempt plus the strategy budget; the final fallback skips the check.
	assert.Equal(t, 1+maxAttempts, calls)
}

func TestGenerator_PropagatesExistenceError(t *testing.T) {
	g := NewGenerator(6)

	_, err := g.Generate(context.Background(), 42, func(context.Context, string) (bool, error) {
		return false, assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestStrategies_ProduceValidCodes(t *testing.T) {
	for i, s := range NewGenerator(6).strategies {
		code, err := s(99, 6)
		require.NoError(t, err, "strategy %d", i)
		assert.True(t, IsValidCode(code), "strategy %d produced %q", i, code)
		assert.GreaterOrEqual(t, len(code), 6, "strategy %d", i)
	}
}

func TestCustomCodeRules(t *testing.T) {
	rules := NewCustomCodeRules(3, 20, nil)

	assert.NoError(t, rules.Validate("Ab3xQ9"))
	assert.Error(t, rules.Validate(""))
	assert.Error(t, rules.Validate("ab"))
	assert.Error(t, rules.Validate("has-dash"))
	assert.ErrorIs(t, rules.Validate("xxApixx"), ErrReservedCode)
	assert.ErrorIs(t, rules.Validate("adminzone"), ErrReservedCode)
}
