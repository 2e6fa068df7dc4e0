package codec

import (
	"context"
	cryptorand "crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	mathrand "math/rand/v2"
	"time"
)

const (
	// maxAttempts is the number of fallback strategies tried against the
	// existence check before the guaranteed-unique fallback is used.
	maxAttempts = 5

	signMask = uint64(1<<63 - 1)
)

// ExistsFunc reports whether a candidate code is already taken.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// strategy produces one candidate code for the given id and minimum length.
type strategy func(id uint64, minLength int) (string, error)

// Generator produces collision-resistant short codes. It is safe for
// concurrent use: math/rand/v2 top-level functions are goroutine-safe and
// the strategy table is immutable.
type Generator struct {
	minLength  int
	strategies []strategy
}

// NewGenerator creates a Generator that emits codes of at least minLength
// characters.
func NewGenerator(minLength int) *Generator {
	if minLength < 1 {
		minLength = 1
	}
	return &Generator{
		minLength: minLength,
		strategies: []strategy{
			timeBased,
			hashBased,
			randomSample,
			hybrid,
			secureRandom,
		},
	}
}

// Generate returns a code for id that does not collide with any existing
// code according to exists. The deterministic encoding of id is tried
// first; on collision an ordered list of fallback strategies is tried, one
// per attempt. If every attempt collides, a guaranteed-unique fallback
// derived from the current timestamp is returned without an existence check.
func (g *Generator) Generate(ctx context.Context, id uint64, exists ExistsFunc) (string, error) {
	candidate := Encode(id, g.minLength)
	taken, err := exists(ctx, candidate)
	if err != nil {
		return "", fmt.Errorf("code existence check: %w", err)
	}
	if !taken {
		return candidate, nil
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate, err = g.strategies[attempt%len(g.strategies)](id, g.minLength)
		if err != nil {
			return "", err
		}
		taken, err = exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("code existence check: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}

	return g.uniqueFallback(), nil
}

// uniqueFallback combines the millisecond timestamp with sub-millisecond
// ticks, making a repeat within the same process practically impossible.
func (g *Generator) uniqueFallback() string {
	now := time.Now()
	ms := uint64(now.UnixMilli())
	ticks := uint64(now.UnixNano()) % 1_000_000
	return Encode((ms<<20|ticks&0xFFFFF)&signMask, g.minLength)
}

// timeBased mixes a high-resolution timestamp with the id.
func timeBased(id uint64, minLength int) (string, error) {
	v := (uint64(time.Now().UnixNano()) ^ (id << 13)) & signMask
	return Encode(v, minLength), nil
}

// hashBased digests the id and current time, truncating to a 64-bit signed
// value.
func hashBased(id uint64, minLength int) (string, error) {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%d", id, time.Now().UnixNano())))
	v := binary.BigEndian.Uint64(sum[:8]) & signMask
	return Encode(v, minLength), nil
}

// randomSample draws minLength+1 characters uniformly from the alphabet.
func randomSample(_ uint64, minLength int) (string, error) {
	buf := make([]byte, minLength+1)
	for i := range buf {
		buf[i] = Alphabet[mathrand.IntN(len(Alphabet))]
	}
	return string(buf), nil
}

// hybrid keeps a deterministic prefix from the id and fills the rest
// randomly, yielding a code one character longer than the minimum.
func hybrid(id uint64, minLength int) (string, error) {
	half := minLength / 2
	if half < 1 {
		half = 1
	}
	prefix := Encode(id, minLength)[:half]

	suffix := make([]byte, minLength+1-half)
	for i := range suffix {
		suffix[i] = Alphabet[mathrand.IntN(len(Alphabet))]
	}
	return prefix + string(suffix), nil
}

// secureRandom draws minLength+2 characters using crypto/rand.
func secureRandom(_ uint64, minLength int) (string, error) {
	raw := make([]byte, minLength+2)
	if _, err := cryptorand.Read(raw); err != nil {
		return "", fmt.Errorf("secure random code: %w", err)
	}
	buf := make([]byte, len(raw))
	for i, b := range raw {
		buf[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(buf), nil
}
