package token

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
)

// Alphabet is the 33-symbol unambiguous set tokens are drawn from: A-Z minus
// the confusable O, plus the digits 2-9. Confusable 0/1 are not in the digit
// range, and tokens are upper-case only.
const Alphabet = "ABCDEFGHIJKLMNPQRSTUVWXYZ23456789"

// Length is the fixed token length. 12 symbols over a 33-symbol alphabet
// gives a keyspace of roughly 2^60.5.
const Length = 12

// DefaultMaxAttempts bounds the collision retry loop. At this keyspace size a
// repeated collision means the store is returning bad data, not bad luck.
const DefaultMaxAttempts = 10

// ErrGenerationFailed is returned when the collision retry ceiling is
// exhausted. Operator-facing: it indicates a store fault, callers must not
// retry further.
var ErrGenerationFailed = errors.New("token generation failed: collision retry ceiling exhausted")

// CollisionChecker reports whether a token already belongs to a currently
// valid (non-expired, non-terminated) session.
type CollisionChecker interface {
	ActiveTokenExists(ctx context.Context, token string) (bool, error)
}

// Generator mints session tokens from a CSPRNG and guarantees they do not
// collide with any currently valid token.
type Generator struct {
	checker     CollisionChecker
	maxAttempts int
}

// NewGenerator returns a Generator that consults checker before accepting a
// candidate token.
func NewGenerator(checker CollisionChecker) *Generator {
	return &Generator{checker: checker, maxAttempts: DefaultMaxAttempts}
}

// Generate returns a fresh 12-character token that no currently valid session
// holds, or ErrGenerationFailed after the retry ceiling.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		candidate, err := randomToken()
		if err != nil {
			return "", fmt.Errorf("reading random source: %w", err)
		}

		exists, err := g.checker.ActiveTokenExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("checking token collision: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", ErrGenerationFailed
}

// KeyspaceBits is the entropy of a uniformly drawn token: Length * log2(33).
func KeyspaceBits() float64 {
	return Length * math.Log2(float64(len(Alphabet)))
}

func randomToken() (string, error) {
	buf := make([]byte, Length)
	max := big.NewInt(int64(len(Alphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = Alphabet[n.Int64()]
	}
	return string(buf), nil
}
