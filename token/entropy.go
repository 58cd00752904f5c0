package token

import (
	"fmt"
	"math"
	"strings"

	"rollcall-backend/models"
)

// Classification thresholds in bits, applied to charset entropy.
const (
	strongBits     = 80
	moderateBits   = 60
	acceptableBits = 40
)

// Production floors. CharsetBits must clear MinCharsetBits and the sample
// Shannon entropy must clear MinShannonBits. The relaxed 25-bit Shannon floor
// doubles as the development charset floor (see DevEntropyValidator); it is
// never applied to charset entropy in production.
const (
	DefaultMinCharsetBits = 60
	DefaultMinShannonBits = 25
	DevMinCharsetBits     = 25
)

// Score describes a token's measured strength.
type Score struct {
	// CharsetBits is the keyspace entropy of a uniform draw at this length
	// over the token alphabet. This is the audited entropy_bits value.
	CharsetBits float64 `json:"charset_bits"`
	// ShannonBits is the sample Shannon entropy of the token's own character
	// frequencies times its length. It catches degenerate tokens (repeated
	// or patterned characters) that keyspace math alone cannot see.
	ShannonBits   float64 `json:"shannon_bits"`
	SecurityLevel string  `json:"security_level"`
}

// ValidationError reports a token that failed entropy or shape validation.
type ValidationError struct {
	Reason string
	Score  Score
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("low entropy token: %s (charset=%.1f bits, shannon=%.1f bits)",
		e.Reason, e.Score.CharsetBits, e.Score.ShannonBits)
}

// EntropyValidator scores tokens and rejects those below the configured
// floors. It is pure: same token in, same result out, no side effects.
type EntropyValidator struct {
	minCharsetBits float64
	minShannonBits float64
}

// NewEntropyValidator returns a validator with the production floors.
func NewEntropyValidator() *EntropyValidator {
	return &EntropyValidator{
		minCharsetBits: DefaultMinCharsetBits,
		minShannonBits: DefaultMinShannonBits,
	}
}

// DevEntropyValidator returns the relaxed development configuration with the
// 25-bit floor. It must be selected explicitly; nothing falls back to it.
func DevEntropyValidator() *EntropyValidator {
	return &EntropyValidator{
		minCharsetBits: DevMinCharsetBits,
		minShannonBits: 0,
	}
}

// NewEntropyValidatorWithFloors builds a validator with custom floors, for
// configuration-driven setups.
func NewEntropyValidatorWithFloors(minCharsetBits, minShannonBits float64) *EntropyValidator {
	return &EntropyValidator{minCharsetBits: minCharsetBits, minShannonBits: minShannonBits}
}

// CheckShape verifies length and alphabet membership without scoring.
func CheckShape(tok string) error {
	if len(tok) != Length {
		return fmt.Errorf("token must be exactly %d characters, got %d", Length, len(tok))
	}
	for i := 0; i < len(tok); i++ {
		if !strings.ContainsRune(Alphabet, rune(tok[i])) {
			return fmt.Errorf("token contains character %q outside the allowed alphabet", tok[i])
		}
	}
	return nil
}

// ScoreToken measures a token of any shape. Charset bits use the full token
// alphabet; Shannon bits use the token's observed character frequencies.
func (v *EntropyValidator) ScoreToken(tok string) Score {
	s := Score{
		CharsetBits: float64(len(tok)) * math.Log2(float64(len(Alphabet))),
		ShannonBits: shannonBits(tok),
	}
	switch {
	case s.CharsetBits >= strongBits:
		s.SecurityLevel = models.SecurityStrong
	case s.CharsetBits >= moderateBits:
		s.SecurityLevel = models.SecurityModerate
	case s.CharsetBits >= acceptableBits:
		s.SecurityLevel = models.SecurityAcceptable
	default:
		s.SecurityLevel = models.SecurityWeak
	}
	return s
}

// Validate checks shape and entropy floors. On success it returns the score
// so callers can persist the audited bits.
func (v *EntropyValidator) Validate(tok string) (Score, error) {
	if err := CheckShape(tok); err != nil {
		return Score{}, err
	}
	score := v.ScoreToken(tok)
	if score.CharsetBits < v.minCharsetBits {
		return score, &ValidationError{Reason: "keyspace entropy below floor", Score: score}
	}
	if score.ShannonBits < v.minShannonBits {
		return score, &ValidationError{Reason: "degenerate character distribution", Score: score}
	}
	return score, nil
}

// shannonBits computes -sum(p*log2(p)) over the token's observed character
// frequencies, scaled by token length.
func shannonBits(tok string) float64 {
	if len(tok) == 0 {
		return 0
	}
	counts := make(map[byte]int, len(tok))
	for i := 0; i < len(tok); i++ {
		counts[tok[i]]++
	}
	var h float64
	n := float64(len(tok))
	for _, c := range counts {
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h * n
}
