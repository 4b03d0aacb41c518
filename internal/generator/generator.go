package generator

import (
	crand "crypto/rand"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// ErrUnknownType is returned by Generate for a tag outside the five policies
var ErrUnknownType = errors.New("unknown password type")

// Type is the single-character tag selecting a generation policy
type Type byte

const (
	Numeric     Type = 'n'
	Alphabetic  Type = 'a'
	Mixed       Type = 'm'
	Secure      Type = 's'
	Unambiguous Type = 'u'
)

// Types lists every supported policy
var Types = []Type{Numeric, Alphabetic, Mixed, Secure, Unambiguous}

// ParseType maps a request type character to its policy
func ParseType(c byte) (Type, bool) {
	switch t := Type(c); t {
	case Numeric, Alphabetic, Mixed, Secure, Unambiguous:
		return t, true
	default:
		return 0, false
	}
}

// String returns the policy name
func (t Type) String() string {
	switch t {
	case Numeric:
		return "numeric"
	case Alphabetic:
		return "alphabetic"
	case Mixed:
		return "mixed"
	case Secure:
		return "secure"
	case Unambiguous:
		return "unambiguous"
	default:
		return fmt.Sprintf("Unknown(%q)", byte(t))
	}
}

// Alphabet returns every character a policy can emit, or "" for an unknown type
func Alphabet(t Type) string {
	switch t {
	case Numeric:
		return Digits
	case Alphabetic:
		return Lowercase
	case Mixed:
		return MixedSet
	case Secure:
		return SecureSet
	case Unambiguous:
		return unambiguous.alphabet
	default:
		return ""
	}
}

// Generator produces passwords from a single pseudo-random stream
type Generator struct {
	rng *rand.Rand
}

// New creates a generator drawing from src
func New(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// NewTimeSeeded creates a generator seeded from the wall clock. Generators created
// at the same instant still get distinct sequences as long as stream differs.
func NewTimeSeeded(stream uint64) *Generator {
	return New(rand.NewPCG(uint64(time.Now().UnixNano()), stream))
}

// NewCryptoSeeded creates a generator whose ChaCha8 stream is seeded from crypto/rand
func NewCryptoSeeded() (*Generator, error) {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("failed to read random seed: %w", err)
	}
	return New(rand.NewChaCha8(seed)), nil
}

// Generate dispatches to the policy selected by t
func (g *Generator) Generate(t Type, length int) (string, error) {
	switch t {
	case Numeric:
		return g.Numeric(length), nil
	case Alphabetic:
		return g.Alphabetic(length), nil
	case Mixed:
		return g.Mixed(length), nil
	case Secure:
		return g.Secure(length), nil
	case Unambiguous:
		return g.Unambiguous(length), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, byte(t))
	}
}

// Numeric returns length uniformly drawn digits
func (g *Generator) Numeric(length int) string {
	return g.fromSet(Digits, length)
}

// Alphabetic returns length uniformly drawn lowercase letters
func (g *Generator) Alphabetic(length int) string {
	return g.fromSet(Lowercase, length)
}

// Mixed returns length characters drawn uniformly from lowercase letters and digits
func (g *Generator) Mixed(length int) string {
	return g.fromSet(MixedSet, length)
}

// Secure returns length characters drawn uniformly from letters of both cases,
// digits and symbols
func (g *Generator) Secure(length int) string {
	return g.fromSet(SecureSet, length)
}

// Unambiguous returns length lowercase letters or digits with no confusable glyphs.
// Each position flips a coin between the letter and digit ranges, picks uniformly in
// the chosen range and redraws while the pick is excluded. There is no retry cap.
func (g *Generator) Unambiguous(length int) string {
	var sb strings.Builder
	sb.Grow(length)

	for i := 0; i < length; i++ {
		sb.WriteByte(g.unambiguousChar(unambiguous))
	}

	return sb.String()
}

func (g *Generator) unambiguousChar(p *rejectionPolicy) byte {
	for {
		var c byte
		if g.rng.IntN(2) == 1 {
			c = p.letters[g.rng.IntN(len(p.letters))]
		} else {
			c = p.digits[g.rng.IntN(len(p.digits))]
		}
		if p.accepts(c) {
			return c
		}
	}
}

func (g *Generator) fromSet(set string, length int) string {
	var sb strings.Builder
	sb.Grow(length)

	for i := 0; i < length; i++ {
		sb.WriteByte(g.randomChar(set))
	}

	return sb.String()
}

// randomChar picks one character of set uniformly
func (g *Generator) randomChar(set string) byte {
	return set[g.rng.IntN(len(set))]
}
