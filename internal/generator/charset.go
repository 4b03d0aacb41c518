package generator

import (
	"fmt"
	"strings"
)

// Character sets
const (
	Digits    = "0123456789"
	Lowercase = "abcdefghijklmnopqrstuvwxyz"
	Uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Symbols   = "!@#$%^&*()-_=+[]{}<>?"

	MixedSet  = Lowercase + Digits
	SecureSet = Lowercase + Uppercase + Digits + Symbols

	// Excluded characters for the unambiguous policy
	Confusables = "0Oo1lIi2Zz5Ss8B"
)

// rejectionPolicy draws letter-or-digit candidates and redraws excluded ones
type rejectionPolicy struct {
	letters  string
	digits   string
	excluded string
	alphabet string // characters the policy can actually emit
}

var unambiguous = mustRejectionPolicy(Lowercase, Digits, Confusables)

// newRejectionPolicy checks that every sampling range keeps at least one accepted
// character, otherwise the redraw loop would never terminate.
func newRejectionPolicy(letters, digits, excluded string) (*rejectionPolicy, error) {
	keptLetters := without(letters, excluded)
	if keptLetters == "" {
		return nil, fmt.Errorf("exclusion set %q covers the whole letter range", excluded)
	}

	keptDigits := without(digits, excluded)
	if keptDigits == "" {
		return nil, fmt.Errorf("exclusion set %q covers the whole digit range", excluded)
	}

	return &rejectionPolicy{
		letters:  letters,
		digits:   digits,
		excluded: excluded,
		alphabet: keptLetters + keptDigits,
	}, nil
}

func mustRejectionPolicy(letters, digits, excluded string) *rejectionPolicy {
	p, err := newRejectionPolicy(letters, digits, excluded)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *rejectionPolicy) accepts(c byte) bool {
	return strings.IndexByte(p.excluded, c) < 0
}

// without returns the characters of set that do not appear in excluded
func without(set, excluded string) string {
	var sb strings.Builder
	for i := 0; i < len(set); i++ {
		if strings.IndexByte(excluded, set[i]) < 0 {
			sb.WriteByte(set[i])
		}
	}
	return sb.String()
}
