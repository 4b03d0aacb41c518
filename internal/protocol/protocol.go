package protocol

import (
	"errors"
	"fmt"
	"math"
)

// Protocol constants
const (
	// Datagram sizing. Payloads are limited to BufferSize-1 bytes in both directions.
	BufferSize     = 1024
	MaxPayloadSize = BufferSize - 1

	// Default UDP port the server listens on
	DefaultPort = 12345

	// Accepted password length range (inclusive)
	MinLength = 6
	MaxLength = 32

	// Commands with special meaning
	HelpCommand = "h"
	QuitCommand = "q" // handled by the client, never sent
)

// Request-scoped protocol errors. Each one maps to a fixed reply.
var (
	ErrMalformedRequest = errors.New("malformed request")
	ErrLengthOutOfRange = errors.New("password length out of range")
	ErrUnknownType      = errors.New("unknown password type")
)

// Fixed error replies
const (
	MalformedResponse   = "Invalid request format or length\n"
	LengthRangeResponse = "Error: Password length must be between 6 and 32 characters.\n"
	UnknownTypeResponse = "Invalid password type\n"
)

// HelpText is the reply to a help request
const HelpText = "Password Generator Help Menu\n" +
	"Usage: [type] [length]\n" +
	"Commands:\n" +
	"  h           :   show this help menu\n" +
	"  n <length>  :   generate numeric password (digits only)\n" +
	"  a <length>  :   generate alphabetic password (lowercase letters)\n" +
	"  m <length>  :   generate mixed password (lowercase letters and numbers)\n" +
	"  s <length>  :   generate secure password (uppercase, lowercase, numbers, symbols)\n" +
	"  u <length>  :   generate unambiguous secure password (no similar-looking characters)\n" +
	"  q           :   quit application\n" +
	"LENGTH must be between 6 and 32 characters\n" +
	"Ambiguous characters excluded in 'u' option:\n" +
	"  0 O o (zero and letters O)\n" +
	"  1 l I i (one and letters l, I)\n" +
	"  2 Z z (two and letter Z)\n" +
	"  5 S s (five and letter S)\n" +
	"  8 B (eight and letter B)\n" +
	"Example: n 8\n"

// Kind identifies what a decoded request asks for
type Kind int

const (
	KindMalformed Kind = iota
	KindHelp
	KindGenerate
)

// String returns a human-readable name for the kind
func (k Kind) String() string {
	switch k {
	case KindHelp:
		return "help"
	case KindGenerate:
		return "generate"
	case KindMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Request is a decoded datagram payload. Type and Length are only set for KindGenerate.
type Request struct {
	Kind   Kind
	Type   byte
	Length int
}

// String returns a human-readable representation of the request
func (r Request) String() string {
	switch r.Kind {
	case KindGenerate:
		return fmt.Sprintf("Request{Kind:%s, Type:%q, Length:%d}", r.Kind, r.Type, r.Length)
	default:
		return fmt.Sprintf("Request{Kind:%s}", r.Kind)
	}
}

// ParseRequest decodes one datagram payload.
//
// The accepted grammar is "h", or a single type character followed by one or more
// whitespace characters and a decimal integer. Anything after the integer is ignored,
// so "n 8 extra" decodes exactly like "n 8". A missing or non-numeric length, an
// overflowing length or a length <= 0 yields KindMalformed.
func ParseRequest(payload []byte) Request {
	line := TrimLineTerminator(payload)
	if len(line) == 0 {
		return Request{Kind: KindMalformed}
	}

	if string(line) == HelpCommand {
		return Request{Kind: KindHelp}
	}

	typ := line[0]
	rest := line[1:]

	// At least one separator between the two tokens
	i := 0
	for i < len(rest) && isSpace(rest[i]) {
		i++
	}
	if i == 0 {
		return Request{Kind: KindMalformed}
	}

	length, ok := scanInt(rest[i:])
	if !ok || length <= 0 {
		return Request{Kind: KindMalformed}
	}

	return Request{Kind: KindGenerate, Type: typ, Length: length}
}

// ValidateLength checks that a parsed length is within [MinLength, MaxLength]
func ValidateLength(length int) error {
	if length < MinLength || length > MaxLength {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrLengthOutOfRange, length, MinLength, MaxLength)
	}
	return nil
}

// ErrorResponse returns the fixed reply for a request-scoped error.
// Errors outside the protocol taxonomy are reported as malformed requests.
func ErrorResponse(err error) []byte {
	switch {
	case errors.Is(err, ErrLengthOutOfRange):
		return []byte(LengthRangeResponse)
	case errors.Is(err, ErrUnknownType):
		return []byte(UnknownTypeResponse)
	default:
		return []byte(MalformedResponse)
	}
}

// TrimLineTerminator strips any trailing CR/LF characters
func TrimLineTerminator(b []byte) []byte {
	end := len(b)
	for end > 0 && (b[end-1] == '\n' || b[end-1] == '\r') {
		end--
	}
	return b[:end]
}

// Truncate limits a payload to MaxPayloadSize bytes
func Truncate(b []byte) []byte {
	if len(b) > MaxPayloadSize {
		return b[:MaxPayloadSize]
	}
	return b
}

// scanInt reads an optionally signed decimal integer from the start of b.
// Trailing bytes after the digits are ignored.
func scanInt(b []byte) (int, bool) {
	i := 0
	negative := false
	if i < len(b) && (b[i] == '+' || b[i] == '-') {
		negative = b[i] == '-'
		i++
	}

	start := i
	value := 0
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		digit := int(b[i] - '0')
		if value > (math.MaxInt32-digit)/10 {
			return 0, false
		}
		value = value*10 + digit
		i++
	}
	if i == start {
		return 0, false
	}

	if negative {
		value = -value
	}
	return value, true
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
