package dispatch

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/skypro1111/passwdgen-service/internal/generator"
	"github.com/skypro1111/passwdgen-service/internal/protocol"
)

func newTestDispatcher() *Dispatcher {
	return New(generator.New(rand.NewPCG(1, 2)))
}

func TestHandleErrors(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		outcome  Outcome
		response string
	}{
		{name: "empty", payload: "", outcome: OutcomeMalformed, response: protocol.MalformedResponse},
		{name: "single token", payload: "n", outcome: OutcomeMalformed, response: protocol.MalformedResponse},
		{name: "non-numeric length", payload: "n abc", outcome: OutcomeMalformed, response: protocol.MalformedResponse},
		{name: "zero length", payload: "n 0", outcome: OutcomeMalformed, response: protocol.MalformedResponse},
		{name: "negative length", payload: "s -10", outcome: OutcomeMalformed, response: protocol.MalformedResponse},
		{name: "too short", payload: "n 4", outcome: OutcomeLengthOutOfRange, response: protocol.LengthRangeResponse},
		{name: "too long", payload: "a 33", outcome: OutcomeLengthOutOfRange, response: protocol.LengthRangeResponse},
		{name: "unknown type with bad length", payload: "x 40", outcome: OutcomeLengthOutOfRange, response: protocol.LengthRangeResponse},
		{name: "unknown type", payload: "x 10", outcome: OutcomeUnknownType, response: protocol.UnknownTypeResponse},
		{name: "uppercase type", payload: "N 10", outcome: OutcomeUnknownType, response: protocol.UnknownTypeResponse},
	}

	d := newTestDispatcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := d.Handle([]byte(tt.payload))

			if result.Outcome != tt.outcome {
				t.Errorf("Expected outcome %s, got %s", tt.outcome, result.Outcome)
			}
			if string(result.Response) != tt.response {
				t.Errorf("Expected response %q, got %q", tt.response, result.Response)
			}
			if result.Password != "" {
				t.Errorf("Expected no password, got %q", result.Password)
			}
			if result.Err == nil {
				t.Errorf("Expected protocol error to be set")
			}
			if !result.Outcome.IsError() {
				t.Errorf("Expected %s to be an error outcome", result.Outcome)
			}
		})
	}
}

func TestHandleHelp(t *testing.T) {
	d := newTestDispatcher()

	for _, payload := range []string{"h", "h\n", "h\r\n"} {
		result := d.Handle([]byte(payload))
		if result.Outcome != OutcomeHelp {
			t.Errorf("%q: expected help outcome, got %s", payload, result.Outcome)
		}
		if string(result.Response) != protocol.HelpText {
			t.Errorf("%q: expected help text", payload)
		}
	}

	// Help does not depend on earlier requests
	d.Handle([]byte("x 10"))
	d.Handle([]byte("n 4"))
	if result := d.Handle([]byte("h")); string(result.Response) != protocol.HelpText {
		t.Errorf("Expected help text after error requests")
	}
}

func TestHandleGenerate(t *testing.T) {
	tests := []struct {
		payload string
		length  int
		typ     generator.Type
	}{
		{payload: "n 8", length: 8, typ: generator.Numeric},
		{payload: "a 6", length: 6, typ: generator.Alphabetic},
		{payload: "m 32", length: 32, typ: generator.Mixed},
		{payload: "s 6", length: 6, typ: generator.Secure},
		{payload: "u 10", length: 10, typ: generator.Unambiguous},
		{payload: "n 8 extra", length: 8, typ: generator.Numeric},
		{payload: "u 12\n", length: 12, typ: generator.Unambiguous},
	}

	d := newTestDispatcher()
	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			result := d.Handle([]byte(tt.payload))

			if result.Outcome != OutcomeGenerated {
				t.Fatalf("Expected generated outcome, got %s (%q)", result.Outcome, result.Response)
			}
			if len(result.Password) != tt.length {
				t.Errorf("Expected %d characters, got %d", tt.length, len(result.Password))
			}
			if string(result.Response) != result.Password {
				t.Errorf("Expected raw password as response, got %q", result.Response)
			}

			alphabet := generator.Alphabet(tt.typ)
			for _, c := range []byte(result.Password) {
				if strings.IndexByte(alphabet, c) < 0 {
					t.Errorf("Character %q not in %s alphabet", c, tt.typ)
				}
			}
			if tt.typ == generator.Unambiguous && strings.ContainsAny(result.Password, generator.Confusables) {
				t.Errorf("Unambiguous password %q contains confusable characters", result.Password)
			}
		})
	}
}

func TestHandleRepeatedRequestsAreIndependent(t *testing.T) {
	d := newTestDispatcher()

	first := d.Handle([]byte("s 32"))
	second := d.Handle([]byte("s 32"))

	if len(first.Password) != 32 || len(second.Password) != 32 {
		t.Fatalf("Expected two 32-character passwords, got %q and %q", first.Password, second.Password)
	}
	if first.Password == second.Password {
		t.Errorf("Expected independent passwords, got %q twice", first.Password)
	}
}

func TestOutcomeString(t *testing.T) {
	expected := []string{"malformed", "help", "length_out_of_range", "unknown_type", "generated"}
	for i, o := range Outcomes {
		if o.String() != expected[i] {
			t.Errorf("Expected %q, got %q", expected[i], o.String())
		}
	}
}
