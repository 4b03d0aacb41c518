package dispatch

import (
	"fmt"

	"github.com/skypro1111/passwdgen-service/internal/generator"
	"github.com/skypro1111/passwdgen-service/internal/protocol"
)

// Outcome describes how a request was answered
type Outcome int

const (
	OutcomeMalformed Outcome = iota
	OutcomeHelp
	OutcomeLengthOutOfRange
	OutcomeUnknownType
	OutcomeGenerated
)

// Outcomes lists every outcome, in declaration order
var Outcomes = []Outcome{
	OutcomeMalformed,
	OutcomeHelp,
	OutcomeLengthOutOfRange,
	OutcomeUnknownType,
	OutcomeGenerated,
}

// String returns the outcome name, also used as a metrics label
func (o Outcome) String() string {
	switch o {
	case OutcomeMalformed:
		return "malformed"
	case OutcomeHelp:
		return "help"
	case OutcomeLengthOutOfRange:
		return "length_out_of_range"
	case OutcomeUnknownType:
		return "unknown_type"
	case OutcomeGenerated:
		return "generated"
	default:
		return fmt.Sprintf("Unknown(%d)", int(o))
	}
}

// IsError reports whether the outcome is a request-scoped protocol error
func (o Outcome) IsError() bool {
	return o == OutcomeMalformed || o == OutcomeLengthOutOfRange || o == OutcomeUnknownType
}

// Result is the reply to a single request
type Result struct {
	Outcome  Outcome
	Request  protocol.Request
	Response []byte
	Password string // only set for OutcomeGenerated
	Err      error  // protocol error for error outcomes
}

// Dispatcher answers requests using one generator. It is safe for use by a single
// goroutine only, like the generator it wraps.
type Dispatcher struct {
	gen *generator.Generator
}

// New creates a dispatcher backed by gen
func New(gen *generator.Generator) *Dispatcher {
	return &Dispatcher{gen: gen}
}

// Handle decodes payload and produces its reply
func (d *Dispatcher) Handle(payload []byte) Result {
	req := protocol.ParseRequest(payload)

	switch req.Kind {
	case protocol.KindHelp:
		return Result{
			Outcome:  OutcomeHelp,
			Request:  req,
			Response: []byte(protocol.HelpText),
		}
	case protocol.KindGenerate:
		// handled below
	default:
		return errorResult(OutcomeMalformed, req, protocol.ErrMalformedRequest)
	}

	if err := protocol.ValidateLength(req.Length); err != nil {
		return errorResult(OutcomeLengthOutOfRange, req, err)
	}

	typ, ok := generator.ParseType(req.Type)
	if !ok {
		return errorResult(OutcomeUnknownType, req,
			fmt.Errorf("%w: %q", protocol.ErrUnknownType, req.Type))
	}

	password, err := d.gen.Generate(typ, req.Length)
	if err != nil {
		// ParseType already filtered the tag
		return errorResult(OutcomeUnknownType, req,
			fmt.Errorf("%w: %v", protocol.ErrUnknownType, err))
	}

	return Result{
		Outcome:  OutcomeGenerated,
		Request:  req,
		Response: []byte(password),
		Password: password,
	}
}

func errorResult(outcome Outcome, req protocol.Request, err error) Result {
	return Result{
		Outcome:  outcome,
		Request:  req,
		Response: protocol.ErrorResponse(err),
		Err:      err,
	}
}
