package expr

import (
	"math"
)

// Kind classifies the result of one evaluation.
type Kind int

const (
	KindSuccess Kind = iota
	KindTooLarge
	KindTooSmall
	KindNotANumber
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindTooLarge:
		return "too_large"
	case KindTooSmall:
		return "too_small"
	case KindNotANumber:
		return "not_a_number"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Display messages for the failure outcomes.
const (
	MessageTooLarge = "TOO BIG!"
	MessageTooSmall = "TOO SMALL!"
	MessageError    = "Error"
)

// Outcome is the classified result of evaluating one expression.
type Outcome struct {
	Kind Kind
	// Value holds the canonical result string when Kind is KindSuccess.
	Value string
	// Err holds the parse failure when Kind is KindError.
	Err error
}

// OK reports whether the evaluation produced a number.
func (o Outcome) OK() bool {
	return o.Kind == KindSuccess
}

// Message is the text shown on the display for this outcome.
func (o Outcome) Message() string {
	switch o.Kind {
	case KindSuccess:
		return o.Value
	case KindTooLarge:
		return MessageTooLarge
	case KindTooSmall:
		return MessageTooSmall
	default:
		return MessageError
	}
}

// Classify maps a raw numeric result onto an Outcome.
func Classify(x float64) Outcome {
	switch {
	case math.IsInf(x, 1):
		return Outcome{Kind: KindTooLarge}
	case math.IsInf(x, -1):
		return Outcome{Kind: KindTooSmall}
	case math.IsNaN(x):
		return Outcome{Kind: KindNotANumber}
	}
	return Outcome{Kind: KindSuccess, Value: FormatNumber(RoundResult(x))}
}

// Evaluate runs the full pipeline over a canonical buffer: glyph rewrite,
// literal sanitizing, parsing, evaluation under mode, then classification.
func Evaluate(buffer string, mode AngleMode) Outcome {
	n, err := Parse(Rewrite(buffer))
	if err != nil {
		return Outcome{Kind: KindError, Err: err}
	}
	return Classify(n.Eval(mode))
}
