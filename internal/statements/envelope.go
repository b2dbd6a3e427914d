package statements

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-statements/internal/statements/rollup"
)

// Envelope is the outcome handed to callers: either a full document or a
// typed failure.
type Envelope struct {
	Success  bool           `json:"success"`
	Document *Document      `json:"document,omitempty"`
	Error    *EnvelopeError `json:"error,omitempty"`
}

// EnvelopeError is the wire form of Error.
type EnvelopeError struct {
	Kind    ErrorKind        `json:"kind"`
	Message string           `json:"message"`
	Delta   *decimal.Decimal `json:"delta,omitempty"`
	Orphans []rollup.Orphan  `json:"orphans,omitempty"`
}

// NewEnvelope wraps a generation result.
func NewEnvelope(doc Document, err error) Envelope {
	if err == nil {
		return Envelope{Success: true, Document: &doc}
	}
	se := classifyError(err)
	out := &EnvelopeError{Kind: se.Kind, Message: se.Error(), Orphans: se.Orphans}
	if se.Delta.Valid {
		delta := se.Delta.Decimal
		out.Delta = &delta
	}
	return Envelope{Success: false, Error: out}
}
