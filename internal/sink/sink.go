// Package sink provides the append-only log store the invocation pipeline
// writes into and the metric extractor reads from. Records are persisted as
// JSON Lines so the file stays greppable and order-preserving.
package sink

import "time"

// Severity tags a record as ordinary script output or failure evidence.
const (
	SeverityNormal = "normal"
	SeverityError  = "error"
)

// Record is one appended log line.
type Record struct {
	Time       time.Time `json:"time"`
	Severity   string    `json:"severity"`
	Text       string    `json:"text"`
	Invocation string    `json:"invocation,omitempty"`
	Job        string    `json:"job,omitempty"`
}

// Filter selects records on read. Zero values match everything.
type Filter struct {
	Since      *time.Time
	Until      *time.Time
	Severity   string
	Prefix     string // text must begin with this literal
	Contains   string // text must contain this literal
	Invocation string
}

// Sink is the append-only store contract. Append preserves the order of the
// records it is given; Query returns records in append order.
type Sink interface {
	Append(records []Record) error
	Query(f Filter) ([]Record, error)
	Close() error
}
