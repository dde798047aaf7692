// internal/models/result.go
package models

// QueryResult is the outcome of one QueryTask. Payload is set on success,
// Err on failure.
type QueryResult struct {
	Endpoint Endpoint
	Success  bool
	Payload  string
	Err      error
}

// Status classifies an aggregate outcome.
type Status string

const (
	// StatusComplete means every queried endpoint succeeded.
	StatusComplete Status = "COMPLETE"
	// StatusDegraded means some endpoints failed; the result is still valid.
	StatusDegraded Status = "DEGRADED"
	// StatusEmpty means no endpoint was eligible to be queried.
	StatusEmpty Status = "EMPTY"
)

// AggregatedResult merges per-endpoint results. Identifiers is populated by
// identifier extraction and Payload by payload concatenation.
type AggregatedResult struct {
	Identifiers []string `json:"identifiers,omitempty"`
	Payload     string   `json:"payload,omitempty"`
	Queried     int      `json:"queried"`
	Failed      int      `json:"failed"`
	Status      Status   `json:"status"`
}

// AllFailed reports whether endpoints were queried and none succeeded.
func (r *AggregatedResult) AllFailed() bool {
	return r.Queried > 0 && r.Failed == r.Queried
}

// StatusFor derives the aggregate status from the queried and failed counts.
func StatusFor(queried, failed int) Status {
	switch {
	case queried == 0:
		return StatusEmpty
	case failed > 0:
		return StatusDegraded
	default:
		return StatusComplete
	}
}
