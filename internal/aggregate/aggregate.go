// Package aggregate merges per-endpoint query results.
package aggregate

import (
	"strings"

	"borehole-workers/internal/common/logger"
	"borehole-workers/internal/models"
)

// Extractor pulls identifier tokens out of one payload, in document order.
type Extractor interface {
	Extract(payload string) []string
}

// ExtractIdentifiers unions the identifiers of every successful result,
// de-duplicated in first-seen order. Failed results are skipped and counted.
func ExtractIdentifiers(results []models.QueryResult, ex Extractor, log logger.Logger) *models.AggregatedResult {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	out := &models.AggregatedResult{Identifiers: []string{}, Queried: len(results)}
	seen := make(map[string]struct{})

	for i, r := range results {
		if !r.Success {
			out.Failed++
			log.Warn("skipping failed endpoint", map[string]interface{}{
				logger.FieldEndpoint:  r.Endpoint.URL,
				logger.FieldTaskIndex: i,
				"error":               errString(r.Err),
			})
			continue
		}
		for _, id := range ex.Extract(r.Payload) {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out.Identifiers = append(out.Identifiers, id)
		}
	}

	out.Status = models.StatusFor(out.Queried, out.Failed)
	return out
}

// Concatenate appends the payload of every successful result in input order.
// Failures, empty payloads and header-only payloads are skipped. Each payload
// is newline-terminated in the output.
func Concatenate(results []models.QueryResult) *models.AggregatedResult {
	return join(results, IsHeaderOnly)
}

// Collect is Concatenate for feature documents: only blank payloads are skipped.
func Collect(results []models.QueryResult) *models.AggregatedResult {
	return join(results, func(p string) bool { return strings.TrimSpace(p) == "" })
}

func join(results []models.QueryResult, skip func(string) bool) *models.AggregatedResult {
	out := &models.AggregatedResult{Queried: len(results)}

	var b strings.Builder
	for _, r := range results {
		if !r.Success {
			out.Failed++
			continue
		}
		if skip(r.Payload) {
			continue
		}
		b.WriteString(r.Payload)
		if !strings.HasSuffix(r.Payload, "\n") {
			b.WriteByte('\n')
		}
	}

	out.Payload = b.String()
	out.Status = models.StatusFor(out.Queried, out.Failed)
	return out
}

// IsHeaderOnly reports whether payload has at most one line, ignoring
// trailing blank lines.
func IsHeaderOnly(payload string) bool {
	trimmed := strings.TrimRight(payload, "\r\n \t")
	if strings.TrimSpace(trimmed) == "" {
		return true
	}
	return !strings.Contains(trimmed, "\n")
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
