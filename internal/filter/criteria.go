// internal/filter/criteria.go
package filter

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date layout accepted for drilling dates.
const DateLayout = "2006-01-02"

var ErrMalformedDate = errors.New("malformed date")

// Criteria is the structured borehole query. Empty fields are not criteria.
type Criteria struct {
	BoreholeName        string
	Custodian           string
	DateOfDrillingStart string
	DateOfDrillingEnd   string

	// RestrictToIDs limits results to known borehole ids; how they are matched
	// depends on the profile.
	RestrictToIDs []string
	// Identifiers are matched against the profile's identifier property.
	Identifiers []string

	// RawFilter replaces the name, custodian and date predicates when set.
	RawFilter string

	BBox *BBox

	// RestrictToCollection limits results to the profile's sub-collection
	// (the NVCL collection for portrayal services).
	RestrictToCollection bool
	// OmitGeometry disables bbox filtering for services without a usable
	// geometry property.
	OmitGeometry bool
}

// CriteriaError reports a criterion that cannot be rendered.
type CriteriaError struct {
	Field string
	Value string
}

func (e *CriteriaError) Error() string {
	return fmt.Sprintf("%s: %s %q, expected YYYY-MM-DD", ErrMalformedDate, e.Field, e.Value)
}

func (e *CriteriaError) Unwrap() error {
	return ErrMalformedDate
}

// DrillingWindow converts an inclusive calendar-day range into the strict
// bounds sent to providers: one second before start-of-day on start and one
// second after start-of-day on end. ok is false when either date is missing.
func DrillingWindow(start, end string) (lower, upper string, ok bool, err error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" || end == "" {
		return "", "", false, nil
	}

	from, err := time.Parse(DateLayout, start)
	if err != nil {
		return "", "", false, &CriteriaError{Field: "dateOfDrillingStart", Value: start}
	}
	to, err := time.Parse(DateLayout, end)
	if err != nil {
		return "", "", false, &CriteriaError{Field: "dateOfDrillingEnd", Value: end}
	}

	lower = from.Add(-time.Second).Format(DateTimeLayout)
	upper = to.Add(time.Second).Format(DateTimeLayout)
	return lower, upper, true, nil
}
