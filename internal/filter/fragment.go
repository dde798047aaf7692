// internal/filter/fragment.go
package filter

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// Wildcard characters declared on every PropertyIsLike element.
const (
	WildCard   = "*"
	SingleChar = "#"
	EscapeChar = "!"
)

// DateTimeLayout is the layout of timestamps handed to the dateParse function.
const (
	DateTimeLayout   = "2006-01-02 15:04:05"
	dateParsePattern = "yyyy-MM-dd HH:mm:ss"
)

// MatchCase controls the matchCase attribute on comparison operators.
// The zero value is case-sensitive.
type MatchCase int

const (
	CaseSensitive MatchCase = iota
	CaseInsensitive
	// CaseUnspecified omits the attribute for providers that reject it.
	CaseUnspecified
)

func (m MatchCase) attr() string {
	switch m {
	case CaseInsensitive:
		return ` matchCase="false"`
	case CaseUnspecified:
		return ""
	default:
		return ` matchCase="true"`
	}
}

// BBox is a geographic extent in the given spatial reference system.
type BBox struct {
	SRS   string     `json:"srs"`
	Lower [2]float64 `json:"lower"`
	Upper [2]float64 `json:"upper"`
}

// DefaultSRS is used when a bounding box carries no srs.
const DefaultSRS = "EPSG:4326"

// And joins fragments in an ogc:And. Empty fragments are dropped, a single
// remaining fragment is returned unwrapped and no fragments yield "".
func And(fragments ...string) string {
	return combine("ogc:And", fragments)
}

// Or joins fragments in an ogc:Or with the same elision rules as And.
func Or(fragments ...string) string {
	return combine("ogc:Or", fragments)
}

func combine(element string, fragments []string) string {
	kept := fragments[:0:0]
	for _, f := range fragments {
		if strings.TrimSpace(f) != "" {
			kept = append(kept, f)
		}
	}
	switch len(kept) {
	case 0:
		return ""
	case 1:
		return kept[0]
	}

	var b strings.Builder
	b.WriteString("<" + element + ">")
	for _, f := range kept {
		b.WriteString(f)
	}
	b.WriteString("</" + element + ">")
	return b.String()
}

// PropertyIsLike matches value as a case-insensitive substring of path.
// Wildcard characters in value are escaped so they match literally.
func PropertyIsLike(path, value string) string {
	return fmt.Sprintf(
		`<ogc:PropertyIsLike wildCard="%s" singleChar="%s" escapeChar="%s" matchCase="false">%s%s</ogc:PropertyIsLike>`,
		WildCard, SingleChar, EscapeChar,
		propertyName(path),
		literal(WildCard+escapeLike(value)+WildCard),
	)
}

// PropertyIsEqual renders an ogc:PropertyIsEqualTo comparison.
func PropertyIsEqual(path, value string, matchCase MatchCase) string {
	return comparison("ogc:PropertyIsEqualTo", path, literal(value), matchCase)
}

// PropertyGreaterThan renders an ogc:PropertyIsGreaterThan comparison.
func PropertyGreaterThan(path, value string, matchCase MatchCase) string {
	return comparison("ogc:PropertyIsGreaterThan", path, literal(value), matchCase)
}

// PropertyLessThan renders an ogc:PropertyIsLessThan comparison.
func PropertyLessThan(path, value string, matchCase MatchCase) string {
	return comparison("ogc:PropertyIsLessThan", path, literal(value), matchCase)
}

// DateGreaterThan compares path against a timestamp parsed server side with dateParse.
func DateGreaterThan(path, timestamp string, matchCase MatchCase) string {
	return comparison("ogc:PropertyIsGreaterThan", path, dateParse(timestamp), matchCase)
}

// DateLessThan is the upper-bound counterpart of DateGreaterThan.
func DateLessThan(path, timestamp string, matchCase MatchCase) string {
	return comparison("ogc:PropertyIsLessThan", path, dateParse(timestamp), matchCase)
}

// BBoxIntersects renders an ogc:BBOX against the geometry at path. A nil box
// or an empty path omits bbox filtering.
func BBoxIntersects(box *BBox, path string) string {
	if box == nil || path == "" {
		return ""
	}
	srs := box.SRS
	if srs == "" {
		srs = DefaultSRS
	}
	return fmt.Sprintf(
		`<ogc:BBOX>%s<gml:Envelope srsName="%s"><gml:lowerCorner>%s %s</gml:lowerCorner><gml:upperCorner>%s %s</gml:upperCorner></gml:Envelope></ogc:BBOX>`,
		propertyName(path), escape(srs),
		formatCoord(box.Lower[0]), formatCoord(box.Lower[1]),
		formatCoord(box.Upper[0]), formatCoord(box.Upper[1]),
	)
}

// FeatureIDIn renders an ogc:Or of ogc:FeatureId elements, one per id, with
// fid "{prefix}.{id}". Blank ids are skipped.
func FeatureIDIn(ids []string, prefix string) string {
	fragments := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		fid := id
		if prefix != "" {
			fid = prefix + "." + id
		}
		fragments = append(fragments, fmt.Sprintf(`<ogc:FeatureId fid="%s"/>`, escape(fid)))
	}
	return Or(fragments...)
}

// PropertyIsEqualToAny renders an ogc:Or of equality comparisons against path.
func PropertyIsEqualToAny(path string, values []string, matchCase MatchCase) string {
	fragments := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		fragments = append(fragments, PropertyIsEqual(path, v, matchCase))
	}
	return Or(fragments...)
}

// Document wraps a fragment in an ogc:Filter element. An empty fragment
// yields "" so that no filter is sent.
func Document(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	return "<ogc:Filter>" + fragment + "</ogc:Filter>"
}

func comparison(element, path, expression string, matchCase MatchCase) string {
	return "<" + element + matchCase.attr() + ">" + propertyName(path) + expression + "</" + element + ">"
}

func propertyName(path string) string {
	return "<ogc:PropertyName>" + escape(path) + "</ogc:PropertyName>"
}

func literal(value string) string {
	return "<ogc:Literal>" + escape(value) + "</ogc:Literal>"
}

func dateParse(timestamp string) string {
	return `<ogc:Function name="dateParse">` + literal(dateParsePattern) + literal(timestamp) + "</ogc:Function>"
}

func escapeLike(value string) string {
	r := strings.NewReplacer(
		EscapeChar, EscapeChar+EscapeChar,
		WildCard, EscapeChar+WildCard,
		SingleChar, EscapeChar+SingleChar,
	)
	return r.Replace(value)
}

func escape(s string) string {
	var buf bytes.Buffer
	// EscapeText only fails when the writer does.
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
