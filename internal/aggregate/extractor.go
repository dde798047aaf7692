package aggregate

import (
	"html"
	"regexp"
	"strings"
)

// PatternExtractor returns the first capture group of every match.
type PatternExtractor struct {
	re *regexp.Regexp
}

// NewPatternExtractor compiles pattern, which must have one capture group.
func NewPatternExtractor(pattern string) (*PatternExtractor, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &PatternExtractor{re: re}, nil
}

func MustPatternExtractor(pattern string) *PatternExtractor {
	return &PatternExtractor{re: regexp.MustCompile(pattern)}
}

func (p *PatternExtractor) Extract(payload string) []string {
	matches := p.re.FindAllStringSubmatch(payload, -1)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(m) < 2 {
			continue
		}
		id := strings.TrimSpace(html.UnescapeString(m[1]))
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// AttributeExtractor matches attr on every element named element, e.g.
// AttributeExtractor("nvcl:scannedBorehole", "xlink:href").
func AttributeExtractor(element, attr string) *PatternExtractor {
	return MustPatternExtractor(
		`<` + regexp.QuoteMeta(element) + `\s[^>]*?\b` + regexp.QuoteMeta(attr) + `\s*=\s*"([^"]*)"`,
	)
}

var (
	// ScannedBoreholeExtractor yields the borehole references of nvcl:ScannedBorehole features.
	ScannedBoreholeExtractor = AttributeExtractor("nvcl:scannedBorehole", "xlink:href")
	// BoreholeViewExtractor yields gsmlp:identifier values of portrayal features.
	BoreholeViewExtractor = MustPatternExtractor(`<gsmlp:identifier>\s*([^<]*?)\s*</gsmlp:identifier>`)
)
