// Package wfs builds OGC WFS 1.1.0 GetFeature requests around rendered
// filter fragments.
package wfs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"borehole-workers/internal/filter"
)

const (
	Version     = "1.1.0"
	ContentType = "text/xml; charset=UTF-8"
)

var (
	ErrMissingServiceURL = errors.New("wfs: service url is required")
	ErrMissingTypeName   = errors.New("wfs: type name is required")
)

// Namespaces declared on every GetFeature request.
var Namespaces = []struct{ Prefix, URI string }{
	{"wfs", "http://www.opengis.net/wfs"},
	{"ogc", "http://www.opengis.net/ogc"},
	{"gml", "http://www.opengis.net/gml"},
	{"xlink", "http://www.w3.org/1999/xlink"},
	{"gsml", "urn:cgi:xmlns:CGI:GeoSciML:2.0"},
	{"gsmlp", "http://xmlns.geosciml.org/geosciml-portrayal/4.0"},
	{"nvcl", "http://www.auscope.org/nvcl"},
}

// GetFeatureRequest describes one GetFeature call. MaxFeatures <= 0 and an
// empty OutputFormat leave the provider defaults in place.
type GetFeatureRequest struct {
	ServiceURL   string
	TypeName     string
	Filter       string
	MaxFeatures  int
	OutputFormat string
}

// MethodMaker turns GetFeatureRequests into ready-to-send HTTP requests.
type MethodMaker struct {
	userAgent string
}

func NewMethodMaker(userAgent string) *MethodMaker {
	return &MethodMaker{userAgent: userAgent}
}

// MakeRequest builds a POST carrying the GetFeature document.
func (m *MethodMaker) MakeRequest(ctx context.Context, r GetFeatureRequest) (*http.Request, error) {
	if strings.TrimSpace(r.ServiceURL) == "" {
		return nil, ErrMissingServiceURL
	}
	if strings.TrimSpace(r.TypeName) == "" {
		return nil, ErrMissingTypeName
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.ServiceURL, strings.NewReader(Body(r)))
	if err != nil {
		return nil, fmt.Errorf("wfs: build request for %s: %w", r.ServiceURL, err)
	}
	req.Header.Set("Content-Type", ContentType)
	if m.userAgent != "" {
		req.Header.Set("User-Agent", m.userAgent)
	}
	return req, nil
}

// Body renders the GetFeature document. The filter fragment is wrapped in
// ogc:Filter and omitted entirely when empty.
func Body(r GetFeatureRequest) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<wfs:GetFeature service="WFS" version="` + Version + `"`)
	if r.MaxFeatures > 0 {
		b.WriteString(` maxFeatures="` + strconv.Itoa(r.MaxFeatures) + `"`)
	}
	if r.OutputFormat != "" {
		b.WriteString(` outputFormat="` + attr(r.OutputFormat) + `"`)
	}
	for _, ns := range Namespaces {
		b.WriteString(` xmlns:` + ns.Prefix + `="` + ns.URI + `"`)
	}
	b.WriteString(`>`)
	b.WriteString(`<wfs:Query typeName="` + attr(r.TypeName) + `">`)
	b.WriteString(filter.Document(r.Filter))
	b.WriteString(`</wfs:Query></wfs:GetFeature>`)
	return b.String()
}

var attrEscaper = strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `>`, "&gt;", `"`, "&quot;")

func attr(s string) string {
	return attrEscaper.Replace(s)
}
