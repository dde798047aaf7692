// internal/models/endpoint.go
package models

import (
	"net/url"
	"strings"
)

// Endpoint is one online resource advertised by the catalog.
type Endpoint struct {
	URL          string `json:"url"`
	ResourceType string `json:"resourceType"`
	// TypeName is the feature type the endpoint serves, "" when unknown.
	TypeName string `json:"typeName,omitempty"`
}

// Host returns the endpoint's host name, lower-cased, or "" for an unparseable URL.
func (e Endpoint) Host() string {
	u, err := url.Parse(e.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// QueryTask is one request to be executed against one endpoint.
type QueryTask struct {
	Index       int
	Endpoint    Endpoint
	Fragment    string
	MaxFeatures int
}
