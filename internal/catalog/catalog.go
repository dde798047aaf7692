// Package catalog supplies the online-resource endpoints a query is sent to.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"borehole-workers/internal/common/config"
	"borehole-workers/internal/models"
)

var (
	// ErrCatalogUnavailable wraps every backend failure.
	ErrCatalogUnavailable = errors.New("endpoint catalog unavailable")
	// ErrInvalidHost is returned for a host filter with no usable hostname.
	ErrInvalidHost = errors.New("invalid host filter")
)

// Filter selects endpoints. Empty fields match everything except
// ResourceType, which is always compared.
type Filter struct {
	ResourceType string
	TypeName     string
	// Host is a hostname or a service URL whose hostname is used.
	Host string
}

// Validate rejects a Host that is set but has no parseable hostname.
func (f Filter) Validate() error {
	if _, err := ParseHost(f.Host); err != nil {
		return err
	}
	return nil
}

type Source interface {
	Endpoints(ctx context.Context, f Filter) ([]models.Endpoint, error)
}

// Matches reports whether ep satisfies f.
func Matches(ep models.Endpoint, f Filter) bool {
	if !strings.EqualFold(ep.ResourceType, f.ResourceType) {
		return false
	}
	if f.TypeName != "" && ep.TypeName != f.TypeName {
		return false
	}
	h, err := ParseHost(f.Host)
	if err != nil {
		return false
	}
	return h == "" || ep.Host() == h
}

// ParseHost returns the lowercase hostname of a URL or bare host, "" for
// an empty input and ErrInvalidHost when no hostname can be extracted.
func ParseHost(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	raw := s
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidHost, raw)
	}
	return strings.ToLower(u.Hostname()), nil
}

// NormalizeHost is ParseHost with invalid hosts mapped to "".
func NormalizeHost(s string) string {
	h, _ := ParseHost(s)
	return h
}

func apply(eps []models.Endpoint, f Filter) []models.Endpoint {
	out := make([]models.Endpoint, 0, len(eps))
	for _, ep := range eps {
		if Matches(ep, f) {
			out = append(out, ep)
		}
	}
	return out
}

// StaticSource serves the endpoints listed in configuration.
type StaticSource struct {
	endpoints []models.Endpoint
}

func NewStaticSource(cfg []config.EndpointConfig) *StaticSource {
	eps := make([]models.Endpoint, 0, len(cfg))
	for _, c := range cfg {
		eps = append(eps, models.Endpoint{URL: c.URL, ResourceType: c.ResourceType, TypeName: c.TypeName})
	}
	return &StaticSource{endpoints: eps}
}

func (s *StaticSource) Endpoints(_ context.Context, f Filter) ([]models.Endpoint, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return apply(s.endpoints, f), nil
}
