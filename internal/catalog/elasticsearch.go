package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"borehole-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

// maxCatalogHits bounds one catalog search; registries hold a few hundred resources.
const maxCatalogHits = 1000

// ElasticsearchSource searches an index of online resource documents
// ({"url", "resource_type", "type_name"}).
type ElasticsearchSource struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchSource(client *elasticsearch.Client, index string) *ElasticsearchSource {
	return &ElasticsearchSource{client: client, index: index}
}

type resourceDoc struct {
	URL          string `json:"url"`
	ResourceType string `json:"resource_type"`
	TypeName     string `json:"type_name"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source resourceDoc `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ElasticsearchSource) Endpoints(ctx context.Context, f Filter) ([]models.Endpoint, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	must := []map[string]interface{}{
		{"match": map[string]interface{}{"resource_type": f.ResourceType}},
	}
	if f.TypeName != "" {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"type_name": f.TypeName}})
	}
	query := map[string]interface{}{
		"query": map[string]interface{}{"bool": map[string]interface{}{"filter": must}},
		"sort":  []string{"_doc"},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("encode catalog query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(&buf),
		s.client.Search.WithSize(maxCatalogHits),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: search failed: %s", ErrCatalogUnavailable, res.Status())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrCatalogUnavailable, err)
	}

	eps := make([]models.Endpoint, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		eps = append(eps, models.Endpoint{
			URL:          h.Source.URL,
			ResourceType: h.Source.ResourceType,
			TypeName:     h.Source.TypeName,
		})
	}
	return apply(eps, f), nil
}
