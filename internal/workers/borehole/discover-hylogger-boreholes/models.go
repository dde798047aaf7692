package discoverhyloggerboreholes

import (
	"context"

	"borehole-workers/internal/models"
	"borehole-workers/internal/workers/borehole/shared"
)

type Input struct {
	ServiceURL string `json:"serviceUrl,omitempty"`
}

type Output struct {
	shared.AggregateOutput
	BoreholeIDs []string `json:"boreholeIds"`
}

type Service interface {
	DiscoverHyloggerBoreholeIDs(ctx context.Context, serviceURL string) (*models.AggregatedResult, error)
}
