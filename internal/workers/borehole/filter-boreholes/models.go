package filterboreholes

import (
	"context"

	"borehole-workers/internal/borehole"
	"borehole-workers/internal/models"
	"borehole-workers/internal/workers/borehole/shared"
)

type Input struct {
	shared.CriteriaInput
	ServiceURL   string `json:"serviceUrl,omitempty"`
	OnlyHylogger bool   `json:"onlyHylogger,omitempty"`
	OutputFormat string `json:"outputFormat,omitempty"`
}

type Output struct {
	shared.AggregateOutput
	Payload string `json:"payload"`
}

// Service is the part of borehole.Service this worker calls.
type Service interface {
	FilterBoreholes(ctx context.Context, req borehole.FilterRequest) (*models.AggregatedResult, error)
}
