package downloadboreholecsv

import (
	"context"

	"borehole-workers/internal/borehole"
	"borehole-workers/internal/models"
	"borehole-workers/internal/workers/borehole/shared"
)

type Input struct {
	shared.CriteriaInput
	ServiceURLs []string `json:"serviceUrls"`
	TSG         bool     `json:"tsg,omitempty"`
}

type Output struct {
	shared.AggregateOutput
	CSV string `json:"csv"`
	// TSG is the file cache the export feeds, set on TSG requests.
	TSG *borehole.TSGAvailability `json:"tsg,omitempty"`
}

type Service interface {
	DownloadCSV(ctx context.Context, req borehole.CSVRequest) (*models.AggregatedResult, error)
	DownloadTSGCSV(ctx context.Context, req borehole.CSVRequest) (*models.AggregatedResult, error)
	TSGDownloadAvailable() borehole.TSGAvailability
}
