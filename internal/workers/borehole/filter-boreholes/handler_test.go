package filterboreholes

import (
	"context"
	"errors"
	"testing"
	"time"

	"borehole-workers/internal/borehole"
	"borehole-workers/internal/common/config"
	stderrors "borehole-workers/internal/common/errors"
	"borehole-workers/internal/common/logger"
	"borehole-workers/internal/filter"
	"borehole-workers/internal/models"
	"borehole-workers/internal/workers/borehole/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Service Implementation
// ==========================

type MockService struct {
	mock.Mock
}

func (m *MockService) FilterBoreholes(ctx context.Context, req borehole.FilterRequest) (*models.AggregatedResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AggregatedResult), args.Error(1)
}

// ==========================
// Test Helpers
// ==========================

func newTestHandler(t *testing.T, svc Service) *Handler {
	h, err := NewHandler(HandlerOptions{
		CustomConfig: &shared.Config{Enabled: true, MaxJobsActive: 5, Timeout: 30 * time.Second},
		Service:      svc,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

// ==========================
// Handler Creation Tests
// ==========================

func TestHandler_NewHandler(t *testing.T) {
	tests := []struct {
		name    string
		opts    HandlerOptions
		wantErr string
	}{
		{
			name: "defaults from app config",
			opts: HandlerOptions{AppConfig: &config.Config{}, Service: &MockService{}},
		},
		{
			name:    "missing service",
			opts:    HandlerOptions{AppConfig: &config.Config{}},
			wantErr: "service is required",
		},
		{
			name: "invalid timeout",
			opts: HandlerOptions{
				CustomConfig: &shared.Config{Enabled: true, MaxJobsActive: 1},
				Service:      &MockService{},
			},
			wantErr: "timeout must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHandler(tt.opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, h.Config())
		})
	}
}

// ==========================
// Execute Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	svc := &MockService{}
	svc.On("FilterBoreholes", mock.Anything, mock.MatchedBy(func(req borehole.FilterRequest) bool {
		return req.ServiceURL == "http://nvclwebservices.csiro.au/geoserver/wfs" &&
			req.Criteria.BoreholeName == "WTB" &&
			req.OnlyHylogger &&
			req.MaxFeatures == 50
	})).Return(&models.AggregatedResult{
		Payload: "<wfs:FeatureCollection/>\n",
		Queried: 2,
		Failed:  1,
		Status:  models.StatusDegraded,
	}, nil)

	h := newTestHandler(t, svc)
	input := &Input{
		CriteriaInput: shared.CriteriaInput{BoreholeName: "WTB", MaxFeatures: 50},
		ServiceURL:    "http://nvclwebservices.csiro.au/geoserver/wfs",
		OnlyHylogger:  true,
	}

	out, err := h.Execute(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, models.StatusDegraded, out.Status)
	assert.Equal(t, 2, out.EndpointCount)
	assert.Equal(t, 1, out.FailedCount)
	assert.Equal(t, "<wfs:FeatureCollection/>\n", out.Payload)
	svc.AssertExpectations(t)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		agg      *models.AggregatedResult
		err      error
		wantCode stderrors.ErrorCode
	}{
		{
			name:     "no endpoints registered",
			agg:      &models.AggregatedResult{Status: models.StatusEmpty},
			wantCode: stderrors.ErrCodeNoDataAvailable,
		},
		{
			name:     "malformed date",
			err:      &filter.CriteriaError{Field: "dateOfDrillingStart", Value: "2011-13-40"},
			wantCode: stderrors.ErrCodeInvalidFilterCriteria,
		},
		{
			name:     "no hylogger boreholes",
			err:      borehole.ErrNoHyloggerBoreholes,
			wantCode: stderrors.ErrCodeNoHyloggerBoreholes,
		},
		{
			name:     "unexpected",
			err:      errors.New("boom"),
			wantCode: stderrors.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockService{}
			if tt.err != nil {
				svc.On("FilterBoreholes", mock.Anything, mock.Anything).Return(nil, tt.err)
			} else {
				svc.On("FilterBoreholes", mock.Anything, mock.Anything).Return(tt.agg, nil)
			}

			out, err := newTestHandler(t, svc).Execute(context.Background(), &Input{})

			assert.Nil(t, out)
			stdErr, ok := stderrors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, stdErr.Code)
		})
	}
}

// ==========================
// Input Tests
// ==========================

func TestInput_Decode(t *testing.T) {
	var input Input
	err := shared.DecodeVariables(map[string]interface{}{
		"serviceUrl":   "http://geology.data.nt.gov.au/geoserver/wfs",
		"custodian":    "NTGS",
		"onlyHylogger": true,
		"outputFormat": "csv",
	}, TaskType, &input)

	require.NoError(t, err)
	assert.Equal(t, "NTGS", input.Custodian)
	assert.True(t, input.OnlyHylogger)
	assert.Equal(t, "csv", input.OutputFormat)
}

func TestInput_DecodeRejectsWrongTypes(t *testing.T) {
	var input Input
	err := shared.DecodeVariables(map[string]interface{}{"onlyHylogger": "yes"}, TaskType, &input)

	stdErr, ok := stderrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeInvalidInput, stdErr.Code)
}
