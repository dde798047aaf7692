package borehole

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"borehole-workers/internal/catalog"
	"borehole-workers/internal/common/config"
	"borehole-workers/internal/common/logger"
	"borehole-workers/internal/dispatch"
	"borehole-workers/internal/filter"
	"borehole-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type dispatchCall struct {
	endpoints []models.Endpoint
	template  dispatch.Template
}

// fakeDispatcher answers each endpoint from a URL-keyed table; missing URLs fail.
type fakeDispatcher struct {
	mu        sync.Mutex
	calls     []dispatchCall
	responses map[string]string
}

func (f *fakeDispatcher) Dispatch(_ context.Context, eps []models.Endpoint, tmpl dispatch.Template) []models.QueryResult {
	f.mu.Lock()
	f.calls = append(f.calls, dispatchCall{endpoints: eps, template: tmpl})
	f.mu.Unlock()

	out := make([]models.QueryResult, len(eps))
	for i, ep := range eps {
		key := ep.URL + "|" + tmpl.TypeName
		if body, ok := f.responses[key]; ok {
			out[i] = models.QueryResult{Endpoint: ep, Success: true, Payload: body}
			continue
		}
		out[i] = models.QueryResult{Endpoint: ep, Err: &dispatch.EndpointError{URL: ep.URL, Err: errors.New("HTTP 503")}}
	}
	return out
}

type failingCatalog struct{}

func (failingCatalog) Endpoints(context.Context, catalog.Filter) ([]models.Endpoint, error) {
	return nil, catalog.ErrCatalogUnavailable
}

const (
	csiroWFS = "http://nvclwebservices.csiro.au/geoserver/wfs"
	nswWFS   = "https://gs.geoscience.nsw.gov.au/geoserver/wfs"
)

var testCatalog = []config.EndpointConfig{
	{URL: csiroWFS, ResourceType: "WFS", TypeName: "gsmlp:BoreholeView"},
	{URL: csiroWFS, ResourceType: "WFS", TypeName: "nvcl:ScannedBorehole"},
	{URL: nswWFS, ResourceType: "WFS", TypeName: "gsmlp:BoreholeView"},
	{URL: nswWFS, ResourceType: "WFS", TypeName: "nvcl:ScannedBorehole"},
}

var testSettings = Settings{
	ScannedBoreholeTypeName: "nvcl:ScannedBorehole",
	DefaultMaxFeatures:      200,
	TSGServiceMessage:       "TSG files are cached nightly",
}

func scannedDoc(ids ...string) string {
	var b strings.Builder
	b.WriteString(`<wfs:FeatureCollection>`)
	for _, id := range ids {
		b.WriteString(`<nvcl:ScannedBorehole><nvcl:scannedBorehole xlink:href="` + id + `" xlink:title="` + id + `"/></nvcl:ScannedBorehole>`)
	}
	b.WriteString(`</wfs:FeatureCollection>`)
	return b.String()
}

func newService(t *testing.T, d Dispatcher, settings Settings) *Service {
	t.Helper()
	return NewService(catalog.NewStaticSource(testCatalog), d, filter.MustProfile(filter.ProfileGSMLP), settings,
		WithLogger(logger.NewTestLogger(t)))
}

// ==========================
// Hylogger Discovery Tests
// ==========================

func TestDiscoverHyloggerBoreholeIDs(t *testing.T) {
	d := &fakeDispatcher{responses: map[string]string{
		csiroWFS + "|nvcl:ScannedBorehole": scannedDoc("WTB5", "GSDD006"),
		nswWFS + "|nvcl:ScannedBorehole":   scannedDoc("GDDH7", "WTB5"),
	}}
	svc := newService(t, d, testSettings)

	agg, err := svc.DiscoverHyloggerBoreholeIDs(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"WTB5", "GSDD006", "GDDH7"}, agg.Identifiers)
	assert.Equal(t, models.StatusComplete, agg.Status)

	require.Len(t, d.calls, 1)
	call := d.calls[0]
	assert.Len(t, call.endpoints, 2)
	assert.Equal(t, "nvcl:ScannedBorehole", call.template.TypeName)
	assert.Empty(t, call.template.Fragment)
	assert.Zero(t, call.template.MaxFeatures)
}

func TestDiscoverHyloggerBoreholeIDs_HostFilter(t *testing.T) {
	d := &fakeDispatcher{responses: map[string]string{
		nswWFS + "|nvcl:ScannedBorehole": scannedDoc("GDDH7"),
	}}
	svc := newService(t, d, testSettings)

	agg, err := svc.DiscoverHyloggerBoreholeIDs(context.Background(), "https://gs.geoscience.nsw.gov.au/geoserver/wms")
	require.NoError(t, err)
	assert.Equal(t, []string{"GDDH7"}, agg.Identifiers)
	assert.Equal(t, 1, agg.Queried)
}

func TestDiscoverHyloggerBoreholeIDs_NoEndpoints(t *testing.T) {
	svc := newService(t, &fakeDispatcher{}, testSettings)

	agg, err := svc.DiscoverHyloggerBoreholeIDs(context.Background(), "unknown.example.org")
	require.NoError(t, err)
	assert.Equal(t, models.StatusEmpty, agg.Status)
	assert.Empty(t, agg.Identifiers)
}

// ==========================
// Borehole Filter Tests
// ==========================

func TestFilterBoreholes_QueriesEveryBoreholeEndpoint(t *testing.T) {
	d := &fakeDispatcher{responses: map[string]string{
		csiroWFS + "|gsmlp:BoreholeView": `<wfs:FeatureCollection numberOfFeatures="1"/>`,
	}}
	svc := newService(t, d, testSettings)

	agg, err := svc.FilterBoreholes(context.Background(), FilterRequest{
		Criteria: filter.Criteria{BoreholeName: "WTB"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, agg.Queried)
	assert.Equal(t, 1, agg.Failed)
	assert.Equal(t, models.StatusDegraded, agg.Status)
	assert.Contains(t, agg.Payload, `numberOfFeatures="1"`)

	require.Len(t, d.calls, 1)
	tmpl := d.calls[0].template
	assert.Equal(t, "gsmlp:BoreholeView", tmpl.TypeName)
	assert.Equal(t, 200, tmpl.MaxFeatures)
	assert.Contains(t, tmpl.Fragment, "<ogc:PropertyName>gsmlp:name</ogc:PropertyName>")
}

func TestFilterBoreholes_OnlyHyloggerRestrictsToDiscoveredIDs(t *testing.T) {
	d := &fakeDispatcher{responses: map[string]string{
		csiroWFS + "|nvcl:ScannedBorehole": scannedDoc("WTB5", "GSDD006"),
		csiroWFS + "|gsmlp:BoreholeView":   `<wfs:FeatureCollection/>`,
	}}
	svc := newService(t, d, testSettings)

	_, err := svc.FilterBoreholes(context.Background(), FilterRequest{
		ServiceURL:   csiroWFS,
		OnlyHylogger: true,
		MaxFeatures:  50,
	})
	require.NoError(t, err)

	require.Len(t, d.calls, 2)
	assert.Equal(t, "nvcl:ScannedBorehole", d.calls[0].template.TypeName)

	query := d.calls[1]
	assert.Len(t, query.endpoints, 1)
	assert.Equal(t, 50, query.template.MaxFeatures)
	assert.Contains(t, query.template.Fragment, `<ogc:FeatureId fid="gsml.borehole.WTB5"/>`)
	assert.Contains(t, query.template.Fragment, `<ogc:FeatureId fid="gsml.borehole.GSDD006"/>`)
}

func TestFilterBoreholes_OnlyHyloggerErrors(t *testing.T) {
	tests := []struct {
		name       string
		responses  map[string]string
		serviceURL string
		wantErr    error
	}{
		{
			name:       "nothing discovered",
			responses:  map[string]string{csiroWFS + "|nvcl:ScannedBorehole": scannedDoc()},
			serviceURL: csiroWFS,
			wantErr:    ErrNoHyloggerBoreholes,
		},
		{
			name:       "no scanned endpoints",
			responses:  map[string]string{},
			serviceURL: "http://unknown.example.org/wfs",
			wantErr:    ErrNoHyloggerBoreholes,
		},
		{
			name:       "every discovery endpoint failed",
			responses:  map[string]string{},
			serviceURL: csiroWFS,
			wantErr:    ErrDiscoveryFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{responses: tt.responses}
			svc := newService(t, d, testSettings)

			_, err := svc.FilterBoreholes(context.Background(), FilterRequest{ServiceURL: tt.serviceURL, OnlyHylogger: true})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Len(t, d.calls, 1, "borehole endpoints must not be queried")
		})
	}
}

func TestFilterBoreholes_MalformedDate(t *testing.T) {
	d := &fakeDispatcher{}
	svc := newService(t, d, testSettings)

	_, err := svc.FilterBoreholes(context.Background(), FilterRequest{
		Criteria: filter.Criteria{DateOfDrillingStart: "2011/01/01", DateOfDrillingEnd: "2011-02-01"},
	})

	var critErr *filter.CriteriaError
	require.True(t, errors.As(err, &critErr))
	assert.Equal(t, "dateOfDrillingStart", critErr.Field)
	assert.Empty(t, d.calls)
}

func TestFilterBoreholes_OnlyHyloggerMalformedDateSkipsDiscovery(t *testing.T) {
	tests := []struct {
		name      string
		criteria  filter.Criteria
		wantField string
	}{
		{
			name:      "start out of range",
			criteria:  filter.Criteria{DateOfDrillingStart: "2011-13-45", DateOfDrillingEnd: "2011-01-02"},
			wantField: "dateOfDrillingStart",
		},
		{
			name:      "end wrong layout",
			criteria:  filter.Criteria{DateOfDrillingStart: "2011-01-01", DateOfDrillingEnd: "02/01/2011"},
			wantField: "dateOfDrillingEnd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{responses: map[string]string{
				csiroWFS + "|nvcl:ScannedBorehole": scannedDoc("WTB5"),
			}}
			svc := newService(t, d, testSettings)

			_, err := svc.FilterBoreholes(context.Background(), FilterRequest{
				Criteria:     tt.criteria,
				ServiceURL:   csiroWFS,
				OnlyHylogger: true,
			})

			require.Error(t, err)
			assert.True(t, errors.Is(err, filter.ErrMalformedDate), "got %v", err)
			var critErr *filter.CriteriaError
			require.True(t, errors.As(err, &critErr))
			assert.Equal(t, tt.wantField, critErr.Field)
			assert.Len(t, d.calls, 0, "no endpoint may be queried for invalid criteria")
		})
	}
}

func TestFilterBoreholes_InvalidServiceURL(t *testing.T) {
	for _, onlyHylogger := range []bool{false, true} {
		d := &fakeDispatcher{}
		svc := newService(t, d, testSettings)

		_, err := svc.FilterBoreholes(context.Background(), FilterRequest{ServiceURL: "http://", OnlyHylogger: onlyHylogger})

		assert.True(t, errors.Is(err, catalog.ErrInvalidHost), "onlyHylogger=%v: got %v", onlyHylogger, err)
		assert.Empty(t, d.calls)
	}
}

func TestFilterBoreholes_CatalogFailure(t *testing.T) {
	svc := NewService(failingCatalog{}, &fakeDispatcher{}, filter.MustProfile(filter.ProfileGSMLP), testSettings)

	_, err := svc.FilterBoreholes(context.Background(), FilterRequest{})
	assert.True(t, errors.Is(err, catalog.ErrCatalogUnavailable))
}

func TestFilterBoreholes_OmitGeometrySetting(t *testing.T) {
	d := &fakeDispatcher{}
	settings := testSettings
	settings.OmitGeometry = true
	svc := newService(t, d, settings)

	box := &filter.BBox{SRS: "EPSG:4326", Lower: [2]float64{110, -45}, Upper: [2]float64{155, -10}}
	_, err := svc.FilterBoreholes(context.Background(), FilterRequest{Criteria: filter.Criteria{BBox: box}})
	require.NoError(t, err)

	require.Len(t, d.calls, 1)
	assert.NotContains(t, d.calls[0].template.Fragment, "gsmlp:shape")
}

// ==========================
// CSV Export Tests
// ==========================

func TestDownloadCSV(t *testing.T) {
	d := &fakeDispatcher{responses: map[string]string{
		csiroWFS + "|gsmlp:BoreholeView": "id,name\n1,WTB5\n",
		nswWFS + "|gsmlp:BoreholeView":   "id,name\n",
	}}
	svc := newService(t, d, testSettings)

	agg, err := svc.DownloadCSV(context.Background(), CSVRequest{
		ServiceURLs: []string{csiroWFS, "", nswWFS, "http://down.example.org/wfs"},
	})
	require.NoError(t, err)

	assert.Equal(t, "id,name\n1,WTB5\n", agg.Payload)
	assert.Equal(t, 3, agg.Queried)
	assert.Equal(t, 1, agg.Failed)
	assert.Equal(t, "csv", d.calls[0].template.OutputFormat)
}

func TestDownloadCSV_NoServiceURLs(t *testing.T) {
	svc := newService(t, &fakeDispatcher{}, testSettings)

	agg, err := svc.DownloadCSV(context.Background(), CSVRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusEmpty, agg.Status)
}

// ==========================
// TSG Export Tests
// ==========================

func TestTSGDownloadAvailable(t *testing.T) {
	svc := newService(t, &fakeDispatcher{}, testSettings)
	status := svc.TSGDownloadAvailable()
	assert.False(t, status.Available)
	assert.Equal(t, "TSG files download is not ready.", status.Message)

	settings := testSettings
	settings.TSGCacheURL = "https://tsg.example.org/cache/"
	status = newService(t, &fakeDispatcher{}, settings).TSGDownloadAvailable()
	assert.True(t, status.Available)
	assert.Equal(t, "https://tsg.example.org/cache/", status.URL)
	assert.Equal(t, "TSG files are cached nightly", status.Message)
}

func TestDownloadTSGCSV(t *testing.T) {
	d := &fakeDispatcher{responses: map[string]string{csiroWFS + "|gsmlp:BoreholeView": "id\nWTB5\n"}}

	_, err := newService(t, d, testSettings).DownloadTSGCSV(context.Background(), CSVRequest{ServiceURLs: []string{csiroWFS}})
	assert.True(t, errors.Is(err, ErrTSGUnavailable))
	assert.Contains(t, err.Error(), "TSG files download is not ready.")
	assert.Empty(t, d.calls)

	settings := testSettings
	settings.TSGCacheURL = "https://tsg.example.org/cache/"
	agg, err := newService(t, d, settings).DownloadTSGCSV(context.Background(), CSVRequest{ServiceURLs: []string{csiroWFS}})
	require.NoError(t, err)
	assert.Equal(t, "id\nWTB5\n", agg.Payload)
}

func TestSettingsFromConfig(t *testing.T) {
	s := SettingsFromConfig(
		config.BoreholeConfig{BoreholeTypeName: "gsml:Borehole", ScannedBoreholeTypeName: "nvcl:ScannedBorehole", OmitGeometry: true},
		config.DispatchConfig{DefaultMaxFeatures: 500},
	)
	assert.Equal(t, "gsml:Borehole", s.BoreholeTypeName)
	assert.True(t, s.OmitGeometry)
	assert.Equal(t, 500, s.DefaultMaxFeatures)
}
