package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"borehole-workers/internal/common/config"
	"borehole-workers/internal/common/logger"
	"borehole-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var staticConfig = []config.EndpointConfig{
	{URL: "http://nvclwebservices.csiro.au/geoserver/wfs", ResourceType: "WFS", TypeName: "gsmlp:BoreholeView"},
	{URL: "http://nvclwebservices.csiro.au/geoserver/wfs", ResourceType: "WFS", TypeName: "nvcl:ScannedBorehole"},
	{URL: "https://gs.geoscience.nsw.gov.au/geoserver/wfs", ResourceType: "WFS", TypeName: "gsmlp:BoreholeView"},
	{URL: "https://gs.geoscience.nsw.gov.au/geoserver/wms", ResourceType: "WMS", TypeName: "gsmlp:BoreholeView"},
}

// countingSource records how often the backend is reached.
type countingSource struct {
	calls int
	eps   []models.Endpoint
	err   error
}

func (c *countingSource) Endpoints(_ context.Context, _ Filter) ([]models.Endpoint, error) {
	c.calls++
	return c.eps, c.err
}

func newFakeElasticsearch(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client
}

// ==========================
// Filter Tests
// ==========================

func TestNormalizeHost(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"nvclwebservices.csiro.au", "nvclwebservices.csiro.au"},
		{"http://NVCLWebServices.csiro.au/geoserver/wfs", "nvclwebservices.csiro.au"},
		{"https://gs.geoscience.nsw.gov.au:8443/wfs", "gs.geoscience.nsw.gov.au"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeHost(tt.in), tt.in)
	}
}

func TestParseHost(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "empty", in: "", want: ""},
		{name: "bare host", in: " GS.geoscience.nsw.gov.au ", want: "gs.geoscience.nsw.gov.au"},
		{name: "url", in: "https://gs.geoscience.nsw.gov.au/geoserver/wfs", want: "gs.geoscience.nsw.gov.au"},
		{name: "scheme only", in: "http://", wantErr: true},
		{name: "bad escape", in: "http://%zz/wfs", wantErr: true},
		{name: "missing scheme", in: "://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHost(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidHost))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatches_InvalidHostMatchesNothing(t *testing.T) {
	ep := models.Endpoint{URL: "http://nvclwebservices.csiro.au/geoserver/wfs", ResourceType: "WFS"}
	assert.True(t, Matches(ep, Filter{ResourceType: "WFS"}))
	assert.False(t, Matches(ep, Filter{ResourceType: "WFS", Host: "http://"}))
}

func TestStaticSource_InvalidHost(t *testing.T) {
	eps, err := NewStaticSource(staticConfig).Endpoints(context.Background(), Filter{ResourceType: "WFS", Host: "http://"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidHost))
	assert.Empty(t, eps)
}

func TestStaticSource_Filters(t *testing.T) {
	src := NewStaticSource(staticConfig)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{name: "all wfs", filter: Filter{ResourceType: "WFS"}, want: 3},
		{name: "resource type is case-insensitive", filter: Filter{ResourceType: "wfs"}, want: 3},
		{name: "typename", filter: Filter{ResourceType: "WFS", TypeName: "nvcl:ScannedBorehole"}, want: 1},
		{name: "host from url", filter: Filter{ResourceType: "WFS", Host: "https://gs.geoscience.nsw.gov.au/x"}, want: 1},
		{name: "unknown host", filter: Filter{ResourceType: "WFS", Host: "example.org"}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eps, err := src.Endpoints(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, eps, tt.want)
		})
	}
}

// ==========================
// PostgreSQL Source Tests
// ==========================

func TestPostgresSource_Endpoints(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"url", "resource_type", "type_name"}).
		AddRow("http://nvclwebservices.csiro.au/geoserver/wfs", "WFS", "gsmlp:BoreholeView").
		AddRow("https://gs.geoscience.nsw.gov.au/geoserver/wfs", "WFS", "gsmlp:BoreholeView")

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "online_resources"`)).
		WithArgs("WFS", "gsmlp:BoreholeView").
		WillReturnRows(rows)

	src := NewPostgresSource(db, "online_resources")
	eps, err := src.Endpoints(context.Background(), Filter{
		ResourceType: "WFS",
		TypeName:     "gsmlp:BoreholeView",
		Host:         "nvclwebservices.csiro.au",
	})

	require.NoError(t, err)
	require.Len(t, eps, 1)
	assert.Equal(t, "http://nvclwebservices.csiro.au/geoserver/wfs", eps[0].URL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))

	_, err = NewPostgresSource(db, "online_resources").Endpoints(context.Background(), Filter{ResourceType: "WFS"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCatalogUnavailable))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPostgresSource_InvalidHostSkipsQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewPostgresSource(db, "online_resources").Endpoints(context.Background(), Filter{ResourceType: "WFS", Host: "://"})
	assert.True(t, errors.Is(err, ErrInvalidHost))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_QuotesTable(t *testing.T) {
	src := NewPostgresSource(nil, `resources"; DROP TABLE x; --`)
	assert.Contains(t, src.query, `"resources""; DROP TABLE x; --"`)
}

// ==========================
// Elasticsearch Source Tests
// ==========================

func TestElasticsearchSource_Endpoints(t *testing.T) {
	var path string
	client := newFakeElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		fmt.Fprint(w, `{"hits":{"hits":[`+
			`{"_source":{"url":"http://nvclwebservices.csiro.au/geoserver/wfs","resource_type":"WFS","type_name":"nvcl:ScannedBorehole"}},`+
			`{"_source":{"url":"https://gs.geoscience.nsw.gov.au/geoserver/wfs","resource_type":"WFS","type_name":"nvcl:ScannedBorehole"}}`+
			`]}}`)
	})

	src := NewElasticsearchSource(client, "online-resources")
	eps, err := src.Endpoints(context.Background(), Filter{ResourceType: "WFS", TypeName: "nvcl:ScannedBorehole"})

	require.NoError(t, err)
	assert.Equal(t, "/online-resources/_search", path)
	require.Len(t, eps, 2)
	assert.Equal(t, "nvcl:ScannedBorehole", eps[1].TypeName)
}

func TestElasticsearchSource_ErrorStatus(t *testing.T) {
	client := newFakeElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"type":"index_not_found_exception"}}`)
	})

	_, err := NewElasticsearchSource(client, "missing").Endpoints(context.Background(), Filter{ResourceType: "WFS"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCatalogUnavailable))
}

// ==========================
// Cache Tests
// ==========================

func TestCachedSource_ReadThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	backend := &countingSource{eps: []models.Endpoint{{URL: "http://a.example.org/wfs", ResourceType: "WFS"}}}
	src := NewCachedSource(backend, rdb, time.Minute, logger.NewTestLogger(t))
	f := Filter{ResourceType: "WFS"}

	first, err := src.Endpoints(context.Background(), f)
	require.NoError(t, err)
	second, err := src.Endpoints(context.Background(), f)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, backend.calls)
	assert.True(t, mr.Exists(CacheKey(f)))

	mr.FastForward(2 * time.Minute)
	_, err = src.Endpoints(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.calls)
}

func TestCachedSource_RedisDownFallsThrough(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	f := Filter{ResourceType: "WFS", Host: "a.example.org"}

	mock.ExpectGet(CacheKey(f)).SetErr(errors.New("dial tcp: connection refused"))
	mock.Regexp().ExpectSet(CacheKey(f), `.*`, time.Minute).SetErr(errors.New("dial tcp: connection refused"))

	backend := &countingSource{eps: []models.Endpoint{{URL: "http://a.example.org/wfs", ResourceType: "WFS"}}}
	eps, err := NewCachedSource(backend, rdb, time.Minute, nil).Endpoints(context.Background(), f)

	require.NoError(t, err)
	assert.Len(t, eps, 1)
	assert.Equal(t, 1, backend.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedSource_BackendErrorNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	backend := &countingSource{err: fmt.Errorf("%w: timeout", ErrCatalogUnavailable)}
	f := Filter{ResourceType: "WFS"}

	_, err := NewCachedSource(backend, rdb, time.Minute, nil).Endpoints(context.Background(), f)
	assert.True(t, errors.Is(err, ErrCatalogUnavailable))
	assert.False(t, mr.Exists(CacheKey(f)))
}

func TestCachedSource_InvalidHostSkipsCacheAndBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	backend := &countingSource{eps: []models.Endpoint{{URL: "http://a.example.org/wfs", ResourceType: "WFS"}}}
	_, err := NewCachedSource(backend, rdb, time.Minute, nil).Endpoints(context.Background(), Filter{ResourceType: "WFS", Host: "http://%zz/wfs"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidHost))
	assert.Equal(t, 0, backend.calls)
	assert.Empty(t, mr.Keys())
	assert.False(t, mr.Exists(CacheKey(Filter{ResourceType: "WFS"})))
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "catalog:endpoints:WFS:nvcl:ScannedBorehole:a.example.org",
		CacheKey(Filter{ResourceType: "wfs", TypeName: "nvcl:ScannedBorehole", Host: "http://A.example.org/wfs"}))
}
