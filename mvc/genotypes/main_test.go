package genotypes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"spatools/api/contexts"
	"spatools/api/models"
	"spatools/api/models/dtos"
	"spatools/api/services/metrics"

	es7 "github.com/elastic/go-elasticsearch/v7"
	"github.com/labstack/echo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedTransport answers every elasticsearch query with the same body.
type fixedTransport struct {
	body   string
	status int

	mu    sync.Mutex
	paths []string
}

func (f *fixedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// product check
	if req.Method == http.MethodGet && req.URL.Path == "/" {
		return response(http.StatusOK, `{"version":{"number":"7.17.7","build_flavor":"default"},"tagline":"You Know, for Search"}`), nil
	}

	f.mu.Lock()
	f.paths = append(f.paths, req.URL.Path)
	f.mu.Unlock()

	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	return response(status, f.body), nil
}

func response(status int, body string) *http.Response {
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("X-Elastic-Product", "Elasticsearch")
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newContext(t *testing.T, method, target, body string, transport http.RoundTripper) (*contexts.SpaContext, *httptest.ResponseRecorder) {
	t.Helper()

	cfg := &models.Config{}
	cfg.Calling.MinTotalDepth = 25
	cfg.Calling.AmbiguityQuality = 0.05
	cfg.Api.QueryChunkSize = 250

	var es *es7.Client
	if transport != nil {
		var err error
		es, err = es7.NewClient(es7.Config{Addresses: []string{"http://localhost:9200"}, Transport: transport})
		require.NoError(t, err)
	}

	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()

	return &contexts.SpaContext{
		Context:   e.NewContext(req, rec),
		Es7Client: es,
		Config:    cfg,
		Metrics:   metrics.New(prometheus.NewRegistry()),
	}, rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestGenotypesCall(t *testing.T) {
	t.Run("should call the dominant base", func(t *testing.T) {
		gc, rec := newContext(t, http.MethodPost, "/genotypes/call", `{"depths":{"A":10,"C":30,"G":0,"T":0}}`, nil)
		require.NoError(t, GenotypesCall(gc))

		assert.Equal(t, http.StatusOK, rec.Code)
		res := decode[dtos.BasecallResponseDto](t, rec)
		assert.Equal(t, "C", res.Symbol)
		assert.Equal(t, 0.75, res.Quality)
	})

	t.Run("should honour per request options", func(t *testing.T) {
		gc, rec := newContext(t, http.MethodPost, "/genotypes/call", `{"depths":{"A":10,"C":10},"min_total_depth":50}`, nil)
		require.NoError(t, GenotypesCall(gc))

		res := decode[dtos.BasecallResponseDto](t, rec)
		assert.Equal(t, "-", res.Symbol)
		assert.Equal(t, 0.5, res.Quality)
	})

	t.Run("should refuse negative depths", func(t *testing.T) {
		gc, rec := newContext(t, http.MethodPost, "/genotypes/call", `{"depths":{"A":-1}}`, nil)
		require.NoError(t, GenotypesCall(gc))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should refuse an ambiguity quality above one", func(t *testing.T) {
		gc, rec := newContext(t, http.MethodPost, "/genotypes/call", `{"depths":{"A":40},"ambiguity_quality":2}`, nil)
		require.NoError(t, GenotypesCall(gc))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGenotypesCallBatch(t *testing.T) {
	gc, rec := newContext(t, http.MethodPost, "/genotypes/call/batch",
		`{"depths":[{"A":30},{"A":10,"C":10,"G":10,"T":10},{"T":3}],"ambiguity_quality":0.25}`, nil)
	require.NoError(t, GenotypesCallBatch(gc))

	assert.Equal(t, http.StatusOK, rec.Code)
	res := decode[dtos.BasecallBatchResponseDto](t, rec)
	require.Equal(t, 3, res.Count)
	assert.Equal(t, []dtos.BasecallResponseDto{
		{Symbol: "A", Quality: 1},
		{Symbol: "N", Quality: 0.25},
		{Symbol: "-", Quality: 1},
	}, res.Results)

	gc, rec = newContext(t, http.MethodPost, "/genotypes/call/batch", `{"depths":[]}`, nil)
	require.NoError(t, GenotypesCallBatch(gc))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

const genotypeHits = `{"hits":{"hits":[
	{"_source":{"sampleCode":"S1","locusCode":"L1","refseq":"chr1","position":10,"depths":{"A":30},"call":"A","quality":1}},
	{"_source":{"sampleCode":"S1","locusCode":"L2","refseq":"chr1","position":20,"depths":{"A":1},"call":"-","quality":1}},
	{"_source":{"sampleCode":"S2","locusCode":"L1","refseq":"chr1","position":10,"depths":{"A":30},"call":"A","quality":1}},
	{"_source":{"sampleCode":"S2","locusCode":"L2","refseq":"chr1","position":20,"depths":{"G":30},"call":"G","quality":1}}
]}}`

func TestGenotypesGetBySampleId(t *testing.T) {
	transport := &fixedTransport{body: genotypeHits}
	gc, rec := newContext(t, http.MethodGet, "/genotypes/get/by/sampleId?ids=S1,S2", "", transport)
	gc.SampleIds = []string{"S1", "S2"}

	require.NoError(t, GenotypesGetBySampleId(gc))
	assert.Equal(t, http.StatusOK, rec.Code)

	res := decode[dtos.GenotypesResponseDTO](t, rec)
	assert.Equal(t, 4, res.Count)
	assert.Equal(t, "L2", res.Results[1].LocusCode)
	assert.Equal(t, []string{"/genotypes/_search"}, transport.paths)
}

func TestGenotypesGetBySampleId_Failure(t *testing.T) {
	gc, rec := newContext(t, http.MethodGet, "/genotypes/get/by/sampleId", "", &fixedTransport{body: `{}`, status: http.StatusBadRequest})
	require.NoError(t, GenotypesGetBySampleId(gc))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGenotypesSelect(t *testing.T) {
	t.Run("should keep well called samples and loci", func(t *testing.T) {
		gc, rec := newContext(t, http.MethodGet, "/genotypes/select?sample_qual_threshold=1&marker_qual_threshold=1", "", &fixedTransport{body: genotypeHits})
		require.NoError(t, GenotypesSelect(gc))

		res := decode[dtos.GenotypeSelectionResponseDTO](t, rec)
		assert.Equal(t, []string{"S2"}, res.Samples)
		assert.Equal(t, []string{"L1", "L2"}, res.Loci)
	})

	t.Run("should refuse thresholds outside the unit interval", func(t *testing.T) {
		gc, rec := newContext(t, http.MethodGet, "/genotypes/select?sample_qual_threshold=1.5", "", &fixedTransport{body: genotypeHits})
		require.NoError(t, GenotypesSelect(gc))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should refuse a non numeric threshold", func(t *testing.T) {
		gc, rec := newContext(t, http.MethodGet, "/genotypes/select?marker_qual_threshold=high", "", nil)
		require.NoError(t, GenotypesSelect(gc))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetGenotypesOverview(t *testing.T) {
	transport := &fixedTransport{body: `{"aggregations":{"items":{"buckets":[{"key":"S1","doc_count":3}]}}}`}
	gc, rec := newContext(t, http.MethodGet, "/genotypes/overview", "", transport)
	require.NoError(t, GetGenotypesOverview(gc))

	res := decode[map[string]map[string]int](t, rec)
	assert.Len(t, res, 6)
	assert.Equal(t, map[string]int{"S1": 3}, res["sampleCodes"])
	assert.Len(t, transport.paths, 6)
}
