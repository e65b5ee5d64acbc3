package elasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"spatools/api/models"
	pt "spatools/api/models/constants/peak-type"
	"spatools/api/models/indexes"

	"github.com/Jeffail/gabs"
	es7 "github.com/elastic/go-elasticsearch/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clusterInfo answers the client's product check on GET /.
const clusterInfo = `{"version":{"number":"7.17.7","build_flavor":"default"},"tagline":"You Know, for Search"}`

type recordingTransport struct {
	bodies    []string
	paths     []string
	responses []string
	status    int
}

func (t *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method == http.MethodGet && req.URL.Path == "/" {
		return jsonResponse(http.StatusOK, clusterInfo), nil
	}

	body := ""
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		body = string(b)
	}
	t.bodies = append(t.bodies, body)
	t.paths = append(t.paths, req.URL.Path)

	response := `{}`
	if len(t.responses) > 0 {
		response, t.responses = t.responses[0], t.responses[1:]
	}
	status := t.status
	if status == 0 {
		status = http.StatusOK
	}

	return jsonResponse(status, response), nil
}

func jsonResponse(status int, body string) *http.Response {
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

func newTestClient(t *testing.T, transport *recordingTransport) *es7.Client {
	t.Helper()
	client, err := es7.NewClient(es7.Config{
		Addresses: []string{"http://localhost:9200"},
		Transport: transport,
	})
	require.NoError(t, err)
	return client
}

func testConfig(chunk int) *models.Config {
	cfg := &models.Config{}
	cfg.Api.QueryChunkSize = chunk
	return cfg
}

const genotypeHits = `{"hits":{"total":{"value":1},"hits":[{"_source":{
	"sampleCode":"S1","batch":"b1","locusCode":"chr1:10","refseq":"chr1","position":10,
	"depths":{"A":12,"C":0,"G":30,"T":0},"observed":["A","G"],
	"call":"G","quality":0.7,"filename":"calls.vcf","createdTime":"2024-03-01T10:00:00Z"}}]}}`

func TestGetGenotypesBySampleCodes_Chunks(t *testing.T) {
	transport := &recordingTransport{responses: []string{genotypeHits, genotypeHits, genotypeHits}}
	client := newTestClient(t, transport)

	genotypes, err := GetGenotypesBySampleCodes(context.Background(), testConfig(2), client,
		[]string{"S1", "S2", "S3", "S4", "S5"}, []string{"chr1:10"}, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"/genotypes/_search", "/genotypes/_search", "/genotypes/_search"}, transport.paths)
	assert.Len(t, genotypes, 3)

	g := genotypes[0]
	assert.Equal(t, "S1", g.SampleCode)
	assert.Equal(t, 10, g.Position)
	assert.Equal(t, indexes.Depths{A: 12, G: 30}, g.Depths)
	assert.Equal(t, []string{"A", "G"}, g.Observed)
	assert.Equal(t, "G", string(g.Call))
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), g.CreatedTime.UTC())

	first, err := gabs.ParseJSON([]byte(transport.bodies[0]))
	require.NoError(t, err)
	codes, err := first.Path("query.bool.filter").Index(0).Path("terms.sampleCode").Children()
	require.NoError(t, err)
	assert.Len(t, codes, 2)

	last, err := gabs.ParseJSON([]byte(transport.bodies[2]))
	require.NoError(t, err)
	codes, err = last.Path("query.bool.filter").Index(0).Path("terms.sampleCode").Children()
	require.NoError(t, err)
	assert.Len(t, codes, 1)
}

func TestGetPeaksBySampleIds(t *testing.T) {
	transport := &recordingTransport{responses: []string{`{"hits":{"hits":[
		{"_source":{"sampleId":1,"assayId":2,"markerId":3,"alleleId":4,"value":150,"size":150.5,"height":900,"type":"bin"}},
		{"_source":{"sampleId":1,"assayId":2,"markerId":3,"alleleId":5,"value":148,"size":148.4,"height":120.5,"type":"stutter"}}
	]}}`}}
	client := newTestClient(t, transport)

	peaks, err := GetPeaksBySampleIds(context.Background(), testConfig(250), client, []int64{1}, []int64{3})
	require.NoError(t, err)
	require.Len(t, peaks, 2)
	assert.Equal(t, int64(3), peaks[0].MarkerId)
	assert.Equal(t, 900.0, peaks[0].Height)
	assert.Equal(t, pt.Stutter, peaks[1].Type)

	assert.Equal(t, []string{"/peaks/_search"}, transport.paths)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(transport.bodies[0]), &body))
	assert.Equal(t, []interface{}{
		map[string]interface{}{"markerId": "asc"},
		map[string]interface{}{"sampleId": "asc"},
		map[string]interface{}{"height": "desc"},
	}, body["sort"])
}

func TestSearch_ErrorStatus(t *testing.T) {
	transport := &recordingTransport{status: http.StatusBadRequest, responses: []string{`{"error":"bad"}`}}
	client := newTestClient(t, transport)

	_, err := GetPeaksBySampleIds(context.Background(), testConfig(250), client, []int64{1}, nil)
	assert.Error(t, err)
	assert.Equal(t, []string{"/peaks/_search"}, transport.paths)
}

func TestGenotypeQuery(t *testing.T) {
	t.Run("should match everything without filters", func(t *testing.T) {
		q := genotypeQuery(nil, nil, "")
		assert.Empty(t, q["bool"].(map[string]interface{})["filter"])
	})

	t.Run("should combine sample, locus and batch filters", func(t *testing.T) {
		q := genotypeQuery([]string{"S1"}, []string{"L1", "L2"}, "b7")
		filters := q["bool"].(map[string]interface{})["filter"].([]map[string]interface{})
		require.Len(t, filters, 3)
		assert.Equal(t, []string{"L1", "L2"}, filters[1]["terms"].(map[string]interface{})["locusCode"])
		assert.Equal(t, "b7", filters[2]["term"].(map[string]interface{})["batch"])
	})
}

func TestParseCount(t *testing.T) {
	n, err := parseCount([]byte(`{"count":42,"_shards":{}}`))
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = parseCount([]byte(`{}`))
	assert.Error(t, err)
}

func TestParseBuckets(t *testing.T) {
	parsed, err := gabs.ParseJSON([]byte(`{"aggregations":{"items":{"buckets":[
		{"key":"S1","doc_count":10},{"key":"S2","doc_count":4}]}}}`))
	require.NoError(t, err)

	buckets, err := parseBuckets(parsed)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"S1": 10, "S2": 4}, buckets)

	empty, _ := gabs.ParseJSON([]byte(`{}`))
	buckets, err = parseBuckets(empty)
	require.NoError(t, err)
	assert.Empty(t, buckets)
}

func TestCountDocuments(t *testing.T) {
	transport := &recordingTransport{responses: []string{`{"count":7}`}}
	client := newTestClient(t, transport)

	n, err := CountDocuments(context.Background(), testConfig(250), client, indexes.GenotypesIndex, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, []string{"/genotypes/_count"}, transport.paths)
}
