package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/engine"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/facility"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/mesh"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/store"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/pkg/chat"
)

type stubChat struct {
	resp *chat.Response
	err  error
}

func (c stubChat) Ask(context.Context, string) (*chat.Response, error) {
	return c.resp, c.err
}

func testSnapshot() *engine.Snapshot {
	records := []facility.Record{
		{ID: "f1", Name: "Ridge Hospital", City: "Accra", Region: "Greater Accra", Type: "hospital",
			Lat: facility.Float(5.56), Lon: facility.Float(-0.20), Specialties: []string{"Cardiology"}},
		{ID: "f2", Name: "Korle Bu Teaching Hospital", City: "Accra", Region: "Greater Accra", Type: "hospital",
			Lat: facility.Float(5.54), Lon: facility.Float(-0.23), Specialties: []string{"Oncology"},
			Capabilities: []string{"ICU"}},
		{ID: "f3", Name: "Tamale Teaching Hospital", City: "Tamale", Region: "Northern", Type: "hospital",
			Lat: facility.Float(9.40), Lon: facility.Float(-0.85)},
		{ID: "f4", Name: "Bolgatanga Clinic", City: "Bolgatanga", Region: "Upper East", Type: "clinic"},
	}
	analysis := &store.Analysis{
		CoverageGrid: []mesh.CoverageSample{
			{Lat: 7.0, Lon: -1.0, CoverageIndex: 0.1, FacilityCount: 1},
			{Lat: 7.25, Lon: -1.0, CoverageIndex: 0.7, FacilityCount: 7},
		},
		MedicalDeserts: []store.Desert{{City: "Bole", Lat: 9.03, Lon: -2.48}},
	}
	return engine.NewSnapshot(records, analysis, nil)
}

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	if opts.Cache == nil {
		opts.Cache = NewCache(64, time.Hour)
	}
	if opts.Metrics == nil {
		m, err := NewMetrics(prometheus.NewRegistry())
		require.NoError(t, err)
		opts.Metrics = m
	}
	s := NewServer(engine.New(engine.DefaultConfig()), testSnapshot(), opts)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func post(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	resp, body := get(t, ts.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "ok", got["status"])
	assert.EqualValues(t, 4, got["facilities"])
	assert.Len(t, got["version"], 16)
}

func TestMesh_CachesByMode(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	resp, body := get(t, ts.URL+"/mesh?mode=desert")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "miss", resp.Header.Get("X-Cache"))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(body, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.NotEmpty(t, fc.Features)
	for _, f := range fc.Features {
		assert.Contains(t, f.Properties, "coverageIndex")
		assert.Contains(t, f.Properties, "severity")
		assert.Contains(t, f.Properties, "fillOpacity")
	}

	resp, again := get(t, ts.URL+"/mesh?mode=DESERT")
	assert.Equal(t, "hit", resp.Header.Get("X-Cache"))
	assert.Equal(t, body, again)

	resp, _ = get(t, ts.URL+"/mesh")
	assert.Equal(t, "miss", resp.Header.Get("X-Cache"), "coverage mode is a separate entry")
}

func TestMesh_BadMode(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	resp, _ := get(t, ts.URL+"/mesh?mode=heat")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

type clusterFrame struct {
	Clusters []struct {
		ID         int  `json:"id"`
		Cluster    bool `json:"cluster"`
		PointCount int  `json:"pointCount"`
	} `json:"clusters"`
	AlwaysRendered []struct {
		ID string `json:"id"`
	} `json:"alwaysRendered"`
	Fit *struct {
		SouthWest [2]float64 `json:"southWest"`
		NorthEast [2]float64 `json:"northEast"`
	} `json:"fit"`
}

func TestClusters_Highlight(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	resp, body := get(t, ts.URL+"/clusters?zoom=4&highlight=f3")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var frame clusterFrame
	require.NoError(t, json.Unmarshal(body, &frame))
	require.Len(t, frame.AlwaysRendered, 1)
	assert.Equal(t, "f3", frame.AlwaysRendered[0].ID)
	require.NotNil(t, frame.Fit)

	total := 0
	for _, c := range frame.Clusters {
		total += c.PointCount
	}
	assert.Equal(t, 3, total, "highlighted facility is never counted in a cluster")

	resp, _ = get(t, ts.URL+"/clusters?zoom=x")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClusters_ExpansionAndMembers(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	_, body := get(t, ts.URL+"/clusters?zoom=0")
	var frame clusterFrame
	require.NoError(t, json.Unmarshal(body, &frame))

	id := -1
	for _, c := range frame.Clusters {
		if c.Cluster {
			id = c.ID
			break
		}
	}
	require.NotEqual(t, -1, id, "all facilities collapse at zoom 0")

	resp, body := get(t, fmt.Sprintf("%s/clusters/%d/expansion-zoom", ts.URL, id))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var zoom map[string]int
	require.NoError(t, json.Unmarshal(body, &zoom))
	assert.Greater(t, zoom["zoom"], 0)
	assert.LessOrEqual(t, zoom["zoom"], 17)

	resp, body = get(t, fmt.Sprintf("%s/clusters/%d/members", ts.URL, id))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var members []map[string]any
	require.NoError(t, json.Unmarshal(body, &members))
	assert.GreaterOrEqual(t, len(members), 2)

	resp, _ = get(t, ts.URL+"/clusters/abc/expansion-zoom")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = get(t, ts.URL+"/clusters/99999/members")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClusters_LeafHasNoMembers(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	_, body := get(t, ts.URL+"/clusters?zoom=17")
	var frame clusterFrame
	require.NoError(t, json.Unmarshal(body, &frame))
	require.NotEmpty(t, frame.Clusters)

	leaf := frame.Clusters[0]
	require.False(t, leaf.Cluster)
	resp, body := get(t, fmt.Sprintf("%s/clusters/%d/members", ts.URL, leaf.ID))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"unknown cluster"}`, string(body))
}

func TestClusters_Viewport(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	// Accra only: Ridge and Korle Bu, with Tamale highlighted outside it.
	resp, body := get(t, ts.URL+"/clusters?zoom=17&bbox=-0.5,5.3,0,5.8&highlight=f3")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "miss", resp.Header.Get("X-Cache"))

	var frame clusterFrame
	require.NoError(t, json.Unmarshal(body, &frame))
	assert.Len(t, frame.Clusters, 2)
	require.Len(t, frame.AlwaysRendered, 1)
	assert.Equal(t, "f3", frame.AlwaysRendered[0].ID)

	resp, _ = get(t, ts.URL+"/clusters?zoom=17&bbox=-0.5,5.3,0,5.8&highlight=f3")
	assert.Equal(t, "hit", resp.Header.Get("X-Cache"))

	resp, body = get(t, ts.URL+"/clusters?zoom=17")
	assert.Equal(t, "miss", resp.Header.Get("X-Cache"), "a viewport is a separate entry")
	require.NoError(t, json.Unmarshal(body, &frame))
	assert.Len(t, frame.Clusters, 4)

	for _, bad := range []string{"1,2,3", "a,5,0,6", "0,6,-1,5"} {
		resp, _ = get(t, ts.URL+"/clusters?bbox="+bad)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, bad)
	}
}

func TestInsights(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	resp, body := get(t, ts.URL+"/insights/regions?limit=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var regions []map[string]any
	require.NoError(t, json.Unmarshal(body, &regions))
	assert.Len(t, regions, 2)

	resp, _ = get(t, ts.URL+"/insights/regions?limit=-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = get(t, ts.URL+"/insights/facilities/f4")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var panel []map[string]any
	require.NoError(t, json.Unmarshal(body, &panel))
	assert.NotEmpty(t, panel)
	assert.LessOrEqual(t, len(panel), 6)

	resp, _ = get(t, ts.URL+"/insights/facilities/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatsEndpoints(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	_, body := get(t, ts.URL+"/regions/stats")
	var stats map[string]map[string]any
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Contains(t, stats, "Greater Accra")

	_, body = get(t, ts.URL+"/specialties")
	var dist map[string]any
	require.NoError(t, json.Unmarshal(body, &dist))
	assert.Contains(t, dist, "Oncology")

	_, body = get(t, ts.URL+"/deserts")
	var deserts []map[string]any
	require.NoError(t, json.Unmarshal(body, &deserts))
	require.Len(t, deserts, 1)
	assert.Equal(t, "Bole", deserts[0]["city"])
}

type highlightBody struct {
	Highlight []string        `json:"highlight"`
	Matches   []resolveMatch  `json:"matches"`
	Fit       json.RawMessage `json:"fit"`
	Answer    *chat.Response  `json:"answer"`
}

type resolveMatch struct {
	Input  string `json:"input"`
	ID     string `json:"id"`
	Method string `json:"method"`
}

func TestHighlight_Names(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	resp, body := post(t, ts.URL+"/highlight", `{"names": ["tamale teaching hospital", "Korle Bu", "Unrelated Clinic XYZ"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got highlightBody
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, []string{"f3", "f2"}, got.Highlight)
	require.Len(t, got.Matches, 2)
	assert.Equal(t, "exact", got.Matches[0].Method)
	assert.Equal(t, "substring", got.Matches[1].Method)
	assert.NotEmpty(t, got.Fit)
	assert.Nil(t, got.Answer)
}

func TestHighlight_Question(t *testing.T) {
	answer := &chat.Response{Synthesis: "Ridge offers cardiology.", FacilityNames: []string{"Ridge Hospital"}}
	_, ts := newTestServer(t, Options{Chat: stubChat{resp: answer}})

	resp, body := post(t, ts.URL+"/highlight", `{"question": "Who does cardiology in Accra?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got highlightBody
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, []string{"f1"}, got.Highlight)
	require.NotNil(t, got.Answer)
	assert.Equal(t, "Ridge offers cardiology.", got.Answer.Synthesis)
}

func TestHighlight_Errors(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	resp, _ := post(t, ts.URL+"/highlight", `{`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = post(t, ts.URL+"/highlight", `{"question": "anything"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	_, failing := newTestServer(t, Options{Chat: stubChat{err: errors.New("backend down")}})
	resp, _ = post(t, failing.URL+"/highlight", `{"question": "anything"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	_, tripped := newTestServer(t, Options{Chat: stubChat{err: chat.ErrUnavailable}})
	resp, _ = post(t, tripped.URL+"/highlight", `{"question": "anything"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, body := post(t, ts.URL+"/highlight", `{"names": []}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got highlightBody
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Empty(t, got.Highlight)
	assert.NotNil(t, got.Matches)
}

func TestSetSnapshot_InvalidatesCache(t *testing.T) {
	s, ts := newTestServer(t, Options{})

	get(t, ts.URL+"/specialties")
	resp, _ := get(t, ts.URL+"/specialties")
	assert.Equal(t, "hit", resp.Header.Get("X-Cache"))

	s.SetSnapshot(engine.NewSnapshot(nil, nil, nil))
	resp, body := get(t, ts.URL+"/specialties")
	assert.Equal(t, "miss", resp.Header.Get("X-Cache"))
	assert.JSONEq(t, `{}`, string(body))

	_, body = get(t, ts.URL+"/cache/stats")
	var stats CacheStats
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, Version(engine.NewSnapshot(nil, nil, nil)), stats.Version)
}

func TestVersion_ContentHash(t *testing.T) {
	a := Version(testSnapshot())
	b := Version(testSnapshot())
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, Version(engine.NewSnapshot(nil, nil, nil)))
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	get(t, ts.URL+"/health")
	post(t, ts.URL+"/highlight", `{"names": ["Ridge Hospital"]}`)

	resp, body := get(t, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	text := string(body)
	assert.Contains(t, text, `healthmap_http_requests_total{code="200",method="GET",route="/health"} 1`)
	assert.Contains(t, text, "healthmap_snapshot_facilities 4")
	assert.Contains(t, text, "healthmap_highlight_matches_count 1")
}

func TestNewMetrics_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMetrics(reg)
	require.NoError(t, err)
	second, err := NewMetrics(reg)
	require.NoError(t, err)
	assert.Same(t, first.Requests, second.Requests)
}

func TestCacheStats_Disabled(t *testing.T) {
	s := NewServer(engine.New(engine.DefaultConfig()), testSnapshot(), Options{})
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cache/stats", nil))
	assert.JSONEq(t, `{"status":"disabled"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/specialties", nil))
	assert.Equal(t, "miss", rec.Header().Get("X-Cache"))
}
