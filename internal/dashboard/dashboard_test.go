package dashboard

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/roadnet/internal/graph"
	"github.com/efebarandurmaz/roadnet/internal/graph/memory"
	"github.com/efebarandurmaz/roadnet/internal/metrics"
	"github.com/efebarandurmaz/roadnet/internal/network"
	"github.com/efebarandurmaz/roadnet/internal/observability"
	"github.com/efebarandurmaz/roadnet/internal/server"
)

func scenarioA() *network.Graph {
	return &network.Graph{
		Nodes: []network.Node{{ID: 1}, {ID: 2, X: 3}, {ID: 3, X: 3, Y: 4}},
		Edges: []network.Edge{{Source: 1, Target: 2, Distance: 3}, {Source: 2, Target: 3, Distance: 4}},
	}
}

type brokenSource struct{}

func (brokenSource) CountNodes(context.Context) (int, error) { return 0, nil }
func (brokenSource) CountEdges(context.Context) (int, error) { return 0, nil }
func (brokenSource) AllDegrees(context.Context) (map[network.NodeID]int, error) {
	return nil, graph.Unavailable("all degrees", errors.New("connection refused"))
}

func newDashboard(t *testing.T, src metrics.Source) (*Dashboard, *observability.Metrics) {
	t.Helper()
	m := observability.NewMetrics()
	cfg := &Config{ListenAddr: ":0", PingInterval: 20 * time.Millisecond}
	return New(cfg, src, metrics.NewEngine(), m, server.NewHealthServer("test")), m
}

func loadedStore(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.New()
	require.NoError(t, s.Import(context.Background(), scenarioA()))
	return s
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestServer_NoReportYet(t *testing.T) {
	d, _ := newDashboard(t, loadedStore(t))
	h := d.Server.Handler()

	for _, path := range []string{"/", "/api/report", "/api/summary", "/api/top"} {
		rec := do(t, h, http.MethodGet, path)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestServer_RefreshAndQuery(t *testing.T) {
	d, m := newDashboard(t, loadedStore(t))
	h := d.Server.Handler()

	rec := do(t, h, http.MethodPost, "/api/refresh")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var summary metrics.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 3, summary.TotalNodes)
	assert.Equal(t, 1.33, summary.AverageDegree)

	rec = do(t, h, http.MethodGet, "/api/degrees")
	var hist []metrics.DegreeBucket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	assert.Equal(t, []metrics.DegreeBucket{{Degree: 1, Count: 2}, {Degree: 2, Count: 1}}, hist)

	rec = do(t, h, http.MethodGet, "/api/categories")
	assert.Contains(t, rec.Body.String(), `"category":"Dead End"`)

	rec = do(t, h, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Road Network Analysis Dashboard")

	assert.Equal(t, 3.0, testutil.ToFloat64(m.GraphNodes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ComputesTotal.WithLabelValues("success")))

	rec = do(t, h, http.MethodGet, "/metrics")
	assert.Contains(t, rec.Body.String(), "roadnet_graph_intersections 3")
}

func TestServer_Top(t *testing.T) {
	d, _ := newDashboard(t, loadedStore(t))
	_, err := d.Server.Refresh(context.Background())
	require.NoError(t, err)
	h := d.Server.Handler()

	tests := []struct {
		query string
		code  int
		want  []metrics.RankedNode
	}{
		{"", http.StatusOK, []metrics.RankedNode{{ID: 2, Degree: 2}, {ID: 1, Degree: 1}, {ID: 3, Degree: 1}}},
		{"?k=1", http.StatusOK, []metrics.RankedNode{{ID: 2, Degree: 2}}},
		{"?k=50", http.StatusOK, []metrics.RankedNode{{ID: 2, Degree: 2}, {ID: 1, Degree: 1}, {ID: 3, Degree: 1}}},
		{"?k=0", http.StatusBadRequest, nil},
		{"?k=-3", http.StatusBadRequest, nil},
		{"?k=ten", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/api/top"+tt.query)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			if tt.want == nil {
				return
			}
			var got []metrics.RankedNode
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestServer_RefreshStoreUnavailable(t *testing.T) {
	d, m := newDashboard(t, brokenSource{})
	h := d.Server.Handler()

	rec := do(t, h, http.MethodPost, "/api/refresh")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "graph store unavailable")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("compute")))

	history := d.Store.History()
	require.Len(t, history, 1)
	assert.NotEmpty(t, history[0].ID)
	assert.NotEmpty(t, history[0].Error)

	rec = do(t, h, http.MethodGet, "/api/report")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "no partial report is published")
}

func TestServer_Health(t *testing.T) {
	d, _ := newDashboard(t, loadedStore(t))
	h := d.Server.Handler()

	rec := do(t, h, http.MethodGet, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`, "no report yet")

	_, err := d.Server.Refresh(context.Background())
	require.NoError(t, err)
	rec = do(t, h, http.MethodGet, "/api/health")
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	rec = do(t, h, http.MethodGet, "/livez")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_CORS(t *testing.T) {
	d, _ := newDashboard(t, loadedStore(t))
	rec := do(t, d.Server.Handler(), http.MethodOptions, "/api/report")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_MethodNotAllowed(t *testing.T) {
	d, _ := newDashboard(t, loadedStore(t))
	rec := do(t, d.Server.Handler(), http.MethodGet, "/api/refresh")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_Events(t *testing.T) {
	d, _ := newDashboard(t, loadedStore(t))
	ts := httptest.NewServer(d.Server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	next := func(prefix string) string {
		for lines.Scan() {
			if strings.HasPrefix(lines.Text(), prefix) {
				return lines.Text()
			}
		}
		t.Fatalf("stream ended before %q", prefix)
		return ""
	}

	assert.Equal(t, "event: connected", next("event:"))
	require.Eventually(t, func() bool { return d.Hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	_, err = d.Server.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "event: report.refreshed", next("event:"))
	data := next("data:")
	assert.Contains(t, data, `"type":"report.refreshed"`)
	assert.Contains(t, data, `"total_intersections":3`)
}

func TestStore_History(t *testing.T) {
	s := NewStore()
	for i := 0; i < maxRefreshes+5; i++ {
		s.Record(RefreshRecord{ID: string(rune('a' + i%26)), StartedAt: time.Unix(int64(i), 0)})
	}
	h := s.History()
	require.Len(t, h, maxRefreshes)
	assert.Equal(t, time.Unix(int64(maxRefreshes+4), 0), h[0].StartedAt, "newest first")
	assert.Equal(t, time.Unix(5, 0), h[len(h)-1].StartedAt)

	_, ok := s.ComputedAt()
	assert.False(t, ok)
}

func TestHub_BroadcastWithoutClients(t *testing.T) {
	h := NewHub()
	h.Broadcast(&Event{Type: EventReportRefreshed, Timestamp: time.Now()})
	assert.Equal(t, 0, h.ClientCount())
}

func TestHub_StalledClientDoesNotBlockBroadcast(t *testing.T) {
	h := NewHub()
	stalled, err := NewClient(httptest.NewRecorder())
	require.NoError(t, err)
	h.Register(stalled)
	defer h.Unregister(stalled)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < clientBuffer+5; i++ {
			h.Broadcast(&Event{Type: EventReportRefreshed, Timestamp: time.Now()})
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a client that never reads")
	}
	assert.Len(t, stalled.events, clientBuffer)
}
