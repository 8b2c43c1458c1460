package observability

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()
	if m.GraphNodes == nil || m.DegreeNodes == nil || m.ErrorsTotal == nil {
		t.Fatal("collectors not initialized")
	}
	if m.Registry() == nil {
		t.Fatal("Prometheus registry not initialized")
	}
}

func TestDefaultMetrics(t *testing.T) {
	if DefaultMetrics() != DefaultMetrics() {
		t.Error("DefaultMetrics() should return the same instance")
	}
}

func TestSetGraph(t *testing.T) {
	m := NewMetrics()
	m.SetGraph(3, 2, 1.33, 2)

	if got := testutil.ToFloat64(m.GraphNodes); got != 3 {
		t.Errorf("intersections = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.AverageDegree); got != 1.33 {
		t.Errorf("average degree = %v, want 1.33", got)
	}
	if got := testutil.ToFloat64(m.MaxDegree); got != 2 {
		t.Errorf("max degree = %v, want 2", got)
	}
}

func TestSetDegreeDistribution_Replaces(t *testing.T) {
	m := NewMetrics()
	m.SetDegreeDistribution(map[int]int{1: 2, 2: 1})
	m.SetDegreeDistribution(map[int]int{3: 4})

	if n := testutil.CollectAndCount(m.DegreeNodes); n != 1 {
		t.Fatalf("expected 1 series after replace, got %d", n)
	}
	var metric dto.Metric
	if err := m.DegreeNodes.WithLabelValues("3").Write(&metric); err != nil {
		t.Fatal(err)
	}
	if metric.Gauge.GetValue() != 4 {
		t.Errorf("degree 3 = %v, want 4", metric.Gauge.GetValue())
	}
}

func TestSetCategories(t *testing.T) {
	m := NewMetrics()
	m.SetCategories(map[string]int{"Dead End": 2, "Pass Through": 1})

	if got := testutil.ToFloat64(m.CategoryNodes.WithLabelValues("Dead End")); got != 2 {
		t.Errorf("Dead End = %v, want 2", got)
	}
}

func TestObserveComputeAndImport(t *testing.T) {
	m := NewMetrics()
	m.ObserveCompute(10*time.Millisecond, nil)
	m.ObserveCompute(10*time.Millisecond, errors.New("boom"))
	m.ObserveImport("memory", time.Second, nil)
	m.ObserveImport("neo4j", time.Second, errors.New("down"))
	m.RecordError("parse")

	if got := testutil.ToFloat64(m.ComputesTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("successful computes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ImportsTotal.WithLabelValues("neo4j", "error")); got != 1 {
		t.Errorf("failed neo4j imports = %v, want 1", got)
	}
	for _, op := range []string{"compute", "import", "parse"} {
		if got := testutil.ToFloat64(m.ErrorsTotal.WithLabelValues(op)); got != 1 {
			t.Errorf("errors{op=%s} = %v, want 1", op, got)
		}
	}
}

func TestHandler(t *testing.T) {
	m := NewMetrics()
	m.SetGraph(3, 2, 1.33, 2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "roadnet_graph_intersections 3") {
		t.Errorf("expected intersections gauge in output:\n%s", body)
	}
}

func TestMetricNaming(t *testing.T) {
	m := NewMetrics()
	m.SetDegreeDistribution(map[int]int{1: 1})
	m.SetCategories(map[string]int{"Dead End": 1})
	m.ObserveCompute(time.Millisecond, errors.New("x"))
	m.ObserveImport("memory", time.Millisecond, nil)

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	for _, f := range families {
		if !strings.HasPrefix(f.GetName(), "roadnet_") {
			t.Errorf("Metric %s does not have roadnet_ prefix", f.GetName())
		}
	}
}
