package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"

	"github.com/efebarandurmaz/roadnet/internal/metrics"
)

// Output file names inside the report directory.
const (
	HTMLFile = "dashboard.html"
	JSONFile = "report.json"
)

type barView struct {
	Label  string
	Value  int
	Color  string
	Width  float64 // percent of the panel
	Detail string
}

type pageView struct {
	Summary    metrics.Summary
	TopK       int
	Histogram  []barView
	Top        []barView
	Categories []barView
	Insights   []string
}

var page = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Road Network Analysis Dashboard</title>
<style>
body { font-family: Arial, sans-serif; margin: 0; padding: 24px; background: #f7f9fa; color: #2c3e50; }
h1 { text-align: center; margin: 0 0 16px; }
.stats { display: flex; gap: 12px; justify-content: center; margin-bottom: 16px; }
.stat { background: #fff; border-radius: 6px; padding: 12px 20px; text-align: center; box-shadow: 0 1px 3px rgba(0,0,0,.1); }
.stat b { display: block; font-size: 1.4em; }
.grid { display: grid; grid-template-columns: 1fr 1fr; gap: 16px; }
.panel { background: #fff; border-radius: 6px; padding: 16px; box-shadow: 0 1px 3px rgba(0,0,0,.1); }
.panel h2 { font-size: 1.1em; margin-top: 0; }
.row { display: flex; align-items: center; margin: 4px 0; font-size: .9em; }
.row .label { width: 150px; flex: none; }
.row .track { flex: 1; background: #ecf0f1; height: 18px; }
.row .fill { height: 18px; }
.row .value { width: 90px; text-align: right; flex: none; }
</style>
</head>
<body>
<h1>Road Network Analysis Dashboard</h1>
<div class="stats">
  <div class="stat"><b>{{.Summary.TotalNodes}}</b>Intersections</div>
  <div class="stat"><b>{{.Summary.TotalEdges}}</b>Roads</div>
  <div class="stat"><b>{{printf "%.2f" .Summary.AverageDegree}}</b>Average degree</div>
  <div class="stat"><b>{{.Summary.MaxDegree}}</b>Max degree</div>
</div>
<div class="grid">
  <div class="panel" id="degree-distribution">
    <h2>Degree Distribution</h2>
    {{range .Histogram}}<div class="row"><span class="label">{{.Label}}</span><span class="track"><div class="fill" style="width: {{printf "%.1f" .Width}}%; background: {{.Color}}"></div></span><span class="value">{{.Value}}</span></div>
    {{else}}<p>No intersections.</p>{{end}}
  </div>
  <div class="panel" id="top-intersections">
    <h2>Top {{.TopK}} Most Connected Intersections</h2>
    {{range .Top}}<div class="row"><span class="label">{{.Label}}</span><span class="track"><div class="fill" style="width: {{printf "%.1f" .Width}}%; background: {{.Color}}"></div></span><span class="value">{{.Value}} roads</span></div>
    {{else}}<p>No intersections.</p>{{end}}
  </div>
  <div class="panel" id="intersection-types">
    <h2>Intersection Types</h2>
    {{range .Categories}}<div class="row"><span class="label">{{.Label}}</span><span class="track"><div class="fill" style="width: {{printf "%.1f" .Width}}%; background: {{.Color}}"></div></span><span class="value">{{.Detail}}</span></div>
    {{else}}<p>No intersections.</p>{{end}}
  </div>
  <div class="panel" id="key-insights">
    <h2>Key Insights</h2>
    <ul>{{range .Insights}}<li>{{.}}</li>{{end}}</ul>
  </div>
</div>
</body>
</html>
`))

func widthOf(value, largest int) float64 {
	if largest == 0 {
		return 0
	}
	return float64(value) / float64(largest) * 100
}

func newPageView(rep *metrics.Report) pageView {
	v := pageView{Summary: rep.Summary, TopK: rep.TopK, Insights: Insights(rep)}

	largest := 0
	for _, h := range rep.Histogram {
		largest = max(largest, h.Count)
	}
	for _, h := range rep.Histogram {
		v.Histogram = append(v.Histogram, barView{
			Label: fmt.Sprintf("%d roads", h.Degree),
			Value: h.Count,
			Color: DegreeColor(h.Degree),
			Width: widthOf(h.Count, largest),
		})
	}

	for _, n := range rep.TopNodes {
		v.Top = append(v.Top, barView{
			Label: fmt.Sprintf("Intersection %d", n.ID),
			Value: n.Degree,
			Color: DegreeColor(n.Degree),
			Width: widthOf(n.Degree, rep.Summary.MaxDegree),
		})
	}

	for _, c := range rep.Categories {
		v.Categories = append(v.Categories, barView{
			Label:  c.Category.Description(),
			Value:  c.Count,
			Color:  CategoryColor(c.Category),
			Width:  percent(c.Count, rep.Summary.TotalNodes),
			Detail: fmt.Sprintf("%d (%.1f%%)", c.Count, percent(c.Count, rep.Summary.TotalNodes)),
		})
	}
	return v
}

// WriteHTML renders the self-contained dashboard page.
func WriteHTML(w io.Writer, rep *metrics.Report) error {
	return page.Execute(w, newPageView(rep))
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, rep *metrics.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// Save writes dashboard.html and report.json into dir, creating it if
// needed. It returns the path of the HTML file.
func Save(dir string, rep *metrics.Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	htmlPath := filepath.Join(dir, HTMLFile)
	if err := writeFile(htmlPath, func(w io.Writer) error { return WriteHTML(w, rep) }); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(dir, JSONFile), func(w io.Writer) error { return WriteJSON(w, rep) }); err != nil {
		return "", err
	}
	return htmlPath, nil
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}
	return f.Close()
}
