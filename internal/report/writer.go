package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
)

// WriteJSON renders the summary as indented JSON.
func WriteJSON(w io.Writer, s *Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

var htmlTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"ms":  func(d time.Duration) string { return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond)) },
	"pct": func(f float64) string { return fmt.Sprintf("%.2f%%", f*100) },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Name}} ({{.Profile}})</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin: 1em 0; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: right; }
th:first-child, td:first-child { text-align: left; }
.pass { color: #2a7a2a; }
.fail { color: #b03030; }
</style>
</head>
<body>
<h1>{{.Name}} <small>{{.Profile}}</small></h1>
<p>Run {{.RunID}} &middot; {{.StartTime.Format "2006-01-02 15:04:05"}} &middot; {{.Duration}}</p>
<p class="{{if .Passed}}pass{{else}}fail{{end}}">
{{if .Passed}}PASSED{{else}}FAILED{{end}}
({{.ThresholdsPassed}}/{{len .Thresholds}} thresholds)
</p>

<h2>Iterations</h2>
<table>
<tr><th>Total</th><th>Succeeded</th><th>Failed</th><th>Aborted</th><th>Success rate</th></tr>
<tr><td>{{.TotalIterations}}</td><td>{{.Succeeded}}</td><td>{{.Failed}}</td><td>{{.Aborted}}</td><td>{{pct .SuccessRate}}</td></tr>
</table>

<h2>Journeys</h2>
<table>
<tr><th>Journey</th><th>Iterations</th><th>Failure rate</th><th>Mean</th><th>p95</th><th>p99</th></tr>
{{range .Journeys}}<tr><td>{{.Name}}</td><td>{{.Iterations}}</td><td>{{pct .FailureRate}}</td><td>{{ms .Mean}}</td><td>{{ms .P95}}</td><td>{{ms .P99}}</td></tr>
{{end}}</table>

<h2>Steps</h2>
<table>
<tr><th>Step</th><th>Count</th><th>Failure rate</th><th>Min</th><th>Mean</th><th>p50</th><th>p90</th><th>p95</th><th>p99</th><th>Max</th></tr>
{{range .Steps}}<tr><td>{{.Label}}</td><td>{{.Count}}</td><td>{{pct .FailureRate}}</td><td>{{ms .Min}}</td><td>{{ms .Mean}}</td><td>{{ms .P50}}</td><td>{{ms .P90}}</td><td>{{ms .P95}}</td><td>{{ms .P99}}</td><td>{{ms .Max}}</td></tr>
{{end}}</table>

<h2>Thresholds</h2>
<table>
<tr><th>Rule</th><th>Observed</th><th>Result</th></tr>
{{range .Thresholds}}<tr><td>{{.Rule.Metric}} {{.Rule.Field}} {{.Rule.Comparator}} {{.Rule.Target}}</td><td>{{printf "%.3f" .Observed}}</td><td class="{{if .Passed}}pass{{else}}fail{{end}}">{{if .Passed}}pass{{else}}fail{{end}}</td></tr>
{{end}}</table>
</body>
</html>
`))

// WriteHTML renders the summary as a standalone HTML page.
func WriteHTML(w io.Writer, s *Summary) error {
	if err := htmlTmpl.Execute(w, s); err != nil {
		return fmt.Errorf("report: render html: %w", err)
	}
	return nil
}

// FileWriter writes summaries to disk, optionally gzip-compressed. Gzip
// appends .gz to the filename.
type FileWriter struct {
	Dir  string
	Gzip bool
}

// WriteJSONFile writes the JSON rendering to <dir>/<name>. It returns the
// final path.
func (fw FileWriter) WriteJSONFile(s *Summary, name string) (string, error) {
	return fw.write(s, name, WriteJSON)
}

// WriteHTMLFile writes the HTML rendering to <dir>/<name>. It returns the
// final path.
func (fw FileWriter) WriteHTMLFile(s *Summary, name string) (string, error) {
	return fw.write(s, name, WriteHTML)
}

func (fw FileWriter) write(s *Summary, name string, render func(io.Writer, *Summary) error) (string, error) {
	if err := os.MkdirAll(fw.Dir, 0o755); err != nil {
		return "", fmt.Errorf("report: create dir: %w", err)
	}

	path := filepath.Join(fw.Dir, name)
	if fw.Gzip {
		path += ".gz"
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("report: create file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var w io.Writer = f
	var gz *gzip.Writer
	if fw.Gzip {
		gz = gzip.NewWriter(f)
		w = gz
	}

	if err := render(w, s); err != nil {
		return "", err
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return "", fmt.Errorf("report: flush gzip: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("report: close file: %w", err)
	}
	return path, nil
}
