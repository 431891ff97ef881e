// Package render is phase 2 of a pipeline run: it turns the structured
// results directory into a browsable HTML report. It runs as its own
// subprocess so a rendering crash never destroys phase-1 results, and so
// the renderer stays swappable independent of the runner.
package render

import (
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/tessera-qa/tessera/packages/result"
)

const reportTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Test Report — {{.Summary.Type}}</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
h1 { font-size: 1.4em; }
.summary { margin-bottom: 1.5em; }
.case { border: 1px solid #ddd; border-radius: 4px; margin-bottom: 1em; padding: 0.8em 1em; }
.case.passed { border-left: 4px solid #2e7d32; }
.case.failed { border-left: 4px solid #c62828; }
.case.broken { border-left: 4px solid #ef6c00; }
.step { margin: 0.2em 0 0.2em 1em; }
.step.failed, .step.broken { color: #c62828; }
.detail { color: #666; font-size: 0.9em; }
pre { background: #f7f7f7; padding: 0.6em; overflow-x: auto; font-size: 0.85em; }
</style>
</head>
<body>
<h1>Test Report — {{.Summary.Type}}</h1>
<div class="summary">
  <strong>{{.Summary.Passed}}/{{.Summary.Total}} passed</strong>
  {{- if .Summary.Failed}}, {{.Summary.Failed}} failed{{end}}
  {{- if .Summary.Broken}}, {{.Summary.Broken}} broken{{end}}
  — finished {{.Finished}} in {{.Elapsed}}
</div>
{{range .Cases}}
<div class="case {{.Status}}">
  <h2>{{.Index}}. {{.Name}} — {{.Status}} <small>({{durationMS .DurationMS}})</small></h2>
  {{range .Steps}}
  <div class="step {{.Status}}">{{.Name}} — {{.Status}}{{if .Detail}} <span class="detail">{{.Detail}}</span>{{end}}</div>
  {{end}}
  {{range .Attachments}}
  <details><summary>{{.Name}}</summary><pre>{{.Body}}</pre></details>
  {{end}}
</div>
{{end}}
</body>
</html>
`

type page struct {
	Summary  result.Summary
	Cases    []result.CaseResult
	Finished string
	Elapsed  string
}

// Render reads resultsDir and writes report files into outDir. outDir is
// the path recorded on the report row.
func Render(resultsDir, outDir string) error {
	summary, err := result.ReadSummary(resultsDir)
	if err != nil {
		return err
	}
	cases, err := result.ReadCases(resultsDir)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrap(err, "create report dir")
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"durationMS": func(ms int64) string {
			return (time.Duration(ms) * time.Millisecond).String()
		},
	}).Parse(reportTemplate)
	if err != nil {
		return errors.Wrap(err, "parse report template")
	}

	f, err := os.Create(filepath.Join(outDir, "index.html"))
	if err != nil {
		return errors.Wrap(err, "create index.html")
	}
	defer f.Close()

	p := page{
		Summary:  summary,
		Cases:    cases,
		Finished: humanize.Time(summary.Stopped),
		Elapsed:  summary.Stopped.Sub(summary.Started).Round(time.Millisecond).String(),
	}
	if err := tmpl.Execute(f, p); err != nil {
		return errors.Wrap(err, "render report")
	}
	return nil
}
