// Package result is the structured output contract between phase 1 (the
// plan interpreter) and phase 2 (the report renderer). One JSON document
// per case plus a run summary, written into the run's results directory.
package result

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const SummaryFile = "summary.json"

type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
	// StatusBroken marks a case whose mechanism faulted (request could not
	// be sent, browser crashed) as opposed to a failed assertion.
	StatusBroken Status = "broken"
)

// Step is one named stage of a case run, for report attribution.
type Step struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Attachment carries request/response evidence, captured pass or fail.
type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Body string `json:"body"`
}

type CaseResult struct {
	Index       int          `json:"index"`
	Name        string       `json:"name"`
	Status      Status       `json:"status"`
	Steps       []Step       `json:"steps"`
	Attachments []Attachment `json:"attachments,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	DurationMS  int64        `json:"duration_ms"`
}

type Summary struct {
	Type    string    `json:"type"`
	Passed  int       `json:"passed"`
	Failed  int       `json:"failed"`
	Broken  int       `json:"broken"`
	Total   int       `json:"total"`
	Started time.Time `json:"started"`
	Stopped time.Time `json:"stopped"`
}

// Writer persists results into a directory.
type Writer struct {
	dir string
}

func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create results dir")
	}
	return &Writer{dir: dir}, nil
}

func (w *Writer) WriteCase(cr CaseResult) error {
	name := fmt.Sprintf("case_%04d.json", cr.Index)
	return writeJSON(filepath.Join(w.dir, name), cr)
}

func (w *Writer) WriteSummary(s Summary) error {
	return writeJSON(filepath.Join(w.dir, SummaryFile), s)
}

// ReadCases loads every case document in dir, ordered by index.
func ReadCases(dir string) ([]CaseResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "read results dir")
	}
	cases := make([]CaseResult, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "case_") {
			continue
		}
		var cr CaseResult
		if err := readJSON(filepath.Join(dir, e.Name()), &cr); err != nil {
			return nil, err
		}
		cases = append(cases, cr)
	}
	sort.Slice(cases, func(i, j int) bool { return cases[i].Index < cases[j].Index })
	return cases, nil
}

func ReadSummary(dir string) (Summary, error) {
	var s Summary
	err := readJSON(filepath.Join(dir, SummaryFile), &s)
	return s, err
}

// Summarize folds case results into a summary.
func Summarize(typ string, started, stopped time.Time, cases []CaseResult) Summary {
	s := Summary{Type: typ, Started: started, Stopped: stopped, Total: len(cases)}
	for _, cr := range cases {
		switch cr.Status {
		case StatusPassed:
			s.Passed++
		case StatusBroken:
			s.Broken++
		default:
			s.Failed++
		}
	}
	return s
}

// Marshal encodes without HTML escaping so captured URLs and response
// bodies stay readable in the raw result files.
func Marshal(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(path string, v any) error {
	b, err := Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", filepath.Base(path))
	}
	return errors.Wrapf(os.WriteFile(path, b, 0o644), "write %s", filepath.Base(path))
}

func readJSON(path string, dst any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", filepath.Base(path))
	}
	return errors.Wrapf(json.Unmarshal(b, dst), "parse %s", filepath.Base(path))
}
