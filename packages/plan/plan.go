// Package plan defines the typed case-descriptor document handed to the
// fixed exec-plan interpreter. The descriptor list is the executable
// artifact: case data is never templated into source code.
package plan

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/tessera-qa/tessera/packages/models"
)

// FileName is the descriptor document's name inside a run directory.
const FileName = "plan.json"

type Plan struct {
	Type      string        `json:"type"`
	CreatedAt time.Time     `json:"created_at"`
	APICases  []APICaseSpec `json:"api_cases,omitempty"`
	UICases   []UICaseSpec  `json:"ui_cases,omitempty"`
	Load      *LoadSpec     `json:"load,omitempty"`
}

// APICaseSpec describes one HTTP request plus its assertions. Map fields
// are always non-nil; a missing map in the stored case becomes an explicit
// empty default here.
type APICaseSpec struct {
	Index    int               `json:"index"`
	Name     string            `json:"name"`
	Method   string            `json:"method"`
	URL      string            `json:"url"`
	Headers  map[string]string `json:"headers"`
	Params   map[string]string `json:"params"`
	Body     map[string]any    `json:"body"`
	Expected map[string]any    `json:"expected"`
}

// UICaseSpec describes one browser scenario: either an ordered step list or
// a raw script evaluated against a fresh page at BaseURL.
type UICaseSpec struct {
	Index   int      `json:"index"`
	Name    string   `json:"name"`
	BaseURL string   `json:"base_url"`
	Script  string   `json:"script,omitempty"`
	Steps   []UIStep `json:"steps,omitempty"`
	Record  bool     `json:"record"`
}

// UIStep is an engine-specific action descriptor, passed through from the
// stored case without interpretation at planning time.
type UIStep struct {
	Action    string `json:"action"`
	Selector  string `json:"selector,omitempty"`
	Value     string `json:"value,omitempty"`
	TimeoutMS int    `json:"timeout_ms,omitempty"`
}

// LoadSpec configures a performance run.
type LoadSpec struct {
	TargetURL string `json:"target_url"`
	Users     int    `json:"users"`
	SpawnRate int    `json:"spawn_rate"`
	RunTime   string `json:"run_time"`
}

// CaseCount reports how many independent cases the plan carries. Load plans
// count as a single case.
func (p Plan) CaseCount() int {
	if p.Load != nil {
		return 1
	}
	return len(p.APICases) + len(p.UICases)
}

// FromAPICases builds an API plan. Case indices are sequential, which keeps
// generated artifact names collision-free within one run.
func FromAPICases(cases []models.APICase) Plan {
	p := Plan{Type: models.TestTypeAPI, CreatedAt: time.Now().UTC()}
	for i, c := range cases {
		p.APICases = append(p.APICases, APICaseSpec{
			Index:    i,
			Name:     c.CaseName,
			Method:   c.Method,
			URL:      c.URL,
			Headers:  stringMap(c.Headers),
			Params:   stringMap(c.Params),
			Body:     anyMap(c.Body),
			Expected: anyMap(c.ExpectedData),
		})
	}
	return p
}

func FromUICases(cases []models.UICase) Plan {
	p := Plan{Type: models.TestTypeUI, CreatedAt: time.Now().UTC()}
	for i, c := range cases {
		spec := UICaseSpec{
			Index:   i,
			Name:    c.CaseName,
			BaseURL: c.BaseURL,
			Script:  c.ScriptContent,
			Record:  c.Record,
		}
		for _, raw := range c.Steps {
			spec.Steps = append(spec.Steps, stepFromMap(raw))
		}
		p.UICases = append(p.UICases, spec)
	}
	return p
}

func FromLoad(spec LoadSpec) Plan {
	if spec.Users <= 0 {
		spec.Users = 10
	}
	if spec.SpawnRate <= 0 {
		spec.SpawnRate = 2
	}
	if spec.RunTime == "" {
		spec.RunTime = "1m"
	}
	return Plan{
		Type:      models.TestTypePerformance,
		CreatedAt: time.Now().UTC(),
		Load:      &spec,
	}
}

// Write serializes the plan into path.
func (p Plan) Write(path string) error {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal plan")
	}
	return errors.Wrap(os.WriteFile(path, b, 0o644), "write plan")
}

// Read loads a plan document from path.
func Read(path string) (Plan, error) {
	var p Plan
	b, err := os.ReadFile(path)
	if err != nil {
		return p, errors.Wrap(err, "read plan")
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return p, errors.Wrap(err, "parse plan")
	}
	return p, nil
}

func stringMap(m models.JSONMap) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		b, _ := json.Marshal(v)
		out[k] = string(b)
	}
	return out
}

func anyMap(m models.JSONMap) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func stepFromMap(raw map[string]any) UIStep {
	var s UIStep
	if v, ok := raw["action"].(string); ok {
		s.Action = v
	}
	if v, ok := raw["selector"].(string); ok {
		s.Selector = v
	}
	if v, ok := raw["value"].(string); ok {
		s.Value = v
	}
	if v, ok := raw["timeout_ms"].(float64); ok {
		s.TimeoutMS = int(v)
	}
	return s
}
