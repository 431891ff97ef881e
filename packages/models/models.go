package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Test types a project can be scoped to.
const (
	TestTypeAPI         = "api"
	TestTypeUI          = "ui"
	TestTypePerformance = "performance"
)

// Report lifecycle. A report is created running and moves exactly once to
// completed or failed; both are terminal.
const (
	ReportRunning   = "running"
	ReportCompleted = "completed"
	ReportFailed    = "failed"
)

func ValidTestStyle(s string) bool {
	switch s {
	case TestTypeAPI, TestTypeUI, TestTypePerformance:
		return true
	}
	return false
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	AvatarPath   string    `json:"avatar_path"`
	CreatedAt    time.Time `json:"created_at"`
}

type Project struct {
	ID          int64     `json:"id"`
	ProjectName string    `json:"project_name"`
	TestStyle   string    `json:"test_style"`
	UserID      int64     `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// APICase is a persisted API test definition. Map fields are stored as JSON
// text columns and default to empty maps rather than NULL.
type APICase struct {
	ID           int64     `json:"id"`
	ProjectID    int64     `json:"project_id"`
	CaseName     string    `json:"case_name"`
	Method       string    `json:"method"`
	URL          string    `json:"url"`
	Headers      JSONMap   `json:"headers"`
	Params       JSONMap   `json:"params"`
	Body         JSONMap   `json:"body"`
	ExpectedData JSONMap   `json:"expected_data"`
	CreatedAt    time.Time `json:"created_at"`
}

// UICase is a persisted UI test definition. Steps carry engine-specific
// action descriptors and are passed through to the runner opaquely;
// ScriptContent is an alternative raw script evaluated against the page.
type UICase struct {
	ID            int64     `json:"id"`
	ProjectID     int64     `json:"project_id"`
	CaseName      string    `json:"case_name"`
	BaseURL       string    `json:"base_url"`
	ScriptContent string    `json:"script_content"`
	Steps         StepList  `json:"steps"`
	Record        bool      `json:"record"`
	CreatedAt     time.Time `json:"created_at"`
}

type BusinessFlow struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	FlowName  string    `json:"flow_name"`
	TestType  string    `json:"test_type"`
	CaseIDs   IDList    `json:"case_ids"`
	CreatedAt time.Time `json:"created_at"`
}

type Report struct {
	ID         int64     `json:"id"`
	ProjectID  int64     `json:"project_id"`
	ReportName string    `json:"report_name"`
	TestType   string    `json:"test_type"`
	Status     string    `json:"status"`
	ReportPath *string   `json:"report_path"`
	Passed     int       `json:"passed"`
	Total      int       `json:"total"`
	CreatedAt  time.Time `json:"created_at"`
}

// JSONMap stores a JSON object in a TEXT column.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		m = JSONMap{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "marshal json map")
	}
	return string(b), nil
}

func (m *JSONMap) Scan(src any) error {
	return scanJSON(src, m)
}

// StepList stores an ordered list of opaque step descriptors.
type StepList []map[string]any

func (s StepList) Value() (driver.Value, error) {
	if s == nil {
		s = StepList{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "marshal step list")
	}
	return string(b), nil
}

func (s *StepList) Scan(src any) error {
	return scanJSON(src, s)
}

// IDList stores a list of record ids.
type IDList []int64

func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		l = IDList{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, errors.Wrap(err, "marshal id list")
	}
	return string(b), nil
}

func (l *IDList) Scan(src any) error {
	return scanJSON(src, l)
}

func scanJSON(src, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return errors.Wrap(json.Unmarshal(v, dst), "scan json column")
	case string:
		return errors.Wrap(json.Unmarshal([]byte(v), dst), "scan json column")
	default:
		return errors.Errorf("unsupported json column type %T", src)
	}
}
