package plan

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-qa/tessera/packages/models"
)

func TestFromAPICasesDefaultsAndIndices(t *testing.T) {
	cases := []models.APICase{
		{ID: 10, CaseName: "first", Method: "GET", URL: "http://a"},
		{ID: 7, CaseName: "second", Method: "POST", URL: "http://b",
			Headers: models.JSONMap{"X-Token": "t"},
			Body:    models.JSONMap{"n": float64(1)}},
	}

	p := FromAPICases(cases)
	require.Len(t, p.APICases, 2)

	// Indices are sequential regardless of case ids.
	assert.Equal(t, 0, p.APICases[0].Index)
	assert.Equal(t, 1, p.APICases[1].Index)

	// Missing maps become explicit empty defaults.
	first := p.APICases[0]
	assert.NotNil(t, first.Headers)
	assert.NotNil(t, first.Params)
	assert.NotNil(t, first.Body)
	assert.NotNil(t, first.Expected)
	assert.Empty(t, first.Headers)

	assert.Equal(t, "t", p.APICases[1].Headers["X-Token"])
	assert.Equal(t, models.TestTypeAPI, p.Type)
	assert.Equal(t, 2, p.CaseCount())
}

func TestFromUICasesStepPassThrough(t *testing.T) {
	cases := []models.UICase{
		{
			CaseName: "login flow",
			BaseURL:  "http://app.local",
			Record:   true,
			Steps: models.StepList{
				{"action": "click", "selector": "#login"},
				{"action": "wait", "timeout_ms": float64(500)},
			},
		},
		{CaseName: "scripted", BaseURL: "http://app.local", ScriptContent: "document.title"},
	}

	p := FromUICases(cases)
	require.Len(t, p.UICases, 2)
	assert.True(t, p.UICases[0].Record)
	require.Len(t, p.UICases[0].Steps, 2)
	assert.Equal(t, "click", p.UICases[0].Steps[0].Action)
	assert.Equal(t, "#login", p.UICases[0].Steps[0].Selector)
	assert.Equal(t, 500, p.UICases[0].Steps[1].TimeoutMS)
	assert.Equal(t, "document.title", p.UICases[1].Script)
	assert.False(t, p.UICases[1].Record)
}

func TestFromLoadDefaults(t *testing.T) {
	p := FromLoad(LoadSpec{TargetURL: "http://svc"})
	require.NotNil(t, p.Load)
	assert.Equal(t, 10, p.Load.Users)
	assert.Equal(t, 2, p.Load.SpawnRate)
	assert.Equal(t, "1m", p.Load.RunTime)
	assert.Equal(t, 1, p.CaseCount())
}

func TestWriteRead(t *testing.T) {
	p := FromAPICases([]models.APICase{
		{CaseName: "c", Method: "GET", URL: "http://a?x=1&y=2"},
	})
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, p.Write(path))

	got, err := Read(path)
	require.NoError(t, err)
	require.Len(t, got.APICases, 1)
	assert.Equal(t, "http://a?x=1&y=2", got.APICases[0].URL)
	assert.Equal(t, p.Type, got.Type)
}
