package render

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-qa/tessera/packages/models"
	"github.com/tessera-qa/tessera/packages/result"
)

func TestRenderWritesIndexHTML(t *testing.T) {
	resultsDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "report")

	w, err := result.NewWriter(resultsDir)
	require.NoError(t, err)

	started := time.Now().UTC().Add(-time.Minute)
	stopped := time.Now().UTC()
	cases := []result.CaseResult{
		{
			Index: 0, Name: "get health", Status: result.StatusPassed,
			Steps:     []result.Step{{Name: "send GET request to http://x/health", Status: result.StatusPassed}},
			StartedAt: started, DurationMS: 120,
		},
		{
			Index: 1, Name: "create order", Status: result.StatusFailed,
			Steps: []result.Step{{
				Name:   "verify response data",
				Status: result.StatusFailed,
				Detail: `key "status": expected ok, got error`,
			}},
			StartedAt: started, DurationMS: 340,
		},
	}
	for _, cr := range cases {
		require.NoError(t, w.WriteCase(cr))
	}
	require.NoError(t, w.WriteSummary(result.Summarize(models.TestTypeAPI, started, stopped, cases)))

	require.NoError(t, Render(resultsDir, outDir))

	b, err := os.ReadFile(filepath.Join(outDir, "index.html"))
	require.NoError(t, err)
	html := string(b)
	assert.Contains(t, html, "get health")
	assert.Contains(t, html, "create order")
	assert.Contains(t, html, "1/2 passed")
	assert.Contains(t, html, "verify response data")
	assert.Contains(t, html, "expected ok, got error")
}

func TestRenderMissingSummaryFails(t *testing.T) {
	err := Render(t.TempDir(), filepath.Join(t.TempDir(), "report"))
	require.Error(t, err)
}
