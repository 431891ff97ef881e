package runner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-qa/tessera/packages/plan"
	"github.com/tessera-qa/tessera/packages/result"
)

func TestRunLoadCountsRequests(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := newTestRunner(t)
	spec := &plan.LoadSpec{TargetURL: srv.URL, Users: 2, SpawnRate: 10, RunTime: "300ms"}
	cr := r.runLoad(context.Background(), spec)

	assert.Equal(t, result.StatusPassed, cr.Status)
	assert.Positive(t, atomic.LoadInt64(&hits))

	require.NotEmpty(t, cr.Attachments)
	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(cr.Attachments[0].Body), &stats))
	assert.Equal(t, srv.URL, stats["target_url"])
	assert.Positive(t, stats["requests"].(float64))
	assert.Zero(t, stats["failures"].(float64))
}

func TestRunLoadAllFailuresFails(t *testing.T) {
	r := newTestRunner(t)
	spec := &plan.LoadSpec{TargetURL: "http://127.0.0.1:1/", Users: 1, SpawnRate: 5, RunTime: "200ms"}
	cr := r.runLoad(context.Background(), spec)
	assert.Equal(t, result.StatusFailed, cr.Status)
}

func TestRunLoadBadRunTimeIsBroken(t *testing.T) {
	r := newTestRunner(t)
	spec := &plan.LoadSpec{TargetURL: "http://x", Users: 1, SpawnRate: 1, RunTime: "soon"}
	cr := r.runLoad(context.Background(), spec)
	assert.Equal(t, result.StatusBroken, cr.Status)
}
