package result

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	// Written out of order, read back by index.
	require.NoError(t, w.WriteCase(CaseResult{Index: 2, Name: "third", Status: StatusFailed}))
	require.NoError(t, w.WriteCase(CaseResult{Index: 0, Name: "first", Status: StatusPassed}))
	require.NoError(t, w.WriteCase(CaseResult{Index: 1, Name: "second", Status: StatusBroken}))

	cases, err := ReadCases(dir)
	require.NoError(t, err)
	require.Len(t, cases, 3)
	assert.Equal(t, "first", cases[0].Name)
	assert.Equal(t, "second", cases[1].Name)
	assert.Equal(t, "third", cases[2].Name)

	s := Summarize("api", time.Now(), time.Now(), cases)
	require.NoError(t, w.WriteSummary(s))
	got, err := ReadSummary(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Passed)
	assert.Equal(t, 1, got.Failed)
	assert.Equal(t, 1, got.Broken)
	assert.Equal(t, 3, got.Total)
}

func TestMarshalKeepsURLsReadable(t *testing.T) {
	b, err := Marshal(map[string]string{"url": "http://x?a=1&b=2"})
	require.NoError(t, err)
	assert.Contains(t, string(b), "a=1&b=2")
	assert.NotContains(t, string(b), "u0026")
}
