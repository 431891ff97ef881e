package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-qa/tessera/packages/plan"
)

func TestTraceDirDistinctPerCase(t *testing.T) {
	a := TraceDir("/artifacts", 0)
	b := TraceDir("/artifacts", 1)
	assert.NotEqual(t, a, b)
	assert.Equal(t, "/artifacts/trace_0", a)
	assert.Equal(t, "/artifacts/trace_1", b)
}

func TestStepActionMapping(t *testing.T) {
	known := []plan.UIStep{
		{Action: "navigate", Value: "http://x"},
		{Action: "click", Selector: "#btn"},
		{Action: "fill", Selector: "#name", Value: "alice"},
		{Action: "wait", Selector: "#spinner"},
		{Action: "wait", TimeoutMS: 100},
		{Action: "evaluate", Value: "1+1"},
	}
	for _, step := range known {
		action, err := stepAction(step)
		require.NoError(t, err, "action %q", step.Action)
		assert.NotNil(t, action)
	}

	_, err := stepAction(plan.UIStep{Action: "hover"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"hover"`)
}

func TestStepName(t *testing.T) {
	assert.Equal(t, "click #btn", stepName(plan.UIStep{Action: "click", Selector: "#btn"}))
	assert.Equal(t, "navigate", stepName(plan.UIStep{Action: "navigate", Value: "http://x"}))
}
