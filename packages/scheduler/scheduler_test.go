package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tessera-qa/tessera/packages/exec"
	"github.com/tessera-qa/tessera/packages/models"
	"github.com/tessera-qa/tessera/packages/plan"
	"github.com/tessera-qa/tessera/packages/result"
	"github.com/tessera-qa/tessera/packages/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedReport(t *testing.T, s *store.Store) *models.Report {
	t.Helper()
	user, err := s.CreateUser("alice", "hash")
	require.NoError(t, err)
	project, err := s.CreateProject(user.ID, "p", models.TestTypeAPI)
	require.NoError(t, err)
	report, err := s.CreateReport(project.ID, "API_Test_sched", models.TestTypeAPI)
	require.NoError(t, err)
	return report
}

func waitForStatus(t *testing.T, s *store.Store, reportID int64, status string) *models.Report {
	t.Helper()
	var got *models.Report
	require.Eventually(t, func() bool {
		r, err := s.ReportByID(reportID)
		if err != nil {
			return false
		}
		got = r
		return r.Status == status
	}, 5*time.Second, 10*time.Millisecond)
	return got
}

func TestProcessCompletesReport(t *testing.T) {
	s := newTestStore(t)
	report := seedReport(t, s)

	run := func(_ context.Context, _ plan.Plan) (exec.RunResult, error) {
		return exec.RunResult{
			ReportDir: "/reports/api/run/report",
			Summary:   result.Summary{Passed: 2, Total: 3},
		}, nil
	}
	sched := New(zap.NewNop(), s, run, Options{Workers: 1})
	sched.Start()
	defer sched.Close()

	require.NoError(t, sched.Dispatch(report.ID, plan.Plan{Type: models.TestTypeAPI}))

	got := waitForStatus(t, s, report.ID, models.ReportCompleted)
	require.NotNil(t, got.ReportPath)
	assert.Equal(t, "/reports/api/run/report", *got.ReportPath)
	assert.Equal(t, 2, got.Passed)
	assert.Equal(t, 3, got.Total)
}

func TestProcessFailsReportOnFault(t *testing.T) {
	s := newTestStore(t)
	report := seedReport(t, s)

	run := func(_ context.Context, _ plan.Plan) (exec.RunResult, error) {
		return exec.RunResult{}, context.DeadlineExceeded
	}
	sched := New(zap.NewNop(), s, run, Options{Workers: 1})
	sched.Start()
	defer sched.Close()

	require.NoError(t, sched.Dispatch(report.ID, plan.Plan{Type: models.TestTypeAPI}))

	got := waitForStatus(t, s, report.ID, models.ReportFailed)
	assert.Nil(t, got.ReportPath)
}

func TestProcessFailsReportOnInterpreterCrash(t *testing.T) {
	s := newTestStore(t)
	report := seedReport(t, s)

	run := func(_ context.Context, _ plan.Plan) (exec.RunResult, error) {
		return exec.RunResult{ExitCode: 2, ReportDir: "/reports/api/run/report"}, nil
	}
	sched := New(zap.NewNop(), s, run, Options{Workers: 1})
	sched.Start()
	defer sched.Close()

	require.NoError(t, sched.Dispatch(report.ID, plan.Plan{Type: models.TestTypeAPI}))

	got := waitForStatus(t, s, report.ID, models.ReportFailed)
	require.NotNil(t, got.ReportPath)
	assert.Equal(t, "/reports/api/run/report", *got.ReportPath)
}

func TestWorkerSurvivesPanic(t *testing.T) {
	s := newTestStore(t)
	first := seedReport(t, s)
	second, err := s.CreateReport(first.ProjectID, "API_Test_after", models.TestTypeAPI)
	require.NoError(t, err)

	calls := 0
	run := func(_ context.Context, _ plan.Plan) (exec.RunResult, error) {
		calls++
		if calls == 1 {
			panic("pipeline blew up")
		}
		return exec.RunResult{ReportDir: "/ok", Summary: result.Summary{Passed: 1, Total: 1}}, nil
	}
	sched := New(zap.NewNop(), s, run, Options{Workers: 1})
	sched.Start()
	defer sched.Close()

	require.NoError(t, sched.Dispatch(first.ID, plan.Plan{Type: models.TestTypeAPI}))
	require.NoError(t, sched.Dispatch(second.ID, plan.Plan{Type: models.TestTypeAPI}))

	waitForStatus(t, s, first.ID, models.ReportFailed)
	waitForStatus(t, s, second.ID, models.ReportCompleted)
}

func TestCloseFailsQueuedJobs(t *testing.T) {
	s := newTestStore(t)
	report := seedReport(t, s)

	// Never started: the dispatched job sits in the queue until Close.
	sched := New(zap.NewNop(), s, nil, Options{Workers: 1, QueueSize: 4})
	require.NoError(t, sched.Dispatch(report.ID, plan.Plan{Type: models.TestTypeAPI}))
	sched.Close()

	got, err := s.ReportByID(report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFailed, got.Status)
}

func TestDispatchFailsFastWhenQueueFull(t *testing.T) {
	s := newTestStore(t)
	first := seedReport(t, s)
	second, err := s.CreateReport(first.ProjectID, "API_Test_overflow", models.TestTypeAPI)
	require.NoError(t, err)

	// No workers started: the queue holds exactly one job.
	sched := New(zap.NewNop(), s, nil, Options{Workers: 1, QueueSize: 1})

	require.NoError(t, sched.Dispatch(first.ID, plan.Plan{Type: models.TestTypeAPI}))
	err = sched.Dispatch(second.ID, plan.Plan{Type: models.TestTypeAPI})
	assert.Equal(t, ErrQueueFull, err)

	// The overflowed report is reconciled immediately.
	got, err := s.ReportByID(second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFailed, got.Status)

	// The queued one is untouched.
	got, err = s.ReportByID(first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportRunning, got.Status)
}
