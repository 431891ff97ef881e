package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-qa/tessera/packages/models"
)

func TestReportLifecycle(t *testing.T) {
	s := newTestStore(t)
	_, project := seedUserProject(t, s, "alice", models.TestTypeAPI)

	report, err := s.CreateReport(project.ID, "API_Test_abc123", models.TestTypeAPI)
	require.NoError(t, err)
	assert.Equal(t, models.ReportRunning, report.Status)
	assert.Nil(t, report.ReportPath)

	require.NoError(t, s.CompleteReport(report.ID, "/reports/api/x/report", 3, 4))

	got, err := s.ReportByID(report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportCompleted, got.Status)
	require.NotNil(t, got.ReportPath)
	assert.Equal(t, "/reports/api/x/report", *got.ReportPath)
	assert.Equal(t, 3, got.Passed)
	assert.Equal(t, 4, got.Total)

	// Terminal states are one-shot: a later failure cannot overwrite.
	err = s.FailReport(report.ID, nil)
	assert.Equal(t, ErrNotFound, err)

	got, err = s.ReportByID(report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportCompleted, got.Status)
}

func TestFailReportKeepsPathUnset(t *testing.T) {
	s := newTestStore(t)
	_, project := seedUserProject(t, s, "alice", models.TestTypeAPI)

	report, err := s.CreateReport(project.ID, "API_Test_def456", models.TestTypeAPI)
	require.NoError(t, err)

	require.NoError(t, s.FailReport(report.ID, nil))

	got, err := s.ReportByID(report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFailed, got.Status)
	assert.Nil(t, got.ReportPath)
}

func TestSweepStaleReports(t *testing.T) {
	s := newTestStore(t)
	_, project := seedUserProject(t, s, "alice", models.TestTypeAPI)

	stale, err := s.CreateReport(project.ID, "API_Test_old", models.TestTypeAPI)
	require.NoError(t, err)
	done, err := s.CreateReport(project.ID, "API_Test_done", models.TestTypeAPI)
	require.NoError(t, err)
	require.NoError(t, s.CompleteReport(done.ID, "/some/report", 1, 1))

	// Everything created so far is older than a future cutoff.
	n, err := s.SweepStaleReports(time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.ReportByID(stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFailed, got.Status)

	// The completed report is untouched by the sweep.
	got, err = s.ReportByID(done.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportCompleted, got.Status)
}

func TestDeleteReport(t *testing.T) {
	s := newTestStore(t)
	_, project := seedUserProject(t, s, "alice", models.TestTypeAPI)

	report, err := s.CreateReport(project.ID, "API_Test_gone", models.TestTypeAPI)
	require.NoError(t, err)
	require.NoError(t, s.DeleteReport(report.ID))

	_, err = s.ReportByID(report.ID)
	assert.Equal(t, ErrNotFound, err)
	assert.Equal(t, ErrNotFound, s.DeleteReport(report.ID))
}

func TestReportsByProjectFiltersType(t *testing.T) {
	s := newTestStore(t)
	_, project := seedUserProject(t, s, "alice", models.TestTypeAPI)

	_, err := s.CreateReport(project.ID, "API_Test_1", models.TestTypeAPI)
	require.NoError(t, err)
	_, err = s.CreateReport(project.ID, "UI_Test_1", models.TestTypeUI)
	require.NoError(t, err)

	reports, err := s.ReportsByProject(project.ID, models.TestTypeAPI)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "API_Test_1", reports[0].ReportName)
}
