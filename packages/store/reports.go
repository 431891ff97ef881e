package store

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/tessera-qa/tessera/packages/models"
)

const reportCols = `id, project_id, report_name, test_type, status, report_path, passed, total, created_at`

// CreateReport inserts a report in the running state. Reports are created
// before their background run is dispatched, 1:1 with that run.
func (s *Store) CreateReport(projectID int64, name, testType string) (*models.Report, error) {
	res, err := s.db.Exec(
		`INSERT INTO test_reports (project_id, report_name, test_type, status)
		 VALUES (?, ?, ?, ?)`,
		projectID, name, testType, models.ReportRunning,
	)
	if err != nil {
		return nil, errors.Wrap(err, "create report")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "create report id")
	}
	return s.ReportByID(id)
}

func (s *Store) ReportByID(id int64) (*models.Report, error) {
	return scanReport(s.db.QueryRow(
		`SELECT `+reportCols+` FROM test_reports WHERE id = ?`, id))
}

// ReportInProject resolves a report within a project (for ownership chains).
func (s *Store) ReportInProject(id, projectID int64) (*models.Report, error) {
	return scanReport(s.db.QueryRow(
		`SELECT `+reportCols+` FROM test_reports WHERE id = ? AND project_id = ?`,
		id, projectID))
}

func (s *Store) ReportsByProject(projectID int64, testType string) ([]models.Report, error) {
	rows, err := s.db.Query(
		`SELECT `+reportCols+` FROM test_reports
		 WHERE project_id = ? AND test_type = ? ORDER BY created_at DESC, id DESC`,
		projectID, testType,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list reports")
	}
	defer rows.Close()

	reports := make([]models.Report, 0)
	for rows.Next() {
		r, err := scanReportRows(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, errors.Wrap(rows.Err(), "list reports")
}

// CompleteReport moves a running report to completed with its rendered
// artifact path and pass counters. Terminal reports are left untouched.
func (s *Store) CompleteReport(id int64, reportPath string, passed, total int) error {
	return s.finishReport(id, models.ReportCompleted, &reportPath, passed, total)
}

// FailReport moves a running report to failed. The artifact path is set only
// when phase-1 results were produced before the failure.
func (s *Store) FailReport(id int64, reportPath *string) error {
	return s.finishReport(id, models.ReportFailed, reportPath, 0, 0)
}

func (s *Store) finishReport(id int64, status string, reportPath *string, passed, total int) error {
	// The status guard makes the running -> terminal transition one-shot:
	// a second finish, or the stale-report sweep, cannot overwrite it.
	res, err := s.db.Exec(
		`UPDATE test_reports SET status = ?, report_path = COALESCE(?, report_path), passed = ?, total = ?
		 WHERE id = ? AND status = ?`,
		status, reportPath, passed, total, id, models.ReportRunning,
	)
	if err != nil {
		return errors.Wrap(err, "finish report")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SweepStaleReports fails reports stuck in running since before cutoff.
// Covers crashes between subprocess completion and reconciliation.
func (s *Store) SweepStaleReports(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(
		`UPDATE test_reports SET status = ? WHERE status = ? AND created_at < ?`,
		models.ReportFailed, models.ReportRunning, cutoff.UTC(),
	)
	if err != nil {
		return 0, errors.Wrap(err, "sweep stale reports")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) DeleteReport(id int64) error {
	res, err := s.db.Exec(`DELETE FROM test_reports WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete report")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row *sql.Row) (*models.Report, error) {
	r, err := scanReportFrom(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return r, err
}

func scanReportRows(rows *sql.Rows) (*models.Report, error) {
	return scanReportFrom(rows)
}

func scanReportFrom(row rowScanner) (*models.Report, error) {
	var (
		r    models.Report
		path sql.NullString
	)
	err := row.Scan(&r.ID, &r.ProjectID, &r.ReportName, &r.TestType, &r.Status,
		&path, &r.Passed, &r.Total, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan report")
	}
	if path.Valid {
		r.ReportPath = &path.String
	}
	return &r, nil
}
