package store

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/tessera-qa/tessera/packages/models"
)

// ErrCaseMismatch is returned when a business flow references a case id that
// does not exist in its project with the flow's test type.
var ErrCaseMismatch = errors.New("case ids must belong to the flow's project and test type")

func (s *Store) CreateBusinessFlow(f *models.BusinessFlow) (*models.BusinessFlow, error) {
	if err := s.checkFlowCases(f); err != nil {
		return nil, err
	}
	res, err := s.db.Exec(
		`INSERT INTO business_flow (project_id, flow_name, test_type, case_ids)
		 VALUES (?, ?, ?, ?)`,
		f.ProjectID, f.FlowName, f.TestType, f.CaseIDs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "create business flow")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "create business flow id")
	}
	return s.BusinessFlowByID(id)
}

func (s *Store) BusinessFlowByID(id int64) (*models.BusinessFlow, error) {
	var f models.BusinessFlow
	err := s.db.QueryRow(
		`SELECT id, project_id, flow_name, test_type, case_ids, created_at
		 FROM business_flow WHERE id = ?`, id,
	).Scan(&f.ID, &f.ProjectID, &f.FlowName, &f.TestType, &f.CaseIDs, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan business flow")
	}
	return &f, nil
}

func (s *Store) BusinessFlowsByProject(projectID int64, testType string) ([]models.BusinessFlow, error) {
	rows, err := s.db.Query(
		`SELECT id, project_id, flow_name, test_type, case_ids, created_at
		 FROM business_flow WHERE project_id = ? AND test_type = ? ORDER BY id`,
		projectID, testType,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list business flows")
	}
	defer rows.Close()

	flows := make([]models.BusinessFlow, 0)
	for rows.Next() {
		var f models.BusinessFlow
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.FlowName, &f.TestType, &f.CaseIDs, &f.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan business flow")
		}
		flows = append(flows, f)
	}
	return flows, errors.Wrap(rows.Err(), "list business flows")
}

func (s *Store) DeleteBusinessFlow(id int64) error {
	res, err := s.db.Exec(`DELETE FROM business_flow WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete business flow")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// checkFlowCases verifies every referenced case id exists in the flow's
// project under the flow's test type.
func (s *Store) checkFlowCases(f *models.BusinessFlow) error {
	if len(f.CaseIDs) == 0 {
		return nil
	}
	table := "api_info"
	if f.TestType == models.TestTypeUI {
		table = "ui_info"
	}
	args, ph := idArgs(f.ProjectID, f.CaseIDs)
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(DISTINCT id) FROM `+table+` WHERE project_id = ? AND id IN (`+ph+`)`,
		args...,
	).Scan(&n)
	if err != nil {
		return errors.Wrap(err, "check flow cases")
	}
	if n != len(uniqueIDs(f.CaseIDs)) {
		return ErrCaseMismatch
	}
	return nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
