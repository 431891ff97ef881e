package store

import (
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/tessera-qa/tessera/packages/models"
)

const apiCaseCols = `id, project_id, case_name, method, url, headers, params, body, expected_data, created_at`

func (s *Store) CreateAPICase(c *models.APICase) (*models.APICase, error) {
	res, err := s.db.Exec(
		`INSERT INTO api_info (project_id, case_name, method, url, headers, params, body, expected_data)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ProjectID, c.CaseName, c.Method, c.URL, c.Headers, c.Params, c.Body, c.ExpectedData,
	)
	if err != nil {
		return nil, errors.Wrap(err, "create api case")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "create api case id")
	}
	return s.APICaseByID(id)
}

func (s *Store) APICaseByID(id int64) (*models.APICase, error) {
	return scanAPICase(s.db.QueryRow(
		`SELECT `+apiCaseCols+` FROM api_info WHERE id = ?`, id))
}

func (s *Store) APICasesByProject(projectID int64) ([]models.APICase, error) {
	return s.apiCaseRows(
		`SELECT `+apiCaseCols+` FROM api_info WHERE project_id = ? ORDER BY id`, projectID)
}

// APICasesByIDs resolves the given case ids within one project, preserving
// the requested order. Ids that do not exist in the project are skipped.
func (s *Store) APICasesByIDs(projectID int64, ids []int64) ([]models.APICase, error) {
	if len(ids) == 0 {
		return []models.APICase{}, nil
	}
	args, ph := idArgs(projectID, ids)
	cases, err := s.apiCaseRows(
		`SELECT `+apiCaseCols+` FROM api_info WHERE project_id = ? AND id IN (`+ph+`)`, args...)
	if err != nil {
		return nil, err
	}
	return orderByRequest(cases, ids, func(c models.APICase) int64 { return c.ID }), nil
}

func (s *Store) UpdateAPICase(c *models.APICase) (*models.APICase, error) {
	res, err := s.db.Exec(
		`UPDATE api_info SET case_name = ?, method = ?, url = ?, headers = ?, params = ?, body = ?, expected_data = ?
		 WHERE id = ?`,
		c.CaseName, c.Method, c.URL, c.Headers, c.Params, c.Body, c.ExpectedData, c.ID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "update api case")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.APICaseByID(c.ID)
}

func (s *Store) DeleteAPICase(id int64) error {
	res, err := s.db.Exec(`DELETE FROM api_info WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete api case")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) apiCaseRows(query string, args ...any) ([]models.APICase, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query api cases")
	}
	defer rows.Close()

	cases := make([]models.APICase, 0)
	for rows.Next() {
		var c models.APICase
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.CaseName, &c.Method, &c.URL,
			&c.Headers, &c.Params, &c.Body, &c.ExpectedData, &c.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan api case")
		}
		cases = append(cases, c)
	}
	return cases, errors.Wrap(rows.Err(), "query api cases")
}

func scanAPICase(row *sql.Row) (*models.APICase, error) {
	var c models.APICase
	err := row.Scan(&c.ID, &c.ProjectID, &c.CaseName, &c.Method, &c.URL,
		&c.Headers, &c.Params, &c.Body, &c.ExpectedData, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan api case")
	}
	return &c, nil
}

const uiCaseCols = `id, project_id, case_name, base_url, script_content, steps, record, created_at`

func (s *Store) CreateUICase(c *models.UICase) (*models.UICase, error) {
	res, err := s.db.Exec(
		`INSERT INTO ui_info (project_id, case_name, base_url, script_content, steps, record)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ProjectID, c.CaseName, c.BaseURL, c.ScriptContent, c.Steps, c.Record,
	)
	if err != nil {
		return nil, errors.Wrap(err, "create ui case")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "create ui case id")
	}
	return s.UICaseByID(id)
}

func (s *Store) UICaseByID(id int64) (*models.UICase, error) {
	return scanUICase(s.db.QueryRow(
		`SELECT `+uiCaseCols+` FROM ui_info WHERE id = ?`, id))
}

func (s *Store) UICasesByProject(projectID int64) ([]models.UICase, error) {
	return s.uiCaseRows(
		`SELECT `+uiCaseCols+` FROM ui_info WHERE project_id = ? ORDER BY id`, projectID)
}

func (s *Store) UICasesByIDs(projectID int64, ids []int64) ([]models.UICase, error) {
	if len(ids) == 0 {
		return []models.UICase{}, nil
	}
	args, ph := idArgs(projectID, ids)
	cases, err := s.uiCaseRows(
		`SELECT `+uiCaseCols+` FROM ui_info WHERE project_id = ? AND id IN (`+ph+`)`, args...)
	if err != nil {
		return nil, err
	}
	return orderByRequest(cases, ids, func(c models.UICase) int64 { return c.ID }), nil
}

func (s *Store) UpdateUICase(c *models.UICase) (*models.UICase, error) {
	res, err := s.db.Exec(
		`UPDATE ui_info SET case_name = ?, base_url = ?, script_content = ?, steps = ?, record = ?
		 WHERE id = ?`,
		c.CaseName, c.BaseURL, c.ScriptContent, c.Steps, c.Record, c.ID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "update ui case")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.UICaseByID(c.ID)
}

func (s *Store) DeleteUICase(id int64) error {
	res, err := s.db.Exec(`DELETE FROM ui_info WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete ui case")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) uiCaseRows(query string, args ...any) ([]models.UICase, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query ui cases")
	}
	defer rows.Close()

	cases := make([]models.UICase, 0)
	for rows.Next() {
		var c models.UICase
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.CaseName, &c.BaseURL,
			&c.ScriptContent, &c.Steps, &c.Record, &c.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan ui case")
		}
		cases = append(cases, c)
	}
	return cases, errors.Wrap(rows.Err(), "query ui cases")
}

func scanUICase(row *sql.Row) (*models.UICase, error) {
	var c models.UICase
	err := row.Scan(&c.ID, &c.ProjectID, &c.CaseName, &c.BaseURL,
		&c.ScriptContent, &c.Steps, &c.Record, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan ui case")
	}
	return &c, nil
}

func idArgs(projectID int64, ids []int64) ([]any, string) {
	args := make([]any, 0, len(ids)+1)
	args = append(args, projectID)
	ph := make([]string, len(ids))
	for i, id := range ids {
		ph[i] = "?"
		args = append(args, id)
	}
	return args, strings.Join(ph, ",")
}

func orderByRequest[T any](got []T, ids []int64, key func(T) int64) []T {
	byID := make(map[int64]T, len(got))
	for _, c := range got {
		byID[key(c)] = c
	}
	ordered := make([]T, 0, len(got))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
		}
	}
	return ordered
}
