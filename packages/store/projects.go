package store

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/tessera-qa/tessera/packages/models"
)

func (s *Store) CreateProject(userID int64, name, testStyle string) (*models.Project, error) {
	res, err := s.db.Exec(
		`INSERT INTO project_info (project_name, test_style, user_id) VALUES (?, ?, ?)`,
		name, testStyle, userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "create project")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "create project id")
	}
	return s.projectRow(`SELECT id, project_name, test_style, user_id, created_at
		FROM project_info WHERE id = ?`, id)
}

// ProjectOwnedBy resolves a project only when it belongs to userID. An absent
// project and a project owned by someone else are both ErrNotFound.
func (s *Store) ProjectOwnedBy(projectID, userID int64) (*models.Project, error) {
	return s.projectRow(`SELECT id, project_name, test_style, user_id, created_at
		FROM project_info WHERE id = ? AND user_id = ?`, projectID, userID)
}

func (s *Store) ProjectsByUser(userID int64, offset, limit int) ([]models.Project, error) {
	rows, err := s.db.Query(
		`SELECT id, project_name, test_style, user_id, created_at
		 FROM project_info WHERE user_id = ? ORDER BY id LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list projects")
	}
	defer rows.Close()

	projects := make([]models.Project, 0)
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.ProjectName, &p.TestStyle, &p.UserID, &p.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan project")
		}
		projects = append(projects, p)
	}
	return projects, errors.Wrap(rows.Err(), "list projects")
}

func (s *Store) UpdateProject(projectID, userID int64, name, testStyle string) (*models.Project, error) {
	res, err := s.db.Exec(
		`UPDATE project_info SET project_name = ?, test_style = ?
		 WHERE id = ? AND user_id = ?`,
		name, testStyle, projectID, userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "update project")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.ProjectOwnedBy(projectID, userID)
}

func (s *Store) DeleteProject(projectID, userID int64) error {
	res, err := s.db.Exec(
		`DELETE FROM project_info WHERE id = ? AND user_id = ?`, projectID, userID)
	if err != nil {
		return errors.Wrap(err, "delete project")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) projectRow(query string, args ...any) (*models.Project, error) {
	var p models.Project
	err := s.db.QueryRow(query, args...).Scan(
		&p.ID, &p.ProjectName, &p.TestStyle, &p.UserID, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan project")
	}
	return &p, nil
}
