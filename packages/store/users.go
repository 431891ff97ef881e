package store

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/tessera-qa/tessera/packages/models"
)

func (s *Store) CreateUser(username, passwordHash string) (*models.User, error) {
	res, err := s.db.Exec(
		`INSERT INTO user_info (username, password_hash) VALUES (?, ?)`,
		username, passwordHash,
	)
	if err != nil {
		return nil, errors.Wrap(err, "create user")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "create user id")
	}
	return s.UserByID(id)
}

func (s *Store) UserByID(id int64) (*models.User, error) {
	return s.scanUser(s.db.QueryRow(
		`SELECT id, username, password_hash, avatar_path, created_at
		 FROM user_info WHERE id = ?`, id))
}

func (s *Store) UserByUsername(username string) (*models.User, error) {
	return s.scanUser(s.db.QueryRow(
		`SELECT id, username, password_hash, avatar_path, created_at
		 FROM user_info WHERE username = ?`, username))
}

func (s *Store) UpdateUser(id int64, username, passwordHash string) error {
	_, err := s.db.Exec(
		`UPDATE user_info SET username = ?, password_hash = ? WHERE id = ?`,
		username, passwordHash, id,
	)
	return errors.Wrap(err, "update user")
}

func (s *Store) UpdateAvatar(id int64, avatarPath string) error {
	_, err := s.db.Exec(
		`UPDATE user_info SET avatar_path = ? WHERE id = ?`, avatarPath, id)
	return errors.Wrap(err, "update avatar")
}

func (s *Store) scanUser(row *sql.Row) (*models.User, error) {
	var (
		u       models.User
		created time.Time
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.AvatarPath, &created)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan user")
	}
	u.CreatedAt = created
	return &u, nil
}
