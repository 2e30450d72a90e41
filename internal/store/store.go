// Package store persists user accounts in Postgres.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/open-sspm/useradmin/internal/users"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrEmailTaken     = errors.New("email already in use")
	ErrAdminProtected = errors.New("admin users cannot be deleted")
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db DBTX
}

func New(db DBTX) *Store {
	return &Store{db: db}
}

type CreateUserParams struct {
	Name         string
	Email        string
	PasswordHash string
	IsAdmin      bool
}

const userColumns = `id, name, email, is_admin`

func scanUser(row pgx.Row) (users.User, error) {
	var u users.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.IsAdmin); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return users.User{}, ErrNotFound
		}
		return users.User{}, err
	}
	return u, nil
}

// ListUsers returns every user in creation order.
func (s *Store) ListUsers(ctx context.Context) ([]users.User, error) {
	rows, err := s.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]users.User, 0)
	for rows.Next() {
		var u users.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.IsAdmin); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) GetUser(ctx context.Context, id string) (users.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return users.User{}, ErrNotFound
	}
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) GetUserCredentials(ctx context.Context, email string) (users.User, string, error) {
	var (
		u    users.User
		hash string
	)
	err := s.db.QueryRow(ctx,
		`SELECT `+userColumns+`, password_hash FROM users WHERE lower(email) = $1`,
		users.NormalizeEmail(email),
	).Scan(&u.ID, &u.Name, &u.Email, &u.IsAdmin, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return users.User{}, "", ErrNotFound
		}
		return users.User{}, "", err
	}
	return u, hash, nil
}

func (s *Store) CreateUser(ctx context.Context, arg CreateUserParams) (users.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `
		INSERT INTO users (id, name, email, password_hash, is_admin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		uuid.NewString(),
		strings.TrimSpace(arg.Name),
		users.NormalizeEmail(arg.Email),
		arg.PasswordHash,
		arg.IsAdmin,
	))
	if isUniqueViolation(err) {
		return users.User{}, ErrEmailTaken
	}
	return u, err
}

// UpdateUser writes the non-blank fields of arg and returns the stored row.
func (s *Store) UpdateUser(ctx context.Context, id string, arg users.UpdateParams) (users.User, error) {
	arg = arg.Normalize()
	u, err := scanUser(s.db.QueryRow(ctx, `
		UPDATE users
		SET name = COALESCE(NULLIF($2, ''), name),
		    email = COALESCE(NULLIF($3, ''), email),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		strings.TrimSpace(id), arg.Name, arg.Email,
	))
	if isUniqueViolation(err) {
		return users.User{}, ErrEmailTaken
	}
	return u, err
}

// DeleteUser removes a non-admin user.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	tag, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1 AND NOT is_admin`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	u, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if u.IsAdmin {
		return ErrAdminProtected
	}
	return ErrNotFound
}

func (s *Store) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM users WHERE is_admin`).Scan(&n)
	return n, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
