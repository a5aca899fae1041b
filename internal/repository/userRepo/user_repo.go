package userRepo

import (
	"context"
	"errors"
	"fmt"

	"project-submission/internal/errs"
	"project-submission/internal/model/user"
	"project-submission/pkg/database/postgres"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, email, password_hash, secret_key, roles, avatar_path, avatar_mime, created_at`

type UserRepo struct {
	db postgres.DB
}

func New(db postgres.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts u and fills its ID and CreatedAt.
func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	query := `INSERT INTO users (username, email, password_hash, secret_key, roles) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query, u.Username, u.Email, u.Password, u.SecretKey, u.Roles).Scan(&u.ID, &u.CreatedAt)
	if postgres.IsUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert user and retrieve id: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uint32) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email)=lower($1)`
	return r.scanOne(r.db.QueryRow(ctx, query, email))
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username=$1`
	return r.scanOne(r.db.QueryRow(ctx, query, username))
}

// Exists reports whether the username or the email is already registered.
func (r *UserRepo) Exists(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username=$1 OR lower(email)=lower($2))`,
		username, email).Scan(&exists)
	return exists, err
}

func (r *UserRepo) SetAvatar(ctx context.Context, id uint32, path, mime string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET avatar_path=$2, avatar_mime=$3 WHERE id=$1`, id, path, mime)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// AddRole grants role to the user unless it already holds it.
func (r *UserRepo) AddRole(ctx context.Context, id uint32, role string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET roles = array_append(roles, $2) WHERE id=$1 AND NOT ($2 = ANY(roles))`,
		id, role)
	return err
}

func (r *UserRepo) scanOne(row pgx.Row) (*user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.SecretKey, &u.Roles, &u.AvatarPath, &u.AvatarMime, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
