package userRepo_test

import (
	"context"
	"testing"
	"time"

	"project-submission/internal/errs"
	"project-submission/internal/model/user"
	"project-submission/internal/repository/userRepo"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userCols = []string{"id", "username", "email", "password_hash", "secret_key", "roles", "avatar_path", "avatar_mime", "created_at"}

func newRepo(t *testing.T) (*userRepo.UserRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return userRepo.New(mock), mock
}

func TestUserRepo_Create(t *testing.T) {
	repo, mock := newRepo(t)
	ctx := context.Background()
	now := time.Now()
	u := &user.User{Username: "jdoe", Email: "jdoe@example.com", Password: "hash", SecretKey: "abc123", Roles: []string{user.RoleProjectOwner}}

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("jdoe", "jdoe@example.com", "hash", "abc123", []string{user.RoleProjectOwner}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(uint32(5), now))
	require.NoError(t, repo.Create(ctx, u))
	assert.Equal(t, uint32(5), u.ID)
	assert.Equal(t, now, u.CreatedAt)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("jdoe", "jdoe@example.com", "hash", "abc123", []string{user.RoleProjectOwner}).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	assert.ErrorIs(t, repo.Create(ctx, u), errs.ErrAlreadyExists)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByID(t *testing.T) {
	repo, mock := newRepo(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id=\$1`).
		WithArgs(uint32(5)).
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(uint32(5), "jdoe", "jdoe@example.com", "hash", "abc123", []string{user.RoleProjectOwner}, "", "", now))
	u, err := repo.GetByID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "jdoe", u.Username)
	assert.Equal(t, "abc123", u.SecretKey)
	assert.True(t, u.HasRole(user.RoleProjectOwner))

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id=\$1`).
		WithArgs(uint32(6)).
		WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetByID(ctx, 6)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByEmailAndUsername(t *testing.T) {
	repo, mock := newRepo(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery(`FROM users WHERE lower\(email\)=lower\(\$1\)`).
		WithArgs("JDoe@Example.com").
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(uint32(5), "jdoe", "jdoe@example.com", "hash", "", []string{}, "", "", now))
	u, err := repo.GetByEmail(ctx, "JDoe@Example.com")
	require.NoError(t, err)
	assert.Equal(t, uint32(5), u.ID)

	mock.ExpectQuery(`FROM users WHERE username=\$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Exists(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("jdoe", "jdoe@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	exists, err := repo.Exists(context.Background(), "jdoe", "jdoe@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_SetAvatar(t *testing.T) {
	repo, mock := newRepo(t)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE users SET avatar_path`).
		WithArgs(uint32(5), "/srv/uploads/a.png", "image/png").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.SetAvatar(ctx, 5, "/srv/uploads/a.png", "image/png"))

	mock.ExpectExec(`UPDATE users SET avatar_path`).
		WithArgs(uint32(9), "/srv/uploads/a.png", "image/png").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, repo.SetAvatar(ctx, 9, "/srv/uploads/a.png", "image/png"), errs.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_AddRole(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec(`UPDATE users SET roles = array_append`).
		WithArgs(uint32(1), user.RoleAdministrator).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.AddRole(context.Background(), 1, user.RoleAdministrator))

	assert.NoError(t, mock.ExpectationsWereMet())
}
