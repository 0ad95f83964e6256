package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/avolkov/authd/internal/errs"
	"github.com/avolkov/authd/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func testUser() *model.User {
	return &model.User{
		ID:           uuid.Must(uuid.NewV4()),
		Username:     "kelvin",
		Email:        "kelvin@example.com",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=1$c2FsdA$aGFzaA",
		CreatedAt:    time.Now().UTC(),
	}
}

func TestUserRepo_Create_OK_and_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	u := testUser()

	mock.ExpectExec(`INSERT INTO users \(id, username, email, password_hash, created_at\) VALUES \(\$1, \$2, \$3, \$4, \$5\)`).
		WithArgs(u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, u))

	mock.ExpectExec(`INSERT INTO users \(id, username, email, password_hash, created_at\) VALUES \(\$1, \$2, \$3, \$4, \$5\)`).
		WithArgs(u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	err := r.Create(ctx, u)
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Lookups(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	u := testUser()

	cols := []string{"id", "username", "email", "password_hash", "created_at"}

	mock.ExpectQuery(`SELECT id, username, email, password_hash, created_at FROM users WHERE id=\$1`).
		WithArgs(u.ID).
		WillReturnRows(pgxmock.NewRows(cols).AddRow(u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt))
	got, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Username, got.Username)

	mock.ExpectQuery(`SELECT id, username, email, password_hash, created_at FROM users WHERE username=\$1`).
		WithArgs(u.Username).
		WillReturnRows(pgxmock.NewRows(cols).AddRow(u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt))
	got, err = r.GetByUsername(ctx, u.Username)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	mock.ExpectQuery(`SELECT id, username, email, password_hash, created_at FROM users WHERE email=\$1`).
		WithArgs(u.Email).
		WillReturnRows(pgxmock.NewRows(cols).AddRow(u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt))
	got, err = r.GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	mock.ExpectQuery(`SELECT id, username, email, password_hash, created_at FROM users WHERE username=\$1`).
		WithArgs("nobody").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByUsername(ctx, "nobody")
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_UpdatePassword(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`UPDATE users SET password_hash=\$2 WHERE id=\$1`).
		WithArgs(id, "new-hash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.UpdatePassword(ctx, id, "new-hash"))

	mock.ExpectExec(`UPDATE users SET password_hash=\$2 WHERE id=\$1`).
		WithArgs(id, "new-hash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	err := r.UpdatePassword(ctx, id, "new-hash")
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
