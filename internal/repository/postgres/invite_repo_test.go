package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/mzyun/novelgate/internal/errs"
	"github.com/mzyun/novelgate/internal/model"
)

const consumeRe = `UPDATE invites SET used_by=\$2, used_at=\$3 WHERE code_hash=\$1 AND used_by IS NULL`

func TestInviteRepo_CreateBatch(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewInviteRepo(db)
	ctx := context.Background()

	invites := []*model.Invite{
		{CodeHash: []byte("h1"), Role: "editor", Permissions: []string{"write"}, ExpiresAt: time.Now().Add(time.Hour)},
		{CodeHash: []byte("h2"), Role: "reader", Permissions: []string{"read"}, ExpiresAt: time.Now().Add(time.Hour)},
	}

	mock.ExpectBegin()
	for _, inv := range invites {
		mock.ExpectExec(`INSERT INTO invites \(code_hash, role, permissions, expires_at, assigned_id\)`).
			WithArgs(inv.CodeHash, inv.Role, inv.Permissions, inv.ExpiresAt, inv.AssignedID).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()
	mock.ExpectRollback()

	require.NoError(t, r.CreateBatch(ctx, invites))
}

func TestInviteRepo_GetByCodeHash(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewInviteRepo(db)
	ctx := context.Background()

	const selectRe = `SELECT code_hash, role, permissions, expires_at, assigned_id, used_by, used_at, created_at FROM invites WHERE code_hash=\$1`

	exp := time.Now().Add(time.Hour)
	mock.ExpectQuery(selectRe).
		WithArgs([]byte("h1")).
		WillReturnRows(pgxmock.NewRows([]string{"code_hash", "role", "permissions", "expires_at", "assigned_id", "used_by", "used_at", "created_at"}).
			AddRow([]byte("h1"), "editor", []string{"write"}, exp, (*uuid.UUID)(nil), (*uuid.UUID)(nil), (*time.Time)(nil), time.Now()))
	inv, err := r.GetByCodeHash(ctx, []byte("h1"))
	require.NoError(t, err)
	require.Equal(t, "editor", inv.Role)
	require.False(t, inv.Used())

	mock.ExpectQuery(selectRe).
		WithArgs([]byte("gone")).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByCodeHash(ctx, []byte("gone"))
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestInviteRepo_Consume_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewInviteRepo(db)
	ctx := context.Background()
	uid := uuid.Must(uuid.NewV4())
	now := time.Now()

	mock.ExpectExec(consumeRe).
		WithArgs([]byte("h1"), uid, now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.Consume(ctx, []byte("h1"), uid, now))
}

func TestInviteRepo_Consume_AlreadyUsed(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewInviteRepo(db)
	ctx := context.Background()
	uid := uuid.Must(uuid.NewV4())
	now := time.Now()
	usedBy := uuid.Must(uuid.NewV4())
	usedAt := now.Add(-time.Minute)

	// conditional update touches nothing; the follow-up read finds the invite used
	mock.ExpectExec(consumeRe).
		WithArgs([]byte("h1"), uid, now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT code_hash, role, permissions, expires_at, assigned_id, used_by, used_at, created_at FROM invites WHERE code_hash=\$1`).
		WithArgs([]byte("h1")).
		WillReturnRows(pgxmock.NewRows([]string{"code_hash", "role", "permissions", "expires_at", "assigned_id", "used_by", "used_at", "created_at"}).
			AddRow([]byte("h1"), "editor", []string{"write"}, now.Add(time.Hour), (*uuid.UUID)(nil), &usedBy, &usedAt, now.Add(-time.Hour)))

	require.ErrorIs(t, r.Consume(ctx, []byte("h1"), uid, now), errs.ErrConflict)
}

func TestInviteRepo_Consume_Missing(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewInviteRepo(db)
	ctx := context.Background()
	uid := uuid.Must(uuid.NewV4())
	now := time.Now()

	mock.ExpectExec(consumeRe).
		WithArgs([]byte("gone"), uid, now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT code_hash, role, permissions`).
		WithArgs([]byte("gone")).
		WillReturnError(pgx.ErrNoRows)

	require.ErrorIs(t, r.Consume(ctx, []byte("gone"), uid, now), errs.ErrNotFound)
}
