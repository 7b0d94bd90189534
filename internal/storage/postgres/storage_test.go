package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/convoy/internal/dependencies/mocks"
	"github.com/mcoot/convoy/internal/model"
)

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, mocks.NewMockClock(testNow)), mock
}

func testParty() *model.Party {
	return &model.Party{
		ID:         "party-1",
		Name:       "Road trip",
		HostID:     "host-1",
		CreatedAt:  testNow,
		MaxMembers: model.DefaultMaxMembers,
		InviteCode: "ABCDEF",
		Members: []model.Member{
			{UserID: "host-1", JoinedAt: testNow, Role: model.RoleHost, Status: model.MemberStatusActive},
		},
		CurrentState: model.PartyState{Status: model.PartyStatusWaiting},
	}
}

func TestStorage_GetUser(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "found",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, display_name, is_guest, created_at FROM users`).
					WithArgs("user-1").
					WillReturnRows(sqlmock.NewRows([]string{"id", "display_name", "is_guest", "created_at"}).
						AddRow("user-1", "Alice", true, testNow))
			},
		},
		{
			name: "not found",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, display_name, is_guest, created_at FROM users`).
					WithArgs("user-1").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: model.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newTestStorage(t)
			tt.mock(mock)

			user, err := store.GetUser(ctx, "user-1")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, model.UserID("user-1"), user.ID)
			require.Equal(t, "Alice", user.DisplayName)
			require.True(t, user.IsGuest)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_SaveCredentials(t *testing.T) {
	ctx := context.Background()
	creds := &model.Credentials{UserID: "user-1", Username: "alice", PasswordHash: "hash", CreatedAt: testNow, UpdatedAt: testNow}

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO credentials`).
					WithArgs("user-1", "alice", "hash", testNow, testNow).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "username taken",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO credentials`).
					WillReturnError(&pq.Error{Code: "23505"})
			},
			wantErr: model.ErrUsernameTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newTestStorage(t)
			tt.mock(mock)

			err := store.SaveCredentials(ctx, creds)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_GetCredentialsByUsername(t *testing.T) {
	ctx := context.Background()
	store, mock := newTestStorage(t)

	mock.ExpectQuery(`SELECT user_id, username, password_hash, created_at, updated_at`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "username", "password_hash", "created_at", "updated_at"}).
			AddRow("user-1", "alice", "hash", testNow, testNow))

	c, err := store.GetCredentialsByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, model.UserID("user-1"), c.UserID)
	require.Equal(t, "hash", c.PasswordHash)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_CreateParty(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO parties`).
					WithArgs("party-1", sqlmock.AnyArg(), int64(1), testNow).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "duplicate id",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO parties`).
					WillReturnError(&pq.Error{Code: "23505"})
			},
			wantErr: model.ErrPartyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newTestStorage(t)
			tt.mock(mock)

			party := testParty()
			err := store.CreateParty(ctx, party)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Equal(t, int64(0), party.Version)
				return
			}
			require.NoError(t, err)
			require.Equal(t, int64(1), party.Version)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_GetParty(t *testing.T) {
	ctx := context.Background()
	doc, err := json.Marshal(testParty())
	require.NoError(t, err)

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "found",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT doc, version FROM parties`).
					WithArgs("party-1").
					WillReturnRows(sqlmock.NewRows([]string{"doc", "version"}).AddRow(doc, int64(7)))
			},
		},
		{
			name: "not found",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT doc, version FROM parties`).
					WithArgs("party-1").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: model.ErrPartyNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newTestStorage(t)
			tt.mock(mock)

			party, err := store.GetParty(ctx, "party-1")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "Road trip", party.Name)
			require.Equal(t, int64(7), party.Version)
			require.Len(t, party.Members, 1)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_UpdateParty(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		mock        func(mock sqlmock.Sqlmock)
		wantErr     error
		wantVersion int64
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE parties`).
					WithArgs(sqlmock.AnyArg(), testNow, "party-1", int64(3)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			wantVersion: 4,
		},
		{
			name: "stale version",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE parties`).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(`SELECT EXISTS`).
					WithArgs("party-1").
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
			},
			wantErr:     model.ErrConcurrentUpdate,
			wantVersion: 3,
		},
		{
			name: "missing party",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE parties`).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(`SELECT EXISTS`).
					WithArgs("party-1").
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
			},
			wantErr:     model.ErrPartyNotFound,
			wantVersion: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newTestStorage(t)
			tt.mock(mock)

			party := testParty()
			party.Version = 3
			err := store.UpdateParty(ctx, party)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tt.wantVersion, party.Version)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_ReserveInvite(t *testing.T) {
	ctx := context.Background()
	rec := &model.InviteRecord{
		Code:      "ABCDEF",
		PartyID:   "party-1",
		CreatedBy: "host-1",
		CreatedAt: testNow,
		ExpiresAt: testNow.Add(model.InviteTTL),
	}

	tests := []struct {
		name    string
		rows    int64
		wantErr error
	}{
		{name: "reserved", rows: 1},
		{name: "live code held", rows: 0, wantErr: model.ErrInviteCodeTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newTestStorage(t)
			mock.ExpectExec(`INSERT INTO invite_codes`).
				WithArgs("ABCDEF", "party-1", "host-1", testNow, testNow.Add(model.InviteTTL), testNow).
				WillReturnResult(sqlmock.NewResult(0, tt.rows))

			err := store.ReserveInvite(ctx, rec)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_GetInvite(t *testing.T) {
	ctx := context.Background()

	t.Run("live", func(t *testing.T) {
		store, mock := newTestStorage(t)
		mock.ExpectQuery(`SELECT code, party_id, created_by, created_at, expires_at`).
			WithArgs("ABCDEF", testNow).
			WillReturnRows(sqlmock.NewRows([]string{"code", "party_id", "created_by", "created_at", "expires_at"}).
				AddRow("ABCDEF", "party-1", "host-1", testNow, testNow.Add(model.InviteTTL)))

		rec, err := store.GetInvite(ctx, "ABCDEF")
		require.NoError(t, err)
		require.Equal(t, model.PartyID("party-1"), rec.PartyID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("expired or missing", func(t *testing.T) {
		store, mock := newTestStorage(t)
		mock.ExpectQuery(`SELECT code, party_id, created_by, created_at, expires_at`).
			WithArgs("ABCDEF", testNow).
			WillReturnError(sql.ErrNoRows)

		_, err := store.GetInvite(ctx, "ABCDEF")
		require.ErrorIs(t, err, model.ErrInviteNotFound)
	})
}

func TestStorage_Migrate(t *testing.T) {
	store, mock := newTestStorage(t)
	for range schema {
		mock.ExpectExec(`CREATE`).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
