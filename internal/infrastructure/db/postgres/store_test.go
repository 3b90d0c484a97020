package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/accounts-service/internal/core/domain"
	"github.com/99minutos/accounts-service/internal/core/ports"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return NewStore(mock), mock
}

func mustUsername(t *testing.T, s string) domain.Username {
	t.Helper()
	u, err := domain.ParseUsername(domain.RawString(s))
	require.NoError(t, err)
	return u
}

func TestStore_CreateUserSession(t *testing.T) {
	token := domain.NewSessionToken()
	alice := mustUsername(t, "alice")
	expiresAt := time.Now().Add(time.Hour)

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		check     func(t *testing.T, s *Store, err error)
	}{
		{
			name: "inserted",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO user_session`).
					WithArgs(token.String(), "alice", expiresAt).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
			check: func(t *testing.T, _ *Store, err error) {
				require.NoError(t, err)
			},
		},
		{
			name: "unknown username",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO user_session`).
					WithArgs(token.String(), "alice", expiresAt).
					WillReturnResult(pgxmock.NewResult("INSERT", 0))
			},
			check: func(t *testing.T, s *Store, err error) {
				assert.ErrorIs(t, err, ErrUnknownUsername)
				assert.False(t, s.IsUniqueConstraintViolated(err))
			},
		},
		{
			name: "token taken",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO user_session`).
					WithArgs(token.String(), "alice", expiresAt).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
			},
			check: func(t *testing.T, s *Store, err error) {
				require.Error(t, err)
				assert.True(t, s.IsUniqueConstraintViolated(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			tt.setupMock(mock)

			err := store.CreateUserSession(context.Background(), token, alice, expiresAt)
			tt.check(t, store, err)
		})
	}
}

func TestStore_FetchPasswordHashFromUsername(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT c.password_hash`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"password_hash"}).AddRow("$2a$04$hash"))
	mock.ExpectQuery(`SELECT c.password_hash`).
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"password_hash"}))

	hash, found, err := store.FetchPasswordHashFromUsername(ctx, mustUsername(t, "alice"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "$2a$04$hash", hash.String())

	_, found, err = store.FetchPasswordHashFromUsername(ctx, mustUsername(t, "ghost"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_FetchUserProfileFromSessionToken(t *testing.T) {
	token := domain.NewSessionToken()
	cols := []string{"user_id", "username", "email_address", "user_role"}

	t.Run("live session", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`FROM user_profile p\s+JOIN user_session s`).
			WithArgs(token.String()).
			WillReturnRows(pgxmock.NewRows(cols).AddRow(int64(7), "alice", "alice@example.com", "maintainer"))

		profile, found, err := store.FetchUserProfileFromSessionToken(context.Background(), token)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, int64(7), profile.UserID.Int64())
		assert.Equal(t, "alice", profile.Username.String())
		assert.Equal(t, "alice@example.com", profile.EmailAddress.String())
		assert.Equal(t, domain.RoleMaintainer, profile.UserRole)
	})

	t.Run("no live session", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`FROM user_profile p\s+JOIN user_session s`).
			WithArgs(token.String()).
			WillReturnRows(pgxmock.NewRows(cols))

		_, found, err := store.FetchUserProfileFromSessionToken(context.Background(), token)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("corrupted role", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`FROM user_profile p\s+JOIN user_session s`).
			WithArgs(token.String()).
			WillReturnRows(pgxmock.NewRows(cols).AddRow(int64(7), "alice", "alice@example.com", "root"))

		_, found, err := store.FetchUserProfileFromSessionToken(context.Background(), token)
		require.Error(t, err)
		assert.False(t, found)
	})

	t.Run("database error", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`FROM user_profile p\s+JOIN user_session s`).
			WithArgs(token.String()).
			WillReturnError(errors.New("connection refused"))

		_, _, err := store.FetchUserProfileFromSessionToken(context.Background(), token)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestStore_FetchUserIdentityFromSessionToken(t *testing.T) {
	store, mock := newMockStore(t)
	token := domain.NewSessionToken()

	mock.ExpectQuery(`SELECT p.user_id, p.user_role, s.expire_time`).
		WithArgs(token.String()).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "user_role", "expire_time"}).
			AddRow(int64(3), "admin", time.Now().Add(time.Hour)))

	identity, found, err := store.FetchUserIdentityFromSessionToken(context.Background(), token)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, identity.IsAdmin())
	assert.Equal(t, "3", identity.UserID.String())
}

func TestStore_FetchSessionIdentity(t *testing.T) {
	token := domain.NewSessionToken()
	expiresAt := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("live", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT p.user_id, p.user_role, s.expire_time`).
			WithArgs(token.String()).
			WillReturnRows(pgxmock.NewRows([]string{"user_id", "user_role", "expire_time"}).
				AddRow(int64(5), "maintainer", expiresAt))

		identity, gotExpiry, found, err := store.FetchSessionIdentity(context.Background(), token)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, domain.RoleMaintainer, identity.UserRole)
		assert.True(t, expiresAt.Equal(gotExpiry))
	})

	t.Run("none", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT p.user_id, p.user_role, s.expire_time`).
			WithArgs(token.String()).
			WillReturnError(pgx.ErrNoRows)

		_, gotExpiry, found, err := store.FetchSessionIdentity(context.Background(), token)
		require.NoError(t, err)
		assert.False(t, found)
		assert.True(t, gotExpiry.IsZero())
	})
}

func TestStore_SessionWrites(t *testing.T) {
	token := domain.NewSessionToken()
	expiresAt := time.Now().Add(time.Hour)

	tests := []struct {
		name    string
		pattern string
		rows    int64
		call    func(s *Store) (bool, error)
	}{
		{"extend live", `UPDATE user_session SET expire_time`, 1, func(s *Store) (bool, error) {
			return s.UpdateUserSessionExpiry(context.Background(), token, expiresAt)
		}},
		{"extend expired", `UPDATE user_session SET expire_time`, 0, func(s *Store) (bool, error) {
			return s.UpdateUserSessionExpiry(context.Background(), token, expiresAt)
		}},
		{"delete live", `DELETE FROM user_session`, 1, func(s *Store) (bool, error) {
			return s.DeleteUserSession(context.Background(), token)
		}},
		{"delete unknown", `DELETE FROM user_session`, 0, func(s *Store) (bool, error) {
			return s.DeleteUserSession(context.Background(), token)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			mock.ExpectExec(tt.pattern).
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.rows))

			ok, err := tt.call(store)
			require.NoError(t, err)
			assert.Equal(t, tt.rows > 0, ok)
		})
	}
}

func TestStore_CreateUserProfile(t *testing.T) {
	alice := mustUsername(t, "alice")
	email, err := domain.ParseEmailAddress(domain.RawString("alice@example.com"))
	require.NoError(t, err)
	hash := domain.PasswordHashFromString("$2a$04$hash")

	t.Run("inserted", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`WITH profile AS \(\s+INSERT INTO user_profile`).
			WithArgs("alice", "alice@example.com", "user", "$2a$04$hash").
			WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(int64(1)))

		id, err := store.CreateUserProfile(context.Background(), alice, email, domain.RoleUser, hash)
		require.NoError(t, err)
		assert.Equal(t, int64(1), id.Int64())
	})

	t.Run("duplicate", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`WITH profile AS`).
			WithArgs("alice", "alice@example.com", "user", "$2a$04$hash").
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "user_profile_username_key"})

		_, err := store.CreateUserProfile(context.Background(), alice, email, domain.RoleUser, hash)
		assert.True(t, store.IsUniqueConstraintViolated(err))
	})
}

func TestStore_ProfileWritesBySession(t *testing.T) {
	token := domain.NewSessionToken()
	email, err := domain.ParseEmailAddress(domain.RawString("new@example.com"))
	require.NoError(t, err)

	t.Run("update profile", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`UPDATE user_profile SET username`).
			WithArgs(token.String(), "alice_2", "new@example.com").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		ok, err := store.UpdateUserProfile(context.Background(),
			ports.ProfileUpdate{Username: mustUsername(t, "alice_2"), EmailAddress: email}, token)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("update password hash", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`UPDATE user_credential SET password_hash`).
			WithArgs(token.String(), "$2a$04$next").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		ok, err := store.UpdatePasswordHash(context.Background(), domain.PasswordHashFromString("$2a$04$next"), token)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("delete profile", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`DELETE FROM user_profile WHERE user_id = \(SELECT user_id FROM user_session`).
			WithArgs(token.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		ok, err := store.DeleteUserProfile(context.Background(), token)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestStore_UpdateUserRole(t *testing.T) {
	store, mock := newMockStore(t)
	id, err := domain.NewUserID(42)
	require.NoError(t, err)

	mock.ExpectExec(`UPDATE user_profile SET user_role`).
		WithArgs(int64(42), "admin").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := store.UpdateUserRole(context.Background(), id, domain.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_InUse(t *testing.T) {
	token := domain.NewSessionToken()
	email, err := domain.ParseEmailAddress(domain.RawString("alice@example.com"))
	require.NoError(t, err)

	t.Run("username without exclusion", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`WHERE username = \$2`).
			WithArgs(pgxmock.AnyArg(), "alice").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		inUse, err := store.IsUsernameInUse(context.Background(), mustUsername(t, "alice"), nil)
		require.NoError(t, err)
		assert.True(t, inUse)
	})

	t.Run("email excluding own session", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`WHERE email_address = \$2\s+AND user_id IS DISTINCT FROM`).
			WithArgs(pgxmock.AnyArg(), "alice@example.com").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

		inUse, err := store.IsEmailAddressInUse(context.Background(), email, &token)
		require.NoError(t, err)
		assert.False(t, inUse)
	})
}

func TestStore_IsUniqueConstraintViolated(t *testing.T) {
	store := NewStore(nil)

	assert.True(t, store.IsUniqueConstraintViolated(&pgconn.PgError{Code: pgerrcode.UniqueViolation}))
	assert.True(t, store.IsUniqueConstraintViolated(
		fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation})))
	assert.False(t, store.IsUniqueConstraintViolated(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}))
	assert.False(t, store.IsUniqueConstraintViolated(errors.New("duplicate key")))
	assert.False(t, store.IsUniqueConstraintViolated(nil))
}

func TestStore_DeleteExpiredSessions(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`DELETE FROM user_session WHERE expire_time <= NOW\(\)`).
		WillReturnResult(pgxmock.NewResult("DELETE", 12))

	n, err := store.DeleteExpiredSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
}

func TestConfig_DSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, User: "accounts", Password: "p@ss word", Database: "accounts", SSLMode: "disable"}
	assert.Equal(t, "postgres://accounts:p%40ss%20word@db:5432/accounts?sslmode=disable", cfg.DSN())
}
