// Package postgres is the PostgreSQL implementation of ports.SessionStore.
//
// Every statement keyed by a session token filters on expire_time > NOW(),
// so an expired row behaves exactly like a missing one until the sweeper
// removes it.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/99minutos/accounts-service/internal/core/domain"
	"github.com/99minutos/accounts-service/internal/core/ports"
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrUnknownUsername is returned by CreateUserSession when no profile has
// the given username.
var ErrUnknownUsername = errors.New("username does not resolve to a user")

// liveSessionOwner selects the owner of $1 while the session is live.
const liveSessionOwner = `SELECT user_id FROM user_session WHERE session_token = $1 AND expire_time > NOW()`

type Store struct {
	db DB
}

var _ ports.SessionStore = (*Store)(nil)

func NewStore(db DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateUserSession(ctx context.Context, token domain.SessionToken, username domain.Username, expiresAt time.Time) error {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO user_session (session_token, user_id, login_time, expire_time)
		SELECT $1, user_id, NOW(), $3 FROM user_profile WHERE username = $2
	`, token.String(), username.String(), expiresAt)
	if err != nil {
		return fmt.Errorf("insert user session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUnknownUsername
	}
	return nil
}

func (s *Store) FetchPasswordHashFromUsername(ctx context.Context, username domain.Username) (domain.PasswordHash, bool, error) {
	var hash string
	err := s.db.QueryRow(ctx, `
		SELECT c.password_hash
		FROM user_credential c
		JOIN user_profile p ON p.user_id = c.user_id
		WHERE p.username = $1
	`, username.String()).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PasswordHash{}, false, nil
	}
	if err != nil {
		return domain.PasswordHash{}, false, fmt.Errorf("fetch password hash by username: %w", err)
	}
	return domain.PasswordHashFromString(hash), true, nil
}

func (s *Store) FetchPasswordHashFromSessionToken(ctx context.Context, token domain.SessionToken) (domain.PasswordHash, bool, error) {
	var hash string
	err := s.db.QueryRow(ctx, `
		SELECT c.password_hash
		FROM user_credential c
		JOIN user_session s ON s.user_id = c.user_id
		WHERE s.session_token = $1 AND s.expire_time > NOW()
	`, token.String()).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PasswordHash{}, false, nil
	}
	if err != nil {
		return domain.PasswordHash{}, false, fmt.Errorf("fetch password hash by session: %w", err)
	}
	return domain.PasswordHashFromString(hash), true, nil
}

func (s *Store) FetchUserProfileFromSessionToken(ctx context.Context, token domain.SessionToken) (domain.UserProfile, bool, error) {
	var row profileRow
	err := s.db.QueryRow(ctx, `
		SELECT p.user_id, p.username, p.email_address, p.user_role
		FROM user_profile p
		JOIN user_session s ON s.user_id = p.user_id
		WHERE s.session_token = $1 AND s.expire_time > NOW()
	`, token.String()).Scan(&row.userID, &row.username, &row.emailAddress, &row.userRole)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserProfile{}, false, nil
	}
	if err != nil {
		return domain.UserProfile{}, false, fmt.Errorf("fetch user profile: %w", err)
	}

	profile, err := row.toDomain()
	if err != nil {
		return domain.UserProfile{}, false, err
	}
	return profile, true, nil
}

func (s *Store) FetchUserIdentityFromSessionToken(ctx context.Context, token domain.SessionToken) (domain.UserIdentity, bool, error) {
	identity, _, found, err := s.FetchSessionIdentity(ctx, token)
	return identity, found, err
}

// FetchSessionIdentity is FetchUserIdentityFromSessionToken plus the expiry
// of the session it matched.
func (s *Store) FetchSessionIdentity(ctx context.Context, token domain.SessionToken) (domain.UserIdentity, time.Time, bool, error) {
	var (
		userID    int64
		role      string
		expiresAt time.Time
	)
	err := s.db.QueryRow(ctx, `
		SELECT p.user_id, p.user_role, s.expire_time
		FROM user_profile p
		JOIN user_session s ON s.user_id = p.user_id
		WHERE s.session_token = $1 AND s.expire_time > NOW()
	`, token.String()).Scan(&userID, &role, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserIdentity{}, time.Time{}, false, nil
	}
	if err != nil {
		return domain.UserIdentity{}, time.Time{}, false, fmt.Errorf("fetch user identity: %w", err)
	}

	identity, err := identityFromColumns(userID, role)
	if err != nil {
		return domain.UserIdentity{}, time.Time{}, false, err
	}
	return identity, expiresAt, true, nil
}

func (s *Store) UpdateUserSessionExpiry(ctx context.Context, token domain.SessionToken, expiresAt time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE user_session SET expire_time = $2
		WHERE session_token = $1 AND expire_time > NOW()
	`, token.String(), expiresAt)
	if err != nil {
		return false, fmt.Errorf("update session expiry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) DeleteUserSession(ctx context.Context, token domain.SessionToken) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM user_session
		WHERE session_token = $1 AND expire_time > NOW()
	`, token.String())
	if err != nil {
		return false, fmt.Errorf("delete user session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CreateUserProfile writes the profile and its credential in one statement,
// so neither row can exist without the other.
func (s *Store) CreateUserProfile(ctx context.Context, username domain.Username, email domain.EmailAddress, role domain.UserRole, hash domain.PasswordHash) (domain.UserID, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		WITH profile AS (
			INSERT INTO user_profile (username, email_address, user_role)
			VALUES ($1, $2, $3)
			RETURNING user_id
		)
		INSERT INTO user_credential (user_id, password_hash)
		SELECT user_id, $4 FROM profile
		RETURNING user_id
	`, username.String(), email.String(), role.String(), hash.String()).Scan(&id)
	if err != nil {
		return domain.UserID{}, fmt.Errorf("insert user profile: %w", err)
	}
	return domain.NewUserID(id)
}

// DeleteUserProfile relies on ON DELETE CASCADE for the credential and the
// sessions.
func (s *Store) DeleteUserProfile(ctx context.Context, token domain.SessionToken) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM user_profile WHERE user_id = (`+liveSessionOwner+`)
	`, token.String())
	if err != nil {
		return false, fmt.Errorf("delete user profile: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) UpdateUserProfile(ctx context.Context, update ports.ProfileUpdate, token domain.SessionToken) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE user_profile SET username = $2, email_address = $3
		WHERE user_id = (`+liveSessionOwner+`)
	`, token.String(), update.Username.String(), update.EmailAddress.String())
	if err != nil {
		return false, fmt.Errorf("update user profile: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, hash domain.PasswordHash, token domain.SessionToken) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE user_credential SET password_hash = $2
		WHERE user_id = (`+liveSessionOwner+`)
	`, token.String(), hash.String())
	if err != nil {
		return false, fmt.Errorf("update password hash: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) UpdateUserRole(ctx context.Context, userID domain.UserID, role domain.UserRole) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE user_profile SET user_role = $2 WHERE user_id = $1
	`, userID.Int64(), role.String())
	if err != nil {
		return false, fmt.Errorf("update user role: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) IsUsernameInUse(ctx context.Context, username domain.Username, excluding *domain.SessionToken) (bool, error) {
	return s.inUse(ctx, "username", username.String(), excluding)
}

func (s *Store) IsEmailAddressInUse(ctx context.Context, email domain.EmailAddress, excluding *domain.SessionToken) (bool, error) {
	return s.inUse(ctx, "email_address", email.String(), excluding)
}

// inUse checks column for value. When excluding resolves to a live session
// its owner is skipped; when it does not, the subquery yields NULL and no
// row is skipped.
func (s *Store) inUse(ctx context.Context, column, value string, excluding *domain.SessionToken) (bool, error) {
	var owner *string
	if excluding != nil {
		t := excluding.String()
		owner = &t
	}

	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_profile
			WHERE `+column+` = $2
			AND user_id IS DISTINCT FROM (`+liveSessionOwner+`)
		)
	`, owner, value).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check %s in use: %w", column, err)
	}
	return exists, nil
}

func (s *Store) IsUniqueConstraintViolated(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func (s *Store) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM user_session WHERE expire_time <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

type profileRow struct {
	userID       int64
	username     string
	emailAddress string
	userRole     string
}

// toDomain re-parses stored values so a corrupted row surfaces as an error
// instead of leaking into a token.
func (r profileRow) toDomain() (domain.UserProfile, error) {
	identity, err := identityFromColumns(r.userID, r.userRole)
	if err != nil {
		return domain.UserProfile{}, err
	}
	username, err := domain.ParseUsername(domain.RawString(r.username))
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("stored username: %w", err)
	}
	email, err := domain.ParseEmailAddress(domain.RawString(r.emailAddress))
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("stored email address: %w", err)
	}
	return domain.UserProfile{
		UserID:       identity.UserID,
		Username:     username,
		EmailAddress: email,
		UserRole:     identity.UserRole,
	}, nil
}

func identityFromColumns(userID int64, role string) (domain.UserIdentity, error) {
	id, err := domain.NewUserID(userID)
	if err != nil {
		return domain.UserIdentity{}, fmt.Errorf("stored user id: %w", err)
	}
	r, err := domain.ParseUserRole(domain.RawString(role))
	if err != nil {
		return domain.UserIdentity{}, fmt.Errorf("stored user role: %w", err)
	}
	return domain.UserIdentity{UserID: id, UserRole: r}, nil
}
