package ports

import (
	"context"
	"time"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

// ProfileUpdate carries the user-editable profile fields.
type ProfileUpdate struct {
	Username     domain.Username
	EmailAddress domain.EmailAddress
}

// SessionStore is the persistence contract of the authentication flows.
//
// Lookups return found=false, not an error, when nothing matches. Every
// method keyed by a session token only matches sessions whose expiry is in
// the future. The bool result of a write is true iff a row was affected.
type SessionStore interface {
	// CreateUserSession fails with an error recognised by
	// IsUniqueConstraintViolated when token is already taken.
	CreateUserSession(ctx context.Context, token domain.SessionToken, username domain.Username, expiresAt time.Time) error

	FetchPasswordHashFromUsername(ctx context.Context, username domain.Username) (domain.PasswordHash, bool, error)
	FetchPasswordHashFromSessionToken(ctx context.Context, token domain.SessionToken) (domain.PasswordHash, bool, error)
	FetchUserProfileFromSessionToken(ctx context.Context, token domain.SessionToken) (domain.UserProfile, bool, error)
	FetchUserIdentityFromSessionToken(ctx context.Context, token domain.SessionToken) (domain.UserIdentity, bool, error)
	// FetchSessionIdentity also returns when the matched session expires, so
	// callers that keep the identity around can stop trusting it in time.
	FetchSessionIdentity(ctx context.Context, token domain.SessionToken) (domain.UserIdentity, time.Time, bool, error)

	UpdateUserSessionExpiry(ctx context.Context, token domain.SessionToken, expiresAt time.Time) (bool, error)
	DeleteUserSession(ctx context.Context, token domain.SessionToken) (bool, error)

	// CreateUserProfile inserts the profile and its credential as one unit.
	CreateUserProfile(ctx context.Context, username domain.Username, email domain.EmailAddress, role domain.UserRole, hash domain.PasswordHash) (domain.UserID, error)
	// DeleteUserProfile removes the owner of token together with its
	// credential and all of its sessions.
	DeleteUserProfile(ctx context.Context, token domain.SessionToken) (bool, error)
	UpdateUserProfile(ctx context.Context, update ProfileUpdate, token domain.SessionToken) (bool, error)
	UpdatePasswordHash(ctx context.Context, hash domain.PasswordHash, token domain.SessionToken) (bool, error)
	UpdateUserRole(ctx context.Context, userID domain.UserID, role domain.UserRole) (bool, error)

	// IsUsernameInUse and IsEmailAddressInUse ignore the owner of excluding
	// when it is non-nil, so a user can keep their own values.
	IsUsernameInUse(ctx context.Context, username domain.Username, excluding *domain.SessionToken) (bool, error)
	IsEmailAddressInUse(ctx context.Context, email domain.EmailAddress, excluding *domain.SessionToken) (bool, error)

	// IsUniqueConstraintViolated classifies err as a duplicate-key failure.
	IsUniqueConstraintViolated(err error) bool

	// DeleteExpiredSessions purges inert sessions and returns how many.
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}
