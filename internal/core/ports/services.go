package ports

import (
	"context"
	"time"

	"github.com/99minutos/accounts-service/internal/core/domain"
	"github.com/99minutos/accounts-service/internal/core/token"
)

// SessionGrant is what a successful login hands back to the caller.
type SessionGrant struct {
	SessionToken     domain.SessionToken
	SessionExpiresAt time.Time
	AccessToken      token.AccessToken
}

// SessionService covers the session lifecycle and token issuance.
type SessionService interface {
	CreateSession(ctx context.Context, username, password domain.Raw) (*SessionGrant, error)
	DeleteSession(ctx context.Context, sessionToken domain.Raw) error
	RefreshAccessToken(ctx context.Context, sessionToken domain.Raw) (token.AccessToken, error)
	// KeepAlive extends the session and returns its new expiry.
	KeepAlive(ctx context.Context, sessionToken domain.Raw) (time.Time, error)
	// UserProfile trusts the access token alone; it never touches the store.
	UserProfile(ctx context.Context, accessToken string) (domain.UserProfile, error)
	// UserIdentity tries fromQuery first and falls back to fromCookie.
	UserIdentity(ctx context.Context, fromQuery, fromCookie domain.Raw) (domain.UserIdentity, error)
}

// AccountService covers registration and changes to an existing account.
type AccountService interface {
	CreateUser(ctx context.Context, username, email, password domain.Raw) (domain.UserProfile, error)
	UpdateProfile(ctx context.Context, sessionToken, username, email domain.Raw) error
	UpdatePassword(ctx context.Context, sessionToken, currentPassword, newPassword domain.Raw) error
	DeleteUser(ctx context.Context, sessionToken, password domain.Raw) error
	UpdateUserRole(ctx context.Context, sessionToken, userID, role domain.Raw) error
}
