package handler

import (
	"time"

	"github.com/99minutos/accounts-service/internal/core/domain"
	"github.com/99minutos/accounts-service/internal/core/ports"
	"github.com/99minutos/accounts-service/internal/core/token"
)

type profileResponse struct {
	UserID       int64  `json:"user_id"`
	Username     string `json:"username"`
	EmailAddress string `json:"email_address"`
	UserRole     string `json:"user_role"`
}

func toProfileResponse(p domain.UserProfile) profileResponse {
	return profileResponse{
		UserID:       p.UserID.Int64(),
		Username:     p.Username.String(),
		EmailAddress: p.EmailAddress.String(),
		UserRole:     p.UserRole.String(),
	}
}

type identityResponse struct {
	UserID   int64  `json:"user_id"`
	UserRole string `json:"user_role"`
}

func toIdentityResponse(i domain.UserIdentity) identityResponse {
	return identityResponse{UserID: i.UserID.Int64(), UserRole: i.UserRole.String()}
}

type accessTokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func toAccessTokenResponse(t token.AccessToken) accessTokenResponse {
	return accessTokenResponse{AccessToken: t.String(), ExpiresAt: t.ExpiresAt}
}

type sessionResponse struct {
	SessionToken         string    `json:"session_token"`
	SessionExpiresAt     time.Time `json:"session_expires_at"`
	AccessToken          string    `json:"access_token"`
	AccessTokenExpiresAt time.Time `json:"access_token_expires_at"`
}

func toSessionResponse(g *ports.SessionGrant) sessionResponse {
	return sessionResponse{
		SessionToken:         g.SessionToken.String(),
		SessionExpiresAt:     g.SessionExpiresAt,
		AccessToken:          g.AccessToken.String(),
		AccessTokenExpiresAt: g.AccessToken.ExpiresAt,
	}
}
