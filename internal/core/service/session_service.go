package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-service/internal/core/domain"
	"github.com/99minutos/accounts-service/internal/core/ports"
	"github.com/99minutos/accounts-service/internal/core/token"
	"github.com/99minutos/accounts-service/internal/pkg/metrics"
)

type sessionService struct {
	store      ports.SessionStore
	tokens     *token.Issuer
	sessionTTL time.Duration
	now        func() time.Time
	mint       func() domain.SessionToken
	// decoy is compared against when the username is unknown, so that path
	// costs the same bcrypt work as a wrong password.
	decoy func() (domain.PasswordHash, error)
	log   zerolog.Logger
}

// NewSessionService returns a SessionService implementation. hashCost must
// match the cost stored hashes were made with.
func NewSessionService(
	store ports.SessionStore,
	tokens *token.Issuer,
	sessionTTL time.Duration,
	hashCost int,
	log zerolog.Logger,
) ports.SessionService {
	return newSessionService(store, tokens, sessionTTL, hashCost, log)
}

func newSessionService(store ports.SessionStore, tokens *token.Issuer, sessionTTL time.Duration, hashCost int, log zerolog.Logger) *sessionService {
	return &sessionService{
		store:      store,
		tokens:     tokens,
		sessionTTL: sessionTTL,
		now:        time.Now,
		mint:       domain.NewSessionToken,
		decoy: sync.OnceValues(func() (domain.PasswordHash, error) {
			p, err := domain.ParsePassword(domain.RawString(domain.NewSessionToken().String()))
			if err != nil {
				return domain.PasswordHash{}, err
			}
			return domain.HashPassword(p, hashCost)
		}),
		log: log,
	}
}

// CreateSession logs a user in. An unknown username and a wrong password
// produce the same error.
func (s *sessionService) CreateSession(ctx context.Context, rawUsername, rawPassword domain.Raw) (*ports.SessionGrant, error) {
	username, uerr := domain.ParseUsername(rawUsername)
	password, perr := domain.ParsePassword(rawPassword)
	if err := collect(uerr, perr); err != nil {
		return nil, err
	}

	hash, found, err := s.store.FetchPasswordHashFromUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("create session: fetch password hash: %w", err)
	}
	if !found {
		if decoy, err := s.decoy(); err == nil {
			_, _ = decoy.Matches(password)
		}
		metrics.LoginFailuresTotal.WithLabelValues("unknown_user").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	ok, err := hash.Matches(password)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if !ok {
		metrics.LoginFailuresTotal.WithLabelValues("wrong_password").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	expiresAt := s.now().Add(s.sessionTTL)
	sessionToken, err := createUserSession(ctx, s.store, username, expiresAt, s.mint)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	metrics.SessionsCreatedTotal.Inc()

	access, err := s.issueFor(ctx, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info().Str("username", username.String()).Msg("session created")

	return &ports.SessionGrant{
		SessionToken:     sessionToken,
		SessionExpiresAt: expiresAt,
		AccessToken:      access,
	}, nil
}

// DeleteSession logs out. A missing, malformed, stale or unknown token all
// look the same to the caller.
func (s *sessionService) DeleteSession(ctx context.Context, rawToken domain.Raw) error {
	sessionToken, err := domain.ParseSessionToken(rawToken)
	if err != nil {
		return domain.ErrInvalidSession
	}

	deleted, err := s.store.DeleteUserSession(ctx, sessionToken)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if !deleted {
		return domain.ErrInvalidSession
	}
	return nil
}

// RefreshAccessToken extends the session and mints a token from the current
// profile, so role and profile changes show up in every new token.
func (s *sessionService) RefreshAccessToken(ctx context.Context, rawToken domain.Raw) (token.AccessToken, error) {
	sessionToken, _, err := s.extend(ctx, rawToken)
	if err != nil {
		return token.AccessToken{}, err
	}

	access, err := s.issueFor(ctx, sessionToken)
	if err != nil {
		return token.AccessToken{}, fmt.Errorf("refresh access token: %w", err)
	}
	return access, nil
}

// KeepAlive pushes the session expiry forward.
func (s *sessionService) KeepAlive(ctx context.Context, rawToken domain.Raw) (time.Time, error) {
	_, expiresAt, err := s.extend(ctx, rawToken)
	if err != nil {
		return time.Time{}, err
	}
	return expiresAt, nil
}

// UserProfile serves the profile embedded in a valid access token.
func (s *sessionService) UserProfile(_ context.Context, accessToken string) (domain.UserProfile, error) {
	if accessToken == "" {
		return domain.UserProfile{}, domain.ErrInvalidAccessToken
	}
	verified, err := s.tokens.Verify(accessToken)
	if err != nil {
		return domain.UserProfile{}, err
	}
	return verified.Profile, nil
}

// UserIdentity resolves the session from the query value when it works and
// from the cookie otherwise. Only store failures are surfaced as such.
func (s *sessionService) UserIdentity(ctx context.Context, fromQuery, fromCookie domain.Raw) (domain.UserIdentity, error) {
	for _, raw := range []domain.Raw{fromQuery, fromCookie} {
		sessionToken, err := domain.ParseSessionToken(raw)
		if err != nil {
			continue
		}
		identity, found, err := s.store.FetchUserIdentityFromSessionToken(ctx, sessionToken)
		if err != nil {
			return domain.UserIdentity{}, fmt.Errorf("user identity: %w", err)
		}
		if found {
			return identity, nil
		}
	}
	return domain.UserIdentity{}, domain.ErrInvalidSession
}

func (s *sessionService) extend(ctx context.Context, rawToken domain.Raw) (domain.SessionToken, time.Time, error) {
	sessionToken, err := domain.ParseSessionToken(rawToken)
	if err != nil {
		return domain.SessionToken{}, time.Time{}, domain.ErrInvalidSession
	}

	expiresAt := s.now().Add(s.sessionTTL)
	extended, err := s.store.UpdateUserSessionExpiry(ctx, sessionToken, expiresAt)
	if err != nil {
		return domain.SessionToken{}, time.Time{}, fmt.Errorf("extend session: %w", err)
	}
	if !extended {
		return domain.SessionToken{}, time.Time{}, domain.ErrInvalidSession
	}
	return sessionToken, expiresAt, nil
}

func (s *sessionService) issueFor(ctx context.Context, sessionToken domain.SessionToken) (token.AccessToken, error) {
	profile, found, err := s.store.FetchUserProfileFromSessionToken(ctx, sessionToken)
	if err != nil {
		return token.AccessToken{}, fmt.Errorf("fetch profile: %w", err)
	}
	if !found {
		return token.AccessToken{}, domain.ErrInvalidSession
	}

	access, err := s.tokens.Issue(profile)
	if err != nil {
		return token.AccessToken{}, err
	}
	metrics.AccessTokensIssuedTotal.Inc()
	return access, nil
}

// collect folds parse errors into one ValidationErrors.
func collect(errs ...error) error {
	v := make(domain.ValidationErrors)
	if err := v.AddAll(errs...); err != nil {
		return err
	}
	return v.Err()
}
