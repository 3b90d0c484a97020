package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-service/internal/core/domain"
	"github.com/99minutos/accounts-service/internal/core/ports"
	"github.com/99minutos/accounts-service/internal/pkg/metrics"
)

// IdentityCache decorates a SessionStore, caching identity lookups by
// session token. Every other method goes straight to the store.
//
// Key format:
//
//	identity:session:<token>  "<user_id>:<role>"   expires after ttl
//	identity:user:<user_id>   set of cached tokens  expires after ttl
//
// A session entry never outlives the session it was read from: its TTL is
// the smaller of ttl and the time left on the session. Entries are dropped on
// logout, account deletion and role change. Redis failures are logged and the
// lookup falls through to the store.
type IdentityCache struct {
	ports.SessionStore
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

// NewIdentityCache wraps store. ttl must be positive.
func NewIdentityCache(store ports.SessionStore, client *redis.Client, ttl time.Duration, log zerolog.Logger) *IdentityCache {
	return &IdentityCache{SessionStore: store, client: client, ttl: ttl, now: time.Now, log: log}
}

func (c *IdentityCache) FetchUserIdentityFromSessionToken(ctx context.Context, token domain.SessionToken) (domain.UserIdentity, bool, error) {
	cached, err := c.client.Get(ctx, sessionKey(token.String())).Result()
	switch {
	case err == nil:
		identity, perr := decodeIdentity(cached)
		if perr == nil {
			metrics.IdentityCacheLookupsTotal.WithLabelValues("hit").Inc()
			return identity, true, nil
		}
		c.log.Warn().Err(perr).Msg("discarding undecodable cached identity")
		metrics.IdentityCacheLookupsTotal.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		metrics.IdentityCacheLookupsTotal.WithLabelValues("miss").Inc()
	default:
		c.log.Warn().Err(err).Msg("identity cache read failed")
		metrics.IdentityCacheLookupsTotal.WithLabelValues("error").Inc()
	}

	identity, expiresAt, found, err := c.SessionStore.FetchSessionIdentity(ctx, token)
	if err != nil || !found {
		return identity, found, err
	}

	ttl := min(c.ttl, expiresAt.Sub(c.now()))
	if ttl <= 0 {
		return identity, true, nil
	}
	if err := c.store(ctx, token, identity, ttl); err != nil {
		c.log.Warn().Err(err).Msg("identity cache write failed")
	}
	return identity, true, nil
}

func (c *IdentityCache) DeleteUserSession(ctx context.Context, token domain.SessionToken) (bool, error) {
	deleted, err := c.SessionStore.DeleteUserSession(ctx, token)
	if err != nil {
		return false, err
	}
	if err := c.client.Del(ctx, sessionKey(token.String())).Err(); err != nil {
		c.log.Warn().Err(err).Msg("identity cache invalidation failed")
	}
	return deleted, nil
}

func (c *IdentityCache) DeleteUserProfile(ctx context.Context, token domain.SessionToken) (bool, error) {
	// The owner has to be resolved before the row, and with it the session,
	// is gone.
	owner, found, err := c.SessionStore.FetchUserIdentityFromSessionToken(ctx, token)
	if err != nil {
		return false, err
	}

	deleted, err := c.SessionStore.DeleteUserProfile(ctx, token)
	if err != nil {
		return false, err
	}
	if found {
		c.invalidateUser(ctx, owner.UserID)
	}
	if err := c.client.Del(ctx, sessionKey(token.String())).Err(); err != nil {
		c.log.Warn().Err(err).Msg("identity cache invalidation failed")
	}
	return deleted, nil
}

func (c *IdentityCache) UpdateUserRole(ctx context.Context, userID domain.UserID, role domain.UserRole) (bool, error) {
	updated, err := c.SessionStore.UpdateUserRole(ctx, userID, role)
	if err != nil {
		return false, err
	}
	if updated {
		c.invalidateUser(ctx, userID)
	}
	return updated, nil
}

// store caches identity for ttl. The per-user set always lives for the full
// cache ttl so it outlasts every entry it indexes.
func (c *IdentityCache) store(ctx context.Context, token domain.SessionToken, identity domain.UserIdentity, ttl time.Duration) error {
	members := userKey(identity.UserID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(token.String()), encodeIdentity(identity), ttl)
		pipe.SAdd(ctx, members, token.String())
		pipe.Expire(ctx, members, c.ttl)
		return nil
	})
	return err
}

// invalidateUser drops every cached session of userID.
func (c *IdentityCache) invalidateUser(ctx context.Context, userID domain.UserID) {
	key := userKey(userID)
	tokens, err := c.client.SMembers(ctx, key).Result()
	if err != nil {
		c.log.Warn().Err(err).Str("user_id", userID.String()).Msg("identity cache invalidation failed")
		return
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, sessionKey(t))
	}
	keys = append(keys, key)

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn().Err(err).Str("user_id", userID.String()).Msg("identity cache invalidation failed")
	}
}

func sessionKey(token string) string {
	return "identity:session:" + token
}

func userKey(id domain.UserID) string {
	return "identity:user:" + id.String()
}

func encodeIdentity(identity domain.UserIdentity) string {
	return identity.UserID.String() + ":" + identity.UserRole.String()
}

func decodeIdentity(s string) (domain.UserIdentity, error) {
	rawID, rawRole, ok := strings.Cut(s, ":")
	if !ok {
		return domain.UserIdentity{}, fmt.Errorf("malformed identity %q", s)
	}
	n, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return domain.UserIdentity{}, fmt.Errorf("malformed identity %q: %w", s, err)
	}
	id, err := domain.NewUserID(n)
	if err != nil {
		return domain.UserIdentity{}, err
	}
	role, err := domain.ParseUserRole(domain.RawString(rawRole))
	if err != nil {
		return domain.UserIdentity{}, err
	}
	return domain.UserIdentity{UserID: id, UserRole: role}, nil
}
