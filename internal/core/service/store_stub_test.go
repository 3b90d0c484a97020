package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/accounts-service/internal/core/domain"
	"github.com/99minutos/accounts-service/internal/core/ports"
	"github.com/99minutos/accounts-service/internal/core/token"
)

// ---------------------------------------------------------------------------
// In-memory SessionStore
// ---------------------------------------------------------------------------

var errDuplicate = errors.New("duplicate key")

type memUser struct {
	profile domain.UserProfile
	hash    domain.PasswordHash
}

type memSession struct {
	userID    int64
	expiresAt time.Time
}

type memStore struct {
	mu       sync.Mutex
	now      func() time.Time
	nextID   int64
	users    map[int64]*memUser
	sessions map[string]memSession

	// sessionErrs is consumed one entry per CreateUserSession call.
	sessionErrs     []error
	sessionAttempts int
	// failWith, when set, is returned by every lookup.
	failWith error
}

var _ ports.SessionStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		now:      time.Now,
		users:    make(map[int64]*memUser),
		sessions: make(map[string]memSession),
	}
}

func (m *memStore) live(token domain.SessionToken) (*memUser, bool) {
	s, ok := m.sessions[token.String()]
	if !ok || !s.expiresAt.After(m.now()) {
		return nil, false
	}
	u, ok := m.users[s.userID]
	return u, ok
}

func (m *memStore) byUsername(username string) *memUser {
	for _, u := range m.users {
		if u.profile.Username.String() == username {
			return u
		}
	}
	return nil
}

func (m *memStore) CreateUserSession(_ context.Context, token domain.SessionToken, username domain.Username, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessionAttempts++
	if len(m.sessionErrs) > 0 {
		err := m.sessionErrs[0]
		m.sessionErrs = m.sessionErrs[1:]
		if err != nil {
			return err
		}
	}
	if _, taken := m.sessions[token.String()]; taken {
		return errDuplicate
	}
	u := m.byUsername(username.String())
	if u == nil {
		return errors.New("no such user")
	}
	m.sessions[token.String()] = memSession{userID: u.profile.UserID.Int64(), expiresAt: expiresAt}
	return nil
}

func (m *memStore) FetchPasswordHashFromUsername(_ context.Context, username domain.Username) (domain.PasswordHash, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return domain.PasswordHash{}, false, m.failWith
	}
	u := m.byUsername(username.String())
	if u == nil {
		return domain.PasswordHash{}, false, nil
	}
	return u.hash, true, nil
}

func (m *memStore) FetchPasswordHashFromSessionToken(_ context.Context, token domain.SessionToken) (domain.PasswordHash, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.live(token)
	if !ok {
		return domain.PasswordHash{}, false, nil
	}
	return u.hash, true, nil
}

func (m *memStore) FetchUserProfileFromSessionToken(_ context.Context, token domain.SessionToken) (domain.UserProfile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.live(token)
	if !ok {
		return domain.UserProfile{}, false, nil
	}
	return u.profile, true, nil
}

func (m *memStore) FetchUserIdentityFromSessionToken(_ context.Context, token domain.SessionToken) (domain.UserIdentity, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return domain.UserIdentity{}, false, m.failWith
	}
	u, ok := m.live(token)
	if !ok {
		return domain.UserIdentity{}, false, nil
	}
	return u.profile.Identity(), true, nil
}

func (m *memStore) FetchSessionIdentity(_ context.Context, token domain.SessionToken) (domain.UserIdentity, time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return domain.UserIdentity{}, time.Time{}, false, m.failWith
	}
	u, ok := m.live(token)
	if !ok {
		return domain.UserIdentity{}, time.Time{}, false, nil
	}
	return u.profile.Identity(), m.sessions[token.String()].expiresAt, true, nil
}

func (m *memStore) UpdateUserSessionExpiry(_ context.Context, token domain.SessionToken, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live(token); !ok {
		return false, nil
	}
	s := m.sessions[token.String()]
	s.expiresAt = expiresAt
	m.sessions[token.String()] = s
	return true, nil
}

func (m *memStore) DeleteUserSession(_ context.Context, token domain.SessionToken) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live(token); !ok {
		return false, nil
	}
	delete(m.sessions, token.String())
	return true, nil
}

func (m *memStore) CreateUserProfile(_ context.Context, username domain.Username, email domain.EmailAddress, role domain.UserRole, hash domain.PasswordHash) (domain.UserID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.profile.Username == username || u.profile.EmailAddress == email {
			return domain.UserID{}, errDuplicate
		}
	}
	m.nextID++
	id, err := domain.NewUserID(m.nextID)
	if err != nil {
		return domain.UserID{}, err
	}
	m.users[m.nextID] = &memUser{
		profile: domain.UserProfile{UserID: id, Username: username, EmailAddress: email, UserRole: role},
		hash:    hash,
	}
	return id, nil
}

func (m *memStore) DeleteUserProfile(_ context.Context, token domain.SessionToken) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.live(token)
	if !ok {
		return false, nil
	}
	id := u.profile.UserID.Int64()
	delete(m.users, id)
	for k, s := range m.sessions {
		if s.userID == id {
			delete(m.sessions, k)
		}
	}
	return true, nil
}

func (m *memStore) UpdateUserProfile(_ context.Context, update ports.ProfileUpdate, token domain.SessionToken) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.live(token)
	if !ok {
		return false, nil
	}
	for id, other := range m.users {
		if id != u.profile.UserID.Int64() &&
			(other.profile.Username == update.Username || other.profile.EmailAddress == update.EmailAddress) {
			return false, errDuplicate
		}
	}
	u.profile.Username = update.Username
	u.profile.EmailAddress = update.EmailAddress
	return true, nil
}

func (m *memStore) UpdatePasswordHash(_ context.Context, hash domain.PasswordHash, token domain.SessionToken) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.live(token)
	if !ok {
		return false, nil
	}
	u.hash = hash
	return true, nil
}

func (m *memStore) UpdateUserRole(_ context.Context, userID domain.UserID, role domain.UserRole) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID.Int64()]
	if !ok {
		return false, nil
	}
	u.profile.UserRole = role
	return true, nil
}

func (m *memStore) owner(excluding *domain.SessionToken) int64 {
	if excluding == nil {
		return 0
	}
	if u, ok := m.live(*excluding); ok {
		return u.profile.UserID.Int64()
	}
	return 0
}

func (m *memStore) IsUsernameInUse(_ context.Context, username domain.Username, excluding *domain.SessionToken) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	self := m.owner(excluding)
	for id, u := range m.users {
		if id != self && u.profile.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) IsEmailAddressInUse(_ context.Context, email domain.EmailAddress, excluding *domain.SessionToken) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	self := m.owner(excluding)
	for id, u := range m.users {
		if id != self && u.profile.EmailAddress == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) IsUniqueConstraintViolated(err error) bool {
	return errors.Is(err, errDuplicate)
}

func (m *memStore) DeleteExpiredSessions(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, s := range m.sessions {
		if !s.expiresAt.After(m.now()) {
			delete(m.sessions, k)
			n++
		}
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

var (
	keyOnce sync.Once
	testKey *rsa.PrivateKey
)

func signingKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = k
	})
	return testKey
}

type fixture struct {
	store    *memStore
	sessions *sessionService
	accounts ports.AccountService
	tokens   *token.Issuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key := signingKey(t)
	tokens, err := token.NewIssuer(key, &key.PublicKey, 5*time.Minute)
	require.NoError(t, err)

	store := newMemStore()
	log := zerolog.Nop()
	return &fixture{
		store:    store,
		sessions: newSessionService(store, tokens, time.Hour, bcrypt.MinCost, log),
		accounts: NewAccountService(store, bcrypt.MinCost, log),
		tokens:   tokens,
	}
}

// register creates a user through the service and returns its profile.
func (f *fixture) register(t *testing.T, username, email, password string) domain.UserProfile {
	t.Helper()
	profile, err := f.accounts.CreateUser(context.Background(),
		domain.RawString(username), domain.RawString(email), domain.RawString(password))
	require.NoError(t, err)
	return profile
}

// login opens a session and returns the grant.
func (f *fixture) login(t *testing.T, username, password string) *ports.SessionGrant {
	t.Helper()
	grant, err := f.sessions.CreateSession(context.Background(), domain.RawString(username), domain.RawString(password))
	require.NoError(t, err)
	return grant
}

func raw(s string) domain.Raw { return domain.RawString(s) }
