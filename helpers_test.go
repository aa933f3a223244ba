package authcore

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// memStore is an in-memory Store with the same conditional semantics the
// engine relies on: one-shot session revocation and exactly-once action-token
// consumption, both serialized under a single mutex.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*Account
	byEmail  map[string]string
	sessions map[string]*RefreshSession // by token hash
	tokens   map[string]*ActionToken    // by id
	links    map[string]*OAuthLink      // by id
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[string]*Account),
		byEmail:  make(map[string]string),
		sessions: make(map[string]*RefreshSession),
		tokens:   make(map[string]*ActionToken),
		links:    make(map[string]*OAuthLink),
	}
}

func (m *memStore) InTx(ctx context.Context, fn func(Store) error) error {
	return fn(m)
}

func (m *memStore) CreateAccount(ctx context.Context, account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[account.Email]; ok {
		return ErrAccountExists
	}
	cp := *account
	m.accounts[account.ID] = &cp
	m.byEmail[account.Email] = account.ID
	return nil
}

func (m *memStore) AccountByID(ctx context.Context, id string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *m.accounts[id]
	return &cp, nil
}

func (m *memStore) UpdatePasswordHash(ctx context.Context, accountID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (m *memStore) MarkEmailVerified(ctx context.Context, accountID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	a.EmailVerified = true
	t := at
	a.EmailVerifiedAt = &t
	return nil
}

func (m *memStore) SetTOTP(ctx context.Context, accountID string, enabled bool, secret []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	a.TOTPEnabled = enabled
	a.TOTPSecret = secret
	return nil
}

func (m *memStore) InsertRefreshSession(ctx context.Context, session *RefreshSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *session
	m.sessions[session.TokenHash] = &cp
	return nil
}

func (m *memStore) RevokeRefreshSessionByHash(ctx context.Context, tokenHash string, now time.Time) (*RefreshSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[tokenHash]
	if !ok || s.RevokedAt != nil || !s.ExpiresAt.After(now) {
		return nil, ErrSessionNotFound
	}
	t := now
	s.RevokedAt = &t
	cp := *s
	return &cp, nil
}

func (m *memStore) RevokeAccountSessions(ctx context.Context, accountID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.AccountID == accountID && s.RevokedAt == nil {
			t := now
			s.RevokedAt = &t
		}
	}
	return nil
}

func (m *memStore) InsertActionToken(ctx context.Context, token *ActionToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *token
	m.tokens[token.ID] = &cp
	return nil
}

func (m *memStore) InvalidateActionTokens(ctx context.Context, accountID string, kind ActionTokenKind, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.AccountID == accountID && t.Kind == kind && t.UsedAt == nil {
			at := now
			t.UsedAt = &at
		}
	}
	return nil
}

func (m *memStore) ActionTokenByHash(ctx context.Context, kind ActionTokenKind, tokenHash string) (*ActionToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.Kind == kind && t.TokenHash == tokenHash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrTokenInvalid
}

func (m *memStore) MarkActionTokenUsed(ctx context.Context, tokenID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[tokenID]
	if !ok || t.UsedAt != nil {
		return ErrTokenUsed
	}
	u := at
	t.UsedAt = &u
	return nil
}

func (m *memStore) OAuthLinkByProvider(ctx context.Context, provider Provider, providerUserID string) (*OAuthLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.links {
		if l.Provider == provider && l.ProviderUserID == providerUserID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, ErrLinkNotFound
}

func (m *memStore) OAuthLinksByAccount(ctx context.Context, accountID string) ([]OAuthLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var links []OAuthLink
	for _, l := range m.links {
		if l.AccountID == accountID {
			links = append(links, *l)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].CreatedAt.Before(links[j].CreatedAt) })
	return links, nil
}

func (m *memStore) CreateOAuthLink(ctx context.Context, link *OAuthLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *link
	m.links[link.ID] = &cp
	return nil
}

func (m *memStore) UpdateOAuthLinkTokens(ctx context.Context, linkID, accessToken, refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[linkID]
	if !ok {
		return ErrLinkNotFound
	}
	l.AccessToken = accessToken
	l.RefreshToken = refreshToken
	return nil
}

func (m *memStore) DeleteOAuthLink(ctx context.Context, accountID string, provider Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, l := range m.links {
		if l.AccountID == accountID && l.Provider == provider {
			delete(m.links, id)
			return nil
		}
	}
	return ErrLinkNotFound
}

func (m *memStore) activeSessionCount(accountID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for _, s := range m.sessions {
		if s.AccountID == accountID && s.RevokedAt == nil {
			n++
		}
	}
	return n
}

// fakeSender records triggered emails.
type fakeSender struct {
	mu   sync.Mutex
	sent []sentEmail
	fail error
}

type sentEmail struct {
	Kind  EmailKind
	Email string
	Token string
}

func (f *fakeSender) Send(ctx context.Context, kind EmailKind, toEmail, toName, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, sentEmail{Kind: kind, Email: toEmail, Token: token})
	return nil
}

func (f *fakeSender) last() (sentEmail, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentEmail{}, false
	}
	return f.sent[len(f.sent)-1], true
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// testClock is a settable time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	// Cheap work factors keep the suite fast.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Providers = ProvidersConfig{Google: true, Facebook: true}
	return cfg
}

type testEnv struct {
	engine *Engine
	store  *memStore
	sender *fakeSender
	clock  *testClock
}

func newTestEngine(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	for _, fn := range mutate {
		fn(&cfg)
	}

	store := newMemStore()
	sender := &fakeSender{}
	clock := newTestClock()

	engine, err := New().
		WithConfig(cfg).
		WithStore(store).
		WithEmailSender(sender).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, store: store, sender: sender, clock: clock}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

const testPassword = "Sup3r-Secret!"

// registerVerified registers an account and marks its email verified.
func registerVerified(t *testing.T, env *testEnv, email string) *Account {
	t.Helper()

	res, err := env.engine.Register(context.Background(), email, "Test User", testPassword, DeviceInfo{})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := env.store.MarkEmailVerified(context.Background(), res.Account.ID, env.clock.Now()); err != nil {
		t.Fatalf("MarkEmailVerified failed: %v", err)
	}
	res.Account.EmailVerified = true
	return res.Account
}

// codeForTOTP computes the code a correctly synced authenticator would show.
func codeForTOTP(t *testing.T, secret []byte, cfg TOTPConfig, now time.Time) string {
	t.Helper()

	counter := now.Unix() / int64(cfg.Period)
	code, err := hotpCode(secret, counter, cfg.Digits, cfg.Algorithm)
	if err != nil {
		t.Fatalf("hotpCode failed: %v", err)
	}
	return code
}
