package twitch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pscheid92/fortyfive/internal/adapter/metrics"
	"github.com/pscheid92/fortyfive/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryTokenStore struct {
	mu     sync.Mutex
	token  string
	getErr error
	putErr error
	puts   int
}

func (s *memoryTokenStore) GetToken(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", s.getErr
	}
	if s.token == "" {
		return "", domain.ErrTokenNotFound
	}
	return s.token, nil
}

func (s *memoryTokenStore) PutToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.putErr != nil {
		return s.putErr
	}
	s.token = token
	return nil
}

type fakeValidator struct {
	valid map[string]bool
	err   error
	calls atomic.Int32
}

func (v *fakeValidator) ValidateToken(_ context.Context, token string) (bool, error) {
	v.calls.Add(1)
	if v.err != nil {
		return false, v.err
	}
	return v.valid[token], nil
}

type fakeGranter struct {
	token   string
	err     error
	calls   atomic.Int32
	release chan struct{}
}

func (g *fakeGranter) GrantAppToken(ctx context.Context) (string, error) {
	g.calls.Add(1)
	if g.release != nil {
		select {
		case <-g.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.token, g.err
}

func newTestCredentialManager(store *memoryTokenStore, validator *fakeValidator, granter *fakeGranter) (*CredentialManager, *metrics.TwitchMetrics) {
	m := metrics.NewTwitchMetrics(metrics.NewRegistry())
	return NewCredentialManager(store, validator, granter, m), m
}

func TestCredentialManager_ReusesValidStoredToken(t *testing.T) {
	store := &memoryTokenStore{token: "stored"}
	validator := &fakeValidator{valid: map[string]bool{"stored": true}}
	granter := &fakeGranter{token: "fresh"}
	cm, m := newTestCredentialManager(store, validator, granter)

	token, err := cm.Token(t.Context())
	require.NoError(t, err)

	assert.Equal(t, "stored", token)
	assert.Zero(t, granter.calls.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(m.TokenEvents.WithLabelValues("reused")), 0)
}

func TestCredentialManager_GrantsWhenSlotEmpty(t *testing.T) {
	store := &memoryTokenStore{}
	validator := &fakeValidator{}
	granter := &fakeGranter{token: "fresh"}
	cm, _ := newTestCredentialManager(store, validator, granter)

	token, err := cm.Token(t.Context())
	require.NoError(t, err)

	assert.Equal(t, "fresh", token)
	assert.Equal(t, "fresh", store.token)
	assert.Zero(t, validator.calls.Load())
}

func TestCredentialManager_GrantsWhenStoredTokenInvalid(t *testing.T) {
	store := &memoryTokenStore{token: "expired"}
	validator := &fakeValidator{valid: map[string]bool{}}
	granter := &fakeGranter{token: "fresh"}
	cm, m := newTestCredentialManager(store, validator, granter)

	token, err := cm.Token(t.Context())
	require.NoError(t, err)

	assert.Equal(t, "fresh", token)
	assert.Equal(t, "fresh", store.token)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TokenEvents.WithLabelValues("invalid")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TokenEvents.WithLabelValues("granted")), 0)
}

func TestCredentialManager_DoesNotCacheInMemory(t *testing.T) {
	store := &memoryTokenStore{}
	validator := &fakeValidator{valid: map[string]bool{"fresh": true}}
	granter := &fakeGranter{token: "fresh"}
	cm, _ := newTestCredentialManager(store, validator, granter)

	_, err := cm.Token(t.Context())
	require.NoError(t, err)
	_, err = cm.Token(t.Context())
	require.NoError(t, err)

	assert.Equal(t, int32(1), granter.calls.Load())
	assert.Equal(t, int32(1), validator.calls.Load(), "second call must validate the stored token")
}

func TestCredentialManager_GrantFailure(t *testing.T) {
	store := &memoryTokenStore{}
	granter := &fakeGranter{err: errors.New("twitch down")}
	cm, m := newTestCredentialManager(store, &fakeValidator{}, granter)

	_, err := cm.Token(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "twitch down")
	assert.Zero(t, store.puts)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TokenEvents.WithLabelValues("grant_failed")), 0)
}

func TestCredentialManager_GrantsWhenValidationErrors(t *testing.T) {
	store := &memoryTokenStore{token: "stored"}
	granter := &fakeGranter{token: "fresh"}
	cm, m := newTestCredentialManager(store, &fakeValidator{err: errors.New("timeout")}, granter)

	token, err := cm.Token(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
	assert.Equal(t, int32(1), granter.calls.Load())
	assert.Equal(t, "fresh", store.token)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TokenEvents.WithLabelValues("validate_failed")), 0)
}

func TestCredentialManager_StoreReadErrorIsReturned(t *testing.T) {
	store := &memoryTokenStore{getErr: errors.New("redis down")}
	granter := &fakeGranter{token: "fresh"}
	cm, _ := newTestCredentialManager(store, &fakeValidator{}, granter)

	_, err := cm.Token(t.Context())
	require.Error(t, err)
	assert.Zero(t, granter.calls.Load())
}

func TestCredentialManager_PersistFailureStillReturnsToken(t *testing.T) {
	store := &memoryTokenStore{putErr: errors.New("redis down")}
	cm, _ := newTestCredentialManager(store, &fakeValidator{}, &fakeGranter{token: "fresh"})

	token, err := cm.Token(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
}

func TestCredentialManager_ConcurrentGrantsAreCollapsed(t *testing.T) {
	store := &memoryTokenStore{}
	validator := &fakeValidator{valid: map[string]bool{"fresh": true}}
	granter := &fakeGranter{token: "fresh", release: make(chan struct{})}
	cm, _ := newTestCredentialManager(store, validator, granter)

	const callers = 10
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	for i := range callers {
		wg.Go(func() {
			token, err := cm.Token(t.Context())
			assert.NoError(t, err)
			tokens[i] = token
		})
	}

	assert.Eventually(t, func() bool { return granter.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(granter.release)
	wg.Wait()

	assert.Equal(t, int32(1), granter.calls.Load())
	for _, token := range tokens {
		assert.Equal(t, "fresh", token)
	}
}

func TestCredentialManager_CallerContextCancelled(t *testing.T) {
	granter := &fakeGranter{token: "fresh", release: make(chan struct{})}
	defer close(granter.release)
	cm, _ := newTestCredentialManager(&memoryTokenStore{}, &fakeValidator{}, granter)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := cm.Token(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOAuthGranter_ClientCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"app-token","expires_in":5011271,"token_type":"bearer"}`))
	}))
	defer srv.Close()

	g := NewOAuthGranter("client-id", "client-secret", srv.Client())
	g.config.TokenURL = srv.URL

	token, err := g.GrantAppToken(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "app-token", token)
}

func TestOAuthGranter_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":400,"message":"invalid client secret"}`))
	}))
	defer srv.Close()

	g := NewOAuthGranter("client-id", "wrong", srv.Client())
	g.config.TokenURL = srv.URL

	_, err := g.GrantAppToken(t.Context())
	assert.Error(t, err)
}
