package httpserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/pscheid92/fortyfive/internal/domain"
	"github.com/pscheid92/fortyfive/internal/platform/config"
)

const testAdminToken = "s3cret-admin-token"

type memoryConfigs struct {
	mu      sync.Mutex
	configs map[string]domain.BroadcasterConfig
	err     error
}

func newMemoryConfigs() *memoryConfigs {
	return &memoryConfigs{configs: make(map[string]domain.BroadcasterConfig)}
}

func (m *memoryConfigs) Get(_ context.Context, broadcasterID string) (*domain.BroadcasterConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	cfg, ok := m.configs[broadcasterID]
	if !ok {
		return nil, domain.ErrConfigNotFound
	}
	return &cfg, nil
}

func (m *memoryConfigs) Put(_ context.Context, broadcasterID string, cfg domain.BroadcasterConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.configs[broadcasterID] = cfg
	return nil
}

func (m *memoryConfigs) Delete(_ context.Context, broadcasterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.configs, broadcasterID)
	return nil
}

type fakeSubscriptions struct {
	subscribed   []string
	unsubscribed []string
	err          error
}

func (f *fakeSubscriptions) Subscribe(_ context.Context, broadcasterUserID string) error {
	f.subscribed = append(f.subscribed, broadcasterUserID)
	return f.err
}

func (f *fakeSubscriptions) Unsubscribe(_ context.Context, broadcasterUserID string) error {
	f.unsubscribed = append(f.unsubscribed, broadcasterUserID)
	return f.err
}

type serverOptions struct {
	cfg           *config.Config
	webhook       http.Handler
	configs       domain.ConfigStore
	subscriptions domain.EventSubService
	healthChecks  []HealthCheck
	metrics       http.Handler
}

func withAdminToken(token string) func(*serverOptions) {
	return func(o *serverOptions) { o.cfg.AdminToken = token }
}

func withWebhook(h http.Handler) func(*serverOptions) {
	return func(o *serverOptions) { o.webhook = h }
}

func withConfigs(c domain.ConfigStore) func(*serverOptions) {
	return func(o *serverOptions) { o.configs = c }
}

func withSubscriptions(s domain.EventSubService) func(*serverOptions) {
	return func(o *serverOptions) { o.subscriptions = s }
}

func withHealthChecks(checks ...HealthCheck) func(*serverOptions) {
	return func(o *serverOptions) { o.healthChecks = checks }
}

func withMetricsHandler(h http.Handler) func(*serverOptions) {
	return func(o *serverOptions) { o.metrics = h }
}

func newTestServer(t *testing.T, opts ...func(*serverOptions)) *Server {
	t.Helper()

	o := &serverOptions{
		cfg:     &config.Config{Port: "0", AdminToken: testAdminToken},
		webhook: http.NotFoundHandler(),
		configs: newMemoryConfigs(),
	}
	for _, opt := range opts {
		opt(o)
	}

	return NewServer(o.cfg, o.webhook, o.configs, o.subscriptions, o.healthChecks, o.metrics, nil)
}

// serve runs a request through the full middleware stack.
func serve(srv *Server, method, target, body string, authorized bool) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorized {
		req.Header.Set("Authorization", "Bearer "+testAdminToken)
	}

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}
