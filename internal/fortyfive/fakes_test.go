package fortyfive

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/fortyfive/internal/adapter/metrics"
	"github.com/pscheid92/fortyfive/internal/domain"
)

// memoryAttempts mirrors the SQL stores: a new attempt's epoch is the number
// of perfect attempts already in the channel.
type memoryAttempts struct {
	mu       sync.Mutex
	rows     []domain.Attempt
	err      error
	inserted int
}

func (r *memoryAttempts) currentEpoch(broadcasterID string) int64 {
	var n int64
	for _, a := range r.rows {
		if a.BroadcasterID == broadcasterID && a.IsPerfect() {
			n++
		}
	}
	return n
}

func (r *memoryAttempts) Insert(_ context.Context, a domain.Attempt) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	a.Epoch = r.currentEpoch(a.BroadcasterID)
	r.rows = append(r.rows, a)
	r.inserted++
	return a.Epoch, nil
}

func (r *memoryAttempts) CurrentRecord(_ context.Context, broadcasterID string, chatterID *string, kind domain.RecordKind) (*domain.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}

	epoch := r.currentEpoch(broadcasterID)
	var matches []domain.Attempt
	for _, a := range r.rows {
		if a.BroadcasterID != broadcasterID || a.Epoch != epoch {
			continue
		}
		if chatterID != nil && a.ChatterID != *chatterID {
			continue
		}
		matches = append(matches, a)
	}
	if len(matches) == 0 {
		return nil, domain.ErrAttemptNotFound
	}

	slices.SortStableFunc(matches, func(x, y domain.Attempt) int {
		c := x.Difference.Cmp(y.Difference)
		if kind == domain.RecordWorst {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(y.Timestamp, x.Timestamp)
	})
	return &matches[0], nil
}

func (r *memoryAttempts) HasAttempts(_ context.Context, broadcasterID, chatterID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	return slices.ContainsFunc(r.rows, func(a domain.Attempt) bool {
		return a.BroadcasterID == broadcasterID && a.ChatterID == chatterID
	}), nil
}

func (r *memoryAttempts) LatestPerfect(_ context.Context, broadcasterID string, epoch *int64) (*domain.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}

	var best *domain.Attempt
	for i, a := range r.rows {
		if a.BroadcasterID != broadcasterID || !a.IsPerfect() {
			continue
		}
		if epoch != nil && a.Epoch != *epoch {
			continue
		}
		if best == nil || a.Epoch > best.Epoch {
			best = &r.rows[i]
		}
	}
	if best == nil {
		return nil, domain.ErrAttemptNotFound
	}
	out := *best
	return &out, nil
}

func (r *memoryAttempts) Ping(context.Context) error { return r.err }

// add stores an attempt produced by raw at the given time.
func (r *memoryAttempts) add(t *testing.T, broadcasterID, chatterID string, raw int64, ts int64) {
	t.Helper()
	value, diff := Score(raw)
	if _, err := r.Insert(t.Context(), domain.Attempt{BroadcasterID: broadcasterID, ChatterID: chatterID, Value: value, Difference: diff, Timestamp: ts}); err != nil {
		t.Fatal(err)
	}
}

type memoryTimeouts struct {
	mu      sync.Mutex
	entries map[string]domain.Timeout
	err     error
}

func newMemoryTimeouts() *memoryTimeouts {
	return &memoryTimeouts{entries: make(map[string]domain.Timeout)}
}

func (s *memoryTimeouts) Put(_ context.Context, broadcasterID, chatterID string, t domain.Timeout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, err := t.Duration(); err != nil {
		return err
	}
	s.entries[broadcasterID+"/"+chatterID] = t
	return nil
}

func (s *memoryTimeouts) Get(_ context.Context, broadcasterID, chatterID string) (*domain.Timeout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	t, ok := s.entries[broadcasterID+"/"+chatterID]
	if !ok {
		return nil, domain.ErrTimeoutNotFound
	}
	return &t, nil
}

func (s *memoryTimeouts) Delete(_ context.Context, broadcasterID, chatterID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	key := broadcasterID + "/" + chatterID
	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok, nil
}

type fakeUsers struct {
	users []domain.TwitchUser
	err   error
	// logins records every login passed to UserByLogin.
	logins []string
}

func (f *fakeUsers) UserByLogin(_ context.Context, login string) (*domain.TwitchUser, error) {
	f.logins = append(f.logins, login)
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Login == login {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUsers) UserByID(_ context.Context, id string) (*domain.TwitchUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

var errBoom = errors.New("boom")

var testStart = time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)

const testBroadcaster = "b-1"

var (
	alice = domain.TwitchUser{ID: "u-alice", Login: "alice", DisplayName: "Alice"}
	bob   = domain.TwitchUser{ID: "u-bob", Login: "bob", DisplayName: "BoB_"}
)

type testEngine struct {
	*Engine
	attempts *memoryAttempts
	timeouts *memoryTimeouts
	users    *fakeUsers
	clock    *clockwork.FakeClock
	metrics  *metrics.CommandMetrics
	draws    []int64
}

func newTestEngine(t *testing.T, draws ...int64) *testEngine {
	t.Helper()

	te := &testEngine{
		attempts: &memoryAttempts{},
		timeouts: newMemoryTimeouts(),
		users:    &fakeUsers{users: []domain.TwitchUser{alice, bob}},
		clock:    clockwork.NewFakeClockAt(testStart),
		metrics:  metrics.NewCommandMetrics(metrics.NewRegistry()),
		draws:    draws,
	}
	draw := func() int64 {
		if len(te.draws) == 0 {
			t.Fatal("unexpected draw")
		}
		d := te.draws[0]
		te.draws = te.draws[1:]
		return d
	}
	te.Engine = NewEngine(te.attempts, te.timeouts, te.users, te.clock, draw, te.metrics)
	return te
}

func invocationFor(user domain.TwitchUser) Invocation {
	return Invocation{
		BroadcasterID: testBroadcaster,
		ChatterID:     user.ID,
		ChatterLogin:  user.Login,
		ChatterName:   user.DisplayName,
		Config:        domain.DefaultBroadcasterConfig(),
	}
}
