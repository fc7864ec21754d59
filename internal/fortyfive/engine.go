package fortyfive

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/fortyfive/internal/adapter/metrics"
	"github.com/pscheid92/fortyfive/internal/domain"
)

// MaxDraw is the upper bound (inclusive) of the raw draw.
const MaxDraw = 18000

// Invocation is the chat context a command runs in.
type Invocation struct {
	BroadcasterID string
	ChatterID     string
	ChatterLogin  string
	ChatterName   string
	Config        domain.BroadcasterConfig
}

// Draw returns a uniformly distributed integer in [0, MaxDraw].
type Draw func() int64

// UniformDraw draws from math/rand/v2.
func UniformDraw() int64 {
	return rand.Int64N(MaxDraw + 1)
}

type Engine struct {
	attempts domain.AttemptRepository
	timeouts domain.TimeoutStore
	users    domain.UserDirectory
	clock    clockwork.Clock
	draw     Draw
	metrics  *metrics.CommandMetrics
}

// NewEngine creates the minigame engine. draw defaults to UniformDraw and m may be nil.
func NewEngine(attempts domain.AttemptRepository, timeouts domain.TimeoutStore, users domain.UserDirectory, clock clockwork.Clock, draw Draw, m *metrics.CommandMetrics) *Engine {
	if draw == nil {
		draw = UniformDraw
	}
	return &Engine{
		attempts: attempts,
		timeouts: timeouts,
		users:    users,
		clock:    clock,
		draw:     draw,
		metrics:  m,
	}
}

// displayName resolves a chatter id to its display name. ok is false when
// the account no longer exists.
func (e *Engine) displayName(ctx context.Context, chatterID string) (name string, ok bool, err error) {
	user, err := e.users.UserByID(ctx, chatterID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return user.DisplayName, true, nil
}

// lookupLogin resolves a login as typed in chat; "@" is dropped and the
// name is matched case-insensitively.
func (e *Engine) lookupLogin(ctx context.Context, login string) (*domain.TwitchUser, error) {
	return e.users.UserByLogin(ctx, normalizeLogin(login))
}

func normalizeLogin(login string) string {
	return strings.ToLower(stripAt(login))
}

func stripAt(login string) string {
	return strings.ReplaceAll(login, "@", "")
}
