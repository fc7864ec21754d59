package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pscheid92/fortyfive/internal/domain"
)

// Dispatcher implements domain.ChatMessageHandler by routing each message on
// its own goroutine, so the webhook can be acknowledged immediately.
type Dispatcher struct {
	router  *Router
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(router *Router, timeout time.Duration) *Dispatcher {
	return &Dispatcher{router: router, timeout: timeout}
}

// HandleChatMessage returns immediately. The command keeps ctx's values but
// not its cancellation, and is bounded by the dispatcher timeout instead.
func (d *Dispatcher) HandleChatMessage(ctx context.Context, msg domain.ChatMessage) {
	ctx = context.WithoutCancel(ctx)

	d.wg.Go(func() {
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		defer func() {
			if rec := recover(); rec != nil {
				slog.ErrorContext(ctx, "Command panicked", "message_id", msg.MessageID, "panic", rec)
			}
		}()

		d.router.Route(ctx, msg)
	})
}

// Wait blocks until in-flight commands finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ domain.ChatMessageHandler = (*Dispatcher)(nil)
