package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/roomezes/roomezes-backend/pkg/auth/session"
	"github.com/roomezes/roomezes-backend/pkg/db/models"
	pkgerrors "github.com/roomezes/roomezes-backend/pkg/errors"
	"github.com/roomezes/roomezes-backend/pkg/logger"
)

const defaultHookTimeout = 20 * time.Second

// PlacedOrder is handed to every post-commit hook once an order is durable.
type PlacedOrder struct {
	Order     models.Order
	Vendor    models.Vendor
	Purchaser session.Context
	PlacedAt  time.Time
}

// Hook is a side effect that runs after an order commits. Errors are logged and never change
// the checkout result.
type Hook interface {
	Name() string
	Handle(ctx context.Context, placed PlacedOrder) error
}

// Runner fans a placed order out to hooks, each in its own goroutine.
type Runner struct {
	hooks   []Hook
	timeout time.Duration
	logg    *logger.Logger
	wg      sync.WaitGroup
}

func NewRunner(logg *logger.Logger, timeout time.Duration, hooks ...Hook) *Runner {
	if logg == nil {
		logg = logger.Nop()
	}
	if timeout <= 0 {
		timeout = defaultHookTimeout
	}
	return &Runner{hooks: hooks, timeout: timeout, logg: logg}
}

// Dispatch returns immediately. Hooks run detached from ctx cancellation but keep its values.
func (r *Runner) Dispatch(ctx context.Context, placed PlacedOrder) {
	if r == nil || len(r.hooks) == 0 {
		return
	}

	base := context.WithoutCancel(ctx)
	results := make(chan error, len(r.hooks))
	for _, hook := range r.hooks {
		r.wg.Add(1)
		go func(h Hook) {
			defer r.wg.Done()
			results <- r.invoke(base, h, placed)
		}(hook)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		var combined error
		for range r.hooks {
			combined = multierr.Append(combined, <-results)
		}
		if combined != nil {
			logCtx := r.logg.WithField(base, "order_id", placed.Order.ID.String())
			r.logg.Error(logCtx, "post-commit hooks failed", combined)
		}
	}()
}

func (r *Runner) invoke(ctx context.Context, h Hook, placed PlacedOrder) (err error) {
	hookCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			err = pkgerrors.New(pkgerrors.CodeNotificationFailed, fmt.Sprintf("hook %s panicked: %v", h.Name(), rec))
		}
	}()

	if hookErr := h.Handle(hookCtx, placed); hookErr != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotificationFailed, hookErr, "hook "+h.Name())
	}
	return nil
}

// Wait blocks until every dispatched hook has returned or ctx ends.
func (r *Runner) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
