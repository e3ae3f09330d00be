package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thep200/github-frontier/internal/model"
	"github.com/thep200/github-frontier/pkg/log"
)

type State int

const (
	StateExpanding State = iota
	StateFetching
	StateSleeping
	StateDone
)

func (s State) String() string {
	switch s {
	case StateExpanding:
		return "EXPANDING"
	case StateFetching:
		return "FETCHING"
	case StateSleeping:
		return "SLEEPING"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Run alternates Expand and Fetch until both queues stay empty for
// Crawler.EmptyCycles cycles. It returns nil on DONE, the context error on
// interrupt and any fatal error otherwise. One step is the unit of interruption.
func (c *Crawler) Run(ctx context.Context) error {
	startTime := time.Now()
	if err := ctx.Err(); err != nil {
		return err
	}
	st, err := c.Store.Stats(ctx)
	if err != nil {
		return c.fail(ctx, err, startTime)
	}
	c.pendingFetch, c.pendingExpand = st.Discovered, st.PendingExpand
	c.Logger.Info(ctx, "Bắt đầu crawl: pending_fetch=%d pending_expand=%d", c.pendingFetch, c.pendingExpand)

	for {
		if err := ctx.Err(); err != nil {
			c.finish(ctx, "interrupted", startTime)
			return err
		}

		switch c.state {
		case StateExpanding:
			err := c.Expand(ctx)
			c.expandIdle = errors.Is(err, ErrNothingToDo)
			if err := c.handle(ctx, err, StateExpanding); err != nil {
				return c.fail(ctx, err, startTime)
			}
			if c.state == StateExpanding {
				c.state = StateFetching
			}

		case StateFetching:
			err := c.Fetch(ctx)
			fetchIdle := errors.Is(err, ErrNothingToDo)
			if err := c.handle(ctx, err, StateFetching); err != nil {
				return c.fail(ctx, err, startTime)
			}
			if c.state != StateFetching {
				continue
			}
			if c.expandIdle && fetchIdle {
				c.emptyCycles++
			} else {
				c.emptyCycles = 0
			}
			if c.emptyCycles >= c.Config.Crawler.EmptyCycles {
				c.state = StateDone
			} else {
				c.state = StateExpanding
			}

		case StateSleeping:
			c.Logger.Notice(ctx, "Rate limit: ngủ %v (reset lúc %s)", c.Budget.Until().Round(time.Second), c.Budget.ResetAt().Format(time.RFC3339))
			if err := c.Budget.SleepUntilReset(ctx); err != nil {
				c.finish(ctx, "interrupted", startTime)
				return err
			}
			c.state = c.resume

		case StateDone:
			c.finish(ctx, "done", startTime)
			return nil
		}
	}
}

// handle applies the error policy for a step outcome. A non-nil return is fatal.
func (c *Crawler) handle(ctx context.Context, err error, from State) error {
	var stepErr *StepError
	switch {
	case err == nil, errors.Is(err, ErrNothingToDo):
		return nil

	case errors.Is(err, ErrRateLimited):
		c.resume = from
		c.state = StateSleeping
		return nil

	case errors.As(err, &stepErr):
		if stepErr.Op == model.OpExpand {
			return c.expandFailed(ctx, stepErr)
		}
		c.fetchErrors++
		c.Logger.Warn(ctx, "%v (fetch errors %d/%d)", stepErr, c.fetchErrors, c.Config.Crawler.MaxFetchErrors)
		if c.fetchErrors > c.Config.Crawler.MaxFetchErrors {
			return fmt.Errorf("%w: %d fetch failures, last: %v", ErrMaxErrorsExceeded, c.fetchErrors, stepErr)
		}
		return nil

	default:
		return err
	}
}

func (c *Crawler) expandFailed(ctx context.Context, stepErr *StepError) error {
	c.expandErrors[stepErr.TodoID]++
	count := c.expandErrors[stepErr.TodoID]
	c.Logger.Warn(ctx, "%v (errors %d/%d)", stepErr, count, c.Config.Crawler.MaxExpandErrors)
	if count <= c.Config.Crawler.MaxExpandErrors {
		return nil
	}

	todo, err := c.Store.NextExpansionTarget(ctx)
	if err != nil {
		return err
	}
	if todo == nil || todo.ID != stepErr.TodoID {
		delete(c.expandErrors, stepErr.TodoID)
		return nil
	}
	reason := fmt.Sprintf("%s after %d attempts: %v", stepErr.Kind, count, stepErr.Err)
	if err := c.Store.MarkPermanentlyFailed(ctx, todo, reason); err != nil {
		return err
	}
	delete(c.expandErrors, stepErr.TodoID)
	c.pendingExpand--
	c.Logger.Alert(log.WithFields(ctx, log.Fields{"todo_id": todo.ID, "repo_id": todo.RepoID}),
		"PermanentFailure: %s/%s excluded from expansion: %s", todo.Repo.Owner.Login, todo.Repo.Name, reason)
	return nil
}

// stepSucceeded lowers the failure counter of the step by one.
func (c *Crawler) stepSucceeded(op model.OpKind, todoID uint) {
	if op == model.OpFetch {
		if c.fetchErrors > 0 {
			c.fetchErrors--
		}
		return
	}
	if n := c.expandErrors[todoID]; n > 1 {
		c.expandErrors[todoID] = n - 1
	} else {
		delete(c.expandErrors, todoID)
	}
}

func (c *Crawler) fail(ctx context.Context, err error, startTime time.Time) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		c.finish(ctx, "interrupted", startTime)
		return err
	}
	c.Logger.Critical(ctx, "Crawl stopped: %v", err)
	c.finish(ctx, "failed", startTime)
	return err
}

// finish logs the final counts. The store is read without the caller's
// cancellation so an interrupted run still reports them.
func (c *Crawler) finish(ctx context.Context, reason string, startTime time.Time) {
	st, err := c.Store.Stats(context.WithoutCancel(ctx))
	if err != nil {
		c.Logger.Error(ctx, "Could not read final counts: %v", err)
		return
	}
	c.Logger.Info(log.WithFields(ctx, log.Fields{
		"reason":           reason,
		"state":            c.state.String(),
		"discovered":       st.Discovered,
		"fetched":          st.Fetched,
		"pending_expand":   st.PendingExpand,
		"expanded":         st.Expanded(),
		"permanent_errors": st.PermanentErrors,
		"dropped":          st.DroppedFetches,
		"elapsed":          time.Since(startTime).Round(time.Second).String(),
	}), "==== KẾT QUẢ CRAWL ==== %s", st)
}
