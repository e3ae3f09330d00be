// Crawler mở rộng frontier theo hai bước: expand (tìm repo lân cận) và fetch
// (lấy chi tiết theo lô). Một worker duy nhất, mỗi lúc một request.

package crawler

import (
	"context"
	"errors"
	"time"

	"github.com/thep200/github-frontier/cfg"
	"github.com/thep200/github-frontier/internal/budget"
	"github.com/thep200/github-frontier/internal/cost"
	"github.com/thep200/github-frontier/internal/frontier"
	githubapi "github.com/thep200/github-frontier/internal/github_api"
	"github.com/thep200/github-frontier/internal/model"
	"github.com/thep200/github-frontier/pkg/log"
)

// Querier sends one prepared operation to the provider.
type Querier interface {
	Send(ctx context.Context, op model.Operation) (*githubapi.Response, error)
}

// Publisher receives every promoted repository after its step committed.
type Publisher interface {
	PublishRepo(ctx context.Context, msg model.RepoMessage) error
}

type Crawler struct {
	Logger    log.Logger
	Config    *cfg.Config
	Store     *frontier.Store
	Querier   Querier
	Budget    *budget.Budget
	Estimator *cost.Estimator
	Shape     githubapi.QueryShape
	Publisher Publisher

	state  State
	resume State
	// số chu kỳ liên tiếp cả hai hàng đợi đều rỗng
	emptyCycles int
	expandIdle  bool

	expandErrors map[uint]int
	fetchErrors  int
	omissions    map[uint]int

	// queue depths, loaded once by Run and kept current from step deltas
	pendingFetch  int64
	pendingExpand int64
}

func NewCrawler(logger log.Logger, config *cfg.Config, store *frontier.Store, querier Querier, b *budget.Budget, estimator *cost.Estimator) *Crawler {
	return &Crawler{
		Logger:       logger,
		Config:       config,
		Store:        store,
		Querier:      querier,
		Budget:       b,
		Estimator:    estimator,
		Shape:        githubapi.ShapeFromConfig(config),
		state:        StateExpanding,
		expandErrors: make(map[uint]int),
		omissions:    make(map[uint]int),
	}
}

// WithPublisher enables the event stream of promoted repositories.
func (c *Crawler) WithPublisher(p Publisher) *Crawler {
	c.Publisher = p
	return c
}

func (c *Crawler) State() State {
	return c.state
}

// Seed records starting points in the discovered set. Already known
// repositories are skipped.
func (c *Crawler) Seed(ctx context.Context, kind string, seeds ...model.Identity) (int, error) {
	added := 0
	for _, s := range seeds {
		inserted, err := c.Store.RecordDiscovered(ctx, s.Owner, kind, s.Name)
		if err != nil {
			return added, err
		}
		if inserted {
			added++
			c.Logger.Info(ctx, "Seeded %s", s)
		} else {
			c.Logger.Debug(ctx, "Seed %s already known", s)
		}
	}
	return added, nil
}

// send issues op and feeds the budget signal back, whatever the outcome.
func (c *Crawler) send(ctx context.Context, op model.Operation, guess int) (*githubapi.Response, int, error) {
	resp, err := c.Querier.Send(ctx, op)

	actual := -1
	if resp != nil && resp.Budget != nil {
		c.Budget.Observe(resp.Budget.Remaining, resp.Budget.ResetAt)
		actual = resp.Budget.Cost * c.Budget.Scale()
	}

	if errors.Is(err, githubapi.ErrRateLimited) {
		var resetAt time.Time
		if resp != nil && resp.Budget != nil {
			resetAt = resp.Budget.ResetAt
		}
		c.Budget.Observe(0, resetAt)
		c.Logger.Warn(ctx, "Provider refused %s: %v", op.Kind, err)
		return nil, actual, ErrRateLimited
	}

	if err == nil && actual >= 0 {
		sample := model.QueryCost{Kind: string(op.Kind), BatchSize: len(op.Targets), Guess: guess, NormalizedActual: actual}
		if errRec := c.Store.RecordCost(ctx, sample); errRec != nil {
			c.Logger.Warn(ctx, "Could not record cost sample: %v", errRec)
		}
	}
	return resp, actual, err
}

// classify maps collaborator failures onto the step taxonomy. Anything it
// does not know stays as is and ends the loop.
func classify(err error, op model.OpKind, todoID uint) error {
	switch {
	case errors.Is(err, ErrRateLimited), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, githubapi.ErrEmptyResult):
		return &StepError{Kind: EmptyResult, Op: op, TodoID: todoID, Err: err}
	case errors.Is(err, githubapi.ErrMalformed), errors.Is(err, githubapi.ErrTransport):
		return &StepError{Kind: MalformedResponse, Op: op, TodoID: todoID, Err: err}
	default:
		return err
	}
}
