package crawler

import (
	"context"
	"errors"

	"github.com/thep200/github-frontier/internal/frontier"
	githubapi "github.com/thep200/github-frontier/internal/github_api"
	"github.com/thep200/github-frontier/internal/model"
	"github.com/thep200/github-frontier/pkg/log"
)

// Expand explores the neighbors of the oldest fetched repository. New
// neighbors are recorded and the todo is retired in one transaction.
func (c *Crawler) Expand(ctx context.Context) error {
	pending, err := c.Store.HasPendingExpansion(ctx)
	if err != nil {
		return err
	}
	if !pending {
		return ErrNothingToDo
	}
	todo, err := c.Store.NextExpansionTarget(ctx)
	if err != nil {
		return err
	}
	if todo == nil {
		return ErrNothingToDo
	}

	target := model.Identity{Owner: todo.Repo.Owner.Login, Name: todo.Repo.Name}
	guess := c.Estimator.Estimate(model.OpExpand, 1)
	if !c.Budget.CanAfford(guess) {
		return ErrRateLimited
	}
	ctx = log.WithFields(ctx, log.Fields{"step": "expand", "target": target.String(), "todo_id": todo.ID})

	var (
		neighbors []githubapi.Neighbor
		cursors   map[string]string
		actual    int
		pages     int
	)
	for pages < c.Config.Crawler.ExpandPages {
		// trang tiếp theo chỉ khi budget còn đủ, phần đã lấy vẫn được ghi
		if pages > 0 && !c.Budget.CanAfford(guess) {
			c.Logger.Debug(ctx, "Budget too low for page %d, keeping %d neighbors", pages+1, len(neighbors))
			break
		}
		op := model.Operation{Kind: model.OpExpand, Targets: []model.Identity{target}, Cursors: cursors}
		resp, cost, err := c.send(ctx, op, guess)
		if cost > 0 {
			actual += cost
		}
		var page *githubapi.ExpandPage
		if err == nil {
			page, err = githubapi.ParseExpand(resp.Data, githubapi.RequestedSets(op, c.Shape))
		}
		if err != nil {
			err = classify(err, model.OpExpand, todo.ID)
			if pages > 0 && recoverable(err) {
				c.Logger.Warn(ctx, "Page %d failed, keeping %d neighbors: %v", pages+1, len(neighbors), err)
				break
			}
			return err
		}
		neighbors = append(neighbors, page.Neighbors...)
		pages++
		if len(page.Next) == 0 {
			break
		}
		cursors = page.Next
	}

	added := 0
	err = c.Store.Transaction(ctx, func(tx *frontier.Store) error {
		added = 0
		for _, n := range neighbors {
			inserted, err := tx.RecordDiscovered(ctx, n.Owner, n.OwnerKind, n.Name)
			if errors.Is(err, frontier.ErrOwnerKind) {
				continue
			}
			if err != nil {
				return err
			}
			if inserted {
				added++
			}
		}
		return tx.RetireExpansion(ctx, todo)
	})
	if err != nil {
		return err
	}

	c.stepSucceeded(model.OpExpand, todo.ID)
	c.pendingFetch += int64(added)
	c.pendingExpand--
	c.Logger.Info(log.WithFields(ctx, log.Fields{
		"guess":          guess * pages,
		"actual_cost":    actual,
		"remaining":      c.Budget.Remaining(),
		"pages":          pages,
		"neighbors":      len(neighbors),
		"pending_fetch":  c.pendingFetch,
		"pending_expand": c.pendingExpand,
		"fetch_delta":    added,
		"expand_delta":   -1,
	}), "Expanded %s: %d new of %d neighbors", target, added, len(neighbors))
	return nil
}

// recoverable reports whether the loop would retry the step after err.
func recoverable(err error) bool {
	var stepErr *StepError
	return errors.Is(err, ErrRateLimited) || errors.As(err, &stepErr)
}
