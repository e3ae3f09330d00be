package crawler

import (
	"context"
	"fmt"

	"github.com/thep200/github-frontier/internal/cost"
	"github.com/thep200/github-frontier/internal/frontier"
	githubapi "github.com/thep200/github-frontier/internal/github_api"
	"github.com/thep200/github-frontier/internal/model"
	"github.com/thep200/github-frontier/pkg/log"
)

type promotion struct {
	repo   *model.Repo
	rec    model.NewRepo
	detail *githubapi.RepoDetail
}

// Fetch pulls a budget sized batch of discovered repositories, requests their
// details in one query and promotes every answered record. Records the
// provider left out stay pending until MaxOmissions is reached.
func (c *Crawler) Fetch(ctx context.Context) error {
	pending, err := c.Store.HasPendingFetch(ctx)
	if err != nil {
		return err
	}
	if !pending {
		return ErrNothingToDo
	}

	perItem := c.Estimator.PerItem(model.OpFetch)
	size := cost.BatchSize(c.Budget.Spendable(), c.Budget.Scale(), perItem, c.Config.Crawler.MaxBatch)
	if size == 0 {
		return ErrRateLimited
	}
	batch, err := c.Store.NextFetchBatch(ctx, size)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return ErrNothingToDo
	}

	targets := make([]model.Identity, len(batch))
	for i, rec := range batch {
		targets[i] = model.Identity{Owner: rec.Owner.Login, Name: rec.Name}
	}
	guess := c.Estimator.Estimate(model.OpFetch, len(batch))
	ctx = log.WithFields(ctx, log.Fields{"step": "fetch", "batch": len(batch)})

	op := model.Operation{Kind: model.OpFetch, Targets: targets}
	resp, actual, err := c.send(ctx, op, guess)
	if err != nil {
		return classify(err, model.OpFetch, 0)
	}
	details, err := githubapi.ParseFetch(resp.Data, len(batch))
	if err != nil {
		return classify(err, model.OpFetch, 0)
	}

	byKey := make(map[string]*githubapi.RepoDetail, len(details))
	for _, d := range details {
		if d != nil {
			byKey[d.Identity.Key()] = d
		}
	}

	var (
		promoted []promotion
		omitted  []model.NewRepo
		dropped  []model.NewRepo
	)
	for i, rec := range batch {
		if d, ok := byKey[targets[i].Key()]; ok {
			promoted = append(promoted, promotion{rec: rec, detail: d})
			continue
		}
		if c.omissions[rec.ID]+1 >= c.Config.Crawler.MaxOmissions {
			dropped = append(dropped, rec)
		} else {
			omitted = append(omitted, rec)
		}
	}

	err = c.Store.Transaction(ctx, func(tx *frontier.Store) error {
		for i := range promoted {
			repo, err := tx.PromoteToFetched(ctx, promoted[i].rec, attributesOf(promoted[i].detail))
			if err != nil {
				return err
			}
			promoted[i].repo = repo
		}
		for _, rec := range dropped {
			reason := fmt.Sprintf("omitted from %d consecutive fetch responses", c.Config.Crawler.MaxOmissions)
			if err := tx.DropDiscovered(ctx, rec, reason); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, p := range promoted {
		delete(c.omissions, p.rec.ID)
	}
	for _, rec := range omitted {
		c.omissions[rec.ID]++
	}
	for _, rec := range dropped {
		delete(c.omissions, rec.ID)
		c.Logger.Warn(ctx, "Dropped %s/%s after %d omissions", rec.Owner.Login, rec.Name, c.Config.Crawler.MaxOmissions)
	}

	c.stepSucceeded(model.OpFetch, 0)
	c.pendingFetch -= int64(len(promoted) + len(dropped))
	c.pendingExpand += int64(len(promoted))
	c.Logger.Info(log.WithFields(ctx, log.Fields{
		"guess":          guess,
		"actual_cost":    actual,
		"remaining":      c.Budget.Remaining(),
		"omitted":        len(omitted),
		"dropped":        len(dropped),
		"pending_fetch":  c.pendingFetch,
		"pending_expand": c.pendingExpand,
		"fetch_delta":    -(len(promoted) + len(dropped)),
		"expand_delta":   len(promoted),
	}), "Fetched %d of %d repositories", len(promoted), len(batch))

	c.publish(ctx, promoted)
	return nil
}

func attributesOf(d *githubapi.RepoDetail) frontier.Attributes {
	attrs := frontier.Attributes{
		Description: d.Description,
		DiskUsage:   d.DiskUsage,
		Url:         d.Url,
		IsFork:      d.IsFork,
		IsMirror:    d.IsMirror,
	}
	for _, l := range d.Languages {
		attrs.Languages = append(attrs.Languages, frontier.LanguageSize{Name: l.Name, Color: l.Color, Bytes: l.Bytes})
	}
	return attrs
}

// publish runs after commit, a broker outage never undoes a step.
func (c *Crawler) publish(ctx context.Context, promoted []promotion) {
	if c.Publisher == nil {
		return
	}
	for _, p := range promoted {
		msg := model.RepoMessage{
			ID:          p.repo.ID,
			Owner:       p.rec.Owner.Login,
			OwnerKind:   p.rec.Owner.OwnerType.Typename,
			Name:        p.repo.Name,
			Description: p.repo.Description,
			DiskUsage:   p.repo.DiskUsage,
			Url:         p.repo.Url,
			IsFork:      p.repo.IsFork,
			IsMirror:    p.repo.IsMirror,
			Languages:   make(map[string]int64, len(p.detail.Languages)),
		}
		for _, l := range p.detail.Languages {
			msg.Languages[l.Name] = l.Bytes
		}
		if err := c.Publisher.PublishRepo(ctx, msg); err != nil {
			c.Logger.Error(ctx, "Publish %s/%s failed: %v", msg.Owner, msg.Name, err)
		}
	}
}
