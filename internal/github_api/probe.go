package githubapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shurcooL/githubv4"
)

// BudgetProbe asks the provider for the current rate limit window so the
// crawler does not start from a guessed budget.
type BudgetProbe struct {
	client *githubv4.Client
}

func NewBudgetProbe(graphqlUrl string, httpClient *http.Client) *BudgetProbe {
	return &BudgetProbe{client: githubv4.NewEnterpriseClient(graphqlUrl, httpClient)}
}

func (p *BudgetProbe) Probe(ctx context.Context) (*Budget, error) {
	var q struct {
		RateLimit struct {
			Limit     githubv4.Int
			Cost      githubv4.Int
			Remaining githubv4.Int
			ResetAt   githubv4.DateTime
		}
	}
	if err := p.client.Query(ctx, &q, nil); err != nil {
		return nil, fmt.Errorf("githubapi: probe rate limit: %w", err)
	}
	return &Budget{
		Limit:     int(q.RateLimit.Limit),
		Cost:      int(q.RateLimit.Cost),
		Remaining: int(q.RateLimit.Remaining),
		ResetAt:   q.RateLimit.ResetAt.Time,
	}, nil
}
