// Gói githubapi cung cấp caller cho GitHub GraphQL API.
// Caller nhận một model.Operation, dựng câu truy vấn, gửi đi và trả về
// dữ liệu thô cùng tín hiệu rate limit; việc phân loại lỗi để crawler quyết định.

package githubapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/thep200/github-frontier/cfg"
	"github.com/thep200/github-frontier/internal/limiter"
	"github.com/thep200/github-frontier/internal/model"
	"github.com/thep200/github-frontier/pkg/log"
)

var (
	// ErrRateLimited means the provider refused the request for budget reasons.
	ErrRateLimited = errors.New("githubapi: rate limited")
	// ErrTransport covers network failures before a full body was read.
	ErrTransport = errors.New("githubapi: transport failure")
	// ErrRejected covers client-side failures such as bad credentials.
	ErrRejected = errors.New("githubapi: request rejected")
)

const maxBodyBytes = 32 << 20

type Caller struct {
	Logger  log.Logger
	Config  *cfg.Config
	Shape   QueryShape
	client  *http.Client
	limiter *limiter.RateLimiter
	now     func() time.Time
}

func NewCaller(logger log.Logger, config *cfg.Config, client *http.Client, rl *limiter.RateLimiter) *Caller {
	if rl == nil {
		rl = limiter.NewRateLimiter(config.GithubApi.RequestsPerSecond)
	}
	return &Caller{
		Logger:  logger,
		Config:  config,
		Shape:   ShapeFromConfig(config),
		client:  client,
		limiter: rl,
		now:     time.Now,
	}
}

// Send executes one operation. On ErrRateLimited the returned Response still
// carries the budget signal when the provider sent one.
func (c *Caller) Send(ctx context.Context, op model.Operation) (*Response, error) {
	query, vars, err := BuildQuery(op, c.Shape)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(map[string]interface{}{"query": query, "variables": vars})
	if err != nil {
		return nil, fmt.Errorf("githubapi: encode request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Config.GithubApi.GraphqlUrl, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("githubapi: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}

	out := &Response{StatusCode: resp.StatusCode, Budget: c.headerBudget(resp.Header)}
	c.Logger.Debug(ctx, "GraphQL %s (%d targets) -> %s, %d bytes", op.Kind, len(op.Targets), resp.Status, len(body))

	if limited := c.rateLimitedStatus(resp); limited {
		return out, fmt.Errorf("%w: %s", ErrRateLimited, resp.Status)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return out, fmt.Errorf("%w: %s", ErrRejected, resp.Status)
	case resp.StatusCode >= 500:
		// GitHub trả về trang HTML khi timeout phía server
		return out, fmt.Errorf("%w: %s", ErrMalformed, resp.Status)
	case resp.StatusCode != http.StatusOK:
		return out, fmt.Errorf("%w: %s", ErrRejected, resp.Status)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !isNull(env.Data) {
		out.Data = env.Data
		var holder rateLimitHolder
		if err := json.Unmarshal(env.Data, &holder); err == nil && holder.RateLimit != nil {
			out.Budget = holder.RateLimit
		}
	}
	out.Errors = env.Errors

	for _, e := range env.Errors {
		if e.Type == "RATE_LIMITED" {
			return out, fmt.Errorf("%w: %s", ErrRateLimited, e.Message)
		}
	}
	return out, nil
}

func (c *Caller) rateLimitedStatus(resp *http.Response) bool {
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusTooManyRequests {
		return false
	}
	return resp.Header.Get("X-RateLimit-Remaining") == "0" || resp.Header.Get("Retry-After") != "" ||
		resp.StatusCode == http.StatusTooManyRequests
}

// headerBudget reads the REST style rate limit headers, GitHub sends them on
// GraphQL responses as well. Retry-After wins over the reset header.
func (c *Caller) headerBudget(h http.Header) *Budget {
	remaining, errRemaining := strconv.Atoi(h.Get("X-RateLimit-Remaining"))
	if secs, err := strconv.Atoi(h.Get("Retry-After")); err == nil {
		return &Budget{Remaining: 0, ResetAt: c.now().Add(time.Duration(secs) * time.Second)}
	}
	if errRemaining != nil {
		return nil
	}
	b := &Budget{Remaining: remaining}
	if limit, err := strconv.Atoi(h.Get("X-RateLimit-Limit")); err == nil {
		b.Limit = limit
	}
	if reset, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		b.ResetAt = time.Unix(reset, 0)
	}
	return b
}

// SetRequestsPerSecond changes the request pace, wired to config reloads.
func (c *Caller) SetRequestsPerSecond(n int) {
	c.limiter.SetMaxRequests(n)
}
