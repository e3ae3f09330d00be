package githubapi

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// NewHTTPClient returns a client that authenticates with the token when one is
// configured. GitHub's GraphQL endpoint refuses anonymous requests.
func NewHTTPClient(ctx context.Context, token string, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if token == "" {
		return &http.Client{Timeout: timeout}
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := oauth2.NewClient(ctx, src)
	client.Timeout = timeout
	return client
}
