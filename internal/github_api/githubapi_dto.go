// Gói dto cung cấp các đối tượng truyền dữ liệu cho dự án
// Chuyển đổi phản hồi GraphQL của GitHub thành các cấu trúc

package githubapi

import (
	"encoding/json"
	"time"
)

// Budget is the provider's rate limit signal attached to a response.
type Budget struct {
	Limit     int       `json:"limit"`
	Cost      int       `json:"cost"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

type GraphQLError struct {
	Type    string        `json:"type"`
	Message string        `json:"message"`
	Path    []interface{} `json:"path"`
}

// Response is what Send returns: Data is nil when the provider answered null.
type Response struct {
	StatusCode int
	Data       json.RawMessage
	Errors     []GraphQLError
	Budget     *Budget
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

type rateLimitHolder struct {
	RateLimit *Budget `json:"rateLimit"`
}

type ownerRef struct {
	Typename string `json:"__typename"`
	Login    string `json:"login"`
}

type repoRef struct {
	Name  string   `json:"name"`
	Owner ownerRef `json:"owner"`
}

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type neighborUser struct {
	RepositoriesContributedTo struct {
		Nodes []*repoRef `json:"nodes"`
	} `json:"repositoriesContributedTo"`
	// set on issue and pull request nodes
	Author *neighborUser `json:"author"`
}

func (u *neighborUser) user() *neighborUser {
	if u != nil && u.Author != nil {
		return u.Author
	}
	return u
}

type neighborConnection struct {
	PageInfo pageInfo        `json:"pageInfo"`
	Nodes    []*neighborUser `json:"nodes"`
}

type repoDetail struct {
	Name        string   `json:"name"`
	Owner       ownerRef `json:"owner"`
	Description string   `json:"description"`
	DiskUsage   int64    `json:"diskUsage"`
	Url         string   `json:"url"`
	IsFork      bool     `json:"isFork"`
	IsMirror    bool     `json:"isMirror"`
	Languages   struct {
		Edges []struct {
			Size int64 `json:"size"`
			Node struct {
				Name  string `json:"name"`
				Color string `json:"color"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"languages"`
}
