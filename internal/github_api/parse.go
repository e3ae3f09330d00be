package githubapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/thep200/github-frontier/internal/model"
)

var (
	// ErrEmptyResult means the provider answered a valid request without data.
	ErrEmptyResult = errors.New("githubapi: empty result")
	// ErrMalformed means the body was not the JSON document we asked for.
	ErrMalformed = errors.New("githubapi: malformed response")
)

// Neighbor is a repository reachable from an expanded repository.
type Neighbor struct {
	Owner     string
	OwnerKind string
	Name      string
}

// ExpandPage is one page of neighbors plus the cursors to continue with.
type ExpandPage struct {
	Neighbors []Neighbor
	// Next holds the end cursor of every set that has another page.
	Next map[string]string
}

// RepoDetail is the fetched state of one repository.
type RepoDetail struct {
	Identity    model.Identity
	OwnerKind   string
	Description string
	DiskUsage   int64
	Url         string
	IsFork      bool
	IsMirror    bool
	Languages   []Language
}

type Language struct {
	Name  string
	Color string
	Bytes int64
}

func isNull(data json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(data))
	return trimmed == "" || trimmed == "null"
}

// ParseExpand extracts neighbor repositories from an expand response. Duplicates
// inside the page are collapsed, entries with an unknown owner kind are skipped.
func ParseExpand(data json.RawMessage, sets []string) (*ExpandPage, error) {
	if isNull(data) {
		return nil, ErrEmptyResult
	}
	var root struct {
		Repository map[string]json.RawMessage `json:"repository"`
	}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if root.Repository == nil {
		return nil, ErrEmptyResult
	}

	page := &ExpandPage{Next: map[string]string{}}
	seen := map[string]bool{}
	for _, set := range sets {
		raw, ok := root.Repository[set]
		if !ok || isNull(raw) {
			continue
		}
		var conn neighborConnection
		if err := json.Unmarshal(raw, &conn); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, set, err)
		}
		for _, n := range conn.Nodes {
			user := n.user()
			if user == nil {
				continue
			}
			for _, r := range user.RepositoriesContributedTo.Nodes {
				if r == nil || r.Name == "" || r.Owner.Login == "" || !model.ValidOwnerKind(r.Owner.Typename) {
					continue
				}
				id := model.Identity{Owner: r.Owner.Login, Name: r.Name}
				if seen[id.Key()] {
					continue
				}
				seen[id.Key()] = true
				page.Neighbors = append(page.Neighbors, Neighbor{Owner: r.Owner.Login, OwnerKind: r.Owner.Typename, Name: r.Name})
			}
		}
		if conn.PageInfo.HasNextPage && conn.PageInfo.EndCursor != "" {
			page.Next[set] = conn.PageInfo.EndCursor
		}
	}
	return page, nil
}

// ParseFetch returns one entry per requested target, nil where the provider
// omitted the repository.
func ParseFetch(data json.RawMessage, n int) ([]*RepoDetail, error) {
	if isNull(data) {
		return nil, ErrEmptyResult
	}
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	out := make([]*RepoDetail, n)
	for i := 0; i < n; i++ {
		raw, ok := root[alias(i)]
		if !ok || isNull(raw) {
			continue
		}
		var d repoDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, alias(i), err)
		}
		if d.Name == "" || d.Owner.Login == "" {
			continue
		}
		detail := &RepoDetail{
			Identity:    model.Identity{Owner: d.Owner.Login, Name: d.Name},
			OwnerKind:   d.Owner.Typename,
			Description: d.Description,
			DiskUsage:   d.DiskUsage,
			Url:         d.Url,
			IsFork:      d.IsFork,
			IsMirror:    d.IsMirror,
		}
		for _, e := range d.Languages.Edges {
			detail.Languages = append(detail.Languages, Language{Name: e.Node.Name, Color: e.Node.Color, Bytes: e.Size})
		}
		out[i] = detail
	}
	return out, nil
}
