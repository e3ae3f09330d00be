package githubapi

import (
	"fmt"
	"strings"

	"github.com/thep200/github-frontier/cfg"
	"github.com/thep200/github-frontier/internal/model"
)

// Neighbor sets an expansion can walk, each one yields users whose
// contributed repositories become new discoveries.
const (
	SetStargazers       = "stargazers"
	SetWatchers         = "watchers"
	SetMentionableUsers = "mentionableUsers"
	// issue và pull request: neighbor là tác giả
	SetIssues       = "issues"
	SetPullRequests = "pullRequests"
)

const rateLimitSelection = "rateLimit { limit cost remaining resetAt }"

// QueryShape carries the page sizes used when building queries.
type QueryShape struct {
	Sets           []string
	UsersPerPage   int
	ReposPerUser   int
	LanguagesFirst int
}

func ShapeFromConfig(config *cfg.Config) QueryShape {
	sets := make([]string, 0, 5)
	if config.Crawler.ExpandStars {
		sets = append(sets, SetStargazers)
	}
	if config.Crawler.ExpandWatchers {
		sets = append(sets, SetWatchers)
	}
	if config.Crawler.ExpandMentions {
		sets = append(sets, SetMentionableUsers)
	}
	if config.Crawler.ExpandIssues {
		sets = append(sets, SetIssues)
	}
	if config.Crawler.ExpandPullRequests {
		sets = append(sets, SetPullRequests)
	}
	return QueryShape{
		Sets:           sets,
		UsersPerPage:   config.Crawler.UsersPerPage,
		ReposPerUser:   config.Crawler.ReposPerUser,
		LanguagesFirst: config.Crawler.LanguagesFirst,
	}
}

// BuildQuery turns an operation descriptor into a GraphQL document and its variables.
func BuildQuery(op model.Operation, shape QueryShape) (string, map[string]interface{}, error) {
	switch op.Kind {
	case model.OpExpand:
		return buildExpand(op, shape)
	case model.OpFetch:
		return buildFetch(op, shape)
	default:
		return "", nil, fmt.Errorf("githubapi: unknown operation kind %q", op.Kind)
	}
}

// RequestedSets returns the neighbor sets an expand operation asks for. A nil
// cursor map means a first page of every configured set, otherwise only the
// sets with a cursor are continued.
func RequestedSets(op model.Operation, shape QueryShape) []string {
	if op.Cursors == nil {
		return shape.Sets
	}
	sets := make([]string, 0, len(op.Cursors))
	for _, s := range shape.Sets {
		if _, ok := op.Cursors[s]; ok {
			sets = append(sets, s)
		}
	}
	return sets
}

func buildExpand(op model.Operation, shape QueryShape) (string, map[string]interface{}, error) {
	if len(op.Targets) != 1 {
		return "", nil, fmt.Errorf("githubapi: expand needs exactly one target, got %d", len(op.Targets))
	}
	sets := RequestedSets(op, shape)
	if len(sets) == 0 {
		return "", nil, fmt.Errorf("githubapi: expand of %s requests no neighbor set", op.Targets[0])
	}

	vars := map[string]interface{}{
		"owner": op.Targets[0].Owner,
		"name":  op.Targets[0].Name,
		"first": shape.UsersPerPage,
		"repos": shape.ReposPerUser,
	}
	decls := []string{"$owner: String!", "$name: String!", "$first: Int!", "$repos: Int!"}

	var body strings.Builder
	for _, set := range sets {
		after := set + "After"
		decls = append(decls, "$"+after+": String")
		if c := op.Cursors[set]; c != "" {
			vars[after] = c
		} else {
			vars[after] = nil
		}
		fmt.Fprintf(&body, "    %s(first: $first, after: $%s) { pageInfo { hasNextPage endCursor } nodes { %s } }\n",
			set, after, neighborSelection(set))
	}

	q := fmt.Sprintf("query(%s) {\n  %s\n  repository(owner: $owner, name: $name) {\n%s  }\n}",
		strings.Join(decls, ", "), rateLimitSelection, body.String())
	return q, vars, nil
}

func buildFetch(op model.Operation, shape QueryShape) (string, map[string]interface{}, error) {
	if len(op.Targets) == 0 {
		return "", nil, fmt.Errorf("githubapi: fetch needs at least one target")
	}

	vars := make(map[string]interface{}, 2*len(op.Targets))
	decls := make([]string, 0, 2*len(op.Targets))
	var body strings.Builder
	for i, t := range op.Targets {
		o, n := fmt.Sprintf("o%d", i), fmt.Sprintf("n%d", i)
		vars[o] = t.Owner
		vars[n] = t.Name
		decls = append(decls, "$"+o+": String!", "$"+n+": String!")
		fmt.Fprintf(&body,
			"  %s: repository(owner: $%s, name: $%s) { name owner { __typename login } description diskUsage url isFork isMirror languages(first: %d) { edges { size node { name color } } } }\n",
			alias(i), o, n, shape.LanguagesFirst)
	}

	q := fmt.Sprintf("query(%s) {\n  %s\n%s}", strings.Join(decls, ", "), rateLimitSelection, body.String())
	return q, vars, nil
}

const contributedSelection = "repositoriesContributedTo(first: $repos, includeUserRepositories: true) { nodes { name owner { __typename login } } }"

// neighborSelection selects the users behind one node of a neighbor set. User
// connections are users already, issues and pull requests go through the author.
func neighborSelection(set string) string {
	switch set {
	case SetIssues, SetPullRequests:
		return "author { ... on User { " + contributedSelection + " } }"
	default:
		return contributedSelection
	}
}

func alias(i int) string {
	return fmt.Sprintf("r%d", i)
}
