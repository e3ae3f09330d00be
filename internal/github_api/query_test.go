package githubapi

import (
	"strings"
	"testing"

	"github.com/thep200/github-frontier/cfg"
	"github.com/thep200/github-frontier/internal/model"
)

var testShape = QueryShape{
	Sets:           []string{SetStargazers, SetWatchers},
	UsersPerPage:   50,
	ReposPerUser:   10,
	LanguagesFirst: 20,
}

func TestBuildExpandFirstPage(t *testing.T) {
	op := model.Operation{Kind: model.OpExpand, Targets: []model.Identity{{Owner: "torvalds", Name: "linux"}}}
	q, vars, err := BuildQuery(op, testShape)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, want := range []string{"rateLimit", "stargazers(first: $first, after: $stargazersAfter)", "watchers(first: $first, after: $watchersAfter)", "repositoriesContributedTo"} {
		if !strings.Contains(q, want) {
			t.Errorf("query misses %q:\n%s", want, q)
		}
	}
	if vars["owner"] != "torvalds" || vars["name"] != "linux" || vars["first"] != 50 || vars["repos"] != 10 {
		t.Errorf("unexpected variables %v", vars)
	}
	if v, ok := vars["stargazersAfter"]; !ok || v != nil {
		t.Errorf("expected null cursor for first page, got %v", v)
	}
}

func TestBuildExpandContinuesOnlyCursoredSets(t *testing.T) {
	op := model.Operation{
		Kind:    model.OpExpand,
		Targets: []model.Identity{{Owner: "a", Name: "b"}},
		Cursors: map[string]string{SetWatchers: "Y3Vyc29y"},
	}
	q, vars, err := BuildQuery(op, testShape)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if strings.Contains(q, "stargazers") {
		t.Errorf("stargazers has no cursor and must not be requested:\n%s", q)
	}
	if vars["watchersAfter"] != "Y3Vyc29y" {
		t.Errorf("expected watchers cursor, got %v", vars["watchersAfter"])
	}
}

func TestBuildExpandRejectsBadTargets(t *testing.T) {
	op := model.Operation{Kind: model.OpExpand}
	if _, _, err := BuildQuery(op, testShape); err == nil {
		t.Fatal("expected error for expand without target")
	}
	op = model.Operation{Kind: model.OpExpand, Targets: []model.Identity{{Owner: "a", Name: "b"}}, Cursors: map[string]string{}}
	if _, _, err := BuildQuery(op, testShape); err == nil {
		t.Fatal("expected error when no set remains")
	}
}

func TestBuildFetchAliases(t *testing.T) {
	op := model.Operation{Kind: model.OpFetch, Targets: []model.Identity{
		{Owner: "golang", Name: "go"},
		{Owner: "rust-lang", Name: "rust"},
	}}
	q, vars, err := BuildQuery(op, testShape)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(q, "r0: repository(owner: $o0, name: $n0)") || !strings.Contains(q, "r1: repository(owner: $o1, name: $n1)") {
		t.Errorf("expected aliased repositories:\n%s", q)
	}
	if !strings.Contains(q, "languages(first: 20)") {
		t.Errorf("expected language page size in query:\n%s", q)
	}
	if vars["o1"] != "rust-lang" || vars["n0"] != "go" {
		t.Errorf("unexpected variables %v", vars)
	}
}

func TestBuildUnknownKind(t *testing.T) {
	if _, _, err := BuildQuery(model.Operation{Kind: "delete"}, testShape); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestShapeFromConfig(t *testing.T) {
	loader, _ := cfg.NewMockLoader()
	config, _ := loader.Load()
	config.Crawler.ExpandMentions = true
	config.Crawler.ExpandWatchers = false
	config.Crawler.ExpandPullRequests = true

	shape := ShapeFromConfig(config)
	if len(shape.Sets) != 3 || shape.Sets[0] != SetStargazers || shape.Sets[1] != SetMentionableUsers || shape.Sets[2] != SetPullRequests {
		t.Fatalf("unexpected sets %v", shape.Sets)
	}
	if shape.UsersPerPage != 50 || shape.LanguagesFirst != 20 {
		t.Errorf("unexpected page sizes %+v", shape)
	}
}

func TestBuildExpandIssueAuthors(t *testing.T) {
	shape := testShape
	shape.Sets = []string{SetIssues, SetPullRequests}
	op := model.Operation{Kind: model.OpExpand, Targets: []model.Identity{{Owner: "a", Name: "b"}}}
	q, vars, err := BuildQuery(op, shape)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, want := range []string{
		"issues(first: $first, after: $issuesAfter)",
		"pullRequests(first: $first, after: $pullRequestsAfter)",
		"author { ... on User { repositoriesContributedTo",
	} {
		if !strings.Contains(q, want) {
			t.Errorf("query misses %q:\n%s", want, q)
		}
	}
	if _, ok := vars["pullRequestsAfter"]; !ok {
		t.Errorf("expected pull request cursor variable, got %v", vars)
	}
}
