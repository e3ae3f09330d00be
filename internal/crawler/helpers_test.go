package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"gorm.io/gorm"

	"github.com/thep200/github-frontier/cfg"
	"github.com/thep200/github-frontier/internal/budget"
	"github.com/thep200/github-frontier/internal/cost"
	"github.com/thep200/github-frontier/internal/frontier"
	githubapi "github.com/thep200/github-frontier/internal/github_api"
	"github.com/thep200/github-frontier/internal/model"
	"github.com/thep200/github-frontier/pkg/db"
	"github.com/thep200/github-frontier/pkg/log"
)

// ============================================================================
// Test Helpers
// ============================================================================

type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	f.slept = append(f.slept, d)
	f.now = f.now.Add(d)
	return nil
}

type node struct {
	owner string
	kind  string
	name  string
}

func (n node) id() model.Identity { return model.Identity{Owner: n.owner, Name: n.name} }

// fakeGraph answers operations from an in-memory repository graph.
type fakeGraph struct {
	nodes map[string]node
	edges map[string][]node
	omit  map[string]bool
	// hook may take over a call, a nil response and nil error fall through
	hook  func(op model.Operation, call int) (*githubapi.Response, error)
	calls []model.Operation
	clock *fakeClock
}

func newFakeGraph(clock *fakeClock, nodes ...node) *fakeGraph {
	g := &fakeGraph{nodes: map[string]node{}, edges: map[string][]node{}, omit: map[string]bool{}, clock: clock}
	for _, n := range nodes {
		g.nodes[n.id().String()] = n
	}
	return g
}

func (g *fakeGraph) link(from node, to ...node) {
	g.edges[from.id().String()] = append(g.edges[from.id().String()], to...)
}

func (g *fakeGraph) Send(_ context.Context, op model.Operation) (*githubapi.Response, error) {
	g.calls = append(g.calls, op)
	if g.hook != nil {
		if resp, err := g.hook(op, len(g.calls)); resp != nil || err != nil {
			return resp, err
		}
	}
	if op.Kind == model.OpExpand {
		return g.respond(g.expandData(op.Targets[0], nil, "")), nil
	}
	return g.respond(g.fetchData(op.Targets)), nil
}

func (g *fakeGraph) countCalls(kind model.OpKind) int {
	n := 0
	for _, op := range g.calls {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

func (g *fakeGraph) respond(data interface{}) *githubapi.Response {
	raw, _ := json.Marshal(data)
	return &githubapi.Response{
		StatusCode: 200,
		Data:       raw,
		Budget:     &githubapi.Budget{Limit: 5000, Cost: 1, Remaining: 4000, ResetAt: g.clock.now.Add(time.Hour)},
	}
}

func refJSON(n node) map[string]interface{} {
	return map[string]interface{}{"name": n.name, "owner": map[string]interface{}{"__typename": n.kind, "login": n.owner}}
}

// expandData builds a stargazers page; neighbors defaults to the graph edges.
func (g *fakeGraph) expandData(target model.Identity, neighbors []node, next string) map[string]interface{} {
	if neighbors == nil {
		neighbors = g.edges[target.String()]
	}
	users := make([]interface{}, 0, len(neighbors))
	for _, n := range neighbors {
		users = append(users, map[string]interface{}{
			"repositoriesContributedTo": map[string]interface{}{"nodes": []interface{}{refJSON(n)}},
		})
	}
	return map[string]interface{}{
		"repository": map[string]interface{}{
			githubapi.SetStargazers: map[string]interface{}{
				"pageInfo": map[string]interface{}{"hasNextPage": next != "", "endCursor": next},
				"nodes":    users,
			},
		},
	}
}

func (g *fakeGraph) fetchData(targets []model.Identity) map[string]interface{} {
	data := map[string]interface{}{}
	for i, t := range targets {
		n, ok := g.nodes[t.String()]
		if !ok || g.omit[t.String()] {
			continue
		}
		detail := refJSON(n)
		detail["description"] = "repo " + n.name
		detail["diskUsage"] = 42
		detail["url"] = "https://github.com/" + t.String()
		detail["isFork"] = false
		detail["isMirror"] = false
		detail["languages"] = map[string]interface{}{"edges": []interface{}{
			map[string]interface{}{"size": 100, "node": map[string]interface{}{"name": "Go", "color": "#00ADD8"}},
		}}
		data[fmt.Sprintf("r%d", i)] = detail
	}
	return data
}

type testEnv struct {
	crawler *Crawler
	gdb     *gorm.DB
	graph   *fakeGraph
	clock   *fakeClock
	hook    *logtest.Hook
}

func newTestEnv(t *testing.T, nodes ...node) *testEnv {
	t.Helper()
	loader, _ := cfg.NewMockLoader()
	config, _ := loader.Load()
	database, _ := db.NewDatabase(config)
	if err := database.Migrate(model.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	gdb, err := database.Db()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	clock := &fakeClock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	b := budget.New(budget.Options{
		Nominal:   config.GithubApi.NominalBudget,
		Watermark: config.Crawler.Watermark,
		Scale:     config.Crawler.CostScale,
		Grace:     time.Duration(config.GithubApi.ResetGraceSec) * time.Second,
	}).WithClock(clock.Now, clock.Sleep)
	estimator := cost.NewEstimator(cost.Shape{
		NeighborSets:   2,
		UsersPerPage:   config.Crawler.UsersPerPage,
		ReposPerUser:   config.Crawler.ReposPerUser,
		LanguagesFirst: config.Crawler.LanguagesFirst,
	})

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	graph := newFakeGraph(clock, nodes...)
	c := NewCrawler(log.NewCslLoggerWith(logger), config, frontier.NewStore(gdb), graph, b, estimator)
	return &testEnv{crawler: c, gdb: gdb, graph: graph, clock: clock, hook: hook}
}

func (e *testEnv) seed(t *testing.T, nodes ...node) {
	t.Helper()
	for _, n := range nodes {
		if _, err := e.crawler.Seed(context.Background(), n.kind, n.id()); err != nil {
			t.Fatalf("seed %s: %v", n.id(), err)
		}
	}
}

func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func assertCount(t *testing.T, gdb *gorm.DB, m interface{}, want int64) {
	t.Helper()
	var got int64
	if err := gdb.Model(m).Count(&got).Error; err != nil {
		t.Fatalf("count %T: %v", m, err)
	}
	if got != want {
		t.Fatalf("expected %d rows of %T, got %d", want, m, got)
	}
}

func assertState(t *testing.T, e *testEnv, n node, want frontier.State) {
	t.Helper()
	got, err := e.crawler.Store.EntityState(context.Background(), n.owner, n.name)
	assertNoError(t, err)
	if got != want {
		t.Fatalf("state of %s = %s, want %s", n.id(), got, want)
	}
}
