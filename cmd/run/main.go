package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/thep200/github-frontier/cfg"
	"github.com/thep200/github-frontier/internal/budget"
	"github.com/thep200/github-frontier/internal/cost"
	"github.com/thep200/github-frontier/internal/crawler"
	"github.com/thep200/github-frontier/internal/frontier"
	githubapi "github.com/thep200/github-frontier/internal/github_api"
	"github.com/thep200/github-frontier/internal/limiter"
	"github.com/thep200/github-frontier/internal/model"
	"github.com/thep200/github-frontier/pkg/db"
	"github.com/thep200/github-frontier/pkg/kafka"
	"github.com/thep200/github-frontier/pkg/log"
)

const (
	exitOK     = 0
	exitFatal  = 1
	exitConfig = 2
)

// seedList collects repeated -seed owner/name flags.
type seedList []model.Identity

func (s *seedList) String() string {
	parts := make([]string, len(*s))
	for i, id := range *s {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

func (s *seedList) Set(v string) error {
	owner, name, ok := strings.Cut(v, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("seed must be owner/name, got %q", v)
	}
	*s = append(*s, model.Identity{Owner: owner, Name: name})
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	var seeds seedList
	configDir := flag.String("config", "cfg/yaml", "directory containing mode.yaml")
	seedKind := flag.String("seed-kind", model.OwnerKindUser, "owner kind of the seeds (User or Organization)")
	calibrate := flag.Bool("calibrate", false, "print estimator calibration from recorded query costs and exit")
	showStats := flag.Bool("stats", false, "print frontier counts and exit")
	flag.Var(&seeds, "seed", "repository to start from as owner/name, repeatable")
	flag.Parse()

	// .env là tùy chọn, biến môi trường thật vẫn được ưu tiên
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, _ := log.NewCslLogger()
	loader, _ := cfg.NewViperLoader(*configDir)
	config, err := loader.Load()
	if err != nil {
		logger.Error(ctx, "Load config: %v", err)
		return exitConfig
	}
	if err := logger.SetLevel(config.App.LogLevel); err != nil {
		logger.Warn(ctx, "Unknown log level %q, keeping info", config.App.LogLevel)
	}
	if !model.ValidOwnerKind(*seedKind) {
		logger.Error(ctx, "Invalid -seed-kind %q", *seedKind)
		return exitConfig
	}

	database, _ := db.NewDatabase(config)
	defer database.Close()
	if err := database.Migrate(model.All()...); err != nil {
		logger.Error(ctx, "Migrate database: %v", err)
		return exitFatal
	}
	gdb, err := database.Db()
	if err != nil {
		logger.Error(ctx, "Open database: %v", err)
		return exitFatal
	}
	store := frontier.NewStore(gdb)

	if *showStats {
		st, err := store.Stats(ctx)
		if err != nil {
			logger.Error(ctx, "Read stats: %v", err)
			return exitFatal
		}
		fmt.Println(st)
		return exitOK
	}
	if *calibrate {
		return printCalibration(ctx, logger, store)
	}

	shape := githubapi.ShapeFromConfig(config)
	b := budget.New(budget.Options{
		Nominal:   config.GithubApi.NominalBudget,
		Watermark: config.Crawler.Watermark,
		Scale:     config.Crawler.CostScale,
		Grace:     time.Duration(config.GithubApi.ResetGraceSec) * time.Second,
	})
	estimator := cost.NewEstimator(cost.Shape{
		NeighborSets:   len(shape.Sets),
		UsersPerPage:   shape.UsersPerPage,
		ReposPerUser:   shape.ReposPerUser,
		LanguagesFirst: shape.LanguagesFirst,
	}).WithMultiplier(config.Crawler.CostMultiplier)

	httpClient := githubapi.NewHTTPClient(ctx, config.GithubApi.AccessToken, time.Duration(config.GithubApi.TimeoutSec)*time.Second)
	caller := githubapi.NewCaller(logger, config, httpClient, limiter.NewRateLimiter(config.GithubApi.RequestsPerSecond))
	loader.RegisterConfigChangeCallback(func(c *cfg.Config) {
		caller.SetRequestsPerSecond(c.GithubApi.RequestsPerSecond)
		_ = logger.SetLevel(c.App.LogLevel)
		logger.Info(context.Background(), "Request pace set to %d/s", c.GithubApi.RequestsPerSecond)
	})

	if current, err := githubapi.NewBudgetProbe(config.GithubApi.GraphqlUrl, httpClient).Probe(ctx); err != nil {
		logger.Warn(ctx, "Could not probe rate limit, assuming a full budget: %v", err)
	} else {
		b.Observe(current.Remaining, current.ResetAt)
		logger.Info(ctx, "Rate limit: %d/%d remaining, reset at %s", current.Remaining, current.Limit, current.ResetAt.Format(time.RFC3339))
	}

	c := crawler.NewCrawler(logger, config, store, caller, b, estimator)
	producer, err := kafka.NewProducer(config, logger)
	switch {
	case err == nil:
		defer producer.Close()
		c.WithPublisher(producer)
	case errors.Is(err, kafka.ErrNoBrokers):
		logger.Debug(ctx, "Kafka disabled")
	default:
		logger.Error(ctx, "Kafka producer: %v", err)
		return exitConfig
	}

	if len(seeds) > 0 {
		added, err := c.Seed(ctx, *seedKind, seeds...)
		if err != nil {
			logger.Error(ctx, "Seed: %v", err)
			return exitFatal
		}
		logger.Info(ctx, "Added %d of %d seeds", added, len(seeds))
	}

	logger.Info(ctx, "Starting %s %s", config.App.Name, config.App.Version)
	err = c.Run(ctx)
	switch {
	case err == nil:
		logger.Info(ctx, "Successfully!")
		return exitOK
	case errors.Is(err, context.Canceled):
		logger.Notice(context.Background(), "Interrupted by operator")
		return exitOK
	default:
		logger.Error(context.Background(), "Failed! %v", err)
		return exitFatal
	}
}

func printCalibration(ctx context.Context, logger log.Logger, store *frontier.Store) int {
	samples, err := store.CostSamples(ctx)
	if err != nil {
		logger.Error(ctx, "Read cost samples: %v", err)
		return exitFatal
	}
	if len(samples) == 0 {
		fmt.Println("no cost samples recorded yet")
		return exitOK
	}
	calibrations := cost.Calibrate(samples)
	for _, kind := range []model.OpKind{model.OpExpand, model.OpFetch} {
		if c, ok := calibrations[kind]; ok {
			fmt.Println(c)
		}
	}
	return exitOK
}
