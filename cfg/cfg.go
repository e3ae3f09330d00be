package cfg

import "fmt"

type (
	App struct {
		Name     string
		Version  string
		LogLevel string
	}

	Database struct {
		// mysql | sqlite
		Driver                string
		Host                  string
		Port                  string
		Username              string
		Password              string
		Database              string
		SqlitePath            string
		MaxIdleConnection     int
		MaxOpenConnection     int
		MaxLifeTimeConnection int
	}

	GithubApi struct {
		AccessToken       string
		GraphqlUrl        string
		RequestsPerSecond int
		TimeoutSec        int
		// Điểm tối đa mỗi giờ của GraphQL API
		NominalBudget int
		ResetGraceSec int
	}

	Crawler struct {
		MaxBatch           int
		MaxExpandErrors    int
		MaxFetchErrors     int
		MaxOmissions       int
		EmptyCycles        int
		Watermark          int
		CostScale          int
		// hệ số từ -calibrate, 1 = không chỉnh
		CostMultiplier     float64
		ExpandPages        int
		UsersPerPage       int
		ReposPerUser       int
		LanguagesFirst     int
		ExpandStars        bool
		ExpandWatchers     bool
		ExpandMentions     bool
		// tác giả issue / pull request
		ExpandIssues       bool
		ExpandPullRequests bool
	}

	Kafka struct {
		Brokers   []string
		TopicRepo string
	}
)

type Config struct {
	App       App
	Database  Database
	GithubApi GithubApi
	Crawler   Crawler
	Kafka     Kafka
}

// Validate rejects values the crawl loop cannot run with.
func (c *Config) Validate() error {
	if c.Database.Driver != "mysql" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("[ERROR][CONFIG] unsupported database driver %q", c.Database.Driver)
	}
	if c.GithubApi.GraphqlUrl == "" {
		return fmt.Errorf("[ERROR][CONFIG] githubapi.graphqlurl is required")
	}
	if c.GithubApi.ResetGraceSec < 10 || c.GithubApi.ResetGraceSec > 30 {
		return fmt.Errorf("[ERROR][CONFIG] githubapi.resetgracesec must be within 10..30, got %d", c.GithubApi.ResetGraceSec)
	}
	if c.GithubApi.NominalBudget <= c.Crawler.Watermark {
		return fmt.Errorf("[ERROR][CONFIG] githubapi.nominalbudget must exceed crawler.watermark")
	}
	if c.Crawler.MaxBatch < 1 || c.Crawler.MaxExpandErrors < 1 || c.Crawler.MaxFetchErrors < 1 || c.Crawler.MaxOmissions < 1 {
		return fmt.Errorf("[ERROR][CONFIG] crawler batch and error thresholds must be positive")
	}
	if c.Crawler.EmptyCycles < 1 || c.Crawler.CostScale < 1 || c.Crawler.ExpandPages < 1 {
		return fmt.Errorf("[ERROR][CONFIG] crawler.emptycycles, crawler.costscale and crawler.expandpages must be positive")
	}
	if !c.Crawler.ExpandStars && !c.Crawler.ExpandWatchers && !c.Crawler.ExpandMentions &&
		!c.Crawler.ExpandIssues && !c.Crawler.ExpandPullRequests {
		return fmt.Errorf("[ERROR][CONFIG] at least one expansion neighbor set must be enabled")
	}
	return nil
}
