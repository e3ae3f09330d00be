package cfg

type MockLoader struct{}

func NewMockLoader() (*MockLoader, error) {
	return &MockLoader{}, nil
}

// Load returns a config pointing at an in-memory sqlite database.
func (yl *MockLoader) Load() (*Config, error) {
	return &Config{
		// App
		App: App{
			Name:     "github-frontier",
			Version:  "0.0.1",
			LogLevel: "debug",
		},

		// Database
		Database: Database{
			Driver:                "sqlite",
			SqlitePath:            ":memory:",
			MaxIdleConnection:     1,
			MaxOpenConnection:     1,
			MaxLifeTimeConnection: 3600,
		},

		// GithubApi
		GithubApi: GithubApi{
			AccessToken:       "",
			GraphqlUrl:        "https://api.github.com/graphql",
			RequestsPerSecond: 100,
			TimeoutSec:        5,
			NominalBudget:     5000,
			ResetGraceSec:     15,
		},

		// Crawler
		Crawler: Crawler{
			MaxBatch:           100,
			MaxExpandErrors:    5,
			MaxFetchErrors:     30,
			MaxOmissions:       5,
			EmptyCycles:        2,
			Watermark:          2,
			CostScale:          100,
			CostMultiplier:     1,
			ExpandPages:        1,
			UsersPerPage:       50,
			ReposPerUser:       10,
			LanguagesFirst:     20,
			ExpandStars:        true,
			ExpandWatchers:     true,
			ExpandMentions:     false,
			ExpandIssues:       false,
			ExpandPullRequests: false,
		},

		// Kafka
		Kafka: Kafka{
			TopicRepo: "frontier.repos",
		},
	}, nil
}
