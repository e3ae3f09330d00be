package cfg

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	cfgIns     *Config
	cfgInsOnce sync.Once
	cfgMutex   sync.RWMutex
)

const envPrefix = "FRONTIER"

type ViperLoader struct {
	v                     *viper.Viper
	paths                 []string
	watch                 bool
	configChangeCallbacks []func(*Config)
}

// NewViperLoader reads cfg/yaml/mode.yaml unless other search paths are given.
func NewViperLoader(paths ...string) (*ViperLoader, error) {
	if len(paths) == 0 {
		paths = []string{"cfg/yaml"}
	}
	return &ViperLoader{
		v:                     viper.New(),
		paths:                 paths,
		watch:                 true,
		configChangeCallbacks: make([]func(*Config), 0),
	}, nil
}

func (yl *ViperLoader) Load() (*Config, error) {
	var err error
	cfgInsOnce.Do(func() {
		err = yl.loadConfig()
		if err == nil && yl.IsWatchChange() {
			yl.v.WatchConfig()
			yl.v.OnConfigChange(func(e fsnotify.Event) {
				fmt.Printf("[INFO][CONFIG] Config file changed: %s\n", e.Name)
				if errReload := yl.reloadConfig(); errReload != nil {
					fmt.Printf("[ERROR][CONFIG] Failed to reload config: %v\n", errReload)
				}
			})
		}
	})

	if err != nil {
		return nil, err
	}

	cfgMutex.RLock()
	defer cfgMutex.RUnlock()
	if cfgIns == nil {
		return nil, fmt.Errorf("[ERROR][CONFIG] config was not loaded")
	}
	return cfgIns, nil
}

func (yl *ViperLoader) IsWatchChange() bool {
	return yl.watch
}

// DisableWatch turns off hot reload, must be called before Load.
func (yl *ViperLoader) DisableWatch() {
	yl.watch = false
}

func (yl *ViperLoader) RegisterConfigChangeCallback(callback func(*Config)) {
	cfgMutex.Lock()
	yl.configChangeCallbacks = append(yl.configChangeCallbacks, callback)
	cfgMutex.Unlock()
}

func (yl *ViperLoader) loadConfig() error {
	for _, p := range yl.paths {
		yl.v.AddConfigPath(p)
	}
	yl.v.SetConfigName("mode")
	yl.v.SetConfigType("yaml")
	yl.v.SetEnvPrefix(envPrefix)
	yl.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	yl.v.AutomaticEnv()
	setDefaults(yl.v)

	if err := yl.v.ReadInConfig(); err != nil {
		return fmt.Errorf("[ERROR][CONFIG] failed to read config file: %w", err)
	}

	cfg, err := yl.decode()
	if err != nil {
		return err
	}

	cfgMutex.Lock()
	cfgIns = cfg
	cfgMutex.Unlock()

	return nil
}

func (yl *ViperLoader) decode() (*Config, error) {
	cfg := &Config{}
	if err := yl.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("[ERROR][CONFIG] failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (yl *ViperLoader) reloadConfig() error {
	cfg, err := yl.decode()
	if err != nil {
		return fmt.Errorf("[ERROR][CONFIG] failed to unmarshal config during reload: %w", err)
	}

	cfgMutex.Lock()
	cfgIns = cfg

	callbacks := make([]func(*Config), len(yl.configChangeCallbacks))
	copy(callbacks, yl.configChangeCallbacks)
	cfgMutex.Unlock()
	for _, callback := range callbacks {
		go callback(cfg)
	}

	fmt.Println("[INFO][CONFIG] Configuration reloaded successfully")
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "github-frontier")
	v.SetDefault("app.loglevel", "info")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.sqlitepath", "frontier.db")
	v.SetDefault("database.maxidleconnection", 10)
	v.SetDefault("database.maxopenconnection", 100)
	v.SetDefault("database.maxlifetimeconnection", 3600)

	v.SetDefault("githubapi.graphqlurl", "https://api.github.com/graphql")
	v.SetDefault("githubapi.accesstoken", "")
	v.SetDefault("githubapi.requestspersecond", 2)
	v.SetDefault("githubapi.timeoutsec", 30)
	v.SetDefault("githubapi.nominalbudget", 5000)
	v.SetDefault("githubapi.resetgracesec", 15)

	v.SetDefault("crawler.maxbatch", 100)
	v.SetDefault("crawler.maxexpanderrors", 5)
	v.SetDefault("crawler.maxfetcherrors", 30)
	v.SetDefault("crawler.maxomissions", 5)
	v.SetDefault("crawler.emptycycles", 2)
	v.SetDefault("crawler.watermark", 2)
	v.SetDefault("crawler.costscale", 100)
	v.SetDefault("crawler.costmultiplier", 1.0)
	v.SetDefault("crawler.expandpages", 1)
	v.SetDefault("crawler.usersperpage", 50)
	v.SetDefault("crawler.reposperuser", 10)
	v.SetDefault("crawler.languagesfirst", 20)
	v.SetDefault("crawler.expandstars", true)
	v.SetDefault("crawler.expandwatchers", true)
	v.SetDefault("crawler.expandmentions", false)
	v.SetDefault("crawler.expandissues", false)
	v.SetDefault("crawler.expandpullrequests", false)

	v.SetDefault("kafka.topicrepo", "frontier.repos")
}
