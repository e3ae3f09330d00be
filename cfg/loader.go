package cfg

type Loader interface {
	Load() (*Config, error)
}

var (
	_ Loader = (*ViperLoader)(nil)
	_ Loader = (*MockLoader)(nil)
)
