package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config     *Config
	layout     Layout
	configPath string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLayout sets the workspace served by the application.
func WithLayout(l Layout) Option {
	return func(a *application) {
		a.layout = l
	}
}

// WithConfigPath sets the configuration file watched for live reloads.
// An empty path disables reloading.
func WithConfigPath(path string) Option {
	return func(a *application) {
		a.configPath = path
	}
}
