package config

// ConfigDatabase database location
type ConfigDatabase struct {
	Path string `mapstructure:"path"`
}

// ConfigLogger logging settings
type ConfigLogger struct {
	Level  string `mapstructure:"level"`  // trace, debug, info, warn, error
	Format string `mapstructure:"format"` // console or json
	File   string `mapstructure:"file"`   // optional append-only log file
}

// ConfigServer HTTP/IPC server settings. Timeouts are in seconds.
type ConfigServer struct {
	Addr                    string `mapstructure:"addr"`
	ReadTimeout             int    `mapstructure:"read_timeout"`
	WriteTimeout            int    `mapstructure:"write_timeout"`
	IdleTimeout             int    `mapstructure:"idle_timeout"`
	ReadHeaderTimeout       int    `mapstructure:"read_header_timeout"`
	GracefulShutdownTimeout int    `mapstructure:"graceful_shutdown_timeout"`
}

// ConfigGateway cross-origin and rate limiting settings for the HTTP surface
type ConfigGateway struct {
	CORSAllowedOrigins string `mapstructure:"cors_allowed_origins"` // comma-separated
	CORSMaxAge         int    `mapstructure:"cors_max_age"`
	RateLimitRPS       int    `mapstructure:"rate_limit_rps"`
	RateLimitBurst     int    `mapstructure:"rate_limit_burst"`
}

// ConfigEnrich completion command used for tags, summaries and study plans
type ConfigEnrich struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
	Timeout int      `mapstructure:"timeout"` // seconds
}

// ConfigTagging tag vocabulary settings
type ConfigTagging struct {
	MaxTags    int      `mapstructure:"max_tags"`
	Vocabulary []string `mapstructure:"vocabulary"` // empty means the built-in list
}

// Config main configuration structure
type Config struct {
	Database *ConfigDatabase `mapstructure:"database"`
	Logger   *ConfigLogger   `mapstructure:"logger"`
	Server   *ConfigServer   `mapstructure:"server"`
	Gateway  *ConfigGateway  `mapstructure:"gateway"`
	Enrich   *ConfigEnrich   `mapstructure:"enrich"`
	Tagging  *ConfigTagging  `mapstructure:"tagging"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Database: &ConfigDatabase{},
		Logger: &ConfigLogger{
			Level:  "info",
			Format: "console",
		},
		Server: &ConfigServer{
			Addr:                    "127.0.0.1:7878",
			ReadTimeout:             15,
			WriteTimeout:            15,
			IdleTimeout:             60,
			ReadHeaderTimeout:       5,
			GracefulShutdownTimeout: 10,
		},
		Gateway: &ConfigGateway{
			CORSAllowedOrigins: "*",
			CORSMaxAge:         300,
			RateLimitRPS:       100,
			RateLimitBurst:     20,
		},
		Enrich: &ConfigEnrich{
			Timeout: 120,
		},
		Tagging: &ConfigTagging{
			MaxTags: 3,
		},
	}
}

// fillDefaults replaces missing sections and zero values with defaults
func (c *Config) fillDefaults() {
	def := Default()
	if c.Database == nil {
		c.Database = def.Database
	}
	if c.Logger == nil {
		c.Logger = def.Logger
	}
	if c.Logger.Level == "" {
		c.Logger.Level = def.Logger.Level
	}
	if c.Logger.Format == "" {
		c.Logger.Format = def.Logger.Format
	}
	if c.Server == nil {
		c.Server = def.Server
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.GracefulShutdownTimeout == 0 {
		c.Server.GracefulShutdownTimeout = def.Server.GracefulShutdownTimeout
	}
	if c.Gateway == nil {
		c.Gateway = def.Gateway
	}
	if c.Enrich == nil {
		c.Enrich = def.Enrich
	}
	if c.Enrich.Timeout == 0 {
		c.Enrich.Timeout = def.Enrich.Timeout
	}
	if c.Tagging == nil {
		c.Tagging = def.Tagging
	}
	if c.Tagging.MaxTags == 0 {
		c.Tagging.MaxTags = def.Tagging.MaxTags
	}
}
