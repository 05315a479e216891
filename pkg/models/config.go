package models

// Config represents the application configuration
type Config struct {
	Server struct {
		Host         string `mapstructure:"host" yaml:"host"`
		Port         int    `mapstructure:"port" yaml:"port"`
		ReadTimeout  int    `mapstructure:"read_timeout" yaml:"read_timeout"`
		WriteTimeout int    `mapstructure:"write_timeout" yaml:"write_timeout"`
	} `mapstructure:"server" yaml:"server"`

	Convert struct {
		TaskDelay       int    `mapstructure:"task_delay" yaml:"task_delay"`
		ParseTimeout    int    `mapstructure:"parse_timeout" yaml:"parse_timeout"`
		DownloadTimeout int    `mapstructure:"download_timeout" yaml:"download_timeout"`
		MaxRetries      int    `mapstructure:"max_retries" yaml:"max_retries"`
		FolderPath      string `mapstructure:"folder_path" yaml:"folder_path"`
	} `mapstructure:"convert" yaml:"convert"`

	Database struct {
		Type     string `mapstructure:"type" yaml:"type"`
		Path     string `mapstructure:"path" yaml:"path"`
		MaxConns int    `mapstructure:"max_conns" yaml:"max_conns"`
	} `mapstructure:"database" yaml:"database"`

	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
		Output string `mapstructure:"output" yaml:"output"`
	} `mapstructure:"log" yaml:"log"`

	Proxy struct {
		Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
		Type     string `mapstructure:"type" yaml:"type"`
		Host     string `mapstructure:"host" yaml:"host"`
		Port     int    `mapstructure:"port" yaml:"port"`
		Username string `mapstructure:"username" yaml:"username"`
		Password string `mapstructure:"password" yaml:"password"`
	} `mapstructure:"proxy" yaml:"proxy"`

	RateLimit struct {
		Enabled           bool     `mapstructure:"enabled" yaml:"enabled"`
		RequestsPerSecond float64  `mapstructure:"requests_per_second" yaml:"requests_per_second"`
		Burst             int      `mapstructure:"burst" yaml:"burst"`
		MaxConcurrent     int      `mapstructure:"max_concurrent" yaml:"max_concurrent"`
		WhitelistedIPs    []string `mapstructure:"whitelisted_ips" yaml:"whitelisted_ips"`
	} `mapstructure:"rate_limit" yaml:"rate_limit"`

	Parsers []ParserConfig `mapstructure:"parsers" yaml:"parsers"`
	WebDAV  []WebDAVConfig `mapstructure:"webdav" yaml:"webdav"`
}

// DefaultParser returns the parser marked as default, falling back to the
// first configured one
func (c *Config) DefaultParser() (ParserConfig, bool) {
	for _, p := range c.Parsers {
		if p.IsDefault {
			return p, true
		}
	}
	if len(c.Parsers) > 0 {
		return c.Parsers[0], true
	}
	return ParserConfig{}, false
}

// FindParser returns the parser with the given ID or name
func (c *Config) FindParser(key string) (ParserConfig, bool) {
	for _, p := range c.Parsers {
		if p.ID == key || p.Name == key {
			return p, true
		}
	}
	return ParserConfig{}, false
}

// DefaultWebDAV returns the WebDAV server marked as default, falling back
// to the first configured one
func (c *Config) DefaultWebDAV() (WebDAVConfig, bool) {
	for _, w := range c.WebDAV {
		if w.IsDefault {
			return w, true
		}
	}
	if len(c.WebDAV) > 0 {
		return c.WebDAV[0], true
	}
	return WebDAVConfig{}, false
}

// FindWebDAV returns the WebDAV server with the given ID or name
func (c *Config) FindWebDAV(key string) (WebDAVConfig, bool) {
	for _, w := range c.WebDAV {
		if w.ID == key || w.Name == key {
			return w, true
		}
	}
	return WebDAVConfig{}, false
}
