package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	foundationerrors "git.home.luguber.info/inful/marksite/internal/foundation/errors"
)

// DefaultConfigFile is the config file name looked up when no path is given.
const DefaultConfigFile = "config.yaml"

// ConfigEnvVar names the config file when the CLI flag is left at its default.
const ConfigEnvVar = "MARKSITE_CONFIG"

// Config represents the site configuration.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Build    BuildConfig    `yaml:"build"`
	Blog     BlogConfig     `yaml:"blog"`
	Features FeaturesConfig `yaml:"features"`
	SEO      SEOConfig      `yaml:"seo"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`

	// path is the file this config was loaded from ("" for pure defaults).
	path string
}

// SiteConfig holds site-wide metadata used by templates and SEO artifacts.
type SiteConfig struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
	URL         string `yaml:"url,omitempty"`      // scheme + host, e.g. https://example.com
	BaseURL     string `yaml:"base_url,omitempty"` // path prefix when hosted below the root
	Author      string `yaml:"author,omitempty"`
	Email       string `yaml:"email,omitempty"`
	Language    string `yaml:"language,omitempty"`
}

// BuildConfig controls where content is read from and written to.
type BuildConfig struct {
	Source          string          `yaml:"source"`
	Destination     string          `yaml:"destination"`
	Templates       string          `yaml:"templates"`
	Assets          string          `yaml:"assets"`
	CacheFile       string          `yaml:"cache_file"`
	CacheValidation CacheValidation `yaml:"cache_validation"`
	Concurrency     int             `yaml:"concurrency"`
	Clean           bool            `yaml:"clean"`
}

// BlogConfig holds post listing and publication policy.
type BlogConfig struct {
	PostsPerPage  int    `yaml:"posts_per_page"`
	ExcerptLength int    `yaml:"excerpt_length"`
	DateFormat    string `yaml:"date_format"`
	IncludeDrafts bool   `yaml:"include_drafts"`
	AllowFuture   bool   `yaml:"allow_future"`
}

// FeaturesConfig toggles optional page features.
type FeaturesConfig struct {
	TableOfContents bool `yaml:"table_of_contents"`
	Search          bool `yaml:"search"`
	Minify          bool `yaml:"minify"`
	Categories      bool `yaml:"categories"`
}

// SEOConfig toggles generated SEO artifacts.
type SEOConfig struct {
	Sitemap   bool `yaml:"sitemap"`
	RSS       bool `yaml:"rss"`
	Atom      bool `yaml:"atom"`
	JSONFeed  bool `yaml:"json_feed"`
	Robots    bool `yaml:"robots"`
	FeedItems int  `yaml:"feed_items"`
}

// ServerConfig configures the dev server and watch loop.
type ServerConfig struct {
	Port             int           `yaml:"port"`
	LiveReload       bool          `yaml:"live_reload"`
	Debounce         time.Duration `yaml:"debounce"`
	ScheduleInterval time.Duration `yaml:"schedule_interval"`
	Metrics          bool          `yaml:"metrics"`
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Default returns a configuration populated with defaults. Load decodes the
// YAML document on top of it, so omitted keys keep these values.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			Title:    "My Blog",
			Language: "en",
		},
		Build: BuildConfig{
			Source:          "content",
			Destination:     "_site",
			Templates:       "templates",
			Assets:          "assets",
			CacheFile:       ".marksite-cache.json",
			CacheValidation: CacheValidationMTime,
			Concurrency:     runtime.NumCPU(),
		},
		Blog: BlogConfig{
			PostsPerPage:  10,
			ExcerptLength: 200,
			DateFormat:    "January 2, 2006",
		},
		Features: FeaturesConfig{
			TableOfContents: true,
			Search:          true,
			Categories:      true,
		},
		SEO: SEOConfig{
			Sitemap:   true,
			RSS:       true,
			Atom:      true,
			JSONFeed:  true,
			Robots:    true,
			FeedItems: 20,
		},
		Server: ServerConfig{
			Port:             3000,
			LiveReload:       true,
			Debounce:         300 * time.Millisecond,
			ScheduleInterval: time.Minute,
			Metrics:          true,
		},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
	}
}

// ResolvePath picks the config file: an explicit flag value wins, then
// MARKSITE_CONFIG, then DefaultConfigFile.
func ResolvePath(flagValue string) string {
	if flagValue != "" && flagValue != DefaultConfigFile {
		return flagValue
	}
	if env := strings.TrimSpace(os.Getenv(ConfigEnvVar)); env != "" {
		return env
	}
	return DefaultConfigFile
}

// Load loads configuration from configPath. A missing file yields the
// defaults rooted at the file's directory; a malformed or invalid one is a
// fatal configuration error.
func Load(configPath string) (*Config, error) {
	dir := filepath.Dir(configPath)
	if err := loadEnvFiles(dir); err != nil {
		slog.Debug("No .env file loaded", "dir", dir, "error", err)
	}

	cfg := Default()
	cfg.path = configPath

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		slog.Info("Configuration file not found, using defaults", "path", configPath)
	case err != nil:
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).
			Fatal().
			Build()
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to parse config file").
				WithContext("path", configPath).
				Fatal().
				Build()
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	cfg.resolvePaths(dir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string { return c.path }

// PostsDir returns the directory holding blog posts.
func (c *Config) PostsDir() string {
	return filepath.Join(c.Build.Source, "posts")
}

// CachePath returns the on-disk cache location. Relative cache_file values
// are placed in the content source root.
func (c *Config) CachePath() string {
	if filepath.IsAbs(c.Build.CacheFile) {
		return c.Build.CacheFile
	}
	return filepath.Join(c.Build.Source, c.Build.CacheFile)
}

// FeedsEnabled reports whether any artifact needing absolute URLs is enabled.
func (c *Config) FeedsEnabled() bool {
	return c.SEO.Sitemap || c.SEO.RSS || c.SEO.Atom || c.SEO.JSONFeed
}

// BasePath returns the normalised base path: "" or "/sub" (no trailing slash).
func (c *Config) BasePath() string {
	p := strings.Trim(strings.TrimSpace(c.Site.BaseURL), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

// AbsoluteURL joins site.url, the base path and a site-relative path.
func (c *Config) AbsoluteURL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(c.Site.URL, "/") + c.BasePath() + path
}

func (c *Config) normalize() error {
	cv, err := cacheValidationNormalizer.NormalizeWithError(string(c.Build.CacheValidation))
	if err != nil {
		return foundationerrors.ConfigError("invalid build.cache_validation").
			WithCause(err).
			Build()
	}
	c.Build.CacheValidation = cv
	c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))
	if c.Build.Concurrency <= 0 {
		c.Build.Concurrency = runtime.NumCPU()
	}
	if c.SEO.FeedItems <= 0 {
		c.SEO.FeedItems = 20
	}
	if c.Server.Debounce <= 0 {
		c.Server.Debounce = 300 * time.Millisecond
	}
	if c.Server.ScheduleInterval <= 0 {
		c.Server.ScheduleInterval = time.Minute
	}
	return nil
}

func (c *Config) resolvePaths(base string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Build.Source = resolve(c.Build.Source)
	c.Build.Destination = resolve(c.Build.Destination)
	c.Build.Templates = resolve(c.Build.Templates)
	c.Build.Assets = resolve(c.Build.Assets)
}

// String renders a short summary for debug logs.
func (c *Config) String() string {
	return fmt.Sprintf("site=%q source=%s destination=%s cache=%s", c.Site.Title, c.Build.Source, c.Build.Destination, c.Build.CacheValidation)
}
