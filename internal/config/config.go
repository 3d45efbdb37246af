package config

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
//
// Static sections are unmarshalled once at load time. Scheduler limits,
// retry budgets, artwork tokens and field priorities are read through the
// typed lookups on every use so the values behave like a configuration
// provider rather than a snapshot.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metadata MetadataConfig `mapstructure:"metadata"`
	Artwork  ArtworkConfig  `mapstructure:"artwork"`
	Library  LibraryConfig  `mapstructure:"library"`

	v *viper.Viper
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// MetadataConfig holds remote scanner configuration.
type MetadataConfig struct {
	TMDB  TMDBConfig  `mapstructure:"tmdb"`
	OMDB  OMDBConfig  `mapstructure:"omdb"`
	TVDB  TVDBConfig  `mapstructure:"tvdb"`
	IMDB  IMDBConfig  `mapstructure:"imdb"`
	Cache CacheConfig `mapstructure:"cache"`
}

// TMDBConfig holds TMDB API configuration.
type TMDBConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	ImageBaseURL string `mapstructure:"image_base_url"`
	Language     string `mapstructure:"language"`
	Timeout      int    `mapstructure:"timeout"` // seconds
}

// OMDBConfig holds OMDb API configuration.
type OMDBConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // seconds
}

// TVDBConfig holds TVDB API configuration.
type TVDBConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // seconds
}

// IMDBConfig holds configuration for the IMDb page scanner.
type IMDBConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // seconds
}

// CacheConfig holds the lookup cache configuration.
type CacheConfig struct {
	TTL      time.Duration `mapstructure:"ttl"`
	MaxItems int           `mapstructure:"max_items"`
}

// ArtworkConfig holds the local artwork folder names.
type ArtworkConfig struct {
	FolderName   string `mapstructure:"folder_name"`
	PhotoFolder  string `mapstructure:"photo_folder"`
	LibraryCheck bool   `mapstructure:"library_check"`
}

// LibraryConfig holds the indexed library roots. A root's library id is its
// 1-based position in Roots.
type LibraryConfig struct {
	Roots      []string `mapstructure:"roots"`
	Schedule   string   `mapstructure:"schedule"`
	ScanOnBoot bool     `mapstructure:"scan_on_boot"`
}

// Default returns a Config with default values.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	cfg.v = v
	return cfg
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.reelscan")
	}

	v.SetEnvPrefix("REELSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.v = v

	if cfg.Metadata.TMDB.APIKey == "" {
		cfg.Metadata.TMDB.APIKey = EmbeddedTMDBKey
	}
	if cfg.Metadata.OMDB.APIKey == "" {
		cfg.Metadata.OMDB.APIKey = EmbeddedOMDBKey
	}

	return cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "./data/reelscan.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)

	v.SetDefault("metadata.tmdb.api_key", "")
	v.SetDefault("metadata.tmdb.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("metadata.tmdb.image_base_url", "https://image.tmdb.org/t/p")
	v.SetDefault("metadata.tmdb.language", "en-US")
	v.SetDefault("metadata.tmdb.timeout", 30)
	v.SetDefault("metadata.omdb.api_key", "")
	v.SetDefault("metadata.omdb.base_url", "https://www.omdbapi.com/")
	v.SetDefault("metadata.omdb.timeout", 15)
	v.SetDefault("metadata.tvdb.api_key", "")
	v.SetDefault("metadata.tvdb.base_url", "https://api4.thetvdb.com/v4")
	v.SetDefault("metadata.tvdb.timeout", 30)
	v.SetDefault("metadata.imdb.enabled", false)
	v.SetDefault("metadata.imdb.base_url", "https://www.imdb.com")
	v.SetDefault("metadata.imdb.timeout", 30)
	v.SetDefault("metadata.cache.ttl", 15*time.Minute)
	v.SetDefault("metadata.cache.max_items", 1000)

	// Work queues: maxThreads <= 0 disables the queue.
	for _, queue := range []string{"metadatascan", "artworkscan"} {
		prefix := "scheduler." + queue
		v.SetDefault(prefix+".maxthreads", 1)
		v.SetDefault(prefix+".maxresults", 50)
		v.SetDefault(prefix+".discoverinterval", 5*time.Minute)
		v.SetDefault(prefix+".dispatchinterval", time.Second)
	}

	v.SetDefault("library.roots", []string{})
	v.SetDefault("library.schedule", "30 23 * * *")
	v.SetDefault("library.scan_on_boot", true)

	v.SetDefault("artwork.folder_name", "")
	v.SetDefault("artwork.photo_folder", "")
	v.SetDefault("artwork.library_check", true)
	v.SetDefault("artwork.tokens.poster", []string{"poster", "cover", "folder"})
	v.SetDefault("artwork.tokens.fanart", []string{"fanart", "backdrop", "background"})
	v.SetDefault("artwork.tokens.banner", []string{"banner"})
	v.SetDefault("artwork.tokens.videoimage", []string{"videoimage"})
}

// GetInt returns the integer value for key, or def when the key is unset.
func (c *Config) GetInt(key string, def int) int {
	if c.v == nil || !c.v.IsSet(key) {
		return def
	}
	return c.v.GetInt(key)
}

// GetBool returns the boolean value for key, or def when the key is unset.
func (c *Config) GetBool(key string, def bool) bool {
	if c.v == nil || !c.v.IsSet(key) {
		return def
	}
	return c.v.GetBool(key)
}

// GetDuration returns the duration value for key, or def when the key is unset.
func (c *Config) GetDuration(key string, def time.Duration) time.Duration {
	if c.v == nil || !c.v.IsSet(key) {
		return def
	}
	return c.v.GetDuration(key)
}

// GetList returns the list value for key, or def when the key is unset.
// Values coming from the environment may be comma separated.
func (c *Config) GetList(key string, def []string) []string {
	if c.v == nil || !c.v.IsSet(key) {
		return def
	}

	var out []string
	for _, raw := range c.v.GetStringSlice(key) {
		for _, part := range strings.Split(raw, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" {
				out = append(out, part)
			}
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// FieldPriority returns the ordered source chain for a metadata field,
// highest priority first. It reads priority.<field> and falls back to
// priority.default. No chain is inferred when neither is configured.
func (c *Config) FieldPriority(field string) []string {
	if chain := c.GetList("priority."+field, nil); len(chain) > 0 {
		return chain
	}
	return c.GetList("priority.default", nil)
}

// Set overrides a single key at runtime.
func (c *Config) Set(key string, value any) {
	if c.v == nil {
		c.v = viper.New()
	}
	c.v.Set(key, value)
}

// Dump writes the effective settings as YAML.
func (c *Config) Dump(w io.Writer) error {
	settings := map[string]any{}
	if c.v != nil {
		settings = c.v.AllSettings()
	}

	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()

	doc := yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		var value yaml.Node
		if err := value.Encode(settings[k]); err != nil {
			return fmt.Errorf("failed to encode %q: %w", k, err)
		}
		doc.Content = append(doc.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k}, &value)
	}

	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
