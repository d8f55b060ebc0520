package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      App      `mapstructure:"app"`
	AI       AI       `mapstructure:"ai"`
	Search   Search   `mapstructure:"search"`
	Image    Image    `mapstructure:"image"`
	Storage  Storage  `mapstructure:"storage"`
	Database Database `mapstructure:"database"`
	Plan     Plan     `mapstructure:"plan"`
	Pipeline Pipeline `mapstructure:"pipeline"`
	Server   Server   `mapstructure:"server"`
	Logging  Logging  `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`
}

// AI holds AI/LLM configuration
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	FlashModel  string  `mapstructure:"flash_model"` // Cheap model for small calls (meta descriptions, image prompts)
	MaxTokens   int32   `mapstructure:"max_tokens"`
	Temperature float32 `mapstructure:"temperature"`
}

// Search holds search provider configuration
type Search struct {
	DefaultProvider string          `mapstructure:"default_provider"`
	MaxResults      int             `mapstructure:"max_results"`
	Providers       SearchProviders `mapstructure:"providers"`
}

// SearchProviders holds configuration for all search providers
type SearchProviders struct {
	Tavily TavilyConfig `mapstructure:"tavily"`
}

// TavilyConfig holds Tavily search configuration
type TavilyConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// Image holds generative-image provider configuration
type Image struct {
	Provider string `mapstructure:"provider"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	Size     string `mapstructure:"size"`
}

// Storage holds object storage configuration
type Storage struct {
	Provider   string `mapstructure:"provider"` // "http" or "local"
	Endpoint   string `mapstructure:"endpoint"`
	Bucket     string `mapstructure:"bucket"`
	APIKey     string `mapstructure:"api_key"`
	PublicBase string `mapstructure:"public_base"` // Base domain for public URLs
	LocalDir   string `mapstructure:"local_dir"`
}

// Database holds persistence configuration
type Database struct {
	Driver      string `mapstructure:"driver"` // "sqlite" or "postgres"
	DSN         string `mapstructure:"dsn"`    // Connection string for postgres
	SQLitePath  string `mapstructure:"sqlite_path"`
	MaxOpenConn int    `mapstructure:"max_open_conn"`
}

// Plan holds content-plan generation configuration
type Plan struct {
	TargetCount      int     `mapstructure:"target_count"`
	TopUpMaxAttempts int     `mapstructure:"top_up_max_attempts"`
	SimilarityCutoff float64 `mapstructure:"similarity_cutoff"`
}

// Pipeline holds blog-generation pipeline configuration
type Pipeline struct {
	SearchResults     int    `mapstructure:"search_results"`
	SectionDelay      string `mapstructure:"section_delay"` // Throttle between section writes
	WatchmanInterval  string `mapstructure:"watchman_interval"`
	MaxConcurrentRuns int    `mapstructure:"max_concurrent_runs"`
}

// Server holds HTTP API configuration
type Server struct {
	Addr string `mapstructure:"addr"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var globalConfig *Config

// Load loads the configuration from .env, the config file, and environment
// variables, in increasing order of precedence.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".blogforge")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// Reset clears the cached global configuration. Used by tests.
func Reset() {
	globalConfig = nil
	viper.Reset()
}

func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.data_dir", ".blogforge")

	viper.SetDefault("ai.gemini.model", "gemini-2.5-pro")
	viper.SetDefault("ai.gemini.flash_model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.max_tokens", 65536)
	viper.SetDefault("ai.gemini.temperature", 0.7)

	viper.SetDefault("search.default_provider", "tavily")
	viper.SetDefault("search.max_results", 5)

	viper.SetDefault("image.provider", "openai")
	viper.SetDefault("image.model", "gpt-image-1")
	viper.SetDefault("image.size", "1536x1024")

	viper.SetDefault("storage.provider", "local")
	viper.SetDefault("storage.bucket", "article-images")
	viper.SetDefault("storage.local_dir", ".blogforge/images")

	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.sqlite_path", ".blogforge/blogforge.db")
	viper.SetDefault("database.max_open_conn", 10)

	viper.SetDefault("plan.target_count", 30)
	viper.SetDefault("plan.top_up_max_attempts", 2)
	viper.SetDefault("plan.similarity_cutoff", 0.4)

	viper.SetDefault("pipeline.search_results", 5)
	viper.SetDefault("pipeline.section_delay", "4s")
	viper.SetDefault("pipeline.watchman_interval", "1h")
	viper.SetDefault("pipeline.max_concurrent_runs", 4)

	viper.SetDefault("server.addr", ":8080")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

func bindEnvironmentVariables() {
	_ = viper.BindEnv("ai.gemini.api_key", "GEMINI_API_KEY")
	_ = viper.BindEnv("search.providers.tavily.api_key", "TAVILY_API_KEY")
	_ = viper.BindEnv("image.api_key", "OPENAI_API_KEY")
	_ = viper.BindEnv("storage.api_key", "STORAGE_API_KEY")
	_ = viper.BindEnv("database.dsn", "DATABASE_URL")
}

func validateConfig(config *Config) error {
	switch config.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %q", config.Database.Driver)
	}
	if config.Database.Driver == "postgres" && config.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required when driver is postgres")
	}
	if config.Plan.TargetCount <= 0 {
		return fmt.Errorf("plan.target_count must be positive")
	}
	return nil
}
