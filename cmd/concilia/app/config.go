package app

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/concilia/internal/blob"
	"github.com/agentstation/concilia/pkg/constants"
	"github.com/agentstation/concilia/pkg/errors"
)

// Config holds the application configuration loaded from config files,
// environment variables and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Output  string

	// Config file
	ConfigFile string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string

	Store   StoreConfig
	Extract ExtractConfig
	Server  ServerConfig
}

// StoreConfig selects the state backend.
type StoreConfig struct {
	Backend  string
	Path     string
	Key      string
	RedisURL string
	SeedFile string

	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Secure    bool
}

// ExtractConfig configures document extraction.
type ExtractConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
	APIKey      string
}

// LoadConfig loads configuration from all sources in order of precedence:
//  1. Command-line flags (applied later by UpdateFromFlags)
//  2. Environment variables (CONCILIA_ prefix)
//  3. .env files
//  4. Config file (path, or ~/.concilia.yaml, or ./.concilia.yaml)
//  5. Defaults
func LoadConfig(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CONCILIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindAPIKeys(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "reading "+path, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".concilia")
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return nil, errors.NewConfigError("config", "reading config file", err)
		}
	}

	config := &Config{
		Verbose:    v.GetBool("verbose"),
		Quiet:      v.GetBool("quiet"),
		NoColor:    v.GetBool("no_color"),
		Output:     v.GetString("output"),
		ConfigFile: v.ConfigFileUsed(),

		LogLevel:  v.GetString("log.level"),
		LogFormat: v.GetString("log.format"),
		LogOutput: v.GetString("log.output"),

		Store: StoreConfig{
			Backend:     v.GetString("store.backend"),
			Path:        v.GetString("store.path"),
			Key:         v.GetString("store.key"),
			RedisURL:    v.GetString("store.redis_url"),
			SeedFile:    v.GetString("store.seed_file"),
			S3Endpoint:  v.GetString("store.s3.endpoint"),
			S3Bucket:    v.GetString("store.s3.bucket"),
			S3AccessKey: v.GetString("store.s3.access_key"),
			S3SecretKey: v.GetString("store.s3.secret_key"),
			S3Secure:    v.GetBool("store.s3.secure"),
		},
		Extract: ExtractConfig{
			APIKey:  v.GetString("extract.api_key"),
			Model:   v.GetString("extract.model"),
			Timeout: v.GetDuration("extract.timeout"),
		},
		Server: ServerConfig{
			Host:        v.GetString("server.host"),
			Port:        v.GetInt("server.port"),
			CORSOrigins: v.GetStringSlice("server.cors_origins"),
			APIKey:      v.GetString("server.api_key"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.format", "auto")
	v.SetDefault("log.output", "stderr")

	v.SetDefault("store.backend", blob.File)
	v.SetDefault("store.path", constants.DefaultDataDir)
	v.SetDefault("store.key", constants.StorageKey)
	v.SetDefault("store.s3.secure", true)

	v.SetDefault("extract.model", "flash")
	v.SetDefault("extract.timeout", constants.ExtractTimeout)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
}

// Validate checks the values no command can run with.
func (c *Config) Validate() error {
	backend := strings.ToLower(c.Store.Backend)
	known := false
	for _, b := range blob.Backends() {
		if b == backend {
			known = true
			break
		}
	}
	if !known {
		return errors.NewConfigError("store", "unknown backend "+c.Store.Backend+
			" (want one of "+strings.Join(blob.Backends(), ", ")+")", nil)
	}
	if c.Extract.Timeout <= 0 {
		return errors.NewConfigError("extract", "timeout must be positive", nil)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.NewConfigError("server", "port out of range", nil)
	}
	return nil
}

// BlobConfig maps the store settings onto the backend opener.
func (c *Config) BlobConfig() blob.Config {
	path := c.Store.Path
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	cfg := blob.Config{
		Backend:  c.Store.Backend,
		Path:     path,
		RedisURL: c.Store.RedisURL,
	}
	cfg.S3.Endpoint = c.Store.S3Endpoint
	cfg.S3.Bucket = c.Store.S3Bucket
	cfg.S3.AccessKey = c.Store.S3AccessKey
	cfg.S3.SecretKey = c.Store.S3SecretKey
	cfg.S3.Secure = c.Store.S3Secure
	return cfg
}

// UpdateFromFlags updates config values from parsed command flags, which
// take precedence over the config file and environment.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, output, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if output != "" {
		c.Output = output
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads .env then .env.local. Variables already set win.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

// bindAPIKeys lets the extraction key come from the bare variable names.
func bindAPIKeys(v *viper.Viper) {
	_ = v.BindEnv("extract.api_key", "CONCILIA_EXTRACT_API_KEY", "GEMINI_API_KEY", "API_KEY")
	_ = v.BindEnv("log.level", "CONCILIA_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("log.format", "CONCILIA_LOG_FORMAT", "LOG_FORMAT")
	_ = v.BindEnv("log.output", "CONCILIA_LOG_OUTPUT", "LOG_OUTPUT")
}
