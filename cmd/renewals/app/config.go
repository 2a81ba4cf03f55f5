package app

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/renewals/internal/server"
	"github.com/agentstation/renewals/pkg/catalog"
	"github.com/agentstation/renewals/pkg/constants"
	pkgerrors "github.com/agentstation/renewals/pkg/errors"
	"github.com/agentstation/renewals/pkg/overlay"
	"github.com/agentstation/renewals/pkg/plans"
)

// Config holds the application configuration loaded from the config file,
// environment variables, .env files and command-line flags.
type Config struct {
	// Global flags
	Verbose bool   `mapstructure:"-"`
	Quiet   bool   `mapstructure:"-"`
	NoColor bool   `mapstructure:"-"`
	Format  string `mapstructure:"format"`

	// ConfigFile is the file that was read, if any.
	ConfigFile string `mapstructure:"-"`

	// LogLevel is the --log-level flag; EnvLogLevel is LOG_LEVEL. They are
	// kept apart so -v and -q can sit between them in precedence.
	LogLevel    string `mapstructure:"-"`
	EnvLogLevel string `mapstructure:"-"`
	LogFormat   string `mapstructure:"-"`
	LogOutput   string `mapstructure:"-"`

	Catalog   CatalogConfig        `mapstructure:"catalog"`
	Overlay   overlay.Config       `mapstructure:"overlay"`
	Normalize plans.NormalizeRules `mapstructure:"normalize"`
	Server    server.Config        `mapstructure:"server"`
}

// CatalogConfig locates the catalog export.
type CatalogConfig struct {
	Path  string        `mapstructure:"path"`
	Sheet string        `mapstructure:"sheet"`
	TTL   time.Duration `mapstructure:"ttl"`
	Watch bool          `mapstructure:"watch"`

	// S3 is used when Path is an s3://bucket/key location.
	S3 catalog.S3Config `mapstructure:"s3"`
}

// LoadConfig loads configuration from all sources in order of precedence:
//  1. Command-line flags (applied later by UpdateFromFlags)
//  2. Environment variables (CATALOG_PATH, OVERLAY_DSN, SERVER_PORT, ...)
//  3. .env and .env.local
//  4. Config file (configFile, or .renewals.yaml in $HOME or the working dir)
//  5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if configFile == "" {
		configFile = os.Getenv("RENEWALS_CONFIG")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".renewals")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, pkgerrors.NewConfigError("config", "reading config file", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, pkgerrors.NewConfigError("config", "decoding config", err)
	}
	config.ConfigFile = v.ConfigFileUsed()
	config.EnvLogLevel = os.Getenv("LOG_LEVEL")
	config.LogFormat = getEnvOrDefault("LOG_FORMAT", "auto")
	config.LogOutput = getEnvOrDefault("LOG_OUTPUT", "stderr")

	return config, nil
}

// setDefaults registers every key so AutomaticEnv can override it during
// Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("format", "")

	v.SetDefault("catalog.path", "")
	v.SetDefault("catalog.sheet", "")
	v.SetDefault("catalog.ttl", constants.CatalogCacheTTL)
	v.SetDefault("catalog.watch", false)
	v.SetDefault("catalog.s3.region", "")
	v.SetDefault("catalog.s3.endpoint", "")
	v.SetDefault("catalog.s3.path_style", false)
	v.SetDefault("catalog.s3.access_key_id", "")
	v.SetDefault("catalog.s3.secret_access_key", "")

	ov := overlay.DefaultConfig()
	v.SetDefault("overlay.driver", ov.Driver)
	v.SetDefault("overlay.dsn", ov.DSN)

	v.SetDefault("normalize.collapse_spaces", false)
	v.SetDefault("normalize.space_as_dash", false)
	v.SetDefault("normalize.unicode_fold", false)

	srv := server.DefaultConfig()
	v.SetDefault("server.host", srv.Host)
	v.SetDefault("server.port", srv.Port)
	v.SetDefault("server.path_prefix", srv.PathPrefix)
	v.SetDefault("server.cors_enabled", srv.CORSEnabled)
	v.SetDefault("server.cors_origins", srv.CORSOrigins)
	v.SetDefault("server.auth_enabled", srv.AuthEnabled)
	v.SetDefault("server.auth_header", srv.AuthHeader)
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.rate_limit", srv.RateLimit)
	v.SetDefault("server.read_timeout", srv.ReadTimeout)
	v.SetDefault("server.write_timeout", srv.WriteTimeout)
	v.SetDefault("server.idle_timeout", srv.IdleTimeout)
	v.SetDefault("server.metrics_enabled", srv.MetricsEnabled)
	v.SetDefault("server.export_title", constants.DefaultExportTitle)
}

// UpdateFromFlags applies parsed global flags on top of the loaded values.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	c.LogLevel = logLevel
}

// loadEnvFiles loads .env, then .env.local. Existing variables win.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
