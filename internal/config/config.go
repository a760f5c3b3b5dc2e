package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from flags, environment variables and .env files.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	PredictionKey         string        `mapstructure:"prediction_key"`
	PredictionHost        string        `mapstructure:"prediction_host"`
	ProjectID             string        `mapstructure:"project_id"`
	IterationID           string        `mapstructure:"iteration_id"`
	ImageURL              string        `mapstructure:"image_url"`
	PageURL               string        `mapstructure:"page_url"`
	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`

	PublishersFile string `mapstructure:"publishers_file"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// DefaultPredictionHost is the regional Custom Vision prediction endpoint used when no host is configured.
const DefaultPredictionHost = "southcentralus.api.cognitive.microsoft.com"

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"log-level":       "log_level",
	"prediction-key":  "prediction_key",
	"host":            "prediction_host",
	"project-id":      "project_id",
	"iteration-id":    "iteration_id",
	"image-url":       "image_url",
	"page-url":        "page_url",
	"timeout":         "request_timeout_seconds",
	"publishers-file": "publishers_file",
	"storage-type":    "storage_type",
	"bbolt-path":      "bbolt_path",
}

// Load reads configuration from CLI args, environment variables and configs/.env.
// Flags take precedence over the environment. pflag.ErrHelp is returned as-is.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()

	v.SetDefault("app_name", "samvad-vision-predictor")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("prediction_key", "")
	v.SetDefault("prediction_host", DefaultPredictionHost)
	v.SetDefault("project_id", "")
	v.SetDefault("iteration_id", "")
	v.SetDefault("image_url", "")
	v.SetDefault("page_url", "")
	v.SetDefault("request_timeout_seconds", 30)
	v.SetDefault("publishers_file", "")
	v.SetDefault("storage_type", "none")
	v.SetDefault("bbolt_path", "./data/predictions.db")
	v.SetDefault("storage_ttl_seconds", int64((30*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("predictor", pflag.ContinueOnError)
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("prediction-key", "", "Custom Vision Prediction-Key")
	fs.String("host", "", "prediction endpoint host (default "+DefaultPredictionHost+")")
	fs.String("project-id", "", "Custom Vision project id")
	fs.String("iteration-id", "", "trained iteration id")
	fs.String("image-url", "", "public URL of the image to classify")
	fs.String("page-url", "", "HTML page whose og:image is classified when --image-url is empty")
	fs.Int64("timeout", 0, "request timeout in seconds (default 30)")
	fs.String("publishers-file", "", "YAML/JSON file declaring result publishers")
	fs.String("storage-type", "", "prediction history backend (none, bbolt)")
	fs.String("bbolt-path", "", "bbolt database path for prediction history")
	return fs
}

func (c *Config) normalize() error {
	c.PredictionKey = strings.TrimSpace(c.PredictionKey)
	c.PredictionHost = strings.TrimSpace(c.PredictionHost)
	c.ProjectID = strings.TrimSpace(c.ProjectID)
	c.IterationID = strings.TrimSpace(c.IterationID)
	c.ImageURL = strings.TrimSpace(c.ImageURL)
	c.PageURL = strings.TrimSpace(c.PageURL)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))

	var errs []error
	if c.PredictionKey == "" {
		errs = append(errs, errors.New("prediction_key is required"))
	}
	if c.PredictionHost == "" {
		errs = append(errs, errors.New("prediction_host is required"))
	}
	if c.ProjectID == "" {
		errs = append(errs, errors.New("project_id is required"))
	}
	if c.IterationID == "" {
		errs = append(errs, errors.New("iteration_id is required"))
	}
	if c.ImageURL == "" && c.PageURL == "" {
		errs = append(errs, errors.New("image_url or page_url is required"))
	}
	if c.RequestTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("invalid request_timeout_seconds (must be positive seconds)"))
	}
	if c.StorageTTLSeconds <= 0 {
		errs = append(errs, errors.New("invalid storage_ttl_seconds (must be positive seconds)"))
	}
	if c.StorageCleanupSeconds <= 0 {
		errs = append(errs, errors.New("invalid storage_cleanup_interval_seconds (must be positive seconds)"))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	c.RequestTimeout = time.Duration(c.RequestTimeoutSeconds) * time.Second
	c.StorageTTL = time.Duration(c.StorageTTLSeconds) * time.Second
	c.StorageCleanupInterval = time.Duration(c.StorageCleanupSeconds) * time.Second
	return nil
}

// Redacted returns a copy safe to log: the prediction key is masked.
func (c Config) Redacted() Config {
	c.PredictionKey = mask(c.PredictionKey)
	return c
}

func mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}
