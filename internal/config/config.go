// Package config layers benchmark settings from flags, BENCHMARK_* environment
// variables and an optional config file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/callbench/internal/matcher"
)

// EnvPrefix is prepended to every environment variable, e.g. BENCHMARK_API_KEY.
const EnvPrefix = "BENCHMARK"

// Setting keys. They double as flag names and config file keys; the
// environment variable is the key upper-cased with "-" replaced by "_".
const (
	KeyModel          = "model"
	KeyBaseURL        = "base-url"
	KeyAPIKey         = "api-key"
	KeyStream         = "stream"
	KeyDelay          = "delay"
	KeyConcurrency    = "concurrency"
	KeyJudgeModel     = "judge-model"
	KeyArgumentPolicy = "argument-policy"
	KeyMaxRetries     = "max-retries"
	KeyTimeout        = "timeout"
	KeyDB             = "db"
)

// Config holds the settings of a benchmark run.
type Config struct {
	Model   string
	BaseURL string
	APIKey  string
	Stream  bool

	// Delay is slept between consecutive turns of one session.
	Delay       time.Duration
	Concurrency int

	// JudgeModel defaults to Model.
	JudgeModel     string
	ArgumentPolicy matcher.ArgumentPolicy

	MaxRetries int
	Timeout    time.Duration

	// DB is the results store path. Empty disables persistence.
	DB string
}

// Defaults returns the settings used when nothing else is configured.
func Defaults() Config {
	return Config{
		Concurrency:    1,
		ArgumentPolicy: matcher.PolicyStrict,
		MaxRetries:     2,
		Timeout:        2 * time.Minute,
	}
}

// RegisterFlags defines every setting as a flag on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String(KeyModel, d.Model, "model under test")
	fs.String(KeyBaseURL, d.BaseURL, "OpenAI-compatible API base URL")
	fs.String(KeyAPIKey, d.APIKey, "API key")
	fs.Bool(KeyStream, d.Stream, "stream chat completions")
	fs.Duration(KeyDelay, d.Delay, "delay between turns of one test")
	fs.Int(KeyConcurrency, d.Concurrency, "number of tests run in parallel")
	fs.String(KeyJudgeModel, d.JudgeModel, "model judging final answers (defaults to --model)")
	fs.String(KeyArgumentPolicy, string(d.ArgumentPolicy), "argument comparison (strict|lenient)")
	fs.Int(KeyMaxRetries, d.MaxRetries, "transport retries per model call")
	fs.Duration(KeyTimeout, d.Timeout, "timeout per model call")
	fs.String(KeyDB, d.DB, "results database path (empty disables)")
}

var keys = []string{
	KeyModel, KeyBaseURL, KeyAPIKey, KeyStream, KeyDelay, KeyConcurrency,
	KeyJudgeModel, KeyArgumentPolicy, KeyMaxRetries, KeyTimeout, KeyDB,
}

// Load resolves settings. fs may be nil; flags it does not define are
// skipped. configFile may be empty.
func Load(fs *pflag.FlagSet, configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault(KeyConcurrency, d.Concurrency)
	v.SetDefault(KeyArgumentPolicy, string(d.ArgumentPolicy))
	v.SetDefault(KeyMaxRetries, d.MaxRetries)
	v.SetDefault(KeyTimeout, d.Timeout)

	if fs != nil {
		for _, key := range keys {
			if f := fs.Lookup(key); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", key, err)
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	policy, err := matcher.ParsePolicy(v.GetString(KeyArgumentPolicy))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Model:          v.GetString(KeyModel),
		BaseURL:        v.GetString(KeyBaseURL),
		APIKey:         v.GetString(KeyAPIKey),
		Stream:         v.GetBool(KeyStream),
		Delay:          v.GetDuration(KeyDelay),
		Concurrency:    v.GetInt(KeyConcurrency),
		JudgeModel:     v.GetString(KeyJudgeModel),
		ArgumentPolicy: policy,
		MaxRetries:     v.GetInt(KeyMaxRetries),
		Timeout:        v.GetDuration(KeyTimeout),
		DB:             v.GetString(KeyDB),
	}
	if cfg.JudgeModel == "" {
		cfg.JudgeModel = cfg.Model
	}
	return cfg, nil
}

// Validate checks the settings needed to call a model.
func (c *Config) Validate() error {
	var errs []error
	if c.Model == "" {
		errs = append(errs, fmt.Errorf("model is required (--%s or %s_MODEL)", KeyModel, EnvPrefix))
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("base URL %q must be an absolute URL", c.BaseURL))
		}
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.Delay < 0 {
		errs = append(errs, fmt.Errorf("delay must not be negative, got %s", c.Delay))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	return errors.Join(errs...)
}
