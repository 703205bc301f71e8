package scrape

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Engine selectors for session creation.
const (
	EngineChromedp = "chromedp"
	EngineStatic   = "static"
)

// Mirror backend selectors for checkpoint copies.
const (
	MirrorNone  = "none"
	MirrorLocal = "local"
	MirrorGCS   = "gcs"
)

// Config captures every configuration knob that influences a refresh run.
// All values originate from Viper so the scraper can be configured via files,
// env vars, or CLI flags.
type Config struct {
	DataDir   string
	Workers   int
	MaxCycles int
	Engine    string
	UserAgent string

	NavTimeout   time.Duration
	RateLimitQPS float64

	AgePattern         string
	DeletedSelector    string
	DeletedKeywords    []string
	DeletedPollTimeout time.Duration

	Retry RetryConfig

	MetricsAddr string

	MirrorBackend  string
	MirrorLocalDir string
	MirrorBucket   string

	ProgressPostgresDSN string
}

// LoadConfig constructs a Config by reading from Viper.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		DataDir:   v.GetString("scraper.data_dir"),
		Workers:   v.GetInt("scraper.workers"),
		MaxCycles: v.GetInt("scraper.max_cycles"),
		Engine:    v.GetString("scraper.engine"),
		UserAgent: v.GetString("scraper.user_agent"),

		NavTimeout:   v.GetDuration("scraper.nav_timeout"),
		RateLimitQPS: v.GetFloat64("scraper.rate_limit_qps"),

		AgePattern:         v.GetString("scraper.age_pattern"),
		DeletedSelector:    v.GetString("detector.selector"),
		DeletedKeywords:    v.GetStringSlice("detector.keywords"),
		DeletedPollTimeout: v.GetDuration("detector.poll_timeout"),

		Retry: RetryConfig{
			MaxTries:        v.GetInt("scraper.max_tries"),
			MinAge:          v.GetInt("scraper.min_age"),
			MaxAge:          v.GetInt("scraper.max_age"),
			SettleBase:      v.GetDuration("scraper.settle_base"),
			SettleJitterMin: v.GetDuration("scraper.settle_jitter_min"),
			SettleJitterMax: v.GetDuration("scraper.settle_jitter_max"),
			DeletedPenalty:  v.GetDuration("scraper.deleted_penalty"),
		},

		MetricsAddr: v.GetString("metrics.addr"),

		MirrorBackend:  v.GetString("mirror.backend"),
		MirrorLocalDir: v.GetString("mirror.local_dir"),
		MirrorBucket:   v.GetString("mirror.gcs_bucket"),

		ProgressPostgresDSN: v.GetString("progress.postgres_dsn"),
	}
	return cfg, cfg.Validate()
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("scraper.data_dir must be set")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("scraper.workers must be > 0")
	}
	if c.MaxCycles <= 0 {
		return fmt.Errorf("scraper.max_cycles must be > 0")
	}
	if c.Engine != EngineChromedp && c.Engine != EngineStatic {
		return fmt.Errorf("scraper.engine must be %q or %q", EngineChromedp, EngineStatic)
	}
	if c.NavTimeout <= 0 {
		return fmt.Errorf("scraper.nav_timeout must be > 0")
	}
	if c.RateLimitQPS < 0 {
		return fmt.Errorf("scraper.rate_limit_qps must be >= 0")
	}
	if c.Retry.MaxTries <= 0 {
		return fmt.Errorf("scraper.max_tries must be > 0")
	}
	if c.Retry.MinAge > c.Retry.MaxAge {
		return fmt.Errorf("scraper.min_age must be <= scraper.max_age")
	}
	if c.Retry.SettleJitterMin > c.Retry.SettleJitterMax {
		return fmt.Errorf("scraper.settle_jitter_min must be <= scraper.settle_jitter_max")
	}
	if c.DeletedPollTimeout <= 0 {
		return fmt.Errorf("detector.poll_timeout must be > 0")
	}
	switch c.MirrorBackend {
	case MirrorNone, MirrorLocal, MirrorGCS:
	default:
		return fmt.Errorf("mirror.backend must be one of none, local, gcs")
	}
	if c.MirrorBackend == MirrorLocal && c.MirrorLocalDir == "" {
		return fmt.Errorf("mirror.local_dir must be set for the local mirror backend")
	}
	if c.MirrorBackend == MirrorGCS && c.MirrorBucket == "" {
		return fmt.Errorf("mirror.gcs_bucket must be set for the gcs mirror backend")
	}
	return nil
}
