// Package config is responsible for initializing the application's
// configuration. It uses the Viper library to read settings from a config
// file, environment variables, and command-line flags, providing a unified
// configuration system.
package config

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/climbtrack/agescraper/internal/logging"
)

// InitConfig initializes the application's configuration using Viper.
// It sets up default values, defines configuration search paths, and enables
// reading from environment variables. This function is designed to be called
// once at application startup.
func InitConfig() {
	viper.SetConfigName("config")
	viper.AddConfigPath(".")                 // Current working directory
	viper.AddConfigPath("/etc/agescraper/")  // System-wide configuration
	viper.AddConfigPath("$HOME/.agescraper") // User-specific configuration

	// Scrape cadence defaults mirror the production run: three tries per
	// profile, a 1.5s settle with a little jitter, and a 5s penalty on the
	// deleted-profile page.
	viper.SetDefault("scraper.data_dir", ".")
	viper.SetDefault("scraper.workers", 10)
	viper.SetDefault("scraper.max_cycles", 5)
	viper.SetDefault("scraper.engine", "chromedp")
	viper.SetDefault("scraper.user_agent", "agescraper/1.0 (+https://github.com/climbtrack/agescraper)")
	viper.SetDefault("scraper.nav_timeout", "45s")
	viper.SetDefault("scraper.rate_limit_qps", 0.0)
	viper.SetDefault("scraper.age_pattern", "")
	viper.SetDefault("scraper.max_tries", 3)
	viper.SetDefault("scraper.min_age", 3)
	viper.SetDefault("scraper.max_age", 200)
	viper.SetDefault("scraper.settle_base", "1500ms")
	viper.SetDefault("scraper.settle_jitter_min", "200ms")
	viper.SetDefault("scraper.settle_jitter_max", "500ms")
	viper.SetDefault("scraper.deleted_penalty", "5s")

	viper.SetDefault("detector.selector", "div.rs-alertbox-danger .text-toast")
	viper.SetDefault("detector.keywords", []string{"something wrong happened"})
	viper.SetDefault("detector.poll_timeout", "1s")

	viper.SetDefault("metrics.addr", "")

	viper.SetDefault("mirror.backend", "none")
	viper.SetDefault("mirror.local_dir", "")
	viper.SetDefault("mirror.gcs_bucket", "")

	viper.SetDefault("progress.postgres_dsn", "")

	viper.SetDefault("log.development", false)

	viper.SetEnvPrefix("AGESCRAPER") // e.g., AGESCRAPER_SCRAPER_WORKERS=4
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logging.L.Debug("Config file not found; using defaults and environment variables.")
		} else {
			logging.L.Error("Error reading config file", zap.Error(err))
		}
	} else {
		logging.L.Info("Using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}
