// Package cmd defines and implements the CLI commands for the agescraper
// executable.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/climbtrack/agescraper/internal/logging"
	"github.com/climbtrack/agescraper/pkg/config"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agescraper",
		Short: "Re-scrapes athlete ages from federation results sites.",
		Long: `agescraper keeps the per-federation athlete age tables fresh.
For every athlete still missing today's value it fetches the profile page,
extracts the age, and checkpoints the table after each scheduling cycle.
Profiles confirmed deleted are removed from the table permanently.`,
	}

	cobra.OnInitialize(func() {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		}
		config.InitConfig()
		logging.InitLogger(viper.GetBool("log.development"))
	})

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.agescraper/config.yaml)")

	cmd.AddCommand(newRefreshCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	logging.InitLogger(false)

	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}
