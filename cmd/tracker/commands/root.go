package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"gotrack/internal/config"
	"gotrack/internal/logging"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	appCfg  *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Tracker computes multi-wave survey tracking reports",
	Long: `Tracker prepares wave data files, computes weighted trend metrics with
design-effect-adjusted significance testing, and delivers the result as a
tracking workbook, a JSON API, and an analyst dashboard.`,
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)

		var err error
		appCfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}

		log.Debug().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Msg("tracker starting")
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}
