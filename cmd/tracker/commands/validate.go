package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gotrack/adapters/trackconfig"
)

var validateCmd = &cobra.Command{
	Use:   "validate <config file>",
	Short: "Check a project configuration without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := trackconfig.Load(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s: %d waves, %d questions (%d tracked), %d banner segments\n",
			cfg.Settings.ProjectName, len(cfg.Waves), len(cfg.Questions), len(cfg.Tracked), len(cfg.Banner))
		for _, wave := range cfg.Waves {
			status := "ok"
			if _, err := os.Stat(wave.DataFile); err != nil {
				status = "MISSING"
			}
			fmt.Printf("  %-8s %-24s %s [%s]\n", wave.ID, wave.Name, wave.DataFile, status)
		}
		for _, tracked := range cfg.Tracked {
			fmt.Printf("  tracked: %s (%s)\n", tracked.Code, tracked.Section)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
