package commands

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"gotrack/adapters/postgres"
	"gotrack/adapters/report"
	"gotrack/adapters/trackconfig"
	"gotrack/app"
	apperr "gotrack/internal/errors"
	"gotrack/internal/migration"
	"gotrack/ports"
)

var (
	runOutput string
	runStore  bool
)

var runCmd = &cobra.Command{
	Use:   "run <config file>",
	Short: "Compute a tracking run and write the report workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := trackconfig.Load(args[0])
		if err != nil {
			return err
		}

		result, err := app.NewTrackerService().Run(cmd.Context(), app.RunRequest{
			Config:      cfg,
			MaxParallel: appCfg.Engine.MaxParallel,
		})
		if err != nil {
			return err
		}

		output := runOutput
		if output == "" {
			output = cfg.Settings.OutputFile
		}
		if err := report.WriteXLSX(output, result.Rows, result.Metadata); err != nil {
			return err
		}

		if runStore {
			if err := persistRun(cmd.Context(), result); err != nil {
				return err
			}
		}

		for _, warning := range result.Warnings {
			log.Warn().Msg(warning)
		}
		fmt.Printf("Run %s: %d metric rows across %d waves written to %s (%dms)\n",
			result.RunID, len(result.Rows), result.Metadata.NWaves, output, result.RuntimeMs)
		return nil
	},
}

// openRunStore connects to the configured database and brings the schema
// up to date. A blank DATABASE_URL returns a nil repository.
func openRunStore(ctx context.Context) (ports.RunRepository, *sqlx.DB, error) {
	if appCfg.Database.URL == "" {
		return nil, nil, nil
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", appCfg.Database.URL)
	if err != nil {
		return nil, nil, apperr.DatabaseError("connecting to run store", err)
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return postgres.NewRunRepository(db), db, nil
}

func persistRun(ctx context.Context, result *app.RunResult) error {
	store, db, err := openRunStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return apperr.ConfigInvalid("--store requires DATABASE_URL to be set", nil)
	}
	defer db.Close()

	stored := &ports.StoredRun{Metadata: result.Metadata, Rows: result.Rows, Warnings: result.Warnings}
	if err := store.SaveRun(ctx, stored); err != nil {
		return err
	}
	log.Info().Str("run_id", result.RunID.String()).Msg("run stored")
	return nil
}

func init() {
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "report path (defaults to the project's output_file setting)")
	runCmd.Flags().BoolVar(&runStore, "store", false, "persist the run to the configured database")
	rootCmd.AddCommand(runCmd)
}
