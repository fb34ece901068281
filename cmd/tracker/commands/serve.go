package commands

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gotrack/adapters/trackconfig"
	"gotrack/app"
	"gotrack/domain/track"
	"gotrack/ui"
)

var serveProject string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tracking API and the analyst dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, db, err := openRunStore(ctx)
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		} else {
			log.Warn().Msg("DATABASE_URL not set; runs will not be persisted")
		}

		var loadCfg func() (*track.Config, error)
		if serveProject != "" {
			path := serveProject
			loadCfg = func() (*track.Config, error) { return trackconfig.Load(path) }
		}

		api := ui.NewAPI(store, app.NewTrackerService(), loadCfg)
		dashboard, err := ui.NewDashboard(store)
		if err != nil {
			return err
		}

		apiAddr := ":" + appCfg.Server.APIPort
		dashboardAddr := ":" + appCfg.Server.DashboardPort

		g, _ := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.Info().Str("addr", apiAddr).Msg("API listening")
			return http.ListenAndServe(apiAddr, api.Router())
		})
		g.Go(func() error {
			return dashboard.Run(dashboardAddr)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveProject, "project", "p", "", "project configuration served by POST /api/runs")
	rootCmd.AddCommand(serveCmd)
}
