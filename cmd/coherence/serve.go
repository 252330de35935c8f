package main

import (
	"github.com/spf13/cobra"

	"gocoherence/adapters/excel"
	"gocoherence/adapters/stats/engine"
	"gocoherence/app"
	"gocoherence/internal/api"
)

func newServeCmd() *cobra.Command {
	flags := &analysisFlags{}

	cmd := &cobra.Command{
		Use:   "serve [data-dir...]",
		Short: "Serve reports over HTTP for an external renderer",
		Long: `Analyze each given session at startup, then serve the reports as JSON.
Further sessions under COHERENCE_DATA_DIR can be analyzed with POST /api/reports.

Example: PORT=8080 coherence serve ./baseline ./intention`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(flags)
			if err != nil {
				return err
			}
			env.startProfiling()

			hub := api.NewSSEHub(env.logger)
			defer hub.Close()
			store := api.NewNotifyingStore(env.store, hub)
			service := app.NewCoherenceService(engine.NewStatsEngine(env.logger), store, env.logger)

			for _, dir := range args {
				req, err := env.request(dir, "")
				if err != nil {
					return err
				}
				r, err := service.Analyze(cmd.Context(), req)
				if err != nil {
					return err
				}
				env.logger.Info("loaded %s as report %s", dir, r.RunID)
			}

			server := api.NewServer(api.Deps{
				Service:  service,
				Store:    store,
				Exporter: excel.NewReportWriter(excel.DefaultExcelConfig(), env.logger),
				Sources:  api.DataDirSources(env.config.Paths.DataDir, env.config.Analysis.Workers, env.logger),
				Options:  env.options(),
				Hub:      hub,
				Logger:   env.logger,
			}, env.config.Server.GinMode)

			return server.ListenAndServe(cmd.Context(), ":"+env.config.Server.Port)
		},
	}

	flags.register(cmd)
	return cmd
}
