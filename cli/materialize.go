package cli

import (
	"fmt"

	"github.com/KaurMahima/healthcare-sql-analytics/config"
	"github.com/KaurMahima/healthcare-sql-analytics/load"
	"github.com/KaurMahima/healthcare-sql-analytics/pipeline"
	"github.com/spf13/cobra"
)

func NewMaterializeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "materialize",
		Short: "Loads the raw healthcare CSV into the DuckDB store, replacing the table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			env, err := initializeConfigAndLogger(cmd, pipeline.StageMaterialize)
			if err != nil {
				return err
			}
			defer func() { env.finish(err) }()

			initQueries := make([]string, 0, len(env.cfg.DuckDB.ConnInitFnQueries))
			for _, q := range env.cfg.DuckDB.ConnInitFnQueries {
				initQueries = append(initQueries, env.path(q))
			}

			open := func(path string) (pipeline.Store, error) {
				db, err := load.NewDuckDB(config.DuckDBConfig{
					Path:              path,
					ConnInitFnQueries: initQueries,
				}, env.log)
				if err != nil {
					return nil, fmt.Errorf("error creating DB connection: %w", err)
				}
				return db, nil
			}

			res, err := pipeline.Materialize(cmd.Context(), pipeline.MaterializeConfig{
				Source:    env.path(env.cfg.Materialize.Source),
				StorePath: env.path(env.cfg.DuckDB.Path),
				Table:     env.cfg.Materialize.Table,
			}, open, env.log)
			if err != nil {
				env.log.Error(fmt.Sprintf("Error materializing dataset: %v", err))
				return err
			}
			env.metrics.SetRowsLoaded(res.Rows)

			env.log.Info(fmt.Sprintf("Database created at %s with %d rows in %s", res.StorePath, res.Rows, res.Table))
			return nil
		},
	}
	addConfigFlags(cmd)

	return cmd
}
