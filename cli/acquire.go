package cli

import (
	"fmt"

	"github.com/KaurMahima/healthcare-sql-analytics/extract"
	"github.com/KaurMahima/healthcare-sql-analytics/pipeline"
	"github.com/spf13/cobra"
)

func NewAcquireCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "acquire",
		Short: "Downloads the raw healthcare dataset and its metadata from Kaggle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			env, err := initializeConfigAndLogger(cmd, pipeline.StageAcquire)
			if err != nil {
				return err
			}
			defer func() { env.finish(err) }()

			client := extract.NewKaggleClient(env.cfg, env.log)
			credentialsDir, dirErr := extract.CredentialsDir(env.cfg.Kaggle.ConfigDir)
			if dirErr != nil {
				// Only the remediation hints use the directory; they fall back to ~/.kaggle.
				env.log.Debug(fmt.Sprintf("Could not resolve Kaggle credentials directory: %v", dirErr))
			}

			res, err := pipeline.Acquire(cmd.Context(), pipeline.AcquireConfig{
				Dataset:        env.cfg.Acquire.Dataset,
				Dir:            env.path(env.cfg.Acquire.RawDir),
				Policy:         pipeline.TargetPolicy(env.cfg.Acquire.TargetPolicy),
				CredentialsDir: credentialsDir,
			}, client, env.log)
			if err != nil {
				env.log.Error(fmt.Sprintf("Error acquiring dataset: %v", err))
				return err
			}
			env.metrics.SetFilesAcquired(len(res.Files))

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Downloaded files:")
			for _, name := range res.Files {
				fmt.Fprintf(out, "- %s\n", name)
			}
			return nil
		},
	}
	addConfigFlags(cmd)

	return cmd
}
