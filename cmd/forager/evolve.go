package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cgpforage/internal/config"
	"cgpforage/pkg/forager"
)

type evolveFlags struct {
	configPath     string
	seed           int64
	workers        int
	maxGenerations int
	selection      string
	reportPath     string
}

func newEvolveCmd(a *app) *cobra.Command {
	f := &evolveFlags{}
	cmd := &cobra.Command{
		Use:   "evolve",
		Short: "Evolve a qualified pool and run the olympics",
		Long: `Runs the novelty phase and the fitness phase until both qualifier quotas
are met, puts the pool through every olympic event, stores the run and
appends the text report.

Flags override the config file, which overrides the built-in defaults.
FORAGER_SEED, FORAGER_WORKERS and FORAGER_MAX_GENERATIONS sit between the
file and the flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.configPath)
			if err != nil {
				return err
			}
			fs := cmd.Flags()
			if fs.Changed("seed") {
				cfg.Seed = f.seed
			}
			if fs.Changed("workers") {
				cfg.Workers = f.workers
			}
			if fs.Changed("max-generations") {
				cfg.Evolution.MaxGenerations = f.maxGenerations
			}
			if fs.Changed("selection") {
				cfg.Evolution.Selection = f.selection
			}

			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			summary, err := client.RunExperiment(cmd.Context(), forager.RunRequest{Config: cfg, ReportPath: f.reportPath})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run completed run_id=%s status=%s seed=%d generations=%s fitness_phase_start=%d\n",
				summary.RunID, summary.Status, cfg.Seed, humanize.Comma(int64(summary.Generations)), summary.FitnessPhaseStart)
			fmt.Fprintf(out, "archive_size=%d qualified=%d events=%d\n",
				summary.ArchiveSize, len(summary.Qualified), len(summary.Events))
			if summary.ReportPath != "" {
				fmt.Fprintf(out, "report=%s\n", summary.ReportPath)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "", "YAML config file (defaults apply when empty)")
	flags.Int64Var(&f.seed, "seed", 1, "rng seed")
	flags.IntVar(&f.workers, "workers", 4, "parallel simulations per generation")
	flags.IntVar(&f.maxGenerations, "max-generations", 0, "stop after this many generations (0 disables)")
	flags.StringVar(&f.selection, "selection", "elite", "parent selection strategy: elite|tournament")
	flags.StringVar(&f.reportPath, "report", "", "report file to append to (overrides config report_path)")
	return cmd
}
