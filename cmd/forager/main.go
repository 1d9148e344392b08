package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cgpforage/internal/storage"
	"cgpforage/pkg/forager"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries the global flags and the logger built from them.
type app struct {
	verbose   bool
	storeKind string
	dbPath    string

	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "forager",
		Short: "Evolve CGP foraging controllers and run them through the olympics",
		Long: `forager evolves Cartesian Genetic Programming controllers for simulated
two-wheeled foragers. A novelty phase and a fitness phase each fill half of
a qualified pool, which then competes in a battery of arena events. Results
are stored per run and appended to a plain-text report.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config := zap.NewProductionConfig()
			if a.verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&a.storeKind, "store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	flags.StringVar(&a.dbPath, "db-path", "forager.db", "sqlite database path")

	root.AddCommand(
		newEvolveCmd(a),
		newRunsCmd(a),
		newShowCmd(a),
		newConfigCmd(),
	)
	return root
}

func (a *app) client(ctx context.Context) (*forager.Client, error) {
	logger := a.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := forager.New(forager.Options{
		StoreKind: a.storeKind,
		DBPath:    a.dbPath,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Init(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
