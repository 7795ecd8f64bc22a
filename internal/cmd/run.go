package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/crewsync/crewsync/internal/config"
	"github.com/crewsync/crewsync/internal/engine"
	"github.com/crewsync/crewsync/internal/logging"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the reconciliation engine",
	Long: `Run the engine over the configured teams directory until interrupted.

The engine ingests filesystem changes, keeps the snapshot store current,
and recomputes member health and team analytics on every tick.`,
	RunE: runRun,
}

var runTeamsDir string

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runTeamsDir, "teams-dir", "", "override the configured teams directory")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if runTeamsDir != "" {
		cfg.Paths.TeamsDir = runTeamsDir
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	e, err := engine.New(cfg, log)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := e.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "crewsync stopped")
	return nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.Nop(), nil
	}
	return logging.New(cfg.Logging.File, cfg.Logging.Level)
}
