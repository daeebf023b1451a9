package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kskby/dpd/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "dpd",
	Short:   "DPD carrier integration - geography sync and delivery cost service",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and the background sync scheduler",
	RunE:  runServe,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Manage the geography sync pipeline",
}

var syncRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one sync invocation and exit",
	RunE:  runSyncRun,
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the persisted sync state",
	RunE:  runSyncStatus,
}

var syncResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the sync state so the next invocation starts a fresh cycle",
	RunE:  runSyncReset,
}

func init() {
	syncCmd.AddCommand(syncRunCmd, syncStatusCmd, syncResetCmd)
	rootCmd.AddCommand(serveCmd, syncCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	app.logger.Info("Starting DPD integration service",
		zap.Int("port", app.cfg.Port),
		zap.String("version", app.cfg.Version),
	)

	srv := server.New(app.cfg, app.store, app.orchestrator,
		app.calculator, app.converter, app.normalizer, app.logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runSyncRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	status, err := app.orchestrator.Advance(ctx)
	if err != nil {
		app.logger.Error("Sync invocation failed", zap.Error(err))
		return err
	}

	app.logger.Info("Sync invocation finished",
		zap.String("step", string(status.Step)),
		zap.String("cursor", status.Cursor),
	)
	return printJSON(status)
}

func runSyncStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	status, err := app.orchestrator.Status(ctx)
	if err != nil {
		return err
	}
	return printJSON(status)
}

func runSyncReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	if err := app.orchestrator.Reset(ctx); err != nil {
		return err
	}

	app.logger.Info("Sync state reset")
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
