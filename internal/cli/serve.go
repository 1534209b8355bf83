package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/headline-lab/headline-lab/internal/config"
	"github.com/headline-lab/headline-lab/internal/engine"
	"github.com/headline-lab/headline-lab/internal/server"
	"github.com/headline-lab/headline-lab/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the headline-lab server",
	Long: `Start the headline-lab server.

The server provides:
  - Beacon endpoint at /b for impression/click/engagement telemetry
  - JSON API under /api/tests for creating and inspecting tests
  - Per-pageview headline allocation at /api/tests/{id}/variant

Completed tests are archived to the SQLite database automatically.

Example:
  headline-lab serve
  HL_PORT=9090 headline-lab serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	config.SetupLogger(cfg.Log)

	st, err := store.Open(cfg.Storage.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	eng := engine.New(engine.Config{
		TestDuration: cfg.TestDuration(),
		MaxVariants:  cfg.Engine.MaxVariants,
	})
	defer eng.Close()

	eng.OnComplete(func(t *engine.Test) {
		if err := st.ArchiveTest(context.Background(), store.NewArchivedTest(t)); err != nil {
			slog.Error("failed to archive completed test", "err", err, "test", t.ID)
		}
	})

	slog.Info("headline-lab starting",
		"port", cfg.Server.Port,
		"db", cfg.Storage.DSN,
		"test_duration", cfg.TestDuration(),
		"max_variants", cfg.Engine.MaxVariants,
	)

	srv := server.New(eng, st, cfg.Server)
	return srv.Start()
}
