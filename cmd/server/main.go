package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"recipeshorts/internal/app"
	"recipeshorts/internal/config"
	"recipeshorts/internal/logger"
	"recipeshorts/internal/version"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		envFile string
		port    int
		dataDir string
	)

	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Run the recipe extraction API server",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return err
			}
			// フラグは環境変数より優先
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("data-dir") {
				cfg.DataDir = dataDir
				if os.Getenv("DB_PATH") == "" {
					cfg.DBPath = filepath.Join(dataDir, "recipes.db")
				}
			}
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return err
			}
			return run(cfg)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to load (ignored if missing)")
	cmd.Flags().IntVarP(&port, "port", "p", 8000, "HTTP listen port")
	cmd.Flags().StringVar(&dataDir, "data-dir", "data", "directory for job artifacts and the archive")
	return cmd
}

func run(cfg *config.Config) error {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		return err
	}

	a.Worker.Start(ctx)
	e := a.Server()

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "version", version.Version, "port", cfg.Port)
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	a.Worker.Stop()
	return a.Close(shutdownCtx)
}
