package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	apiserver "github.com/realia-labs/realia/internal/api_server"
	"github.com/realia-labs/realia/internal/config"
	"github.com/realia-labs/realia/internal/store"
	"github.com/realia-labs/realia/pkg/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the realia api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return fmt.Errorf("reading configuration: %w", err)
		}

		_, undo := log.Setup(level(cfg))
		defer undo()

		zap.S().Info("Starting API service")
		defer zap.S().Info("API service stopped")

		zap.S().Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			return fmt.Errorf("initializing data store: %w", err)
		}

		s := store.NewStore(db)
		defer func() {
			_ = s.Close()
		}()

		if err := migrate(db, cfg); err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		deps, err := apiserver.NewDependencies(ctx, cfg)
		if err != nil {
			return fmt.Errorf("initializing dependencies: %w", err)
		}
		defer deps.Close()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			listener, err := newListener(cfg.Service.Address)
			if err != nil {
				return fmt.Errorf("creating listener: %w", err)
			}
			return apiserver.New(cfg, s, deps, listener).Run(gctx)
		})
		g.Go(func() error {
			return runMetrics(gctx, cfg)
		})

		return g.Wait()
	},
}

func runMetrics(ctx context.Context, cfg *config.Config) error {
	listener, err := newListener(cfg.Service.MetricsAddress)
	if err != nil {
		return fmt.Errorf("creating metrics listener: %w", err)
	}
	return apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener).Run(ctx)
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
