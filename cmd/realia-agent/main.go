package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/realia-labs/realia/internal/agent"
	apiserver "github.com/realia-labs/realia/internal/api_server"
	"github.com/realia-labs/realia/internal/client"
	"github.com/realia-labs/realia/internal/config"
	"github.com/realia-labs/realia/pkg/log"
)

var logLevel string

func main() {
	rootCmd := &cobra.Command{
		Use:   "realia-agent",
		Short: "Realia verifier agent",
	}
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "Override REALIA_LOG_LEVEL")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Answer pending verification requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return fmt.Errorf("reading configuration: %w", err)
		}

		lvl := cfg.Service.LogLevel
		if logLevel != "" {
			lvl = logLevel
		}
		_, undo := log.Setup(lvl)
		defer undo()

		if strings.EqualFold(cfg.Ledger.Type, "memory") {
			return fmt.Errorf("the verifier agent needs an evm ledger, REALIA_LEDGER_TYPE is %q", cfg.Ledger.Type)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		backend, err := apiserver.NewLedgerBackend(ctx, cfg)
		if err != nil {
			return err
		}
		defer backend.Close()

		chain, err := apiserver.NewEVMLedger(backend, cfg)
		if err != nil {
			return fmt.Errorf("creating ledger: %w", err)
		}

		index, err := apiserver.NewVectorIndex(ctx, cfg)
		if err != nil {
			return fmt.Errorf("creating vector index: %w", err)
		}
		defer func() {
			_ = index.Close()
		}()

		verifier := agent.NewVerifier(
			chain,
			client.NewGatewayClient(cfg.Ipfs.GatewayURL, cfg.Service.MaxUploadSize, cfg.Ipfs.Timeout),
			client.NewEmbeddingClient(cfg.Embedding.URL, cfg.Embedding.Timeout),
			index,
			agent.WithThresholds(agent.Thresholds{Verified: cfg.Agent.VerifiedThreshold, Modified: cfg.Agent.ModifiedThreshold}),
			agent.WithSearchParams(apiserver.SearchParams(cfg)),
			agent.WithInterval(cfg.Agent.UpdateInterval, cfg.Agent.Jitter),
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return verifier.Run(gctx)
		})
		g.Go(func() error {
			listener, err := net.Listen("tcp", cfg.Agent.MetricsAddress)
			if err != nil {
				return fmt.Errorf("creating metrics listener: %w", err)
			}
			return apiserver.NewMetricServer(cfg.Agent.MetricsAddress, listener).Run(gctx)
		})

		return g.Wait()
	},
}
