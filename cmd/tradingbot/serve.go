package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	grpclib "google.golang.org/grpc"

	"github.com/simaogato/tradingbot-backend/internal/adapter/grpc"
	"github.com/simaogato/tradingbot-backend/internal/adapter/rest"
	"github.com/simaogato/tradingbot-backend/internal/usecase/trading"
)

const (
	shutdownTimeout   = 10 * time.Second
	retentionInterval = time.Hour
)

func serveCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the engine over gRPC and HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			if cfg.Prices.SeedDir != "" {
				if _, err := a.seedPrices(ctx, cfg.Prices.SeedDir); err != nil {
					return err
				}
			}

			if err := a.trimHistory(ctx, time.Now()); err != nil {
				return err
			}

			svc, err := a.tradingService(ctx)
			if err != nil {
				return err
			}

			lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", cfg.Server.GRPCAddr, err)
			}

			grpcServer := grpclib.NewServer(
				grpclib.UnaryInterceptor(grpc.AuthInterceptor(cfg.Server.APIToken)),
			)
			grpc.RegisterTradingBotServer(grpcServer, grpc.NewServer(svc))

			httpServer := &http.Server{
				Addr:              cfg.Server.HTTPAddr,
				Handler:           rest.NewRouter(svc, cfg.Server.APIToken, log),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 2)
			go func() {
				log.Info("gRPC server listening", slog.String("addr", cfg.Server.GRPCAddr))
				if err := grpcServer.Serve(lis); err != nil {
					errCh <- fmt.Errorf("gRPC server: %w", err)
				}
			}()
			go func() {
				log.Info("HTTP server listening", slog.String("addr", cfg.Server.HTTPAddr))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- fmt.Errorf("HTTP server: %w", err)
				}
			}()
			if interval > 0 {
				go runPeriodically(ctx, svc, interval, log)
			}
			if cfg.Prices.Retention > 0 {
				go a.runRetention(ctx, retentionInterval)
			}

			err = waitForShutdown(errCh, log)
			cancel()

			shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stop()
			if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
				log.Error("HTTP server shutdown failed", slog.Any("error", shutdownErr))
			}
			grpcServer.GracefulStop()
			log.Info("servers stopped")
			return err
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Run a trading pass on this interval (0 disables)")
	return cmd
}

// waitForShutdown blocks until SIGTERM, SIGINT or a server failure
func waitForShutdown(errCh <-chan error, log *slog.Logger) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		log.Info("shutting down gracefully", slog.String("signal", sig.String()))
		return nil
	case err := <-errCh:
		return err
	}
}

// runPeriodically runs a trading pass every interval until ctx is done.
// A failed pass is logged and the next tick tries again.
func runPeriodically(ctx context.Context, svc *trading.Service, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := svc.RunTradingPass(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Error("scheduled trading pass failed", slog.Any("error", err))
				continue
			}
			log.Info("scheduled trading pass finished", slog.Int("trades", len(result.Executed())))
		}
	}
}

// runRetention trims price history every interval until ctx is done
func (a *app) runRetention(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := a.trimHistory(ctx, now); err != nil && ctx.Err() == nil {
				a.logger.Error("price history trim failed", slog.Any("error", err))
			}
		}
	}
}
