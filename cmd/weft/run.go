package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/aretw0/weft"
	httpAdapter "github.com/aretw0/weft/internal/adapters/http"
	"github.com/aretw0/weft/internal/config"
	"github.com/aretw0/weft/internal/demo"
	"github.com/aretw0/weft/pkg/adapters/memory"
	"github.com/aretw0/weft/pkg/adapters/redis"
	"github.com/aretw0/weft/pkg/observability"
	"github.com/aretw0/weft/pkg/ports"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the greeting flow",
	Long: `Runs the built-in greeting flow once and prints its history as JSON lines.
With --serve it instead exposes POST /runs, GET /graph and GET /metrics over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")
		city, _ := cmd.Flags().GetString("city")
		serve, _ := cmd.Flags().GetBool("serve")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cache, closeCache, err := openCache(cfg.Cache)
		if err != nil {
			return err
		}
		defer closeCache()

		reg := prometheus.NewRegistry()
		metrics := observability.NewMetrics(reg)
		eng, err := newEngine(cfg, logger, cache, metrics)
		if err != nil {
			return err
		}

		if serve {
			return serveHTTP(ctx, cfg.Metrics.Addr, &httpAdapter.Server{Engine: eng, Flow: eng.Flow(), Gatherer: reg, Logger: logger}, logger)
		}

		_, err = weft.NewRunner(cmd.OutOrStdout()).Run(ctx, eng, nil, weft.Input{"name": name, "city": city})

		// Let the logging hooks report the run before exiting.
		drainCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if drainErr := eng.Drain(drainCtx); drainErr != nil {
			logger.Warn("lifecycle events not delivered", "error", drainErr)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("name", "visitor", "Name of the visitor to greet")
	runCmd.Flags().String("city", "Lisbon", "City the visitor is in")
	runCmd.Flags().Bool("serve", false, "Serve runs, the graph and metrics over HTTP instead of running once")
}

func newEngine(cfg config.Config, logger *slog.Logger, cache ports.DependencyCache, metrics *observability.Metrics) (*weft.Engine, error) {
	flow, err := demo.Flow()
	if err != nil {
		return nil, fmt.Errorf("build flow: %w", err)
	}
	return weft.New(flow,
		weft.WithFiller(demo.Filler()),
		weft.WithCache(cache),
		weft.WithLogger(logger),
		weft.WithLifecycleHooks(observability.Combine(metrics.Hooks(), observability.Logging(logger))),
		weft.WithMaxConcurrency(cfg.Engine.MaxConcurrency),
		weft.WithMaxFrames(cfg.Engine.MaxFrames),
		weft.WithEventBuffer(cfg.Engine.EventBuffer),
	)
}

func openCache(cfg config.CacheConfig) (ports.DependencyCache, func(), error) {
	if cfg.Backend != config.CacheRedis {
		return memory.NewCache(), func() {}, nil
	}
	c := redis.New(cfg.Redis.Addr,
		redis.WithPrefix(cfg.Redis.Prefix),
		redis.WithTTL(cfg.Redis.TTL),
	)
	return c, func() { _ = c.Close() }, nil
}

func serveHTTP(ctx context.Context, addr string, s *httpAdapter.Server, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: httpAdapter.NewHandler(s),
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting weft server", "addr", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down weft server")
	}

	// Give outstanding requests a deadline for completion.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown did not complete", "error", err)
		return srv.Close()
	}
	return nil
}
