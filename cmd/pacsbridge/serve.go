package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"mercator-hq/jupiter/pkg/cache"
	"mercator-hq/jupiter/pkg/cli"
	"mercator-hq/jupiter/pkg/config"
	"mercator-hq/jupiter/pkg/handlers"
	"mercator-hq/jupiter/pkg/hl7/validator"
	"mercator-hq/jupiter/pkg/mapping"
	"mercator-hq/jupiter/pkg/mllp"
	"mercator-hq/jupiter/pkg/mpps"
	"mercator-hq/jupiter/pkg/mwl"
	"mercator-hq/jupiter/pkg/queue"
	"mercator-hq/jupiter/pkg/routing"
	"mercator-hq/jupiter/pkg/routing/strategies"
	"mercator-hq/jupiter/pkg/sender"
	"mercator-hq/jupiter/pkg/telemetry/health"
	"mercator-hq/jupiter/pkg/telemetry/metrics"
	"mercator-hq/jupiter/pkg/telemetry/tracing"
	"mercator-hq/jupiter/pkg/workflow"
)

var serveFlags struct {
	listenAddress string
	dryRun        bool
}

// sessionCount tracks active MLLP sessions so ActiveSessions' delta
// callback can report an absolute count to metrics.Sink.
var sessionCount atomic.Int32

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MLLP listener, worklist store, and outbound sender",
	Long: `Start the pacsbridge integration server: an MLLP listener that maps
inbound ADT/ORM/SIU into the worklist store, and a durable queue worker
pool that delivers ORM messages produced from MPPS updates.

Examples:
  pacsbridge serve
  pacsbridge serve --config /etc/pacsbridge/config.yaml
  pacsbridge serve --dry-run`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override the MLLP listen address")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadBridgeConfig(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	if serveFlags.listenAddress != "" {
		cfg.MLLP.ListenAddress = serveFlags.listenAddress
	}

	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if serveFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	printBanner(cfg)

	tracer, err := tracing.New(&cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}
	defer tracer.Shutdown(context.Background())

	metricsSink := metrics.NewPrometheusSink(nil)

	mwlSQLiteConfig := mwl.DefaultSQLiteConfig()
	mwlSQLiteConfig.Path = cfg.MWL.DriverPath
	mwlStore, err := mwl.NewSQLiteStore(mwlSQLiteConfig)
	if err != nil {
		return fmt.Errorf("open mwl store: %w", err)
	}
	defer mwlStore.Close()
	fmt.Println("✓ MWL store opened:", cfg.MWL.DriverPath)

	queueSQLiteConfig := queue.DefaultSQLiteConfig()
	queueSQLiteConfig.Path = cfg.Queue.DriverPath
	queueStore, err := queue.NewSQLiteStore(queueSQLiteConfig)
	if err != nil {
		return fmt.Errorf("open queue store: %w", err)
	}
	defer queueStore.Close()
	fmt.Println("✓ Queue store opened:", cfg.Queue.DriverPath)

	patientCache := cache.NewPatientCache(cfg.Cache.TTL, cfg.Cache.MaxEntries)
	defer patientCache.Close()

	table, err := config.LoadDestinationTable(cfg.Routing.DestinationsPath)
	if err != nil {
		return fmt.Errorf("load destinations: %w", err)
	}
	allDests := flattenDestinations(table)
	defaultGroup := table.Groups["default"]

	router, err := routing.NewRouter(table.Rules, defaultGroup, strategies.NewPriorityFailoverStrategy(), allDests)
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}
	fmt.Printf("✓ Router loaded (%d rules, %d destinations)\n", len(table.Rules), len(allDests))

	destByName := make(map[string]*routing.Destination, len(allDests))
	for _, d := range allDests {
		destByName[d.Name] = d
	}

	reliableSender := sender.New(router, queueStore, destByName, sender.DefaultConfig(), metricsSink, tracer)

	workerPool := queue.NewWorkerPool(queueStore, reliableSender, queue.WorkerPoolConfig{
		Workers:      cfg.Queue.Workers,
		PollInterval: cfg.Queue.PollInterval,
		ReapInterval: cfg.Queue.ReapInterval,
		ReapAfter:    cfg.Queue.ReapAfter,
		Backoff: queue.BackoffConfig{
			Base:        cfg.Queue.BackoffBase,
			Multiplier:  cfg.Queue.BackoffMultiplier,
			Cap:         cfg.Queue.BackoffCap,
			JitterMax:   cfg.Queue.BackoffJitterMax,
			MaxAttempts: cfg.Queue.BackoffMaxAttempts,
		},
	})

	mppsHandler := mpps.NewHandler(mpps.NewMemStore())
	outboundHeader := mapping.OutboundHeader{
		SendingApp:        cfg.Outbound.SendingApp,
		SendingFacility:   cfg.Outbound.SendingFacility,
		ReceivingApp:      cfg.Outbound.ReceivingApp,
		ReceivingFacility: cfg.Outbound.ReceivingFacility,
		Version:           cfg.Outbound.Version,
	}
	workflow.NewMPPSWorkflow(outboundHeader, reliableSender).Subscribe(mppsHandler)

	registry := handlers.NewRegistry(&handlers.Deps{
		MWL:       mwlStore,
		Cache:     patientCache,
		Validator: validator.New(),
		Metrics:   metricsSink,
		Tracer:    tracer,
	})

	transport := mllp.Transport(mllp.PlainTransport{})
	if cfg.MLLP.TLSEnabled {
		transport = mllp.TLSTransport{Config: &tls.Config{MinVersion: tls.VersionTLS12}}
	}

	mllpServer, err := mllp.NewServer(mllp.ServerConfig{
		Address:         cfg.MLLP.ListenAddress,
		Transport:       transport,
		Handler:         registry,
		IdleTimeout:     cfg.MLLP.IdleTimeout,
		MaxPayloadSize:  cfg.MLLP.MaxPayloadSize,
		ShutdownGrace:   cfg.MLLP.ShutdownGrace,
		ActiveSessions:  func(delta int) { adjustActiveSessions(metricsSink, delta) },
		FramingErrorLog: func(sess *mllp.Session, err error) { slog.Warn("mllp framing error", "session", sess.ID, "error", err) },
	})
	if err != nil {
		return fmt.Errorf("build mllp server: %w", err)
	}

	pruner := mwl.NewPruner(mwlStore, mwl.PrunerConfig{
		RetentionAfterScheduledStart: cfg.MWL.RetentionAfterScheduledStart,
		Schedule:                     cfg.MWL.PrunerSchedule,
	})

	prober := routing.NewProber(allDests, cfg.Routing.ProbeInterval, 5*time.Second, dialDestination)

	checker := health.New(3 * time.Second)
	checker.RegisterCheck("queue", func(ctx context.Context) error {
		_, err := queueStore.Depth(ctx)
		return err
	})
	checker.RegisterCheck("mwl", func(ctx context.Context) error {
		_, err := mwlStore.Query(ctx, mwl.Filter{})
		return err
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workerPool.Start(ctx)
	defer workerPool.Stop()

	prober.Start(ctx)
	defer prober.Stop()

	if err := pruner.Start(ctx); err != nil {
		slog.Warn("failed to start mwl pruner scheduler", "error", err)
	}
	defer pruner.Stop()

	var watcher *config.DestinationWatcher
	if cfg.Routing.WatchForChanges {
		watcher, err = config.NewDestinationWatcher(cfg.Routing.DestinationsPath, time.Second)
		if err != nil {
			return fmt.Errorf("start destination watcher: %w", err)
		}
		go func() {
			if err := watcher.Watch(ctx, func(t *config.DestinationTable) {
				if err := router.UpdateTable(t.Rules, t.Groups["default"]); err != nil {
					slog.Error("failed to apply reloaded destination table", "error", err)
				} else {
					slog.Info("destination table reloaded", "rules", len(t.Rules))
				}
			}); err != nil {
				slog.Error("destination watcher stopped", "error", err)
			}
		}()
		defer watcher.Stop()
	}

	adminServer := newAdminServer(cfg.Admin.ListenAddress, metricsSink, checker)
	adminErrChan := make(chan error, 1)
	go func() {
		slog.Info("starting admin HTTP server", "address", cfg.Admin.ListenAddress)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			adminErrChan <- fmt.Errorf("admin server error: %w", err)
		}
	}()

	mllpErrChan := make(chan error, 1)
	go func() {
		slog.Info("starting mllp server", "address", cfg.MLLP.ListenAddress, "tls_enabled", cfg.MLLP.TLSEnabled)
		if err := mllpServer.Serve(ctx); err != nil {
			mllpErrChan <- fmt.Errorf("mllp server error: %w", err)
		}
	}()

	fmt.Println()
	fmt.Printf("✓ MLLP listening on %s\n", cfg.MLLP.ListenAddress)
	fmt.Printf("✓ Admin endpoints on http://%s/healthz, /readyz, /metrics\n", cfg.Admin.ListenAddress)
	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := cli.WaitForShutdown()

	select {
	case err := <-mllpErrChan:
		return cli.NewCommandError("serve", err)
	case err := <-adminErrChan:
		return cli.NewCommandError("serve", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.MLLP.ShutdownGrace)
		defer shutdownCancel()

		if err := mllpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("mllp shutdown failed", "error", err)
		}
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("admin shutdown failed", "error", err)
		}

		fmt.Println("✓ Server stopped")
		return nil
	}
}

func printBanner(cfg *config.BridgeConfig) {
	fmt.Printf("pacsbridge v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")
	slog.Debug("tracing", "enabled", cfg.Tracing.Enabled, "exporter", cfg.Tracing.Exporter)
}

func flattenDestinations(table *config.DestinationTable) []*routing.Destination {
	seen := make(map[string]*routing.Destination)
	for _, group := range table.Groups {
		for _, d := range group.Destinations {
			seen[d.Name] = d
		}
	}
	out := make([]*routing.Destination, 0, len(seen))
	for _, d := range seen {
		out = append(out, d)
	}
	return out
}

func dialDestination(ctx context.Context, dest *routing.Destination) error {
	address := routing.Address(dest)
	var d net.Dialer
	var conn net.Conn
	var err error
	if dest.Transport == routing.TransportTLS {
		tlsDialer := tls.Dialer{NetDialer: &d, Config: &tls.Config{MinVersion: tls.VersionTLS12}}
		conn, err = tlsDialer.DialContext(ctx, "tcp", address)
	} else {
		conn, err = d.DialContext(ctx, "tcp", address)
	}
	if err != nil {
		return err
	}
	return conn.Close()
}

func adjustActiveSessions(sink metrics.Sink, delta int) {
	// The Sink interface only exposes an absolute setter; the server
	// reports deltas, so this callback keeps the running count in
	// sessionCount and reports the total.
	n := sessionCount.Add(int32(delta))
	sink.SetActiveConnections(int(n))
}

func newAdminServer(address string, sink *metrics.PrometheusSink, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(sink.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeHealthStatus(w, checker.CheckLiveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		writeHealthStatus(w, checker.CheckReadiness(r.Context()))
	})
	return &http.Server{Addr: address, Handler: mux}
}

func writeHealthStatus(w http.ResponseWriter, status health.HealthStatus) {
	w.Header().Set("Content-Type", "application/json")
	if status.Status != "ok" && status.Status != "ready" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}
