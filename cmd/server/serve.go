package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/prasenjit/go-pact/internal/api"
	"github.com/prasenjit/go-pact/internal/config"
	"github.com/prasenjit/go-pact/internal/mockserver"
	"github.com/prasenjit/go-pact/internal/models"
	"github.com/prasenjit/go-pact/internal/parser"
	"github.com/prasenjit/go-pact/internal/session"
	"github.com/prasenjit/go-pact/internal/stats"
	"github.com/prasenjit/go-pact/internal/storage"
	"github.com/prasenjit/go-pact/internal/tlsutil"
	"github.com/prasenjit/go-pact/internal/tracing"
	"github.com/prasenjit/go-pact/internal/verification"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve <pact-file>",
	Short: "Run a mock provider for a pact file",
	Long: `Starts a mock server that answers the interactions of the given pact file.

The server runs until it receives SIGINT or SIGTERM. It then waits for
requests in flight, prints the verification result and exits non-zero when
any interaction was missed, partially matched or an unexpected request was
received. The admin API (session results, traces, statistics and
Prometheus metrics) is served on a separate port.`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "mock server port (0 picks a free port when set explicitly)")
	serveCmd.Flags().String("host", "", "mock server host")
	serveCmd.Flags().Bool("tls", false, "serve HTTPS (plain HTTP is still accepted)")
	serveCmd.Flags().Int("admin-port", 0, "admin API port")
	serveCmd.Flags().Bool("write", false, "write the pact to pact.dir when verification passes")

	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.tls.enabled", serveCmd.Flags().Lookup("tls"))
	viper.BindPFlag("admin.port", serveCmd.Flags().Lookup("admin-port"))
	viper.BindPFlag("pact.writeOnSuccess", serveCmd.Flags().Lookup("write"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	result, err := parser.NewParser().ParseFile(args[0])
	if err != nil {
		return err
	}
	for _, w := range result.Warnings {
		logger.Warn("pact warning", "file", args[0], "warning", w)
	}
	for _, d := range result.Diagnostics {
		logger.Warn("rule not supported by pact version", "version", result.Version.String(), "diagnostic", d)
	}
	pact := result.Pact

	store, err := newStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.SavePact(pact); err != nil {
		logger.Warn("pact not stored", "error", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	statsCollector := stats.NewCollector(reg)
	tracingService := tracing.NewService(cfg.Tracing.MaxTraces)

	tlsConfig, err := serverTLS(cfg, logger)
	if err != nil {
		return err
	}

	srv, err := mockserver.Start(mockserver.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		TLS:          tlsConfig,
		ReadTimeout:  cfg.Server.ReadTimeout,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}, pact.Interactions, logger,
		session.WithObserver(statsCollector),
		session.WithObserver(tracingService),
	)
	if err != nil {
		return fmt.Errorf("failed to start mock server: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Mock server for %s -> %s listening on %s (%d interactions)\n",
		pact.Consumer, pact.Provider, srv.URL(), len(pact.Interactions))

	var adminServer *http.Server
	if cfg.Admin.Enabled {
		deps := api.Dependencies{
			Server:      srv,
			Store:       store,
			Stats:       statsCollector,
			Tracing:     tracingService,
			SpecVersion: cfg.SpecVersion(),
			Logger:      logger,
		}
		if cfg.Metrics.Enabled {
			deps.Metrics = reg
		}
		adminServer = startAdmin(cfg, api.NewRouter(deps), logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	results, err := srv.Stop(shutdownCtx)
	if adminServer != nil {
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("admin shutdown", "error", err)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to stop mock server: %w", err)
	}

	verdict := verification.FromResults(results)
	fmt.Fprintln(cmd.OutOrStdout(), verdict.Description())
	if !verdict.Passed {
		return errors.New("pact verification failed")
	}

	if cfg.Pact.WriteOnSuccess {
		path, err := writePact(cfg, pact, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pact written to %s\n", path)
	}
	return nil
}

func newStore(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.Storage.Type == "file" {
		store, err := storage.NewFileStorage(cfg.Storage.Path, cfg.SpecVersion(), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file storage: %w", err)
		}
		return store, nil
	}
	return storage.NewMemoryStorage(), nil
}

func serverTLS(cfg *config.Config, logger *slog.Logger) (*tls.Config, error) {
	if !cfg.Server.TLS.Enabled {
		return nil, nil
	}
	certManager := tlsutil.NewCertificateManager(tlsutil.OptionsFromConfig(cfg.Server, cfg.Storage.Path), logger)
	tlsConfig, err := certManager.ServerConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get TLS certificate: %w", err)
	}
	certPath, _ := certManager.Paths()
	logger.Info("TLS enabled", "cert", certPath)
	return tlsConfig, nil
}

func startAdmin(cfg *config.Config, router *api.Router, logger *slog.Logger) *http.Server {
	addr := net.JoinHostPort(cfg.Admin.Host, strconv.Itoa(cfg.Admin.Port))
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("admin API listening", "url", "http://"+addr+"/_api/")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin API failed", "error", err)
		}
	}()
	return server
}

// writePact merges the pact into pact.dir
func writePact(cfg *config.Config, pact *models.Pact, logger *slog.Logger) (string, error) {
	dir, err := filepath.Abs(cfg.Pact.Dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve pact dir: %w", err)
	}
	out, err := storage.NewFileStorage(dir, cfg.SpecVersion(), logger)
	if err != nil {
		return "", fmt.Errorf("failed to open pact dir: %w", err)
	}
	defer out.Close()
	if err := out.SavePact(pact); err != nil {
		return "", fmt.Errorf("failed to write pact: %w", err)
	}
	return out.PactPath(pact.ID()), nil
}
