package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/prasenjit/go-pact/internal/config"
	"github.com/prasenjit/go-pact/internal/logging"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "go-pact",
		Short: "go-pact - consumer contract mock server for Pact files",
		Long: `go-pact runs a mock provider from a Pact file. Every request the consumer
sends is matched against the interactions of the pact; when the server stops
it reports matched, partially matched, missing and unexpected requests.`,
		SilenceUsage: true,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(initCmd)
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			cwd = "."
		}
		viper.AddConfigPath(cwd)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// GOPACT_SERVER_PORT overrides server.port
	viper.SetEnvPrefix("GOPACT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every key so environment overrides apply to all of them
func setDefaults() {
	d := config.Default()

	viper.SetDefault("server.port", d.Server.Port)
	viper.SetDefault("server.host", d.Server.Host)
	viper.SetDefault("server.readTimeout", d.Server.ReadTimeout)
	viper.SetDefault("server.maxBodyBytes", d.Server.MaxBodyBytes)
	viper.SetDefault("server.tls.enabled", d.Server.TLS.Enabled)
	viper.SetDefault("server.tls.certFile", d.Server.TLS.CertFile)
	viper.SetDefault("server.tls.keyFile", d.Server.TLS.KeyFile)
	viper.SetDefault("server.tls.autoGenerate", d.Server.TLS.AutoGenerate)
	viper.SetDefault("server.tls.storePath", d.Server.TLS.StorePath)

	viper.SetDefault("admin.enabled", d.Admin.Enabled)
	viper.SetDefault("admin.host", d.Admin.Host)
	viper.SetDefault("admin.port", d.Admin.Port)

	viper.SetDefault("pact.specVersion", d.Pact.SpecVersion)
	viper.SetDefault("pact.dir", d.Pact.Dir)
	viper.SetDefault("pact.writeOnSuccess", d.Pact.WriteOnSuccess)

	viper.SetDefault("storage.type", d.Storage.Type)
	viper.SetDefault("storage.path", d.Storage.Path)

	viper.SetDefault("tracing.maxTraces", d.Tracing.MaxTraces)

	viper.SetDefault("logging.level", d.Logging.Level)
	viper.SetDefault("logging.format", d.Logging.Format)

	viper.SetDefault("metrics.enabled", d.Metrics.Enabled)
}

// loadConfig resolves the effective configuration from defaults, the config
// file, the environment and flags
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: logging.ParseFormat(cfg.Logging.Format),
		Output: os.Stderr,
	})
}
