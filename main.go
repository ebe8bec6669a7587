package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/llehouerou/wavesd/internal/app"
	"github.com/llehouerou/wavesd/internal/config"
	"github.com/llehouerou/wavesd/internal/logging"
	"github.com/llehouerou/wavesd/internal/stderr"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configFile string
	logLevel   string
	foreground bool
)

var rootCmd = &cobra.Command{
	Use:           "wavesd",
	Short:         "wavesd is the playback and library daemon behind the waves music player.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON-RPC and WebSocket API (default)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Rescan every library directory and exit",
	Args:  cobra.NoArgs,
	RunE:  runScan,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: XDG config dir, then ./config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides the config file")
	rootCmd.PersistentFlags().BoolVarP(&foreground, "foreground", "f", false, "also log to stderr")
	rootCmd.AddCommand(serveCmd, scanCmd, versionCmd)
}

func setup() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		if _, statErr := os.Stat(configFile); statErr != nil {
			return nil, fmt.Errorf("config file: %w", statErr)
		}
		cfg, err = config.LoadFiles(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	captureErr := stderr.Start()
	if err := logging.Init(logging.Options{
		File:    cfg.LogPath(),
		Level:   cfg.Log.Level,
		Console: foreground,
	}); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	if captureErr != nil {
		log.Warn().Err(captureErr).Msg("native library output is not captured")
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{Version: version})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("version", version).Str("data", cfg.DataPath()).Msg("starting")
	return a.Run(ctx)
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{Version: version})
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.ScanAll(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s tracks indexed, %s errors\n",
		humanize.Comma(int64(summary.Success)), humanize.Comma(int64(summary.Error)))
	for _, e := range summary.ErrorDetails {
		fmt.Fprintf(out, "  %s: %s\n", e.FileName, e.ErrorType)
	}
	return nil
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	stderr.Stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
