// Package main is the entry point for the hostwatch agent.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"hostwatch/internal/collector"
	"hostwatch/internal/config"
	"hostwatch/internal/logger"
	"hostwatch/internal/scheduler"
	"hostwatch/internal/sender"
	"hostwatch/internal/service"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const startupErrorLogDir = "log/hostwatch"

func main() {
	var (
		envFile     = flag.String("env", ".env", "Path to the .env configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("hostwatch %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	svcProbe := service.NewService(nil)
	if svcProbe.IsService() {
		logger.SetServiceMode(true)
	}

	cfg, lc, err := config.Load(*envFile)
	if err != nil {
		service.ReportStartupFailure(startupErrorLogDir, os.Stderr, err)
		os.Exit(1)
	}

	if err := logger.Init(*lc); err != nil {
		service.ReportStartupFailure(startupErrorLogDir, os.Stderr, fmt.Errorf("failed to initialize logger: %w", err))
		os.Exit(1)
	}

	log := logger.WithComponent("main")
	log.Info().
		Str("version", version).
		Str("env_file", *envFile).
		Str("mode", string(cfg.Mode)).
		Str("sink", cfg.SinkType).
		Msg("Starting hostwatch")

	svc := service.NewService(func(ctx context.Context) error {
		return run(ctx, cfg, *envFile)
	}, service.WithName(cfg.Service.Name), service.WithStopTimeout(cfg.Service.StopTimeout))

	if err := svc.Run(context.Background()); err != nil {
		log.Error().Err(err).Msg("hostwatch exited with error")
		fmt.Fprintf(os.Stderr, "hostwatch: %v\n", err)

		logger.Close()
		os.Exit(service.ExitCode(err))
	}

	log.Info().Msg("hostwatch stopped")
	logger.Close()
}

// run wires the provider, sink and scheduler and blocks until ctx is canceled
// or the loop fails.
func run(ctx context.Context, cfg *config.Config, envFile string) error {
	log := logger.WithComponent("main")

	hostname := config.GetHostname(cfg)
	provider := collector.NewSystemProvider(cfg.Sampling.CPUWindow)

	snd, err := sender.NewSender(cfg)
	if err != nil {
		return fmt.Errorf("failed to create sender: %w", err)
	}
	defer func() {
		log.Info().Msg("Closing sender")
		if err := snd.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing sender")
		}
	}()

	stopWatcher := watchLogging(envFile)
	defer stopWatcher()

	log.Info().
		Str("hostname", hostname).
		Str("sink", snd.Name()).
		Dur("interval", cfg.Interval).
		Msg("Agent initialized")

	sched := scheduler.New(cfg, provider, snd, scheduler.WithHostname(hostname))
	return sched.Run(ctx)
}

// watchLogging reloads the logger when the .env file changes. Only logging
// settings are reloaded. It returns a function that stops the watcher.
func watchLogging(envFile string) func() {
	log := logger.WithComponent("main")

	w, err := config.NewLoggingWatcher(envFile, func(lc *logger.Config) {
		if err := logger.Init(*lc); err != nil {
			l := logger.WithComponent("main")
			l.Error().Err(err).Msg("Failed to update logging configuration")
			return
		}
		l := logger.WithComponent("main")
		l.Info().Str("level", lc.Level).Str("format", lc.Format).Msg("Logging configuration updated")
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create logging watcher, hot reload disabled")
		return func() {}
	}
	if err := w.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start logging watcher, hot reload disabled")
		return func() {}
	}

	return func() {
		if err := w.Stop(); err != nil {
			log.Error().Err(err).Msg("Error stopping logging watcher")
		}
	}
}
