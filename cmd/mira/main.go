package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/rmansfield/mira/internal/config"
	"github.com/rmansfield/mira/internal/engine"
	"github.com/rmansfield/mira/internal/logging"
)

var version = "dev"

func main() {
	os.Exit(run())
}

//nolint:gocyclo // main CLI entry point orchestrates all flag parsing and validation
func run() int {
	var (
		source      string
		replica     string
		strict      bool
		workers     int
		every       time.Duration
		logFile     string
		verbose     bool
		quiet       bool
		showVersion bool
	)

	rootCmd := &cobra.Command{
		Use:           "mira [flags]",
		Short:         "One-way directory synchronization with digest verification",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showVersion {
				fmt.Fprintf(os.Stdout, "mira %s\n", version)
				return nil
			}

			// Load optional config file and apply defaults for flags not
			// set on the CLI.
			cfg, err := config.Load()
			if err != nil {
				slog.Warn("failed to load config", "error", err)
			}
			everyStr := ""
			applyConfigDefaults(cmd, cfg.Defaults, &workers, &strict, &everyStr, &logFile)
			if everyStr != "" {
				every, err = time.ParseDuration(everyStr)
				if err != nil {
					return fmt.Errorf("invalid every in config: %w", err)
				}
			}

			srcRoot, repRoot, err := validatePaths(source, replica)
			if err != nil {
				return err
			}

			// Configure logging: text to stderr, optional rotating JSON
			// file. The same logger is shared by all copy workers.
			logLevel := slog.LevelInfo
			if verbose {
				logLevel = slog.LevelDebug
			} else if quiet {
				logLevel = slog.LevelWarn
			}
			textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: logLevel,
			})
			var logHandler slog.Handler = textHandler
			if logFile != "" {
				sink := &lumberjack.Logger{
					Filename:   logFile,
					MaxSize:    50, // MB
					MaxBackups: 5,
					Compress:   true,
				}
				jsonHandler := slog.NewJSONHandler(sink, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})
				logHandler = logging.NewMultiHandler(textHandler, jsonHandler)
			}
			logger := slog.New(logHandler)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			anyFailed := false
			for {
				// Each pass is independent; tag its log records with a
				// short run id so interleaved file output stays traceable.
				passLogger := logger.With("pass", uuid.New().String()[:8])

				report, err := engine.Run(ctx, engine.Config{
					Source:  srcRoot,
					Replica: repRoot,
					Strict:  strict,
					Workers: workers,
					Logger:  passLogger,
				})
				if err != nil {
					passLogger.Error("synchronization failed", "error", err)
					return &exitError{code: 2}
				}
				if report.Failed() > 0 {
					anyFailed = true
				}

				if every <= 0 {
					break
				}
				logger.Info("next pass scheduled", "in", every)
				select {
				case <-ctx.Done():
					logger.Info("stopping", "reason", ctx.Err())
					if anyFailed {
						return &exitError{code: 1}
					}
					return nil
				case <-time.After(every):
				}
			}

			if anyFailed {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")
	rootCmd.Flags().StringVarP(&source, "source", "s", "", "source directory (ground truth)")
	rootCmd.Flags().StringVarP(&replica, "replica", "r", "", "replica directory (kept in sync, the only tree mutated)")
	rootCmd.Flags().BoolVar(&strict, "strict", false, "hash-check files whose size and mtime look unchanged")
	rootCmd.Flags().IntVarP(&workers, "workers", "n", 1, "parallel copy workers (clamped to available CPUs)")
	rootCmd.Flags().DurationVar(&every, "every", 0, "repeat the sync at this interval (0 = single pass)")
	rootCmd.Flags().StringVar(&logFile, "log", "", "write rotating JSON log to FILE")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except warnings and errors")

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

// validatePaths normalizes both roots to absolute paths and checks that
// they exist, are directories, and are distinct. The engine itself never
// validates paths.
func validatePaths(source, replica string) (string, string, error) {
	if source == "" || replica == "" {
		return "", "", errors.New("both --source and --replica are required")
	}

	srcRoot, err := filepath.Abs(source)
	if err != nil {
		return "", "", fmt.Errorf("source: %w", err)
	}
	repRoot, err := filepath.Abs(replica)
	if err != nil {
		return "", "", fmt.Errorf("replica: %w", err)
	}

	for name, root := range map[string]string{"source": srcRoot, "replica": repRoot} {
		info, err := os.Stat(root)
		if err != nil {
			return "", "", fmt.Errorf("%s: %w", name, err)
		}
		if !info.IsDir() {
			return "", "", fmt.Errorf("%s %s is not a directory", name, root)
		}
	}

	if srcRoot == repRoot {
		return "", "", errors.New("source and replica cannot be the same directory")
	}
	return srcRoot, repRoot, nil
}

// applyConfigDefaults applies config file defaults for flags not explicitly
// set on the CLI.
func applyConfigDefaults(
	cmd *cobra.Command,
	defaults config.DefaultsConfig,
	workers *int,
	strict *bool,
	every *string,
	logFile *string,
) {
	if !cmd.Flags().Changed("workers") && defaults.Workers != nil {
		*workers = *defaults.Workers
	}
	if !cmd.Flags().Changed("strict") && defaults.Strict != nil {
		*strict = *defaults.Strict
	}
	if !cmd.Flags().Changed("every") && defaults.Every != nil {
		*every = *defaults.Every
	}
	if !cmd.Flags().Changed("log") && defaults.Log != nil {
		*logFile = *defaults.Log
	}
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
