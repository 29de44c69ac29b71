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

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"discmapper/internal/config"
	"discmapper/internal/disc"
	"discmapper/internal/logging"
	"discmapper/internal/manifest"
	"discmapper/internal/media/ffprobe"
	"discmapper/internal/queue"
	"discmapper/internal/ripjob"
	"discmapper/internal/services/makemkv"
	"discmapper/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process queued discs on the configured drive",
		Long: "Claims pending queue items in order and drives each one through the\n" +
			"wait/rip/verify/rename/commit/eject pipeline. With --dry-run no disc is\n" +
			"read and no file moves: the planned destinations are logged instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := buildLogger(cfg)
			if err != nil {
				return err
			}

			lock := flock.New(filepath.Join(cfg.Paths.LogDir, "discmapper.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire run lock: %w", err)
			}
			if !locked {
				return errors.New("another discmapper run is already active")
			}
			defer lock.Unlock() //nolint:errcheck

			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			index, err := loadManifestIfPresent(cfg, logger)
			if err != nil {
				return err
			}

			factory := machineFactory(cfg, index, logger, dryRun)
			runner, err := workflow.NewRunner(cfg, store, factory, logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if once {
				processed, err := runner.Drain(runCtx)
				if err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Processed %d item(s)\n", processed)
				return nil
			}
			return runner.Run(runCtx)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan every job without touching the drive or moving files")
	cmd.Flags().BoolVar(&once, "once", false, "Drain the queue and exit instead of polling for new items")
	return cmd
}

// machineFactory builds one rip machine per claimed item. In dry-run mode
// the hardware collaborators stay nil; the machine skips them.
func machineFactory(cfg *config.Config, index *manifest.Index, logger *slog.Logger, dryRun bool) workflow.ProcessorFactory {
	return func(progress func(ripjob.Phase, string)) (workflow.Processor, error) {
		deps := ripjob.Deps{
			Config:   cfg,
			Manifest: index,
			Logger:   logger,
			DryRun:   dryRun,
			Progress: progress,
		}
		if !dryRun {
			ripper, err := makemkv.New(cfg.MakemkvBinary(), cfg.MakeMKV.RipTimeout)
			if err != nil {
				return nil, err
			}
			deps.Monitor = disc.DeviceMonitor{Device: cfg.MakeMKV.OpticalDrive}
			deps.Ripper = ripper
			deps.Prober = ffprobe.New(cfg.FFprobeBinary())
			deps.Ejector = disc.NewEjector(cfg.EjectBinary())
		}
		return ripjob.NewMachine(deps)
	}
}

// loadManifestIfPresent loads the TV manifest when one is configured and on
// disk. Movie-only queues work without it; a TV job without a manifest fails
// at claim time with a clear validation error.
func loadManifestIfPresent(cfg *config.Config, logger *slog.Logger) (*manifest.Index, error) {
	path := cfg.Paths.ManifestPath
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("manifest not found; tv jobs will fail",
				logging.String("path", path))
			return nil, nil
		}
		return nil, fmt.Errorf("stat manifest: %w", err)
	}
	index, err := manifest.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	logger.Info("manifest loaded",
		logging.String("path", path),
		logging.Int("discs", len(index.Discs())),
		logging.Int("ignored_rows", index.IgnoredRows))
	return index, nil
}

func buildLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		OutputPaths: []string{
			"stderr",
			filepath.Join(cfg.Paths.LogDir, "discmapper.log"),
		},
	})
}
