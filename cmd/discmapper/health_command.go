package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/spf13/cobra"

	"discmapper/internal/config"
	"discmapper/internal/disc"
	"discmapper/internal/manifest"
	"discmapper/internal/queue"
)

type healthCheck struct {
	name   string
	detail string
	err    error
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check directories, tools, database, and drive readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			checks := runHealthChecks(cfg)

			rows := make([][]string, 0, len(checks))
			failed := 0
			for _, check := range checks {
				state := "ok"
				detail := check.detail
				if check.err != nil {
					state = "fail"
					detail = check.err.Error()
					failed++
				}
				rows = append(rows, []string{check.name, state, detail})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Check", "State", "Detail"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft}))

			if failed > 0 {
				return fmt.Errorf("%d health check(s) failed", failed)
			}
			return nil
		},
	}
}

func runHealthChecks(cfg *config.Config) []healthCheck {
	checks := []healthCheck{
		checkDirectories(cfg),
		checkBinary("makemkv", cfg.MakemkvBinary()),
		checkBinary("ffprobe", cfg.FFprobeBinary()),
		checkBinary("eject", cfg.EjectBinary()),
		checkDatabase(cfg),
		checkManifest(cfg),
	}
	if cfg.MakeMKV.OpticalDrive != "" {
		checks = append(checks, checkDrive(cfg.MakeMKV.OpticalDrive))
	}
	return checks
}

func checkDirectories(cfg *config.Config) healthCheck {
	if err := cfg.EnsureDirectories(); err != nil {
		return healthCheck{name: "staging directories", err: err}
	}
	return healthCheck{name: "staging directories", detail: cfg.Paths.StagingDir}
}

func checkBinary(name, binary string) healthCheck {
	path, err := exec.LookPath(binary)
	if err != nil {
		return healthCheck{name: name, err: fmt.Errorf("%s not found on PATH", binary)}
	}
	return healthCheck{name: name, detail: path}
}

func checkDatabase(cfg *config.Config) healthCheck {
	store, err := queue.Open(cfg)
	if err != nil {
		return healthCheck{name: "queue database", err: err}
	}
	defer store.Close()
	return healthCheck{name: "queue database", detail: store.Path()}
}

func checkManifest(cfg *config.Config) healthCheck {
	path := cfg.Paths.ManifestPath
	if path == "" {
		return healthCheck{name: "manifest", detail: "not configured (movie-only)"}
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return healthCheck{name: "manifest", detail: "not installed (movie-only)"}
		}
		return healthCheck{name: "manifest", err: err}
	}
	index, err := manifest.Load(path)
	if err != nil {
		return healthCheck{name: "manifest", err: err}
	}
	return healthCheck{name: "manifest", detail: strconv.Itoa(len(index.Discs())) + " disc(s)"}
}

func checkDrive(device string) healthCheck {
	status, err := disc.CheckDriveStatus(device)
	if err != nil {
		return healthCheck{name: "optical drive", err: err}
	}
	return healthCheck{name: "optical drive", detail: device + ": " + status.String()}
}
