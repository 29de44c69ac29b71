package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"discmapper/internal/manifest"
)

func newManifestCommand(ctx *commandContext) *cobra.Command {
	manifestCmd := &cobra.Command{
		Use:   "manifest",
		Short: "Manage the TV episode manifest",
	}

	manifestCmd.AddCommand(newManifestImportCommand(ctx))
	manifestCmd.AddCommand(newManifestShowCommand(ctx))

	return manifestCmd
}

func newManifestImportCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <csv>",
		Short: "Validate a manifest CSV and install it as the configured manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Paths.ManifestPath == "" {
				return fmt.Errorf("no manifest_path configured")
			}

			index, err := manifest.Load(args[0])
			if err != nil {
				return err
			}

			if err := copyFile(args[0], cfg.Paths.ManifestPath); err != nil {
				return fmt.Errorf("install manifest: %w", err)
			}

			episodes := 0
			for _, d := range index.Discs() {
				episodes += len(d.Episodes)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s: %d disc(s), %d episode(s)",
				cfg.Paths.ManifestPath, len(index.Discs()), episodes)
			if index.IgnoredRows > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), ", %d row(s) ignored", index.IgnoredRows)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	return cmd
}

func newManifestShowCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Summarize the installed manifest by disc",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			index, err := manifest.Load(cfg.Paths.ManifestPath)
			if err != nil {
				return err
			}
			discs := index.Discs()
			if len(discs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Manifest is empty")
				return nil
			}
			rows := make([][]string, 0, len(discs))
			for _, d := range discs {
				rows = append(rows, []string{
					d.Series,
					fmt.Sprintf("S%02dD%02d", d.Season, d.Disc),
					strconv.Itoa(len(d.Episodes)),
					strconv.Itoa(d.ShowYear),
					d.IMDBID,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Series", "Disc", "Episodes", "Year", "IMDB"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	return cmd
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.CreateTemp(filepath.Dir(dst), ".manifest-*")
	if err != nil {
		return err
	}
	tmp := out.Name()
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
