package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"discmapper/internal/manifest"
	"discmapper/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the disc queue",
	}

	queueCmd.AddCommand(newQueueAddMovieCommand(ctx))
	queueCmd.AddCommand(newQueueAddTVCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func (c *commandContext) withStore(fn func(*cobra.Command, *queue.Store) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := c.ensureConfig()
		if err != nil {
			return err
		}
		store, err := queue.Open(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		return fn(cmd, store)
	}
}

func newQueueAddMovieCommand(ctx *commandContext) *cobra.Command {
	var year int
	var imdbID string
	var pkgIndex int
	var barcode string
	var label string

	cmd := &cobra.Command{
		Use:   "add-movie <title>",
		Short: "Queue a movie disc",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = ctx.withStoreArgs(func(cmd *cobra.Command, args []string, store *queue.Store) error {
		item, err := store.NewMovie(cmd.Context(), queue.MovieSpec{
			Title:       strings.TrimSpace(args[0]),
			Year:        year,
			IMDBID:      strings.TrimSpace(imdbID),
			PkgIndex:    pkgIndex,
			Barcode:     strings.TrimSpace(barcode),
			SourceLabel: strings.TrimSpace(label),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Queued #%d %s\n", item.ID, item.Display())
		return nil
	})

	cmd.Flags().IntVar(&year, "year", 0, "Release year")
	cmd.Flags().StringVar(&imdbID, "imdb", "", "IMDB identifier (ttNNNNNNN)")
	cmd.Flags().IntVar(&pkgIndex, "index", 0, "Physical package index")
	cmd.Flags().StringVar(&barcode, "barcode", "", "Package barcode")
	cmd.Flags().StringVar(&label, "label", "", "Source disc label")
	return cmd
}

func newQueueAddTVCommand(ctx *commandContext) *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "add-tv <series> <season> <disc>",
		Short: "Queue a TV disc from the manifest",
		Args:  cobra.ExactArgs(3),
	}
	cmd.RunE = ctx.withStoreArgs(func(cmd *cobra.Command, args []string, store *queue.Store) error {
		series := strings.TrimSpace(args[0])
		season, err := strconv.Atoi(args[1])
		if err != nil || season <= 0 {
			return fmt.Errorf("season must be a positive number, got %q", args[1])
		}
		disc, err := strconv.Atoi(args[2])
		if err != nil || disc <= 0 {
			return fmt.Errorf("disc must be a positive number, got %q", args[2])
		}

		key := manifest.DiscKey(series, season, disc)
		if warn := checkManifestKey(ctx, key); warn != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), warn)
		}

		if existing, err := store.FindByDiscKey(cmd.Context(), key); err != nil {
			return err
		} else if existing != nil && existing.Status != queue.StatusDone {
			return fmt.Errorf("disc already queued as #%d (%s)", existing.ID, existing.Status)
		}

		item, err := store.NewTVDisc(cmd.Context(), key, series, season, disc, strings.TrimSpace(label))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Queued #%d %s\n", item.ID, item.Display())
		return nil
	})

	cmd.Flags().StringVar(&label, "label", "", "Source disc label")
	return cmd
}

// checkManifestKey warns when the manifest is loadable but does not know the
// disc. The item still queues: the manifest may be updated before the run.
func checkManifestKey(ctx *commandContext, key string) string {
	cfg, err := ctx.ensureConfig()
	if err != nil || cfg.Paths.ManifestPath == "" {
		return ""
	}
	index, err := manifest.Load(cfg.Paths.ManifestPath)
	if err != nil {
		return ""
	}
	if _, ok := index.Disc(key); !ok {
		return fmt.Sprintf("warning: disc %s not in manifest %s", key, cfg.Paths.ManifestPath)
	}
	return ""
}

func (c *commandContext) withStoreArgs(fn func(*cobra.Command, []string, *queue.Store) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := c.ensureConfig()
		if err != nil {
			return err
		}
		store, err := queue.Open(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		return fn(cmd, args, store)
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
	}
	cmd.RunE = ctx.withStore(func(cmd *cobra.Command, store *queue.Store) error {
		statuses, err := parseStatusFlags(statusFlags)
		if err != nil {
			return err
		}
		items, err := store.List(cmd.Context(), statuses...)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(
			[]string{"ID", "Kind", "Job", "Status", "Phase", "Error"},
			buildQueueListRows(items),
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
		))
		return nil
	})

	cmd.Flags().StringSliceVar(&statusFlags, "status", nil, "Filter by status (pending, active, done, failed, skipped)")
	return cmd
}

func buildQueueListRows(items []*queue.Item) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		detail := item.ErrorKind
		if detail != "" && item.ErrorMessage != "" {
			detail = detail + ": " + truncate(item.ErrorMessage, 60)
		}
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			string(item.Kind),
			item.Display(),
			string(item.Status),
			item.ProgressPhase,
			detail,
		})
	}
	return rows
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue counts by status",
	}
	cmd.RunE = ctx.withStore(func(cmd *cobra.Command, store *queue.Store) error {
		items, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
			return nil
		}
		counts := make(map[queue.Status]int)
		for _, item := range items {
			counts[item.Status]++
		}
		order := []queue.Status{
			queue.StatusPending, queue.StatusActive, queue.StatusDone,
			queue.StatusFailed, queue.StatusSkipped,
		}
		rows := make([][]string, 0, len(order))
		for _, status := range order {
			if counts[status] == 0 {
				continue
			}
			rows = append(rows, []string{string(status), strconv.Itoa(counts[status])})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(
			[]string{"Status", "Count"}, rows,
			[]columnAlignment{alignLeft, alignRight}))
		return nil
	})
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retry [id...]",
		Short: "Requeue failed items",
		Long:  "Moves failed items back to pending. Without arguments every failed item is requeued.",
	}
	cmd.RunE = ctx.withStoreArgs(func(cmd *cobra.Command, args []string, store *queue.Store) error {
		ids, err := parseIDArgs(args)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			failed, err := store.List(cmd.Context(), queue.StatusFailed)
			if err != nil {
				return err
			}
			for _, item := range failed {
				ids = append(ids, item.ID)
			}
		}
		for _, id := range ids {
			if _, err := store.Transition(cmd.Context(), id, queue.StatusPending, "", ""); err != nil {
				return fmt.Errorf("retry #%d: %w", id, err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d item(s)\n", len(ids))
		return nil
	})
	return cmd
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a queue item",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = ctx.withStoreArgs(func(cmd *cobra.Command, args []string, store *queue.Store) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid item id %q", args[0])
		}
		removed, err := store.Remove(cmd.Context(), id)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("item #%d not found", id)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed #%d\n", id)
		return nil
	})
	return cmd
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var doneOnly bool
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear queue items",
	}
	cmd.RunE = ctx.withStore(func(cmd *cobra.Command, store *queue.Store) error {
		var removed int64
		var err error
		switch {
		case doneOnly && failedOnly:
			return fmt.Errorf("--done and --failed are mutually exclusive")
		case doneOnly:
			removed, err = store.ClearDone(cmd.Context())
		case failedOnly:
			removed, err = store.ClearFailed(cmd.Context())
		default:
			removed, err = store.Clear(cmd.Context())
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d item(s)\n", removed)
		return nil
	})

	cmd.Flags().BoolVar(&doneOnly, "done", false, "Only clear completed items")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only clear failed items")
	return cmd
}

func parseStatusFlags(flags []string) ([]queue.Status, error) {
	statuses := make([]queue.Status, 0, len(flags))
	for _, raw := range flags {
		status, ok := queue.ParseStatus(raw)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", raw)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func parseIDArgs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid item id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
