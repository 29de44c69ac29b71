// Package makemkv wraps MakeMKV CLI interactions for whole-disc rips.
package makemkv

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ProgressUpdate captures MakeMKV progress output.
type ProgressUpdate struct {
	Stage   string
	Percent float64
	Message string
}

// Ripper defines the behaviour required by the rip phase.
type Ripper interface {
	RipAll(ctx context.Context, driveIndex int, destDir string, minLengthSeconds int, progress func(ProgressUpdate)) ([]string, error)
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps MakeMKV CLI interactions.
type Client struct {
	binary     string
	ripTimeout time.Duration
	exec       Executor
}

// New constructs a MakeMKV client.
func New(binary string, ripTimeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("makemkv binary required")
	}
	client := &Client{
		binary:     binary,
		ripTimeout: time.Duration(ripTimeoutSeconds) * time.Second,
		exec:       commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// RipAll rips every title at or above minLengthSeconds into destDir and
// returns the produced MKV paths in disc title order. A nonzero MakeMKV exit
// is returned alongside whatever files were produced: discs with read errors
// routinely yield a partial but usable set, and the caller decides whether
// partial output is acceptable.
func (c *Client) RipAll(ctx context.Context, driveIndex int, destDir string, minLengthSeconds int, progress func(ProgressUpdate)) ([]string, error) {
	if destDir == "" {
		return nil, errors.New("destination directory required")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}

	if c.ripTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.ripTimeout)
		defer cancel()
	}

	args := []string{"--robot"}
	if progress != nil {
		args = append(args, "--progress=-same")
	}
	if minLengthSeconds > 0 {
		args = append(args, fmt.Sprintf("--minlength=%d", minLengthSeconds))
	}
	args = append(args, "mkv", fmt.Sprintf("disc:%d", driveIndex), "all", destDir)

	var tail outputTail
	runErr := c.exec.Run(ctx, c.binary, args, func(line string) {
		tail.add(line)
		if progress == nil {
			return
		}
		if update, ok := parseProgress(line); ok {
			progress(update)
		}
	})

	paths, gatherErr := gatherMKVPaths(destDir)
	if gatherErr != nil {
		return nil, fmt.Errorf("inspect rip outputs: %w", gatherErr)
	}
	if runErr != nil {
		if out := tail.String(); out != "" {
			return paths, fmt.Errorf("makemkv rip: %w\n%s", runErr, out)
		}
		return paths, fmt.Errorf("makemkv rip: %w", runErr)
	}
	return paths, nil
}

// tailLimit bounds the raw output retained for failure diagnostics.
const tailLimit = 20

// outputTail keeps the most recent non-blank output lines so a failed rip
// surfaces what the tool actually printed, not just its exit status.
type outputTail struct {
	lines []string
}

func (t *outputTail) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.lines = append(t.lines, line)
	if len(t.lines) > tailLimit {
		t.lines = t.lines[len(t.lines)-tailLimit:]
	}
}

func (t *outputTail) String() string {
	return strings.Join(t.lines, "\n")
}

var titleIndexPattern = regexp.MustCompile(`(?i)(?:title|t)_?(\d{1,3})`)

// TitleIndex extracts the MakeMKV title number from an output filename
// (e.g. "title_t02.mkv" yields 2).
func TitleIndex(name string) (int, bool) {
	m := titleIndexPattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return v, true
}

// gatherMKVPaths lists the MKV files in dir ordered by title index, with
// name order as the fallback for files that carry no index.
func gatherMKVPaths(dir string) ([]string, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	type entry struct {
		path  string
		index int
		named bool
	}
	entries := make([]entry, 0, len(items))
	for _, item := range items {
		if item.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(item.Name()), ".mkv") {
			continue
		}
		e := entry{path: filepath.Join(dir, item.Name())}
		if idx, ok := TitleIndex(item.Name()); ok {
			e.index = idx
			e.named = true
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].named != entries[j].named {
			return entries[i].named
		}
		if entries[i].named && entries[i].index != entries[j].index {
			return entries[i].index < entries[j].index
		}
		return strings.ToLower(filepath.Base(entries[i].path)) < strings.ToLower(filepath.Base(entries[j].path))
	})
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.path)
	}
	return paths, nil
}

func parseProgress(line string) (ProgressUpdate, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "PRGV:") {
		return ProgressUpdate{}, false
	}
	payload := strings.TrimPrefix(line, "PRGV:")
	parts := strings.Split(payload, ",")
	if len(parts) < 3 {
		return ProgressUpdate{}, false
	}
	first := strings.TrimSpace(parts[0])
	second := strings.TrimSpace(parts[1])
	third := strings.TrimSpace(parts[2])

	if _, err := strconv.Atoi(first); err == nil {
		// Robot format: PRGV:current,total,max[,message]
		total, totalErr := strconv.ParseFloat(second, 64)
		maximum, err := strconv.ParseFloat(third, 64)
		if err != nil || maximum <= 0 {
			return ProgressUpdate{}, false
		}
		if totalErr != nil {
			total = 0
		}
		percent := (total / maximum) * 100
		update := ProgressUpdate{Stage: "Ripping", Percent: percent}
		if len(parts) > 3 {
			update.Message = strings.TrimSpace(strings.Join(parts[3:], ","))
		}
		if update.Message == "" {
			update.Message = fmt.Sprintf("Progress %.2f%% (%0.f/%0.f)", percent, total, maximum)
		}
		return update, true
	}

	percent, err := strconv.ParseFloat(second, 64)
	if err != nil {
		percent = 0
	}
	message := strings.TrimSpace(strings.Join(parts[2:], ","))
	return ProgressUpdate{Stage: first, Percent: percent, Message: message}, true
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	forward := func(line string) {
		if onStdout != nil {
			onStdout(line)
			return
		}
		fmt.Fprintln(os.Stderr, line)
	}

	wg.Add(2)
	go scan(stdout, forward)
	go scan(stderr, forward)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		// A killed subprocess reports "signal: killed"; the context error
		// is the one callers can classify.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("wait command: %w", ctxErr)
		}
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
