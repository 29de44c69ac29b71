package makemkv_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"discmapper/internal/services/makemkv"
)

type stubExecutor struct {
	lines       []string
	err         error
	calls       int
	args        [][]string
	destDir     string
	files       []string
	hadDeadline bool
	deadline    time.Time
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	s.calls++
	s.deadline, s.hadDeadline = ctx.Deadline()
	cloned := append([]string(nil), args...)
	s.args = append(s.args, cloned)
	for _, line := range s.lines {
		onStdout(line)
	}
	for _, name := range s.files {
		path := filepath.Join(s.destDir, name)
		if err := os.WriteFile(path, []byte("mkv"), 0o644); err != nil {
			return err
		}
	}
	return s.err
}

func TestRipAllReturnsTitlesInDiscOrder(t *testing.T) {
	tmp := t.TempDir()
	exec := &stubExecutor{
		destDir: tmp,
		files:   []string{"title_t02.mkv", "title_t00.mkv", "title_t01.mkv", "notes.txt"},
	}
	client, err := makemkv.New("makemkvcon", 5, makemkv.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	paths, err := client.RipAll(context.Background(), 0, tmp, 360, nil)
	if err != nil {
		t.Fatalf("RipAll returned error: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 mkv paths, got %d", len(paths))
	}
	for i, want := range []string{"title_t00.mkv", "title_t01.mkv", "title_t02.mkv"} {
		if filepath.Base(paths[i]) != want {
			t.Fatalf("position %d: got %q want %q", i, filepath.Base(paths[i]), want)
		}
	}

	if exec.calls != 1 {
		t.Fatalf("expected single invocation, got %d", exec.calls)
	}
	got := strings.Join(exec.args[0], " ")
	for _, fragment := range []string{"--robot", "--minlength=360", "mkv", "disc:0", "all", tmp} {
		if !strings.Contains(got, fragment) {
			t.Fatalf("expected %q in args %q", fragment, got)
		}
	}
}

func TestRipAllSurfacesToolErrorWithPartialOutput(t *testing.T) {
	tmp := t.TempDir()
	exec := &stubExecutor{
		destDir: tmp,
		files:   []string{"title_t00.mkv"},
		err:     errors.New("exit status 1"),
	}
	client, err := makemkv.New("makemkvcon", 5, makemkv.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	paths, err := client.RipAll(context.Background(), 0, tmp, 0, nil)
	if err == nil {
		t.Fatal("expected error from tool exit")
	}
	if len(paths) != 1 {
		t.Fatalf("partial output should still be reported, got %d paths", len(paths))
	}
}

func TestRipAllAppliesRipTimeout(t *testing.T) {
	tmp := t.TempDir()
	exec := &stubExecutor{destDir: tmp, files: []string{"title_t00.mkv"}}
	client, err := makemkv.New("makemkvcon", 30, makemkv.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	before := time.Now()
	if _, err := client.RipAll(context.Background(), 0, tmp, 0, nil); err != nil {
		t.Fatalf("RipAll returned error: %v", err)
	}
	if !exec.hadDeadline {
		t.Fatal("rip subprocess context should carry a deadline")
	}
	remaining := exec.deadline.Sub(before)
	if remaining <= 0 || remaining > 30*time.Second {
		t.Fatalf("deadline %v from start is outside the configured timeout", remaining)
	}
}

func TestRipAllErrorIncludesToolOutput(t *testing.T) {
	tmp := t.TempDir()
	exec := &stubExecutor{
		destDir: tmp,
		lines: []string{
			"PRGV:0,50,100",
			"MSG:2003,0,1,\"Error reading sector 12345\"",
			"MSG:5004,0,1,\"Backup failed\"",
		},
		err: errors.New("exit status 1"),
	}
	client, err := makemkv.New("makemkvcon", 5, makemkv.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	var updates []makemkv.ProgressUpdate
	_, ripErr := client.RipAll(context.Background(), 0, tmp, 0, func(u makemkv.ProgressUpdate) {
		updates = append(updates, u)
	})
	if ripErr == nil {
		t.Fatal("expected error from tool exit")
	}
	for _, want := range []string{"exit status 1", "Error reading sector 12345", "Backup failed"} {
		if !strings.Contains(ripErr.Error(), want) {
			t.Fatalf("error %q should contain %q", ripErr, want)
		}
	}
	if len(updates) != 1 {
		t.Fatalf("progress lines should still be parsed, got %d updates", len(updates))
	}
}

func TestRipAllForwardsProgress(t *testing.T) {
	tmp := t.TempDir()
	exec := &stubExecutor{
		destDir: tmp,
		lines:   []string{"PRGV:0,50,100", "MSG:1005,0,1,\"saved\"", "PRGV:0,100,100"},
		files:   []string{"title_t00.mkv"},
	}
	client, err := makemkv.New("makemkvcon", 5, makemkv.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	var updates []makemkv.ProgressUpdate
	if _, err := client.RipAll(context.Background(), 1, tmp, 0, func(u makemkv.ProgressUpdate) {
		updates = append(updates, u)
	}); err != nil {
		t.Fatalf("RipAll returned error: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 progress updates, got %d", len(updates))
	}
	if updates[0].Percent != 50 || updates[1].Percent != 100 {
		t.Fatalf("unexpected percents: %v", updates)
	}
	got := strings.Join(exec.args[0], " ")
	if !strings.Contains(got, "--progress=-same") {
		t.Fatalf("expected progress flag in args %q", got)
	}
	if !strings.Contains(got, "disc:1") {
		t.Fatalf("expected drive index in args %q", got)
	}
}

func TestTitleIndex(t *testing.T) {
	cases := []struct {
		name string
		want int
		ok   bool
	}{
		{"title_t00.mkv", 0, true},
		{"title_t12.mkv", 12, true},
		{"Some Movie_t03.mkv", 3, true},
		{"plain.mkv", 0, false},
	}
	for _, tc := range cases {
		got, ok := makemkv.TitleIndex(tc.name)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%s: got (%d, %v), want (%d, %v)", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}
