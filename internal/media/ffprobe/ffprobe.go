package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Info summarizes the container properties the pipeline cares about.
type Info struct {
	DurationSeconds int
	SizeBytes       int64
	VideoStreams    int
	AudioStreams    int
}

// Prober probes a media file for its container properties.
type Prober interface {
	Probe(ctx context.Context, path string) (Info, error)
}

// Client executes the ffprobe binary.
type Client struct {
	binary string
	run    func(ctx context.Context, binary string, args []string) ([]byte, error)
}

// Option configures the client.
type Option func(*Client)

// WithRunner injects a command runner (primarily for tests).
func WithRunner(run func(ctx context.Context, binary string, args []string) ([]byte, error)) Option {
	return func(c *Client) {
		if run != nil {
			c.run = run
		}
	}
}

// New constructs an ffprobe client.
func New(binary string, opts ...Option) *Client {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	c := &Client{binary: binary, run: runCommand}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type probePayload struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		Size     string `json:"size"`
	} `json:"format"`
}

// Probe runs ffprobe against path and returns the parsed summary. A probe
// failure is an error, not a zero duration: callers must be able to tell
// "unreadable file" apart from "zero-length stream".
func (c *Client) Probe(ctx context.Context, path string) (Info, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Info{}, errors.New("ffprobe: empty path")
	}

	args := []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path}
	output, err := c.run(ctx, c.binary, args)
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var payload probePayload
	if err := json.Unmarshal(output, &payload); err != nil {
		return Info{}, fmt.Errorf("ffprobe parse: %w", err)
	}

	info := Info{
		DurationSeconds: roundSeconds(payload.Format.Duration),
		SizeBytes:       parseInt64(payload.Format.Size),
	}
	for _, s := range payload.Streams {
		switch strings.ToLower(s.CodecType) {
		case "video":
			info.VideoStreams++
		case "audio":
			info.AudioStreams++
		}
	}
	return info, nil
}

func runCommand(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return output, nil
}

func roundSeconds(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < 0 {
		return 0
	}
	return int(math.Round(f))
}

func parseInt64(value string) int64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < 0 {
		return 0
	}
	return int64(f)
}
