// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The pipeline only needs container duration, size, and stream presence, so
// the wrapper exposes a small Info struct rather than the full probe tree.
package ffprobe
