package disc

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ReadLabel shells out to lsblk and returns the disc's volume label. A label
// only counts when lsblk also reports a filesystem type; a blank pair means
// the drive has not finished reading the disc yet.
func ReadLabel(ctx context.Context, device string, timeout time.Duration) (string, error) {
	device = strings.TrimSpace(device)
	if device == "" {
		return "", errors.New("no device specified")
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := exec.CommandContext(ctx, "lsblk", "-P", "-o", "LABEL,FSTYPE", device).Output()
	if err != nil {
		return "", fmt.Errorf("run lsblk: %w", err)
	}

	label, fstype := ParseLSBLKLabelFSType(string(out))
	if label != "" && fstype != "" {
		return label, nil
	}
	return "", errors.New("no disc label found")
}

// ParseLSBLKLabelFSType pulls the LABEL/FSTYPE pair out of the first
// populated line of lsblk -P key="value" output.
func ParseLSBLKLabelFSType(output string) (string, string) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var label, fstype string
		parsed := false
		for _, field := range strings.Fields(line) {
			key, raw, ok := strings.Cut(field, "=")
			if !ok {
				continue
			}
			parsed = true
			value := strings.TrimSpace(strings.Trim(raw, `"`))
			switch key {
			case "LABEL":
				label = value
			case "FSTYPE":
				fstype = value
			}
		}
		if !parsed {
			continue
		}
		return label, fstype
	}
	return "", ""
}
