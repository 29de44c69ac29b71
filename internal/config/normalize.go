package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTiming()
	c.normalizeMakeMKV()
	c.normalizeMatching()
	c.normalizeMover()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.ManifestPath, err = expandPath(c.Paths.ManifestPath); err != nil {
		return fmt.Errorf("paths.manifest_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.DBPath) == "" {
		c.Paths.DBPath = defaultDBPath
	}
	if c.Paths.DBPath, err = expandPath(c.Paths.DBPath); err != nil {
		return fmt.Errorf("paths.db_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeTiming() {
	if c.Timing.PollIntervalSeconds <= 0 {
		c.Timing.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	if c.Timing.DiscSettleSeconds < 0 {
		c.Timing.DiscSettleSeconds = defaultDiscSettleSeconds
	}
	if c.Timing.PostRipSettleSeconds < 0 {
		c.Timing.PostRipSettleSeconds = defaultPostRipSettleSecs
	}
	if c.Timing.EjectDelaySeconds < 0 {
		c.Timing.EjectDelaySeconds = defaultEjectDelaySeconds
	}
	if c.Timing.MaxWaitMinutes <= 0 {
		c.Timing.MaxWaitMinutes = defaultMaxWaitMinutes
	}
}

func (c *Config) normalizeMakeMKV() {
	c.MakeMKV.OpticalDrive = strings.TrimSpace(c.MakeMKV.OpticalDrive)
	if c.MakeMKV.OpticalDrive == "" {
		c.MakeMKV.OpticalDrive = defaultOpticalDrive
	}
	if c.MakeMKV.RipTimeout <= 0 {
		c.MakeMKV.RipTimeout = defaultRipTimeout
	}
	if c.MakeMKV.InfoTimeout <= 0 {
		c.MakeMKV.InfoTimeout = defaultInfoTimeout
	}
	if c.MakeMKV.MinLengthSeconds < 0 {
		c.MakeMKV.MinLengthSeconds = 0
	}
}

func (c *Config) normalizeMatching() {
	if c.Matching.ManifestBufferMinutes <= 0 {
		c.Matching.ManifestBufferMinutes = defaultManifestBufferMins
	}
	if c.Matching.TypicalBufferMinutes <= 0 {
		c.Matching.TypicalBufferMinutes = defaultTypicalBufferMins
	}
	if c.Matching.SpecialDeltaMinutes <= 0 {
		c.Matching.SpecialDeltaMinutes = defaultSpecialDeltaMins
	}
	if c.Matching.RipFloorMinutes <= 0 {
		c.Matching.RipFloorMinutes = defaultRipFloorMins
	}
	if c.Matching.MinLengthBufferMinutes < 0 {
		c.Matching.MinLengthBufferMinutes = defaultMinLengthBufferMins
	}
}

func (c *Config) normalizeMover() {
	if c.Mover.MaxAttempts <= 0 {
		c.Mover.MaxAttempts = defaultMoveMaxAttempts
	}
	if c.Mover.RetryDelayMsec <= 0 {
		c.Mover.RetryDelayMsec = defaultMoveRetryDelayMsec
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
