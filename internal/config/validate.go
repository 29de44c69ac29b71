package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLibrary(); err != nil {
		return err
	}
	if err := c.validateTiming(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.StagingDir == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if c.Paths.DBPath == "" {
		return errors.New("paths.db_path must be set")
	}
	return nil
}

func (c *Config) validateLibrary() error {
	if c.Library.MoviesDir == "" {
		return errors.New("library.movies_dir must be set")
	}
	if c.Library.TVDir == "" {
		return errors.New("library.tv_dir must be set")
	}
	return nil
}

func (c *Config) validateTiming() error {
	if err := ensurePositiveMap(map[string]int{
		"timing.poll_interval_seconds": c.Timing.PollIntervalSeconds,
		"timing.max_wait_minutes":      c.Timing.MaxWaitMinutes,
		"makemkv.rip_timeout":          c.MakeMKV.RipTimeout,
		"makemkv.info_timeout":         c.MakeMKV.InfoTimeout,
	}); err != nil {
		return err
	}
	if c.Timing.DiscSettleSeconds < 0 {
		return errors.New("timing.disc_settle_seconds must be >= 0")
	}
	if c.Timing.PostRipSettleSeconds < 0 {
		return errors.New("timing.post_rip_settle_seconds must be >= 0")
	}
	if c.Timing.EjectDelaySeconds < 0 {
		return errors.New("timing.eject_delay_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if err := ensurePositiveMap(map[string]int{
		"matching.manifest_buffer_minutes": c.Matching.ManifestBufferMinutes,
		"matching.typical_buffer_minutes":  c.Matching.TypicalBufferMinutes,
		"matching.special_delta_minutes":   c.Matching.SpecialDeltaMinutes,
		"matching.rip_floor_minutes":       c.Matching.RipFloorMinutes,
		"matching.min_main_minutes":         c.Matching.MinMainMinutes,
	}); err != nil {
		return err
	}
	if c.Matching.MinLengthBufferMinutes < 0 {
		return errors.New("matching.minlength_buffer_minutes must be >= 0")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"mover.max_attempts":            c.Mover.MaxAttempts,
		"mover.retry_delay_msec":        c.Mover.RetryDelayMsec,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
