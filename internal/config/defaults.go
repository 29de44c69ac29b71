package config

const (
	defaultStagingDir           = "~/.local/share/discmapper/staging"
	defaultLibraryDir           = "~/library"
	defaultLogDir               = "~/.local/share/discmapper/logs"
	defaultManifestPath         = "~/.config/discmapper/manifest.csv"
	defaultDBPath               = "~/.local/share/discmapper/queue.db"
	defaultMoviesDir            = "movies"
	defaultTVDir                = "tv"
	defaultOpticalDrive         = "/dev/sr0"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 60
	defaultPollIntervalSeconds  = 3
	defaultDiscSettleSeconds    = 5
	defaultPostRipSettleSecs    = 3
	defaultEjectDelaySeconds    = 2
	defaultMaxWaitMinutes       = 30
	defaultRipTimeout           = 3600
	defaultInfoTimeout          = 300
	defaultManifestBufferMins   = 12
	defaultTypicalBufferMins    = 8
	defaultSpecialDeltaMins     = 10
	defaultRipFloorMins         = 6
	defaultMinLengthBufferMins  = 2
	defaultMinMainMins          = 45
	defaultMoveMaxAttempts      = 25
	defaultMoveRetryDelayMsec   = 400
	defaultQueuePollInterval    = 5
	defaultErrorRetryInterval   = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir:   defaultStagingDir,
			LibraryDir:   defaultLibraryDir,
			LogDir:       defaultLogDir,
			ManifestPath: defaultManifestPath,
			DBPath:       defaultDBPath,
		},
		Library: Library{
			MoviesDir: defaultMoviesDir,
			TVDir:     defaultTVDir,
		},
		Timing: Timing{
			PollIntervalSeconds:  defaultPollIntervalSeconds,
			DiscSettleSeconds:    defaultDiscSettleSeconds,
			PostRipSettleSeconds: defaultPostRipSettleSecs,
			EjectDelaySeconds:    defaultEjectDelaySeconds,
			MaxWaitMinutes:       defaultMaxWaitMinutes,
		},
		Policy: Policy{
			KeepRaw:          true,
			KeepStaging:      true,
			SafeCommit:       true,
			CleanupOnSuccess: false,
			EjectOnSuccess:   true,
			EjectOnError:     false,
		},
		MakeMKV: MakeMKV{
			OpticalDrive: defaultOpticalDrive,
			RipTimeout:   defaultRipTimeout,
			InfoTimeout:  defaultInfoTimeout,
		},
		Matching: Matching{
			ManifestBufferMinutes:   defaultManifestBufferMins,
			TypicalBufferMinutes:    defaultTypicalBufferMins,
			SpecialDeltaMinutes:     defaultSpecialDeltaMins,
			RipFloorMinutes:         defaultRipFloorMins,
			MinLengthBufferMinutes:  defaultMinLengthBufferMins,
			ManifestDrivenMinLength: true,
			MinMainMinutes:          defaultMinMainMins,
		},
		Naming: Naming{
			IncludeYear:     true,
			IncludeIMDBID:   true,
			AppendDiscIndex: true,
			WriteSidecar:    true,
		},
		Mover: Mover{
			MaxAttempts:    defaultMoveMaxAttempts,
			RetryDelayMsec: defaultMoveRetryDelayMsec,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
