package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Staging subdirectory names. Rips land in the raw area, unmatched output
// goes to review, planned files wait in ready until commit, and discs the
// drive could not read are parked separately.
const (
	RawDirName    = "1_Raw"
	ReviewDirName = "2_Review"
	ReadyDirName  = "3_Ready"
	UnableDirName = "Unable_to_Read"
	DoneDirName   = "_done"
)

// Paths contains directory configuration.
type Paths struct {
	StagingDir   string `toml:"staging_dir"`
	LibraryDir   string `toml:"library_dir"`
	LogDir       string `toml:"log_dir"`
	ManifestPath string `toml:"manifest_path"`
	DBPath       string `toml:"db_path"`
}

// Library contains configuration for the media library structure.
type Library struct {
	MoviesDir         string `toml:"movies_dir"`
	TVDir             string `toml:"tv_dir"`
	OverwriteExisting bool   `toml:"overwrite_existing"`
}

// Timing contains the wait and settle intervals for the rip loop.
// All values are in the unit named by their key.
type Timing struct {
	PollIntervalSeconds  int `toml:"poll_interval_seconds"`
	DiscSettleSeconds    int `toml:"disc_settle_seconds"`
	PostRipSettleSeconds int `toml:"post_rip_settle_seconds"`
	EjectDelaySeconds    int `toml:"eject_delay_seconds"`
	MaxWaitMinutes       int `toml:"max_wait_minutes"`
}

// Policy contains the behavioral switches for a run.
type Policy struct {
	KeepRaw          bool `toml:"keep_raw"`
	KeepStaging      bool `toml:"keep_staging"`
	SafeCommit       bool `toml:"safe_commit"`
	CleanupOnSuccess bool `toml:"cleanup_on_success"`
	EjectOnSuccess   bool `toml:"eject_on_success"`
	EjectOnError     bool `toml:"eject_on_error"`
}

// MakeMKV contains configuration for disc ripping.
type MakeMKV struct {
	OpticalDrive     string `toml:"optical_drive"`
	DriveIndex       int    `toml:"drive_index"`
	RipTimeout       int    `toml:"rip_timeout"`
	InfoTimeout      int    `toml:"info_timeout"`
	MinLengthSeconds int    `toml:"min_length_seconds"`
}

// Matching contains tolerances for duration-based episode assignment.
// Buffers are in minutes to match how manifests record runtimes.
type Matching struct {
	ManifestBufferMinutes   int  `toml:"manifest_buffer_minutes"`
	TypicalBufferMinutes    int  `toml:"typical_buffer_minutes"`
	SpecialDeltaMinutes     int  `toml:"special_delta_minutes"`
	RipFloorMinutes         int  `toml:"rip_floor_minutes"`
	MinLengthBufferMinutes  int  `toml:"minlength_buffer_minutes"`
	ManifestDrivenMinLength bool `toml:"manifest_driven_minlength"`
	// MinMainMinutes is the movie keeper floor: rip outputs shorter than
	// this are never considered the main feature.
	MinMainMinutes int `toml:"min_main_minutes"`
}

// Naming contains switches for library file and folder naming.
type Naming struct {
	IncludeYear     bool `toml:"include_year"`
	IncludeIMDBID   bool `toml:"include_imdb_id"`
	AppendDiscIndex bool `toml:"append_disc_index"`
	WriteSidecar    bool `toml:"write_sidecar"`
}

// Mover contains retry settings for filesystem moves.
type Mover struct {
	MaxAttempts    int `toml:"max_attempts"`
	RetryDelayMsec int `toml:"retry_delay_msec"`
}

// Workflow contains configuration for queue polling.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for discmapper.
//
// Configuration sections by subsystem:
//   - Paths: staging, library, log, manifest, and queue database locations
//   - Library: output directory structure (movies/tv subdirs)
//   - Timing: rip loop wait and settle intervals
//   - Policy: cleanup, commit, and eject behavior
//   - MakeMKV: disc ripping settings
//   - Matching: episode assignment tolerances
//   - Naming: library file and folder naming switches
//   - Mover: filesystem move retry settings
//   - Workflow: queue polling intervals
//   - Logging: log format, level, and retention
type Config struct {
	Paths    Paths    `toml:"paths"`
	Library  Library  `toml:"library"`
	Timing   Timing   `toml:"timing"`
	Policy   Policy   `toml:"policy"`
	MakeMKV  MakeMKV  `toml:"makemkv"`
	Matching Matching `toml:"matching"`
	Naming   Naming   `toml:"naming"`
	Mover    Mover    `toml:"mover"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/discmapper/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/discmapper/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("discmapper.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// RawDir returns the staging area where rips land.
func (c *Config) RawDir() string {
	return filepath.Join(c.Paths.StagingDir, RawDirName)
}

// ReviewDir returns the staging area for unmatched or ambiguous output.
func (c *Config) ReviewDir() string {
	return filepath.Join(c.Paths.StagingDir, ReviewDirName)
}

// ReadyDir returns the staging area for planned files awaiting commit.
func (c *Config) ReadyDir() string {
	return filepath.Join(c.Paths.StagingDir, ReadyDirName)
}

// MoviesReadyDir returns the ready-staging root for movie keepers.
func (c *Config) MoviesReadyDir() string {
	return filepath.Join(c.ReadyDir(), c.Library.MoviesDir)
}

// TVReadyDir returns the ready-staging root for matched episodes.
func (c *Config) TVReadyDir() string {
	return filepath.Join(c.ReadyDir(), c.Library.TVDir)
}

// UnableDir returns the staging area for discs the drive could not read.
func (c *Config) UnableDir() string {
	return filepath.Join(c.Paths.StagingDir, UnableDirName)
}

// DoneDir returns the staging area where completed raw rips are parked
// when keep_raw is enabled.
func (c *Config) DoneDir() string {
	return filepath.Join(c.Paths.StagingDir, DoneDirName)
}

// EnsureDirectories creates required directories for operation.
// LibraryDir is created on a best-effort basis so a run can start when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.StagingDir,
		c.Paths.LogDir,
		c.RawDir(),
		c.ReviewDir(),
		c.ReadyDir(),
		c.MoviesReadyDir(),
		c.TVReadyDir(),
		c.UnableDir(),
		c.DoneDir(),
		filepath.Dir(c.Paths.DBPath),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

// MakemkvBinary returns the MakeMKV executable name.
func (c *Config) MakemkvBinary() string {
	return "makemkvcon"
}

// FFprobeBinary returns the ffprobe executable name used for duration probes.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// EjectBinary returns the executable used to open the drive tray.
func (c *Config) EjectBinary() string {
	return "eject"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
