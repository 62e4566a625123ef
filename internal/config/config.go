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

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	// LibraryDir is where imported units are placed; placement itself is
	// delegated to an external collaborator, platter only plans the path.
	LibraryDir string `toml:"library_dir"`
	LibraryDB  string `toml:"library_db"`
}

// MusicBrainz contains configuration for the remote metadata catalog.
type MusicBrainz struct {
	BaseURL         string `toml:"base_url"`
	UserAgent       string `toml:"user_agent"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	RateLimitMillis int    `toml:"rate_limit_ms"`
	CacheTTLMinutes int    `toml:"cache_ttl_minutes"`
	MaxCandidates   int    `toml:"max_candidates"`
}

// Matcher contains the distance weights and tolerances. All weights are
// relative; a weight of zero removes the component from scoring entirely.
type Matcher struct {
	ArtistWeight        float64 `toml:"artist_weight"`
	AlbumWeight         float64 `toml:"album_weight"`
	YearWeight          float64 `toml:"year_weight"`
	MediaWeight         float64 `toml:"media_weight"`
	CountryWeight       float64 `toml:"country_weight"`
	LabelWeight         float64 `toml:"label_weight"`
	CatalogNumberWeight float64 `toml:"catalog_number_weight"`
	ReleaseIDWeight     float64 `toml:"release_id_weight"`
	CompilationWeight   float64 `toml:"compilation_weight"`

	TrackTitleWeight    float64 `toml:"track_title_weight"`
	TrackDurationWeight float64 `toml:"track_duration_weight"`
	TrackIndexWeight    float64 `toml:"track_index_weight"`

	MissingTrackWeight float64 `toml:"missing_track_weight"`
	ExtraTrackWeight   float64 `toml:"extra_track_weight"`
	TrackCountWeight   float64 `toml:"track_count_weight"`

	// DurationToleranceSeconds is the slack before any duration penalty
	// applies; DurationGraceSeconds is where the graded penalty saturates.
	DurationToleranceSeconds float64 `toml:"duration_tolerance_seconds"`
	DurationGraceSeconds     float64 `toml:"duration_grace_seconds"`
	YearMaxGap               int     `toml:"year_max_gap"`
	TrackCountTolerance      int     `toml:"track_count_tolerance"`
}

// Thresholds contains the recommendation cutoffs.
type Thresholds struct {
	Strong           float64  `toml:"strong"`
	Medium           float64  `toml:"medium"`
	HardComponentCap float64  `toml:"hard_component_cap"`
	Disqualifying    []string `toml:"disqualifying"`
	AutoAccept       string   `toml:"auto_accept"`
}

// Duplicates contains duplicate detection configuration.
type Duplicates struct {
	Keys     []string `toml:"keys"`
	Checksum bool     `toml:"checksum"`
}

// Workflow contains pipeline timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Decisions      bool   `toml:"decisions"`
	Duplicates     bool   `toml:"duplicates"`
	Imports        bool   `toml:"imports"`
	Errors         bool   `toml:"errors"`
}

// Resume contains resume log configuration.
type Resume struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Config encapsulates all configuration values for platter.
//
// Configuration sections by subsystem:
//   - Paths: state, log, and library database locations
//   - MusicBrainz: remote catalog client settings
//   - Matcher: distance component weights and tolerances
//   - Thresholds: recommendation cutoffs and auto-accept floor
//   - Duplicates: duplicate detection key tuple and checksum mode
//   - Workflow: pipeline polling intervals and heartbeats
//   - Logging: log format and level
//   - Notifications: ntfy push notification settings
//   - Resume: resume log location
type Config struct {
	Paths         Paths         `toml:"paths"`
	MusicBrainz   MusicBrainz   `toml:"musicbrainz"`
	Matcher       Matcher       `toml:"matcher"`
	Thresholds    Thresholds    `toml:"thresholds"`
	Duplicates    Duplicates    `toml:"duplicates"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
	Resume        Resume        `toml:"resume"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/platter/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
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

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("platter.toml")
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

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StateDir, c.Paths.LogDir}
	if dir := strings.TrimSpace(c.Paths.LibraryDir); dir != "" {
		dirs = append(dirs, dir)
	}
	if db := strings.TrimSpace(c.Paths.LibraryDB); db != "" {
		dirs = append(dirs, filepath.Dir(db))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDatabasePath returns the location of the import task database.
func (c *Config) QueueDatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "queue.db")
}

// LockFilePath returns the lockfile guarding the state directory.
func (c *Config) LockFilePath() string {
	return filepath.Join(c.Paths.StateDir, "platter.lock")
}

// ResumeLogPath returns the resume log location, honoring the override.
func (c *Config) ResumeLogPath() string {
	if path := strings.TrimSpace(c.Resume.Path); path != "" {
		return path
	}
	return filepath.Join(c.Paths.StateDir, "resume.log")
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
