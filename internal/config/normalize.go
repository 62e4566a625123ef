package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMusicBrainz()
	c.normalizeMatcher()
	c.normalizeThresholds()
	c.normalizeDuplicates()
	c.normalizeWorkflow()
	c.normalizeLogging()
	if err := c.normalizeResume(); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.LibraryDB, err = expandPath(c.Paths.LibraryDB); err != nil {
		return fmt.Errorf("paths.library_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeMusicBrainz() {
	c.MusicBrainz.BaseURL = strings.TrimRight(strings.TrimSpace(c.MusicBrainz.BaseURL), "/")
	if c.MusicBrainz.BaseURL == "" {
		c.MusicBrainz.BaseURL = defaultMBBaseURL
	}
	c.MusicBrainz.UserAgent = strings.TrimSpace(c.MusicBrainz.UserAgent)
	if c.MusicBrainz.UserAgent == "" {
		c.MusicBrainz.UserAgent = defaultMBUserAgent
	}
	if c.MusicBrainz.TimeoutSeconds <= 0 {
		c.MusicBrainz.TimeoutSeconds = defaultMBTimeoutSeconds
	}
	if c.MusicBrainz.RateLimitMillis < 0 {
		c.MusicBrainz.RateLimitMillis = defaultMBRateLimitMillis
	}
	if c.MusicBrainz.CacheTTLMinutes < 0 {
		c.MusicBrainz.CacheTTLMinutes = 0
	}
	if c.MusicBrainz.MaxCandidates <= 0 {
		c.MusicBrainz.MaxCandidates = defaultMBMaxCandidates
	}
}

func (c *Config) normalizeMatcher() {
	if c.Matcher.DurationToleranceSeconds < 0 {
		c.Matcher.DurationToleranceSeconds = 0
	}
	if c.Matcher.DurationGraceSeconds <= c.Matcher.DurationToleranceSeconds {
		c.Matcher.DurationGraceSeconds = c.Matcher.DurationToleranceSeconds + 1
	}
	if c.Matcher.YearMaxGap <= 0 {
		c.Matcher.YearMaxGap = 10
	}
	if c.Matcher.TrackCountTolerance < 0 {
		c.Matcher.TrackCountTolerance = 0
	}
}

func (c *Config) normalizeThresholds() {
	c.Thresholds.AutoAccept = strings.ToLower(strings.TrimSpace(c.Thresholds.AutoAccept))
	if c.Thresholds.AutoAccept == "" {
		c.Thresholds.AutoAccept = defaultAutoAccept
	}
	names := make([]string, 0, len(c.Thresholds.Disqualifying))
	seen := make(map[string]struct{}, len(c.Thresholds.Disqualifying))
	for _, name := range c.Thresholds.Disqualifying {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		names = append(names, normalized)
	}
	c.Thresholds.Disqualifying = names
}

func (c *Config) normalizeDuplicates() {
	if len(c.Duplicates.Keys) == 0 {
		c.Duplicates.Keys = []string{"artist", "album"}
		return
	}
	keys := make([]string, 0, len(c.Duplicates.Keys))
	seen := make(map[string]struct{}, len(c.Duplicates.Keys))
	for _, key := range c.Duplicates.Keys {
		normalized := strings.ToLower(strings.TrimSpace(key))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		keys = append(keys, normalized)
	}
	if len(keys) == 0 {
		keys = []string{"artist", "album"}
	}
	c.Duplicates.Keys = keys
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		c.Workflow.HeartbeatTimeout = defaultHeartbeatTimeout
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
}

func (c *Config) normalizeResume() error {
	c.Resume.Path = strings.TrimSpace(c.Resume.Path)
	if c.Resume.Path == "" {
		return nil
	}
	expanded, err := expandPath(c.Resume.Path)
	if err != nil {
		return fmt.Errorf("resume.path: %w", err)
	}
	c.Resume.Path = expanded
	return nil
}
