package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMatcher(); err != nil {
		return err
	}
	if err := c.validateThresholds(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMatcher() error {
	weights := map[string]float64{
		"matcher.artist_weight":         c.Matcher.ArtistWeight,
		"matcher.album_weight":          c.Matcher.AlbumWeight,
		"matcher.year_weight":           c.Matcher.YearWeight,
		"matcher.media_weight":          c.Matcher.MediaWeight,
		"matcher.country_weight":        c.Matcher.CountryWeight,
		"matcher.label_weight":          c.Matcher.LabelWeight,
		"matcher.catalog_number_weight": c.Matcher.CatalogNumberWeight,
		"matcher.release_id_weight":     c.Matcher.ReleaseIDWeight,
		"matcher.compilation_weight":    c.Matcher.CompilationWeight,
		"matcher.track_title_weight":    c.Matcher.TrackTitleWeight,
		"matcher.track_duration_weight": c.Matcher.TrackDurationWeight,
		"matcher.track_index_weight":    c.Matcher.TrackIndexWeight,
		"matcher.missing_track_weight":  c.Matcher.MissingTrackWeight,
		"matcher.extra_track_weight":    c.Matcher.ExtraTrackWeight,
		"matcher.track_count_weight":    c.Matcher.TrackCountWeight,
	}
	total := 0.0
	for key, weight := range weights {
		if weight < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
		total += weight
	}
	if total == 0 {
		return errors.New("matcher weights must not all be zero")
	}
	return nil
}

func (c *Config) validateThresholds() error {
	if c.Thresholds.Strong <= 0 || c.Thresholds.Strong >= 1 {
		return errors.New("thresholds.strong must be between 0 and 1")
	}
	if c.Thresholds.Medium <= 0 || c.Thresholds.Medium >= 1 {
		return errors.New("thresholds.medium must be between 0 and 1")
	}
	if c.Thresholds.Medium < c.Thresholds.Strong {
		return errors.New("thresholds.medium must be >= thresholds.strong")
	}
	if c.Thresholds.HardComponentCap <= 0 || c.Thresholds.HardComponentCap > 1 {
		return errors.New("thresholds.hard_component_cap must be between 0 and 1")
	}
	switch c.Thresholds.AutoAccept {
	case "strong", "medium", "none":
	default:
		return fmt.Errorf("thresholds.auto_accept must be strong, medium, or none (got %q)", c.Thresholds.AutoAccept)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"musicbrainz.timeout_seconds":   c.MusicBrainz.TimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
