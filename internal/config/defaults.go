package config

const (
	defaultStateDir           = "~/.local/share/platter/state"
	defaultLogDir             = "~/.local/share/platter/logs"
	defaultLibraryDir         = "~/Music/platter"
	defaultLibraryDB          = "~/.local/share/platter/library.db"
	defaultMBBaseURL          = "https://musicbrainz.org/ws/2"
	defaultMBUserAgent        = "platter/0.1 (https://github.com/platter-music/platter)"
	defaultMBTimeoutSeconds   = 30
	defaultMBRateLimitMillis  = 1000
	defaultMBCacheTTLMinutes  = 10
	defaultMBMaxCandidates    = 5
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultQueuePollInterval  = 2
	defaultErrorRetryInterval = 10
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120
	defaultNotifyTimeout      = 10
	defaultStrongThreshold    = 0.10
	defaultMediumThreshold    = 0.25
	defaultHardComponentCap   = 0.50
	defaultAutoAccept         = "strong"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
			LibraryDir: defaultLibraryDir,
			LibraryDB:  defaultLibraryDB,
		},
		MusicBrainz: MusicBrainz{
			BaseURL:         defaultMBBaseURL,
			UserAgent:       defaultMBUserAgent,
			TimeoutSeconds:  defaultMBTimeoutSeconds,
			RateLimitMillis: defaultMBRateLimitMillis,
			CacheTTLMinutes: defaultMBCacheTTLMinutes,
			MaxCandidates:   defaultMBMaxCandidates,
		},
		Matcher: Matcher{
			ArtistWeight:        3.0,
			AlbumWeight:         3.0,
			YearWeight:          1.0,
			MediaWeight:         1.0,
			CountryWeight:       0.5,
			LabelWeight:         0.5,
			CatalogNumberWeight: 0.5,
			ReleaseIDWeight:     5.0,
			CompilationWeight:   0.5,

			TrackTitleWeight:    3.0,
			TrackDurationWeight: 2.0,
			TrackIndexWeight:    1.0,

			MissingTrackWeight: 0.9,
			ExtraTrackWeight:   0.6,
			TrackCountWeight:   2.0,

			DurationToleranceSeconds: 10,
			DurationGraceSeconds:     30,
			YearMaxGap:               10,
			TrackCountTolerance:      0,
		},
		Thresholds: Thresholds{
			Strong:           defaultStrongThreshold,
			Medium:           defaultMediumThreshold,
			HardComponentCap: defaultHardComponentCap,
			Disqualifying:    []string{"album_missing", "artist_missing"},
			AutoAccept:       defaultAutoAccept,
		},
		Duplicates: Duplicates{
			Keys: []string{"artist", "album"},
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Decisions:      true,
			Duplicates:     true,
			Imports:        true,
			Errors:         true,
		},
		Resume: Resume{
			Enabled: true,
		},
	}
}
