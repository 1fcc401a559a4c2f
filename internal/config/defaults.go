package config

// Version is stamped at build time via -ldflags.
var Version = "dev"

const (
	defaultDataDir           = "~/.local/share/wantlist"
	defaultLogDir            = "~/.local/share/wantlist/logs"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultRequestDelay      = 2.0
	defaultMaxRetries        = 3
	defaultRetryDelay        = 2.0
	defaultBatchSize         = 10
	defaultBatchPause        = 10.0
	defaultMusicBrainzDelay  = 1.0
	defaultFuzzyThreshold    = 85
	defaultHistoryRetention  = 200
	defaultQualityProfileID  = 1
	defaultMetadataProfileID = 1
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Lidarr: Lidarr{
			QualityProfileID:  defaultQualityProfileID,
			MetadataProfileID: defaultMetadataProfileID,
			RequestDelay:      defaultRequestDelay,
			MaxRetries:        defaultMaxRetries,
			RetryDelay:        defaultRetryDelay,
			BatchSize:         defaultBatchSize,
			BatchPause:        defaultBatchPause,
		},
		MusicBrainz: MusicBrainz{
			Delay: defaultMusicBrainzDelay,
		},
		Parser: Parser{
			FuzzyThreshold: defaultFuzzyThreshold,
		},
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Enabled:       true,
			RetentionRuns: defaultHistoryRetention,
		},
	}
}
