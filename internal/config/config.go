package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Lidarr contains the Lidarr server connection and library defaults.
type Lidarr struct {
	URL               string  `toml:"url"`
	APIKey            string  `toml:"api_key"`
	QualityProfileID  int     `toml:"quality_profile_id"`
	MetadataProfileID int     `toml:"metadata_profile_id"`
	RootFolderPath    string  `toml:"root_folder_path"`
	RequestDelay      float64 `toml:"request_delay"`
	MaxRetries        int     `toml:"max_retries"`
	RetryDelay        float64 `toml:"retry_delay"`
	BatchSize         int     `toml:"batch_size"`
	BatchPause        float64 `toml:"batch_pause"`
}

// MusicBrainz contains the MusicBrainz web-service settings. Contact is
// embedded in the User-Agent per the MusicBrainz API etiquette rules.
type MusicBrainz struct {
	BaseURL string  `toml:"base_url"`
	Contact string  `toml:"contact"`
	Delay   float64 `toml:"delay"`
}

// Parser contains defaults for list parsing and deduplication.
type Parser struct {
	FuzzyThreshold  int  `toml:"fuzzy_threshold"`
	MinArtistSongs  int  `toml:"min_artist_songs"`
	MinAlbumSongs   int  `toml:"min_album_songs"`
	IncludeRiskInfo bool `toml:"include_risk_info"`
	SkipRisky       bool `toml:"skip_risky"`
}

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// History contains run-history database settings.
type History struct {
	Enabled       bool `toml:"enabled"`
	RetentionRuns int  `toml:"retention_runs"`
}

// Config encapsulates all configuration values for wantlist.
type Config struct {
	Lidarr      Lidarr      `toml:"lidarr"`
	MusicBrainz MusicBrainz `toml:"musicbrainz"`
	Parser      Parser      `toml:"parser"`
	Paths       Paths       `toml:"paths"`
	Logging     Logging     `toml:"logging"`
	History     History     `toml:"history"`

	// ArtistAliases maps a lowercase artist name to other names the same
	// artist releases under, e.g. "ye" -> ["Kanye West"].
	ArtistAliases map[string][]string `toml:"artist_aliases"`
}

// DefaultConfigPath returns the absolute path to the default
// configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/wantlist/config.toml")
}

// Load locates, parses, and validates a configuration file. An explicit
// path wins; otherwise ~/.config/wantlist/config.toml is tried, then
// ./wantlist.toml. A missing file yields the defaults.
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
	projectPath, err := filepath.Abs("wantlist.toml")
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

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Lidarr.URL = strings.TrimRight(strings.TrimSpace(c.Lidarr.URL), "/")
	c.Lidarr.APIKey = strings.TrimSpace(c.Lidarr.APIKey)
	c.MusicBrainz.BaseURL = strings.TrimRight(strings.TrimSpace(c.MusicBrainz.BaseURL), "/")
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	aliases := make(map[string][]string, len(c.ArtistAliases))
	for name, alts := range c.ArtistAliases {
		aliases[strings.ToLower(strings.TrimSpace(name))] = alts
	}
	c.ArtistAliases = aliases
	return nil
}

// Validate ensures the configuration is usable for commands that talk
// to Lidarr. Parse-only commands call ValidateParser instead.
func (c *Config) Validate() error {
	if c.Lidarr.URL == "" {
		return errors.New("lidarr.url is required (create a config with 'wantlist config init')")
	}
	if _, err := url.ParseRequestURI(c.Lidarr.URL); err != nil {
		return fmt.Errorf("lidarr.url: %w", err)
	}
	if c.Lidarr.APIKey == "" {
		return errors.New("lidarr.api_key is required")
	}
	if c.Lidarr.RootFolderPath == "" {
		return errors.New("lidarr.root_folder_path is required")
	}
	if c.Lidarr.QualityProfileID <= 0 || c.Lidarr.MetadataProfileID <= 0 {
		return errors.New("lidarr.quality_profile_id and lidarr.metadata_profile_id must be positive")
	}
	return c.ValidateParser()
}

// ValidateParser checks the settings the parse pipeline depends on.
func (c *Config) ValidateParser() error {
	if c.Parser.FuzzyThreshold < 0 || c.Parser.FuzzyThreshold > 100 {
		return fmt.Errorf("parser.fuzzy_threshold must be between 0 and 100, got %d", c.Parser.FuzzyThreshold)
	}
	if c.MusicBrainz.Delay < 0 {
		return errors.New("musicbrainz.delay must not be negative")
	}
	return nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryDBPath is where the run-history database lives.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.DataDir, "wantlist.db")
}

// UserAgent builds the MusicBrainz User-Agent string, including the
// configured contact address when one is set.
func (c *Config) UserAgent() string {
	if contact := strings.TrimSpace(c.MusicBrainz.Contact); contact != "" {
		return fmt.Sprintf("wantlist/%s ( %s )", Version, contact)
	}
	return "wantlist/" + Version
}

// RequestDelayDuration returns the pause between Lidarr requests.
func (l Lidarr) RequestDelayDuration() time.Duration {
	return time.Duration(l.RequestDelay * float64(time.Second))
}

// RetryDelayDuration returns the base 503 backoff delay.
func (l Lidarr) RetryDelayDuration() time.Duration {
	return time.Duration(l.RetryDelay * float64(time.Second))
}

// BatchPauseDuration returns the pause between request batches.
func (l Lidarr) BatchPauseDuration() time.Duration {
	return time.Duration(l.BatchPause * float64(time.Second))
}

// DelayDuration returns the minimum spacing between MusicBrainz requests.
func (m MusicBrainz) DelayDuration() time.Duration {
	return time.Duration(m.Delay * float64(time.Second))
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

// ExpandPath expands a leading ~ and makes the path absolute.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to path.
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
