// Package config loads and validates the TOML configuration file that
// supplies Lidarr credentials, MusicBrainz contact details, parser
// defaults, and data paths.
package config
