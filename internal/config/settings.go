package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/handiism/paletti/internal/audio"
	"github.com/handiism/paletti/internal/download"
)

// Settings holds all configuration options.
type Settings struct {
	// Download settings
	DownloadsPath    string `json:"downloads_path"`
	DefaultQuality   string `json:"default_quality"`
	DefaultContainer string `json:"default_container"`
	Subtitles        bool   `json:"subtitles"`
	SegmentSize      int64  `json:"segment_size"`
	ChunkSize        int    `json:"chunk_size"`

	MaxConcurrentDownloads int `json:"max_concurrent_downloads"`

	// Network settings
	BandwidthLimit int64    `json:"bandwidth_limit"` // bytes per second, 0 = unlimited
	HTTPTimeout    Duration `json:"http_timeout"`    // 0 = none
	UserAgent      string   `json:"user_agent"`
	ProxyType      string   `json:"proxy_type"` // none, system, manual
	ProxyAddress   string   `json:"proxy_address"`
	ProxyPort      int      `json:"proxy_port"`

	// Plugins
	PluginsPath  string `json:"plugins_path"`  // empty = compiled table only
	SearchPlugin string `json:"search_plugin"` // plugin that runs free-text queries

	// Post-processing
	FFmpegPath string `json:"ffmpeg_path"`
	Merge      bool   `json:"merge"`
	ModifyTags bool   `json:"modify_tags"`

	// Thumbnail settings
	SaveThumbnail        bool `json:"save_thumbnail"`
	ThumbnailInTags      bool `json:"thumbnail_in_tags"`
	ThumbnailMaxSize     int  `json:"thumbnail_max_size"`
	ThumbnailJPEGQuality int  `json:"thumbnail_jpeg_quality"`

	// Playlist settings
	PlaylistFormat string `json:"playlist_format"` // m3u, pls, wpl, zpl
	M3UExtended    bool   `json:"m3u_extended"`

	// Logging
	Verbose bool `json:"verbose"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	return &Settings{
		DownloadsPath:    filepath.Join(homeDir, "Downloads", "paletti"),
		DefaultQuality:   "720p",
		DefaultContainer: "mp4",
		SegmentSize:      download.DefaultSegmentSize,
		ChunkSize:        download.DefaultChunkSize,

		MaxConcurrentDownloads: 3,

		ProxyType: "system",

		SearchPlugin: "bandcamp",

		FFmpegPath: "ffmpeg",
		Merge:      true,
		ModifyTags: true,

		ThumbnailInTags:      true,
		ThumbnailMaxSize:     1000,
		ThumbnailJPEGQuality: 90,

		PlaylistFormat: "m3u",
		M3UExtended:    true,
	}
}

// DefaultPath returns the settings file location under the user config
// directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "paletti", "settings.json")
}

// Load reads settings from a JSON file. A missing file yields defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate reports the first setting that cannot be used.
func (s *Settings) Validate() error {
	if s.SegmentSize <= 0 {
		return fmt.Errorf("segment_size must be positive, got %d", s.SegmentSize)
	}
	if s.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", s.ChunkSize)
	}
	if s.MaxConcurrentDownloads < 1 {
		return fmt.Errorf("max_concurrent_downloads must be at least 1, got %d", s.MaxConcurrentDownloads)
	}
	if s.BandwidthLimit < 0 {
		return fmt.Errorf("bandwidth_limit cannot be negative, got %d", s.BandwidthLimit)
	}
	if s.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout cannot be negative, got %s", s.HTTPTimeout)
	}
	if _, err := audio.ParsePlaylistFormat(s.PlaylistFormat); err != nil {
		return err
	}

	switch strings.ToLower(s.ProxyType) {
	case "", "none", "system":
	case "manual":
		if s.ProxyAddress == "" {
			return fmt.Errorf("proxy_type manual needs proxy_address")
		}
	default:
		return fmt.Errorf("invalid proxy_type %q, valid values are none, system, manual", s.ProxyType)
	}

	return nil
}

// FetcherConfig returns the segment and chunk sizes for the fetcher.
func (s *Settings) FetcherConfig() download.FetcherConfig {
	return download.FetcherConfig{
		SegmentSize: s.SegmentSize,
		ChunkSize:   s.ChunkSize,
	}
}

// Duration is a time.Duration written as a string ("30s") in JSON.
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts "1m30s" style strings or a number of seconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch v := v.(type) {
	case float64:
		*d = Duration(v * float64(time.Second))
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration %s", data)
	}
	return nil
}
