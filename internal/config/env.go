package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "PALETTI_"

// LoadEnv loads .env style files into the process environment without
// overriding variables that are already set. With no arguments it reads
// ".env" in the working directory. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides settings from PALETTI_* environment variables, for
// example PALETTI_DOWNLOADS_PATH or PALETTI_BANDWIDTH_LIMIT. Unset
// variables leave the setting alone.
func (s *Settings) ApplyEnv() error {
	strs := map[string]*string{
		"DOWNLOADS_PATH":    &s.DownloadsPath,
		"DEFAULT_QUALITY":   &s.DefaultQuality,
		"DEFAULT_CONTAINER": &s.DefaultContainer,
		"USER_AGENT":        &s.UserAgent,
		"PROXY_TYPE":        &s.ProxyType,
		"PROXY_ADDRESS":     &s.ProxyAddress,
		"PLUGINS_PATH":      &s.PluginsPath,
		"SEARCH_PLUGIN":     &s.SearchPlugin,
		"FFMPEG_PATH":       &s.FFmpegPath,
		"PLAYLIST_FORMAT":   &s.PlaylistFormat,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"SUBTITLES":         &s.Subtitles,
		"MERGE":             &s.Merge,
		"MODIFY_TAGS":       &s.ModifyTags,
		"SAVE_THUMBNAIL":    &s.SaveThumbnail,
		"THUMBNAIL_IN_TAGS": &s.ThumbnailInTags,
		"M3U_EXTENDED":      &s.M3UExtended,
		"VERBOSE":           &s.Verbose,
	}
	for key, dst := range bools {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return envError(key, err)
			}
			*dst = b
		}
	}

	ints := map[string]*int{
		"CHUNK_SIZE":               &s.ChunkSize,
		"MAX_CONCURRENT_DOWNLOADS": &s.MaxConcurrentDownloads,
		"PROXY_PORT":               &s.ProxyPort,
		"THUMBNAIL_MAX_SIZE":       &s.ThumbnailMaxSize,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return envError(key, err)
			}
			*dst = n
		}
	}

	int64s := map[string]*int64{
		"SEGMENT_SIZE":    &s.SegmentSize,
		"BANDWIDTH_LIMIT": &s.BandwidthLimit,
	}
	for key, dst := range int64s {
		if v, ok := lookup(key); ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return envError(key, err)
			}
			*dst = n
		}
	}

	if v, ok := lookup("HTTP_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return envError("HTTP_TIMEOUT", err)
		}
		s.HTTPTimeout = Duration(d)
	}

	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func envError(key string, err error) error {
	return fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
}
