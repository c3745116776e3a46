package model

import (
	"fmt"
	"strings"
)

// StreamType is the kind of content a Stream carries.
type StreamType string

const (
	// StreamAudio is an audio-only encoding.
	StreamAudio StreamType = "audio"

	// StreamVideo is a video-only encoding (no audio track).
	StreamVideo StreamType = "video"

	// StreamAudioVideo is a combined encoding carrying both tracks.
	StreamAudioVideo StreamType = "audio+video"
)

// ParseStreamType converts a plugin-supplied type label to a StreamType.
func ParseStreamType(s string) (StreamType, error) {
	switch StreamType(strings.ToLower(strings.TrimSpace(s))) {
	case StreamAudio:
		return StreamAudio, nil
	case StreamVideo:
		return StreamVideo, nil
	case StreamAudioVideo:
		return StreamAudioVideo, nil
	}
	return "", fmt.Errorf("unknown stream type %q", s)
}

// RangeParam describes how a segment-addressed transport expects byte
// ranges: the query parameter Key receives "start{Format}end".
//
// For example {Key: "range", Format: "-"} turns offset 0 with a 10 MiB
// segment into "range=0-10485759".
type RangeParam struct {
	Key    string
	Format string
}

// Stream describes one retrievable encoding of a media item.
//
// A Stream is produced by a plugin and treated as immutable afterwards.
// Selection results are copies, never references into the plugin result.
//
// Example:
//
//	s := Stream{
//	    URL:         "https://cdn.example.com/v/720.webm",
//	    Container:   "webm",
//	    Codec:       "vp9",
//	    Type:        StreamVideo,
//	    Quality:     "720p",
//	    QualityRank: 720,
//	}
type Stream struct {
	// URL is the base address of the encoding.
	URL string

	// Container is the file container, e.g. "mp4", "webm", "mp3".
	Container string

	// Codec is the codec label reported by the site, e.g. "vp9", "opus".
	Codec string

	// Type tells whether the stream is audio, video or both.
	Type StreamType

	// Quality is the display label, e.g. "720p" or "128k".
	Quality string

	// QualityRank orders streams from lowest to highest fidelity.
	QualityRank int

	// Range is set when the stream must be fetched in byte-range segments.
	// Nil means a single continuous GET.
	Range *RangeParam
}

// Segmented reports whether the stream uses range-addressed segments.
func (s Stream) Segmented() bool {
	return s.Range != nil && s.Range.Key != ""
}

// LegPath returns the on-disk path of this stream's leg for an output
// prefix: "<prefix>.<container>.<type>.<codec>".
func (s Stream) LegPath(prefix string) string {
	return fmt.Sprintf("%s.%s.%s.%s", prefix, s.Container, s.Type, s.Codec)
}

// String implements fmt.Stringer for log output.
func (s Stream) String() string {
	return fmt.Sprintf("%s %s/%s %s", s.Type, s.Container, s.Codec, s.Quality)
}
