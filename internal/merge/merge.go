package merge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/handiism/paletti/internal/model"
)

// DefaultBinary is the ffmpeg executable looked up on PATH.
const DefaultBinary = "ffmpeg"

// ErrMergeFailed is returned when the leg files could not be combined. The
// inputs are left on disk.
var ErrMergeFailed = errors.New("merge failed")

// audioExts are codecs that are also usable as a file extension.
var audioExts = map[string]bool{
	"mp3":  true,
	"m4a":  true,
	"aac":  true,
	"opus": true,
	"ogg":  true,
	"flac": true,
	"wav":  true,
}

// Input is one downloaded leg.
type Input struct {
	Path   string
	Stream model.Stream
}

// FFmpeg combines downloaded legs into the final output file.
type FFmpeg struct {
	binary string
	log    *zap.Logger
}

// New creates a merger running binary, or DefaultBinary when empty.
func New(binary string, log *zap.Logger) *FFmpeg {
	if binary == "" {
		binary = DefaultBinary
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FFmpeg{binary: binary, log: log}
}

// OutputPath returns the path Merge produces for the given legs.
func OutputPath(prefix string, audio, video *Input) string {
	switch {
	case video != nil:
		return prefix + "." + video.Stream.Container
	case audio != nil:
		return prefix + "." + audioExt(audio.Stream)
	}
	return prefix
}

// Merge produces the single output file for a finished transfer.
//
// With both legs, ffmpeg copies the audio and video tracks into
// <prefix>.<video container> and the leg files are removed. A single leg
// is renamed to its output path. The output path is returned.
func (f *FFmpeg) Merge(ctx context.Context, prefix string, audio, video *Input) (string, error) {
	out := OutputPath(prefix, audio, video)

	switch {
	case audio != nil && video != nil:
		if err := f.run(ctx, audio.Path, video.Path, out); err != nil {
			return "", err
		}
		for _, in := range []*Input{audio, video} {
			if err := os.Remove(in.Path); err != nil {
				f.log.Warn("could not remove merged input", zap.String("path", in.Path), zap.Error(err))
			}
		}

	case audio != nil || video != nil:
		in := audio
		if in == nil {
			in = video
		}
		if err := os.Rename(in.Path, out); err != nil {
			return "", fmt.Errorf("%w: %w", ErrMergeFailed, err)
		}

	default:
		return "", fmt.Errorf("%w: no inputs", ErrMergeFailed)
	}

	f.log.Debug("merged", zap.String("output", out))
	return out, nil
}

func (f *FFmpeg) run(ctx context.Context, audioPath, videoPath, out string) error {
	args := []string{
		"-y",
		"-loglevel", "error",
		"-i", audioPath,
		"-i", videoPath,
		"-c:a", "copy",
		"-c:v", "copy",
		out,
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.binary, args...)
	cmd.Stderr = &stderr

	f.log.Debug("running ffmpeg", zap.String("binary", f.binary), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		f.log.Warn("ffmpeg failed", zap.Error(err), zap.String("stderr", msg))
		if msg != "" {
			return fmt.Errorf("%w: %w: %s", ErrMergeFailed, err, msg)
		}
		return fmt.Errorf("%w: %w", ErrMergeFailed, err)
	}
	return nil
}

func audioExt(s model.Stream) string {
	if codec := strings.ToLower(s.Codec); audioExts[codec] {
		return codec
	}
	return s.Container
}
