// Package merge turns the leg files of a finished transfer into one output
// file, running ffmpeg when an audio and a video leg must be combined.
//
// # Output Paths
//
// OutputPath names the final file after the transfer prefix:
//
//   - audio and video: <prefix>.<video container>
//   - audio only: <prefix>.<codec> when the codec is a usable extension
//     (mp3, m4a, opus, ...), otherwise <prefix>.<container>
//   - video only: <prefix>.<video container>
//
// # Merging
//
//	m := merge.New("", log) // ffmpeg from PATH
//	out, err := m.Merge(ctx, prefix,
//	    &merge.Input{Path: audioLeg, Stream: audio},
//	    &merge.Input{Path: videoLeg, Stream: video},
//	)
//	if errors.Is(err, merge.ErrMergeFailed) {
//	    // the leg files are still on disk
//	}
//
// With two legs ffmpeg copies both tracks without re-encoding and the leg
// files are removed on success. A single leg is renamed, so no external
// binary is needed for audio-only downloads.
//
// # Errors
//
// Every failure wraps ErrMergeFailed. When ffmpeg writes to stderr, its
// message is included in the error. A failed merge never deletes inputs.
//
// # Cancellation
//
// The ffmpeg process is started with exec.CommandContext and is killed
// when ctx is done.
package merge
