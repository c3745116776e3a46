// Package selector chooses the audio and video streams to download from
// the encodings a plugin reports.
//
// Selection is a pure function of its inputs:
//
//	audio, video, err := selector.Pair(item.Streams, "720p", "mp4")
//	if errors.Is(err, selector.ErrNoAcceptableStream) {
//	    // the plugin reported nothing usable
//	}
//
// Fallbacks are reported on the returned Choice so callers can tell the
// user when a preference was ignored.
package selector
