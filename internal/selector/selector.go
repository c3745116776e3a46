package selector

import (
	"errors"
	"sort"

	"github.com/handiism/paletti/internal/model"
)

// QualityBest requests the highest-ranked quality available.
const QualityBest = "best"

// ErrNoAcceptableStream is returned when no stream survives selection.
var ErrNoAcceptableStream = errors.New("no acceptable stream")

// Choice is the outcome of a successful selection.
type Choice struct {
	// Stream is a copy of the selected descriptor.
	Stream model.Stream

	// ContainerFallback is true when no stream matched the requested
	// container and the preference was ignored.
	ContainerFallback bool

	// QualityFallback is true when the requested quality was not
	// available and the best available one was used instead.
	QualityFallback bool
}

// Select picks the stream that best matches the requested type, quality
// and container. It performs no I/O.
//
// The candidates are ordered by QualityRank, highest first, with a stable
// sort. A missing video-only stream falls back to audio+video streams;
// audio has no substitute. A container mismatch never fails the selection,
// it is reported through Choice.ContainerFallback. An unknown quality falls
// back to the best available one.
//
// The second return value is false when no stream of the requested type
// (or its substitute) exists.
//
// Example:
//
//	choice, ok := selector.Select(item.Streams, model.StreamVideo, "720p", "webm")
//	if !ok {
//	    return selector.ErrNoAcceptableStream
//	}
//	fmt.Println(choice.Stream.URL)
func Select(streams []model.Stream, typ model.StreamType, quality, container string) (Choice, bool) {
	ranked := make([]model.Stream, len(streams))
	copy(ranked, streams)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].QualityRank > ranked[j].QualityRank
	})

	inContainer := func(s model.Stream) bool { return s.Container == container }
	combined := func(s model.Stream) bool { return s.Type == model.StreamAudioVideo }

	typed := filter(ranked, func(s model.Stream) bool { return s.Type == typ })
	if len(typed) == 0 && typ == model.StreamVideo {
		typed = filter(ranked, combined)
	}
	if len(typed) == 0 {
		return Choice{}, false
	}

	var choice Choice
	candidates := filter(typed, inContainer)
	if len(candidates) == 0 && typ == model.StreamVideo {
		// A combined stream in the wanted container beats a video-only
		// stream in the wrong one.
		candidates = filter(filter(ranked, combined), inContainer)
	}
	if len(candidates) == 0 {
		candidates = typed
		choice.ContainerFallback = true
	}

	bestAvailable := candidates[0].Quality
	wanted := quality
	if quality == QualityBest {
		wanted = bestAvailable
	}

	selection := filter(candidates, func(s model.Stream) bool { return s.Quality == wanted })
	if len(selection) == 0 {
		selection = filter(candidates, func(s model.Stream) bool { return s.Quality == bestAvailable })
		choice.QualityFallback = true
	}

	choice.Stream = selection[0]
	return choice, true
}

// Pair selects one audio and one video stream for the same preferences.
// Either result may be nil. ErrNoAcceptableStream is returned only when
// both are nil.
func Pair(streams []model.Stream, quality, container string) (audio, video *Choice, err error) {
	if c, ok := Select(streams, model.StreamAudio, quality, container); ok {
		audio = &c
	}
	if c, ok := Select(streams, model.StreamVideo, quality, container); ok {
		video = &c
	}
	if audio == nil && video == nil {
		return nil, nil, ErrNoAcceptableStream
	}
	return audio, video, nil
}

func filter(streams []model.Stream, keep func(model.Stream) bool) []model.Stream {
	var out []model.Stream
	for _, s := range streams {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}
