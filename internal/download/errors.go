package download

import (
	"errors"
	"fmt"
)

var (
	// ErrSizeProbeFailed means the total size of a stream could not be
	// determined. No file has been created when it is returned.
	ErrSizeProbeFailed = errors.New("size probe failed")

	// ErrTransferInterrupted means a stream broke off mid-transfer. The
	// bytes written so far stay on disk.
	ErrTransferInterrupted = errors.New("transfer interrupted")

	// ErrCancelled is returned by Fetch when the cancel signal was
	// observed. It is not a failure of the transfer.
	ErrCancelled = errors.New("transfer cancelled")
)

// FetchErrorKind classifies a FetchError.
type FetchErrorKind int

const (
	KindSizeProbe FetchErrorKind = iota
	KindInterrupted
)

func (k FetchErrorKind) String() string {
	switch k {
	case KindSizeProbe:
		return "size probe"
	case KindInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// FetchError reports a failed fetch of one stream.
//
// Use errors.Is with ErrSizeProbeFailed or ErrTransferInterrupted to test
// the kind, and errors.As to get the URL and byte count.
type FetchError struct {
	Kind    FetchErrorKind
	URL     string
	Written int64
	Err     error
}

func (e *FetchError) Error() string {
	if e.Kind == KindInterrupted {
		return fmt.Sprintf("%s after %d bytes (%s): %v", e.sentinel(), e.Written, e.URL, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.sentinel(), e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error kind.
func (e *FetchError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *FetchError) sentinel() error {
	if e.Kind == KindSizeProbe {
		return ErrSizeProbeFailed
	}
	return ErrTransferInterrupted
}
