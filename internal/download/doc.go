// Package download provides the download engine: a chunked fetcher for a
// single stream and a Transfer that runs the audio and video legs of one
// media item concurrently.
//
// # Fetcher
//
// The Fetcher writes one stream to one file:
//
//  1. Resolve the total size with a metadata-only request
//  2. Create the destination file
//  3. Stream the body in fixed-size chunks (direct mode), or request
//     sequential byte-range segments (segmented mode)
//  4. Report the exact byte count of every chunk
//
// # Transfer
//
// A Transfer moves through idle, active and then finished or cancelled:
//
//	t, err := download.NewTransfer(ctx, fetcher, prefix, []*model.Stream{audio, video}, func(prefix string) {
//	    // merge the legs
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := t.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	err = t.Wait()
//
// # Cancellation
//
// Cancel is advisory. Workers poll the flag between chunks and segments,
// so a leg may write one more chunk after Cancel returns. A leg whose
// request breaks off because the context passed to Start is done counts
// as cancelled too, not as failed. Partial files
// are never removed. Wait joins the workers when a caller needs to know
// they have stopped.
//
// # Progress Tracking
//
// Progress returns the bytes written across all legs and the total size.
// Bytes from the two legs interleave in no particular order. User-facing
// notices use ProgressEvent, the same callback shape the dispatcher uses.
package download
