// Package http provides the HTTP client shared by site plugins and the
// download engine.
//
// # Basic Usage
//
//	client := http.NewClient()
//
//	// Fetch a page for a plugin to parse
//	html, err := client.GetString(ctx, "https://artist.bandcamp.com/track/name")
//
//	// Probe the size of a stream before downloading it
//	size, err := client.GetFileSize(ctx, streamURL)
//
//	// Stream a body to disk
//	body, err := client.Open(ctx, streamURL)
//
// # Bandwidth
//
// WithRateLimit installs one token bucket shared by every body the client
// returns, so parallel legs of a transfer split the configured rate.
//
// # Timeouts
//
// The client sets no timeout unless WithTimeout is given. Long downloads
// are bounded by the caller's context instead.
package http
