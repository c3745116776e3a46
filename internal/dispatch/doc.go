// Package dispatch is the public surface of the download engine.
//
// A Dispatcher resolves the plugin for a page URL, consults the metadata
// cache, selects streams and builds transfers:
//
//	item, err := d.Metadata(ctx, "https://artist.bandcamp.com/track/song")
//	audio, video, err := d.Streams(ctx, url, "720p", "mp4")
//	t, err := d.Download(ctx, url, "/music", dispatch.Options{Audio: true, Quality: "best"})
//
// User-facing notices (fallbacks, missing streams, post-processing
// failures) go to the download.Notifier given with WithNotifier.
package dispatch
