// Package bandcamp is the Bandcamp site plugin.
//
// Bandcamp serves a single 128 kbit/s MP3 per track, so every media item
// carries exactly one audio stream. Pages are handled as follows:
//
//   - https://artist.bandcamp.com/track/name: one media item with its stream
//   - https://artist.bandcamp.com/album/name: a playlist of the album tracks
//   - https://artist.bandcamp.com or /music: the artist's releases
//
// # Bandcamp Data Format
//
// Album and track pages embed their data as JSON in a data-tralbum
// attribute. ParsePage extracts and decodes it, handling Bandcamp's
// non-standard date format and the string concatenation some pages leave
// in the payload. AlbumURLs scans an artist's music page for releases.
package bandcamp
