// Package audio provides the audio post-processing services: ID3 tag
// writing for finished MP3 downloads and playlist generation for result
// lists.
//
// # ID3 Tagging
//
//	tagger := audio.NewTagger(audio.DefaultTagConfig())
//	err := tagger.SaveTags("/music/Song.mp3", item, artworkJPEG)
//
// The tagger supports artist, album artist, title, year and date, lyrics
// taken from the item description, the source URL as a comment, and
// embedded cover art.
//
// # Playlist Generation
//
//	creator := audio.NewPlaylistCreator(audio.FormatM3U, true) // extended M3U
//	content := creator.CreatePlaylist("Search: ambient", results)
//
// Supported formats:
//   - M3U (with optional extended info)
//   - PLS
//   - WPL (Windows Media Player)
//   - ZPL (Zune Media Player)
package audio
