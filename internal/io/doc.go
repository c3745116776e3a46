// Package ioutils provides file system and image helpers used for the
// side files of a download (thumbnails, result playlists).
//
// # File Operations
//
//	err := ioutils.EnsureDir("/path/to/new/directory")
//	err = ioutils.WriteFile("/music/late-night.m3u", content)
//
// # Filename Sanitization
//
//	safe := ioutils.SanitizeFileName("Song: Part 1/2") // Returns "Song_ Part 1_2"
//
// # Image Processing
//
//	svc := ioutils.NewImageService(0)
//	jpg, _ := svc.ToJPEG(webpThumbnail, 500, 500)
package ioutils
