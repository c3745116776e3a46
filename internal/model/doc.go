// Package model defines the core data structures shared by the plugins,
// the selector and the download engine.
//
// # Stream
//
// Stream describes one retrievable encoding. Plugins produce them; the
// selector copies the chosen ones into a transfer:
//
//	s := model.Stream{URL: u, Container: "webm", Codec: "opus", Type: model.StreamAudio, Quality: "160k", QualityRank: 160}
//	fmt.Println(s.LegPath("/videos/My_Title")) // /videos/My_Title.webm.audio.opus
//
// # MediaItem
//
// MediaItem is the metadata of one page: title, streams, thumbnails and,
// for collections, a list of Summary entries.
//
// # File names
//
// OutputPrefix builds the extension-less output path from a title:
//
//	model.OutputPrefix("/videos", "Hello, World!") // /videos/Hello_World_
package model
