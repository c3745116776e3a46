package audio

import (
	"fmt"
	"strings"
	"time"

	"github.com/handiism/paletti/internal/model"
)

// PlaylistFormat represents supported playlist file formats.
//
// Each format has different features and compatibility:
//   - M3U: Simple text format, widely supported
//   - PLS: INI-style format, used by Winamp
//   - WPL: XML format, Windows Media Player
//   - ZPL: XML format, Zune/Groove Music
type PlaylistFormat int

const (
	// FormatM3U creates .m3u files (most compatible).
	// Can be extended with EXTINF lines for duration/title info.
	FormatM3U PlaylistFormat = iota

	// FormatPLS creates .pls files (Winamp/SHOUTcast format).
	FormatPLS

	// FormatWPL creates .wpl files (Windows Media Player).
	FormatWPL

	// FormatZPL creates .zpl files (Zune/Groove Music).
	FormatZPL
)

// ParsePlaylistFormat converts a settings value ("m3u", "pls", "wpl",
// "zpl") to a PlaylistFormat.
func ParsePlaylistFormat(s string) (PlaylistFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m3u", "":
		return FormatM3U, nil
	case "pls":
		return FormatPLS, nil
	case "wpl":
		return FormatWPL, nil
	case "zpl":
		return FormatZPL, nil
	}
	return FormatM3U, fmt.Errorf("unknown playlist format %q", s)
}

// Ext returns the file extension of the format, with the dot.
func (f PlaylistFormat) Ext() string {
	switch f {
	case FormatPLS:
		return ".pls"
	case FormatWPL:
		return ".wpl"
	case FormatZPL:
		return ".zpl"
	default:
		return ".m3u"
	}
}

// PlaylistCreator renders search or playlist results as a playlist file
// whose entries point at the source pages.
//
// Example:
//
//	creator := NewPlaylistCreator(FormatM3U, true)
//	content := creator.CreatePlaylist("Late Night", results)
//	os.WriteFile("late-night.m3u", []byte(content), 0644)
//
//	// Result:
//	// #EXTM3U
//	// #EXTINF:180,Artist - Song Title
//	// https://artist.bandcamp.com/track/song-title
type PlaylistCreator struct {
	format   PlaylistFormat
	extended bool // For M3U: include EXTINF lines with duration/title
}

// NewPlaylistCreator creates a new PlaylistCreator. extended only affects
// M3U output.
func NewPlaylistCreator(format PlaylistFormat, extended bool) *PlaylistCreator {
	return &PlaylistCreator{
		format:   format,
		extended: extended,
	}
}

// CreatePlaylist renders entries under the given title.
func (p *PlaylistCreator) CreatePlaylist(title string, entries []model.Summary) string {
	switch p.format {
	case FormatPLS:
		return p.createPLS(entries)
	case FormatWPL:
		return p.createWPL(title, entries)
	case FormatZPL:
		return p.createZPL(title, entries)
	default:
		return p.createM3U(entries)
	}
}

// createM3U generates an M3U playlist, with #EXTINF lines when extended.
func (p *PlaylistCreator) createM3U(entries []model.Summary) string {
	var sb strings.Builder

	if p.extended {
		sb.WriteString("#EXTM3U\n")
	}

	for _, e := range entries {
		if p.extended {
			fmt.Fprintf(&sb, "#EXTINF:%d,%s\n", int(e.Duration), displayName(e))
		}
		sb.WriteString(e.URL + "\n")
	}

	return sb.String()
}

// createPLS generates a PLS playlist:
//
//	[playlist]
//	File1=https://...
//	Title1=Song Title
//	Length1=180
//	NumberOfEntries=1
//	Version=2
func (p *PlaylistCreator) createPLS(entries []model.Summary) string {
	var sb strings.Builder

	sb.WriteString("[playlist]\n")

	for i, e := range entries {
		idx := i + 1
		fmt.Fprintf(&sb, "File%d=%s\n", idx, e.URL)
		fmt.Fprintf(&sb, "Title%d=%s\n", idx, displayName(e))
		// PLS uses -1 for unknown lengths.
		length := int(e.Duration)
		if length <= 0 {
			length = -1
		}
		fmt.Fprintf(&sb, "Length%d=%d\n", idx, length)
	}

	fmt.Fprintf(&sb, "NumberOfEntries=%d\n", len(entries))
	sb.WriteString("Version=2\n")

	return sb.String()
}

func (p *PlaylistCreator) createWPL(title string, entries []model.Summary) string {
	var sb strings.Builder

	sb.WriteString("<?wpl version=\"1.0\"?>\n")
	sb.WriteString("<smil>\n")
	sb.WriteString("  <head>\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", escapeXML(title))
	sb.WriteString("  </head>\n")
	sb.WriteString("  <body>\n")
	sb.WriteString("    <seq>\n")

	for _, e := range entries {
		fmt.Fprintf(&sb, "      <media src=\"%s\"/>\n", escapeXML(e.URL))
	}

	sb.WriteString("    </seq>\n")
	sb.WriteString("  </body>\n")
	sb.WriteString("</smil>\n")

	return sb.String()
}

// createZPL is WPL with per-entry title, artist and duration attributes.
func (p *PlaylistCreator) createZPL(title string, entries []model.Summary) string {
	var sb strings.Builder

	sb.WriteString("<?zpl version=\"2.0\"?>\n")
	sb.WriteString("<smil>\n")
	sb.WriteString("  <head>\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", escapeXML(title))
	sb.WriteString("    <meta name=\"Generator\" content=\"paletti\"/>\n")
	fmt.Fprintf(&sb, "    <meta name=\"ItemCount\" content=\"%d\"/>\n", len(entries))
	sb.WriteString("  </head>\n")
	sb.WriteString("  <body>\n")
	sb.WriteString("    <seq>\n")

	for _, e := range entries {
		duration := time.Duration(e.Duration * float64(time.Second))
		fmt.Fprintf(&sb, "      <media src=\"%s\" trackTitle=\"%s\" trackArtist=\"%s\" duration=\"%d\"/>\n",
			escapeXML(e.URL),
			escapeXML(e.Title),
			escapeXML(e.Uploader),
			duration.Milliseconds())
	}

	sb.WriteString("    </seq>\n")
	sb.WriteString("  </body>\n")
	sb.WriteString("</smil>\n")

	return sb.String()
}

func displayName(e model.Summary) string {
	if e.Uploader == "" {
		return e.Title
	}
	return e.Uploader + " - " + e.Title
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}
