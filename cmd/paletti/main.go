package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/handiism/paletti/internal/app"
	"github.com/handiism/paletti/internal/config"
	"github.com/handiism/paletti/internal/dispatch"
	"github.com/handiism/paletti/internal/download"
	"github.com/handiism/paletti/internal/logging"
	"github.com/handiism/paletti/internal/model"
	"github.com/handiism/paletti/internal/plugin"
)

func main() {
	var (
		urlsFlag      = flag.String("url", "", "URL(s) or search queries, newline-separated")
		outputFlag    = flag.String("output", "", "Output directory (overrides config)")
		configFlag    = flag.String("config", "", "Path to config file (default: user config directory)")
		envFlag       = flag.String("env", ".env", "Path to a .env file with PALETTI_* overrides")
		qualityFlag   = flag.String("quality", "", "Preferred quality, e.g. 1080p, 128k or best")
		containerFlag = flag.String("container", "", "Preferred container, e.g. mp4 or webm")
		audioFlag     = flag.Bool("audio-only", false, "Download only an audio-only stream")
		noAudioFlag   = flag.Bool("no-audio", false, "Skip the separate audio stream")
		subsFlag      = flag.Bool("subtitles", false, "Save subtitles when the site provides them")
		thumbFlag     = flag.Bool("thumbnail", false, "Save the thumbnail next to each download")
		playlistFlag  = flag.Bool("playlist", false, "Write a playlist of the downloaded entries")
		limitFlag     = flag.Int("limit", 0, "Maximum number of search or playlist results")
		verboseFlag   = flag.Bool("verbose", false, "Show verbose output")
		dryRunFlag    = flag.Bool("dry-run", false, "List what would be downloaded without downloading")
	)

	flag.Parse()

	if *urlsFlag == "" && flag.NArg() == 0 {
		fmt.Println("Paletti - Download media from the web")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  paletti -url <URL> [options]")
		fmt.Println("  paletti [options] <URL or query>...")
		fmt.Println()
		fmt.Println("For interactive mode, use: paletti-tui")
		fmt.Println()
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := config.LoadEnv(*envFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading environment: %v\n", err)
		os.Exit(1)
	}

	configPath := *configFlag
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	settings, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := settings.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error in environment: %v\n", err)
		os.Exit(1)
	}

	if *outputFlag != "" {
		settings.DownloadsPath = *outputFlag
	}
	if *qualityFlag != "" {
		settings.DefaultQuality = *qualityFlag
	}
	if *containerFlag != "" {
		settings.DefaultContainer = *containerFlag
	}
	if *subsFlag {
		settings.Subtitles = true
	}
	if *thumbFlag {
		settings.SaveThumbnail = true
	}
	if *verboseFlag {
		settings.Verbose = true
	}

	input := *urlsFlag
	if input == "" {
		input = strings.Join(flag.Args(), "\n")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logging.Must(settings.Verbose)
	defer func() { _ = log.Sync() }()

	out := &console{verbose: settings.Verbose}
	a, err := app.New(settings, log, out.notify)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("🎬 Paletti")
	fmt.Println(strings.Repeat("━", 40))
	fmt.Println()

	entries, err := a.Plan(ctx, input, settings.SearchPlugin, plugin.Options{Limit: *limitFlag})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Println("Nothing to download.")
		return
	}

	if *dryRunFlag {
		fmt.Println("\n[Dry run - not downloading]")
		for _, e := range entries {
			fmt.Printf("  %s\n    %s\n", describe(e), e.URL)
		}
		return
	}

	opts := dispatch.Options{
		Audio:     !*noAudioFlag,
		Video:     !*audioFlag,
		Subtitles: settings.Subtitles,
		Quality:   settings.DefaultQuality,
		Container: settings.DefaultContainer,
	}

	fmt.Printf("\n📥 Downloading %d item(s) to %s\n\n", len(entries), settings.DownloadsPath)

	batch := a.NewBatch()
	runErr := out.run(batch, func() error {
		return batch.Run(ctx, entries, settings.DownloadsPath, opts)
	})

	if *playlistFlag && ctx.Err() == nil {
		path, err := a.WritePlaylist(settings.DownloadsPath, playlistTitle(entries), entries)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing playlist: %v\n", err)
		} else {
			fmt.Printf("Playlist written to %s\n", path)
		}
	}

	received, _, files, totalFiles := batch.Progress()
	switch {
	case errors.Is(runErr, context.Canceled):
		fmt.Println("\nDownload cancelled.")
		os.Exit(130)
	case runErr != nil:
		fmt.Fprintf(os.Stderr, "\nError during download: %v\n", runErr)
	}

	fmt.Println()
	fmt.Println(strings.Repeat("━", 40))
	fmt.Printf("✨ Complete! Downloaded %d/%d files (%.2f MB)\n", files, totalFiles, float64(received)/1024/1024)
	if runErr != nil {
		os.Exit(1)
	}
}

// console prints notices above a byte progress bar.
type console struct {
	verbose bool

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func (c *console) notify(event download.ProgressEvent) {
	if event.Level == download.LevelVerbose && !c.verbose {
		return
	}

	var prefix string
	switch event.Level {
	case download.LevelError:
		prefix = "❌ "
	case download.LevelWarning:
		prefix = "⚠️  "
	case download.LevelSuccess:
		prefix = "✅ "
	case download.LevelInfo:
		prefix = "ℹ️  "
	default:
		prefix = "   "
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bar != nil {
		_ = c.bar.Clear()
	}
	fmt.Println(prefix + event.Message)
}

// run shows the progress of batch while fn runs.
func (c *console) run(batch *app.Batch, fn func() error) error {
	c.mu.Lock()
	c.bar = progressbar.NewOptions64(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowCount(),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Downloading"),
	)
	c.mu.Unlock()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.refresh(batch)
			}
		}
	}()

	err := fn()
	close(done)
	wg.Wait()

	c.mu.Lock()
	_ = c.bar.Finish()
	c.bar = nil
	c.mu.Unlock()
	return err
}

func (c *console) refresh(batch *app.Batch) {
	received, total, files, totalFiles := batch.Progress()

	c.mu.Lock()
	defer c.mu.Unlock()
	if total > 0 {
		c.bar.ChangeMax64(total)
	}
	c.bar.Describe(fmt.Sprintf("Files %d/%d", files, totalFiles))
	_ = c.bar.Set64(received)
}

func describe(e model.Summary) string {
	s := e.Title
	if e.Uploader != "" {
		s = e.Uploader + " - " + s
	}
	if e.Duration > 0 {
		d := time.Duration(e.Duration * float64(time.Second)).Round(time.Second)
		s += fmt.Sprintf(" (%s)", d)
	}
	return s
}

func playlistTitle(entries []model.Summary) string {
	if entries[0].Uploader != "" {
		return entries[0].Uploader
	}
	return "paletti"
}
