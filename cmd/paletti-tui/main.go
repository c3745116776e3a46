package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/handiism/paletti/internal/app"
	"github.com/handiism/paletti/internal/config"
	ioutils "github.com/handiism/paletti/internal/io"
	"github.com/handiism/paletti/internal/logging"
	"github.com/handiism/paletti/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadEnv(); err != nil {
		return err
	}

	path := config.DefaultPath()
	settings, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := settings.ApplyEnv(); err != nil {
		return err
	}

	// The screen belongs to the UI; diagnostics go next to the settings.
	dir := filepath.Dir(path)
	if err := ioutils.EnsureDir(dir); err != nil {
		return err
	}
	log, err := logging.NewFile(filepath.Join(dir, "paletti.log"), settings.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	events := tui.NewEvents()
	a, err := app.New(settings, log, events.Notify)
	if err != nil {
		return err
	}
	return tui.Run(a, events)
}
