// Package config provides configuration management for paletti.
//
// Settings come from three layers, each overriding the previous one:
//
//  1. DefaultSettings
//  2. a JSON settings file (Load; a missing file keeps the defaults)
//  3. PALETTI_* environment variables (ApplyEnv), optionally loaded from
//     .env files with LoadEnv
//
// Command line flags are applied on top by the binaries.
//
// # Loading
//
//	if err := config.LoadEnv(); err != nil {
//	    return err
//	}
//	settings, err := config.Load(config.DefaultPath())
//	if err != nil {
//	    return err
//	}
//	if err := settings.ApplyEnv(); err != nil {
//	    return err
//	}
//	if err := settings.Validate(); err != nil {
//	    return err
//	}
//
// # Saving Settings
//
//	settings.DownloadsPath = "/srv/media"
//	err := settings.Save(config.DefaultPath())
package config
