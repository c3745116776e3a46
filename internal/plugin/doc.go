// Package plugin defines the site crawler capability and the registry that
// routes a plugin name or page URL to the crawler handling it.
//
// Plugins are compiled into the binary. A registry is built either from a
// static table:
//
//	deps := plugin.Deps{HTTP: client, Log: log}
//	reg := plugin.NewRegistry(plugin.Static(bandcamp.Handle(deps)), log)
//
// or from a directory of YAML manifests that bind names and hosts to the
// compiled factories:
//
//	reg := plugin.NewRegistry(plugin.DirLoader(dir, factories, deps), log)
//
// Either way the handles are loaded once, on first Resolve.
package plugin
