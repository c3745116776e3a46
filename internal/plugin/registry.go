package plugin

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrPluginNotFound matches every NotFoundError.
var ErrPluginNotFound = errors.New("plugin not found")

// NotFoundError is returned by Resolve when nothing matches the input.
type NotFoundError struct {
	Input string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no plugin for %q", e.Input)
}

// Is matches ErrPluginNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrPluginNotFound
}

// Loader produces the handles of a registry. It runs once.
type Loader func() ([]Handle, error)

// Static returns a Loader over a fixed table of handles.
func Static(handles ...Handle) Loader {
	return func() ([]Handle, error) {
		out := make([]Handle, len(handles))
		copy(out, handles)
		return out, nil
	}
}

// Registry maps plugin names and hostnames to plugin handles.
//
// The loader runs on first use, exactly once, even under concurrent
// callers. After that the registry is read-only.
//
// Example:
//
//	reg := plugin.NewRegistry(plugin.Static(bandcampHandle), log)
//	h, err := reg.Resolve("https://artist.bandcamp.com/track/song")
//	if errors.Is(err, plugin.ErrPluginNotFound) {
//	    // unsupported site
//	}
type Registry struct {
	load Loader
	log  *zap.Logger

	once    sync.Once
	loadErr error
	byName  map[string]*Handle
	ordered []*Handle
}

// NewRegistry creates a registry backed by load.
func NewRegistry(load Loader, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{load: load, log: log}
}

func (r *Registry) init() {
	r.once.Do(func() {
		r.byName = make(map[string]*Handle)
		if r.load == nil {
			return
		}

		handles, err := r.load()
		if err != nil {
			r.loadErr = fmt.Errorf("load plugins: %w", err)
			return
		}

		for i := range handles {
			h := &handles[i]
			switch {
			case h.Name == "":
				r.log.Warn("skipping plugin without a name", zap.Strings("hosts", h.Hosts))
				continue
			case h.Plugin == nil:
				r.log.Warn("skipping plugin without an implementation", zap.String("plugin", h.Name))
				continue
			}
			if _, dup := r.byName[h.Name]; dup {
				r.log.Warn("skipping duplicate plugin", zap.String("plugin", h.Name))
				continue
			}
			r.byName[h.Name] = h
			r.ordered = append(r.ordered, h)
		}

		r.log.Debug("plugins loaded", zap.Int("count", len(r.ordered)))
	})
}

// Resolve returns the plugin registered under nameOrURL, or the first
// plugin whose hosts match the hostname of nameOrURL when it is a URL.
func (r *Registry) Resolve(nameOrURL string) (*Handle, error) {
	r.init()
	if r.loadErr != nil {
		return nil, r.loadErr
	}

	if h, ok := r.byName[strings.TrimSpace(nameOrURL)]; ok {
		return h, nil
	}

	if host, ok := hostname(nameOrURL); ok {
		for _, h := range r.ordered {
			if h.MatchesHost(host) {
				return h, nil
			}
		}
	}

	return nil, &NotFoundError{Input: nameOrURL}
}

// Handles returns the loaded handles sorted by name.
func (r *Registry) Handles() ([]Handle, error) {
	r.init()
	if r.loadErr != nil {
		return nil, r.loadErr
	}

	out := make([]Handle, 0, len(r.ordered))
	for _, h := range r.ordered {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
