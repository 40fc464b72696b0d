// Package registry maps language modes to pattern sets. Modes come from the
// built-in pattern files and from a user pattern directory whose files
// override built-ins of the same name.
package registry

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	stdpath "path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/zjrosen/hilite/internal/log"
	"github.com/zjrosen/hilite/internal/pattern"
	"github.com/zjrosen/hilite/internal/style"
)

// ErrUnknownMode is returned for a mode no pattern file defines.
var ErrUnknownMode = errors.New("unknown language mode")

// BuiltinSource is the Source of modes shipped with hilite.
const BuiltinSource = "builtin"

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Options configures a Registry.
type Options struct {
	// MatchTimeout bounds each regex search of compiled sets.
	MatchTimeout time.Duration
	// CacheTTL is how long an unused compiled set stays cached.
	CacheTTL time.Duration
	// Styles is the base table mode styles are layered on. Nil uses
	// style.DefaultTable.
	Styles *style.Table
}

type entry struct {
	file   *pattern.File
	source string
}

// Registry resolves language modes. It is safe for concurrent use.
type Registry struct {
	opts  Options
	cache *setCache

	mu    sync.RWMutex
	modes map[string]entry
	exts  map[string]string
}

// New creates an empty registry.
func New(opts Options) *Registry {
	if opts.Styles == nil {
		opts.Styles = style.DefaultTable()
	}
	r := &Registry{
		opts:  opts,
		modes: make(map[string]entry),
		exts:  make(map[string]string),
	}
	r.cache = newSetCache(opts.CacheTTL, r.compile)
	return r
}

// LoadBuiltin registers the pattern files shipped with hilite.
func (r *Registry) LoadBuiltin() error {
	return r.LoadFS(builtinFS, "builtin", BuiltinSource)
}

// LoadDir registers every *.yaml and *.yml file in dir. A missing
// directory is not an error.
func (r *Registry) LoadDir(dir string) error {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		log.Debug(log.CatRegistry, "pattern directory missing", "dir", dir)
		return nil
	}
	return r.LoadFS(os.DirFS(dir), ".", dir)
}

// LoadFS registers the pattern files directly under root in fsys. source
// labels where they came from. Files are only parsed here; compilation is
// deferred until a set is requested.
func (r *Registry) LoadFS(fsys fs.FS, root, source string) error {
	var paths []string
	for _, glob := range []string{"*.yaml", "*.yml"} {
		matches, err := fs.Glob(fsys, stdpath.Join(root, glob))
		if err != nil {
			return fmt.Errorf("list pattern files in %s: %w", source, err)
		}
		paths = append(paths, matches...)
	}
	slices.Sort(paths)

	var errs []error
	for _, p := range paths {
		f, err := pattern.LoadFS(fsys, p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		label := source
		if source != BuiltinSource {
			label = filepath.Join(source, filepath.FromSlash(p))
		}
		r.register(f, label)
	}
	return errors.Join(errs...)
}

// LoadFile parses and compiles one pattern file and swaps it in. The new
// set replaces the cached one only when it compiles; otherwise the previous
// definition stays active. It returns the file's mode.
func (r *Registry) LoadFile(path string) (string, *pattern.Set, error) {
	fh, err := os.Open(path) // #nosec G304 -- path comes from the user's pattern directory
	if err != nil {
		return "", nil, err
	}
	defer func() { _ = fh.Close() }()

	f, err := pattern.Load(fh)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", path, err)
	}
	set, err := f.Compile(r.compileOptions())
	if err != nil {
		return f.Name, nil, err
	}
	r.register(f, path)
	r.cache.Put(f.Name, set)
	log.Info(log.CatRegistry, "pattern file reloaded", "mode", f.Name, "path", path)
	return f.Name, set, nil
}

func (r *Registry) register(f *pattern.File, source string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.modes[f.Name]; ok {
		for ext, mode := range r.exts {
			if mode == f.Name {
				delete(r.exts, ext)
			}
		}
		log.Debug(log.CatRegistry, "mode overridden", "mode", f.Name, "was", prev.source, "now", source)
	}
	r.modes[f.Name] = entry{file: f, source: source}
	for _, ext := range f.Extensions {
		r.exts[normalizeExt(ext)] = f.Name
	}
	r.cache.Delete(f.Name)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Modes returns the registered mode names, sorted.
func (r *Registry) Modes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.modes))
}

// Source returns where mode's pattern file came from.
func (r *Registry) Source(mode string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.modes[mode]
	return e.source, ok
}

// ModeForPath returns the mode registered for path's extension.
func (r *Registry) ModeForPath(path string) (string, bool) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	mode, ok := r.exts[normalizeExt(ext)]
	return mode, ok
}

// PatternSetFor returns the compiled set of mode.
func (r *Registry) PatternSetFor(ctx context.Context, mode string) (*pattern.Set, error) {
	return r.cache.Get(ctx, mode)
}

// StylesFor returns the base style table with mode's styles layered on.
func (r *Registry) StylesFor(mode string) *style.Table {
	r.mu.RLock()
	e, ok := r.modes[mode]
	r.mu.RUnlock()
	if !ok {
		return r.opts.Styles
	}
	return e.file.StyleTable(r.opts.Styles)
}

// Invalidate drops the compiled set of mode so the next request recompiles.
func (r *Registry) Invalidate(mode string) {
	r.cache.Delete(mode)
}

// Check compiles every registered mode and returns the failures by mode.
func (r *Registry) Check(ctx context.Context) map[string]error {
	failures := make(map[string]error)
	for _, mode := range r.Modes() {
		if _, err := r.PatternSetFor(ctx, mode); err != nil {
			failures[mode] = err
		}
	}
	return failures
}

func (r *Registry) compileOptions() pattern.Options {
	return pattern.Options{MatchTimeout: r.opts.MatchTimeout}
}

func (r *Registry) compile(_ context.Context, mode string) (*pattern.Set, error) {
	r.mu.RLock()
	e, ok := r.modes[mode]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return e.file.Compile(r.compileOptions())
}
