package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/hilite/internal/highlight"
	"github.com/zjrosen/hilite/internal/pattern"
	"github.com/zjrosen/hilite/internal/text"
)

func builtinRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New(Options{})
	require.NoError(t, r.LoadBuiltin())
	return r
}

func TestLoadBuiltin(t *testing.T) {
	r := builtinRegistry(t)
	require.Equal(t, []string{"c", "go", "yaml"}, r.Modes())

	src, ok := r.Source("go")
	require.True(t, ok)
	require.Equal(t, BuiltinSource, src)

	require.Empty(t, r.Check(context.Background()), "every built-in set compiles")
}

func TestModeForPath(t *testing.T) {
	r := builtinRegistry(t)

	tests := []struct {
		path string
		mode string
		ok   bool
	}{
		{"main.go", "go", true},
		{"/src/lib/util.H", "c", true},
		{"config.yml", "yaml", true},
		{"README", "", false},
		{"notes.txt", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			mode, ok := r.ModeForPath(tt.path)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.mode, mode)
		})
	}
}

func TestPatternSetFor_Cached(t *testing.T) {
	r := builtinRegistry(t)
	ctx := context.Background()

	first, err := r.PatternSetFor(ctx, "c")
	require.NoError(t, err)
	second, err := r.PatternSetFor(ctx, "c")
	require.NoError(t, err)
	require.Same(t, first, second, "compiled sets are shared")
	require.Equal(t, 1, r.cache.Len())

	r.Invalidate("c")
	third, err := r.PatternSetFor(ctx, "c")
	require.NoError(t, err)
	require.NotSame(t, first, third)
}

func TestPatternSetFor_UnknownMode(t *testing.T) {
	_, err := builtinRegistry(t).PatternSetFor(context.Background(), "cobol")
	require.ErrorIs(t, err, ErrUnknownMode)
}

func TestBuiltinGoHighlighting(t *testing.T) {
	r := builtinRegistry(t)
	set, err := r.PatternSetFor(context.Background(), "go")
	require.NoError(t, err)

	src := "func main() { s := \"a\\n\" } // TODO"
	doc, err := highlight.NewScheduler(highlight.Config{Styles: r.StylesFor("go")}).
		Open(context.Background(), text.NewBuffer(src), set)
	require.NoError(t, err)
	require.True(t, doc.Enabled())

	require.Equal(t, "Keyword", doc.StyleAt(0))
	require.Equal(t, "Function", doc.StyleAt(5))
	require.Equal(t, "String", doc.StyleAt(19))
	require.Equal(t, "Escape", doc.StyleAt(21))
	require.Equal(t, "Comment", doc.StyleAt(len(src)-1))

	// Function comes from the mode's own styles.
	require.True(t, r.StylesFor("go").Has("Function"))
	require.False(t, r.StylesFor("c").Has("Function"))
}

func TestLoadDir_OverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	custom := `
name: go
extensions: [".go", ".gotmpl"]
patterns:
  - name: Plain
  - name: Keyword
    start: '\bfunc\b'
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.yaml"), []byte(custom), 0o600))

	r := builtinRegistry(t)
	ctx := context.Background()
	before, err := r.PatternSetFor(ctx, "go")
	require.NoError(t, err)

	require.NoError(t, r.LoadDir(dir))
	src, _ := r.Source("go")
	require.Equal(t, filepath.Join(dir, "go.yaml"), src)

	after, err := r.PatternSetFor(ctx, "go")
	require.NoError(t, err)
	require.NotSame(t, before, after, "override drops the cached built-in")
	require.Equal(t, 2, after.Len())

	mode, ok := r.ModeForPath("page.gotmpl")
	require.True(t, ok)
	require.Equal(t, "go", mode)
}

func TestLoadDir_Missing(t *testing.T) {
	r := New(Options{})
	require.NoError(t, r.LoadDir(filepath.Join(t.TempDir(), "nope")))
	require.Empty(t, r.Modes())
}

func TestLoadFS_ReportsBadFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"good.yaml": {Data: []byte("name: good\npatterns:\n  - name: Plain\n")},
		"bad.yml":   {Data: []byte("name: [oops\n")},
	}
	r := New(Options{})
	err := r.LoadFS(fsys, ".", "mem")
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad.yml")
	require.Equal(t, []string{"good"}, r.Modes(), "good files still load")
}

func TestLoadFile_KeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mini.yaml")
	good := "name: mini\nextensions: [mini]\npatterns:\n  - name: Plain\n  - name: Word\n    start: 'x'\n"
	require.NoError(t, os.WriteFile(path, []byte(good), 0o600))

	r := New(Options{})
	mode, set, err := r.LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "mini", mode)
	cached, err := r.PatternSetFor(context.Background(), "mini")
	require.NoError(t, err)
	require.Same(t, set, cached)

	bad := "name: mini\npatterns:\n  - name: Plain\n  - name: Word\n    start: '('\n"
	require.NoError(t, os.WriteFile(path, []byte(bad), 0o600))
	mode, set, err = r.LoadFile(path)
	require.Equal(t, "mini", mode)
	require.Nil(t, set)
	var cfgErr *pattern.ConfigError
	require.ErrorAs(t, err, &cfgErr)

	still, err := r.PatternSetFor(context.Background(), "mini")
	require.NoError(t, err)
	require.Same(t, cached, still)
	m, ok := r.ModeForPath("a.mini")
	require.True(t, ok)
	require.Equal(t, "mini", m)
}
