package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/hilite/internal/config"
	"github.com/zjrosen/hilite/internal/highlight"
	"github.com/zjrosen/hilite/internal/style"
)

// resetFlags restores every flag so one test's flags do not leak into the next.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

type env struct {
	dir        string
	configPath string
	patterns   string
}

func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	e := env{
		dir:        dir,
		configPath: filepath.Join(dir, "config.yaml"),
		patterns:   filepath.Join(dir, "patterns"),
	}
	require.NoError(t, os.MkdirAll(e.patterns, 0o750))
	require.NoError(t, os.WriteFile(e.configPath, []byte("pattern_dir: "+e.patterns+"\n"), 0o600))
	return e
}

func (e env) file(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (e env) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = config.Config{}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRender_PlainOutput(t *testing.T) {
	e := newEnv(t)
	src := "int x; /* note */\nreturn x;\n"
	path := e.file(t, "main.c", src)

	out, err := e.run(t, "", "render", "--color", "never", path)
	require.NoError(t, err)
	require.Equal(t, src, out, "without color the text passes through unchanged")
}

func TestRender_LineNumbers(t *testing.T) {
	e := newEnv(t)
	path := e.file(t, "main.c", "a\nb\n")

	out, err := e.run(t, "", "render", "--color", "never", "-n", path)
	require.NoError(t, err)
	require.Equal(t, "1 a\n2 b\n", out)
}

func TestRender_Stdin(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "int x;\n", "render", "--color", "never", "-")
	require.ErrorContains(t, err, "--mode is required")

	out, err := e.run(t, "int x;\n", "render", "--color", "never", "--mode", "c", "-")
	require.NoError(t, err)
	require.Equal(t, "int x;\n", out)
}

func TestRender_Errors(t *testing.T) {
	e := newEnv(t)
	path := e.file(t, "main.c", "x\n")

	_, err := e.run(t, "", "render", "--mode", "cobol", path)
	require.ErrorContains(t, err, "unknown language mode")

	_, err = e.run(t, "", "render", "--color", "sometimes", path)
	require.ErrorContains(t, err, "--color")

	_, err = e.run(t, "", "render", filepath.Join(e.dir, "missing.c"))
	require.Error(t, err)
}

func TestCheck_ReportsBadPatternFile(t *testing.T) {
	e := newEnv(t)
	bad := "name: broken\npatterns:\n  - name: Word\n    start: '(unclosed'\n"
	require.NoError(t, os.WriteFile(filepath.Join(e.patterns, "broken.yaml"), []byte(bad), 0o600))

	out, err := e.run(t, "", "check")
	require.ErrorIs(t, err, errCheckFailed)
	require.Contains(t, out, "FAIL  broken")
	require.Contains(t, out, "ok    go")
}

func TestCheck_AllBuiltinsCompile(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "", "check")
	require.NoError(t, err)
	require.Contains(t, out, "ok    c ")
	require.NotContains(t, out, "FAIL")
}

func TestProblemText_WrapsAndIndents(t *testing.T) {
	err := errors.New(strings.Repeat("word ", 40))
	text := problemText(err)
	lines := strings.Split(text, "\n")
	require.Greater(t, len(lines), 1, "long reports wrap")
	for _, line := range lines {
		require.True(t, strings.HasPrefix(line, "      "), "line %q is indented", line)
		require.LessOrEqual(t, len(strings.TrimRight(line, " ")), checkWrap+6)
	}
}

func TestGuide(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "", "guide", "--raw")
	require.NoError(t, err)
	require.Equal(t, guideText, out)

	out, err = e.run(t, "", "guide", "--width", "60")
	require.NoError(t, err)
	require.Contains(t, ansi.Strip(out), "Pattern files")
	require.Contains(t, ansi.Strip(out), "context_lines")

	_, err = e.run(t, "", "guide", "--width", "5")
	require.ErrorContains(t, err, "--width")
}

func TestModes(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "", "modes")
	require.NoError(t, err)
	require.Contains(t, out, "go")
	require.Contains(t, out, "builtin")

	out, err = e.run(t, "", "modes", "--json")
	require.NoError(t, err)
	require.Contains(t, out, `"mode": "yaml"`)
}

func TestReplay_MatchesFullRescan(t *testing.T) {
	e := newEnv(t)
	oldPath := e.file(t, "old.c", "int a; /* one */\nint b;\nchar *s = \"x\";\n")
	newPath := e.file(t, "new.c", "int a; /* one\nint b; */\nchar *s = \"x /* y\";\n")

	out, err := e.run(t, "", "replay", "-v", oldPath, newPath)
	require.NoError(t, err)
	require.Contains(t, out, "window [")
	require.Contains(t, out, "matches a full rescan")

	out, err = e.run(t, "", "replay", "--lines", oldPath, newPath)
	require.NoError(t, err)
	require.Contains(t, out, "matches a full rescan")
}

func TestInit_WritesConfig(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(e.dir, "out", "config.yaml")

	out, err := e.run(t, "", "init", path)
	require.NoError(t, err)
	require.Contains(t, out, "wrote "+path)

	_, err = e.run(t, "", "init", path)
	require.ErrorContains(t, err, "already exists")

	_, err = e.run(t, "", "init", "--force", path)
	require.NoError(t, err)
}

func TestInit_RecordsPatternsAndStyles(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(e.dir, "out", "config.yaml")
	dir := filepath.Join(e.dir, "mine")

	_, err := e.run(t, "", "--patterns", dir, "init", "--styles", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "pattern_dir: "+dir)
	require.Contains(t, string(data), "# hilite configuration", "template comments survive")

	styles, err := config.LoadStyles(path)
	require.NoError(t, err)
	require.Contains(t, styles, "Comment")
	require.Equal(t, style.DefaultTable().Resolve("Keyword"), styles["Keyword"])
}

func TestSetup_RejectsInvalidConfig(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.WriteFile(e.configPath, []byte("log:\n  level: loud\n"), 0o600))
	_, err := e.run(t, "", "modes")
	require.ErrorContains(t, err, "invalid configuration")
}

func TestSetup_StylesKeepCase(t *testing.T) {
	e := newEnv(t)
	conf := "pattern_dir: " + e.patterns + "\nstyles:\n  Keyword: {fg: \"#FF0000\"}\n"
	require.NoError(t, os.WriteFile(e.configPath, []byte(conf), 0o600))

	_, err := e.run(t, "", "modes")
	require.NoError(t, err)
	require.Equal(t, "#FF0000", stylesFor("c").Resolve("Keyword").Foreground)
}

func TestFirstDifference(t *testing.T) {
	a := []highlight.StyledSpan{{Start: 0, End: 3, Style: "Keyword"}, {Start: 3, End: 5, Style: "Plain"}}
	_, ok := firstDifference(a, a)
	require.True(t, ok)

	b := []highlight.StyledSpan{{Start: 0, End: 2, Style: "Keyword"}, {Start: 2, End: 5, Style: "Plain"}}
	off, ok := firstDifference(a, b)
	require.False(t, ok)
	require.Equal(t, 2, off)

	off, ok = firstDifference(a, a[:1])
	require.False(t, ok)
	require.Equal(t, 3, off)
}
