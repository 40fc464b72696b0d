package pattern

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/hilite/internal/style"
)

const cFile = `
name: c
extensions: [".c", ".h"]
styles:
  Comment: {fg: "8", italic: true}
patterns:
  - name: Plain
  - name: Comment
    kind: range
    start: '/\*'
    end: '\*/'
    context_lines: 1
  - name: Number
    start: '\b\d+\b'
    pass: 2
`

func TestLoad(t *testing.T) {
	f, err := Load(strings.NewReader(cFile))
	require.NoError(t, err)
	require.Equal(t, "c", f.Name)
	require.Equal(t, []string{".c", ".h"}, f.Extensions)
	require.Len(t, f.Patterns, 3)
	require.Equal(t, KindRange, f.Patterns[1].Kind)
	require.Equal(t, Pass2, f.Patterns[2].Pass)
	require.Equal(t, 1, f.Patterns[1].ContextLines)

	set, err := f.Compile(Options{})
	require.NoError(t, err)
	require.Len(t, set.TopLevel(Pass1), 1)

	table := f.StyleTable(style.DefaultTable())
	require.Equal(t, style.Attributes{Foreground: "8", Italic: true}, table.Resolve("Comment"))
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(strings.NewReader("patterns: []"))
	require.ErrorContains(t, err, "name is required")

	_, err = Load(strings.NewReader("name: x\nbogus: 1"))
	require.Error(t, err, "unknown fields are rejected")

	_, err = Load(strings.NewReader("name: [unterminated"))
	require.Error(t, err)
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{"sets/c.yaml": {Data: []byte(cFile)}}

	f, err := LoadFS(fsys, "sets/c.yaml")
	require.NoError(t, err)
	require.Equal(t, "c", f.Name)

	_, err = LoadFS(fsys, "sets/missing.yaml")
	require.Error(t, err)
}
