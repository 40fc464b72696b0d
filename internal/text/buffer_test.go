package text

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuffer_Lines(t *testing.T) {
	b := NewBuffer("ab\ncd\n\nxé")

	require.Equal(t, 9, b.Len())
	require.Equal(t, 4, b.LineCount())
	require.Equal(t, 0, b.LineOfOffset(0))
	require.Equal(t, 0, b.LineOfOffset(2), "the newline belongs to its line")
	require.Equal(t, 1, b.LineOfOffset(3))
	require.Equal(t, 2, b.LineOfOffset(6))
	require.Equal(t, 3, b.LineOfOffset(8))
	require.Equal(t, 3, b.LineOfOffset(9), "end of buffer is on the last line")

	require.Equal(t, 0, b.LineStart(-1))
	require.Equal(t, 3, b.LineStart(1))
	require.Equal(t, 7, b.LineStart(3))
	require.Equal(t, 7, b.LineStart(99))
	require.Equal(t, 5, b.LineEnd(1))
	require.Equal(t, 9, b.LineEnd(3))
}

func TestBuffer_Empty(t *testing.T) {
	b := NewBuffer("")
	require.Equal(t, 0, b.Len())
	require.Equal(t, 1, b.LineCount())
	require.Equal(t, 0, b.LineOfOffset(0))
	require.Equal(t, 0, b.LineStart(0))
}

func TestBuffer_Replace(t *testing.T) {
	b := NewBuffer("x /* y\nz */ w")

	e, err := b.Insert(6, "!")
	require.NoError(t, err)
	require.Equal(t, Edit{Start: 6, OldLen: 0, NewLen: 1}, e)
	require.Equal(t, "x /* y!\nz */ w", b.String())
	require.Equal(t, 8, b.LineStart(1))

	e, err = b.Replace(0, 2, "a\nb\n")
	require.NoError(t, err)
	require.Equal(t, 2, e.Delta())
	require.Equal(t, 2, e.OldEnd())
	require.Equal(t, 4, e.NewEnd())
	require.Equal(t, "a\nb\n/* y!\nz */ w", b.String())
	require.Equal(t, 4, b.LineCount())
	require.Equal(t, 2, b.LineOfOffset(4))

	e, err = b.Delete(0, b.Len())
	require.NoError(t, err)
	require.Equal(t, 0, b.Len())
	require.Equal(t, 1, b.LineCount())
	require.Equal(t, -e.OldLen, e.Delta())

	_, err = b.Replace(1, 0, "x")
	require.Error(t, err)
}

func TestBuffer_ReadRange(t *testing.T) {
	b := NewBuffer("héllo")
	require.Equal(t, "él", b.ReadRange(1, 3))
	require.Equal(t, "héllo", b.ReadRange(-5, 50))
	require.Equal(t, "", b.ReadRange(4, 2))
}
