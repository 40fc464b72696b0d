package toaster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	m := New()

	assert.False(t, m.Visible())
	assert.Empty(t, m.View())
}

func TestShow(t *testing.T) {
	m := New().Show("Saved", StyleSuccess)

	assert.True(t, m.Visible())
	assert.Contains(t, m.View(), "Saved")
	assert.Contains(t, m.View(), "✅")
}

func TestHide(t *testing.T) {
	m := New().Show("Hello", StyleSuccess).Hide()

	assert.False(t, m.Visible())
	assert.Empty(t, m.View())
}

func TestShow_ReplacesExisting(t *testing.T) {
	m := New().
		Show("First", StyleSuccess).
		Show("Second", StyleError)

	assert.Contains(t, m.View(), "Second")
	assert.Contains(t, m.View(), "❌")
	assert.NotContains(t, m.View(), "First")
}

func TestView_Styles(t *testing.T) {
	assert.Contains(t, New().Show("x", StyleInfo).View(), "ℹ️")
	assert.Contains(t, New().Show("x", StyleWarn).View(), "⚠️")
}

func TestUpdate_DismissesCurrentToast(t *testing.T) {
	m := New().Show("Saved", StyleSuccess)
	msg := m.ScheduleDismiss(time.Millisecond)()

	m = m.Update(msg)
	assert.False(t, m.Visible())
}

func TestUpdate_IgnoresStaleDismiss(t *testing.T) {
	m := New().Show("First", StyleSuccess)
	stale := m.ScheduleDismiss(time.Millisecond)()

	m = m.Show("Second", StyleWarn).Update(stale)
	assert.True(t, m.Visible(), "a dismissal for an older toast must not hide a newer one")
	assert.Contains(t, m.View(), "Second")
}
