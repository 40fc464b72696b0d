// Package viewer is a small terminal editor that shows a highlighted
// document. Every keystroke becomes an incremental edit, and deferred
// highlighting runs one chunk per message for the lines on screen.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/hilite/internal/editdiff"
	"github.com/zjrosen/hilite/internal/highlight"
	"github.com/zjrosen/hilite/internal/keys"
	"github.com/zjrosen/hilite/internal/log"
	"github.com/zjrosen/hilite/internal/pattern"
	"github.com/zjrosen/hilite/internal/pubsub"
	"github.com/zjrosen/hilite/internal/render"
	"github.com/zjrosen/hilite/internal/style"
	"github.com/zjrosen/hilite/internal/text"
	"github.com/zjrosen/hilite/internal/ui/styles"
	"github.com/zjrosen/hilite/internal/ui/toaster"
)

const (
	toastDuration = 3 * time.Second
	wheelLines    = 3
)

func lineZone(line int) string { return "hilite-line-" + strconv.Itoa(line) }

// PatternReloader recompiles a changed pattern file. ok is false when path
// is not a pattern file the viewer cares about.
type PatternReloader func(path string) (set *pattern.Set, ok bool, err error)

// Config wires a viewer to its document.
type Config struct {
	Path     string
	Buffer   *text.Buffer
	Document *highlight.Document
	Styles   *style.Table

	// Events delivers the document's damage notifications. Optional.
	Events <-chan pubsub.Event[highlight.Damage]
	// Changes delivers batches of changed files from a watcher. Optional.
	Changes <-chan []string
	// Patterns handles changed pattern files. Optional.
	Patterns PatternReloader

	LineNumbers bool
	TabWidth    int
}

// pass2Msg asks for one more chunk of deferred highlighting.
type pass2Msg struct{}

// filesChangedMsg carries one watcher batch.
type filesChangedMsg struct{ paths []string }

// Model is the viewer's Bubble Tea model.
type Model struct {
	ctx   context.Context
	cfg   Config
	keys  keys.KeyMap
	help  help.Model
	toast toaster.Model

	width, height int
	top           int
	cursor        int
	goalCol       int

	modified     bool
	showHelp     bool
	lineNumbers  bool
	pass2Pending bool
}

// New creates a viewer. ctx bounds event listening and highlighting work.
func New(ctx context.Context, cfg Config) Model {
	if cfg.Styles == nil {
		cfg.Styles = style.DefaultTable()
	}
	if zone.DefaultManager == nil {
		zone.NewGlobal()
	}
	return Model{
		ctx:         ctx,
		cfg:         cfg,
		keys:        keys.Viewer,
		help:        help.New(),
		toast:       toaster.New(),
		lineNumbers: cfg.LineNumbers,
	}
}

// Init starts listening. Deferred highlighting starts with the first
// WindowSizeMsg, once the visible region is known.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.listenEvents(), m.listenChanges())
}

func pass2Cmd() tea.Msg { return pass2Msg{} }

func (m Model) listenEvents() tea.Cmd {
	if m.cfg.Events == nil {
		return nil
	}
	return pubsub.ListenCmd(m.ctx, m.cfg.Events)
}

func (m Model) listenChanges() tea.Cmd {
	if m.cfg.Changes == nil {
		return nil
	}
	ch, ctx := m.cfg.Changes, m.ctx
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case paths, ok := <-ch:
			if !ok {
				return nil
			}
			return filesChangedMsg{paths: paths}
		}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.scrollToCursor()
		return m, m.schedulePass2()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case pass2Msg:
		m.pass2Pending = false
		return m.runPass2()

	case pubsub.Event[highlight.Damage]:
		var cmd tea.Cmd
		if msg.Type == pubsub.DisabledEvent {
			cmd = m.showToast(fmt.Sprintf("highlighting disabled: %v", m.cfg.Document.Err()), toaster.StyleError)
		}
		cmd = tea.Batch(cmd, m.listenEvents())
		return m, cmd

	case filesChangedMsg:
		cmd := m.handleChanges(msg.paths)
		cmd = tea.Batch(cmd, m.listenChanges(), m.schedulePass2())
		return m, cmd

	case toaster.DismissMsg:
		m.toast = m.toast.Update(msg)
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	buf := m.cfg.Buffer
	line := buf.LineOfOffset(m.cursor)

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.scrollToCursor()
		return m, nil
	case key.Matches(msg, m.keys.LineNumbers):
		m.lineNumbers = !m.lineNumbers
		return m, nil
	case key.Matches(msg, m.keys.Save):
		cmd := m.save()
		return m, cmd
	case key.Matches(msg, m.keys.Reload):
		var cmd tea.Cmd
		if err := m.cfg.Document.Refresh(m.ctx); err != nil {
			cmd = m.showToast(err.Error(), toaster.StyleError)
		} else {
			cmd = tea.Batch(m.showToast("rehighlighted", toaster.StyleInfo), m.schedulePass2())
		}
		return m, cmd

	case key.Matches(msg, m.keys.Up):
		m.moveToLine(line - 1)
	case key.Matches(msg, m.keys.Down):
		m.moveToLine(line + 1)
	case key.Matches(msg, m.keys.PageUp):
		m.moveToLine(line - m.pageHeight())
	case key.Matches(msg, m.keys.PageDown):
		m.moveToLine(line + m.pageHeight())
	case key.Matches(msg, m.keys.Top):
		m.cursor, m.goalCol = 0, 0
	case key.Matches(msg, m.keys.Bottom):
		m.cursor = buf.Len()
		m.goalCol = m.cursor - buf.LineStart(buf.LineOfOffset(m.cursor))
	case key.Matches(msg, m.keys.Left):
		m.setCursor(m.cursor - 1)
	case key.Matches(msg, m.keys.Right):
		m.setCursor(m.cursor + 1)
	case key.Matches(msg, m.keys.Home):
		m.setCursor(buf.LineStart(line))
	case key.Matches(msg, m.keys.End):
		m.setCursor(buf.LineEnd(line))

	case key.Matches(msg, m.keys.Newline):
		return m.replace(m.cursor, 0, "\n")
	case key.Matches(msg, m.keys.Backspace):
		if m.cursor == 0 {
			return m, nil
		}
		return m.replace(m.cursor-1, 1, "")
	case key.Matches(msg, m.keys.Delete):
		if m.cursor >= buf.Len() {
			return m, nil
		}
		return m.replace(m.cursor, 1, "")

	default:
		switch msg.Type {
		case tea.KeyRunes:
			return m.replace(m.cursor, 0, string(msg.Runes))
		case tea.KeySpace:
			return m.replace(m.cursor, 0, " ")
		case tea.KeyTab:
			return m.replace(m.cursor, 0, "\t")
		}
		return m, nil
	}
	m.scrollToCursor()
	cmd := m.schedulePass2()
	return m, cmd
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress {
		return m, nil
	}
	buf := m.cfg.Buffer
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.top = max(0, m.top-wheelLines)
	case tea.MouseButtonWheelDown:
		m.top = max(0, min(m.top+wheelLines, buf.LineCount()-m.pageHeight()))
	case tea.MouseButtonLeft:
		painter := m.painter()
		for line := m.top; line < min(m.top+m.pageHeight(), buf.LineCount()); line++ {
			z := zone.Get(lineZone(line))
			if z == nil || !z.InBounds(msg) {
				continue
			}
			x, _ := z.Pos(msg)
			m.setCursor(painter.OffsetAt(line, x-painter.GutterWidth()))
			return m, nil
		}
		return m, nil
	default:
		return m, nil
	}
	cmd := m.schedulePass2()
	return m, cmd
}

// replace edits the buffer and reports the edit to the document.
func (m Model) replace(start, oldLen int, s string) (tea.Model, tea.Cmd) {
	e, err := m.cfg.Buffer.Replace(start, oldLen, s)
	if err != nil {
		cmd := m.showToast(err.Error(), toaster.StyleError)
		return m, cmd
	}
	m.modified = true
	m.setCursor(e.NewEnd())
	m.scrollToCursor()

	var cmd tea.Cmd
	if err := m.cfg.Document.Edit(m.ctx, e); err != nil {
		cmd = m.showToast(err.Error(), toaster.StyleError)
	}
	cmd = tea.Batch(cmd, m.schedulePass2())
	return m, cmd
}

func (m *Model) setCursor(off int) {
	buf := m.cfg.Buffer
	m.cursor = max(0, min(off, buf.Len()))
	m.goalCol = m.cursor - buf.LineStart(buf.LineOfOffset(m.cursor))
}

// moveToLine moves to line keeping the goal column where the line allows.
func (m *Model) moveToLine(line int) {
	buf := m.cfg.Buffer
	line = max(0, min(line, buf.LineCount()-1))
	start := buf.LineStart(line)
	m.cursor = start + min(m.goalCol, buf.LineEnd(line)-start)
}

func (m Model) pageHeight() int {
	h := m.height - 1
	if m.showHelp {
		h -= lipgloss.Height(m.help.View(m.keys))
	}
	return max(1, h)
}

func (m *Model) scrollToCursor() {
	line := m.cfg.Buffer.LineOfOffset(m.cursor)
	h := m.pageHeight()
	if line < m.top {
		m.top = line
	}
	if line >= m.top+h {
		m.top = line - h + 1
	}
	m.top = max(0, m.top)
}

// visibleRange is the rune range of the lines on screen.
func (m Model) visibleRange() (int, int) {
	buf := m.cfg.Buffer
	last := min(m.top+m.pageHeight(), buf.LineCount()) - 1
	return buf.LineStart(m.top), buf.LineEnd(max(m.top, last)) + 1
}

func (m *Model) schedulePass2() tea.Cmd {
	if m.pass2Pending {
		return nil
	}
	m.pass2Pending = true
	return pass2Cmd
}

// runPass2 does one chunk and, while the screen is not caught up, asks for
// another. Keystrokes queued meanwhile are handled between chunks.
func (m Model) runPass2() (tea.Model, tea.Cmd) {
	lo, hi := m.visibleRange()
	done, err := m.cfg.Document.RegionVisible(m.ctx, lo, hi)
	var cmd tea.Cmd
	switch {
	case errors.Is(err, context.Canceled):
	case err != nil:
		log.ErrorErr(log.CatUI, "deferred highlighting failed", err, "path", m.cfg.Path)
		cmd = m.showToast(err.Error(), toaster.StyleError)
	case !done:
		cmd = m.schedulePass2()
	}
	return m, cmd
}

func (m *Model) save() tea.Cmd {
	if m.cfg.Path == "" {
		return m.showToast("no file to save to", toaster.StyleWarn)
	}
	if err := os.WriteFile(m.cfg.Path, []byte(m.cfg.Buffer.String()), 0o644); err != nil {
		log.ErrorErr(log.CatUI, "save failed", err, "path", m.cfg.Path)
		return m.showToast(err.Error(), toaster.StyleError)
	}
	m.modified = false
	return m.showToast("saved "+filepath.Base(m.cfg.Path), toaster.StyleSuccess)
}

func (m *Model) showToast(message string, s toaster.Style) tea.Cmd {
	m.toast = m.toast.Show(message, s)
	return m.toast.ScheduleDismiss(toastDuration)
}

// handleChanges reloads the viewed file or the pattern set after a watcher batch.
func (m *Model) handleChanges(paths []string) tea.Cmd {
	var cmds []tea.Cmd
	for _, p := range paths {
		if m.cfg.Path != "" && filepath.Clean(p) == filepath.Clean(m.cfg.Path) {
			cmds = append(cmds, m.reloadFile())
			continue
		}
		if m.cfg.Patterns == nil {
			continue
		}
		set, ok, err := m.cfg.Patterns(p)
		switch {
		case !ok:
		case err != nil:
			cmds = append(cmds, m.showToast(fmt.Sprintf("%s: %v", filepath.Base(p), err), toaster.StyleError))
		default:
			if err := m.cfg.Document.SetPatternSet(m.ctx, set); err != nil {
				cmds = append(cmds, m.showToast(err.Error(), toaster.StyleError))
				continue
			}
			cmds = append(cmds, m.showToast("reloaded "+filepath.Base(p), toaster.StyleInfo))
		}
	}
	return tea.Batch(cmds...)
}

// reloadFile applies the on-disk version as incremental edits, so only the
// changed regions are reclassified.
func (m *Model) reloadFile() tea.Cmd {
	data, err := os.ReadFile(m.cfg.Path)
	if err != nil {
		return m.showToast(err.Error(), toaster.StyleError)
	}
	if m.modified {
		return m.showToast("file changed on disk; keeping local edits", toaster.StyleWarn)
	}
	changes := editdiff.Changes(m.cfg.Buffer.String(), string(data), editdiff.Options{Lines: true, Timeout: time.Second})
	for _, c := range changes {
		e, err := editdiff.Apply(m.cfg.Buffer, c)
		if err != nil {
			return m.showToast(err.Error(), toaster.StyleError)
		}
		if err := m.cfg.Document.Edit(m.ctx, e); err != nil {
			return m.showToast(err.Error(), toaster.StyleError)
		}
	}
	m.setCursor(m.cursor)
	m.scrollToCursor()
	log.Debug(log.CatUI, "reloaded from disk", "path", m.cfg.Path, "edits", len(changes))
	if len(changes) == 0 {
		return nil
	}
	return m.showToast(fmt.Sprintf("reloaded (%d edits)", len(changes)), toaster.StyleInfo)
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	h := m.pageHeight()
	lines := m.painter().Lines(m.top, h)
	for i := range lines {
		lines[i] = zone.Mark(lineZone(m.top+i), lines[i])
	}
	for len(lines) < h {
		lines = append(lines, styles.GutterStyle.Render("~"))
	}

	var b strings.Builder
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n")
	b.WriteString(m.statusBar())
	if m.showHelp {
		b.WriteString("\n")
		b.WriteString(m.help.View(m.keys))
	}
	return zone.Scan(b.String())
}

func (m Model) painter() *render.Painter {
	return render.NewPainter(m.cfg.Buffer, m.cfg.Document, m.cfg.Styles, render.Options{
		TabWidth:    m.cfg.TabWidth,
		Width:       m.width,
		LineNumbers: m.lineNumbers,
		Cursor:      m.cursor,
		Gutter:      styles.GutterStyle,
	})
}

func (m Model) statusBar() string {
	doc := m.cfg.Document
	buf := m.cfg.Buffer

	left := m.toast.View()
	if left == "" {
		name := styles.TruncateString(filepath.Base(m.cfg.Path), 40)
		if m.cfg.Path == "" {
			name = "[scratch]"
		}
		left = name
		if m.modified {
			left += " " + styles.StatusModifiedStyle.Render("[+]")
		}
		if !doc.Enabled() {
			left += " " + styles.StatusDisabledStyle.Render("[highlighting off]")
		}
	}

	mode := "plain"
	if set := doc.PatternSet(); set != nil {
		mode = set.Name()
	}
	line := buf.LineOfOffset(m.cursor)
	right := fmt.Sprintf("%s  %d:%d", mode, line+1, m.cursor-buf.LineStart(line)+1)
	// A toast needs the room more than the progress does.
	if p := styles.FormatProgress(doc.Progress(), buf.Len()); p != "" && !m.toast.Visible() {
		right = styles.StatusPhaseStyle.Render("pass2 "+p) + "  " + right
	}

	inner := max(0, m.width-2)
	left = ansi.Truncate(left, max(0, inner-lipgloss.Width(right)-1), "…")
	gap := max(1, inner-lipgloss.Width(left)-lipgloss.Width(right))
	return styles.StatusBarStyle.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// Modified reports whether the buffer has unsaved edits.
func (m Model) Modified() bool { return m.modified }

// Cursor returns the cursor's rune offset.
func (m Model) Cursor() int { return m.cursor }
