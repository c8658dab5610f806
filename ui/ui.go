// Package ui provides the interactive file picker for one-shot reading.
package ui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/clipspeak/internal/extract"
	"github.com/dustin/go-humanize"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
	"github.com/sahilm/fuzzy"
)

const ellipsis = "…"

// ErrNoFiles is returned by Pick when the directory holds nothing to read.
var ErrNoFiles = errors.New("no readable files found")

type state int

const (
	stateSearching state = iota
	stateReady
	stateFiltering
)

func (s state) String() string {
	return map[state]string{
		stateSearching: "searching",
		stateReady:     "ready",
		stateFiltering: "filtering",
	}[s]
}

type (
	filesFoundMsg []extract.File
	errMsg        struct{ err error }
)

func (e errMsg) Error() string { return e.err.Error() }

type model struct {
	cfg    Config
	state  state
	width  int
	height int
	err    error

	spinner     spinner.Model
	filterInput textinput.Model

	files   []extract.File
	visible []int // indexes into files
	cursor  int
	offset  int

	chosen *extract.File
}

// Pick runs the picker and returns the chosen file. ok is false when the
// user quit without choosing.
func Pick(cfg Config) (file extract.File, ok bool, err error) {
	final, err := tea.NewProgram(newModel(cfg), tea.WithAltScreen()).Run()
	if err != nil {
		return extract.File{}, false, fmt.Errorf("unable to run picker: %w", err)
	}
	m := final.(model)
	if m.err != nil {
		return extract.File{}, false, m.err
	}
	if m.chosen == nil {
		return extract.File{}, false, nil
	}
	return *m.chosen, true, nil
}

func newModel(cfg Config) model {
	if cfg.Dir == "" {
		cfg.Dir = "."
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = subtleStyle

	ti := textinput.New()
	ti.Prompt = "Find: "
	ti.PromptStyle = groupStyle
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(fuchsia)
	ti.CharLimit = 64

	return model{
		cfg:         cfg,
		state:       stateSearching,
		spinner:     sp,
		filterInput: ti,
		width:       80,
		height:      24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, findFiles(m.cfg))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.scroll()
		return m, nil

	case filesFoundMsg:
		if len(msg) == 0 {
			m.err = fmt.Errorf("%w in %s", ErrNoFiles, m.cfg.Dir)
			return m, tea.Quit
		}
		m.files = msg
		m.state = stateReady
		m.applyFilter()
		log.Debug("Picker ready", "files", len(m.files))
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		if m.state != stateSearching {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.state == stateFiltering {
			return m.updateFilter(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		if m.filterInput.Value() != "" {
			m.filterInput.SetValue("")
			m.applyFilter()
			return m, nil
		}
		return m, tea.Quit
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "home", "g":
		m.cursor = 0
		m.scroll()
	case "end", "G":
		m.cursor = max(len(m.visible)-1, 0)
		m.scroll()
	case "/":
		if m.state == stateReady {
			m.state = stateFiltering
			return m, m.filterInput.Focus()
		}
	case "enter":
		return m.choose()
	}
	return m, nil
}

func (m model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filterInput.SetValue("")
		m.filterInput.Blur()
		m.state = stateReady
		m.applyFilter()
		return m, nil
	case "enter", "tab":
		m.filterInput.Blur()
		m.state = stateReady
		if msg.String() == "enter" {
			return m.choose()
		}
		return m, nil
	case "up", "ctrl+k":
		m.move(-1)
		return m, nil
	case "down", "ctrl+j":
		m.move(1)
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m model) choose() (tea.Model, tea.Cmd) {
	if len(m.visible) == 0 {
		return m, nil
	}
	f := m.files[m.visible[m.cursor]]
	m.chosen = &f
	return m, tea.Quit
}

func (m *model) move(delta int) {
	if len(m.visible) == 0 {
		return
	}
	m.cursor = (m.cursor + delta + len(m.visible)) % len(m.visible)
	m.scroll()
}

// scroll keeps the cursor inside the visible window.
func (m *model) scroll() {
	rows := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
}

func (m model) listHeight() int {
	return max(m.height-6, 3)
}

// applyFilter narrows the list to files whose names fuzzy match the filter,
// best match first. An empty filter shows everything grouped by type.
func (m *model) applyFilter() {
	term := strings.TrimSpace(m.filterInput.Value())
	m.visible = m.visible[:0]
	if term == "" {
		for i := range m.files {
			m.visible = append(m.visible, i)
		}
	} else {
		for _, match := range fuzzy.FindFrom(term, fileSource(m.files)) {
			m.visible = append(m.visible, match.Index)
		}
	}
	m.cursor = 0
	m.offset = 0
}

type fileSource []extract.File

func (s fileSource) String(i int) string { return s[i].Name }
func (s fileSource) Len() int            { return len(s) }

func (m model) View() string {
	if m.err != nil {
		return errorView(m.err)
	}

	var b strings.Builder
	b.WriteString("\n  " + logoStyle.Render("clipspeak") + " ")
	switch m.state {
	case stateSearching:
		b.WriteString(m.spinner.View() + subtleStyle.Render(" Looking for files…"))
		return b.String() + "\n"
	default:
		b.WriteString(subtleStyle.Render(fmt.Sprintf("%d files in %s", len(m.files), m.displayDir())))
	}
	b.WriteString("\n\n")

	if m.state == stateFiltering || m.filterInput.Value() != "" {
		b.WriteString("  " + m.filterInput.View() + "\n\n")
	}

	grouped := m.filterInput.Value() == ""
	end := min(m.offset+m.listHeight(), len(m.visible))
	prevExt := ""
	for i := m.offset; i < end; i++ {
		f := m.files[m.visible[i]]
		if grouped && (f.Ext != prevExt || i == m.offset) {
			b.WriteString("  " + groupStyle.Render(groupName(f.Ext)) + "\n")
			prevExt = f.Ext
		}
		b.WriteString(m.itemView(f, i == m.cursor) + "\n")
	}
	if len(m.visible) == 0 {
		b.WriteString(itemStyle.Render(subtleStyle.Render("Nothing matches")) + "\n")
	}

	b.WriteString("\n" + itemStyle.Render(subtleStyle.Render(m.helpView())))
	return b.String()
}

func (m model) itemView(f extract.File, selected bool) string {
	size := humanize.Bytes(uint64(f.Size)) //nolint:gosec
	room := max(m.width-runewidth.StringWidth(size)-8, 10)
	name := truncate.StringWithTail(f.Name, uint(room), ellipsis) //nolint:gosec
	pad := max(room-runewidth.StringWidth(name), 1)
	line := name + strings.Repeat(" ", pad) + subtleStyle.Render(size)
	if selected {
		return "  " + selectedStyle.Render(line)
	}
	return itemStyle.Render(" " + line)
}

func (m model) helpView() string {
	if m.state == stateFiltering {
		return "↑/↓ move • enter read • tab keep filter • esc clear"
	}
	return "↑/↓ move • / find • enter read • q quit"
}

// displayDir shortens the search directory for the header.
func (m model) displayDir() string {
	dir, err := filepath.Abs(m.cfg.Dir)
	if err != nil {
		dir = m.cfg.Dir
	}
	if m.cfg.HomeDir != "" && strings.HasPrefix(dir, m.cfg.HomeDir) {
		dir = "~" + strings.TrimPrefix(dir, m.cfg.HomeDir)
	}
	return dir
}

func groupName(ext string) string {
	name := strings.ToUpper(strings.TrimPrefix(ext, "."))
	if name == "" {
		return "OTHER"
	}
	return name
}

func errorView(err error) string {
	s := fmt.Sprintf("%s\n\n%v\n\n%s",
		errorTitleStyle.Render("ERROR"),
		err,
		subtleStyle.Render("press any key to exit"),
	)
	return "\n" + indent(s, 3)
}

// COMMANDS

func findFiles(cfg Config) tea.Cmd {
	return func() tea.Msg {
		files, err := extract.FindFiles(cfg.Dir, cfg.ShowAllFiles)
		if err != nil {
			log.Error("error finding local files", "error", err)
			return errMsg{err}
		}
		return filesFoundMsg(files)
	}
}

// Lightweight version of reflow's indent function.
func indent(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	l := strings.Split(s, "\n")
	b := strings.Builder{}
	i := strings.Repeat(" ", n)
	for _, v := range l {
		fmt.Fprintf(&b, "%s%s\n", i, v)
	}
	return b.String()
}
