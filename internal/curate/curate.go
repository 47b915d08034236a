// Package curate is the interactive dictionary editor: it lets a person
// fill in target names and official descriptions before generation.
package curate

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ddlconv/ddlconv/internal/dictionary"
)

type editField int

const (
	editNone editField = iota
	editTarget
	editOfficial
)

// Model is the bubbletea model of the dictionary editor.
type Model struct {
	title     string
	rows      []dictionary.Entry
	cursor    int
	editing   editField
	input     textinput.Model
	status    string
	statusErr bool
	dirty     bool
	done      bool
	cancelled bool
	width     int
	height    int
}

// New creates an editor over rows. Rows carrying the removal marker are
// shown but cannot be edited.
func New(title string, rows []dictionary.Entry) Model {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Prompt = "> "

	out := make([]dictionary.Entry, len(rows))
	copy(out, rows)
	return Model{
		title:  title,
		rows:   out,
		input:  ti,
		width:  100,
		height: 24,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.editing != editNone {
			return m.updateEditing(msg)
		}
		return m.updateBrowsing(msg)
	}
	return m, nil
}

func (m Model) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		m.done = true
		m.cancelled = true
		return m, tea.Quit

	case "j", "down":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}

	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}

	case "n": // next incomplete row
		if len(m.rows) == 0 {
			return m, nil
		}
		for i := 1; i <= len(m.rows); i++ {
			j := (m.cursor + i) % len(m.rows)
			if incomplete(m.rows[j]) {
				m.cursor = j
				break
			}
		}

	case "e", "enter":
		return m.startEdit(editTarget)

	case "o":
		return m.startEdit(editOfficial)

	case "a": // fill empty targets with the lower-cased source name
		filled := 0
		for i := range m.rows {
			if incomplete(m.rows[i]) {
				m.rows[i].TargetName = strings.ToLower(m.rows[i].SourceColumn)
				filled++
			}
		}
		if filled > 0 {
			m.dirty = true
		}
		m.setStatus(fmt.Sprintf("filled %d target name(s)", filled), false)

	case "s":
		if n := m.Pending(); n > 0 {
			m.setStatus(fmt.Sprintf("%d row(s) still without rename_to", n), true)
			return m, nil
		}
		if dup := duplicateTarget(m.rows); dup != "" {
			m.setStatus(fmt.Sprintf("target name %q used more than once", dup), true)
			return m, nil
		}
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) startEdit(field editField) (tea.Model, tea.Cmd) {
	if len(m.rows) == 0 {
		return m, nil
	}
	row := m.rows[m.cursor]
	if row.Removed() {
		m.setStatus("removed columns cannot be edited", true)
		return m, nil
	}
	m.editing = field
	m.status = ""
	if field == editTarget {
		m.input.SetValue(row.TargetName)
		m.input.Placeholder = strings.ToLower(row.SourceColumn)
	} else {
		m.input.SetValue(row.OfficialDescription)
		m.input.Placeholder = row.SourceDescription
	}
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		m.editing = editNone
		m.input.Blur()
		return m, nil

	case "enter":
		value := strings.TrimSpace(m.input.Value())
		if m.editing == editTarget {
			if value == "" {
				value = m.input.Placeholder
			}
			if strings.ContainsAny(value, " \t") {
				m.setStatus("target names cannot contain spaces", true)
				return m, nil
			}
			m.rows[m.cursor].TargetName = value
		} else {
			m.rows[m.cursor].OfficialDescription = value
		}
		m.dirty = true
		m.editing = editNone
		m.input.Blur()
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.status = msg
	m.statusErr = isErr
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Dictionary: "+m.title) + "\n\n")

	if len(m.rows) == 0 {
		b.WriteString("  No dictionary rows.\n\n")
		b.WriteString(dimStyle.Render("  q quit\n"))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  %-24s %-24s %-12s %s\n", "coluna_mf", "rename_to", "tipo", "descricao_oficial"))
	b.WriteString("  " + strings.Repeat("─", 80) + "\n")

	maxVisible := m.height - 12
	if maxVisible < 5 {
		maxVisible = 5
	}
	start := 0
	if m.cursor >= maxVisible {
		start = m.cursor - maxVisible + 1
	}
	end := min(start+maxVisible, len(m.rows))

	for i := start; i < end; i++ {
		row := m.rows[i]
		cursor := "  "
		if i == m.cursor {
			cursor = highlightStyle.Render("> ")
		}
		target := row.TargetName
		if target == "" {
			target = warnStyle.Render(fmt.Sprintf("%-24s", "(pending)"))
		} else {
			target = fmt.Sprintf("%-24s", target)
		}
		line := fmt.Sprintf("%-24s %s %-12s %s", row.SourceColumn, target, row.SourceType, truncate(row.OfficialDescription, 40))
		if row.Removed() {
			line = dimStyle.Render(line)
		}
		b.WriteString(cursor + line + "\n")
	}

	b.WriteString("\n")
	if m.editing != editNone {
		label := "rename_to"
		if m.editing == editOfficial {
			label = "descricao_oficial"
		}
		b.WriteString(fmt.Sprintf("  %s of %s\n  %s\n\n", label, m.rows[m.cursor].SourceColumn, m.input.View()))
		b.WriteString(dimStyle.Render("  enter confirm • esc cancel edit\n"))
		return b.String()
	}

	if pending := m.Pending(); pending > 0 {
		b.WriteString(warnStyle.Render(fmt.Sprintf("  %d row(s) pending", pending)) + "\n")
	} else {
		b.WriteString(successStyle.Render("  all rows have a target name") + "\n")
	}
	if m.status != "" {
		style := successStyle
		if m.statusErr {
			style = errStyle
		}
		b.WriteString("  " + style.Render(m.status) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  e edit name • o edit description • n next pending • a auto-fill • s save • q cancel\n"))
	return b.String()
}

// Result returns the edited rows, or nil when the editor was cancelled.
func (m Model) Result() []dictionary.Entry {
	if m.cancelled {
		return nil
	}
	out := make([]dictionary.Entry, len(m.rows))
	copy(out, m.rows)
	return out
}

// Pending counts the editable rows still without a target name.
func (m Model) Pending() int {
	n := 0
	for _, r := range m.rows {
		if incomplete(r) {
			n++
		}
	}
	return n
}

// Dirty reports whether any row was changed.
func (m Model) Dirty() bool {
	return m.dirty
}

// Done returns true if the model has finished.
func (m Model) Done() bool {
	return m.done
}

// Cancelled returns true if the user cancelled.
func (m Model) Cancelled() bool {
	return m.done && m.cancelled
}

func incomplete(e dictionary.Entry) bool {
	return !e.Removed() && strings.TrimSpace(e.TargetName) == ""
}

func duplicateTarget(rows []dictionary.Entry) string {
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		if r.Removed() {
			continue
		}
		key := strings.ToLower(r.TargetName)
		if seen[key] {
			return r.TargetName
		}
		seen[key] = true
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
