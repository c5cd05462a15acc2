// Package browse is an interactive viewer for parsed TAP documents: a list of
// results on the left and the selected result's diagnostic on the right.
package browse

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"github.com/dkoosis/tapfo/pkg/mapper"
	"github.com/dkoosis/tapfo/pkg/render"
	"github.com/dkoosis/tapfo/pkg/tap"
)

// Run launches the browser and blocks until the user quits.
// The exit code is 1 when any source failed, 0 otherwise.
func Run(ctx context.Context, sources []mapper.Source, theme render.Theme, opts ...tea.ProgramOption) (int, error) {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	program := tea.NewProgram(newModel(sources, theme), opts...)
	if _, err := program.Run(); err != nil {
		return 2, err
	}
	for _, src := range sources {
		if src.Failed() {
			return 1, nil
		}
	}
	return 0, nil
}

// entry is one selectable row: a test result, a bail-out or a parse error.
type entry struct {
	source string
	elem   tap.Element
	err    error
}

func (e entry) failing() bool {
	switch v := e.elem.(type) {
	case *tap.TestResult:
		return !v.Passed() && v.Directive == nil
	case *tap.BailOut:
		return true
	}
	return e.err != nil
}

type styles struct {
	list     lipgloss.Style
	detail   lipgloss.Style
	selected lipgloss.Style
	header   lipgloss.Style
	status   lipgloss.Style
	theme    render.Theme
}

func newStyles(theme render.Theme) styles {
	box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	return styles{
		list:     box.BorderForeground(theme.Muted.GetForeground()),
		detail:   box.BorderForeground(theme.Primary.GetForeground()),
		selected: theme.Bold.Reverse(true),
		header:   theme.Bold.Inherit(theme.Primary),
		status:   theme.Muted,
		theme:    theme,
	}
}

type model struct {
	all         []entry
	visible     []entry
	failedOnly  bool
	selected    int
	viewport    viewport.Model
	styles      styles
	ready       bool
	width       int
	height      int
	listWidth   int
	detailWidth int
}

func newModel(sources []mapper.Source, theme render.Theme) model {
	var all []entry
	for _, src := range sources {
		if src.Doc != nil {
			for _, e := range src.Doc.Elements() {
				switch e.(type) {
				case *tap.TestResult, *tap.BailOut:
					all = append(all, entry{source: src.Name, elem: e})
				}
			}
		}
		if src.Err != nil {
			all = append(all, entry{source: src.Name, err: src.Err})
		}
	}
	m := model{all: all, viewport: viewport.New(0, 0), styles: newStyles(theme)}
	m.applyFilter()
	return m
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
				m.refreshViewport()
			}
		case "down", "j":
			if m.selected < len(m.visible)-1 {
				m.selected++
				m.refreshViewport()
			}
		case "home", "g":
			m.selected = 0
			m.refreshViewport()
		case "end", "G":
			m.selected = max(len(m.visible)-1, 0)
			m.refreshViewport()
		case "f":
			m.failedOnly = !m.failedOnly
			m.applyFilter()
		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.listWidth = min(max(m.longestRow()+6, 24), m.width/2)
		m.detailWidth = m.width - m.listWidth
		m.viewport.Width = max(m.detailWidth-4, 10)
		m.viewport.Height = max(m.height-6, 3)
		m.ready = true
		m.refreshViewport()
	}
	return m, nil
}

func (m *model) applyFilter() {
	visible := make([]entry, 0, len(m.all))
	for _, e := range m.all {
		if !m.failedOnly || e.failing() {
			visible = append(visible, e)
		}
	}
	m.visible = visible
	m.selected = min(m.selected, max(len(m.visible)-1, 0))
	m.refreshViewport()
}

func (m *model) longestRow() int {
	longest := 0
	for _, e := range m.all {
		longest = max(longest, runewidth.StringWidth(rowLabel(e)))
	}
	return longest
}

func (m *model) refreshViewport() {
	if m.selected < 0 || m.selected >= len(m.visible) {
		m.viewport.SetContent("No results")
		return
	}
	m.viewport.SetContent(detail(m.visible[m.selected]))
	m.viewport.GotoTop()
}

func (m model) View() string {
	if !m.ready {
		return "Loading..."
	}
	contentHeight := max(m.height-4, 3)

	list := m.renderList(contentHeight)
	listPanel := m.styles.list.Width(m.listWidth - 2).Height(contentHeight).Render(list)

	var header string
	if m.selected < len(m.visible) {
		header = m.styles.header.Render(m.visible[m.selected].source)
	}
	detailPanel := m.styles.detail.Width(m.detailWidth - 2).Height(contentHeight).
		Render(header + "\n" + m.viewport.View())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, listPanel, detailPanel)

	filter := "all"
	if m.failedOnly {
		filter = "failing"
	}
	help := m.styles.status.Render(fmt.Sprintf("↑/↓ navigate • f filter (%s) • q quit  %d/%d",
		filter, min(m.selected+1, len(m.visible)), len(m.visible)))
	return lipgloss.JoinVertical(lipgloss.Left, panels, help)
}

// renderList shows a window of rows that keeps the selection in view.
func (m model) renderList(height int) string {
	start := 0
	if m.selected >= height {
		start = m.selected - height + 1
	}
	end := min(start+height, len(m.visible))

	lineWidth := max(m.listWidth-6, 10)
	var lines []string
	for i := start; i < end; i++ {
		e := m.visible[i]
		label := runewidth.Truncate(rowLabel(e), lineWidth, "…")
		icon, style := m.icon(e)
		if i == m.selected {
			lines = append(lines, m.styles.selected.Render(runewidth.FillRight(icon+" "+label, lineWidth+2)))
			continue
		}
		lines = append(lines, style.Render(icon)+" "+label)
	}
	return strings.Join(lines, "\n")
}

func (m model) icon(e entry) (string, lipgloss.Style) {
	t := m.styles.theme
	switch v := e.elem.(type) {
	case *tap.TestResult:
		switch {
		case v.HasDirective(tap.DirectiveSkip):
			return t.Icons.Skip, t.Warning
		case v.HasDirective(tap.DirectiveTodo):
			return t.Icons.Todo, t.Muted
		case v.Passed():
			return t.Icons.Pass, t.Success
		default:
			return t.Icons.Fail, t.Error
		}
	case *tap.BailOut:
		return t.Icons.Bail, t.Error
	}
	return t.Icons.Fail, t.Error
}

func rowLabel(e entry) string {
	switch v := e.elem.(type) {
	case *tap.TestResult:
		if v.Description == "" {
			return fmt.Sprintf("%d", v.Number)
		}
		return fmt.Sprintf("%d %s", v.Number, v.Description)
	case *tap.BailOut:
		return "Bail out! " + v.Reason
	}
	return "parse error"
}

// detail renders the right-hand pane for one entry.
func detail(e entry) string {
	var sb strings.Builder
	var diag tap.Diagnostic
	switch v := e.elem.(type) {
	case *tap.TestResult:
		fmt.Fprintf(&sb, "%s %d", v.Status, v.Number)
		if v.Description != "" {
			sb.WriteString(" - " + v.Description)
		}
		sb.WriteString("\n")
		if v.Directive != nil {
			fmt.Fprintf(&sb, "directive: %s %s\n", v.Directive.Kind, v.Directive.Reason)
		}
		if v.Comment != "" {
			sb.WriteString("comment: " + v.Comment + "\n")
		}
		diag = v.Diagnostic()
	case *tap.BailOut:
		sb.WriteString("Bail out! " + v.Reason + "\n")
		diag = v.Diagnostic()
	default:
		sb.WriteString(e.err.Error() + "\n")
	}

	for i, doc := range diag {
		sb.WriteString("\n")
		if i > 0 {
			sb.WriteString("---\n")
		}
		out, err := yaml.Marshal(doc)
		if err != nil {
			fmt.Fprintf(&sb, "%v\n", doc)
			continue
		}
		sb.Write(out)
	}
	return sb.String()
}
