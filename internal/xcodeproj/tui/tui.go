// Package tui is a read-only terminal browser over one project.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/domain"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/graph"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/ops"
)

var (
	focusedStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))

	normalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	headingStyle = lipgloss.NewStyle().Bold(true)

	missingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff5555")).
			Bold(true)
)

type item struct {
	title, desc string
	id          domain.ObjectID
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title }

// Model browses targets, groups and files side by side, with details of the
// selected entry below.
type Model struct {
	store *graph.Store
	name  string

	lists    []list.Model
	focused  int
	viewport viewport.Model

	ready  bool
	width  int
	height int
}

// NewModel builds the browser over a loaded store.
func NewModel(s *graph.Store, name string) Model {
	var targets, groups, files []list.Item
	for _, t := range s.Targets() {
		targets = append(targets, item{title: t.Name(), desc: shortType(t.ProductType()), id: t.ID})
	}
	s.Walk(func(obj *graph.Object, depth int, _ domain.ObjectID) bool {
		switch {
		case obj.Isa.IsGroup() && depth > 0:
			g := graph.Group{Object: obj}
			groups = append(groups, item{
				title: strings.Repeat("  ", depth-1) + g.Name(),
				desc:  fmt.Sprintf("%d children", len(g.Children())),
				id:    obj.ID,
			})
		case obj.Isa == domain.IsaFileReference:
			f := graph.FileRef{Object: obj}
			files = append(files, item{title: f.Name(), desc: f.FileType(), id: obj.ID})
		}
		return true
	})

	columns := []struct {
		title string
		items []list.Item
	}{{"Targets", targets}, {"Groups", groups}, {"Files", files}}
	lists := make([]list.Model, len(columns))
	for i, c := range columns {
		lists[i] = list.New(c.items, list.NewDefaultDelegate(), 0, 0)
		lists[i].Title = c.title
		lists[i].SetShowHelp(false)
	}

	return Model{store: s, name: name, lists: lists}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "left", "h":
			m.focused = (m.focused + len(m.lists) - 1) % len(m.lists)
		case "right", "l", "tab":
			m.focused = (m.focused + 1) % len(m.lists)
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height/3)
			m.viewport.YPosition = msg.Height - msg.Height/3
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height / 3
		}

		colWidth := msg.Width / len(m.lists)
		listHeight := msg.Height - m.viewport.Height - 5
		for i := range m.lists {
			m.lists[i].SetSize(colWidth-2, listHeight)
		}
	}

	m.lists[m.focused], cmd = m.lists[m.focused].Update(msg)
	cmds = append(cmds, cmd)

	if selected := m.lists[m.focused].SelectedItem(); selected != nil {
		m.viewport.SetContent(m.renderDetails(selected.(item).id))
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if !m.ready {
		return "Loading " + m.name + "..."
	}

	cols := make([]string, len(m.lists))
	for i, l := range m.lists {
		style := normalStyle
		if i == m.focused {
			style = focusedStyle
		}
		cols[i] = style.Render(l.View())
	}
	board := lipgloss.JoinHorizontal(lipgloss.Left, cols...)
	details := detailStyle.Width(m.width - 4).Render(m.viewport.View())
	return lipgloss.JoinVertical(lipgloss.Left, board, details)
}

func (m Model) renderDetails(id domain.ObjectID) string {
	obj, ok := m.store.Lookup(id)
	if !ok {
		return missingStyle.Render("no longer in the project")
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "ID: %s\nIsa: %s\n", obj.ID, obj.Isa)

	switch {
	case obj.Isa.IsTarget():
		t := graph.Target{Object: obj}
		fmt.Fprintf(&sb, "Product type: %s\n", t.ProductType())
		sb.WriteString("\n" + headingStyle.Render("Build phases") + "\n")
		for _, pid := range t.Phases() {
			phase, err := m.store.Phase(pid)
			if err != nil {
				sb.WriteString(missingStyle.Render("- missing phase "+string(pid)) + "\n")
				continue
			}
			fmt.Fprintf(&sb, "- %s\n", ops.PhaseSummary(phase))
		}
	case obj.Isa.IsGroup():
		g := graph.Group{Object: obj}
		fmt.Fprintf(&sb, "Directory: %s\n", m.store.GroupPath(obj.ID))
		sb.WriteString("\n" + headingStyle.Render("Children") + "\n")
		for _, child := range g.Children() {
			fmt.Fprintf(&sb, "- %s\n", m.store.Annotation(child))
		}
	case obj.Isa == domain.IsaFileReference:
		f := graph.FileRef{Object: obj}
		fmt.Fprintf(&sb, "Path: %s\nSource tree: %s\nFile type: %s\n", f.Path(), f.SourceTree(), f.FileType())
		sb.WriteString("\n" + headingStyle.Render("Built in") + "\n")
		joins := m.store.BuildFilesFor(obj.ID)
		if len(joins) == 0 {
			sb.WriteString("No build phases.\n")
		}
		for _, bf := range joins {
			fmt.Fprintf(&sb, "- %s\n", m.store.Annotation(bf.ID))
		}
	}
	return sb.String()
}

func shortType(productType string) string {
	if i := strings.LastIndex(productType, "."); i >= 0 {
		return productType[i+1:]
	}
	return productType
}
