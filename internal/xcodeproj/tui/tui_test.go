package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/ops"
)

func newModel(t *testing.T) Model {
	t.Helper()
	s, err := ops.NewProjectSkeleton("Demo", "")
	require.NoError(t, err)
	x := ops.NewSession(s, t.TempDir())
	ctx := context.Background()
	_, err = x.AddTarget(ctx, ops.AddTargetRequest{Name: "App", ProductType: "app"})
	require.NoError(t, err)
	_, err = x.CreateGroup(ctx, ops.CreateGroupRequest{Name: "Sources"})
	require.NoError(t, err)
	_, err = x.AddFile(ctx, ops.AddFileRequest{Path: "Sources/main.swift", Target: "App", Group: "Sources"})
	require.NoError(t, err)
	return NewModel(s, "Demo")
}

func TestColumns(t *testing.T) {
	m := newModel(t)
	require.Len(t, m.lists, 3)
	assert.Len(t, m.lists[0].Items(), 1)
	assert.Equal(t, "App", m.lists[0].Items()[0].(item).title)

	var files []string
	for _, it := range m.lists[2].Items() {
		files = append(files, it.(item).title)
	}
	assert.Contains(t, files, "main.swift")
	assert.Contains(t, files, "App.app")
}

func TestDetailsFollowFocus(t *testing.T) {
	m := newModel(t)
	assert.Equal(t, "Loading Demo...", m.View())

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)
	assert.Contains(t, m.viewport.View(), "Sources (PBXSourcesBuildPhase, 1 files)")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = next.(Model)
	assert.Equal(t, 1, m.focused)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	m = next.(Model)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	m = next.(Model)
	assert.Equal(t, 2, m.focused)
	assert.Contains(t, m.viewport.View(), "File type:")
}

func TestFileDetailsListPhases(t *testing.T) {
	m := newModel(t)
	for _, it := range m.lists[2].Items() {
		if it.(item).title == "main.swift" {
			assert.Contains(t, m.renderDetails(it.(item).id), "main.swift in Sources")
			return
		}
	}
	t.Fatal("main.swift not listed")
}
