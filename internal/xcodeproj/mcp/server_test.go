package mcp

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/config"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/errors"
)

func newTestServer(t *testing.T) (*XcodeprojServer, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig
	cfg.DisableWatch = true
	xs, err := NewServer(dir, &cfg, log.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { xs.Close() })
	return xs, dir
}

func connect(t *testing.T, xs *XcodeprojServer) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	st, ct := mcp.NewInMemoryTransports()
	ss, err := xs.Server.Connect(ctx, st, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestToolsEndToEnd(t *testing.T) {
	xs, dir := newTestServer(t)
	cs := connect(t, xs)
	proj := filepath.Join(dir, "Demo.xcodeproj")

	msg, isErr := callTool(t, cs, "create_project", map[string]any{"path": dir, "project_name": "Demo"})
	require.False(t, isErr, msg)
	assert.Contains(t, msg, "Successfully created project 'Demo'")

	msg, _ = callTool(t, cs, "list_targets", map[string]any{"project_path": proj})
	assert.Equal(t, "Targets in Demo.xcodeproj:\nNo targets found in the project.", msg)

	msg, isErr = callTool(t, cs, "add_target", map[string]any{"project_path": proj, "target_name": "App", "product_type": "app"})
	require.False(t, isErr, msg)
	assert.Contains(t, msg, "Successfully created target 'App'")

	msg, _ = callTool(t, cs, "list_targets", map[string]any{"project_path": proj})
	assert.Equal(t, "Targets in Demo.xcodeproj:\n- App (com.apple.product-type.application)", msg)

	t.Run("frameworks", func(t *testing.T) {
		msg, isErr := callTool(t, cs, "add_framework", map[string]any{"project_path": proj, "target_name": "App", "framework_name": "UIKit"})
		require.False(t, isErr, msg)
		assert.Contains(t, msg, "Successfully added framework 'UIKit'")
		assert.NotContains(t, msg, "(embedded)")

		msg, _ = callTool(t, cs, "add_framework", map[string]any{"project_path": proj, "target_name": "App", "framework_name": "UIKit"})
		assert.Contains(t, msg, "already exists")

		msg, _ = callTool(t, cs, "add_framework", map[string]any{"project_path": proj, "target_name": "App", "framework_name": "Custom.framework", "embed": true})
		assert.Contains(t, msg, "(embedded)")

		msg, isErr = callTool(t, cs, "add_framework", map[string]any{"project_path": proj, "target_name": "Ghost", "framework_name": "UIKit"})
		assert.False(t, isErr)
		assert.Contains(t, msg, "not found")
	})

	t.Run("build phases", func(t *testing.T) {
		msg, isErr := callTool(t, cs, "add_build_phase", map[string]any{
			"project_path": proj, "target_name": "App", "phase_name": "SwiftLint",
			"phase_type": "run_script", "script": "if which swiftlint >/dev/null; then\n  swiftlint\nfi\n",
		})
		require.False(t, isErr, msg)
		assert.Contains(t, msg, "Successfully added run_script build phase 'SwiftLint'")

		msg, isErr = callTool(t, cs, "add_build_phase", map[string]any{
			"project_path": proj, "target_name": "App", "phase_type": "link_magic",
		})
		assert.True(t, isErr)
		assert.Contains(t, msg, "unknown phase type")

		msg, isErr = callTool(t, cs, "add_build_phase", map[string]any{
			"project_path": proj, "target_name": "Ghost", "phase_type": "run_script", "script": "true",
		})
		assert.False(t, isErr)
		assert.Contains(t, msg, "not found")
	})

	t.Run("groups", func(t *testing.T) {
		msg, _ := callTool(t, cs, "create_group", map[string]any{"project_path": proj, "group_name": "NewGroup"})
		assert.Contains(t, msg, "Successfully created group 'NewGroup'")
		assert.Contains(t, msg, "main group")

		msg, _ = callTool(t, cs, "create_group", map[string]any{"project_path": proj, "group_name": "ChildGroup", "parent_group": "NewGroup"})
		assert.Contains(t, msg, "Successfully created group 'ChildGroup' in NewGroup")

		msg, _ = callTool(t, cs, "create_group", map[string]any{"project_path": proj, "group_name": "NewGroup"})
		assert.Contains(t, msg, "already exists")

		_, isErr := callTool(t, cs, "create_group", map[string]any{"project_path": proj, "group_name": "X", "parent_group": "Nope"})
		assert.True(t, isErr)
	})

	t.Run("files", func(t *testing.T) {
		src := filepath.Join(dir, "old.swift")
		require.NoError(t, os.WriteFile(src, []byte("let x = 1\n"), 0o644))

		msg, isErr := callTool(t, cs, "add_file", map[string]any{"project_path": proj, "file_path": src, "target_name": "App"})
		require.False(t, isErr, msg)
		assert.Contains(t, msg, "Successfully added file 'old.swift'")

		msg, _ = callTool(t, cs, "move_file", map[string]any{"project_path": proj, "old_path": "old.swift", "new_path": "new.swift"})
		assert.Contains(t, msg, "Successfully moved")
		assert.FileExists(t, src)
		assert.NoFileExists(t, filepath.Join(dir, "new.swift"))

		msg, _ = callTool(t, cs, "move_file", map[string]any{"project_path": proj, "old_path": "missing.swift", "new_path": "x.swift"})
		assert.Contains(t, msg, "File not found")

		msg, _ = callTool(t, cs, "list_files", map[string]any{"project_path": proj, "target_name": "App"})
		assert.Contains(t, msg, "- new.swift")

		msg, _ = callTool(t, cs, "remove_file", map[string]any{"project_path": proj, "file_path": "new.swift"})
		assert.Contains(t, msg, "Successfully removed 'new.swift'")
	})

	t.Run("undo", func(t *testing.T) {
		msg, isErr := callTool(t, cs, "undo_last_edit", map[string]any{"project_path": proj})
		require.False(t, isErr, msg)
		assert.Contains(t, msg, "before the remove_file edit")

		msg, _ = callTool(t, cs, "list_files", map[string]any{"project_path": proj, "target_name": "App"})
		assert.Contains(t, msg, "- new.swift")
	})

	t.Run("history resource", func(t *testing.T) {
		res, err := cs.ReadResource(context.Background(), &mcp.ReadResourceParams{URI: historyURI})
		require.NoError(t, err)
		require.NotEmpty(t, res.Contents)
		assert.Contains(t, res.Contents[0].Text, `"kind": "undo"`)
		assert.Contains(t, res.Contents[0].Text, `"tool": "add_target"`)

		res, err = cs.ReadResource(context.Background(), &mcp.ReadResourceParams{URI: statusURI})
		require.NoError(t, err)
		assert.Contains(t, res.Contents[0].Text, `"status": "healthy"`)
	})
}

func TestMissingProjectIsAnError(t *testing.T) {
	xs, dir := newTestServer(t)
	cs := connect(t, xs)

	msg, isErr := callTool(t, cs, "list_targets", map[string]any{"project_path": filepath.Join(dir, "Nope.xcodeproj")})
	assert.True(t, isErr)
	assert.Contains(t, msg, "project not found")
}

func TestValidateInput(t *testing.T) {
	err := validateInput(AddFrameworkInput{ProjectPath: "A.xcodeproj", TargetName: "App"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
	assert.Equal(t, "framework_name is required", errors.UserMessage(err))

	assert.NoError(t, validateInput(ListTargetsInput{ProjectPath: "A.xcodeproj"}))
}

func TestHandlerRoutes(t *testing.T) {
	xs, _ := newTestServer(t)
	srv := httptest.NewServer(xs.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
