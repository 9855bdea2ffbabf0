package project

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/errors"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/ops"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/store"
)

func newEditor(t *testing.T) (*Editor, string) {
	t.Helper()
	dir := t.TempDir()
	journal, err := store.NewStore(filepath.Join(dir, ".xcodeproj-mcp"))
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	e := NewEditor(dir, journal)
	_, err = e.CreateProject(context.Background(), ".", "Demo", "Acme")
	require.NoError(t, err)
	return e, dir
}

func addTarget(ctx context.Context, x *ops.Session) (*ops.Outcome, error) {
	return x.AddTarget(ctx, ops.AddTargetRequest{Name: "App", ProductType: "app"})
}

func readProject(t *testing.T, dir string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "Demo.xcodeproj", GraphFile))
	require.NoError(t, err)
	return data
}

func TestLocate(t *testing.T) {
	bundle, file, err := Locate("/src/App.xcodeproj")
	require.NoError(t, err)
	assert.Equal(t, "/src/App.xcodeproj", bundle)
	assert.Equal(t, "/src/App.xcodeproj/project.pbxproj", file)

	bundle, file, err = Locate("/src/App.xcodeproj/project.pbxproj")
	require.NoError(t, err)
	assert.Equal(t, "/src/App.xcodeproj", bundle)
	assert.Equal(t, "/src/App.xcodeproj/project.pbxproj", file)

	_, _, err = Locate("/src/App")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(filepath.Join(dir, "Missing.xcodeproj"))
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))

	bundle := filepath.Join(dir, "Broken.xcodeproj")
	require.NoError(t, os.MkdirAll(bundle, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bundle, GraphFile), []byte("{ objects = {"), 0o644))
	_, err = Open(bundle)
	assert.True(t, errors.Is(err, errors.ErrCodeParse))
}

func TestCreateProject(t *testing.T) {
	e, dir := newEditor(t)

	h, err := Open(filepath.Join(dir, "Demo.xcodeproj"))
	require.NoError(t, err)
	assert.Equal(t, "Demo", h.Name())
	assert.Equal(t, dir, h.SourceRoot)
	assert.Empty(t, h.Store.Targets())

	_, err = e.CreateProject(context.Background(), dir, "Demo", "")
	assert.True(t, errors.Is(err, errors.ErrCodeAlreadyExists))

	hist, err := e.History("Demo.xcodeproj", 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, store.KindCreate, hist[0].Kind)
}

func TestEditPersistsAndJournals(t *testing.T) {
	e, dir := newEditor(t)
	var hashes []string
	e.OnCommit = func(file, hash string) { hashes = append(hashes, hash) }

	out, err := e.Edit(context.Background(), "Demo.xcodeproj", "add_target", addTarget)
	require.NoError(t, err)
	assert.Equal(t, ops.StatusSuccess, out.Status)

	data := readProject(t, dir)
	assert.Contains(t, string(data), "/* App */")
	require.Len(t, hashes, 1)
	assert.Equal(t, store.Hash(data), hashes[0])

	hist, err := e.History("Demo.xcodeproj", 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, store.KindEdit, hist[0].Kind)
	assert.Equal(t, "add_target", hist[0].Tool)
}

func TestEditWithoutChangesLeavesFileAlone(t *testing.T) {
	e, dir := newEditor(t)
	before := readProject(t, dir)

	out, err := e.Edit(context.Background(), "Demo.xcodeproj", "add_build_phase",
		func(ctx context.Context, x *ops.Session) (*ops.Outcome, error) {
			return x.AddBuildPhase(ctx, ops.AddBuildPhaseRequest{Target: "Ghost", Type: "run_script", Script: "echo hi"})
		})
	require.NoError(t, err)
	assert.Equal(t, ops.StatusNotFound, out.Status)
	assert.Equal(t, before, readProject(t, dir))

	_, err = e.Edit(context.Background(), "Demo.xcodeproj", "add_build_phase",
		func(ctx context.Context, x *ops.Session) (*ops.Outcome, error) {
			return x.AddBuildPhase(ctx, ops.AddBuildPhaseRequest{Target: "Ghost", Type: "bogus"})
		})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
	assert.Equal(t, before, readProject(t, dir))

	hist, err := e.History("Demo.xcodeproj", 0)
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

func TestFailedSaveRollsBackDiskChanges(t *testing.T) {
	e, dir := newEditor(t)
	src := filepath.Join(dir, "a.swift")
	require.NoError(t, os.WriteFile(src, []byte("let a = 1\n"), 0o644))
	_, err := e.Edit(context.Background(), "Demo.xcodeproj", "add_file",
		func(ctx context.Context, x *ops.Session) (*ops.Outcome, error) {
			return x.AddFile(ctx, ops.AddFileRequest{Path: "a.swift"})
		})
	require.NoError(t, err)
	before := readProject(t, dir)

	e.save = func(*Handle) ([]byte, error) { return nil, stderrors.New("disk full") }
	_, err = e.Edit(context.Background(), "Demo.xcodeproj", "remove_file",
		func(ctx context.Context, x *ops.Session) (*ops.Outcome, error) {
			return x.RemoveFile(ctx, ops.RemoveFileRequest{Path: "a.swift", RemoveFromDisk: true})
		})
	require.Error(t, err)

	assert.FileExists(t, src)
	assert.Equal(t, before, readProject(t, dir))
}

func TestUndo(t *testing.T) {
	e, dir := newEditor(t)
	original := readProject(t, dir)
	_, err := e.Edit(context.Background(), "Demo.xcodeproj", "add_target", addTarget)
	require.NoError(t, err)

	res, err := e.Undo(context.Background(), "Demo.xcodeproj")
	require.NoError(t, err)
	assert.Equal(t, "add_target", res.Tool)
	assert.Equal(t, original, readProject(t, dir))

	_, err = e.Undo(context.Background(), "Demo.xcodeproj")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}

func TestUndoRefusesExternallyChangedFile(t *testing.T) {
	e, dir := newEditor(t)
	_, err := e.Edit(context.Background(), "Demo.xcodeproj", "add_target", addTarget)
	require.NoError(t, err)

	file := filepath.Join(dir, "Demo.xcodeproj", GraphFile)
	changed := append(readProject(t, dir), '\n')
	require.NoError(t, os.WriteFile(file, changed, 0o644))

	_, err = e.Undo(context.Background(), "Demo.xcodeproj")
	assert.True(t, errors.Is(err, errors.ErrCodeConflict))
	assert.Equal(t, changed, readProject(t, dir))
}

func TestUndoWithoutJournal(t *testing.T) {
	e := NewEditor(t.TempDir(), nil)
	_, err := e.Undo(context.Background(), "Demo.xcodeproj")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	hist, err := e.History("", 0)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestWriteAtomicKeepsMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, WriteAtomic(path, []byte("one"), 0o600))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, WriteAtomic(path, []byte("two"), 0o600))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
