package project

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/errors"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/logging"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/metrics"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/ops"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/store"
)

// EditFunc runs one operation against a loaded project.
type EditFunc func(ctx context.Context, x *ops.Session) (*ops.Outcome, error)

// Editor serializes load-edit-save cycles. Each call loads the project from
// disk, applies one operation and persists the result only when the graph
// changed. A failed call leaves the project file as it was.
type Editor struct {
	mu sync.Mutex

	// BaseDir resolves relative project paths.
	BaseDir string
	// Journal records committed changes. Nil disables history and undo.
	Journal         *store.Store
	FrameworksGroup string
	// OnCommit is called after a project file was written by this process.
	OnCommit func(file string, hash string)

	save func(h *Handle) ([]byte, error)
}

// NewEditor returns an editor resolving paths against baseDir.
func NewEditor(baseDir string, journal *store.Store) *Editor {
	return &Editor{
		BaseDir:         baseDir,
		Journal:         journal,
		FrameworksGroup: "Frameworks",
		save:            (*Handle).Save,
	}
}

// Locker returns the lock that serializes edits.
func (e *Editor) Locker() sync.Locker { return &e.mu }

// Resolve makes a project path absolute against BaseDir.
func (e *Editor) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(e.BaseDir, p)
}

func (e *Editor) session(h *Handle) *ops.Session {
	x := ops.NewSession(h.Store, h.SourceRoot)
	if e.FrameworksGroup != "" {
		x.FrameworksGroup = e.FrameworksGroup
	}
	return x
}

// View loads a project and runs fn without persisting anything.
func (e *Editor) View(ctx context.Context, path string, fn EditFunc) (*ops.Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, err := Open(e.Resolve(path))
	if err != nil {
		return nil, err
	}
	return fn(ctx, e.session(h))
}

// Edit loads a project, runs fn and saves the graph if fn changed it. Disk
// side effects staged by the operation are committed after the save, or
// rolled back when the save fails.
func (e *Editor) Edit(ctx context.Context, path, tool string, fn EditFunc) (*ops.Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	logger := logging.FromContext(ctx)
	timer := logging.StartTimer(logger)
	h, err := Open(e.Resolve(path))
	if err != nil {
		return nil, err
	}
	out, err := fn(ctx, e.session(h))
	if err != nil {
		return nil, err
	}
	if !h.Store.Dirty() {
		if err := out.Commit(); err != nil {
			out.Warnings = append(out.Warnings, err.Error())
		}
		timer.Done("edit left project unchanged", "tool", tool, "status", out.Status)
		return out, nil
	}

	data, err := e.save(h)
	metrics.RecordWrite(err)
	if err != nil {
		if rbErr := out.Rollback(); rbErr != nil {
			logger.Error("rollback failed", "tool", tool, "project", h.Bundle, "err", rbErr)
		}
		return nil, err
	}
	if err := out.Commit(); err != nil {
		logger.Warn("finishing disk changes failed", "tool", tool, "err", err)
		out.Warnings = append(out.Warnings, err.Error())
	}
	e.committed(ctx, h.Bundle, h.File, tool, store.KindEdit, h.Original, data)
	logger.Info("committed edit", "tool", tool, "project", h.Bundle, "status", out.Status,
		"elapsed", timer.Elapsed().Round(time.Millisecond))
	return out, nil
}

// committed journals a write and notifies OnCommit. Journal failures are
// logged; the write itself already happened.
func (e *Editor) committed(ctx context.Context, bundle, file, tool string, kind store.Kind, before, after []byte) {
	if e.Journal != nil {
		if _, err := e.Journal.Record(bundle, tool, kind, before, after); err != nil {
			logging.FromContext(ctx).Warn("journal write failed", "project", bundle, "err", err)
		}
	}
	if e.OnCommit != nil {
		e.OnCommit(file, store.Hash(after))
	}
}

// CreateProject writes a new bundle named name.xcodeproj in dir.
func (e *Editor) CreateProject(ctx context.Context, dir, name, organization string) (*Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if name == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "project name is required")
	}
	bundle := filepath.Join(e.Resolve(dir), name+BundleExt)
	if _, err := os.Stat(bundle); err == nil {
		return nil, errors.New(errors.ErrCodeAlreadyExists, "%s already exists", bundle)
	}
	s, err := ops.NewProjectSkeleton(name, organization)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(bundle, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "create %s", bundle)
	}
	h := &Handle{
		Bundle:     bundle,
		File:       filepath.Join(bundle, GraphFile),
		SourceRoot: filepath.Dir(bundle),
		Store:      s,
	}
	data, err := e.save(h)
	metrics.RecordWrite(err)
	if err != nil {
		os.RemoveAll(bundle)
		return nil, err
	}
	h.Original = data
	e.committed(ctx, bundle, h.File, "create_project", store.KindCreate, nil, data)
	logging.FromContext(ctx).Info("created project", "project", bundle)
	return h, nil
}

// UndoResult describes a restored edit.
type UndoResult struct {
	Project string
	Tool    string
	At      time.Time
}

// Undo restores the project file to its content before the most recent
// journaled edit. The file must still hold exactly what that edit wrote;
// anything else is a conflict. Disk side effects of the edit, such as moved
// files, are not reverted.
func (e *Editor) Undo(ctx context.Context, path string) (*UndoResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.Journal == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "undo needs the edit journal, which is disabled")
	}
	bundle, file, err := Locate(e.Resolve(path))
	if err != nil {
		return nil, err
	}
	entry, err := e.Journal.LastUndoable(bundle)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read journal")
	}
	if entry == nil {
		return nil, errors.New(errors.ErrCodeNotFound, "no edit to undo for %s", bundle)
	}

	info, err := os.Stat(file)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "stat %s", file)
	}
	current, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read %s", file)
	}
	if store.Hash(current) != entry.AfterHash {
		return nil, errors.New(errors.ErrCodeConflict,
			"%s changed since the %s edit was saved; refusing to overwrite it", GraphFile, entry.Tool)
	}
	err = WriteAtomic(file, entry.Snapshot, info.Mode().Perm())
	metrics.RecordWrite(err)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "write %s", file)
	}

	if _, err := e.Journal.RecordUndo(entry, current, entry.Snapshot); err != nil {
		logging.FromContext(ctx).Warn("journal write failed", "project", bundle, "err", err)
	}
	if e.OnCommit != nil {
		e.OnCommit(file, store.Hash(entry.Snapshot))
	}
	logging.FromContext(ctx).Info("undid edit", "project", bundle, "tool", entry.Tool)
	return &UndoResult{Project: bundle, Tool: entry.Tool, At: entry.CreatedAt}, nil
}

// History lists journal entries for a project, or for every project when
// path is empty.
func (e *Editor) History(path string, limit int) ([]store.Entry, error) {
	if e.Journal == nil {
		return nil, nil
	}
	project := ""
	if path != "" {
		bundle, _, err := Locate(e.Resolve(path))
		if err != nil {
			return nil, err
		}
		project = bundle
	}
	return e.Journal.History(project, limit)
}
