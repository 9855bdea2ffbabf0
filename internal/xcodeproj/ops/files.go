package ops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/domain"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/errors"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/filetype"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/graph"
)

// AddFileRequest describes an AddFile call.
type AddFileRequest struct {
	Path string
	// Target, when set, gets the file joined into its Sources phase.
	Target string
	// Group names an existing group, or a slash-separated chain of groups
	// from the main group. Empty means the main group.
	Group string
}

// AddFile adds a file reference to a group and optionally compiles it into a
// target. Groups are never created implicitly.
func (x *Session) AddFile(ctx context.Context, req AddFileRequest) (*Outcome, error) {
	if err := requireNonEmpty("file path", req.Path); err != nil {
		return nil, err
	}
	s := x.Store

	groupID := s.Project().MainGroup()
	if req.Group != "" {
		g, ok := x.resolveGroup(req.Group)
		if !ok {
			return notFound(KindGroup, req.Group), nil
		}
		groupID = g.ID
	}
	var target graph.Target
	if req.Target != "" {
		t, ok := s.FindTarget(req.Target)
		if !ok {
			return notFound(KindTarget, req.Target), nil
		}
		target = t
	}

	p, anchor := x.placement(groupID, req.Path)
	name := filepath.Base(p)
	ref, exists := x.trackedAt(groupID, p, anchor)
	if !exists {
		id := s.Insert(domain.IsaFileReference, fileFields(p, anchor, filetype.ForFile(ctx, x.abs(req.Path))))
		s.AppendRef(groupID, "children", id)
		ref, _ = s.FileRef(id)
	}

	out := success(KindFile, name)
	out.ID = ref.ID
	out.Target = req.Target
	if target.Object == nil {
		if exists {
			return alreadyExists(KindFile, name), nil
		}
		return out, nil
	}

	phase := x.ensurePhase(target, domain.IsaSourcesPhase, nil)
	if ph, _ := s.Phase(phase); s.Joined(ph, ref.ID) {
		dup := alreadyExists(KindFile, name)
		dup.Target = req.Target
		return dup, nil
	}
	x.join(phase, ref.ID, nil)
	return out, nil
}

// RemoveFileRequest describes a RemoveFile call.
type RemoveFileRequest struct {
	Path           string
	RemoveFromDisk bool
}

// RemoveFile drops a file reference together with every build file joining
// it, and optionally deletes the file. The on-disk delete is staged: the file
// is renamed aside and only removed by Outcome.Commit.
func (x *Session) RemoveFile(_ context.Context, req RemoveFileRequest) (*Outcome, error) {
	if err := requireNonEmpty("file path", req.Path); err != nil {
		return nil, err
	}
	ref, ok := x.findFile(req.Path)
	if !ok {
		return notFound(KindFile, req.Path), nil
	}
	loc := x.location(ref)
	if err := x.Store.Remove(ref.ID); err != nil {
		return nil, err
	}

	out := success(KindFile, req.Path)
	out.ID = ref.ID
	if !req.RemoveFromDisk || loc == "" {
		return out, nil
	}
	if _, err := os.Lstat(loc); err != nil {
		if os.IsNotExist(err) {
			out.Warnings = append(out.Warnings, fmt.Sprintf("%s does not exist on disk", loc))
			return out, nil
		}
		return nil, errors.Wrap(errors.ErrCodeIO, err, "stat %s", loc)
	}
	aside := filepath.Join(filepath.Dir(loc), fmt.Sprintf(".%s.removed-%s", filepath.Base(loc), uuid.NewString()[:8]))
	if err := os.Rename(loc, aside); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "remove %s", loc)
	}
	out.RemovedFromDisk = true
	out.commit = append(out.commit, func() error { return os.RemoveAll(aside) })
	out.rollback = append(out.rollback, func() error { return os.Rename(aside, loc) })
	return out, nil
}

// MoveFileRequest describes a MoveFile call.
type MoveFileRequest struct {
	OldPath    string
	NewPath    string
	MoveOnDisk bool
}

// MoveFile points a file reference at a new path. Build files keep
// referencing it by identifier, so target membership is unaffected.
func (x *Session) MoveFile(_ context.Context, req MoveFileRequest) (*Outcome, error) {
	if err := requireNonEmpty("old path", req.OldPath); err != nil {
		return nil, err
	}
	if err := requireNonEmpty("new path", req.NewPath); err != nil {
		return nil, err
	}
	ref, ok := x.findFile(req.OldPath)
	if !ok {
		return notFound(KindFile, req.OldPath), nil
	}

	oldLoc := x.location(ref)
	group := x.Store.Project().MainGroup()
	if parent, ok := x.Store.ParentGroup(ref.ID); ok {
		group = parent.ID
	}
	p, anchor := x.placement(group, req.NewPath)
	if ref.SourceTree() == domain.SourceTreeSourceRoot && !filepath.IsAbs(req.NewPath) {
		p, anchor = filepath.ToSlash(filepath.Clean(req.NewPath)), domain.SourceTreeSourceRoot
	}
	if other, ok := x.trackedAt(group, p, anchor); ok && other.ID != ref.ID {
		dup := alreadyExists(KindFile, req.NewPath)
		dup.ID = other.ID
		dup.NewPath = req.NewPath
		return dup, nil
	}
	x.setPath(ref, p, anchor)

	out := success(KindFile, req.OldPath)
	out.ID = ref.ID
	out.NewPath = req.NewPath
	if !req.MoveOnDisk {
		return out, nil
	}

	newLoc := x.abs(req.NewPath)
	if oldLoc == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s is not a file in the project tree and cannot be moved on disk", req.OldPath)
	}
	if _, err := os.Lstat(newLoc); err == nil {
		return nil, errors.New(errors.ErrCodeAlreadyExists, "%s already exists on disk", newLoc)
	}
	dir := filepath.Dir(newLoc)
	created, err := mkdirAll(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "create %s", dir)
	}
	if err := os.Rename(oldLoc, newLoc); err != nil {
		removeCreated(created)
		return nil, errors.Wrap(errors.ErrCodeIO, err, "move %s to %s", oldLoc, newLoc)
	}
	out.MovedOnDisk = true
	out.rollback = append(out.rollback, func() error {
		err := os.Rename(newLoc, oldLoc)
		removeCreated(created)
		return err
	})
	return out, nil
}

// mkdirAll creates dir and reports which directories it had to create, the
// outermost first.
func mkdirAll(dir string) ([]string, error) {
	var missing []string
	for cur := dir; ; cur = filepath.Dir(cur) {
		if _, err := os.Stat(cur); err == nil {
			break
		}
		missing = append([]string{cur}, missing...)
		if filepath.Dir(cur) == cur {
			break
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return missing, nil
}

func removeCreated(dirs []string) {
	for i := len(dirs) - 1; i >= 0; i-- {
		_ = os.Remove(dirs[i])
	}
}

// ListFiles lists tracked files. Without a target every file reference is
// listed in navigator order; with one, the files of each of its phases.
func (x *Session) ListFiles(_ context.Context, target string) (*Outcome, error) {
	s := x.Store
	if target == "" {
		out := success(KindFile, "")
		for _, ref := range x.fileRefs() {
			out.Files = append(out.Files, FileEntry{Path: x.displayPath(ref), FileType: ref.FileType()})
		}
		if len(out.Files) == 0 {
			out.Status = StatusEmpty
		}
		return out, nil
	}

	t, ok := s.FindTarget(target)
	if !ok {
		return notFound(KindTarget, target), nil
	}
	out := success(KindFile, "")
	out.Target = target
	for _, id := range t.Phases() {
		phase, err := s.Phase(id)
		if err != nil {
			continue
		}
		for _, bf := range phase.Files() {
			ref, err := s.FileRef(s.Ref(bf, "fileRef"))
			if err != nil {
				continue
			}
			out.Files = append(out.Files, FileEntry{Path: x.displayPath(ref), FileType: ref.FileType(), Phase: phase.Name()})
		}
	}
	if len(out.Files) == 0 {
		out.Status = StatusEmpty
	}
	return out, nil
}

// displayPath is a file's path relative to the source root when it lives in
// the project tree, or its stored path otherwise.
func (x *Session) displayPath(ref graph.FileRef) string {
	loc := x.location(ref)
	if loc == "" {
		return ref.Path()
	}
	if rel, err := filepath.Rel(x.SourceRoot, loc); err == nil && !filepath.IsAbs(rel) && rel != ".." && !startsWithDotDot(rel) {
		return filepath.ToSlash(rel)
	}
	return loc
}

func startsWithDotDot(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
