package ops

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/domain"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/errors"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/graph"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/pbxproj"
)

const buildActionMask = "2147483647"

// abs resolves a caller path against the source root.
func (x *Session) abs(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(x.SourceRoot, p)
}

// groupDir is the directory a group's <group>-relative children live in.
func (x *Session) groupDir(id domain.ObjectID) string {
	gp := x.Store.GroupPath(id)
	if filepath.IsAbs(gp) {
		return gp
	}
	return filepath.Join(x.SourceRoot, gp)
}

// placement returns the path and anchor a file reference in group should
// carry for the caller path p. Paths under the group's directory become
// group-relative; anything else is stored absolute.
func (x *Session) placement(group domain.ObjectID, p string) (string, domain.SourceTree) {
	p = x.abs(p)
	rel, err := filepath.Rel(x.groupDir(group), p)
	if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(rel), domain.SourceTreeGroup
	}
	return filepath.Clean(p), domain.SourceTreeAbsolute
}

// location returns where a file reference points on disk, or "" for anchors
// that are outside the project such as SDKROOT.
func (x *Session) location(ref graph.FileRef) string {
	switch ref.SourceTree() {
	case domain.SourceTreeAbsolute:
		return filepath.Clean(ref.Path())
	case domain.SourceTreeSourceRoot:
		return filepath.Join(x.SourceRoot, ref.Path())
	case domain.SourceTreeGroup:
		if parent, ok := x.Store.ParentGroup(ref.ID); ok {
			return filepath.Join(x.groupDir(parent.ID), ref.Path())
		}
		return filepath.Join(x.SourceRoot, ref.Path())
	}
	return ""
}

// trackedAt returns the file reference a new reference in group with path p
// and anchor would duplicate. Group-relative paths name a different file in
// every group directory, so they are compared by the location they resolve to.
func (x *Session) trackedAt(group domain.ObjectID, p string, anchor domain.SourceTree) (graph.FileRef, bool) {
	if anchor != domain.SourceTreeGroup {
		return x.Store.FindFileReference(p, anchor)
	}
	want := filepath.Join(x.groupDir(group), filepath.FromSlash(p))
	for _, ref := range x.fileRefs() {
		if loc := x.location(ref); loc != "" && loc == want {
			return ref, true
		}
	}
	return graph.FileRef{}, false
}

// fileRefs returns every file reference, navigator order first.
func (x *Session) fileRefs() []graph.FileRef {
	var out []graph.FileRef
	seen := map[domain.ObjectID]bool{}
	x.Store.Walk(func(obj *graph.Object, _ int, _ domain.ObjectID) bool {
		if obj.Isa == domain.IsaFileReference {
			out = append(out, graph.FileRef{Object: obj})
			seen[obj.ID] = true
		}
		return true
	})
	for _, obj := range x.Store.OfType(domain.IsaFileReference) {
		if !seen[obj.ID] {
			out = append(out, graph.FileRef{Object: obj})
		}
	}
	return out
}

// findFile locates a tracked file by the path a caller used for it: either
// the stored path text or the location it resolves to on disk.
func (x *Session) findFile(p string) (graph.FileRef, bool) {
	refs := x.fileRefs()
	clean := filepath.ToSlash(filepath.Clean(p))
	for _, ref := range refs {
		if ref.Path() == p || ref.Path() == clean {
			return ref, true
		}
	}
	want := x.abs(p)
	for _, ref := range refs {
		if loc := x.location(ref); loc != "" && loc == want {
			return ref, true
		}
	}
	return graph.FileRef{}, false
}

// resolveGroup finds a group by name, or by a slash-separated chain of names
// walked from the main group.
func (x *Session) resolveGroup(name string) (graph.Group, bool) {
	if !strings.Contains(name, "/") {
		return x.Store.FindGroup(name, "")
	}
	cur := x.Store.Project().MainGroup()
	var g graph.Group
	for _, seg := range strings.Split(strings.Trim(name, "/"), "/") {
		next, ok := x.Store.FindGroup(seg, cur)
		if !ok {
			return graph.Group{}, false
		}
		g, cur = next, next.ID
	}
	return g, true
}

// fileFields builds the fields of a new file reference.
func fileFields(p string, anchor domain.SourceTree, fileType string) map[string]pbxproj.Value {
	fields := map[string]pbxproj.Value{
		"lastKnownFileType": pbxproj.Str(fileType),
		"path":              pbxproj.Str(p),
		"sourceTree":        pbxproj.Str(string(anchor)),
	}
	if base := path.Base(p); base != p {
		fields["name"] = pbxproj.Str(base)
	}
	return fields
}

// setPath rewrites a file reference's path, keeping name in step with it.
func (x *Session) setPath(ref graph.FileRef, p string, anchor domain.SourceTree) {
	s := x.Store
	s.SetString(ref.ID, "path", p)
	s.SetString(ref.ID, "sourceTree", string(anchor))
	if base := path.Base(p); base != p {
		s.SetString(ref.ID, "name", base)
	} else if ref.Fields.Delete("name") {
		s.Touch(ref.ID)
	}
}

// ensurePhase returns the target's first phase of the given type, creating
// and appending one if there is none.
func (x *Session) ensurePhase(t graph.Target, isa domain.Isa, extra map[string]pbxproj.Value) domain.ObjectID {
	if phases := x.Store.PhasesOf(t, isa); len(phases) > 0 {
		return phases[0].ID
	}
	return x.appendPhase(t, isa, extra)
}

func (x *Session) appendPhase(t graph.Target, isa domain.Isa, extra map[string]pbxproj.Value) domain.ObjectID {
	fields := map[string]pbxproj.Value{
		"buildActionMask":                    pbxproj.Str(buildActionMask),
		"files":                              pbxproj.StrArray(),
		"runOnlyForDeploymentPostprocessing": pbxproj.Str("0"),
	}
	for k, v := range extra {
		fields[k] = v
	}
	id := x.Store.Insert(isa, fields)
	x.Store.AppendRef(t.ID, "buildPhases", id)
	return id
}

// join adds a build file pairing ref with phase.
func (x *Session) join(phase, ref domain.ObjectID, settings *pbxproj.Dict) domain.ObjectID {
	fields := map[string]pbxproj.Value{"fileRef": pbxproj.Str(string(ref))}
	if settings != nil {
		fields["settings"] = settings
	}
	bf := x.Store.Insert(domain.IsaBuildFile, fields)
	x.Store.AppendRef(phase, "files", bf)
	return bf
}

func requireNonEmpty(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New(errors.ErrCodeInvalidInput, "%s is required", field)
	}
	return nil
}
