package graph

import (
	"path"
	"strconv"

	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/domain"
)

// Project is a view of the PBXProject record.
type Project struct{ *Object }

// Project returns the root project record.
func (s *Store) Project() Project { return Project{s.objects[s.rootID]} }

func (p Project) MainGroup() domain.ObjectID {
	return domain.ObjectID(p.Fields.String("mainGroup"))
}

func (p Project) ProductsGroup() domain.ObjectID {
	return domain.ObjectID(p.Fields.String("productRefGroup"))
}

func (p Project) ConfigurationList() domain.ObjectID {
	return domain.ObjectID(p.Fields.String("buildConfigurationList"))
}

// Group is a view of a PBXGroup, PBXVariantGroup or XCVersionGroup record.
type Group struct{ *Object }

// Name returns the group's display name.
func (g Group) Name() string { return displayName(g.Fields) }

func (g Group) Path() string { return g.Fields.String("path") }

func (g Group) Children() []domain.ObjectID { return ids(g.Fields.Strings("children")) }

// FileRef is a view of a PBXFileReference record.
type FileRef struct{ *Object }

func (f FileRef) Path() string { return f.Fields.String("path") }

// Name returns the explicit name, or the last path component.
func (f FileRef) Name() string { return displayName(f.Fields) }

func (f FileRef) SourceTree() domain.SourceTree {
	return domain.SourceTree(f.Fields.String("sourceTree"))
}

// FileType returns the explicit or last-known file type.
func (f FileRef) FileType() string {
	if t := f.Fields.String("explicitFileType"); t != "" {
		return t
	}
	return f.Fields.String("lastKnownFileType")
}

// Target is a view of a PBXNativeTarget or PBXAggregateTarget record.
type Target struct{ *Object }

func (t Target) Name() string { return t.Fields.String("name") }

func (t Target) ProductType() string { return t.Fields.String("productType") }

func (t Target) Phases() []domain.ObjectID { return ids(t.Fields.Strings("buildPhases")) }

// Phase is a view of a build phase record.
type Phase struct{ *Object }

// Name returns the phase name, or the name Xcode shows for its kind.
func (p Phase) Name() string {
	if name := p.Fields.String("name"); name != "" {
		return name
	}
	return p.Isa.DefaultPhaseName()
}

func (p Phase) Files() []domain.ObjectID { return ids(p.Fields.Strings("files")) }

// DstSubfolder returns the dstSubfolderSpec of a copy-files phase.
func (p Phase) DstSubfolder() (domain.DstSubfolder, bool) {
	raw, ok := p.Fields.GetString("dstSubfolderSpec")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return domain.DstSubfolder(n), true
}

func ids(raw []string) []domain.ObjectID {
	out := make([]domain.ObjectID, len(raw))
	for i, r := range raw {
		out[i] = domain.ObjectID(r)
	}
	return out
}

// Group returns a group view.
func (s *Store) Group(id domain.ObjectID) (Group, error) {
	obj, err := s.Get(id, domain.IsaGroup, domain.IsaVariantGroup, domain.IsaVersionGroup)
	return Group{obj}, err
}

// FileRef returns a file reference view.
func (s *Store) FileRef(id domain.ObjectID) (FileRef, error) {
	obj, err := s.Get(id, domain.IsaFileReference)
	return FileRef{obj}, err
}

// Phase returns a build phase view.
func (s *Store) Phase(id domain.ObjectID) (Phase, error) {
	obj, err := s.Get(id, domain.IsaSourcesPhase, domain.IsaFrameworksPhase, domain.IsaResourcesPhase,
		domain.IsaCopyFilesPhase, domain.IsaShellScriptPhase, domain.IsaHeadersPhase)
	return Phase{obj}, err
}

// Target returns a target view.
func (s *Store) Target(id domain.ObjectID) (Target, error) {
	obj, err := s.Get(id, domain.IsaNativeTarget, domain.IsaAggregateTarget)
	return Target{obj}, err
}

// Targets returns the project's targets in declaration order.
func (s *Store) Targets() []Target {
	var out []Target
	for _, id := range ids(s.Project().Fields.Strings("targets")) {
		if obj, ok := s.objects[id]; ok && obj.Isa.IsTarget() {
			out = append(out, Target{obj})
		}
	}
	return out
}

// FindTarget returns the first target with the given name.
func (s *Store) FindTarget(name string) (Target, bool) {
	for _, t := range s.Targets() {
		if t.Name() == name {
			return t, true
		}
	}
	return Target{}, false
}

// PhasesOf returns the target's phases of the given type in order.
func (s *Store) PhasesOf(t Target, isa domain.Isa) []Phase {
	var out []Phase
	for _, id := range t.Phases() {
		if obj, ok := s.objects[id]; ok && obj.Isa == isa {
			out = append(out, Phase{obj})
		}
	}
	return out
}

// Walk visits the navigator tree depth-first from the main group. fn receives
// each element with its depth and parent group; returning false skips the
// element's children.
func (s *Store) Walk(fn func(obj *Object, depth int, parent domain.ObjectID) bool) {
	seen := map[domain.ObjectID]bool{}
	var visit func(id, parent domain.ObjectID, depth int)
	visit = func(id, parent domain.ObjectID, depth int) {
		obj, ok := s.objects[id]
		if !ok || seen[id] {
			return
		}
		seen[id] = true
		if !fn(obj, depth, parent) || !obj.Isa.IsGroup() {
			return
		}
		for _, child := range s.Refs(id, "children") {
			visit(child, id, depth+1)
		}
	}
	visit(s.Project().MainGroup(), "", 0)
}

func groupMatches(g *Object, name string) bool {
	if g.Fields.String("name") == name {
		return true
	}
	return !g.Fields.Has("name") && g.Fields.String("path") == name
}

// FindGroup returns a group by name. With a parent it only considers that
// group's direct children; without one it searches the whole navigator tree,
// in navigator order.
func (s *Store) FindGroup(name string, parent domain.ObjectID) (Group, bool) {
	if parent != "" {
		for _, id := range s.Refs(parent, "children") {
			if obj, ok := s.objects[id]; ok && obj.Isa.IsGroup() && groupMatches(obj, name) {
				return Group{obj}, true
			}
		}
		return Group{}, false
	}
	var found *Object
	s.Walk(func(obj *Object, depth int, _ domain.ObjectID) bool {
		if found != nil {
			return false
		}
		if depth > 0 && obj.Isa.IsGroup() && groupMatches(obj, name) {
			found = obj
			return false
		}
		return true
	})
	if found == nil {
		return Group{}, false
	}
	return Group{found}, true
}

// FindFileReference returns the file reference with exactly this path and
// anchor. References reachable from the main group win over detached ones.
func (s *Store) FindFileReference(p string, anchor domain.SourceTree) (FileRef, bool) {
	match := func(obj *Object) bool {
		return obj.Isa == domain.IsaFileReference &&
			obj.Fields.String("path") == p &&
			domain.SourceTree(obj.Fields.String("sourceTree")) == anchor
	}
	var found *Object
	s.Walk(func(obj *Object, _ int, _ domain.ObjectID) bool {
		if found == nil && match(obj) {
			found = obj
		}
		return found == nil
	})
	if found == nil {
		for _, obj := range s.OfType(domain.IsaFileReference) {
			if match(obj) {
				found = obj
				break
			}
		}
	}
	if found == nil {
		return FileRef{}, false
	}
	return FileRef{found}, true
}

// ParentGroup returns the group listing id among its children.
func (s *Store) ParentGroup(id domain.ObjectID) (Group, bool) {
	for _, obj := range s.OfType(domain.IsaGroup, domain.IsaVariantGroup, domain.IsaVersionGroup) {
		for _, child := range obj.Fields.Strings("children") {
			if child == string(id) {
				return Group{obj}, true
			}
		}
	}
	return Group{}, false
}

// GroupPath returns the on-disk directory a group resolves to, relative to the
// project's source root, by joining the paths of its <group>-anchored
// ancestors.
func (s *Store) GroupPath(id domain.ObjectID) string {
	var parts []string
	for cur := id; cur != ""; {
		obj, ok := s.objects[cur]
		if !ok {
			break
		}
		if p := obj.Fields.String("path"); p != "" {
			parts = append([]string{p}, parts...)
		}
		if domain.SourceTree(obj.Fields.String("sourceTree")) != domain.SourceTreeGroup {
			break
		}
		parent, ok := s.ParentGroup(cur)
		if !ok {
			break
		}
		cur = parent.ID
	}
	return path.Join(parts...)
}

// BuildFilesFor returns the build files joining a file reference to phases.
func (s *Store) BuildFilesFor(ref domain.ObjectID) []*Object {
	var out []*Object
	for _, bf := range s.OfType(domain.IsaBuildFile) {
		if bf.Fields.String("fileRef") == string(ref) {
			out = append(out, bf)
		}
	}
	return out
}

// Joined reports whether the phase already lists a build file for ref.
func (s *Store) Joined(phase Phase, ref domain.ObjectID) bool {
	for _, bf := range phase.Files() {
		if s.Ref(bf, "fileRef") == ref {
			return true
		}
	}
	return false
}
