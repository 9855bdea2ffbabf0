package graph

import (
	"fmt"

	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/domain"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/pbxproj"
)

// Comment implements pbxproj.Annotator.
//
// Parsed tokens keep the comment they were read with, unless the record they
// name changed in this session, in which case the comment is recomputed.
// Tokens created in this session are annotated when they name an object in an
// object key, in a reference field, or in rootObject.
func (s *Store) Comment(field string, str *pbxproj.String) string {
	obj, ok := s.objects[domain.ObjectID(str.Text)]
	if !ok {
		return str.Comment
	}
	if str.Parsed() {
		if str.Comment == "" || !s.stale(obj) {
			return str.Comment
		}
		if c := s.annotation(obj); c != "" {
			return c
		}
		return str.Comment
	}
	if field == "" || field == "rootObject" || pbxproj.ReferenceFields[field] {
		return s.annotation(obj)
	}
	return ""
}

func (s *Store) stale(obj *Object) bool {
	if s.touched[obj.ID] {
		return true
	}
	if obj.Isa == domain.IsaBuildFile {
		if s.touched[s.Ref(obj.ID, "fileRef")] {
			return true
		}
		if phase, ok := s.phaseFor(obj.ID); ok && s.touched[phase] {
			return true
		}
	}
	return false
}

// Annotation returns the comment Xcode writes after a reference to obj.
func (s *Store) Annotation(id domain.ObjectID) string {
	obj, ok := s.objects[id]
	if !ok {
		return ""
	}
	return s.annotation(obj)
}

func (s *Store) annotation(obj *Object) string {
	f := obj.Fields
	switch {
	case obj.Isa == domain.IsaProject:
		return "Project object"
	case obj.Isa == domain.IsaBuildFile:
		name := s.buildFileName(obj)
		phase, ok := s.phaseFor(obj.ID)
		if !ok {
			return name
		}
		return fmt.Sprintf("%s in %s", name, s.phaseName(s.objects[phase]))
	case obj.Isa.IsGroup() || obj.Isa == domain.IsaFileReference:
		return displayName(f)
	case obj.Isa.IsTarget():
		return f.String("name")
	case obj.Isa.IsBuildPhase():
		return s.phaseName(obj)
	case obj.Isa == domain.IsaConfigurationList:
		return s.configListName(obj.ID)
	case obj.Isa == domain.IsaBuildConfiguration:
		return f.String("name")
	case obj.Isa == domain.IsaSwiftPackageProduct:
		return f.String("productName")
	case obj.Isa == domain.IsaTargetDependency || obj.Isa == domain.IsaContainerItemProxy:
		return string(obj.Isa)
	}
	return ""
}

func (s *Store) buildFileName(bf *Object) string {
	if ref, ok := s.objects[domain.ObjectID(bf.Fields.String("fileRef"))]; ok {
		return displayName(ref.Fields)
	}
	if ref, ok := s.objects[domain.ObjectID(bf.Fields.String("productRef"))]; ok {
		return ref.Fields.String("productName")
	}
	return "(null)"
}

func (s *Store) phaseName(phase *Object) string {
	if phase == nil {
		return ""
	}
	if name := phase.Fields.String("name"); name != "" {
		return name
	}
	return phase.Isa.DefaultPhaseName()
}

func (s *Store) configListName(id domain.ObjectID) string {
	for _, oid := range s.IDs() {
		owner := s.objects[oid]
		if owner.Fields.String("buildConfigurationList") != string(id) {
			continue
		}
		name := owner.Fields.String("name")
		if owner.Isa == domain.IsaProject {
			name = s.Name
		}
		return fmt.Sprintf("Build configuration list for %s %q", owner.Isa, name)
	}
	return ""
}

// phaseFor returns the phase listing a build file. The index is rebuilt on
// every encode.
func (s *Store) phaseFor(bf domain.ObjectID) (domain.ObjectID, bool) {
	if s.phaseOf == nil {
		s.phaseOf = make(map[domain.ObjectID]domain.ObjectID)
		for _, obj := range s.objects {
			if !obj.Isa.IsBuildPhase() {
				continue
			}
			for _, f := range obj.Fields.Strings("files") {
				s.phaseOf[domain.ObjectID(f)] = obj.ID
			}
		}
	}
	p, ok := s.phaseOf[bf]
	return p, ok
}
