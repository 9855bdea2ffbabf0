// Package graph holds a decoded project file as an arena of records indexed
// by identifier, with typed views for the record kinds the editor touches.
//
// Records never point at each other directly; every relationship is an
// identifier stored in a field, so groups, phases and build files can refer to
// one another freely. The store keeps references intact: Remove cascades to
// owned records and scrubs the removed identifiers from every reference field.
package graph

import (
	"path"
	"sort"

	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/domain"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/errors"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/pbxproj"
)

// Object is one record of the graph.
type Object struct {
	ID     domain.ObjectID
	Isa    domain.Isa
	Fields *pbxproj.Dict

	key *pbxproj.String
}

// Store is the in-memory project graph. It is not safe for concurrent use.
type Store struct {
	// Name is the project name used in configuration-list annotations,
	// normally the bundle name without ".xcodeproj".
	Name string

	doc     *pbxproj.Document
	objects map[domain.ObjectID]*Object
	rootID  domain.ObjectID
	alloc   *Allocator
	touched map[domain.ObjectID]bool
	dirty   bool

	phaseOf map[domain.ObjectID]domain.ObjectID
}

// Decode parses project text into a store.
func Decode(data []byte) (*Store, error) {
	doc, err := pbxproj.Decode(data)
	if err != nil {
		return nil, err
	}
	return Load(doc)
}

// Load builds a store from a validated document.
func Load(doc *pbxproj.Document) (*Store, error) {
	objs := doc.Objects()
	if objs == nil {
		return nil, errors.New(errors.ErrCodeCorruptGraph, "document has no objects table")
	}
	s := &Store{
		doc:     doc,
		objects: make(map[domain.ObjectID]*Object, objs.Len()),
		touched: make(map[domain.ObjectID]bool),
	}
	ids := make([]domain.ObjectID, 0, objs.Len())
	for _, e := range objs.Entries() {
		rec, ok := e.Value.(*pbxproj.Dict)
		if !ok {
			return nil, errors.New(errors.ErrCodeCorruptGraph, "object %s is not a dictionary", e.Key.Text)
		}
		id := domain.ObjectID(e.Key.Text)
		s.objects[id] = &Object{ID: id, Isa: domain.Isa(rec.String("isa")), Fields: rec, key: e.Key}
		ids = append(ids, id)
	}
	s.rootID = domain.ObjectID(doc.Root.String("rootObject"))
	root, ok := s.objects[s.rootID]
	if !ok || root.Isa != domain.IsaProject {
		return nil, errors.New(errors.ErrCodeCorruptGraph, "rootObject %s is not a PBXProject", s.rootID)
	}
	s.alloc = NewAllocator(ids)
	return s, nil
}

// Encode serializes the store. Untouched records keep their original spelling.
func (s *Store) Encode() []byte {
	objs := pbxproj.NewDict()
	for _, id := range s.IDs() {
		obj := s.objects[id]
		objs.Append(obj.key, obj.Fields)
	}
	s.doc.Root.Set("objects", objs)
	s.phaseOf = nil
	return pbxproj.Encode(s.doc, s)
}

// Dirty reports whether any record was created, changed or removed.
func (s *Store) Dirty() bool { return s.dirty }

// RootID returns the identifier of the PBXProject record.
func (s *Store) RootID() domain.ObjectID { return s.rootID }

// Len returns the number of records.
func (s *Store) Len() int { return len(s.objects) }

// IDs returns every identifier in sorted order.
func (s *Store) IDs() []domain.ObjectID {
	ids := make([]domain.ObjectID, 0, len(s.objects))
	for id := range s.objects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Lookup returns the record with the given identifier.
func (s *Store) Lookup(id domain.ObjectID) (*Object, bool) {
	obj, ok := s.objects[id]
	return obj, ok
}

// Get returns the record with the given identifier, failing with NOT_FOUND if
// it is absent and CORRUPT_GRAPH if its type is not one of expected.
func (s *Store) Get(id domain.ObjectID, expected ...domain.Isa) (*Object, error) {
	obj, ok := s.objects[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "object %s not found", id)
	}
	if len(expected) == 0 {
		return obj, nil
	}
	for _, isa := range expected {
		if obj.Isa == isa {
			return obj, nil
		}
	}
	return nil, errors.New(errors.ErrCodeCorruptGraph, "object %s is a %s, expected %v", id, obj.Isa, expected)
}

// Insert adds a record built from fields and returns its new identifier.
func (s *Store) Insert(isa domain.Isa, fields map[string]pbxproj.Value) domain.ObjectID {
	all := make(map[string]pbxproj.Value, len(fields)+1)
	for k, v := range fields {
		all[k] = v
	}
	all["isa"] = pbxproj.Str(string(isa))
	id := s.alloc.Allocate()
	s.objects[id] = &Object{ID: id, Isa: isa, Fields: pbxproj.SortedDict(all), key: pbxproj.Str(string(id))}
	s.Touch(id)
	return id
}

// Touch records that a record was changed in place.
func (s *Store) Touch(id domain.ObjectID) {
	s.touched[id] = true
	s.dirty = true
	s.phaseOf = nil
}

// Touched reports whether a record was created or changed in this session.
func (s *Store) Touched(id domain.ObjectID) bool { return s.touched[id] }

// SetField stores a value on a record and marks it touched.
func (s *Store) SetField(id domain.ObjectID, key string, v pbxproj.Value) {
	obj, ok := s.objects[id]
	if !ok {
		return
	}
	obj.Fields.Set(key, v)
	s.Touch(id)
}

// SetString stores a string field, leaving the record untouched if the text
// is unchanged.
func (s *Store) SetString(id domain.ObjectID, key, text string) {
	obj, ok := s.objects[id]
	if !ok {
		return
	}
	if cur, ok := obj.Fields.GetString(key); ok && cur == text {
		return
	}
	obj.Fields.SetString(key, text)
	s.Touch(id)
}

// AppendRef appends ref to the reference list field of a record, creating
// the list if needed.
func (s *Store) AppendRef(id domain.ObjectID, field string, ref domain.ObjectID) {
	obj, ok := s.objects[id]
	if !ok {
		return
	}
	arr, ok := obj.Fields.GetArray(field)
	if !ok {
		arr = &pbxproj.Array{}
		obj.Fields.Set(field, arr)
	}
	arr.Items = append(arr.Items, pbxproj.Str(string(ref)))
	s.Touch(id)
}

// Refs returns the identifiers held by a reference list field.
func (s *Store) Refs(id domain.ObjectID, field string) []domain.ObjectID {
	obj, ok := s.objects[id]
	if !ok {
		return nil
	}
	raw := obj.Fields.Strings(field)
	out := make([]domain.ObjectID, len(raw))
	for i, r := range raw {
		out[i] = domain.ObjectID(r)
	}
	return out
}

// Ref returns the identifier held by a single-reference field.
func (s *Store) Ref(id domain.ObjectID, field string) domain.ObjectID {
	obj, ok := s.objects[id]
	if !ok {
		return ""
	}
	return domain.ObjectID(obj.Fields.String(field))
}

// OfType returns every record of the given types, sorted by identifier.
func (s *Store) OfType(isas ...domain.Isa) []*Object {
	want := make(map[domain.Isa]bool, len(isas))
	for _, isa := range isas {
		want[isa] = true
	}
	var out []*Object
	for _, id := range s.IDs() {
		if obj := s.objects[id]; want[obj.Isa] {
			out = append(out, obj)
		}
	}
	return out
}

// Referrers returns the records holding id in a reference field, sorted by
// identifier.
func (s *Store) Referrers(id domain.ObjectID) []domain.ObjectID {
	var out []domain.ObjectID
	for _, oid := range s.IDs() {
		obj := s.objects[oid]
		for _, e := range obj.Fields.Entries() {
			if !pbxproj.ReferenceFields[e.Key.Text] {
				continue
			}
			if containsRef(e.Value, string(id)) {
				out = append(out, oid)
				break
			}
		}
	}
	return out
}

func containsRef(v pbxproj.Value, id string) bool {
	switch t := v.(type) {
	case *pbxproj.String:
		return t.Text == id
	case *pbxproj.Array:
		for _, it := range t.Items {
			if s, ok := it.(*pbxproj.String); ok && s.Text == id {
				return true
			}
		}
	}
	return false
}

// Remove deletes a record together with the records it owns: a group's
// children, a target's phases, configuration list, dependencies and product,
// a phase's build files, and every build file joining a removed file
// reference. Removed identifiers are scrubbed from all reference fields.
func (s *Store) Remove(id domain.ObjectID) error {
	if _, ok := s.objects[id]; !ok {
		return errors.New(errors.ErrCodeNotFound, "object %s not found", id)
	}
	if id == s.rootID {
		return errors.New(errors.ErrCodeInvalidInput, "the project object cannot be removed")
	}

	removed := s.owned(id)
	for rid := range removed {
		delete(s.objects, rid)
	}
	for oid, obj := range s.objects {
		if s.scrub(obj, removed) {
			s.Touch(oid)
		}
	}
	s.scrubTargetAttributes(removed)
	s.dirty = true
	s.phaseOf = nil
	return nil
}

// owned collects id and everything it transitively owns.
func (s *Store) owned(id domain.ObjectID) map[domain.ObjectID]bool {
	joins := make(map[domain.ObjectID][]domain.ObjectID)
	for _, bf := range s.OfType(domain.IsaBuildFile) {
		ref := domain.ObjectID(bf.Fields.String("fileRef"))
		joins[ref] = append(joins[ref], bf.ID)
	}

	out := map[domain.ObjectID]bool{}
	queue := []domain.ObjectID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if out[cur] {
			continue
		}
		obj, ok := s.objects[cur]
		if !ok {
			continue
		}
		out[cur] = true
		switch {
		case obj.Isa.IsGroup():
			queue = append(queue, s.Refs(cur, "children")...)
		case obj.Isa.IsTarget():
			queue = append(queue, s.Refs(cur, "buildPhases")...)
			queue = append(queue, s.Refs(cur, "dependencies")...)
			if ref := s.Ref(cur, "buildConfigurationList"); ref != "" {
				queue = append(queue, ref)
			}
			if ref := s.Ref(cur, "productReference"); ref != "" {
				queue = append(queue, ref)
			}
		case obj.Isa.IsBuildPhase():
			queue = append(queue, s.Refs(cur, "files")...)
		case obj.Isa == domain.IsaConfigurationList:
			queue = append(queue, s.Refs(cur, "buildConfigurations")...)
		case obj.Isa == domain.IsaTargetDependency:
			if ref := s.Ref(cur, "targetProxy"); ref != "" {
				queue = append(queue, ref)
			}
		case obj.Isa == domain.IsaFileReference:
			queue = append(queue, joins[cur]...)
		}
	}
	return out
}

func (s *Store) scrub(obj *Object, removed map[domain.ObjectID]bool) bool {
	changed := false
	for _, key := range obj.Fields.Keys() {
		if !pbxproj.ReferenceFields[key] {
			continue
		}
		switch v := obj.Fields.Get(key).(type) {
		case *pbxproj.String:
			if removed[domain.ObjectID(v.Text)] {
				obj.Fields.Delete(key)
				changed = true
			}
		case *pbxproj.Array:
			kept := v.Items[:0]
			for _, it := range v.Items {
				if str, ok := it.(*pbxproj.String); ok && removed[domain.ObjectID(str.Text)] {
					changed = true
					continue
				}
				kept = append(kept, it)
			}
			v.Items = kept
		}
	}
	return changed
}

func (s *Store) scrubTargetAttributes(removed map[domain.ObjectID]bool) {
	root := s.objects[s.rootID]
	attrs, ok := root.Fields.GetDict("attributes")
	if !ok {
		return
	}
	ta, ok := attrs.GetDict("TargetAttributes")
	if !ok {
		return
	}
	for _, key := range ta.Keys() {
		if removed[domain.ObjectID(key)] {
			ta.Delete(key)
			s.Touch(s.rootID)
		}
	}
}

// displayName is the name Xcode shows for a file element: its name, or the
// last component of its path.
func displayName(fields *pbxproj.Dict) string {
	if name := fields.String("name"); name != "" {
		return name
	}
	if p := fields.String("path"); p != "" {
		return path.Base(p)
	}
	return ""
}
