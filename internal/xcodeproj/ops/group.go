package ops

import (
	"context"

	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/domain"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/errors"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/pbxproj"
)

// CreateGroupRequest describes a CreateGroup call.
type CreateGroupRequest struct {
	Name string
	// Path is the group's directory relative to its parent.
	Path string
	// Parent names an existing group. Empty means the main group.
	Parent string
}

// CreateGroup appends a new group to its parent's children. A missing parent
// is an error; a sibling with the same name is reported as already existing.
func (x *Session) CreateGroup(_ context.Context, req CreateGroupRequest) (*Outcome, error) {
	if err := requireNonEmpty("group name", req.Name); err != nil {
		return nil, err
	}
	s := x.Store
	parent := s.Project().MainGroup()
	if req.Parent != "" {
		g, ok := x.resolveGroup(req.Parent)
		if !ok {
			return nil, errors.New(errors.ErrCodeNotFound, "parent group '%s' not found", req.Parent)
		}
		parent = g.ID
	}
	if g, ok := s.FindGroup(req.Name, parent); ok {
		dup := alreadyExists(KindGroup, req.Name)
		dup.Parent = req.Parent
		dup.ID = g.ID
		return dup, nil
	}

	fields := map[string]pbxproj.Value{
		"children":   pbxproj.StrArray(),
		"sourceTree": pbxproj.Str(string(domain.SourceTreeGroup)),
	}
	if req.Path != "" {
		fields["path"] = pbxproj.Str(req.Path)
	}
	if req.Path != req.Name {
		fields["name"] = pbxproj.Str(req.Name)
	}
	id := s.Insert(domain.IsaGroup, fields)
	s.AppendRef(parent, "children", id)

	out := success(KindGroup, req.Name)
	out.Parent = req.Parent
	out.ID = id
	return out, nil
}
