package ops

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/domain"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/filetype"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/graph"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/pbxproj"
)

const embedPhaseName = "Embed Frameworks"

// AddFrameworkRequest describes an AddFramework call.
type AddFrameworkRequest struct {
	Target string
	// Name is a bare system framework name such as "UIKit", or a path to a
	// framework or library bundled with the project.
	Name  string
	Embed bool
}

// frameworkLocation applies the naming convention: a bare name is an SDK
// framework or library, anything with a separator is a project file.
func (x *Session) frameworkLocation(group domain.ObjectID, name string) (string, domain.SourceTree) {
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		return x.placement(group, name)
	}
	switch path.Ext(name) {
	case ".tbd", ".dylib":
		return "usr/lib/" + name, domain.SourceTreeSDKRoot
	case ".framework":
		return "System/Library/Frameworks/" + name, domain.SourceTreeSDKRoot
	}
	return "System/Library/Frameworks/" + name + ".framework", domain.SourceTreeSDKRoot
}

// frameworksGroup returns the group new framework references go into,
// creating it under the main group when it is missing.
func (x *Session) frameworksGroup() domain.ObjectID {
	main := x.Store.Project().MainGroup()
	if g, ok := x.Store.FindGroup(x.FrameworksGroup, main); ok {
		return g.ID
	}
	id := x.Store.Insert(domain.IsaGroup, map[string]pbxproj.Value{
		"children":   pbxproj.StrArray(),
		"name":       pbxproj.Str(x.FrameworksGroup),
		"sourceTree": pbxproj.Str(string(domain.SourceTreeGroup)),
	})
	x.Store.AppendRef(main, "children", id)
	return id
}

// AddFramework links a framework into a target and optionally embeds it.
// Linking and embedding are separate build files over one file reference.
func (x *Session) AddFramework(ctx context.Context, req AddFrameworkRequest) (*Outcome, error) {
	if err := requireNonEmpty("framework name", req.Name); err != nil {
		return nil, err
	}
	if err := requireNonEmpty("target name", req.Target); err != nil {
		return nil, err
	}
	s := x.Store
	target, ok := s.FindTarget(req.Target)
	if !ok {
		return notFound(KindTarget, req.Target), nil
	}

	ref, created := x.frameworkRef(ctx, req.Name)
	linkPhase := x.ensurePhase(target, domain.IsaFrameworksPhase, nil)
	linked := !created && x.joined(linkPhase, ref)
	var embedPhase domain.ObjectID
	hasEmbedPhase := false
	if req.Embed {
		embedPhase, hasEmbedPhase = x.embedPhase(target)
	}
	embedded := hasEmbedPhase && !created && x.joined(embedPhase, ref)
	if linked && (!req.Embed || embedded) {
		dup := alreadyExists(KindFramework, req.Name)
		dup.Target = req.Target
		dup.ID = ref
		return dup, nil
	}

	if !linked {
		x.join(linkPhase, ref, nil)
	}
	if req.Embed && !embedded {
		if !hasEmbedPhase {
			embedPhase = x.appendPhase(target, domain.IsaCopyFilesPhase, map[string]pbxproj.Value{
				"dstPath":          pbxproj.Str(""),
				"dstSubfolderSpec": pbxproj.Str("10"),
				"name":             pbxproj.Str(embedPhaseName),
			})
		}
		attrs := pbxproj.NewDict()
		attrs.Append(pbxproj.Str("ATTRIBUTES"), pbxproj.StrArray("CodeSignOnCopy", "RemoveHeadersOnCopy"))
		x.join(embedPhase, ref, attrs)
	}

	out := success(KindFramework, req.Name)
	out.Target = req.Target
	out.Embedded = req.Embed
	out.ID = ref
	return out, nil
}

// frameworkRef finds or creates the file reference for a framework name.
func (x *Session) frameworkRef(ctx context.Context, name string) (domain.ObjectID, bool) {
	s := x.Store
	main := s.Project().MainGroup()
	p, anchor := x.frameworkLocation(main, name)
	if ref, ok := x.trackedAt(main, p, anchor); ok {
		return ref.ID, false
	}
	group := x.frameworksGroup()
	p, anchor = x.frameworkLocation(group, name)
	if ref, ok := x.trackedAt(group, p, anchor); ok {
		return ref.ID, false
	}

	fileType := filetype.ForPath(p)
	if anchor != domain.SourceTreeSDKRoot {
		fileType = filetype.ForFile(ctx, x.abs(name))
	}
	fields := fileFields(p, anchor, fileType)
	fields["name"] = pbxproj.Str(path.Base(p))
	id := s.Insert(domain.IsaFileReference, fields)
	s.AppendRef(group, "children", id)
	return id, true
}

// embedPhase returns the target's copy-files phase that copies into the
// Frameworks folder, if there is one.
func (x *Session) embedPhase(t graph.Target) (domain.ObjectID, bool) {
	for _, phase := range x.Store.PhasesOf(t, domain.IsaCopyFilesPhase) {
		if dst, ok := phase.DstSubfolder(); ok && dst == domain.DstFrameworks {
			return phase.ID, true
		}
	}
	return "", false
}

func (x *Session) joined(phase, ref domain.ObjectID) bool {
	ph, err := x.Store.Phase(phase)
	return err == nil && x.Store.Joined(ph, ref)
}
