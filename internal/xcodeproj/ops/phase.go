package ops

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/domain"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/errors"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/graph"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/pbxproj"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/script"
)

const defaultShell = "/bin/sh"

// AddBuildPhaseRequest describes an AddBuildPhase call.
type AddBuildPhaseRequest struct {
	Target string
	Name   string
	Type   string

	// run_script
	Script      string
	ShellPath   string
	InputPaths  []string
	OutputPaths []string

	// copy_files
	Destination string
	Subpath     string
	// Files are paths of tracked files or doublestar patterns matched
	// against them.
	Files []string
}

// AddBuildPhase appends a run-script or copy-files phase to a target.
func (x *Session) AddBuildPhase(ctx context.Context, req AddBuildPhaseRequest) (*Outcome, error) {
	kind := domain.PhaseKind(strings.TrimSpace(req.Type))
	var dst domain.DstSubfolder
	switch kind {
	case domain.PhaseRunScript:
		if strings.TrimSpace(req.Script) == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "a run_script phase requires a script")
		}
	case domain.PhaseCopyFiles:
		if strings.TrimSpace(req.Destination) == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "a copy_files phase requires a destination (one of %s)",
				strings.Join(domain.DstSubfolderTags(), ", "))
		}
		d, ok := domain.ParseDstSubfolder(req.Destination)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "unknown copy_files destination %q (one of %s)",
				req.Destination, strings.Join(domain.DstSubfolderTags(), ", "))
		}
		dst = d
		for _, f := range req.Files {
			if !doublestar.ValidatePattern(f) {
				return nil, errors.New(errors.ErrCodeInvalidInput, "invalid file pattern %q", f)
			}
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown phase type %q (expected %s or %s)",
			req.Type, domain.PhaseRunScript, domain.PhaseCopyFiles)
	}

	target, ok := x.Store.FindTarget(req.Target)
	if !ok {
		return notFound(KindTarget, req.Target), nil
	}

	out := success(KindPhase, req.Name)
	out.Target = req.Target
	out.PhaseType = kind
	switch kind {
	case domain.PhaseRunScript:
		out.ID, out.Warnings = x.addScriptPhase(ctx, target, req)
	case domain.PhaseCopyFiles:
		out.ID = x.appendPhase(target, domain.IsaCopyFilesPhase, map[string]pbxproj.Value{
			"dstPath":          pbxproj.Str(req.Subpath),
			"dstSubfolderSpec": pbxproj.Str(strconv.Itoa(int(dst))),
			"name":             pbxproj.Str(phaseName(req.Name, "Copy Files")),
		})
		out.Added, out.Skipped = x.joinFiles(out.ID, req.Files)
	}
	return out, nil
}

func phaseName(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}

func (x *Session) addScriptPhase(ctx context.Context, t graph.Target, req AddBuildPhaseRequest) (domain.ObjectID, []string) {
	shell := req.ShellPath
	if shell == "" {
		shell = defaultShell
	}
	id := x.appendPhase(t, domain.IsaShellScriptPhase, map[string]pbxproj.Value{
		"inputFileListPaths":  pbxproj.StrArray(),
		"inputPaths":          pbxproj.StrArray(req.InputPaths...),
		"name":                pbxproj.Str(phaseName(req.Name, "Run Script")),
		"outputFileListPaths": pbxproj.StrArray(),
		"outputPaths":         pbxproj.StrArray(req.OutputPaths...),
		"shellPath":           pbxproj.Str(shell),
		"shellScript":         pbxproj.Str(req.Script),
	})
	var warnings []string
	for _, p := range script.Lint(ctx, shell, req.Script) {
		warnings = append(warnings, "script "+p.String())
	}
	return id, warnings
}

// joinFiles adds build files to a phase for each entry that names a tracked
// file or matches tracked files as a pattern. Entries matching nothing are
// skipped.
func (x *Session) joinFiles(phase domain.ObjectID, entries []string) (added, skipped []string) {
	refs := x.fileRefs()
	seen := map[domain.ObjectID]bool{}
	add := func(ref graph.FileRef, label string) {
		if seen[ref.ID] {
			return
		}
		seen[ref.ID] = true
		x.join(phase, ref.ID, nil)
		added = append(added, label)
	}
	for _, entry := range entries {
		if !strings.ContainsAny(entry, "*?[{") {
			if ref, ok := x.findFile(entry); ok {
				add(ref, entry)
			} else {
				skipped = append(skipped, entry)
			}
			continue
		}
		matched := false
		for _, ref := range refs {
			display := x.displayPath(ref)
			ok, _ := doublestar.Match(entry, display)
			if !ok {
				ok, _ = doublestar.Match(entry, ref.Path())
			}
			if ok {
				matched = true
				add(ref, display)
			}
		}
		if !matched {
			skipped = append(skipped, entry)
		}
	}
	return added, skipped
}

// PhaseSummary renders a phase for listings: "Name (isa, N files)".
func PhaseSummary(p graph.Phase) string {
	return fmt.Sprintf("%s (%s, %d files)", p.Name(), p.Isa, len(p.Files()))
}
