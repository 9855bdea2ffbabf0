package mcp

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/domain"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/ops"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/project"
)

// bundleName is the .xcodeproj component of a project path.
func bundleName(p string) string {
	if bundle, _, err := project.Locate(p); err == nil {
		return filepath.Base(bundle)
	}
	return filepath.Base(p)
}

// notFound phrases a not-found outcome.
func notFound(out *ops.Outcome) string {
	switch out.Kind {
	case ops.KindTarget:
		return fmt.Sprintf("Target '%s' not found in project", out.Subject)
	case ops.KindGroup:
		return fmt.Sprintf("Group '%s' not found in project", out.Subject)
	default:
		return fmt.Sprintf("File not found in project: %s", out.Subject)
	}
}

func warnings(out *ops.Outcome) string {
	var b strings.Builder
	for _, w := range out.Warnings {
		b.WriteString("\nWarning: ")
		b.WriteString(w)
	}
	return b.String()
}

func inParent(parent string) string {
	if parent == "" {
		return "main group"
	}
	return parent
}

func formatTargets(bundle string, out *ops.Outcome) string {
	if len(out.Targets) == 0 {
		return fmt.Sprintf("Targets in %s:\nNo targets found in the project.", bundle)
	}
	lines := make([]string, 0, len(out.Targets))
	for _, t := range out.Targets {
		productType := t.ProductType
		if productType == "" {
			productType = "unknown"
		}
		lines = append(lines, fmt.Sprintf("- %s (%s)", t.Name, productType))
	}
	return fmt.Sprintf("Targets in %s:\n%s", bundle, strings.Join(lines, "\n"))
}

func formatFiles(bundle string, out *ops.Outcome) string {
	if out.Status == ops.StatusNotFound {
		return notFound(out)
	}
	if out.Target == "" {
		if len(out.Files) == 0 {
			return fmt.Sprintf("Files in %s:\nNo files found in the project.", bundle)
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Files in %s:", bundle)
		for _, f := range out.Files {
			fmt.Fprintf(&b, "\n- %s", f.Path)
		}
		return b.String()
	}

	if len(out.Files) == 0 {
		return fmt.Sprintf("Files in target '%s':\nNo files found in the target.", out.Target)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Files in target '%s':", out.Target)
	phase := ""
	for i, f := range out.Files {
		if i == 0 || f.Phase != phase {
			phase = f.Phase
			fmt.Fprintf(&b, "\n%s:", phase)
		}
		fmt.Fprintf(&b, "\n- %s", f.Path)
	}
	return b.String()
}

func formatAddFile(out *ops.Outcome) string {
	switch out.Status {
	case ops.StatusNotFound:
		return notFound(out)
	case ops.StatusAlreadyExists:
		if out.Target != "" {
			return fmt.Sprintf("File '%s' already exists in target '%s'", out.Subject, out.Target)
		}
		return fmt.Sprintf("File '%s' already exists in the project", out.Subject)
	}
	if out.Target != "" {
		return fmt.Sprintf("Successfully added file '%s' to target '%s'", out.Subject, out.Target)
	}
	return fmt.Sprintf("Successfully added file '%s' to the project", out.Subject)
}

func formatRemoveFile(out *ops.Outcome) string {
	if out.Status == ops.StatusNotFound {
		return notFound(out)
	}
	msg := fmt.Sprintf("Successfully removed '%s' from the project", out.Subject)
	if out.RemovedFromDisk {
		msg += " and deleted it from disk"
	}
	return msg
}

func formatMoveFile(out *ops.Outcome) string {
	switch out.Status {
	case ops.StatusNotFound:
		return notFound(out)
	case ops.StatusAlreadyExists:
		return fmt.Sprintf("File '%s' is already tracked in the project", out.Subject)
	}
	msg := fmt.Sprintf("Successfully moved '%s' to '%s'", out.Subject, out.NewPath)
	if out.MovedOnDisk {
		msg += " (moved on disk)"
	}
	return msg
}

func formatAddFramework(out *ops.Outcome) string {
	switch out.Status {
	case ops.StatusNotFound:
		return notFound(out)
	case ops.StatusAlreadyExists:
		return fmt.Sprintf("Framework '%s' already exists in target '%s'", out.Subject, out.Target)
	}
	msg := fmt.Sprintf("Successfully added framework '%s' to target '%s'", out.Subject, out.Target)
	if out.Embedded {
		msg += " (embedded)"
	}
	return msg
}

func formatAddBuildPhase(out *ops.Outcome) string {
	if out.Status == ops.StatusNotFound {
		return notFound(out)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Successfully added %s build phase", out.PhaseType)
	if out.Subject != "" {
		fmt.Fprintf(&b, " '%s'", out.Subject)
	}
	fmt.Fprintf(&b, " to target '%s'", out.Target)
	if out.PhaseType == domain.PhaseCopyFiles {
		fmt.Fprintf(&b, " with %d file(s)", len(out.Added))
	}
	if len(out.Skipped) > 0 {
		fmt.Fprintf(&b, "\nSkipped files not in the project: %s", strings.Join(out.Skipped, ", "))
	}
	return b.String()
}

func formatCreateGroup(out *ops.Outcome) string {
	if out.Status == ops.StatusAlreadyExists {
		return fmt.Sprintf("Group '%s' already exists in %s", out.Subject, inParent(out.Parent))
	}
	return fmt.Sprintf("Successfully created group '%s' in %s", out.Subject, inParent(out.Parent))
}

func formatAddTarget(out *ops.Outcome) string {
	if out.Status == ops.StatusAlreadyExists {
		return fmt.Sprintf("Target '%s' already exists", out.Subject)
	}
	msg := fmt.Sprintf("Successfully created target '%s'", out.Subject)
	if len(out.Targets) > 0 {
		msg += fmt.Sprintf(" (%s)", out.Targets[0].ProductType)
	}
	return msg
}
