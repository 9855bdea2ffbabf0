package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/errors"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/logging"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/metrics"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/ops"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/project"
)

// Tool Inputs

// ListTargetsInput defines the input parameters for the list_targets tool.
type ListTargetsInput struct {
	ProjectPath string `json:"project_path" jsonschema:"Path to the .xcodeproj bundle" validate:"required"`
}

// ListFilesInput defines the input parameters for the list_files tool.
type ListFilesInput struct {
	ProjectPath string `json:"project_path" jsonschema:"Path to the .xcodeproj bundle" validate:"required"`
	TargetName  string `json:"target_name,omitempty" jsonschema:"List only the files built by this target"`
}

// AddFileInput defines the input parameters for the add_file tool.
type AddFileInput struct {
	ProjectPath string `json:"project_path" jsonschema:"Path to the .xcodeproj bundle" validate:"required"`
	FilePath    string `json:"file_path" jsonschema:"Path of the file to add" validate:"required"`
	TargetName  string `json:"target_name,omitempty" jsonschema:"Target whose Sources phase compiles the file"`
	GroupName   string `json:"group_name,omitempty" jsonschema:"Existing group to add the file to; defaults to the main group"`
}

// RemoveFileInput defines the input parameters for the remove_file tool.
type RemoveFileInput struct {
	ProjectPath    string `json:"project_path" jsonschema:"Path to the .xcodeproj bundle" validate:"required"`
	FilePath       string `json:"file_path" jsonschema:"Path of the file to remove" validate:"required"`
	RemoveFromDisk bool   `json:"remove_from_disk,omitempty" jsonschema:"Also delete the file from disk"`
}

// MoveFileInput defines the input parameters for the move_file tool.
type MoveFileInput struct {
	ProjectPath string `json:"project_path" jsonschema:"Path to the .xcodeproj bundle" validate:"required"`
	OldPath     string `json:"old_path" jsonschema:"Current path of the file" validate:"required"`
	NewPath     string `json:"new_path" jsonschema:"New path of the file" validate:"required"`
	MoveOnDisk  bool   `json:"move_on_disk,omitempty" jsonschema:"Also move the file on disk"`
}

// AddFrameworkInput defines the input parameters for the add_framework tool.
type AddFrameworkInput struct {
	ProjectPath   string `json:"project_path" jsonschema:"Path to the .xcodeproj bundle" validate:"required"`
	TargetName    string `json:"target_name" jsonschema:"Target to link the framework into" validate:"required"`
	FrameworkName string `json:"framework_name" jsonschema:"System framework name such as UIKit, or a path to a framework" validate:"required"`
	Embed         bool   `json:"embed,omitempty" jsonschema:"Also embed the framework in the product"`
}

// AddBuildPhaseInput defines the input parameters for the add_build_phase tool.
type AddBuildPhaseInput struct {
	ProjectPath string   `json:"project_path" jsonschema:"Path to the .xcodeproj bundle" validate:"required"`
	TargetName  string   `json:"target_name" jsonschema:"Target to add the phase to" validate:"required"`
	PhaseName   string   `json:"phase_name,omitempty" jsonschema:"Name of the phase"`
	PhaseType   string   `json:"phase_type" jsonschema:"run_script or copy_files" validate:"required"`
	Script      string   `json:"script,omitempty" jsonschema:"Script body for run_script phases"`
	ShellPath   string   `json:"shell_path,omitempty" jsonschema:"Interpreter for run_script phases; defaults to /bin/sh"`
	InputPaths  []string `json:"input_paths,omitempty" jsonschema:"Input paths of a run_script phase"`
	OutputPaths []string `json:"output_paths,omitempty" jsonschema:"Output paths of a run_script phase"`
	Destination string   `json:"destination,omitempty" jsonschema:"Destination of a copy_files phase such as resources or frameworks"`
	Subpath     string   `json:"subpath,omitempty" jsonschema:"Subdirectory inside the destination"`
	Files       []string `json:"files,omitempty" jsonschema:"Files or glob patterns of tracked files to copy"`
}

// CreateGroupInput defines the input parameters for the create_group tool.
type CreateGroupInput struct {
	ProjectPath string `json:"project_path" jsonschema:"Path to the .xcodeproj bundle" validate:"required"`
	GroupName   string `json:"group_name" jsonschema:"Name of the new group" validate:"required"`
	Path        string `json:"path,omitempty" jsonschema:"Directory of the group relative to its parent"`
	ParentGroup string `json:"parent_group,omitempty" jsonschema:"Existing parent group; defaults to the main group"`
}

// AddTargetInput defines the input parameters for the add_target tool.
type AddTargetInput struct {
	ProjectPath      string `json:"project_path" jsonschema:"Path to the .xcodeproj bundle" validate:"required"`
	TargetName       string `json:"target_name" jsonschema:"Name of the new target" validate:"required"`
	ProductType      string `json:"product_type" jsonschema:"Product type tag or alias such as app or framework" validate:"required"`
	BundleIdentifier string `json:"bundle_identifier,omitempty" jsonschema:"PRODUCT_BUNDLE_IDENTIFIER of the target"`
}

// CreateProjectInput defines the input parameters for the create_project tool.
type CreateProjectInput struct {
	Path             string `json:"path" jsonschema:"Directory to create the project in" validate:"required"`
	ProjectName      string `json:"project_name" jsonschema:"Name of the project" validate:"required"`
	OrganizationName string `json:"organization_name,omitempty" jsonschema:"ORGANIZATIONNAME attribute of the project"`
}

// UndoInput defines the input parameters for the undo_last_edit tool.
type UndoInput struct {
	ProjectPath string `json:"project_path" jsonschema:"Path to the .xcodeproj bundle" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return v
}

// validateInput reports the first missing or invalid argument.
func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	if fields, ok := err.(validator.ValidationErrors); ok && len(fields) > 0 {
		return errors.New(errors.ErrCodeInvalidInput, "%s is required", fields[0].Field())
	}
	return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid arguments")
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{IsError: true, Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

// call runs one tool: validates its input, runs fn, records metrics and maps
// hard errors to error results.
func (xs *XcodeprojServer) call(ctx context.Context, tool string, input any, fn func(context.Context) (string, ops.Status, error)) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	logger := xs.logger.With("tool", tool)
	ctx = logging.WithLogger(ctx, logger)

	text, status, err := "", ops.Status(""), validateInput(input)
	if err == nil {
		text, status, err = fn(ctx)
	}
	if err != nil {
		metrics.RecordToolCall(tool, "error", time.Since(start))
		logger.Warn("tool failed", "code", errors.GetCode(err), "err", err)
		return errorResult(errors.UserMessage(err)), nil, nil
	}
	metrics.RecordToolCall(tool, string(status), time.Since(start))
	logger.Debug("tool finished", "status", status, "elapsed", time.Since(start).Round(time.Millisecond))
	return textResult(text), nil, nil
}

// edit runs an operation through the editor and formats its outcome.
func (xs *XcodeprojServer) edit(ctx context.Context, path, tool string, fn project.EditFunc, format func(*ops.Outcome) string) (string, ops.Status, error) {
	out, err := xs.Editor.Edit(ctx, path, tool, fn)
	if err != nil {
		return "", "", err
	}
	return format(out) + warnings(out), out.Status, nil
}

// Tool Handlers

func (xs *XcodeprojServer) listTargets(ctx context.Context, req *mcp.CallToolRequest, input ListTargetsInput) (*mcp.CallToolResult, any, error) {
	return xs.call(ctx, "list_targets", input, func(ctx context.Context) (string, ops.Status, error) {
		out, err := xs.Editor.View(ctx, input.ProjectPath, func(ctx context.Context, x *ops.Session) (*ops.Outcome, error) {
			return x.ListTargets(ctx)
		})
		if err != nil {
			return "", "", err
		}
		return formatTargets(bundleName(input.ProjectPath), out), out.Status, nil
	})
}

func (xs *XcodeprojServer) listFiles(ctx context.Context, req *mcp.CallToolRequest, input ListFilesInput) (*mcp.CallToolResult, any, error) {
	return xs.call(ctx, "list_files", input, func(ctx context.Context) (string, ops.Status, error) {
		out, err := xs.Editor.View(ctx, input.ProjectPath, func(ctx context.Context, x *ops.Session) (*ops.Outcome, error) {
			return x.ListFiles(ctx, input.TargetName)
		})
		if err != nil {
			return "", "", err
		}
		return formatFiles(bundleName(input.ProjectPath), out), out.Status, nil
	})
}

func (xs *XcodeprojServer) addFile(ctx context.Context, req *mcp.CallToolRequest, input AddFileInput) (*mcp.CallToolResult, any, error) {
	return xs.call(ctx, "add_file", input, func(ctx context.Context) (string, ops.Status, error) {
		return xs.edit(ctx, input.ProjectPath, "add_file", func(ctx context.Context, x *ops.Session) (*ops.Outcome, error) {
			return x.AddFile(ctx, ops.AddFileRequest{Path: input.FilePath, Target: input.TargetName, Group: input.GroupName})
		}, formatAddFile)
	})
}

func (xs *XcodeprojServer) removeFile(ctx context.Context, req *mcp.CallToolRequest, input RemoveFileInput) (*mcp.CallToolResult, any, error) {
	return xs.call(ctx, "remove_file", input, func(ctx context.Context) (string, ops.Status, error) {
		return xs.edit(ctx, input.ProjectPath, "remove_file", func(ctx context.Context, x *ops.Session) (*ops.Outcome, error) {
			return x.RemoveFile(ctx, ops.RemoveFileRequest{Path: input.FilePath, RemoveFromDisk: input.RemoveFromDisk})
		}, formatRemoveFile)
	})
}

func (xs *XcodeprojServer) moveFile(ctx context.Context, req *mcp.CallToolRequest, input MoveFileInput) (*mcp.CallToolResult, any, error) {
	return xs.call(ctx, "move_file", input, func(ctx context.Context) (string, ops.Status, error) {
		return xs.edit(ctx, input.ProjectPath, "move_file", func(ctx context.Context, x *ops.Session) (*ops.Outcome, error) {
			return x.MoveFile(ctx, ops.MoveFileRequest{OldPath: input.OldPath, NewPath: input.NewPath, MoveOnDisk: input.MoveOnDisk})
		}, formatMoveFile)
	})
}

func (xs *XcodeprojServer) addFramework(ctx context.Context, req *mcp.CallToolRequest, input AddFrameworkInput) (*mcp.CallToolResult, any, error) {
	return xs.call(ctx, "add_framework", input, func(ctx context.Context) (string, ops.Status, error) {
		return xs.edit(ctx, input.ProjectPath, "add_framework", func(ctx context.Context, x *ops.Session) (*ops.Outcome, error) {
			return x.AddFramework(ctx, ops.AddFrameworkRequest{Target: input.TargetName, Name: input.FrameworkName, Embed: input.Embed})
		}, formatAddFramework)
	})
}

func (xs *XcodeprojServer) addBuildPhase(ctx context.Context, req *mcp.CallToolRequest, input AddBuildPhaseInput) (*mcp.CallToolResult, any, error) {
	return xs.call(ctx, "add_build_phase", input, func(ctx context.Context) (string, ops.Status, error) {
		return xs.edit(ctx, input.ProjectPath, "add_build_phase", func(ctx context.Context, x *ops.Session) (*ops.Outcome, error) {
			return x.AddBuildPhase(ctx, ops.AddBuildPhaseRequest{
				Target:      input.TargetName,
				Name:        input.PhaseName,
				Type:        input.PhaseType,
				Script:      input.Script,
				ShellPath:   input.ShellPath,
				InputPaths:  input.InputPaths,
				OutputPaths: input.OutputPaths,
				Destination: input.Destination,
				Subpath:     input.Subpath,
				Files:       input.Files,
			})
		}, formatAddBuildPhase)
	})
}

func (xs *XcodeprojServer) createGroup(ctx context.Context, req *mcp.CallToolRequest, input CreateGroupInput) (*mcp.CallToolResult, any, error) {
	return xs.call(ctx, "create_group", input, func(ctx context.Context) (string, ops.Status, error) {
		return xs.edit(ctx, input.ProjectPath, "create_group", func(ctx context.Context, x *ops.Session) (*ops.Outcome, error) {
			return x.CreateGroup(ctx, ops.CreateGroupRequest{Name: input.GroupName, Path: input.Path, Parent: input.ParentGroup})
		}, formatCreateGroup)
	})
}

func (xs *XcodeprojServer) addTarget(ctx context.Context, req *mcp.CallToolRequest, input AddTargetInput) (*mcp.CallToolResult, any, error) {
	return xs.call(ctx, "add_target", input, func(ctx context.Context) (string, ops.Status, error) {
		return xs.edit(ctx, input.ProjectPath, "add_target", func(ctx context.Context, x *ops.Session) (*ops.Outcome, error) {
			return x.AddTarget(ctx, ops.AddTargetRequest{
				Name:             input.TargetName,
				ProductType:      input.ProductType,
				BundleIdentifier: input.BundleIdentifier,
			})
		}, formatAddTarget)
	})
}

func (xs *XcodeprojServer) createProject(ctx context.Context, req *mcp.CallToolRequest, input CreateProjectInput) (*mcp.CallToolResult, any, error) {
	return xs.call(ctx, "create_project", input, func(ctx context.Context) (string, ops.Status, error) {
		h, err := xs.Editor.CreateProject(ctx, input.Path, input.ProjectName, input.OrganizationName)
		if err != nil {
			return "", "", err
		}
		return fmt.Sprintf("Successfully created project '%s' at %s", input.ProjectName, h.Bundle), ops.StatusSuccess, nil
	})
}

func (xs *XcodeprojServer) undoLastEdit(ctx context.Context, req *mcp.CallToolRequest, input UndoInput) (*mcp.CallToolResult, any, error) {
	return xs.call(ctx, "undo_last_edit", input, func(ctx context.Context) (string, ops.Status, error) {
		res, err := xs.Editor.Undo(ctx, input.ProjectPath)
		if err != nil {
			return "", "", err
		}
		return fmt.Sprintf("Restored %s to its state before the %s edit made at %s",
			filepath.Base(res.Project), res.Tool, res.At.Local().Format(time.DateTime)), ops.StatusSuccess, nil
	})
}
