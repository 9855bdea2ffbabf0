// Package mcp exposes the project editor as MCP tools and resources.
package mcp

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/config"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/project"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/store"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/watcher"
)

// Version is reported to clients during initialization.
var Version = "0.1.0"

// XcodeprojServer coordinates the editor, journal and watcher and exposes
// them via MCP tools and resources.
type XcodeprojServer struct {
	Server  *mcp.Server
	Editor  *project.Editor
	Journal *store.Store     // Nil when the journal is disabled.
	Watcher *watcher.Watcher // Nil when watching is disabled or failed.
	Config  *config.Config
	RootDir string // Directory relative paths and the journal resolve against.

	logger *log.Logger
}

// NewServer builds a server rooted at rootDir. A nil cfg loads the config
// file from rootDir, falling back to defaults when it cannot be read.
func NewServer(rootDir string, cfg *config.Config, logger *log.Logger) (*XcodeprojServer, error) {
	if cfg == nil {
		loaded, err := config.LoadConfig(rootDir)
		if err != nil {
			logger.Warn("failed to load config, using defaults", "err", err)
			loaded = &config.DefaultConfig
		}
		cfg = loaded
	}

	var journal *store.Store
	if !cfg.DisableJournal {
		st, err := store.NewStore(cfg.JournalDir(rootDir))
		if err != nil {
			return nil, fmt.Errorf("failed to init journal: %w", err)
		}
		st.MaxSnapshots = cfg.MaxSnapshots
		journal = st
	}

	editor := project.NewEditor(cfg.ResolveBase(rootDir), journal)
	editor.FrameworksGroup = cfg.FrameworksGroup

	xs := &XcodeprojServer{
		Editor:  editor,
		Journal: journal,
		Config:  cfg,
		RootDir: rootDir,
		logger:  logger,
	}

	if !cfg.DisableWatch {
		w, err := watcher.NewWatcher(journal, editor.Locker(), logger)
		if err != nil {
			logger.Warn("failed to start file watcher", "err", err)
		} else {
			w.Start()
			editor.OnCommit = w.Track
			xs.Watcher = w
		}
	}

	xs.Server = xs.newMCPServer()
	return xs, nil
}

// Close stops the watcher and closes the journal.
func (xs *XcodeprojServer) Close() error {
	if xs.Watcher != nil {
		xs.Watcher.Close()
	}
	if xs.Journal != nil {
		return xs.Journal.Close()
	}
	return nil
}

func (xs *XcodeprojServer) newMCPServer() *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "xcodeproj-mcp",
		Version: Version,
	}, &mcp.ServerOptions{})

	// Read-only tools
	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_targets",
		Description: "List all targets in an Xcode project",
	}, xs.listTargets)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_files",
		Description: "List files in an Xcode project, or the files built by one target",
	}, xs.listFiles)

	// Edits
	mcp.AddTool(s, &mcp.Tool{
		Name:        "add_file",
		Description: "Add a file to an Xcode project, optionally compiling it into a target",
	}, xs.addFile)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "remove_file",
		Description: "Remove a file from an Xcode project and every target that builds it",
	}, xs.removeFile)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "move_file",
		Description: "Move or rename a file within an Xcode project",
	}, xs.moveFile)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "add_framework",
		Description: "Link a framework into a target, optionally embedding it",
	}, xs.addFramework)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "add_build_phase",
		Description: "Add a run_script or copy_files build phase to a target",
	}, xs.addBuildPhase)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "create_group",
		Description: "Create a group in the project navigator",
	}, xs.createGroup)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "add_target",
		Description: "Create a native target with Debug and Release configurations",
	}, xs.addTarget)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "create_project",
		Description: "Create a new, empty Xcode project",
	}, xs.createProject)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "undo_last_edit",
		Description: "Restore a project file to its state before the last edit made through this server",
	}, xs.undoLastEdit)

	// Resources
	s.AddResource(&mcp.Resource{
		Name:     "status",
		URI:      statusURI,
		MIMEType: "application/json",
	}, xs.handleStatus)

	s.AddResource(&mcp.Resource{
		Name:     "history",
		URI:      historyURI,
		MIMEType: "application/json",
	}, xs.handleHistory)

	return s
}
