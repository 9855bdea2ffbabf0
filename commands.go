package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	charmlog "github.com/charmbracelet/log"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/config"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/export"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/logging"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/mcp"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/ops"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/project"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/store"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/tui"
)

const shutdownTimeout = 5 * time.Second

// rootOptions holds the persistent flags and the config they resolve to.
type rootOptions struct {
	verbose    bool
	rootDir    string
	configPath string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "xcodeproj-mcp",
		Short:        "Edit Xcode projects from the command line or over MCP",
		Long:         `xcodeproj-mcp reads and edits project.pbxproj files while preserving their formatting, and serves the editor as Model Context Protocol tools.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if abs, err := filepath.Abs(opts.rootDir); err == nil {
				opts.rootDir = abs
			}
			cfg, cfgErr := opts.loadConfig()
			if cfgErr != nil {
				cfg = &config.DefaultConfig
			}
			opts.cfg = cfg

			level := logging.ParseLevel(cfg.LogLevel)
			if opts.verbose {
				level = charmlog.DebugLevel
			}
			logger := logging.New(os.Stderr, level)
			if cfgErr != nil {
				logger.Warn("failed to load config, using defaults", "err", cfgErr)
			}
			cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("xcodeproj-mcp %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&opts.rootDir, "root", ".", "base directory for relative project paths and the journal")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default <root>/"+config.FileName+")")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newTargetsCmd(opts))
	root.AddCommand(newTUICmd(opts))
	root.AddCommand(newExportCmd(opts))
	root.AddCommand(newHistoryCmd(opts))
	root.AddCommand(newUndoCmd(opts))

	return root
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configPath != "" {
		return config.LoadFile(o.configPath)
	}
	return config.LoadConfig(o.rootDir)
}

// editor builds a project editor. With a journal it also returns the store,
// which the caller must close.
func (o *rootOptions) editor(withJournal bool) (*project.Editor, *store.Store, error) {
	var journal *store.Store
	if withJournal {
		if o.cfg.DisableJournal {
			return nil, nil, errors.New("the edit journal is disabled in the config")
		}
		st, err := store.NewStore(o.cfg.JournalDir(o.rootDir))
		if err != nil {
			return nil, nil, fmt.Errorf("open journal: %w", err)
		}
		st.MaxSnapshots = o.cfg.MaxSnapshots
		journal = st
	}
	e := project.NewEditor(o.cfg.ResolveBase(o.rootDir), journal)
	e.FrameworksGroup = o.cfg.FrameworksGroup
	return e, journal, nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		useHTTP bool
		addr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio or HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := logging.FromContext(ctx)

			xs, err := mcp.NewServer(opts.rootDir, opts.cfg, logger)
			if err != nil {
				return err
			}
			defer xs.Close()

			if !useHTTP {
				logger.Info("serving MCP over stdio", "root", opts.rootDir)
				return xs.Server.Run(ctx, &sdk.StdioTransport{})
			}
			if addr == "" {
				addr = opts.cfg.HTTPAddr
			}
			return serveHTTP(ctx, xs.Handler(), addr, logger)
		},
	}

	cmd.Flags().BoolVar(&useHTTP, "http", false, "serve streamable HTTP instead of stdio")
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (default from config http_addr)")
	return cmd
}

// serveHTTP runs the server until ctx is cancelled, then shuts it down.
func serveHTTP(ctx context.Context, handler http.Handler, addr string, logger *charmlog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving MCP over HTTP", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

var headingStyle = lipgloss.NewStyle().Bold(true)

func newTargetsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "targets <project>",
		Short: "List the targets of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := opts.editor(false)
			if err != nil {
				return err
			}
			out, err := e.View(cmd.Context(), args[0], func(ctx context.Context, x *ops.Session) (*ops.Outcome, error) {
				return x.ListTargets(ctx)
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out.Status == ops.StatusEmpty {
				fmt.Fprintln(w, "No targets found in the project.")
				return nil
			}
			fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("%d targets", len(out.Targets))))
			for _, t := range out.Targets {
				fmt.Fprintf(w, "  %s (%s)\n", t.Name, t.ProductType)
			}
			return nil
		},
	}
}

func openProject(opts *rootOptions, path string) (*project.Handle, error) {
	e, _, err := opts.editor(false)
	if err != nil {
		return nil, err
	}
	return project.Open(e.Resolve(path))
}

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui <project>",
		Short: "Browse a project's targets, groups and files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openProject(opts, args[0])
			if err != nil {
				return err
			}
			p := tea.NewProgram(tui.NewModel(h.Store, h.Name()), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err = p.Run()
			return err
		},
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export <project>",
		Short: "Export the target, phase and file structure as JSON or an Excalidraw scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var write func(io.Writer) error
			h, err := openProject(opts, args[0])
			if err != nil {
				return err
			}
			switch format {
			case "json":
				write = func(w io.Writer) error { return export.JSON(h.Store, w) }
			case "excalidraw":
				write = func(w io.Writer) error { return export.Excalidraw(h.Store, w) }
			default:
				return fmt.Errorf("unknown format %q (want json or excalidraw)", format)
			}

			if out == "" || out == "-" {
				return write(cmd.OutOrStdout())
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := write(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			logging.FromContext(cmd.Context()).Info("exported project", "project", h.Name(), "format", format, "out", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or excalidraw")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	return cmd
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [project]",
		Short: "Show journaled edits, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, journal, err := opts.editor(true)
			if err != nil {
				return err
			}
			defer journal.Close()

			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			entries, err := e.History(path, limit)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(w, "No edits recorded.")
				return nil
			}
			for _, entry := range entries {
				line := fmt.Sprintf("%s  %-8s %-20s %s", entry.CreatedAt.Format(time.DateTime), entry.Kind, entry.Tool, entry.Project)
				if entry.Undone {
					line += " (undone)"
				}
				fmt.Fprintln(w, line)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries, 0 for all")
	return cmd
}

func newUndoCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "undo <project>",
		Short: "Restore a project to its state before the last journaled edit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, journal, err := opts.editor(true)
			if err != nil {
				return err
			}
			defer journal.Close()

			res, err := e.Undo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Undid %s on %s (edited %s)\n",
				res.Tool, res.Project, res.At.Format(time.DateTime))
			return nil
		},
	}
}
