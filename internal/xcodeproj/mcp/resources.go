package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	statusURI  = "xcodeproj://status"
	historyURI = "xcodeproj://history"

	historyLimit = 50
)

type historyEntry struct {
	Project    string    `json:"project"`
	Tool       string    `json:"tool,omitempty"`
	Kind       string    `json:"kind"`
	BeforeHash string    `json:"before_hash,omitempty"`
	AfterHash  string    `json:"after_hash"`
	Undone     bool      `json:"undone,omitempty"`
	At         time.Time `json:"at"`
}

func (xs *XcodeprojServer) history(limit int) ([]historyEntry, error) {
	entries, err := xs.Editor.History("", limit)
	if err != nil {
		return nil, err
	}
	out := make([]historyEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntry{
			Project:    e.Project,
			Tool:       e.Tool,
			Kind:       string(e.Kind),
			BeforeHash: e.BeforeHash,
			AfterHash:  e.AfterHash,
			Undone:     e.Undone,
			At:         e.CreatedAt,
		})
	}
	return out, nil
}

// Resource Handlers

func (xs *XcodeprojServer) handleStatus(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	status := map[string]any{
		"status":   "healthy",
		"version":  Version,
		"root_dir": xs.RootDir,
		"base_dir": xs.Editor.BaseDir,
		"journal":  xs.Journal != nil,
		"watching": xs.Watcher != nil,
	}
	if recent, err := xs.history(1); err == nil && len(recent) > 0 {
		status["last_change"] = recent[0]
	}
	bytes, _ := json.MarshalIndent(status, "", "  ")
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: req.Params.URI, MIMEType: "application/json", Text: string(bytes)},
		},
	}, nil
}

func (xs *XcodeprojServer) handleHistory(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	entries, err := xs.history(historyLimit)
	if err != nil {
		return nil, err
	}
	bytes, _ := json.MarshalIndent(entries, "", "  ")
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: req.Params.URI, MIMEType: "application/json", Text: string(bytes)},
		},
	}, nil
}
