// Package export renders a project's targets, build phases and files as
// diagrams or JSON.
package export

import (
	"encoding/json"
	"io"

	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/domain"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/graph"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/ops"
)

// TargetNode is a target with its phases in execution order.
type TargetNode struct {
	ID          domain.ObjectID `json:"id"`
	Name        string          `json:"name"`
	ProductType string          `json:"product_type"`
	Phases      []PhaseNode     `json:"phases"`
}

// PhaseNode is a build phase with the files it processes.
type PhaseNode struct {
	ID      domain.ObjectID `json:"id"`
	Name    string          `json:"name"`
	Isa     domain.Isa      `json:"isa"`
	Summary string          `json:"summary"`
	Files   []FileNode      `json:"files"`
}

// FileNode is a file reference joined into a phase.
type FileNode struct {
	ID   domain.ObjectID `json:"id"`
	Name string          `json:"name"`
	Path string          `json:"path"`
}

// BuildTree collects the target → phase → file hierarchy of a store.
func BuildTree(s *graph.Store) []TargetNode {
	var targets []TargetNode
	for _, t := range s.Targets() {
		tn := TargetNode{ID: t.ID, Name: t.Name(), ProductType: t.ProductType(), Phases: []PhaseNode{}}
		for _, id := range t.Phases() {
			phase, err := s.Phase(id)
			if err != nil {
				continue
			}
			pn := PhaseNode{ID: phase.ID, Name: phase.Name(), Isa: phase.Isa, Summary: ops.PhaseSummary(phase), Files: []FileNode{}}
			for _, bf := range phase.Files() {
				ref, err := s.FileRef(s.Ref(bf, "fileRef"))
				if err != nil {
					continue
				}
				pn.Files = append(pn.Files, FileNode{ID: ref.ID, Name: ref.Name(), Path: ref.Path()})
			}
			tn.Phases = append(tn.Phases, pn)
		}
		targets = append(targets, tn)
	}
	return targets
}

// JSON writes the tree as indented JSON.
func JSON(s *graph.Store, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildTree(s))
}
