// Package ops implements the edits a caller can make to a project graph.
//
// Every operation runs against one graph.Store and returns an *Outcome. Routine
// situations such as a missing target or a duplicate group are outcomes, not
// errors. Errors are reserved for input the operation cannot act on and for
// structural context it cannot proceed without; after an error the store must
// be discarded.
package ops

import (
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/domain"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/graph"
)

// Status classifies an outcome.
type Status string

const (
	StatusSuccess       Status = "success"
	StatusNotFound      Status = "not_found"
	StatusAlreadyExists Status = "already_exists"
	// StatusEmpty is a successful read that found nothing to list.
	StatusEmpty Status = "empty"
)

// Kind names what an outcome is about, so a missing target can be told apart
// from a missing group.
type Kind string

const (
	KindFile      Kind = "file"
	KindFramework Kind = "framework"
	KindGroup     Kind = "group"
	KindTarget    Kind = "target"
	KindPhase     Kind = "phase"
)

// Outcome is the structured result of an operation.
type Outcome struct {
	Status Status
	// Kind and Subject name the entity the status is about: the missing
	// target for a not-found, the duplicate group for an already-exists.
	Kind    Kind
	Subject string
	ID      domain.ObjectID

	Target    string
	Parent    string
	Embedded  bool
	PhaseType domain.PhaseKind
	Added     []string
	Skipped   []string
	Warnings  []string

	NewPath         string
	MovedOnDisk     bool
	RemovedFromDisk bool

	Targets []TargetInfo
	Files   []FileEntry

	commit   []func() error
	rollback []func() error
}

// TargetInfo is one row of ListTargets.
type TargetInfo struct {
	Name        string
	ProductType string
}

// FileEntry is one row of ListFiles.
type FileEntry struct {
	Path     string
	FileType string
	// Phase is set when files are listed per target.
	Phase string
}

func success(kind Kind, subject string) *Outcome {
	return &Outcome{Status: StatusSuccess, Kind: kind, Subject: subject}
}

func notFound(kind Kind, subject string) *Outcome {
	return &Outcome{Status: StatusNotFound, Kind: kind, Subject: subject}
}

func alreadyExists(kind Kind, subject string) *Outcome {
	return &Outcome{Status: StatusAlreadyExists, Kind: kind, Subject: subject}
}

// OK reports whether the operation did what was asked.
func (o *Outcome) OK() bool { return o.Status == StatusSuccess || o.Status == StatusEmpty }

// Commit finalizes side effects on disk after the project file was written.
func (o *Outcome) Commit() error {
	var first error
	for _, fn := range o.commit {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	o.commit = nil
	return first
}

// Rollback undoes side effects on disk, newest first, when the project file
// could not be written.
func (o *Outcome) Rollback() error {
	var first error
	for i := len(o.rollback) - 1; i >= 0; i-- {
		if err := o.rollback[i](); err != nil && first == nil {
			first = err
		}
	}
	o.rollback = nil
	o.commit = nil
	return first
}

// Session is one edit against a loaded project graph.
type Session struct {
	Store *graph.Store
	// SourceRoot is the directory holding the .xcodeproj bundle. Group-relative
	// paths resolve against it.
	SourceRoot string
	// FrameworksGroup is the navigator group new framework references go into.
	FrameworksGroup string
}

// NewSession returns a session with default settings.
func NewSession(s *graph.Store, sourceRoot string) *Session {
	return &Session{Store: s, SourceRoot: sourceRoot, FrameworksGroup: "Frameworks"}
}
