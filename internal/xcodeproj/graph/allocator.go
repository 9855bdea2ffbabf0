package graph

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/domain"
)

// Allocator hands out object identifiers that collide neither with the
// identifiers of the loaded graph nor with any it has produced before.
// Removed identifiers stay reserved for the lifetime of the allocator.
type Allocator struct {
	used map[domain.ObjectID]bool
	next func() [16]byte
}

// NewAllocator seeds an allocator with the identifiers already in use.
func NewAllocator(existing []domain.ObjectID) *Allocator {
	a := &Allocator{
		used: make(map[domain.ObjectID]bool, len(existing)),
		next: func() [16]byte { return uuid.New() },
	}
	a.Reserve(existing...)
	return a
}

// Reserve marks identifiers as taken.
func (a *Allocator) Reserve(ids ...domain.ObjectID) {
	for _, id := range ids {
		a.used[id] = true
	}
}

// Allocate returns a fresh 24-digit uppercase hex identifier.
func (a *Allocator) Allocate() domain.ObjectID {
	for {
		u := a.next()
		id := domain.ObjectID(strings.ToUpper(hex.EncodeToString(u[:12])))
		if !a.used[id] {
			a.used[id] = true
			return id
		}
	}
}
