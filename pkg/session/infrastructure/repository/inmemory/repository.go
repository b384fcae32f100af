// Package inmemory provides an in-memory SessionRepository, used by tests and by deployments
// that do not need records to survive a restart.
package inmemory

import (
	"sync"

	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
)

// InMemorySessionRepository keeps applications and statements in maps.
// Records are copied in and out so callers never share state with the store.
type InMemorySessionRepository struct {
	applications map[string]*model.Application
	order        []string // application ids in insertion order
	statements   map[string][]*model.Statement
	mu           sync.RWMutex
}

// NewInMemorySessionRepository creates an empty repository.
func NewInMemorySessionRepository() *InMemorySessionRepository {
	return &InMemorySessionRepository{
		applications: make(map[string]*model.Application),
		statements:   make(map[string][]*model.Statement),
	}
}

// Close holds no external resources and always returns nil.
func (r *InMemorySessionRepository) Close() error {
	return nil
}
