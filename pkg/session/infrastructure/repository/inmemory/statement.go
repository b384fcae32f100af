package inmemory

import (
	"context"
	"fmt"

	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
	"github.com/hjyangBig2/lighter/pkg/session/core/domain/repository"
)

func cloneStatement(s *model.Statement) *model.Statement {
	c := *s
	if s.Output != nil {
		out := *s.Output
		if s.Output.Data != nil {
			out.Data = make(map[string]interface{}, len(s.Output.Data))
			for k, v := range s.Output.Data {
				out.Data[k] = v
			}
		}
		c.Output = &out
	}
	return &c
}

// CreateStatement stores a new statement. It fails if the id is already used in the session.
func (r *InMemorySessionRepository) CreateStatement(ctx context.Context, sessionID string, stmt *model.Statement) (*model.Statement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.statements[sessionID] {
		if existing.ID == stmt.ID {
			return nil, fmt.Errorf("statement %s already exists in session %s", stmt.ID, sessionID)
		}
	}
	r.statements[sessionID] = append(r.statements[sessionID], cloneStatement(stmt))
	return cloneStatement(stmt), nil
}

// FindStatement returns the statement, or repository.ErrStatementNotFound.
func (r *InMemorySessionRepository) FindStatement(ctx context.Context, sessionID, statementID string) (*model.Statement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.statements[sessionID] {
		if s.ID == statementID {
			return cloneStatement(s), nil
		}
	}
	return nil, repository.ErrStatementNotFound
}

// TransitionStatement replaces the stored statement with the same id while it is in state from.
func (r *InMemorySessionRepository) TransitionStatement(ctx context.Context, sessionID string, from model.StatementState, stmt *model.Statement) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.statements[sessionID] {
		if s.ID != stmt.ID {
			continue
		}
		if s.State != from {
			return false, nil
		}
		r.statements[sessionID][i] = cloneStatement(stmt)
		return true, nil
	}
	return false, repository.ErrStatementNotFound
}

// FindStatementsByState returns the session's statements in the given state, oldest first.
func (r *InMemorySessionRepository) FindStatementsByState(ctx context.Context, sessionID string, state model.StatementState) ([]*model.Statement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Statement, 0)
	for _, s := range r.statements[sessionID] {
		if s.State == state {
			result = append(result, cloneStatement(s))
		}
	}
	return result, nil
}
