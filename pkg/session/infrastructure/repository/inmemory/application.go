package inmemory

import (
	"context"
	"time"

	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
	"github.com/hjyangBig2/lighter/pkg/session/core/domain/repository"
)

// FindApplications returns a page of applications of the given type in insertion order.
func (r *InMemorySessionRepository) FindApplications(ctx context.Context, typ model.ApplicationType, offset, limit int) ([]*model.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Application, 0)
	skipped := 0
	for _, id := range r.order {
		app := r.applications[id]
		if app.Type != typ {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if limit > 0 && len(result) >= limit {
			break
		}
		result = append(result, app.Clone())
	}
	return result, nil
}

// FindApplicationsByStates returns applications of the given type whose state is one of states.
func (r *InMemorySessionRepository) FindApplicationsByStates(ctx context.Context, typ model.ApplicationType, states []model.ApplicationState, limit int) ([]*model.Application, error) {
	return r.findByStates(typ, states, limit, false), nil
}

// FindUnarchivedApplications returns applications of the given type in one of states that were never archived.
func (r *InMemorySessionRepository) FindUnarchivedApplications(ctx context.Context, typ model.ApplicationType, states []model.ApplicationState, limit int) ([]*model.Application, error) {
	return r.findByStates(typ, states, limit, true), nil
}

func (r *InMemorySessionRepository) findByStates(typ model.ApplicationType, states []model.ApplicationState, limit int, unarchivedOnly bool) []*model.Application {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[model.ApplicationState]struct{}, len(states))
	for _, s := range states {
		wanted[s] = struct{}{}
	}

	result := make([]*model.Application, 0)
	for _, id := range r.order {
		if limit > 0 && len(result) >= limit {
			break
		}
		app := r.applications[id]
		if app.Type != typ || (unarchivedOnly && app.ArchivedAt != nil) {
			continue
		}
		if _, ok := wanted[app.State]; ok {
			result = append(result, app.Clone())
		}
	}
	return result
}

// MarkApplicationsArchived sets ArchivedAt of the given applications.
func (r *InMemorySessionRepository) MarkApplicationsArchived(ctx context.Context, ids []string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		if app, ok := r.applications[id]; ok {
			archivedAt := at
			app.ArchivedAt = &archivedAt
		}
	}
	return nil
}

// FindApplication returns the application with the given id.
func (r *InMemorySessionRepository) FindApplication(ctx context.Context, id string) (*model.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	app, ok := r.applications[id]
	if !ok {
		return nil, repository.ErrApplicationNotFound
	}
	return app.Clone(), nil
}

// SaveApplication inserts the application or overwrites an existing record in place.
// CreatedAt and ArchivedAt of an existing record are kept.
func (r *InMemorySessionRepository) SaveApplication(ctx context.Context, app *model.Application) (*model.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := app.Clone()
	if existing, exists := r.applications[app.ID]; exists {
		stored.CreatedAt = existing.CreatedAt
		stored.ArchivedAt = existing.ArchivedAt
	} else {
		r.order = append(r.order, app.ID)
	}
	r.applications[app.ID] = stored
	return stored.Clone(), nil
}

// DeleteApplication removes the application and its statements.
func (r *InMemorySessionRepository) DeleteApplication(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.applications[id]; !exists {
		return nil
	}
	delete(r.applications, id)
	delete(r.statements, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
