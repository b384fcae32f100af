// Package dummy provides an in-process cluster backend. It keeps the live state of each session in
// memory and never launches a real process.
package dummy

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/fx"

	"github.com/hjyangBig2/lighter/pkg/session/core/config"
	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
	"github.com/hjyangBig2/lighter/pkg/session/core/ports"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/logger"
)

// BackendParams holds the dependencies injected via DI.
type BackendParams struct {
	fx.In
	Config *config.Config
}

// Backend implements ports.Backend, ports.LiveSessionLister and ports.ClusterSimulator.
type Backend struct {
	defaults model.SubmitParams

	mu sync.RWMutex
	// application id -> what the cluster reports
	live map[string]model.ApplicationInfo
}

var (
	_ ports.Backend           = (*Backend)(nil)
	_ ports.LiveSessionLister = (*Backend)(nil)
	_ ports.ClusterSimulator  = (*Backend)(nil)
)

// NewBackend creates a Backend whose session defaults come from lighter.backend.session_job.
func NewBackend(p BackendParams) *Backend {
	job := p.Config.Lighter.Backend.SessionJob
	defaults := model.SubmitParams{
		File:           job.File,
		DriverCores:    job.DriverCores,
		DriverMemory:   job.DriverMemory,
		ExecutorCores:  job.ExecutorCores,
		ExecutorMemory: job.ExecutorMemory,
		NumExecutors:   job.NumExecutors,
	}
	if len(job.Conf) > 0 {
		defaults.Conf = make(map[string]string, len(job.Conf))
		for k, v := range job.Conf {
			defaults.Conf[k] = v
		}
	}
	return &Backend{
		defaults: defaults,
		live:     make(map[string]model.ApplicationInfo),
	}
}

// SessionJobResources implements ports.Backend.
func (b *Backend) SessionJobResources() model.SubmitParams {
	return b.defaults.Clone()
}

// Launch registers the application as STARTING on the simulated cluster and returns its cluster id.
func (b *Backend) Launch(app *model.Application) string {
	clusterID := fmt.Sprintf("dummy-%s", app.ID)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.live[app.ID] = model.ApplicationInfo{State: model.ApplicationStateStarting, ApplicationID: clusterID}
	logger.Infof("DummyBackend: Launched '%s' (%s) as %s.", app.SubmitParams.Name, app.ID, clusterID)
	return clusterID
}

// SetState changes the state the cluster reports for a launched application.
// It returns false if the application was never launched.
func (b *Backend) SetState(appID string, state model.ApplicationState) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	info, ok := b.live[appID]
	if !ok {
		return false
	}
	info.State = state
	b.live[appID] = info
	logger.Debugf("DummyBackend: Application %s is now %s.", appID, state)
	return true
}

// GetInfo implements ports.Backend.
func (b *Backend) GetInfo(ctx context.Context, app *model.Application) (*model.ApplicationInfo, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	info, ok := b.live[app.ID]
	if !ok {
		return nil, false, nil
	}
	return &info, true, nil
}

// Kill implements ports.Backend. Unknown applications are ignored.
func (b *Backend) Kill(ctx context.Context, app *model.Application) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.live[app.ID]; !ok {
		logger.Debugf("DummyBackend: Kill of unknown application %s ignored.", app.ID)
		return nil
	}
	delete(b.live, app.ID)
	logger.Infof("DummyBackend: Killed application %s.", app.ID)
	return nil
}

// ListLiveSessions implements ports.LiveSessionLister. Applications in a complete state are not listed.
func (b *Backend) ListLiveSessions(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]string, 0, len(b.live))
	for id, info := range b.live {
		if !info.State.IsComplete() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
