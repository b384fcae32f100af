// Package ports declares the collaborators the session coordinator drives.
package ports

import (
	"context"

	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
)

// Backend runs session processes on the compute cluster.
type Backend interface {
	// SessionJobResources returns the default resource sizing for a new session.
	SessionJobResources() model.SubmitParams

	// GetInfo reports what the cluster knows about the application.
	// ok is false when the backend has no information about it.
	GetInfo(ctx context.Context, app *model.Application) (info *model.ApplicationInfo, ok bool, err error)

	// Kill terminates the application. Killing an unknown or already finished application is not an error.
	Kill(ctx context.Context, app *model.Application) error
}

// ClusterSimulator is implemented by in-process backends whose cluster state can be driven directly.
type ClusterSimulator interface {
	// Launch registers the application on the cluster and returns its cluster id.
	Launch(app *model.Application) string
	// SetState changes the reported state of a launched application. It returns false for an unknown one.
	SetState(appID string, state model.ApplicationState) bool
}

// LiveSessionLister is implemented by backends that can enumerate the sessions they are running.
type LiveSessionLister interface {
	// ListLiveSessions returns the application ids of every session alive on the cluster.
	ListLiveSessions(ctx context.Context) ([]string, error)
}
