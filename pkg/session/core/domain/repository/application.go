package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
)

// ErrApplicationNotFound is returned when an application record does not exist.
var ErrApplicationNotFound = errors.New("application not found")

// ApplicationStorage persists application records. Implementations add no locking of their own:
// concurrent saves of the same record are last-write-wins.
type ApplicationStorage interface {
	// FindApplications returns a page of applications of the given type in insertion order.
	// FindApplicationsByStates and FindUnarchivedApplications use the same order.
	FindApplications(ctx context.Context, typ model.ApplicationType, offset, limit int) ([]*model.Application, error)

	// FindApplicationsByStates returns at most limit applications of the given type whose state is one of states.
	// A non-positive limit means no limit.
	FindApplicationsByStates(ctx context.Context, typ model.ApplicationType, states []model.ApplicationState, limit int) ([]*model.Application, error)

	// FindUnarchivedApplications is FindApplicationsByStates restricted to records without ArchivedAt.
	FindUnarchivedApplications(ctx context.Context, typ model.ApplicationType, states []model.ApplicationState, limit int) ([]*model.Application, error)

	// MarkApplicationsArchived sets ArchivedAt of the given records. Unknown ids are ignored.
	MarkApplicationsArchived(ctx context.Context, ids []string, at time.Time) error

	// FindApplication returns the application with the given id, or ErrApplicationNotFound.
	FindApplication(ctx context.Context, id string) (*model.Application, error)

	// SaveApplication inserts the application or overwrites the record with the same id.
	// CreatedAt and ArchivedAt of an existing record are kept.
	SaveApplication(ctx context.Context, app *model.Application) (*model.Application, error)

	// DeleteApplication removes the record. Deleting a missing record is not an error.
	DeleteApplication(ctx context.Context, id string) error
}
