package usecase

import (
	"context"
	"errors"

	"github.com/hashicorp/go-multierror"

	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
	"github.com/hjyangBig2/lighter/pkg/session/core/domain/repository"
	"github.com/hjyangBig2/lighter/pkg/session/core/metrics"
	"github.com/hjyangBig2/lighter/pkg/session/core/ports"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/exception"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/logger"
)

// Sweeper kills live backend sessions whose record no longer exists.
// Such sessions are left behind when DeleteOne stops between the kill and the delete.
type Sweeper struct {
	storage  repository.ApplicationStorage
	lister   ports.LiveSessionLister
	backend  ports.Backend
	recorder metrics.MetricRecorder
}

// NewSweeper creates a Sweeper.
func NewSweeper(storage repository.ApplicationStorage, lister ports.LiveSessionLister, backend ports.Backend, recorder metrics.MetricRecorder) *Sweeper {
	return &Sweeper{storage: storage, lister: lister, backend: backend, recorder: recorder}
}

// Sweep kills every orphaned live session and returns their ids.
// A failure on one session does not stop the sweep; all failures are returned together.
func (s *Sweeper) Sweep(ctx context.Context) ([]string, error) {
	live, err := s.lister.ListLiveSessions(ctx)
	if err != nil {
		return nil, exception.NewServiceErrorf("backend", "failed to list live sessions", err)
	}

	var (
		killed []string
		result *multierror.Error
	)
	for _, id := range live {
		_, err := s.storage.FindApplication(ctx, id)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrApplicationNotFound) {
			result = multierror.Append(result, exception.NewServiceErrorf(moduleName, "failed to look up live session %s", id, err))
			continue
		}

		orphan := &model.Application{ID: id, Type: model.ApplicationTypeSession}
		if err := s.backend.Kill(ctx, orphan); err != nil {
			result = multierror.Append(result, exception.NewServiceErrorf("backend", "failed to kill orphaned session %s", id, err))
			continue
		}
		logger.Warnf("Killed orphaned live session %s with no stored record.", id)
		killed = append(killed, id)
	}

	if len(killed) > 0 {
		s.recorder.RecordOrphansKilled(ctx, len(killed))
	}
	return killed, result.ErrorOrNil()
}
