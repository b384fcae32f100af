package usecase

import (
	"context"

	"github.com/hjyangBig2/lighter/pkg/session/core/config"
	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/exception"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/logger"
)

// EnsurePermanentSession creates the permanent session when enabled and none exists yet.
// It returns the permanent session, or nil when disabled.
func EnsurePermanentSession(ctx context.Context, cfg *config.SessionConfig, service SessionService) (*model.Application, error) {
	if cfg == nil || !cfg.PermanentSessionEnabled {
		return nil, nil
	}

	existing, err := service.FetchPermanent(ctx)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		logger.Infof("Permanent session %s is in state %s.", existing.ID, existing.State)
		return existing, nil
	}

	created, err := service.CreateSession(ctx, model.SubmitParams{}, model.ApplicationTypePermanentSession)
	if id, ok := exception.IsConflict(err); ok {
		logger.Infof("Permanent session %s was created concurrently.", id)
		return service.FetchPermanent(ctx)
	}
	if err != nil {
		return nil, err
	}
	logger.Infof("Created permanent session %s.", created.ID)
	return created, nil
}
