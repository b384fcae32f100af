package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hjyangBig2/lighter/pkg/session/core/config"
	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
	"github.com/hjyangBig2/lighter/pkg/session/core/domain/repository"
	"github.com/hjyangBig2/lighter/pkg/session/core/metrics"
	"github.com/hjyangBig2/lighter/pkg/session/core/ports"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/exception"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/logger"
)

const moduleName = "session"

// StatementPolling bounds the wait of a synchronous statement execution.
type StatementPolling struct {
	Interval time.Duration
	Attempts int
}

// DefaultStatementPolling checks once per second, fifteen times.
var DefaultStatementPolling = StatementPolling{Interval: time.Second, Attempts: 15}

// NewStatementPolling reads the polling bounds from the session configuration.
func NewStatementPolling(cfg *config.SessionConfig) StatementPolling {
	p := DefaultStatementPolling
	if cfg == nil {
		return p
	}
	if cfg.StatementPollAttempts > 0 {
		p.Attempts = cfg.StatementPollAttempts
	}
	if cfg.StatementPollIntervalMillis >= 0 {
		p.Interval = time.Duration(cfg.StatementPollIntervalMillis) * time.Millisecond
	}
	return p
}

// DefaultSessionService is the default implementation of SessionService.
type DefaultSessionService struct {
	storage    repository.ApplicationStorage
	backend    ports.Backend
	statements ports.StatementHandler
	recorder   metrics.MetricRecorder
	tracer     metrics.Tracer
	clock      ports.Clock
	polling    StatementPolling

	// executeMu serializes ExecuteStatement process-wide.
	executeMu sync.Mutex
	// permanentMu serializes the existence check and save of a permanent session.
	permanentMu sync.Mutex
}

// Verify that DefaultSessionService implements the SessionService interface.
var _ SessionService = (*DefaultSessionService)(nil)

// NewDefaultSessionService creates a DefaultSessionService.
func NewDefaultSessionService(
	storage repository.ApplicationStorage,
	backend ports.Backend,
	statements ports.StatementHandler,
	recorder metrics.MetricRecorder,
	tracer metrics.Tracer,
	clock ports.Clock,
	polling StatementPolling,
) *DefaultSessionService {
	return &DefaultSessionService{
		storage:    storage,
		backend:    backend,
		statements: statements,
		recorder:   recorder,
		tracer:     tracer,
		clock:      clock,
		polling:    polling,
	}
}

// CreateSession implements SessionService.
func (s *DefaultSessionService) CreateSession(ctx context.Context, params model.SubmitParams, typ model.ApplicationType) (*model.Application, error) {
	ctx, end := s.tracer.StartSpan(ctx, "CreateSession", "")
	defer end()

	if typ == model.ApplicationTypePermanentSession {
		s.permanentMu.Lock()
		defer s.permanentMu.Unlock()

		existing, err := s.FetchPermanent(ctx)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			logger.Warnf("Permanent session already exists (ID: %s). Refusing to create another one.", existing.ID)
			return nil, exception.NewSessionAlreadyExistsError(existing.ID)
		}
	}

	launchName := typ.Lower() + "_" + model.NewID()
	app := &model.Application{
		ID:           model.NewID(),
		Type:         typ,
		State:        model.ApplicationStateNotStarted,
		SubmitParams: params.Merge(s.backend.SessionJobResources()).WithName(launchName),
		CreatedAt:    s.clock.Now(),
	}

	saved, err := s.storage.SaveApplication(ctx, app)
	if err != nil {
		s.tracer.RecordError(ctx, moduleName, err)
		return nil, exception.NewServiceError(moduleName, fmt.Sprintf("failed to save new %s", typ), err, exception.IsTemporary(err))
	}
	s.recorder.RecordSessionCreated(ctx, typ)
	logger.Infof("Created %s (ID: %s, name: %s).", typ, saved.ID, saved.SubmitParams.Name)
	logger.Debugf("Submit params of %s: %s", saved.ID, saved.SubmitParams)
	return saved, nil
}

// Fetch implements SessionService.
func (s *DefaultSessionService) Fetch(ctx context.Context, from, size int) ([]*model.Application, error) {
	apps, err := s.storage.FindApplications(ctx, model.ApplicationTypeSession, from, size)
	if err != nil {
		return nil, exception.NewServiceErrorf(moduleName, "failed to list sessions (from: %d, size: %d)", from, size, err)
	}
	return apps, nil
}

// FetchPermanent implements SessionService. If several permanent sessions exist, the first stored one is returned.
func (s *DefaultSessionService) FetchPermanent(ctx context.Context) (*model.Application, error) {
	apps, err := s.storage.FindApplications(ctx, model.ApplicationTypePermanentSession, 0, 1)
	if err != nil {
		return nil, exception.NewServiceErrorf(moduleName, "failed to look up the permanent session", err)
	}
	if len(apps) == 0 {
		return nil, nil
	}
	return apps[0], nil
}

// FetchRunning implements SessionService.
func (s *DefaultSessionService) FetchRunning(ctx context.Context) ([]*model.Application, error) {
	apps, err := s.storage.FindApplicationsByStates(ctx, model.ApplicationTypeSession, model.RunningStates(), 0)
	if err != nil {
		return nil, exception.NewServiceErrorf(moduleName, "failed to list running sessions", err)
	}
	return apps, nil
}

// FetchByState implements SessionService.
func (s *DefaultSessionService) FetchByState(ctx context.Context, state model.ApplicationState, limit int) ([]*model.Application, error) {
	apps, err := s.storage.FindApplicationsByStates(ctx, model.ApplicationTypeSession, []model.ApplicationState{state}, limit)
	if err != nil {
		return nil, exception.NewServiceErrorf(moduleName, "failed to list %s sessions", state, err)
	}
	return apps, nil
}

// Update implements SessionService.
func (s *DefaultSessionService) Update(ctx context.Context, app *model.Application) (*model.Application, error) {
	saved, err := s.storage.SaveApplication(ctx, app)
	if err != nil {
		return nil, exception.NewServiceErrorf(moduleName, "failed to update application %s", app.ID, err)
	}
	return saved, nil
}

// FetchOne implements SessionService.
func (s *DefaultSessionService) FetchOne(ctx context.Context, id string, liveStatus bool) (*model.ApplicationView, error) {
	app, err := s.fetchStored(ctx, id)
	if err != nil || app == nil {
		return nil, err
	}
	if !liveStatus || !app.State.IsComplete() {
		return model.NewStoredView(app), nil
	}

	ctx, end := s.tracer.StartSpan(ctx, "FetchOneLive", id)
	defer end()

	info, ok, err := s.backend.GetInfo(ctx, app)
	if err != nil {
		// An unreachable backend cannot confirm the live state; the stored state stands.
		logger.Warnf("Could not get live info of application %s, returning stored state %s: %v", id, app.State, err)
		s.tracer.RecordError(ctx, "backend", err)
		s.recorder.RecordLiveReconciliation(ctx, metrics.ReconcileOutcomeNoInfo)
		return model.NewStoredView(app), nil
	}
	if !ok {
		s.recorder.RecordLiveReconciliation(ctx, metrics.ReconcileOutcomeNoInfo)
		return model.NewStoredView(app), nil
	}

	hasWaiting, err := s.statements.HasWaitingStatement(ctx, app)
	if err != nil {
		return nil, exception.NewServiceErrorf(moduleName, "failed to check waiting statements of %s", id, err)
	}
	if hasWaiting {
		s.recorder.RecordLiveReconciliation(ctx, metrics.ReconcileOutcomePendingStatement)
		return model.NewStoredView(app), nil
	}

	state := AdjustState(true, info.State)
	s.recorder.RecordLiveReconciliation(ctx, metrics.ReconcileOutcomeReconciled)
	logger.Debugf("Application %s is stored as %s, backend reports %s, showing %s.", id, app.State, info.State, state)
	return model.NewLiveView(app, state), nil
}

func (s *DefaultSessionService) fetchStored(ctx context.Context, id string) (*model.Application, error) {
	app, err := s.storage.FindApplication(ctx, id)
	if errors.Is(err, repository.ErrApplicationNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, exception.NewServiceErrorf(moduleName, "failed to load application %s", id, err)
	}
	return app, nil
}

// DeleteOne implements SessionService. The record is only deleted after the backend kill succeeded;
// a crash between the two steps leaves a live session without a record, which Sweeper.Sweep repairs.
func (s *DefaultSessionService) DeleteOne(ctx context.Context, id string) error {
	ctx, end := s.tracer.StartSpan(ctx, "DeleteOne", id)
	defer end()

	app, err := s.fetchStored(ctx, id)
	if err != nil || app == nil {
		return err
	}

	if err := s.backend.Kill(ctx, app); err != nil {
		s.tracer.RecordError(ctx, "backend", err)
		return exception.NewServiceErrorf("backend", "failed to kill application %s, record kept", id, err)
	}
	s.recorder.RecordSessionKilled(ctx, app.Type)

	if err := s.storage.DeleteApplication(ctx, id); err != nil {
		s.tracer.RecordError(ctx, moduleName, err)
		return exception.NewServiceErrorf(moduleName, "application %s was killed but its record could not be deleted", id, err)
	}
	s.recorder.RecordSessionDeleted(ctx, app.Type)
	logger.Infof("Deleted %s %s.", app.Type, id)
	return nil
}

// KillOne implements SessionService.
func (s *DefaultSessionService) KillOne(ctx context.Context, app *model.Application) error {
	ctx, end := s.tracer.StartSpan(ctx, "KillOne", app.ID)
	defer end()

	if err := s.backend.Kill(ctx, app); err != nil {
		s.tracer.RecordError(ctx, "backend", err)
		return exception.NewServiceErrorf("backend", "failed to kill application %s", app.ID, err)
	}
	s.recorder.RecordSessionKilled(ctx, app.Type)

	if _, err := s.storage.SaveApplication(ctx, app.WithState(model.ApplicationStateKilled)); err != nil {
		return exception.NewServiceErrorf(moduleName, "application %s was killed but its state could not be saved", app.ID, err)
	}
	logger.Infof("Killed %s %s.", app.Type, app.ID)
	return nil
}

// CreateStatement implements SessionService.
func (s *DefaultSessionService) CreateStatement(ctx context.Context, sessionID string, stmt *model.Statement) (*model.Statement, error) {
	return s.statements.ProcessStatement(ctx, sessionID, stmt)
}

// GetStatement implements SessionService.
func (s *DefaultSessionService) GetStatement(ctx context.Context, sessionID, statementID string) (*model.Statement, error) {
	return s.statements.GetStatement(ctx, sessionID, statementID)
}

// CancelStatement implements SessionService.
func (s *DefaultSessionService) CancelStatement(ctx context.Context, sessionID, statementID string) (*model.Statement, error) {
	return s.statements.CancelStatement(ctx, sessionID, statementID)
}

// ExecuteStatement implements SessionService.
// The call is not cancellable: once started it runs to output or to cancellation.
func (s *DefaultSessionService) ExecuteStatement(ctx context.Context, stmt *model.Statement) (*model.Statement, error) {
	ctx = context.WithoutCancel(ctx)

	s.executeMu.Lock()
	defer s.executeMu.Unlock()
	// Time spent waiting for another execution is excluded.
	started := s.clock.Now()

	ctx, end := s.tracer.StartSpan(ctx, "ExecuteStatement", "")
	defer end()

	result, attempts, outcome, err := s.executeLocked(ctx, stmt)
	s.recorder.RecordStatementExecution(ctx, outcome, attempts, s.clock.Now().Sub(started))
	if err != nil {
		s.tracer.RecordError(ctx, moduleName, err)
	}
	return result, err
}

func (s *DefaultSessionService) executeLocked(ctx context.Context, stmt *model.Statement) (*model.Statement, int, string, error) {
	permanent, err := s.FetchPermanent(ctx)
	if err != nil {
		return nil, 0, metrics.ExecutionOutcomeFailed, err
	}
	if permanent == nil {
		return nil, 0, metrics.ExecutionOutcomeFailed, exception.ErrPermanentSessionNotFound
	}
	sessionID := permanent.ID

	submitted, err := s.statements.ProcessStatement(ctx, sessionID, stmt)
	if err != nil {
		return nil, 0, metrics.ExecutionOutcomeFailed, exception.NewServiceErrorf("statement", "failed to submit statement to permanent session %s", sessionID, err)
	}
	statementID := submitted.ID
	logger.Debugf("Submitted statement %s to permanent session %s.", statementID, sessionID)

	for attempt := 1; attempt <= s.polling.Attempts; attempt++ {
		s.clock.Sleep(s.polling.Interval)

		current, err := s.statements.GetStatement(ctx, sessionID, statementID)
		if err != nil {
			return nil, attempt, metrics.ExecutionOutcomeFailed, exception.NewServiceErrorf("statement", "failed to check statement %s (attempt %d)", statementID, attempt, err)
		}
		if current.HasOutput() {
			logger.Debugf("Statement %s produced output after %d checks.", statementID, attempt)
			return current, attempt, metrics.ExecutionOutcomeAvailable, nil
		}
	}

	logger.Warnf("Statement %s produced no output after %d checks, cancelling.", statementID, s.polling.Attempts)
	cancelled, err := s.statements.CancelStatement(ctx, sessionID, statementID)
	if err != nil {
		return nil, s.polling.Attempts, metrics.ExecutionOutcomeFailed, exception.NewServiceErrorf("statement", "failed to cancel statement %s", statementID, err)
	}
	return cancelled, s.polling.Attempts, metrics.ExecutionOutcomeCancelled, nil
}
