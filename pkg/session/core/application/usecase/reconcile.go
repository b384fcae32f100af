package usecase

import "github.com/hjyangBig2/lighter/pkg/session/core/domain/model"

// AdjustState maps the state reported by the backend to the state shown for a session,
// given whether any of its statements is still waiting for output.
// A busy session with nothing waiting is idle; an idle session with a waiting statement is busy.
func AdjustState(noWaitingStatement bool, live model.ApplicationState) model.ApplicationState {
	switch live {
	case model.ApplicationStateBusy:
		if noWaitingStatement {
			return model.ApplicationStateIdle
		}
		return live
	case model.ApplicationStateIdle:
		if !noWaitingStatement {
			return model.ApplicationStateBusy
		}
		return live
	case model.ApplicationStateNotStarted,
		model.ApplicationStateStarting,
		model.ApplicationStateShuttingDown,
		model.ApplicationStateSuccess,
		model.ApplicationStateError,
		model.ApplicationStateKilled,
		model.ApplicationStateDead:
		return live
	default:
		return live
	}
}
