package model

import (
	"fmt"
	"strings"
	"time"
)

// ApplicationType determines resource defaults and query partitioning of an application record.
type ApplicationType string

const (
	ApplicationTypeSession          ApplicationType = "SESSION"
	ApplicationTypePermanentSession ApplicationType = "PERMANENT_SESSION"
	ApplicationTypeBatch            ApplicationType = "BATCH"
)

// String returns the string representation of the ApplicationType.
func (t ApplicationType) String() string {
	return string(t)
}

// Lower returns the lower-cased type name used as the launch name prefix.
func (t ApplicationType) Lower() string {
	return strings.ToLower(string(t))
}

// ParseApplicationType converts s (case-insensitive) to an ApplicationType.
func ParseApplicationType(s string) (ApplicationType, error) {
	switch t := ApplicationType(strings.ToUpper(s)); t {
	case ApplicationTypeSession, ApplicationTypePermanentSession, ApplicationTypeBatch:
		return t, nil
	default:
		return "", fmt.Errorf("unknown application type: %q", s)
	}
}

// ApplicationState represents the lifecycle state of an application.
//
//	NOT_STARTED -> STARTING -> IDLE/BUSY -> SUCCESS | ERROR | KILLED | DEAD
type ApplicationState string

const (
	ApplicationStateNotStarted   ApplicationState = "NOT_STARTED"
	ApplicationStateStarting     ApplicationState = "STARTING"
	ApplicationStateIdle         ApplicationState = "IDLE"
	ApplicationStateBusy         ApplicationState = "BUSY"
	ApplicationStateShuttingDown ApplicationState = "SHUTTING_DOWN"
	ApplicationStateSuccess      ApplicationState = "SUCCESS"
	ApplicationStateError        ApplicationState = "ERROR"
	ApplicationStateKilled       ApplicationState = "KILLED"
	ApplicationStateDead         ApplicationState = "DEAD"
)

// AllApplicationStates lists every state in lifecycle order.
var AllApplicationStates = []ApplicationState{
	ApplicationStateNotStarted,
	ApplicationStateStarting,
	ApplicationStateIdle,
	ApplicationStateBusy,
	ApplicationStateShuttingDown,
	ApplicationStateSuccess,
	ApplicationStateError,
	ApplicationStateKilled,
	ApplicationStateDead,
}

// String returns the string representation of the ApplicationState.
func (s ApplicationState) String() string {
	return string(s)
}

// IsComplete checks if the state is terminal.
func (s ApplicationState) IsComplete() bool {
	switch s {
	case ApplicationStateSuccess, ApplicationStateError, ApplicationStateKilled, ApplicationStateDead:
		return true
	default:
		return false
	}
}

// IsRunning checks if the backend considers the application alive.
func (s ApplicationState) IsRunning() bool {
	switch s {
	case ApplicationStateStarting, ApplicationStateIdle, ApplicationStateBusy:
		return true
	default:
		return false
	}
}

// RunningStates returns the states reported for an actively alive session.
func RunningStates() []ApplicationState {
	return []ApplicationState{ApplicationStateStarting, ApplicationStateIdle, ApplicationStateBusy}
}

// CompleteStates returns the terminal states.
func CompleteStates() []ApplicationState {
	return []ApplicationState{ApplicationStateSuccess, ApplicationStateError, ApplicationStateKilled, ApplicationStateDead}
}

// ParseApplicationState converts s (case-insensitive) to an ApplicationState.
func ParseApplicationState(s string) (ApplicationState, error) {
	st := ApplicationState(strings.ToUpper(s))
	for _, known := range AllApplicationStates {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown application state: %q", s)
}

// Application is the stored record of a session or batch application.
// ID and SubmitParams are set once at creation.
type Application struct {
	ID           string           `json:"id"`
	Type         ApplicationType  `json:"type"`
	State        ApplicationState `json:"state"`
	AppID        string           `json:"appId,omitempty"`
	AppInfo      string           `json:"appInfo,omitempty"`
	SubmitParams SubmitParams     `json:"submitParams"`
	CreatedAt    time.Time        `json:"createdAt"`
	ContactedAt  *time.Time       `json:"contactedAt,omitempty"`
	// ArchivedAt is set once the record has been exported to the session archive.
	ArchivedAt *time.Time `json:"archivedAt,omitempty"`
}

// Clone returns a deep copy of the application.
func (a *Application) Clone() *Application {
	if a == nil {
		return nil
	}
	c := *a
	c.SubmitParams = a.SubmitParams.Clone()
	if a.ContactedAt != nil {
		t := *a.ContactedAt
		c.ContactedAt = &t
	}
	if a.ArchivedAt != nil {
		t := *a.ArchivedAt
		c.ArchivedAt = &t
	}
	return &c
}

// WithState returns a copy of the application in the given state.
func (a *Application) WithState(state ApplicationState) *Application {
	c := a.Clone()
	c.State = state
	return c
}

// ApplicationInfo is what the backend knows about a live application.
type ApplicationInfo struct {
	State         ApplicationState `json:"state"`
	ApplicationID string           `json:"applicationId"`
}

// ApplicationView is a read-only result of a fetch. When Live is true, State was
// reconciled against the backend and differs from what is stored; a view is never saved.
type ApplicationView struct {
	Application
	Live bool `json:"-"`
}

// NewStoredView wraps a stored application without reconciliation.
func NewStoredView(app *Application) *ApplicationView {
	return &ApplicationView{Application: *app.Clone()}
}

// NewLiveView wraps a copy of app with the reconciled state.
func NewLiveView(app *Application, state ApplicationState) *ApplicationView {
	return &ApplicationView{Application: *app.WithState(state), Live: true}
}
