package model_test

import (
	"testing"
	"time"

	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationState_IsComplete(t *testing.T) {
	complete := map[model.ApplicationState]bool{
		model.ApplicationStateSuccess: true,
		model.ApplicationStateError:   true,
		model.ApplicationStateKilled:  true,
		model.ApplicationStateDead:    true,
	}
	for _, s := range model.AllApplicationStates {
		assert.Equal(t, complete[s], s.IsComplete(), "state %s", s)
	}
	for _, s := range model.RunningStates() {
		assert.True(t, s.IsRunning())
		assert.False(t, s.IsComplete())
	}
	assert.False(t, model.ApplicationStateNotStarted.IsRunning())
}

func TestParseApplicationState(t *testing.T) {
	s, err := model.ParseApplicationState("idle")
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStateIdle, s)

	_, err = model.ParseApplicationState("RUNNING")
	assert.Error(t, err)

	typ, err := model.ParseApplicationType("permanent_session")
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationTypePermanentSession, typ)
	assert.Equal(t, "permanent_session", typ.Lower())
}

func TestSubmitParams_MergeKeepsCallerFields(t *testing.T) {
	caller := model.SubmitParams{
		DriverMemory: "4G",
		NumExecutors: 8,
		Conf:         map[string]string{"spark.sql.shuffle.partitions": "50"},
	}
	defaults := model.SubmitParams{
		DriverCores:    1,
		DriverMemory:   "1G",
		ExecutorCores:  2,
		ExecutorMemory: "2G",
		NumExecutors:   2,
		Conf: map[string]string{
			"spark.sql.shuffle.partitions": "200",
			"spark.dynamicAllocation":      "false",
		},
	}

	merged := caller.Merge(defaults)

	assert.Equal(t, "4G", merged.DriverMemory)
	assert.Equal(t, 8, merged.NumExecutors)
	assert.Equal(t, 1, merged.DriverCores)
	assert.Equal(t, 2, merged.ExecutorCores)
	assert.Equal(t, "2G", merged.ExecutorMemory)
	assert.Equal(t, "50", merged.Conf["spark.sql.shuffle.partitions"])
	assert.Equal(t, "false", merged.Conf["spark.dynamicAllocation"])

	// Neither input is modified
	assert.Len(t, caller.Conf, 1)
	assert.Equal(t, "200", defaults.Conf["spark.sql.shuffle.partitions"])
}

func TestSubmitParams_ScanValue(t *testing.T) {
	p := model.SubmitParams{Name: "session_x", Args: []string{"a"}, Conf: map[string]string{"k": "v"}}
	v, err := p.Value()
	require.NoError(t, err)

	var scanned model.SubmitParams
	require.NoError(t, scanned.Scan([]byte(v.(string))))
	assert.Equal(t, p, scanned)

	require.NoError(t, scanned.Scan(nil))
	assert.Equal(t, model.SubmitParams{}, scanned)
	assert.Error(t, scanned.Scan(42))
}

func TestSubmitParams_StringMasksSecrets(t *testing.T) {
	p := model.SubmitParams{Name: "n", Conf: map[string]string{"db.password": "hunter2"}}
	assert.NotContains(t, p.String(), "hunter2")
}

func TestApplication_WithStateCopies(t *testing.T) {
	app := &model.Application{
		ID:           model.NewID(),
		State:        model.ApplicationStateDead,
		SubmitParams: model.SubmitParams{Conf: map[string]string{"k": "v"}},
		CreatedAt:    time.Now(),
	}
	killed := app.WithState(model.ApplicationStateKilled)
	killed.SubmitParams.Conf["k"] = "changed"

	assert.Equal(t, model.ApplicationStateDead, app.State)
	assert.Equal(t, "v", app.SubmitParams.Conf["k"])
	assert.Equal(t, app.ID, killed.ID)

	view := model.NewLiveView(app, model.ApplicationStateIdle)
	assert.True(t, view.Live)
	assert.Equal(t, model.ApplicationStateIdle, view.State)
	assert.Equal(t, model.ApplicationStateDead, app.State)
	assert.False(t, model.NewStoredView(app).Live)
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := model.NewID()
		_, dup := seen[id]
		assert.False(t, dup)
		seen[id] = struct{}{}
	}
}
