package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hjyangBig2/lighter/pkg/session/core/application/usecase"
	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
)

func TestAdjustState(t *testing.T) {
	assert.Equal(t, model.ApplicationStateIdle, usecase.AdjustState(true, model.ApplicationStateBusy))
	assert.Equal(t, model.ApplicationStateBusy, usecase.AdjustState(false, model.ApplicationStateBusy))
	assert.Equal(t, model.ApplicationStateBusy, usecase.AdjustState(false, model.ApplicationStateIdle))
	assert.Equal(t, model.ApplicationStateIdle, usecase.AdjustState(true, model.ApplicationStateIdle))

	for _, s := range model.AllApplicationStates {
		if s == model.ApplicationStateBusy || s == model.ApplicationStateIdle {
			continue
		}
		assert.Equal(t, s, usecase.AdjustState(true, s), s)
		assert.Equal(t, s, usecase.AdjustState(false, s), s)
	}
}
