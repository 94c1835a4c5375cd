// Package testutil provides shared test doubles and builders for
// simulator-facing tests.
package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gridwright/evosize/pkg/core"
)

// MockSimulator is a mock implementation of core.Simulator. Script outcomes
// with the usual testify expectations:
//
//	sim := &testutil.MockSimulator{}
//	sim.On("Simulate", mock.Anything, mock.Anything).
//	    Return(testutil.Components("plant", map[string]float64{"annuity_total": 10}), nil)
type MockSimulator struct {
	mock.Mock
}

func (m *MockSimulator) Simulate(ctx context.Context, model core.Model) ([]core.ComponentResult, error) {
	args := m.Called(ctx, model)
	if results := args.Get(0); results != nil {
		return results.([]core.ComponentResult), args.Error(1)
	}
	return nil, args.Error(1)
}

var _ core.Simulator = (*MockSimulator)(nil)
