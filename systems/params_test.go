package systems

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func testParams() Params {
	return Params{
		Radius:          1,
		Mass:            1,
		SmoothingRadius: 1,
		RestDensity:     1,
		GasConstant:     10,
		Viscosity:       0.5,
		Gravity:         r3.Vec{Y: -9.81},
		Damping:         -0.5,
		Drag:            0,
		TimeStep:        0.001,
	}
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, testParams().Validate())

	tests := []struct {
		name   string
		mutate func(*Params)
		want   error
	}{
		{"zero smoothing radius", func(p *Params) { p.SmoothingRadius = 0 }, ErrInvalidSmoothingRadius},
		{"negative smoothing radius", func(p *Params) { p.SmoothingRadius = -1 }, ErrInvalidSmoothingRadius},
		{"NaN smoothing radius", func(p *Params) { p.SmoothingRadius = math.NaN() }, ErrInvalidSmoothingRadius},
		{"tiny smoothing radius", func(p *Params) { p.SmoothingRadius = 1e-300 }, ErrDegenerateKernel},
		{"zero time step", func(p *Params) { p.TimeStep = 0 }, ErrInvalidTimeStep},
		{"negative time step", func(p *Params) { p.TimeStep = -0.01 }, ErrInvalidTimeStep},
		{"zero mass", func(p *Params) { p.Mass = 0 }, ErrInvalidMass},
		{"infinite mass", func(p *Params) { p.Mass = math.Inf(1) }, ErrInvalidMass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), tt.want)
		})
	}
}

func TestParamsValidateReportsAll(t *testing.T) {
	p := testParams()
	p.SmoothingRadius = 0
	p.TimeStep = 0
	p.Mass = -1

	err := p.Validate()
	assert.ErrorIs(t, err, ErrInvalidSmoothingRadius)
	assert.ErrorIs(t, err, ErrInvalidTimeStep)
	assert.ErrorIs(t, err, ErrInvalidMass)
}
