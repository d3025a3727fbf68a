// Package plant provides the clean-signal side of the simulated control loop.
//
// Process is a bank of independent first order lags driven by the manipulated
// variables and a sinusoidal load disturbance. Controller is a per-lane PI
// loop closing it. Neither knows about the lossy link between them.
package plant

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Params describes the process dynamics
type Params struct {
	Lanes        int
	TimeConstant float64 // seconds
	Gain         float64
	Disturbance  float64 // amplitude of the load disturbance
	Period       float64 // seconds per disturbance cycle
}

// Process integrates dx/dt = (-x + gain*u)/tau + d(t) per lane with fixed step RK4
type Process struct {
	params Params
	state  *mat.VecDense
	time   float64
}

// NewProcess creates a process at rest
func NewProcess(p Params) (*Process, error) {
	if p.Lanes < 1 {
		return nil, fmt.Errorf("process needs at least one lane, got %d", p.Lanes)
	}
	if p.TimeConstant <= 0 {
		return nil, fmt.Errorf("time constant must be positive, got %v", p.TimeConstant)
	}
	return &Process{
		params: p,
		state:  mat.NewVecDense(p.Lanes, nil),
	}, nil
}

// Time returns the simulated time in seconds
func (p *Process) Time() float64 {
	return p.time
}

// Outputs returns a copy of the current measurements
func (p *Process) Outputs() []float64 {
	return append([]float64(nil), p.state.RawVector().Data...)
}

// Step advances the process by dt seconds holding u constant
func (p *Process) Step(dt float64, u []float64) error {
	if len(u) != p.params.Lanes {
		return fmt.Errorf("process input has %d values, want %d", len(u), p.params.Lanes)
	}
	input := mat.NewVecDense(len(u), append([]float64(nil), u...))

	k1 := p.derivative(p.time, p.state, input)
	k2 := p.derivative(p.time+dt/2, offset(p.state, k1, dt/2), input)
	k3 := p.derivative(p.time+dt/2, offset(p.state, k2, dt/2), input)
	k4 := p.derivative(p.time+dt, offset(p.state, k3, dt), input)

	var sum mat.VecDense
	sum.AddVec(k1, k4)
	sum.AddScaledVec(&sum, 2, k2)
	sum.AddScaledVec(&sum, 2, k3)
	p.state.AddScaledVec(p.state, dt/6, &sum)
	p.time += dt
	return nil
}

func (p *Process) derivative(t float64, x, u *mat.VecDense) *mat.VecDense {
	n := x.Len()
	dx := mat.NewVecDense(n, nil)
	dx.AddScaledVec(dx, -1, x)
	dx.AddScaledVec(dx, p.params.Gain, u)
	dx.ScaleVec(1/p.params.TimeConstant, dx)

	if p.params.Disturbance != 0 && p.params.Period > 0 {
		w := 2 * math.Pi / p.params.Period
		for i := 0; i < n; i++ {
			phase := 2 * math.Pi * float64(i) / float64(n)
			dx.SetVec(i, dx.AtVec(i)+p.params.Disturbance*math.Sin(w*t+phase))
		}
	}
	return dx
}

func offset(x, k *mat.VecDense, h float64) *mat.VecDense {
	var out mat.VecDense
	out.AddScaledVec(x, h, k)
	return &out
}

// Controller is a per-lane PI controller
type Controller struct {
	Setpoint float64
	Kp       float64
	Ki       float64

	integral []float64
}

// NewController creates a controller for the given lane count
func NewController(lanes int, setpoint, kp, ki float64) *Controller {
	return &Controller{
		Setpoint: setpoint,
		Kp:       kp,
		Ki:       ki,
		integral: make([]float64, lanes),
	}
}

// Update computes the manipulated variables from the measurements y
func (c *Controller) Update(dt float64, y []float64) ([]float64, error) {
	if len(y) != len(c.integral) {
		return nil, fmt.Errorf("controller input has %d values, want %d", len(y), len(c.integral))
	}
	u := make([]float64, len(y))
	for i, v := range y {
		e := c.Setpoint - v
		c.integral[i] += e * dt
		u[i] = c.Kp*e + c.Ki*c.integral[i]
	}
	return u, nil
}
