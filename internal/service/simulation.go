package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"tesim/internal/channel"
	"tesim/internal/config"
	"tesim/internal/domain"
	"tesim/internal/plant"
	"tesim/internal/repository"
	"tesim/internal/transport"
)

// Names of the remote variables exchanged between plant and controller
const (
	VarXMEAS = "xmeas"
	VarXMV   = "xmv"
)

// RunParams are the per-run inputs of a simulation
type RunParams struct {
	Seed  int64
	XMEAS domain.ErrorRate
	XMV   domain.ErrorRate
}

// Simulation runs the closed loop plant -> xmeas channel -> controller -> xmv channel -> plant
type Simulation struct {
	cfg     *config.Config
	repo    repository.Repository
	events  *EventBus
	metrics *Metrics
}

// NewSimulation creates a simulation service; events and metrics may be nil
func NewSimulation(cfg *config.Config, repo repository.Repository, events *EventBus, metrics *Metrics) *Simulation {
	return &Simulation{
		cfg:     cfg,
		repo:    repo,
		events:  events,
		metrics: metrics,
	}
}

// DefaultParams returns the run parameters from the config file
func (s *Simulation) DefaultParams() (RunParams, error) {
	xmeas, err := s.cfg.Channels.XMEAS.Rate()
	if err != nil {
		return RunParams{}, fmt.Errorf("xmeas channel: %w", err)
	}
	xmv, err := s.cfg.Channels.XMV.Rate()
	if err != nil {
		return RunParams{}, fmt.Errorf("xmv channel: %w", err)
	}
	return RunParams{Seed: s.cfg.Seed, XMEAS: xmeas, XMV: xmv}, nil
}

// loop holds the per-run state of one closed loop
type loop struct {
	process    *plant.Process
	controller *plant.Controller
	xmeas      *channel.Engine
	xmv        *channel.Engine

	// plant and controller sides of the two remote variables
	plantOut, ctrlIn transport.Endpoint
	ctrlOut, plantIn transport.Endpoint
}

func (s *Simulation) newLoop(params RunParams) (*loop, error) {
	pc := s.cfg.Plant
	process, err := plant.NewProcess(plant.Params{
		Lanes:        pc.Lanes,
		TimeConstant: pc.TimeConstant.Seconds(),
		Gain:         pc.Gain,
		Disturbance:  pc.Disturbance,
		Period:       pc.Period.Seconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("create process: %w", err)
	}

	l := &loop{
		process:    process,
		controller: plant.NewController(pc.Lanes, pc.Setpoint, pc.Kp, pc.Ki),
	}

	// the two channels draw from independent streams of the run seed
	l.xmeas, err = channel.New(params.XMEAS, pc.Lanes, process.Outputs(), params.Seed)
	if err != nil {
		return nil, fmt.Errorf("create xmeas channel: %w", err)
	}
	l.xmv, err = channel.New(params.XMV, pc.Lanes, make([]float64, pc.Lanes), params.Seed+1)
	if err != nil {
		return nil, fmt.Errorf("create xmv channel: %w", err)
	}

	bus := transport.NewBus()
	bus.Declare(VarXMEAS, make([]float64, pc.Lanes))
	bus.Declare(VarXMV, make([]float64, pc.Lanes))
	for _, c := range []struct {
		ep   *transport.Endpoint
		name string
	}{
		{&l.plantOut, VarXMEAS}, {&l.ctrlIn, VarXMEAS},
		{&l.ctrlOut, VarXMV}, {&l.plantIn, VarXMV},
	} {
		if *c.ep, err = bus.Connect(c.name); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// step runs one scan tick and returns the clean measurements and the two impaired vectors
func (l *loop) step(ctx context.Context, scan float64, substeps int) (clean, y, u []float64, err error) {
	clean = l.process.Outputs()
	if err = l.plantOut.Write(ctx, clean); err != nil {
		return nil, nil, nil, err
	}

	if y, err = l.ctrlIn.Read(ctx); err != nil {
		return nil, nil, nil, err
	}
	if _, err = l.xmeas.Impair(y); err != nil {
		return nil, nil, nil, err
	}
	if u, err = l.controller.Update(scan, y); err != nil {
		return nil, nil, nil, err
	}
	if _, err = l.xmv.Impair(u); err != nil {
		return nil, nil, nil, err
	}
	if err = l.ctrlOut.Write(ctx, u); err != nil {
		return nil, nil, nil, err
	}

	in, err := l.plantIn.Read(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	dt := scan / float64(substeps)
	for i := 0; i < substeps; i++ {
		if err = l.process.Step(dt, in); err != nil {
			return nil, nil, nil, err
		}
	}
	return clean, y, u, nil
}

// Run executes one simulation run to completion and returns the stored run record.
// Cancelling ctx stops the run between ticks and marks it failed.
func (s *Simulation) Run(ctx context.Context, params RunParams) (*domain.Run, error) {
	sc := s.cfg.Simulation
	run := domain.NewRun(params.Seed, params.XMEAS, params.XMV, s.cfg.Plant.Lanes)
	run.Scan = sc.Scan.Duration()
	run.Duration = sc.Duration.Duration()
	run.SaveEvery = sc.SaveEvery

	l, err := s.newLoop(params)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateRun(ctx, run); err != nil {
		return nil, err
	}
	s.events.Publish(Event{Type: EventRunStarted, RunID: run.ID, Payload: *run})

	start := time.Now()
	if err := s.drive(ctx, run, l); err != nil {
		return run, s.fail(ctx, run, err)
	}

	run.Status = domain.RunStatusCompleted
	if err := s.repo.UpdateRun(ctx, run); err != nil {
		return run, err
	}
	s.metrics.observeRun(run.Status)
	s.events.Publish(Event{Type: EventRunCompleted, RunID: run.ID, Payload: *run})

	log.Printf("Run %s completed: %s ticks (xmeas %s, xmv %s) in %s",
		run.ID, humanize.Comma(run.Ticks), run.XMEAS, run.XMV, time.Since(start).Round(time.Millisecond))
	return run, nil
}

func (s *Simulation) drive(ctx context.Context, run *domain.Run, l *loop) error {
	sc := s.cfg.Simulation
	total := run.TotalTicks()
	scan := sc.Scan.Seconds()
	substeps := sc.Substeps()

	var limiter *rate.Limiter
	if sc.Realtime {
		limiter = rate.NewLimiter(rate.Every(sc.Scan.Duration()), 1)
	}

	saveEvery := int64(max(sc.SaveEvery, 1))
	bufSize := max(sc.Buffer, 1)

	buffer := make([]domain.Tick, 0, bufSize)
	flush := func() error {
		if err := s.repo.AppendTicks(ctx, buffer); err != nil {
			return fmt.Errorf("flush ticks: %w", err)
		}
		buffer = buffer[:0]
		return nil
	}

	for k := int64(0); k < total; k++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}

		t := l.process.Time()
		clean, y, u, err := l.step(ctx, scan, substeps)
		if err != nil {
			return fmt.Errorf("tick %d: %w", k, err)
		}
		run.Ticks = k + 1
		s.metrics.observeTick(l.xmeas.BadCount(), l.xmv.BadCount())

		if k%saveEvery != 0 {
			continue
		}
		tick := domain.Tick{
			RunID:      run.ID,
			Index:      k,
			Time:       t,
			Setpoint:   l.controller.Setpoint,
			Clean:      clean,
			XMEAS:      y,
			XMV:        u,
			XMEASState: l.xmeas.String(),
			XMVState:   l.xmv.String(),
		}
		buffer = append(buffer, tick)
		s.events.Publish(Event{Type: EventTick, RunID: run.ID, Payload: tick})

		if len(buffer) >= bufSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// fail records a failed run; the update survives cancellation of ctx
func (s *Simulation) fail(ctx context.Context, run *domain.Run, cause error) error {
	run.Status = domain.RunStatusFailed
	run.Error = cause.Error()
	if err := s.repo.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
		log.Printf("Failed to record failure of run %s: %v", run.ID, err)
	}
	s.metrics.observeRun(run.Status)
	s.events.Publish(Event{Type: EventRunFailed, RunID: run.ID, Payload: *run})
	log.Printf("Run %s failed after %s ticks: %v", run.ID, humanize.Comma(run.Ticks), cause)
	return fmt.Errorf("run %s: %w", run.ID, cause)
}
