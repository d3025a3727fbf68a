package service

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"

	"tesim/internal/config"
	"tesim/internal/domain"
)

// MonteCarlo repeats the simulation with error rates drawn uniformly from
// the configured ranges. Both loop directions share the drawn pair.
type MonteCarlo struct {
	sim *Simulation
	cfg config.MonteCarloConfig

	// base seed of the per-run channel seeds
	runSeed int64
}

// NewMonteCarlo creates a sweep over sim using the montecarlo section of cfg
func NewMonteCarlo(sim *Simulation, cfg *config.Config) *MonteCarlo {
	return &MonteCarlo{
		sim:     sim,
		cfg:     cfg.MonteCarlo,
		runSeed: cfg.Seed,
	}
}

// Params draws the per-run parameters. The sequence depends only on the
// sweep seed, so a sweep can be reproduced without re-running it.
func (m *MonteCarlo) Params() []RunParams {
	seed := uint64(m.cfg.Seed)
	loss := distuv.Uniform{Min: m.cfg.Loss.Min, Max: m.cfg.Loss.Max, Src: rand.NewPCG(seed, 1)}
	rec := distuv.Uniform{Min: m.cfg.Recover.Min, Max: m.cfg.Recover.Max, Src: rand.NewPCG(seed, 2)}

	params := make([]RunParams, m.cfg.Runs)
	for i := range params {
		rate := domain.ErrorRate{Loss: clamp01(loss.Rand()), Recover: clamp01(rec.Rand())}
		params[i] = RunParams{
			Seed:  m.runSeed + int64(2*i),
			XMEAS: rate,
			XMV:   rate,
		}
	}
	return params
}

// Run executes the sweep with at most workers runs in flight and returns
// the runs in draw order. The first failing run cancels the rest.
func (m *MonteCarlo) Run(ctx context.Context) ([]*domain.Run, error) {
	params := m.Params()
	runs := make([]*domain.Run, len(params))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(m.cfg.Workers, 1))

	for i, p := range params {
		g.Go(func() error {
			run, err := m.sim.Run(gctx, p)
			runs[i] = run
			if err != nil {
				return fmt.Errorf("monte carlo run %d/%d: %w", i+1, len(params), err)
			}
			return nil
		})
	}

	err := g.Wait()
	log.Printf("Monte Carlo sweep finished: %d runs, loss in [%g,%g], recover in [%g,%g]",
		len(params), m.cfg.Loss.Min, m.cfg.Loss.Max, m.cfg.Recover.Min, m.cfg.Recover.Max)
	return runs, err
}

// clamp01 guards against the upper bound being hit by rounding
func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
