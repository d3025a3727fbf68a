package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"tesim/internal/codec"
	"tesim/internal/domain"
	"tesim/internal/repository"
)

// ErrInvalidRunLog is returned by Import for a log that cannot be stored
var ErrInvalidRunLog = errors.New("invalid run log")

// RunService provides access to stored runs
type RunService struct {
	repo repository.Repository
}

// NewRunService creates a new run service
func NewRunService(repo repository.Repository) *RunService {
	return &RunService{repo: repo}
}

// ListRuns returns all runs
func (s *RunService) ListRuns(ctx context.Context) ([]*domain.Run, error) {
	return s.repo.ListRuns(ctx)
}

// GetRun retrieves a single run by ID
func (s *RunService) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	return s.repo.GetRun(ctx, id)
}

// DeleteRun removes a run and its ticks
func (s *RunService) DeleteRun(ctx context.Context, id string) error {
	return s.repo.DeleteRun(ctx, id)
}

// Export writes a run and its ticks in the given format
func (s *RunService) Export(ctx context.Context, id, format string, w io.Writer) error {
	exporter, err := codec.Lookup(format)
	if err != nil {
		return err
	}

	runLog, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	return exporter.Export(runLog, w)
}

// Summarize computes loss fractions and tracking error statistics over the saved ticks
func (s *RunService) Summarize(ctx context.Context, id string) (*domain.RunSummary, error) {
	runLog, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return Summarize(runLog.Run, runLog.Ticks), nil
}

// Import stores a run log read in the given format under a fresh run ID.
// Only logs of finished runs are accepted.
func (s *RunService) Import(ctx context.Context, format string, r io.Reader) (*domain.Run, error) {
	importer, err := codec.LookupImporter(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRunLog, err)
	}
	runLog, err := importer.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRunLog, err)
	}
	if err := checkRunLog(runLog); err != nil {
		return nil, err
	}

	run := *runLog.Run
	run.ID = uuid.NewString()
	ticks := make([]domain.Tick, len(runLog.Ticks))
	for i, tick := range runLog.Ticks {
		tick.RunID = run.ID
		ticks[i] = tick
	}

	if err := s.repo.CreateRun(ctx, &run); err != nil {
		return nil, err
	}
	if err := s.repo.AppendTicks(ctx, ticks); err != nil {
		if derr := s.repo.DeleteRun(context.WithoutCancel(ctx), run.ID); derr != nil {
			log.Printf("Failed to remove partially imported run %s: %v", run.ID, derr)
		}
		return nil, fmt.Errorf("import ticks: %w", err)
	}

	log.Printf("Imported run %s (originally %s) with %s ticks", run.ID, runLog.Run.ID, humanize.Comma(int64(len(ticks))))
	return &run, nil
}

func checkRunLog(runLog *codec.RunLog) error {
	run := runLog.Run
	if !run.Finished() {
		return fmt.Errorf("%w: run %s is %s", ErrInvalidRunLog, run.ID, run.Status)
	}
	if run.Lanes < 1 {
		return fmt.Errorf("%w: lane count %d", ErrInvalidRunLog, run.Lanes)
	}
	for _, rate := range []domain.ErrorRate{run.XMEAS, run.XMV} {
		if err := rate.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRunLog, err)
		}
	}
	for _, tick := range runLog.Ticks {
		if len(tick.XMEAS) != run.Lanes || len(tick.XMV) != run.Lanes {
			return fmt.Errorf("%w: tick %d does not have %d lanes", ErrInvalidRunLog, tick.Index, run.Lanes)
		}
	}
	return nil
}

func (s *RunService) load(ctx context.Context, id string) (*codec.RunLog, error) {
	run, err := s.repo.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	ticks, err := s.repo.ListTicks(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load ticks of run %s: %w", id, err)
	}
	return &codec.RunLog{Run: run, Ticks: ticks}, nil
}

// Summarize aggregates a run's ticks
func Summarize(run *domain.Run, ticks []domain.Tick) *domain.RunSummary {
	summary := &domain.RunSummary{
		Run:               run,
		SavedTicks:        len(ticks),
		XMEASExpectedLoss: run.XMEAS.StationaryLoss(),
		XMVExpectedLoss:   run.XMV.StationaryLoss(),
		XMEASMeanBurst:    finiteOrZero(run.XMEAS.MeanBurstLength()),
		XMVMeanBurst:      finiteOrZero(run.XMV.MeanBurstLength()),
	}
	if len(ticks) == 0 {
		return summary
	}

	var xmeasBad, xmvBad, lanes int
	var errs []float64
	for _, tick := range ticks {
		xmeasBad += strings.Count(tick.XMEASState, "0")
		xmvBad += strings.Count(tick.XMVState, "0")
		lanes += len(tick.XMEAS)
		for _, v := range tick.Clean {
			errs = append(errs, v-tick.Setpoint)
		}
	}

	if lanes > 0 {
		summary.XMEASLossFraction = float64(xmeasBad) / float64(lanes)
		summary.XMVLossFraction = float64(xmvBad) / float64(lanes)
	}
	if len(errs) > 0 {
		summary.MeanError, summary.StdDevError = stat.MeanStdDev(errs, nil)
		if math.IsNaN(summary.StdDevError) {
			summary.StdDevError = 0
		}
		summary.MaxAbsError = math.Max(floats.Max(errs), -floats.Min(errs))
	}
	return summary
}

// finiteOrZero maps infinities to 0 so summaries stay JSON encodable
func finiteOrZero(v float64) float64 {
	if math.IsInf(v, 0) {
		return 0
	}
	return v
}
