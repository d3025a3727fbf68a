package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidErrorRate is returned when a loss/recover pair is malformed or out of range
var ErrInvalidErrorRate = errors.New("invalid error rate")

// ErrorRate is the Gilbert-Elliott transition pair of a channel.
//
// Loss is the probability that a good lane turns bad on a tick,
// Recover the probability that a bad lane turns good on a tick.
type ErrorRate struct {
	Loss    float64 `json:"loss" yaml:"loss"`
	Recover float64 `json:"recover" yaml:"recover"`
}

// NoLoss is a channel that never drops a sample
var NoLoss = ErrorRate{Loss: 0, Recover: 1}

// ParseErrorRate parses the "p:q" form, e.g. "0.8:0.25"
func ParseErrorRate(s string) (ErrorRate, error) {
	p, q, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return ErrorRate{}, fmt.Errorf("%w: %q is not of the form p:q", ErrInvalidErrorRate, s)
	}

	loss, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
	if err != nil {
		return ErrorRate{}, fmt.Errorf("%w: loss %q: %v", ErrInvalidErrorRate, p, err)
	}
	rec, err := strconv.ParseFloat(strings.TrimSpace(q), 64)
	if err != nil {
		return ErrorRate{}, fmt.Errorf("%w: recover %q: %v", ErrInvalidErrorRate, q, err)
	}

	rate := ErrorRate{Loss: loss, Recover: rec}
	if err := rate.Validate(); err != nil {
		return ErrorRate{}, err
	}
	return rate, nil
}

// String returns the "p:q" form
func (r ErrorRate) String() string {
	return strconv.FormatFloat(r.Loss, 'g', -1, 64) + ":" + strconv.FormatFloat(r.Recover, 'g', -1, 64)
}

// Validate checks both probabilities lie in [0,1]
func (r ErrorRate) Validate() error {
	if !isProbability(r.Loss) {
		return fmt.Errorf("%w: loss %v outside [0,1]", ErrInvalidErrorRate, r.Loss)
	}
	if !isProbability(r.Recover) {
		return fmt.Errorf("%w: recover %v outside [0,1]", ErrInvalidErrorRate, r.Recover)
	}
	return nil
}

// StationaryLoss returns the long-run fraction of ticks a lane spends in the bad state.
// A chain that can neither fail nor recover stays good forever.
func (r ErrorRate) StationaryLoss() float64 {
	total := r.Loss + r.Recover
	if total == 0 {
		return 0
	}
	return r.Loss / total
}

// MeanBurstLength returns the expected number of consecutive bad ticks once a lane fails
func (r ErrorRate) MeanBurstLength() float64 {
	if r.Recover == 0 {
		return math.Inf(1)
	}
	return 1 / r.Recover
}

func isProbability(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
