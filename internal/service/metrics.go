package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tesim/internal/domain"
)

// Metrics holds the simulation collectors
type Metrics struct {
	Ticks       prometheus.Counter
	Substituted *prometheus.CounterVec
	BadLanes    *prometheus.GaugeVec
	Runs        *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Ticks: factory.NewCounter(prometheus.CounterOpts{
			Name: "tesim_ticks_total",
			Help: "Scan ticks simulated across all runs",
		}),
		Substituted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tesim_substituted_samples_total",
			Help: "Lane samples replaced by their held value",
		}, []string{"direction"}),
		BadLanes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tesim_bad_lanes",
			Help: "Lanes in the bad state after the most recent tick",
		}, []string{"direction"}),
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tesim_runs_total",
			Help: "Finished simulation runs by status",
		}, []string{"status"}),
	}
}

// observeTick records one scan tick; bad lanes are exactly the substituted samples
func (m *Metrics) observeTick(xmeasBad, xmvBad int) {
	if m == nil {
		return
	}
	m.Ticks.Inc()
	m.Substituted.WithLabelValues(string(domain.DirectionXMEAS)).Add(float64(xmeasBad))
	m.Substituted.WithLabelValues(string(domain.DirectionXMV)).Add(float64(xmvBad))
	m.BadLanes.WithLabelValues(string(domain.DirectionXMEAS)).Set(float64(xmeasBad))
	m.BadLanes.WithLabelValues(string(domain.DirectionXMV)).Set(float64(xmvBad))
}

func (m *Metrics) observeRun(status domain.RunStatus) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(string(status)).Inc()
}
