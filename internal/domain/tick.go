package domain

// Tick is one persisted scan tick of a run.
//
// XMEAS and XMV hold the values after impairment, i.e. what the controller
// and the plant actually received. The state fields carry the tab separated
// channel state rendering of each direction at that tick.
type Tick struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	Index      int64     `json:"index" yaml:"index"`
	Time       float64   `json:"time" yaml:"time"`
	Setpoint   float64   `json:"setpoint" yaml:"setpoint"`
	Clean      []float64 `json:"clean,omitempty" yaml:"clean,omitempty"`
	XMEAS      []float64 `json:"xmeas" yaml:"xmeas"`
	XMV        []float64 `json:"xmv" yaml:"xmv"`
	XMEASState string    `json:"xmeas_state" yaml:"xmeas_state"`
	XMVState   string    `json:"xmv_state" yaml:"xmv_state"`
}

// RunSummary aggregates statistics over the persisted ticks of a run
type RunSummary struct {
	Run *Run `json:"run" yaml:"run"`

	SavedTicks int `json:"saved_ticks" yaml:"saved_ticks"`

	// Fraction of saved lane samples that were in the bad state
	XMEASLossFraction float64 `json:"xmeas_loss_fraction" yaml:"xmeas_loss_fraction"`
	XMVLossFraction   float64 `json:"xmv_loss_fraction" yaml:"xmv_loss_fraction"`

	// Long-run bad fraction and mean bad burst length implied by the error rates.
	// A burst length of 0 means the channel never recovers.
	XMEASExpectedLoss float64 `json:"xmeas_expected_loss" yaml:"xmeas_expected_loss"`
	XMVExpectedLoss   float64 `json:"xmv_expected_loss" yaml:"xmv_expected_loss"`
	XMEASMeanBurst    float64 `json:"xmeas_mean_burst" yaml:"xmeas_mean_burst"`
	XMVMeanBurst      float64 `json:"xmv_mean_burst" yaml:"xmv_mean_burst"`

	// Tracking error of the clean plant output against the setpoint
	MeanError   float64 `json:"mean_error" yaml:"mean_error"`
	StdDevError float64 `json:"stddev_error" yaml:"stddev_error"`
	MaxAbsError float64 `json:"max_abs_error" yaml:"max_abs_error"`
}
