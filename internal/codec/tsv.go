package codec

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// TSVCodec writes the tab separated tick log
type TSVCodec struct{}

// NewTSVCodec creates a new TSV codec
func NewTSVCodec() *TSVCodec {
	return &TSVCodec{}
}

// Format returns the codec format identifier
func (c *TSVCodec) Format() string {
	return "tsv"
}

// ContentType returns the HTTP media type
func (c *TSVCodec) ContentType() string {
	return "text/tab-separated-values"
}

// Export writes a header row followed by one row per tick:
// time, setpoint, xmeas lanes, xmv lanes, xmeas lane states, xmv lane states.
func (c *TSVCodec) Export(log *RunLog, w io.Writer) error {
	lanes := 0
	if log.Run != nil {
		lanes = log.Run.Lanes
	}
	if lanes == 0 && len(log.Ticks) > 0 {
		lanes = len(log.Ticks[0].XMEAS)
	}

	tw := csv.NewWriter(w)
	tw.Comma = '\t'

	if err := tw.Write(tsvHeader(lanes)); err != nil {
		return fmt.Errorf("failed to write TSV header: %w", err)
	}

	for _, tick := range log.Ticks {
		if len(tick.XMEAS) != lanes || len(tick.XMV) != lanes {
			return fmt.Errorf("tick %d: vector width differs from %d lanes", tick.Index, lanes)
		}

		row := make([]string, 0, 2+4*lanes)
		row = append(row, formatFloat(tick.Time), formatFloat(tick.Setpoint))
		for _, v := range tick.XMEAS {
			row = append(row, formatFloat(v))
		}
		for _, v := range tick.XMV {
			row = append(row, formatFloat(v))
		}
		row = append(row, stateFields(tick.XMEASState, lanes)...)
		row = append(row, stateFields(tick.XMVState, lanes)...)

		if err := tw.Write(row); err != nil {
			return fmt.Errorf("failed to write tick %d: %w", tick.Index, err)
		}
	}

	tw.Flush()
	return tw.Error()
}

func tsvHeader(lanes int) []string {
	header := []string{"time", "setpoint"}
	for _, prefix := range []string{"xmeas", "xmv", "xmeas_ok", "xmv_ok"} {
		for i := 0; i < lanes; i++ {
			header = append(header, prefix+"_"+strconv.Itoa(i+1))
		}
	}
	return header
}

// stateFields splits a channel state rendering into lane columns.
// An empty rendering (channel not recorded) fills the columns with blanks.
func stateFields(state string, lanes int) []string {
	if state == "" {
		return make([]string, lanes)
	}
	fields := strings.Split(state, "\t")
	if len(fields) != lanes {
		out := make([]string, lanes)
		copy(out, fields)
		return out
	}
	return fields
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
