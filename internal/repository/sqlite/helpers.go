package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"tesim/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// timeFormat is RFC3339 with fixed width fractions so stored text sorts chronologically
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// formatTime stores timestamps as sortable text
func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// unmarshalVector decodes a JSON array column; NULL decodes to nil
func unmarshalVector(ns sql.NullString) ([]float64, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var v []float64
	if err := json.Unmarshal([]byte(ns.String), &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vector: %w", err)
	}
	return v, nil
}

// marshalVector encodes a vector as a JSON array; nil becomes NULL
func marshalVector(v []float64) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal vector: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// ============================================================================
// Schema Evolution Guide
// ============================================================================
//
// To add a new column to the runs table:
// 1. Add field to runRow struct (below)
// 2. Update scanArgs() - APPEND to end to match column order
// 3. Update runColumns constant - APPEND to end
// 4. Update toDomain() to map new field to domain.Run
// 5. Update runInsertArgs() and the VALUES placeholder count
// 6. Update relevant tests
//
// CRITICAL: Column order must match between runColumns, scanArgs() and
// runInsertArgs(). Same pattern applies to ticks.

// ============================================================================
// Run Row Scanner
// ============================================================================

const runColumns = `id, seed, xmeas_loss, xmeas_recover, xmv_loss, xmv_recover, lanes,
	scan_ns, duration_ns, save_every, status, ticks, error, created_at, updated_at`

// runRow holds all columns from a run query for scanning
type runRow struct {
	ID           string
	Seed         int64
	XMEASLoss    float64
	XMEASRecover float64
	XMVLoss      float64
	XMVRecover   float64
	Lanes        int
	ScanNS       int64
	DurationNS   int64
	SaveEvery    int
	Status       string
	Ticks        int64
	Error        sql.NullString
	CreatedAt    string
	UpdatedAt    string
}

func (r *runRow) scanArgs() []any {
	return []any{
		&r.ID, &r.Seed, &r.XMEASLoss, &r.XMEASRecover, &r.XMVLoss, &r.XMVRecover, &r.Lanes,
		&r.ScanNS, &r.DurationNS, &r.SaveEvery, &r.Status, &r.Ticks, &r.Error, &r.CreatedAt, &r.UpdatedAt,
	}
}

func (r *runRow) toDomain() (*domain.Run, error) {
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return nil, err
	}
	updated, err := parseTime(r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return &domain.Run{
		ID:        r.ID,
		Seed:      r.Seed,
		XMEAS:     domain.ErrorRate{Loss: r.XMEASLoss, Recover: r.XMEASRecover},
		XMV:       domain.ErrorRate{Loss: r.XMVLoss, Recover: r.XMVRecover},
		Lanes:     r.Lanes,
		Scan:      time.Duration(r.ScanNS),
		Duration:  time.Duration(r.DurationNS),
		SaveEvery: r.SaveEvery,
		Status:    domain.RunStatus(r.Status),
		Ticks:     r.Ticks,
		Error:     nullToString(r.Error),
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

func runInsertArgs(run *domain.Run) []any {
	return []any{
		run.ID, run.Seed,
		run.XMEAS.Loss, run.XMEAS.Recover, run.XMV.Loss, run.XMV.Recover,
		run.Lanes, int64(run.Scan), int64(run.Duration), run.SaveEvery,
		string(run.Status), run.Ticks, stringToNull(run.Error),
		formatTime(run.CreatedAt), formatTime(run.UpdatedAt),
	}
}

// ============================================================================
// Tick Row Scanner
// ============================================================================

const tickColumns = `run_id, idx, time, setpoint, clean, xmeas, xmv, xmeas_state, xmv_state`

// tickRow holds all columns from a tick query for scanning
type tickRow struct {
	RunID      string
	Index      int64
	Time       float64
	Setpoint   float64
	CleanJSON  sql.NullString
	XMEASJSON  sql.NullString
	XMVJSON    sql.NullString
	XMEASState string
	XMVState   string
}

func (r *tickRow) scanArgs() []any {
	return []any{
		&r.RunID, &r.Index, &r.Time, &r.Setpoint, &r.CleanJSON,
		&r.XMEASJSON, &r.XMVJSON, &r.XMEASState, &r.XMVState,
	}
}

func (r *tickRow) toDomain() (domain.Tick, error) {
	tick := domain.Tick{
		RunID:      r.RunID,
		Index:      r.Index,
		Time:       r.Time,
		Setpoint:   r.Setpoint,
		XMEASState: r.XMEASState,
		XMVState:   r.XMVState,
	}

	var err error
	if tick.Clean, err = unmarshalVector(r.CleanJSON); err != nil {
		return tick, err
	}
	if tick.XMEAS, err = unmarshalVector(r.XMEASJSON); err != nil {
		return tick, err
	}
	if tick.XMV, err = unmarshalVector(r.XMVJSON); err != nil {
		return tick, err
	}
	return tick, nil
}

func tickInsertArgs(t *domain.Tick) ([]any, error) {
	clean, err := marshalVector(t.Clean)
	if err != nil {
		return nil, err
	}
	xmeas, err := marshalVector(nonNil(t.XMEAS))
	if err != nil {
		return nil, err
	}
	xmv, err := marshalVector(nonNil(t.XMV))
	if err != nil {
		return nil, err
	}
	return []any{
		t.RunID, t.Index, t.Time, t.Setpoint, clean, xmeas, xmv, t.XMEASState, t.XMVState,
	}, nil
}

// nonNil keeps NOT NULL vector columns storable for empty vectors
func nonNil(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
