package domain

import (
	"errors"
	"math"
	"testing"
)

func TestParseErrorRate(t *testing.T) {
	tests := []struct {
		input   string
		want    ErrorRate
		wantErr bool
	}{
		{"0.8:0.25", ErrorRate{Loss: 0.8, Recover: 0.25}, false},
		{" 0 : 1 ", ErrorRate{Loss: 0, Recover: 1}, false},
		{"1:0", ErrorRate{Loss: 1, Recover: 0}, false},
		{"0.5", ErrorRate{}, true},
		{"a:0.5", ErrorRate{}, true},
		{"0.5:b", ErrorRate{}, true},
		{"1.2:0.5", ErrorRate{}, true},
		{"0.5:-0.1", ErrorRate{}, true},
		{"", ErrorRate{}, true},
	}

	for _, tt := range tests {
		got, err := ParseErrorRate(tt.input)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidErrorRate) {
				t.Errorf("ParseErrorRate(%q) error = %v, want ErrInvalidErrorRate", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseErrorRate(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseErrorRate(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestErrorRateString(t *testing.T) {
	rate := ErrorRate{Loss: 0.8, Recover: 0.25}
	if rate.String() != "0.8:0.25" {
		t.Errorf("String() = %q", rate.String())
	}

	parsed, err := ParseErrorRate(rate.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != rate {
		t.Errorf("expected %+v, got %+v", rate, parsed)
	}
}

func TestErrorRateStationaryLoss(t *testing.T) {
	tests := []struct {
		rate ErrorRate
		want float64
	}{
		{ErrorRate{Loss: 0.1, Recover: 0.3}, 0.25},
		{ErrorRate{Loss: 1, Recover: 0}, 1},
		{ErrorRate{Loss: 0, Recover: 1}, 0},
		{ErrorRate{Loss: 0, Recover: 0}, 0},
	}

	for _, tt := range tests {
		if got := tt.rate.StationaryLoss(); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("%v.StationaryLoss() = %v, want %v", tt.rate, got, tt.want)
		}
	}
}

func TestErrorRateMeanBurstLength(t *testing.T) {
	if got := (ErrorRate{Loss: 0.5, Recover: 0.25}).MeanBurstLength(); got != 4 {
		t.Errorf("MeanBurstLength() = %v, want 4", got)
	}
	if got := (ErrorRate{Loss: 0.5, Recover: 0}).MeanBurstLength(); !math.IsInf(got, 1) {
		t.Errorf("MeanBurstLength() = %v, want +Inf", got)
	}
}
