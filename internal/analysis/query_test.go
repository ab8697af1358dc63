package analysis

import (
	"errors"
	"testing"
	"time"

	"github.com/robert-malhotra/floodsync-api/internal/model"
)

var fixedNow = time.Date(2024, 8, 20, 15, 30, 0, 0, time.UTC)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{"2024-08-01", time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), false},
		{" 2024-08-01 ", time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), false},
		{"2024-08-01T12:00:00Z", time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC), false},
		{"2024-08-01T12:00:00+02:00", time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC), false},
		{"01/08/2024", time.Time{}, true},
		{"2024-13-01", time.Time{}, true},
		{"", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewQuery_Defaults(t *testing.T) {
	q, err := NewQuery(model.FloodMapRequest{CountryName: "Bangladesh"}, fixedNow, 30)
	if err != nil {
		t.Fatalf("NewQuery() error: %v", err)
	}

	if q.Mode != ModeCurrent {
		t.Errorf("Mode = %v, want current", q.Mode)
	}
	if q.EndDate() != "2024-08-20" {
		t.Errorf("EndDate() = %s, want 2024-08-20", q.EndDate())
	}
	if q.StartDate() != "2024-07-21" {
		t.Errorf("StartDate() = %s, want 2024-07-21", q.StartDate())
	}
	if q.End.Sub(q.Start) != 30*24*time.Hour {
		t.Errorf("default window = %s, want 30 days", q.End.Sub(q.Start))
	}
}

func TestNewQuery_ExplicitDates(t *testing.T) {
	req := model.FloodMapRequest{
		CountryName: "  Nepal ",
		StartDate:   "2024-06-01",
		EndDate:     "2024-06-30",
		LayerType:   "risk",
	}

	q, err := NewQuery(req, fixedNow, 30)
	if err != nil {
		t.Fatalf("NewQuery() error: %v", err)
	}

	if q.Country != "  Nepal " {
		t.Errorf("Country = %q, want the name unchanged", q.Country)
	}
	if q.Mode != ModeRisk {
		t.Errorf("Mode = %v, want risk", q.Mode)
	}
	if q.StartDate() != "2024-06-01" || q.EndDate() != "2024-06-30" {
		t.Errorf("window = %s..%s", q.StartDate(), q.EndDate())
	}
}

func TestNewQuery_OnlyStartDate(t *testing.T) {
	q, err := NewQuery(model.FloodMapRequest{CountryName: "India", StartDate: "2024-08-01"}, fixedNow, 30)
	if err != nil {
		t.Fatalf("NewQuery() error: %v", err)
	}
	if q.StartDate() != "2024-08-01" || q.EndDate() != "2024-08-20" {
		t.Errorf("window = %s..%s", q.StartDate(), q.EndDate())
	}
}

func TestNewQuery_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		req       model.FloodMapRequest
		wantField string
	}{
		{"empty country", model.FloodMapRequest{CountryName: "", LayerType: "risk"}, "country_name"},
		{"blank country", model.FloodMapRequest{CountryName: "   "}, "country_name"},
		{"empty country with bad layer", model.FloodMapRequest{LayerType: "tsunami"}, "country_name"},
		{"invalid layer", model.FloodMapRequest{CountryName: "Nepal", LayerType: "tsunami"}, "layer_type"},
		{"layer wrong case", model.FloodMapRequest{CountryName: "Nepal", LayerType: "Current"}, "layer_type"},
		{"bad start", model.FloodMapRequest{CountryName: "Nepal", StartDate: "yesterday"}, "start_date"},
		{"bad end", model.FloodMapRequest{CountryName: "Nepal", EndDate: "2024/01/01"}, "end_date"},
		{"reversed window", model.FloodMapRequest{CountryName: "Nepal", StartDate: "2024-07-01", EndDate: "2024-06-01"}, "start_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewQuery(tt.req, fixedNow, 30)

			var validationErr *model.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected *model.ValidationError, got %v", err)
			}
			if validationErr.Field != tt.wantField {
				t.Errorf("Field = %s, want %s", validationErr.Field, tt.wantField)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes() {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = (%v, %v), want %v", m.String(), got, err, m)
		}
	}

	if got, err := ParseMode(""); err != nil || got != ModeCurrent {
		t.Errorf("ParseMode(\"\") = (%v, %v), want current", got, err)
	}

	if Mode(42).String() != "unknown" {
		t.Errorf("Mode(42).String() = %q", Mode(42).String())
	}
}
