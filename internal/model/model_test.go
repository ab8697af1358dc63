package model

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestNewSuccessResult_AllDataPresent(t *testing.T) {
	result := NewSuccessResult("current", nil, "https://tiles.example/{z}/{x}/{y}", 12.5)

	if result.Status != StatusSuccess {
		t.Errorf("Status = %q, want %q", result.Status, StatusSuccess)
	}
	if !result.HasData() {
		t.Error("success result should carry geojson, tile_url and area_sqkm")
	}
	if result.GeoJSON.Len() != 0 {
		t.Errorf("expected empty feature collection, got %d features", result.GeoJSON.Len())
	}
}

func TestNewErrorResult_EncodesNullData(t *testing.T) {
	result := NewErrorResult("risk", "No GPM rainfall data available for this period and area")

	if result.HasData() {
		t.Error("error result should not carry data")
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	body := string(data)
	for _, key := range []string{`"geojson":null`, `"tile_url":null`, `"area_sqkm":null`, `"status":"error"`} {
		if !strings.Contains(body, key) {
			t.Errorf("encoded result missing %s: %s", key, body)
		}
	}
}

func TestNewCountriesResponse_EmptyList(t *testing.T) {
	data, err := json.Marshal(NewCountriesResponse(nil))
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	if !strings.Contains(string(data), `"countries":[]`) {
		t.Errorf("expected empty countries array, got %s", data)
	}
}
