// Package analysis turns flood map requests into lazy Earth Engine plans,
// one strategy per analysis mode.
package analysis

import (
	"github.com/robert-malhotra/floodsync-api/internal/model"
)

// Mode selects the flood analysis to run.
type Mode int

const (
	// ModeCurrent maps open water from the latest radar scene.
	ModeCurrent Mode = iota
	// ModeHistorical maps water from an optical NDWI composite over a fixed window.
	ModeHistorical
	// ModeRisk intersects heavy rainfall with historically flooded areas.
	ModeRisk
)

var modeNames = map[Mode]string{
	ModeCurrent:    "current",
	ModeHistorical: "historical",
	ModeRisk:       "risk",
}

// Modes returns every mode in declaration order.
func Modes() []Mode {
	return []Mode{ModeCurrent, ModeHistorical, ModeRisk}
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// ParseMode parses a layer_type value. An empty string selects ModeCurrent.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeCurrent, nil
	}
	for _, m := range Modes() {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, model.NewValidationError("layer_type", "Invalid layer_type. Use 'current', 'historical', or 'risk'")
}
