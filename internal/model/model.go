// Package model defines the request and response types exchanged over the
// flood mapping HTTP API.
package model

import (
	"github.com/robert-malhotra/floodsync-api/pkg/geojson"
)

// Result status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// DateLayout is the layout used for request dates and default windows.
const DateLayout = "2006-01-02"

// FloodMapRequest is the body of POST /flood_map.
type FloodMapRequest struct {
	CountryName string `json:"country_name" validate:"required"`
	StartDate   string `json:"start_date,omitempty" validate:"omitempty,eedate"`
	EndDate     string `json:"end_date,omitempty" validate:"omitempty,eedate"`
	LayerType   string `json:"layer_type,omitempty" validate:"omitempty,oneof=current historical risk"`
}

// FloodMapResult is the response of POST /flood_map.
//
// GeoJSON, TileURL and AreaSqKm are either all set (success) or all nil
// (error). They are always encoded, as null when unset.
type FloodMapResult struct {
	Status   string                     `json:"status"`
	Layer    string                     `json:"layer"`
	GeoJSON  *geojson.FeatureCollection `json:"geojson"`
	TileURL  *string                    `json:"tile_url"`
	AreaSqKm *float64                   `json:"area_sqkm"`
	Message  string                     `json:"message,omitempty"`
}

// NewSuccessResult builds a result carrying all three data members.
func NewSuccessResult(layer string, fc *geojson.FeatureCollection, tileURL string, areaSqKm float64) *FloodMapResult {
	if fc == nil {
		fc = geojson.NewFeatureCollection(nil)
	}
	return &FloodMapResult{
		Status:   StatusSuccess,
		Layer:    layer,
		GeoJSON:  fc,
		TileURL:  &tileURL,
		AreaSqKm: &areaSqKm,
	}
}

// NewErrorResult builds a structured error result with no data members.
func NewErrorResult(layer, message string) *FloodMapResult {
	return &FloodMapResult{
		Status:  StatusError,
		Layer:   layer,
		Message: message,
	}
}

// HasData reports whether the data members are populated.
func (r *FloodMapResult) HasData() bool {
	return r.GeoJSON != nil && r.TileURL != nil && r.AreaSqKm != nil
}

// CountriesResponse is the response of GET /countries.
type CountriesResponse struct {
	Status    string   `json:"status"`
	Countries []string `json:"countries"`
}

// NewCountriesResponse wraps a country list in a success response.
func NewCountriesResponse(countries []string) *CountriesResponse {
	if countries == nil {
		countries = make([]string, 0)
	}
	return &CountriesResponse{
		Status:    StatusSuccess,
		Countries: countries,
	}
}
