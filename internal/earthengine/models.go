package earthengine

import (
	"github.com/goccy/go-json"

	"github.com/robert-malhotra/floodsync-api/pkg/geojson"
)

// computeValueRequest is the body of value:compute.
type computeValueRequest struct {
	Expression *Expression `json:"expression"`
}

type computeValueResponse struct {
	Result json.RawMessage `json:"result"`
}

// computeFeaturesRequest is the body of table:computeFeatures.
type computeFeaturesRequest struct {
	Expression *Expression `json:"expression"`
	PageToken  string      `json:"pageToken,omitempty"`
}

type computeFeaturesResponse struct {
	Type          string             `json:"type"`
	Features      []*geojson.Feature `json:"features"`
	NextPageToken string             `json:"nextPageToken,omitempty"`
}

// VisualizationOptions controls how an image is rendered into map tiles.
type VisualizationOptions struct {
	PaletteColors []string `json:"paletteColors,omitempty"`
}

// createMapRequest is the body of the maps endpoint.
type createMapRequest struct {
	Expression           *Expression           `json:"expression"`
	FileFormat           string                `json:"fileFormat"`
	VisualizationOptions *VisualizationOptions `json:"visualizationOptions,omitempty"`
}

type createMapResponse struct {
	Name string `json:"name"`
}

// MapID identifies a rendered map and the XYZ template serving its tiles.
type MapID struct {
	Name    string
	TileURL string
}

// errorResponse is the Google API error envelope.
type errorResponse struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
