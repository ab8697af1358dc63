package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
)

// LayerConfig describes one flood analysis layer: what it shows, which
// datasets feed it and how it is rendered. Built-in definitions can be
// overridden by JSON files in the layers directory.
type LayerConfig struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Datasets    []string       `json:"datasets"`
	Palette     []string       `json:"palette"`
	License     string         `json:"license"`
	Keywords    []string       `json:"keywords,omitempty"`
	Providers   []Provider     `json:"providers,omitempty"`
	Extent      Extent         `json:"extent"`
	Summaries   map[string]any `json:"summaries,omitempty"`
}

// Provider represents a data provider of a layer.
type Provider struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	URL         string   `json:"url,omitempty"`
}

// Extent defines the spatial and temporal extent of a layer.
type Extent struct {
	Spatial  SpatialExtent  `json:"spatial"`
	Temporal TemporalExtent `json:"temporal"`
}

// SpatialExtent defines the bounding boxes of a layer.
type SpatialExtent struct {
	BBox [][]float64 `json:"bbox"`
}

// TemporalExtent defines the time intervals of a layer. Open ends are nil.
type TemporalExtent struct {
	Interval [][]any `json:"interval"`
}

// LayerRegistry holds layer definitions indexed by ID, in registration order.
type LayerRegistry struct {
	layers map[string]*LayerConfig
	order  []string
}

// NewLayerRegistry creates a new empty layer registry.
func NewLayerRegistry() *LayerRegistry {
	return &LayerRegistry{
		layers: make(map[string]*LayerConfig),
	}
}

var globalExtent = SpatialExtent{BBox: [][]float64{{-180, -90, 180, 90}}}

// DefaultLayers returns the built-in definitions of the current, historical
// and risk layers for the given analysis parameters.
func DefaultLayers(a AnalysisConfig) *LayerRegistry {
	registry := NewLayerRegistry()

	layers := []*LayerConfig{
		{
			ID:          "current",
			Title:       "Current flood extent",
			Description: fmt.Sprintf("Open water from the latest %s scene in the request window, %s backscatter below %g dB.", a.RadarCollection, a.RadarBand, a.RadarThreshold),
			Datasets:    []string{a.RadarCollection},
			Palette:     []string{"blue"},
			License:     "proprietary",
			Keywords:    []string{"flood", "sar", "sentinel-1"},
			Providers:   []Provider{{Name: "Copernicus", Roles: []string{"producer", "licensor"}}},
			Extent: Extent{
				Spatial:  globalExtent,
				Temporal: TemporalExtent{Interval: [][]any{{"2014-10-03T00:00:00Z", nil}}},
			},
			Summaries: map[string]any{"threshold_db": a.RadarThreshold, "band": a.RadarBand},
		},
		{
			ID:          "historical",
			Title:       "Historical flood extent",
			Description: fmt.Sprintf("Median NDWI above %g from %s between %s and %s.", a.NDWIThreshold, a.OpticalCollection, a.HistoricalStart, a.HistoricalEnd),
			Datasets:    []string{a.OpticalCollection},
			Palette:     []string{"cyan"},
			License:     "proprietary",
			Keywords:    []string{"flood", "ndwi", "landsat"},
			Providers:   []Provider{{Name: "USGS", Roles: []string{"producer", "licensor"}}},
			Extent: Extent{
				Spatial:  globalExtent,
				Temporal: TemporalExtent{Interval: [][]any{{a.HistoricalStart + "T00:00:00Z", a.HistoricalEnd + "T00:00:00Z"}}},
			},
			Summaries: map[string]any{"ndwi_threshold": a.NDWIThreshold},
		},
		{
			ID:          "risk",
			Title:       "Flood risk",
			Description: fmt.Sprintf("Mean %s rainfall above %g mm over historically flooded areas.", a.RainfallCollection, a.RainfallThreshold),
			Datasets:    []string{a.RainfallCollection, a.OpticalCollection},
			Palette:     []string{"red"},
			License:     "proprietary",
			Keywords:    []string{"flood", "risk", "rainfall", "gpm"},
			Providers:   []Provider{{Name: "NASA", Roles: []string{"producer", "licensor"}}},
			Extent: Extent{
				Spatial:  globalExtent,
				Temporal: TemporalExtent{Interval: [][]any{{"2000-06-01T00:00:00Z", nil}}},
			},
			Summaries: map[string]any{"rainfall_threshold_mm": a.RainfallThreshold, "ndwi_threshold": a.NDWIThreshold},
		},
	}

	for _, layer := range layers {
		// Built-in layers are always valid and unique.
		_ = registry.Add(layer)
	}

	return registry
}

// LoadLayers replaces layers of base with the definitions found in JSON files
// under layersDir. Only files with a .json extension are processed and every
// file must describe a layer that already exists in base.
func LoadLayers(layersDir string, base *LayerRegistry) (*LayerRegistry, error) {
	info, err := os.Stat(layersDir)
	if err != nil {
		return nil, fmt.Errorf("failed to access layers directory %q: %w", layersDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("layers path %q is not a directory", layersDir)
	}

	entries, err := os.ReadDir(layersDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read layers directory %q: %w", layersDir, err)
	}

	registry := base.clone()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		filename := entry.Name()
		if !strings.HasSuffix(strings.ToLower(filename), ".json") {
			continue
		}

		filePath := filepath.Join(layersDir, filename)
		layer, err := loadLayerFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load layer from %q: %w", filePath, err)
		}

		if err := registry.Replace(layer); err != nil {
			return nil, fmt.Errorf("failed to apply layer from %q: %w", filePath, err)
		}
	}

	return registry, nil
}

// loadLayerFile loads a single layer definition from a JSON file.
func loadLayerFile(filePath string) (*LayerConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var layer LayerConfig
	if err := json.Unmarshal(data, &layer); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if err := validateLayer(&layer); err != nil {
		return nil, fmt.Errorf("invalid layer configuration: %w", err)
	}

	return &layer, nil
}

// validateLayer checks that a layer definition is valid.
func validateLayer(l *LayerConfig) error {
	if l.ID == "" {
		return fmt.Errorf("layer ID is required")
	}

	if l.Title == "" {
		return fmt.Errorf("layer title is required")
	}

	if l.Description == "" {
		return fmt.Errorf("layer description is required")
	}

	if len(l.Datasets) == 0 {
		return fmt.Errorf("layer must specify at least one dataset")
	}

	if len(l.Palette) == 0 {
		return fmt.Errorf("layer must specify at least one palette color")
	}

	for i, bbox := range l.Extent.Spatial.BBox {
		if len(bbox) != 4 && len(bbox) != 6 {
			return fmt.Errorf("bbox[%d] must have 4 or 6 values, got %d", i, len(bbox))
		}
	}

	for i, interval := range l.Extent.Temporal.Interval {
		if len(interval) != 2 {
			return fmt.Errorf("temporal interval[%d] must have exactly 2 values, got %d", i, len(interval))
		}
	}

	return nil
}

// Add registers a layer in the registry.
// Returns an error if a layer with the same ID already exists.
func (r *LayerRegistry) Add(layer *LayerConfig) error {
	if layer == nil {
		return fmt.Errorf("cannot add nil layer")
	}

	if _, exists := r.layers[layer.ID]; exists {
		return fmt.Errorf("layer with ID %q already exists", layer.ID)
	}

	r.layers[layer.ID] = layer
	r.order = append(r.order, layer.ID)
	return nil
}

// Replace swaps the definition of an existing layer.
func (r *LayerRegistry) Replace(layer *LayerConfig) error {
	if layer == nil {
		return fmt.Errorf("cannot add nil layer")
	}

	if _, exists := r.layers[layer.ID]; !exists {
		return fmt.Errorf("unknown layer %q", layer.ID)
	}

	r.layers[layer.ID] = layer
	return nil
}

// Get retrieves a layer by ID.
// Returns nil if the layer does not exist.
func (r *LayerRegistry) Get(id string) *LayerConfig {
	return r.layers[id]
}

// Has checks if a layer with the given ID exists in the registry.
func (r *LayerRegistry) Has(id string) bool {
	_, exists := r.layers[id]
	return exists
}

// All returns all layers in registration order.
func (r *LayerRegistry) All() []*LayerConfig {
	layers := make([]*LayerConfig, 0, len(r.order))
	for _, id := range r.order {
		layers = append(layers, r.layers[id])
	}
	return layers
}

// IDs returns all layer IDs in registration order.
func (r *LayerRegistry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Count returns the number of layers in the registry.
func (r *LayerRegistry) Count() int {
	return len(r.layers)
}

// Palette returns the palette of the given layer, or nil if it does not exist.
func (r *LayerRegistry) Palette(id string) []string {
	layer := r.Get(id)
	if layer == nil {
		return nil
	}
	return layer.Palette
}

func (r *LayerRegistry) clone() *LayerRegistry {
	out := NewLayerRegistry()
	for _, id := range r.order {
		_ = out.Add(r.layers[id])
	}
	return out
}
