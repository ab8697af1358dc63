package backend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/robert-malhotra/floodsync-api/internal/analysis"
	"github.com/robert-malhotra/floodsync-api/internal/catalog"
	"github.com/robert-malhotra/floodsync-api/internal/config"
	"github.com/robert-malhotra/floodsync-api/internal/earthengine/eetest"
	"github.com/robert-malhotra/floodsync-api/internal/model"
)

func testConfig() *config.Config {
	return &config.Config{
		EarthEngine: config.EarthEngineConfig{
			RequestTimeout:       10 * time.Second,
			BoundaryTable:        "FAO/GAUL/2015/level0",
			BoundaryNameProperty: "ADM0_NAME",
		},
		Analysis: config.AnalysisConfig{
			Scale:               30,
			MaxPixels:           1e10,
			DefaultWindowDays:   30,
			RadarCollection:     "COPERNICUS/S1_GRD",
			RadarBand:           "VV",
			RadarInstrumentMode: "IW",
			RadarThreshold:      -15,
			OpticalCollection:   "LANDSAT/LC08/C02/T1_L2",
			OpticalNIRBand:      "SR_B5",
			OpticalGreenBand:    "SR_B3",
			NDWIThreshold:       0.3,
			HistoricalStart:     "2019-11-01",
			HistoricalEnd:       "2019-11-12",
			RainfallCollection:  "NASA/GPM_L3/IMERG_V06",
			RainfallBand:        "precipitationCal",
			RainfallThreshold:   50,
		},
	}
}

// createTestBackend wires a backend against a fake Earth Engine server.
func createTestBackend(t *testing.T) (*EarthEngineBackend, *eetest.Server) {
	t.Helper()

	srv := eetest.NewServer()
	t.Cleanup(srv.Close)

	cfg := testConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := srv.Client().WithLogger(logger)

	cat := catalog.New(client, cfg.EarthEngine.BoundaryTable, cfg.EarthEngine.BoundaryNameProperty).WithLogger(logger)
	planner := analysis.NewPlanner(cfg.Analysis, config.DefaultLayers(cfg.Analysis), client).WithLogger(logger)

	b := NewEarthEngineBackend(client, cat, planner, cfg, logger)
	b.now = func() time.Time { return time.Date(2024, 8, 20, 12, 0, 0, 0, time.UTC) }
	return b, srv
}

func TestEarthEngineBackend_FloodMap_Success(t *testing.T) {
	b, srv := createTestBackend(t)

	var observed []string
	b.WithResultObserver(func(layer, status string) { observed = append(observed, layer+"/"+status) })

	result, err := b.FloodMap(context.Background(), model.FloodMapRequest{CountryName: "Bangladesh"})
	if err != nil {
		t.Fatalf("FloodMap failed: %v", err)
	}

	if result.Status != model.StatusSuccess || result.Layer != "current" {
		t.Errorf("status/layer = %s/%s, want success/current", result.Status, result.Layer)
	}
	if !result.HasData() {
		t.Fatal("success result must carry geojson, tile_url and area_sqkm")
	}
	if result.GeoJSON.Len() != 2 {
		t.Errorf("Expected 2 features, got %d", result.GeoJSON.Len())
	}
	if len(result.GeoJSON.BBox) != 4 {
		t.Errorf("expected bbox on feature collection, got %v", result.GeoJSON.BBox)
	}
	if *result.AreaSqKm != 12.5 {
		t.Errorf("area_sqkm = %v, want 12.5", *result.AreaSqKm)
	}
	wantTile := srv.URL + "/v1/projects/test-project/maps/abc123/tiles/{z}/{x}/{y}"
	if *result.TileURL != wantTile {
		t.Errorf("tile_url = %s, want %s", *result.TileURL, wantTile)
	}

	var methods []string
	for _, r := range srv.Requests() {
		methods = append(methods, r.Method)
	}
	wantMethods := []string{eetest.MethodComputeValue, eetest.MethodComputeFeatures, eetest.MethodCreateMap, eetest.MethodComputeValue}
	if len(methods) != len(wantMethods) {
		t.Fatalf("backend calls = %v, want %v", methods, wantMethods)
	}
	for i := range wantMethods {
		if methods[i] != wantMethods[i] {
			t.Errorf("call %d = %s, want %s", i, methods[i], wantMethods[i])
		}
	}

	maps := srv.RequestsFor(eetest.MethodCreateMap)
	if vis := maps[0].Visualization; vis == nil || len(vis.PaletteColors) != 1 || vis.PaletteColors[0] != "blue" {
		t.Errorf("visualization = %+v, want blue palette", vis)
	}

	if len(observed) != 1 || observed[0] != "current/success" {
		t.Errorf("observed = %v", observed)
	}
}

func TestEarthEngineBackend_FloodMap_AllLayers(t *testing.T) {
	palettes := map[string]string{"current": "blue", "historical": "cyan", "risk": "red"}

	for layer, color := range palettes {
		t.Run(layer, func(t *testing.T) {
			b, srv := createTestBackend(t)

			result, err := b.FloodMap(context.Background(), model.FloodMapRequest{CountryName: "Nepal", LayerType: layer})
			if err != nil {
				t.Fatalf("FloodMap failed: %v", err)
			}
			if result.Status != model.StatusSuccess || !result.HasData() {
				t.Fatalf("expected success with data, got %+v", result)
			}
			if result.Layer != layer {
				t.Errorf("Layer = %s, want %s", result.Layer, layer)
			}

			vis := srv.RequestsFor(eetest.MethodCreateMap)[0].Visualization
			if vis == nil || vis.PaletteColors[0] != color {
				t.Errorf("palette = %+v, want %s", vis, color)
			}
		})
	}
}

func TestEarthEngineBackend_FloodMap_RiskWithoutRainfall(t *testing.T) {
	b, srv := createTestBackend(t)
	srv.RainfallImages = 0

	result, err := b.FloodMap(context.Background(), model.FloodMapRequest{CountryName: "Nepal", LayerType: "risk"})
	if err != nil {
		t.Fatalf("FloodMap failed: %v", err)
	}

	if result.Status != model.StatusError {
		t.Errorf("Status = %s, want error", result.Status)
	}
	if result.Message != analysis.NoRainfallMessage {
		t.Errorf("Message = %q", result.Message)
	}
	if result.GeoJSON != nil || result.TileURL != nil || result.AreaSqKm != nil {
		t.Error("error result must not carry data")
	}
	if got := len(srv.RequestsFor(eetest.MethodComputeFeatures)); got != 0 {
		t.Errorf("expected no vectorisation, got %d calls", got)
	}
}

func TestEarthEngineBackend_FloodMap_UnknownCountry(t *testing.T) {
	b, srv := createTestBackend(t)

	_, err := b.FloodMap(context.Background(), model.FloodMapRequest{CountryName: "Atlantis"})

	var notFound *model.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *model.NotFoundError, got %v", err)
	}
	if got := len(srv.Requests()); got != 1 {
		t.Errorf("expected only the lookup call, got %d", got)
	}
}

func TestEarthEngineBackend_FloodMap_ValidationSkipsBackend(t *testing.T) {
	b, srv := createTestBackend(t)

	_, err := b.FloodMap(context.Background(), model.FloodMapRequest{CountryName: "", LayerType: "risk"})

	var validationErr *model.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected *model.ValidationError, got %v", err)
	}
	if got := len(srv.Requests()); got != 0 {
		t.Errorf("expected no backend calls, got %d", got)
	}
}

func TestEarthEngineBackend_FloodMap_NullArea(t *testing.T) {
	b, srv := createTestBackend(t)
	srv.SetAreaRaw(nil)

	result, err := b.FloodMap(context.Background(), model.FloodMapRequest{CountryName: "Nepal", LayerType: "historical"})
	if err != nil {
		t.Fatalf("FloodMap failed: %v", err)
	}
	if result.AreaSqKm == nil || *result.AreaSqKm != 0 {
		t.Errorf("area_sqkm = %v, want 0", result.AreaSqKm)
	}
}

func TestEarthEngineBackend_FloodMap_PagedVectors(t *testing.T) {
	b, srv := createTestBackend(t)
	srv.PageSize = 1

	result, err := b.FloodMap(context.Background(), model.FloodMapRequest{CountryName: "Nepal"})
	if err != nil {
		t.Fatalf("FloodMap failed: %v", err)
	}
	if result.GeoJSON.Len() != 2 {
		t.Errorf("Expected 2 features across pages, got %d", result.GeoJSON.Len())
	}
}

func TestEarthEngineBackend_FloodMap_BackendFailure(t *testing.T) {
	const message = "User memory limit exceeded."

	b, srv := createTestBackend(t)
	srv.Fail(eetest.MethodCreateMap, &eetest.Failure{
		StatusCode: http.StatusBadRequest,
		Status:     "INVALID_ARGUMENT",
		Message:    message,
	})

	_, err := b.FloodMap(context.Background(), model.FloodMapRequest{CountryName: "Nepal"})

	var serviceErr *model.ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("expected *model.ServiceError, got %v", err)
	}
	if err.Error() != message {
		t.Errorf("message = %q, want %q", err.Error(), message)
	}
}

func TestEarthEngineBackend_Countries(t *testing.T) {
	b, srv := createTestBackend(t)
	srv.Countries = []string{"India", "Bangladesh"}

	countries, err := b.Countries(context.Background())
	if err != nil {
		t.Fatalf("Countries failed: %v", err)
	}
	if len(countries) != 2 || countries[0] != "Bangladesh" {
		t.Errorf("Countries() = %v, want sorted list", countries)
	}
	if b.Name() != "earthengine" {
		t.Errorf("Name() = %s", b.Name())
	}
}
