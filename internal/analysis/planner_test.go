package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/robert-malhotra/floodsync-api/internal/config"
	"github.com/robert-malhotra/floodsync-api/internal/earthengine"
	"github.com/robert-malhotra/floodsync-api/internal/model"
)

type stubCounter struct {
	count float64
	err   error
	calls int
}

func (s *stubCounter) ComputeNumber(ctx context.Context, v earthengine.Computable) (float64, bool, error) {
	s.calls++
	return s.count, true, s.err
}

func testConfig() config.AnalysisConfig {
	return config.AnalysisConfig{
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
	}
}

func newTestPlanner(counter Counter) *Planner {
	cfg := testConfig()
	return NewPlanner(cfg, config.DefaultLayers(cfg), counter)
}

func testGeometry() earthengine.Geometry {
	return earthengine.LoadTable("FAO/GAUL/2015/level0").
		Filter(earthengine.Equals("ADM0_NAME", "Bangladesh")).
		First().
		Geometry()
}

func testQuery(t *testing.T, mode string) Query {
	t.Helper()
	q, err := NewQuery(model.FloodMapRequest{
		CountryName: "Bangladesh",
		StartDate:   "2024-07-01",
		EndDate:     "2024-07-31",
		LayerType:   mode,
	}, fixedNow, 30)
	if err != nil {
		t.Fatalf("NewQuery() error: %v", err)
	}
	return q
}

func encode(t *testing.T, c earthengine.Computable) *earthengine.Expression {
	t.Helper()
	expr, err := earthengine.Encode(c.Node())
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	return expr
}

func constantArg[T any](t *testing.T, expr *earthengine.Expression, call *earthengine.FunctionInvocation, name string) T {
	t.Helper()
	var v T
	if err := expr.ConstantArg(call, name, &v); err != nil {
		t.Fatalf("ConstantArg(%s) error: %v", name, err)
	}
	return v
}

func loadedCollections(t *testing.T, expr *earthengine.Expression) map[string]bool {
	t.Helper()
	ids := make(map[string]bool)
	for _, call := range expr.Invocations("ImageCollection.load") {
		ids[constantArg[string](t, expr, call, "id")] = true
	}
	return ids
}

func TestPlanner_Current(t *testing.T) {
	plan, err := newTestPlanner(&stubCounter{}).Plan(context.Background(), testQuery(t, "current"), testGeometry())
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}

	if plan.LabelProperty != "flood" || plan.AreaBand != "VV" {
		t.Errorf("label/area band = %s/%s, want flood/VV", plan.LabelProperty, plan.AreaBand)
	}
	if vis := plan.Visualization(); len(vis.PaletteColors) != 1 || vis.PaletteColors[0] != "blue" {
		t.Errorf("palette = %v, want [blue]", vis.PaletteColors)
	}

	expr := encode(t, plan.Vectors())

	if ids := loadedCollections(t, expr); !ids["COPERNICUS/S1_GRD"] || len(ids) != 1 {
		t.Errorf("loaded collections = %v, want only COPERNICUS/S1_GRD", ids)
	}

	dr := expr.Invocations("DateRange")
	if len(dr) != 1 {
		t.Fatalf("DateRange used %d times, want 1", len(dr))
	}
	if got := constantArg[string](t, expr, dr[0], "start"); got != "2024-07-01" {
		t.Errorf("start = %s, want request start", got)
	}

	var sawMode bool
	for _, call := range expr.Invocations("Filter.equals") {
		if constantArg[string](t, expr, call, "leftField") == "instrumentMode" {
			sawMode = constantArg[string](t, expr, call, "rightValue") == "IW"
		}
	}
	if !sawMode {
		t.Error("expected instrumentMode == IW filter")
	}

	sort := expr.Invocations("Collection.limit")
	if len(sort) != 1 || constantArg[bool](t, expr, sort[0], "ascending") {
		t.Error("expected a single descending sort on acquisition time")
	}

	thresholds := expr.Invocations("Image.constant")
	if len(thresholds) != 1 || constantArg[float64](t, expr, thresholds[0], "value") != -15 {
		t.Error("expected backscatter threshold of -15 dB")
	}
	if !expr.Uses("Image.lt") || !expr.Uses("Image.selfMask") || !expr.Uses("Image.clip") {
		t.Error("expected threshold, self-mask and clip")
	}

	vec := expr.Root().FunctionInvocationValue
	if vec.FunctionName != "Image.reduceToVectors" {
		t.Fatalf("root = %s, want Image.reduceToVectors", vec.FunctionName)
	}
	if constantArg[bool](t, expr, vec, "eightConnected") {
		t.Error("vectorisation must be 4-connected")
	}
	if got := constantArg[float64](t, expr, vec, "scale"); got != 30 {
		t.Errorf("scale = %g, want 30", got)
	}
	if got := constantArg[string](t, expr, vec, "labelProperty"); got != "flood" {
		t.Errorf("labelProperty = %s, want flood", got)
	}
	if got := constantArg[string](t, expr, vec, "geometryType"); got != "polygon" {
		t.Errorf("geometryType = %s, want polygon", got)
	}
}

func TestPlanner_Historical_IgnoresRequestDates(t *testing.T) {
	plan, err := newTestPlanner(&stubCounter{}).Plan(context.Background(), testQuery(t, "historical"), testGeometry())
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}

	expr := encode(t, plan.Vectors())

	for _, call := range expr.Invocations("DateRange") {
		start := constantArg[string](t, expr, call, "start")
		end := constantArg[string](t, expr, call, "end")
		if start != "2019-11-01" || end != "2019-11-12" {
			t.Errorf("window = %s..%s, want 2019-11-01..2019-11-12", start, end)
		}
	}

	if ids := loadedCollections(t, expr); !ids["LANDSAT/LC08/C02/T1_L2"] {
		t.Errorf("loaded collections = %v, want Landsat", ids)
	}
	if !expr.Uses("Image.normalizedDifference") || !expr.Uses("reduce.median") || !expr.Uses("Image.gt") {
		t.Error("expected NDWI median composite thresholded with gt")
	}

	if got := plan.Palette; len(got) != 1 || got[0] != "cyan" {
		t.Errorf("palette = %v, want [cyan]", got)
	}
}

func TestPlanner_Risk_NoRainfall(t *testing.T) {
	counter := &stubCounter{count: 0}

	plan, err := newTestPlanner(counter).Plan(context.Background(), testQuery(t, "risk"), testGeometry())
	if plan != nil {
		t.Error("expected no plan")
	}

	var noData *model.NoDataError
	if !errors.As(err, &noData) {
		t.Fatalf("expected *model.NoDataError, got %v", err)
	}
	if noData.Message != NoRainfallMessage {
		t.Errorf("Message = %q", noData.Message)
	}
	if counter.calls != 1 {
		t.Errorf("counter called %d times, want 1", counter.calls)
	}
}

func TestPlanner_Risk_CountFailure(t *testing.T) {
	counter := &stubCounter{err: errors.New("quota exceeded")}

	_, err := newTestPlanner(counter).Plan(context.Background(), testQuery(t, "risk"), testGeometry())

	var serviceErr *model.ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("expected *model.ServiceError, got %v", err)
	}
	if err.Error() != "quota exceeded" {
		t.Errorf("message = %q, want verbatim backend message", err.Error())
	}
}

func TestPlanner_Risk(t *testing.T) {
	plan, err := newTestPlanner(&stubCounter{count: 12}).Plan(context.Background(), testQuery(t, "risk"), testGeometry())
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}

	if plan.LabelProperty != "risk" {
		t.Errorf("LabelProperty = %s, want risk", plan.LabelProperty)
	}

	expr := encode(t, plan.Vectors())
	ids := loadedCollections(t, expr)
	if !ids["NASA/GPM_L3/IMERG_V06"] || !ids["LANDSAT/LC08/C02/T1_L2"] {
		t.Errorf("loaded collections = %v, want GPM and Landsat", ids)
	}
	if !expr.Uses("reduce.mean") || !expr.Uses("Image.and") {
		t.Error("expected mean rainfall combined with the flood mask")
	}

	var thresholds []float64
	for _, call := range expr.Invocations("Image.constant") {
		thresholds = append(thresholds, constantArg[float64](t, expr, call, "value"))
	}
	if len(thresholds) != 2 {
		t.Errorf("thresholds = %v, want rainfall and NDWI", thresholds)
	}
}

func TestPlan_Area(t *testing.T) {
	plan, err := newTestPlanner(&stubCounter{count: 1}).Plan(context.Background(), testQuery(t, "risk"), testGeometry())
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}

	expr := encode(t, plan.Area())

	get := expr.Root().FunctionInvocationValue
	if get.FunctionName != "Dictionary.get" {
		t.Fatalf("root = %s, want Dictionary.get", get.FunctionName)
	}
	if key := constantArg[string](t, expr, get, "key"); key != "NDWI" {
		t.Errorf("key = %s, want NDWI", key)
	}

	reduce := expr.Invocations("Image.reduceRegion")
	if len(reduce) != 1 {
		t.Fatalf("reduceRegion used %d times, want 1", len(reduce))
	}
	if got := constantArg[float64](t, expr, reduce[0], "maxPixels"); got != 1e10 {
		t.Errorf("maxPixels = %g, want 1e10", got)
	}

	product := expr.Resolve(reduce[0].Arguments["image"])
	if product == nil || product.FunctionInvocationValue == nil || product.FunctionInvocationValue.FunctionName != "Image.rename" {
		t.Fatalf("reduced image = %+v, want Image.rename", product)
	}
	if names := constantArg[[]string](t, expr, product.FunctionInvocationValue, "names"); len(names) != 1 || names[0] != "NDWI" {
		t.Errorf("area product renamed to %v, want [NDWI]", names)
	}

	if !expr.Uses("Reducer.sum") || !expr.Uses("Image.pixelArea") {
		t.Error("expected a pixel area sum")
	}
}
