package backend

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robert-malhotra/floodsync-api/internal/analysis"
	"github.com/robert-malhotra/floodsync-api/internal/catalog"
	"github.com/robert-malhotra/floodsync-api/internal/config"
	"github.com/robert-malhotra/floodsync-api/internal/earthengine"
	"github.com/robert-malhotra/floodsync-api/internal/model"
	"github.com/robert-malhotra/floodsync-api/pkg/geojson"
)

// squareMetresPerKm2 converts reduced pixel areas to square kilometres.
const squareMetresPerKm2 = 1e6

// Evaluator materialises analysis plans on Earth Engine.
type Evaluator interface {
	ComputeFeatures(ctx context.Context, fc earthengine.Computable) (*geojson.FeatureCollection, error)
	CreateMap(ctx context.Context, img earthengine.Computable, vis earthengine.VisualizationOptions) (*earthengine.MapID, error)
	ComputeNumber(ctx context.Context, v earthengine.Computable) (float64, bool, error)
}

// EarthEngineBackend implements FloodBackend on top of Earth Engine.
type EarthEngineBackend struct {
	eval     Evaluator
	catalog  *catalog.Catalog
	planner  *analysis.Planner
	cfg      *config.Config
	observer func(layer, status string)
	now      func() time.Time
	logger   *slog.Logger
}

// NewEarthEngineBackend creates a new Earth Engine backend.
func NewEarthEngineBackend(
	eval Evaluator,
	catalog *catalog.Catalog,
	planner *analysis.Planner,
	cfg *config.Config,
	logger *slog.Logger,
) *EarthEngineBackend {
	return &EarthEngineBackend{
		eval:    eval,
		catalog: catalog,
		planner: planner,
		cfg:     cfg,
		now:     time.Now,
		logger:  logger,
	}
}

// WithResultObserver registers a callback invoked with the layer and status
// of every flood map result.
func (b *EarthEngineBackend) WithResultObserver(fn func(layer, status string)) *EarthEngineBackend {
	b.observer = fn
	return b
}

// Name returns the backend name.
func (b *EarthEngineBackend) Name() string {
	return "earthengine"
}

// Countries lists the countries of the boundary table.
func (b *EarthEngineBackend) Countries(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.EarthEngine.RequestTimeout)
	defer cancel()

	return b.catalog.Countries(ctx)
}

// FloodMap validates req, plans the analysis and materialises its vectors,
// tile URL and area, in that order.
func (b *EarthEngineBackend) FloodMap(ctx context.Context, req model.FloodMapRequest) (*model.FloodMapResult, error) {
	q, err := analysis.NewQuery(req, b.now(), b.cfg.Analysis.DefaultWindowDays)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, b.cfg.EarthEngine.RequestTimeout)
	defer cancel()

	layer := q.Mode.String()
	logger := b.logger.With(
		slog.String("country", q.Country),
		slog.String("layer", layer),
	)

	geom, err := b.catalog.Geometry(ctx, q.Country)
	if err != nil {
		return nil, err
	}

	plan, err := b.planner.Plan(ctx, q, geom)
	var noData *model.NoDataError
	if errors.As(err, &noData) {
		logger.InfoContext(ctx, "no data for flood map",
			slog.String("message", noData.Message),
		)
		return b.observe(model.NewErrorResult(layer, noData.Message)), nil
	}
	if err != nil {
		return nil, err
	}

	fc, err := b.eval.ComputeFeatures(ctx, plan.Vectors())
	if err != nil {
		return nil, model.NewServiceError("vectorize flood mask", err)
	}
	if bbox, err := fc.ComputeBBox(); err == nil {
		fc.BBox = bbox
	}

	mapID, err := b.eval.CreateMap(ctx, plan.Mask, plan.Visualization())
	if err != nil {
		return nil, model.NewServiceError("create map tiles", err)
	}

	raw, ok, err := b.eval.ComputeNumber(ctx, plan.Area())
	if err != nil {
		return nil, model.NewServiceError("compute flooded area", err)
	}
	if !ok {
		logger.DebugContext(ctx, "area reduction returned null, reporting zero")
	}
	areaSqKm := raw / squareMetresPerKm2

	logger.InfoContext(ctx, "flood map generated",
		slog.Int("feature_count", fc.Len()),
		slog.Float64("area_sqkm", areaSqKm),
		slog.String("window", q.StartDate()+"/"+q.EndDate()),
	)

	return b.observe(model.NewSuccessResult(layer, fc, mapID.TileURL, areaSqKm)), nil
}

func (b *EarthEngineBackend) observe(result *model.FloodMapResult) *model.FloodMapResult {
	if b.observer != nil {
		b.observer(result.Layer, result.Status)
	}
	return result
}
