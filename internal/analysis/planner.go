package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robert-malhotra/floodsync-api/internal/config"
	"github.com/robert-malhotra/floodsync-api/internal/earthengine"
	"github.com/robert-malhotra/floodsync-api/internal/model"
)

// NoRainfallMessage is reported when the risk analysis has no rainfall input.
const NoRainfallMessage = "No GPM rainfall data available for this period and area"

const ndwiBand = "NDWI"

// Counter materialises numeric Earth Engine values.
type Counter interface {
	ComputeNumber(ctx context.Context, v earthengine.Computable) (float64, bool, error)
}

// Planner builds a Plan for each mode.
type Planner struct {
	cfg     config.AnalysisConfig
	layers  *config.LayerRegistry
	counter Counter
	logger  *slog.Logger
}

// NewPlanner creates a Planner. counter is used by strategies that must
// check data availability before planning.
func NewPlanner(cfg config.AnalysisConfig, layers *config.LayerRegistry, counter Counter) *Planner {
	return &Planner{
		cfg:     cfg,
		layers:  layers,
		counter: counter,
		logger:  slog.Default(),
	}
}

// WithLogger sets a custom logger for the planner
func (p *Planner) WithLogger(logger *slog.Logger) *Planner {
	p.logger = logger
	return p
}

// Plan builds the lazy analysis for q over the country geometry. The risk
// strategy returns a *model.NoDataError when no rainfall observations exist.
func (p *Planner) Plan(ctx context.Context, q Query, geom earthengine.Geometry) (*Plan, error) {
	switch q.Mode {
	case ModeCurrent:
		return p.current(q, geom), nil
	case ModeHistorical:
		return p.historical(geom), nil
	case ModeRisk:
		return p.risk(ctx, q, geom)
	}
	return nil, fmt.Errorf("unhandled analysis mode %d", q.Mode)
}

func (p *Planner) newPlan(mode Mode, mask earthengine.Image, geom earthengine.Geometry, areaBand, label string) *Plan {
	return &Plan{
		Mode:          mode,
		Mask:          mask,
		Geometry:      geom,
		AreaBand:      areaBand,
		LabelProperty: label,
		Palette:       p.layers.Palette(mode.String()),
		Scale:         p.cfg.Scale,
		MaxPixels:     p.cfg.MaxPixels,
	}
}

// current thresholds the most recent radar scene in the request window.
func (p *Planner) current(q Query, geom earthengine.Geometry) *Plan {
	scene := earthengine.LoadImageCollection(p.cfg.RadarCollection).
		FilterBounds(geom).
		FilterDate(q.StartDate(), q.EndDate()).
		Filter(earthengine.Equals("instrumentMode", p.cfg.RadarInstrumentMode)).
		Select(p.cfg.RadarBand).
		Sort("system:time_start", false).
		First()

	water := scene.Lt(p.cfg.RadarThreshold).SelfMask().Clip(geom)

	return p.newPlan(ModeCurrent, water, geom, p.cfg.RadarBand, "flood")
}

// historical always uses the configured historical window; request dates
// are ignored.
func (p *Planner) historical(geom earthengine.Geometry) *Plan {
	flood := p.historicalNDWI(geom).Gt(p.cfg.NDWIThreshold).SelfMask().Clip(geom)
	return p.newPlan(ModeHistorical, flood, geom, ndwiBand, "flood")
}

func (p *Planner) risk(ctx context.Context, q Query, geom earthengine.Geometry) (*Plan, error) {
	rainfall := earthengine.LoadImageCollection(p.cfg.RainfallCollection).
		FilterBounds(geom).
		FilterDate(q.StartDate(), q.EndDate()).
		Select(p.cfg.RainfallBand)

	count, _, err := p.counter.ComputeNumber(ctx, rainfall.Size())
	if err != nil {
		return nil, model.NewServiceError("count rainfall observations", err)
	}
	if count == 0 {
		p.logger.InfoContext(ctx, "no rainfall observations",
			slog.String("country", q.Country),
			slog.String("start", q.StartDate()),
			slog.String("end", q.EndDate()),
		)
		return nil, &model.NoDataError{Message: NoRainfallMessage}
	}

	heavyRain := rainfall.Mean().Gt(p.cfg.RainfallThreshold)
	flooded := p.historicalNDWI(geom).Gt(p.cfg.NDWIThreshold)
	risk := heavyRain.And(flooded).SelfMask().Clip(geom)

	return p.newPlan(ModeRisk, risk, geom, ndwiBand, "risk"), nil
}

// historicalNDWI is the median NDWI composite over the historical window.
func (p *Planner) historicalNDWI(geom earthengine.Geometry) earthengine.Image {
	nir, green := p.cfg.OpticalNIRBand, p.cfg.OpticalGreenBand
	return earthengine.LoadImageCollection(p.cfg.OpticalCollection).
		FilterBounds(geom).
		FilterDate(p.cfg.HistoricalStart, p.cfg.HistoricalEnd).
		Map(func(img earthengine.Image) earthengine.Image {
			return img.NormalizedDifference(nir, green).Rename(ndwiBand)
		}).
		Median()
}
