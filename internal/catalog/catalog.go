// Package catalog resolves country names and boundaries against the
// administrative boundary table hosted on Earth Engine.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/goccy/go-json"

	"github.com/robert-malhotra/floodsync-api/internal/earthengine"
	"github.com/robert-malhotra/floodsync-api/internal/model"
)

// Evaluator materialises lazy Earth Engine values.
type Evaluator interface {
	ComputeValue(ctx context.Context, v earthengine.Computable) (json.RawMessage, error)
	ComputeNumber(ctx context.Context, v earthengine.Computable) (float64, bool, error)
}

// Catalog reads country boundaries from a feature collection.
type Catalog struct {
	eval         Evaluator
	tableID      string
	nameProperty string
	logger       *slog.Logger
}

// New creates a Catalog over tableID, matching countries on nameProperty.
func New(eval Evaluator, tableID, nameProperty string) *Catalog {
	return &Catalog{
		eval:         eval,
		tableID:      tableID,
		nameProperty: nameProperty,
		logger:       slog.Default(),
	}
}

// WithLogger sets a custom logger for the catalog
func (c *Catalog) WithLogger(logger *slog.Logger) *Catalog {
	c.logger = logger
	return c
}

// Countries returns every country name in the table, sorted ascending with
// duplicates removed. Each call queries the table.
func (c *Catalog) Countries(ctx context.Context) ([]string, error) {
	names := earthengine.LoadTable(c.tableID).
		AggregateArray(c.nameProperty).
		Distinct().
		Sort()

	raw, err := c.eval.ComputeValue(ctx, names)
	if err != nil {
		return nil, model.NewServiceError("list countries", err)
	}

	var countries []string
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &countries); err != nil {
			return nil, model.NewServiceError("list countries", fmt.Errorf("failed to decode country list: %w", err))
		}
	}

	slices.Sort(countries)
	countries = slices.Compact(countries)

	c.logger.DebugContext(ctx, "listed countries",
		slog.Int("count", len(countries)),
	)

	return countries, nil
}

// Boundary returns the lazy geometry of the first feature named name. It
// does not check that the country exists.
func (c *Catalog) Boundary(name string) earthengine.Geometry {
	return c.matching(name).First().Geometry()
}

// Geometry resolves name to its boundary geometry. It returns a
// *model.NotFoundError when no feature matches exactly.
func (c *Catalog) Geometry(ctx context.Context, name string) (earthengine.Geometry, error) {
	count, _, err := c.eval.ComputeNumber(ctx, c.matching(name).Size())
	if err != nil {
		return earthengine.Geometry{}, model.NewServiceError("resolve country", err)
	}

	if count == 0 {
		c.logger.WarnContext(ctx, "country not found",
			slog.String("country", name),
		)
		return earthengine.Geometry{}, &model.NotFoundError{Kind: "country", Name: name}
	}

	return c.Boundary(name), nil
}

func (c *Catalog) matching(name string) earthengine.FeatureCollection {
	return earthengine.LoadTable(c.tableID).Filter(earthengine.Equals(c.nameProperty, name))
}
