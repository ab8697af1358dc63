// Package backend provides the flood mapping backends served by the HTTP API.
package backend

import (
	"context"

	"github.com/robert-malhotra/floodsync-api/internal/model"
)

// FloodBackend defines the operations behind the HTTP API.
type FloodBackend interface {
	// Countries returns the selectable country names, sorted and unique.
	Countries(ctx context.Context) ([]string, error)

	// FloodMap runs the requested analysis. A risk analysis without rainfall
	// data yields a result with status "error" and a nil error.
	FloodMap(ctx context.Context, req model.FloodMapRequest) (*model.FloodMapResult, error)

	// Name returns the backend name (e.g., "earthengine").
	Name() string
}
