package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	gostac "github.com/planetlabs/go-stac"

	"github.com/robert-malhotra/floodsync-api/internal/backend"
	"github.com/robert-malhotra/floodsync-api/internal/config"
	"github.com/robert-malhotra/floodsync-api/internal/model"
	"github.com/robert-malhotra/floodsync-api/internal/stac"
)

// maxBodyBytes bounds the size of a POST /flood_map body.
const maxBodyBytes = 1 << 20

// Handlers contains all HTTP handlers for the flood API.
type Handlers struct {
	cfg     *config.Config
	backend backend.FloodBackend
	layers  *config.LayerRegistry
	logger  *slog.Logger
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(
	cfg *config.Config,
	floodBackend backend.FloodBackend,
	layers *config.LayerRegistry,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		cfg:     cfg,
		backend: floodBackend,
		layers:  layers,
		logger:  logger,
	}
}

// LandingPage returns the root catalog linking every endpoint.
// GET /
func (h *Handlers) LandingPage(w http.ResponseWriter, r *http.Request) {
	baseURL := h.cfg.Server.BaseURL

	landing := stac.NewLandingPage(
		"floodsync",
		"FloodSync API",
		"Flood extent, historical flood and flood risk maps computed on Google Earth Engine.",
	)

	landing.AddLink("self", baseURL+"/", "application/json")
	landing.AddLink("root", baseURL+"/", "application/json")
	landing.AddLink("data", baseURL+"/layers", "application/json")
	landing.AddMethodLink("countries", baseURL+"/countries", "application/json", http.MethodGet, "Selectable countries")
	landing.AddMethodLink("flood-map", baseURL+"/flood_map", "application/json", http.MethodPost, "Run a flood analysis")
	for _, layer := range h.layers.All() {
		landing.Links = append(landing.Links, &gostac.Link{
			Rel:   "child",
			Href:  baseURL + "/layers/" + layer.ID,
			Type:  "application/json",
			Title: layer.Title,
		})
	}

	WriteJSON(w, http.StatusOK, landing)
}

// Layers returns every analysis layer as a STAC Collection.
// GET /layers
func (h *Handlers) Layers(w http.ResponseWriter, r *http.Request) {
	baseURL := h.cfg.Server.BaseURL

	layers := h.layers.All()
	collections := make([]*stac.Collection, 0, len(layers))
	for _, layer := range layers {
		collections = append(collections, stac.LayerCollection(layer, baseURL))
	}

	response := stac.NewCollectionsList(collections)
	response.AddLink("self", baseURL+"/layers", "application/json")
	response.AddLink("root", baseURL+"/", "application/json")

	WriteJSON(w, http.StatusOK, response)
}

// Layer returns a single analysis layer by ID.
// GET /layers/{layerId}
func (h *Handlers) Layer(w http.ResponseWriter, r *http.Request) {
	layerID := chi.URLParam(r, "layerId")

	layer := h.layers.Get(layerID)
	if layer == nil {
		WriteNotFound(w, fmt.Sprintf("layer %q not found", layerID))
		return
	}

	WriteJSON(w, http.StatusOK, stac.LayerCollection(layer, h.cfg.Server.BaseURL))
}

// Countries returns the sorted list of selectable countries.
// GET /countries
func (h *Handlers) Countries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.backend.Countries(r.Context())
	if err != nil {
		h.writeBackendError(w, r, "list countries", err)
		return
	}

	WriteJSON(w, http.StatusOK, model.NewCountriesResponse(countries))
}

// FloodMap runs a flood analysis for one country.
// POST /flood_map
func (h *Handlers) FloodMap(w http.ResponseWriter, r *http.Request) {
	var req model.FloodMapRequest

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		WriteBadRequest(w, fmt.Sprintf("failed to read request body: %v", err))
		return
	}
	if len(body) == 0 {
		WriteBadRequest(w, "request body is required")
		return
	}
	if err := json.Unmarshal(body, &req); err != nil {
		WriteBadRequest(w, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}

	if err := validateRequest(&req); err != nil {
		h.writeBackendError(w, r, "flood map", err)
		return
	}

	result, err := h.backend.FloodMap(r.Context(), req)
	if err != nil {
		h.writeBackendError(w, r, "flood map", err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// Health returns the health status of the service.
// GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": h.backend.Name(),
	})
}

// writeBackendError maps the error taxonomy onto HTTP status codes.
// Backend messages are passed through verbatim.
func (h *Handlers) writeBackendError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		validationErr *model.ValidationError
		notFoundErr   *model.NotFoundError
	)

	switch {
	case errors.As(err, &validationErr):
		WriteBadRequest(w, validationErr.Message)
		return
	case errors.As(err, &notFoundErr):
		WriteNotFound(w, notFoundErr.Error())
		return
	}

	attrs := []any{
		slog.String("op", op),
		slog.String("error", err.Error()),
	}
	if errors.Is(err, context.DeadlineExceeded) {
		attrs = append(attrs, slog.Bool("timeout", true))
	}
	h.logger.ErrorContext(r.Context(), "backend request failed", attrs...)

	WriteInternalError(w, err.Error())
}
