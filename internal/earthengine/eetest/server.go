// Package eetest provides an in-process fake of the Earth Engine REST API
// for tests.
package eetest

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/robert-malhotra/floodsync-api/internal/earthengine"
	"github.com/robert-malhotra/floodsync-api/pkg/geojson"
)

// Project is the cloud project used by clients returned from Server.Client.
const Project = "test-project"

// REST methods served by the fake.
const (
	MethodComputeValue    = "value:compute"
	MethodComputeFeatures = "table:computeFeatures"
	MethodCreateMap       = "maps"
)

// Failure is an error response returned instead of a result.
type Failure struct {
	StatusCode int
	Status     string
	Message    string
}

// Request records one call received by the fake.
type Request struct {
	Method        string
	Expression    *earthengine.Expression
	PageToken     string
	Visualization *earthengine.VisualizationOptions
}

// Server answers Earth Engine REST calls from canned data.
//
// value:compute is routed on the algorithm at the root of the expression:
// List.sort returns Countries, Collection.size over an image collection
// returns RainfallImages, any other Collection.size returns 1 or 0 depending
// on whether the filtered name is in Countries, and Dictionary.get returns
// AreaRaw.
type Server struct {
	*httptest.Server

	mu             sync.Mutex
	Countries      []string
	RainfallImages int
	AreaRaw        *float64
	Features       []*geojson.Feature
	PageSize       int
	MapName        string
	failures       map[string]*Failure
	requests       []Request
}

// NewServer starts a fake with a small default data set. Callers must Close it.
func NewServer() *Server {
	area := 12_500_000.0
	s := &Server{
		Countries:      []string{"Bangladesh", "India", "Nepal"},
		RainfallImages: 3,
		AreaRaw:        &area,
		Features: []*geojson.Feature{
			testFeature(90.1, 23.5, 90.4, 23.9),
			testFeature(89.8, 24.0, 90.0, 24.2),
		},
		MapName:  "projects/" + Project + "/maps/abc123",
		failures: make(map[string]*Failure),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Client returns a client pointed at the fake.
func (s *Server) Client() *earthengine.Client {
	return earthengine.NewClient(s.URL, Project, 5*time.Second)
}

// Fail makes every call to method return f. A nil f clears the failure.
func (s *Server) Fail(method string, f *Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = f
}

// SetAreaRaw sets the value returned for area reductions. A nil value is
// returned as JSON null.
func (s *Server) SetAreaRaw(v *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AreaRaw = v
}

// Requests returns the calls received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// RequestsFor returns the calls received for method.
func (s *Server) RequestsFor(method string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method == method {
			out = append(out, r)
		}
	}
	return out
}

type requestBody struct {
	Expression           *earthengine.Expression           `json:"expression"`
	PageToken            string                            `json:"pageToken"`
	VisualizationOptions *earthengine.VisualizationOptions `json:"visualizationOptions"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeFailure(w, &Failure{StatusCode: http.StatusMethodNotAllowed, Status: "METHOD_NOT_ALLOWED", Message: "POST required"})
		return
	}

	prefix := "/v1/projects/" + Project + "/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		writeFailure(w, &Failure{StatusCode: http.StatusNotFound, Status: "NOT_FOUND", Message: "unknown path " + r.URL.Path})
		return
	}
	method := strings.TrimPrefix(r.URL.Path, prefix)

	var body requestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Expression == nil {
		writeFailure(w, &Failure{StatusCode: http.StatusBadRequest, Status: "INVALID_ARGUMENT", Message: "Invalid JSON payload received."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, Request{
		Method:        method,
		Expression:    body.Expression,
		PageToken:     body.PageToken,
		Visualization: body.VisualizationOptions,
	})

	if f := s.failures[method]; f != nil {
		writeFailure(w, f)
		return
	}

	switch method {
	case MethodComputeValue:
		s.computeValue(w, body.Expression)
	case MethodComputeFeatures:
		s.computeFeatures(w, body.PageToken)
	case MethodCreateMap:
		writeJSON(w, map[string]any{"name": s.MapName})
	default:
		writeFailure(w, &Failure{StatusCode: http.StatusNotFound, Status: "NOT_FOUND", Message: "unknown method " + method})
	}
}

func (s *Server) computeValue(w http.ResponseWriter, expr *earthengine.Expression) {
	root := expr.Root()
	if root == nil {
		writeFailure(w, badExpression("dangling result reference"))
		return
	}
	if root.ConstantValue != nil {
		writeJSON(w, map[string]json.RawMessage{"result": root.ConstantValue})
		return
	}
	if root.FunctionInvocationValue == nil {
		writeFailure(w, badExpression("unsupported result node"))
		return
	}

	switch root.FunctionInvocationValue.FunctionName {
	case "List.sort":
		writeJSON(w, map[string]any{"result": s.Countries})

	case "Collection.size":
		if expr.Uses("ImageCollection.load") {
			writeJSON(w, map[string]any{"result": s.RainfallImages})
			return
		}
		var name string
		for _, call := range expr.Invocations("Filter.equals") {
			if err := expr.ConstantArg(call, "rightValue", &name); err == nil {
				break
			}
		}
		count := 0
		if slices.Contains(s.Countries, name) {
			count = 1
		}
		writeJSON(w, map[string]any{"result": count})

	case "Dictionary.get":
		writeJSON(w, map[string]any{"result": s.AreaRaw})

	default:
		writeFailure(w, badExpression("unsupported algorithm "+root.FunctionInvocationValue.FunctionName))
	}
}

func (s *Server) computeFeatures(w http.ResponseWriter, pageToken string) {
	start := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil || n < 0 || n > len(s.Features) {
			writeFailure(w, &Failure{StatusCode: http.StatusBadRequest, Status: "INVALID_ARGUMENT", Message: "Invalid page token."})
			return
		}
		start = n
	}

	end := len(s.Features)
	if s.PageSize > 0 && start+s.PageSize < end {
		end = start + s.PageSize
	}

	resp := map[string]any{
		"type":     "FeatureCollection",
		"features": s.Features[start:end],
	}
	if end < len(s.Features) {
		resp["nextPageToken"] = strconv.Itoa(end)
	}
	writeJSON(w, resp)
}

func badExpression(message string) *Failure {
	return &Failure{StatusCode: http.StatusBadRequest, Status: "INVALID_ARGUMENT", Message: message}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, f *Failure) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.StatusCode)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    f.StatusCode,
			"message": f.Message,
			"status":  f.Status,
		},
	})
}

func testFeature(west, south, east, north float64) *geojson.Feature {
	geom, _ := geojson.NewPolygonFromBBox([]float64{west, south, east, north})
	return &geojson.Feature{
		Type:       "Feature",
		Geometry:   geom,
		Properties: map[string]any{"count": 42, "label": 1},
	}
}
