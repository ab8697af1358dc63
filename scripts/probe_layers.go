// Script to run every flood layer for one country against a running
// FloodSync API and print a side-by-side summary.
//
// Usage: go run ./scripts [-url http://localhost:8080] [-country Bangladesh]
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/robert-malhotra/floodsync-api/internal/analysis"
	"github.com/robert-malhotra/floodsync-api/internal/model"
)

type probeResult struct {
	layer    string
	status   string
	features int
	area     float64
	message  string
	elapsed  time.Duration
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "FloodSync API base URL")
	country := flag.String("country", "Bangladesh", "country name as listed by /countries")
	timeout := flag.Duration("timeout", 3*time.Minute, "per-request timeout")
	flag.Parse()

	client := &http.Client{Timeout: *timeout}

	fmt.Printf("=== Flood layer probe: %s ===\n", *country)
	fmt.Printf("API: %s\n\n", *baseURL)

	var results []probeResult
	failed := false
	for _, mode := range analysis.Modes() {
		fmt.Printf("Running %s layer...\n", mode)
		res, err := probe(client, *baseURL, model.FloodMapRequest{CountryName: *country, LayerType: mode.String()})
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s layer failed: %v\n", mode, err)
			failed = true
			continue
		}
		results = append(results, res)
	}

	fmt.Println("\n=== Summary ===")
	fmt.Printf("%-11s %-8s %9s %14s %10s\n", "LAYER", "STATUS", "FEATURES", "AREA (km²)", "ELAPSED")
	for _, r := range results {
		fmt.Printf("%-11s %-8s %9d %14.2f %10s\n", r.layer, r.status, r.features, r.area, r.elapsed.Round(time.Millisecond))
		if r.message != "" {
			fmt.Printf("  note: %s\n", r.message)
		}
	}

	if failed {
		os.Exit(1)
	}
}

func probe(client *http.Client, baseURL string, req model.FloodMapRequest) (probeResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return probeResult{}, err
	}

	start := time.Now()
	resp, err := client.Post(baseURL+"/flood_map", "application/json", bytes.NewReader(body))
	if err != nil {
		return probeResult{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return probeResult{}, err
	}

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Detail string `json:"detail"`
		}
		_ = json.Unmarshal(data, &errResp)
		return probeResult{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, errResp.Detail)
	}

	var result model.FloodMapResult
	if err := json.Unmarshal(data, &result); err != nil {
		return probeResult{}, fmt.Errorf("failed to decode response: %w", err)
	}

	out := probeResult{
		layer:    result.Layer,
		status:   result.Status,
		features: result.GeoJSON.Len(),
		message:  result.Message,
		elapsed:  time.Since(start),
	}
	if result.AreaSqKm != nil {
		out.area = *result.AreaSqKm
	}
	return out, nil
}
