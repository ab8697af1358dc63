package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testAnalysis() AnalysisConfig {
	return validConfig().Analysis
}

func TestDefaultLayers(t *testing.T) {
	registry := DefaultLayers(testAnalysis())

	ids := registry.IDs()
	want := []string{"current", "historical", "risk"}
	if len(ids) != len(want) {
		t.Fatalf("IDs() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("IDs()[%d] = %s, want %s", i, ids[i], want[i])
		}
	}

	palettes := map[string]string{"current": "blue", "historical": "cyan", "risk": "red"}
	for id, color := range palettes {
		p := registry.Palette(id)
		if len(p) != 1 || p[0] != color {
			t.Errorf("Palette(%s) = %v, want [%s]", id, p, color)
		}
	}

	for _, layer := range registry.All() {
		if err := validateLayer(layer); err != nil {
			t.Errorf("built-in layer %s is invalid: %v", layer.ID, err)
		}
	}

	if registry.Palette("unknown") != nil {
		t.Error("Palette() should return nil for unknown layers")
	}
}

func TestLoadLayers_Override(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "risk.json", `{
		"id": "risk",
		"title": "Rainfall flood risk",
		"description": "Custom risk layer",
		"datasets": ["NASA/GPM_L3/IMERG_V06"],
		"palette": ["ff0000", "800000"],
		"license": "proprietary",
		"extent": {
			"spatial": {"bbox": [[60, 5, 100, 35]]},
			"temporal": {"interval": [["2000-06-01T00:00:00Z", null]]}
		}
	}`)
	writeFile(t, dir, "README.md", "not a layer")

	base := DefaultLayers(testAnalysis())
	registry, err := LoadLayers(dir, base)
	if err != nil {
		t.Fatalf("LoadLayers() failed: %v", err)
	}

	if registry.Count() != 3 {
		t.Errorf("Count() = %d, want 3", registry.Count())
	}
	if got := registry.Get("risk").Title; got != "Rainfall flood risk" {
		t.Errorf("risk title = %q, want override", got)
	}
	if got := registry.Palette("risk"); len(got) != 2 {
		t.Errorf("risk palette = %v, want 2 colors", got)
	}
	if base.Get("risk").Title == "Rainfall flood risk" {
		t.Error("LoadLayers() must not modify the base registry")
	}
}

func TestLoadLayers_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown layer", `{"id":"tsunami","title":"t","description":"d","datasets":["x"],"palette":["red"]}`, "unknown layer"},
		{"missing palette", `{"id":"risk","title":"t","description":"d","datasets":["x"]}`, "palette"},
		{"invalid JSON", `{"id":`, "parse JSON"},
		{"bad bbox", `{"id":"risk","title":"t","description":"d","datasets":["x"],"palette":["red"],"extent":{"spatial":{"bbox":[[1,2,3]]}}}`, "bbox"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "layer.json", tt.content)

			_, err := LoadLayers(dir, DefaultLayers(testAnalysis()))
			if err == nil {
				t.Fatal("LoadLayers() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadLayers_MissingDirectory(t *testing.T) {
	if _, err := LoadLayers(filepath.Join(t.TempDir(), "missing"), DefaultLayers(testAnalysis())); err == nil {
		t.Error("LoadLayers() should fail for a missing directory")
	}
}

func TestLayerRegistry_AddDuplicate(t *testing.T) {
	registry := NewLayerRegistry()
	layer := &LayerConfig{ID: "current"}

	if err := registry.Add(layer); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if err := registry.Add(layer); err == nil {
		t.Error("Add() should reject duplicate IDs")
	}
	if err := registry.Add(nil); err == nil {
		t.Error("Add() should reject nil layers")
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}
