package world

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleConfig = `
[world]
seed = 77
chunk_size = 8
region_size = 2
cache_capacity = 16
layers = ["lands_and_seas", "zoom", "islands"]

[layer.lands_and_seas]
land_ratio = 6

[layer.zoom]
subdivision_factor = 2
use_multi_pass = true
preserve_islands = false

[[layer.zoom.passes]]
iterations = 4
expansion_threshold = 2
erosion_probability = 0.2

[[layer.zoom.passes]]
iterations = 1
expansion_threshold = 5
erosion_probability = 0.4

[layer.islands]
conversion_probability = 0.5
`

func writeSampleConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "world.toml")
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write sample config: %v", err)
	}
	return path
}

func TestReadConfig(t *testing.T) {
	conf, err := ReadConfig(writeSampleConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if conf.World.Seed != 77 || conf.World.ChunkSize != 8 || conf.World.RegionSize != 2 {
		t.Fatalf("world section decoded as %+v", conf.World)
	}
	if len(conf.World.Layers) != 3 || conf.World.Layers[1] != LayerZoom {
		t.Fatalf("layer order decoded as %v", conf.World.Layers)
	}

	w, err := conf.Config(nil).New()
	if err != nil {
		t.Fatalf("build world from config: %v", err)
	}
	info := w.PipelineInfo()
	if len(info.Layers) != 3 {
		t.Fatalf("pipeline has %d layers, want 3", len(info.Layers))
	}
	zoom := info.Layers[1]
	if zoom.Name != LayerZoom {
		t.Fatalf("second layer is %q, want %q", zoom.Name, LayerZoom)
	}
	passes, ok := zoom.Config["passes"].([]map[string]any)
	if !ok {
		t.Fatalf("zoom summary passes has type %T", zoom.Config["passes"])
	}
	if len(passes) != 2 {
		t.Fatalf("zoom layer has %d passes, want 2", len(passes))
	}
	if passes[0]["iterations"] != 4 || passes[1]["expansion_threshold"] != 5 {
		t.Fatalf("pass records decoded as %v", passes)
	}
	if passes[1]["erosion_probability"] != 0.4 {
		t.Fatalf("pass erosion decoded as %v", passes[1]["erosion_probability"])
	}
	if zoom.Config["preserve_islands"] != false {
		t.Fatal("preserve_islands override lost in decoding")
	}
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.toml")
	conf := DefaultConfig()
	conf.World.Seed = 1234
	conf.Layer[LayerLandsAndSeas] = map[string]any{"land_ratio": int64(7)}

	if err := WriteConfig(path, conf); err != nil {
		t.Fatalf("write config: %v", err)
	}
	got, err := ReadConfig(path)
	if err != nil {
		t.Fatalf("read config back: %v", err)
	}
	if got.World.Seed != 1234 || got.World.ChunkSize != 16 {
		t.Fatalf("world section round-tripped as %+v", got.World)
	}
	if len(got.World.Layers) != 2 {
		t.Fatalf("layer list round-tripped as %v", got.World.Layers)
	}
	if got.Layer[LayerLandsAndSeas]["land_ratio"] != int64(7) {
		t.Fatalf("layer table round-tripped as %v", got.Layer[LayerLandsAndSeas])
	}
}

func TestDefaultConfigBuildsWorld(t *testing.T) {
	w, err := DefaultConfig().Config(nil).New()
	if err != nil {
		t.Fatalf("default config does not build: %v", err)
	}
	if w.SubdivisionScale() != 2 {
		t.Fatalf("default pipeline scale %d, want 2", w.SubdivisionScale())
	}
	if w.FinalChunkSize() != 8 {
		t.Fatalf("default final chunk size %d, want 8", w.FinalChunkSize())
	}
}

func TestReadConfigErrors(t *testing.T) {
	if _, err := ReadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := ReadConfig(writeSampleConfig(t, "[world\nseed=")); err == nil {
		t.Fatal("expected error for malformed TOML")
	}
}
