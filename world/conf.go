package world

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml"
)

// UserConfig is the TOML representation of a world configuration. Layer
// tables are kept as flat mappings and handed to the layers unchanged, so new
// layer parameters need no changes here.
type UserConfig struct {
	World struct {
		// Seed is the world seed.
		Seed int64 `toml:"seed"`
		// ChunkSize is the tile size of base chunks.
		ChunkSize int `toml:"chunk_size"`
		// RegionSize is the cache granularity in chunks.
		RegionSize int `toml:"region_size"`
		// CacheCapacity is the maximum number of cached regions.
		CacheCapacity int `toml:"cache_capacity"`
		// CacheUnbounded disables cache eviction.
		CacheUnbounded bool `toml:"cache_unbounded"`
		// Layers is the ordered list of pipeline layer names. Each name must
		// have a [layer.<name>] table or use defaults throughout.
		Layers []string `toml:"layers"`
	} `toml:"world"`
	Layer map[string]map[string]any `toml:"layer"`
}

// DefaultConfig returns a configuration with the default two-stage pipeline:
// classification followed by one zoom refinement.
func DefaultConfig() UserConfig {
	conf := UserConfig{}
	conf.World.Seed = 1
	conf.World.ChunkSize = 16
	conf.World.RegionSize = 4
	conf.World.CacheCapacity = 64
	conf.World.Layers = []string{LayerLandsAndSeas, LayerZoom}
	conf.Layer = map[string]map[string]any{}
	return conf
}

// ReadConfig reads and decodes a TOML world configuration from the file at
// the provided path.
func ReadConfig(path string) (UserConfig, error) {
	conf := UserConfig{}
	data, err := os.ReadFile(path)
	if err != nil {
		return conf, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &conf); err != nil {
		return conf, fmt.Errorf("decode config: %w", err)
	}
	return conf, nil
}

// WriteConfig encodes the configuration and writes it to the file at the
// provided path.
func WriteConfig(path string, conf UserConfig) error {
	data, err := toml.Marshal(conf)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Config converts the user configuration to a world Config, resolving the
// ordered layer specs. Layer construction itself (and thus parameter
// validation) happens in Config.New.
func (uc UserConfig) Config(log *slog.Logger) Config {
	specs := make([]LayerSpec, 0, len(uc.World.Layers))
	for _, name := range uc.World.Layers {
		specs = append(specs, LayerSpec{Name: name, Config: LayerConfig(uc.Layer[name])})
	}
	return Config{
		Log:            log,
		Seed:           uc.World.Seed,
		ChunkSize:      uc.World.ChunkSize,
		RegionSize:     uc.World.RegionSize,
		CacheCapacity:  uc.World.CacheCapacity,
		CacheUnbounded: uc.World.CacheUnbounded,
		Layers:         specs,
	}
}
