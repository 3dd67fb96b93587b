package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dm-vev/terragen/world"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a TOML world config; defaults are used if empty")
		seed       = flag.Int64("seed", 0, "world seed override (0 keeps the config value)")
		boundsStr  = flag.String("bounds", "0,0,7,7", "chunk bounds to draw as minx,miny,maxx,maxy")
		verbose    = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	conf := world.DefaultConfig()
	if *configPath != "" {
		var err error
		if conf, err = world.ReadConfig(*configPath); err != nil {
			log.Error("load config", "error", err)
			os.Exit(1)
		}
	}
	if *seed != 0 {
		conf.World.Seed = *seed
	}

	b, err := parseBounds(*boundsStr)
	if err != nil {
		log.Error("parse bounds", "error", err)
		os.Exit(1)
	}

	w, err := conf.Config(log).New()
	if err != nil {
		log.Error("build world", "error", err)
		os.Exit(1)
	}

	view, err := w.Region(b)
	if err != nil {
		log.Error("resolve region", "error", err)
		os.Exit(1)
	}

	draw(b.Scaled(w.SubdivisionScale()), view)

	stats := w.Stats()
	log.Info("generation done",
		"seed", conf.World.Seed,
		"regions", stats.RegionsGenerated,
		"chunks", stats.ChunksProduced,
		"final_chunk_size", w.FinalChunkSize(),
	)
	for _, l := range w.PipelineInfo().Layers {
		log.Debug("layer", "name", l.Name, "config", fmt.Sprint(l.Config))
	}
}

// draw prints the view as an ASCII map, one character per final chunk:
// '#' for land, '~' for water, ' ' for positions the pipeline never produced.
func draw(b world.Bounds, view world.RegionView) {
	var sb strings.Builder
	for y := b.MinY; y <= b.MaxY; y++ {
		for x := b.MinX; x <= b.MaxX; x++ {
			ch, ok := view[world.ChunkPos{X: x, Y: y}]
			switch {
			case !ok:
				sb.WriteByte(' ')
			case ch.Class == world.ClassLand:
				sb.WriteByte('#')
			default:
				sb.WriteByte('~')
			}
		}
		sb.WriteByte('\n')
	}
	fmt.Print(sb.String())
}

func parseBounds(s string) (world.Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return world.Bounds{}, fmt.Errorf("want minx,miny,maxx,maxy, got %q", s)
	}
	vals := make([]int, 4)
	for i, p := range parts {
		if _, err := fmt.Sscanf(strings.TrimSpace(p), "%d", &vals[i]); err != nil {
			return world.Bounds{}, fmt.Errorf("bad coordinate %q: %w", p, err)
		}
	}
	b := world.Bounds{MinX: vals[0], MinY: vals[1], MaxX: vals[2], MaxY: vals[3]}
	if !b.Valid() {
		return world.Bounds{}, fmt.Errorf("empty bounds %v", b)
	}
	return b, nil
}
