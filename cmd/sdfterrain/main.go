package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"sdf-terrain/internal/config"

	"github.com/xlab/closer"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults are used when empty)")
	verbose := flag.Bool("v", false, "debug logging")
	stlPath := flag.String("stl", "", "STL output path")
	radius := flag.Int("radius", 0, "stream radius in chunks")
	workers := flag.Int("workers", 0, "rebuild worker count")
	snapshot := flag.String("snapshot", "", "zstd edit snapshot path")
	store := flag.String("store", "", "SQLite edit store path")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Error("load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
	}

	// Only flags given on the command line override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "stl":
			cfg.Output.STL = *stlPath
		case "radius":
			cfg.Stream.Radius = *radius
			cfg.Stream.EvictRadius = max(cfg.Stream.EvictRadius, *radius)
		case "workers":
			cfg.Workers.Count = *workers
		case "snapshot":
			cfg.Output.Snapshot = *snapshot
		case "store":
			cfg.Output.Store = *store
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	closer.Bind(cancel)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("terrain build failed", "error", err)
		closer.Exit(1)
	}
	closer.Close()
}
