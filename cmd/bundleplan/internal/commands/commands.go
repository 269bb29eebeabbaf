package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/bundleplan/internal/buildconfig"
	"github.com/wolfeidau/bundleplan/internal/buildconfig/loader"
	"github.com/wolfeidau/bundleplan/internal/telemetry"
)

type Globals struct {
	Debug   bool
	Version string
	Stdout  io.Writer
}

func (g *Globals) out() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

// loadPlan resolves the configuration file at path, or the defaults against
// the working directory when path is empty.
func loadPlan(ctx context.Context, path string) (*buildconfig.BuildConfig, error) {
	var (
		raw     buildconfig.RawConfig
		baseDir string
		err     error
	)

	if path == "" {
		if baseDir, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		raw = buildconfig.Default()
		log.Ctx(ctx).Debug().Str("baseDir", baseDir).Msg("No config given, using defaults")
	} else if raw, baseDir, err = loader.Load(path); err != nil {
		return nil, err
	}

	metrics := telemetry.GetMetrics()
	metrics.ResolveTotal.Add(ctx, 1)

	cfg, err := buildconfig.Resolve(baseDir, raw)
	if err != nil {
		metrics.ResolveErrorsTotal.Add(ctx, 1)
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
