package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfeidau/bundleplan/internal/bundler"
	"github.com/wolfeidau/bundleplan/internal/logger"
	"github.com/wolfeidau/bundleplan/internal/telemetry"
)

// BuildCmd resolves the configuration and bundles it.
type BuildCmd struct {
	Config      string   `help:"Configuration file (.yaml, .yml, .json, .js or .cjs)" env:"BUNDLEPLAN_CONFIG" type:"path"`
	Precompress []string `help:"Write compressed copies of emitted files (gzip, zstd)" env:"BUNDLEPLAN_PRECOMPRESS" sep:","`
	NoMetafile  bool     `help:"Skip writing meta.json next to the bundle" default:"false"`
	Telemetry   bool     `help:"Export traces and metrics over OTLP" default:"false" env:"BUNDLEPLAN_TELEMETRY"`
}

func (c *BuildCmd) Validate() error {
	for _, alg := range c.Precompress {
		if alg != bundler.CompressGzip && alg != bundler.CompressZstd {
			return fmt.Errorf("unknown precompression %q (expected gzip or zstd)", alg)
		}
	}
	return nil
}

func (c *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx = log.WithContext(ctx)

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting build")

	if c.Telemetry {
		log.Info().Msg("Telemetry is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, "bundleplan", globals.Version)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	return logger.Timed(ctx, "build", func(ctx context.Context) error {
		cfg, err := loadPlan(ctx, c.Config)
		if err != nil {
			return err
		}

		report, err := bundler.New(cfg,
			bundler.WithPrecompress(c.Precompress...),
			bundler.WithMetafile(!c.NoMetafile),
		).Build(ctx)
		if err != nil {
			return err
		}

		out := globals.out()
		fmt.Fprintf(out, "Build %s finished in %s\n", report.BuildID, report.Duration.Round(time.Millisecond))
		fmt.Fprintf(out, "Entry: %s\n", report.Entry)
		fmt.Fprintf(out, "Modules: %d (%d transformed)\n", len(report.Modules), report.Transformed)
		for _, o := range report.Outputs {
			fmt.Fprintf(out, "  %s  %d bytes  %s\n", o.Path, o.Bytes, o.Checksum)
			for _, p := range o.Compressed {
				fmt.Fprintf(out, "    %s\n", p)
			}
		}
		if report.Metafile != "" {
			fmt.Fprintf(out, "Metafile: %s\n", report.Metafile)
		}
		for _, w := range report.Warnings {
			fmt.Fprintf(out, "Warning: %s\n", w)
		}

		return nil
	})
}
