package bundler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/bundleplan/internal/buildconfig"
	"github.com/wolfeidau/bundleplan/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// MetafileName is written next to the bundle unless disabled.
const MetafileName = "meta.json"

// Bundler hands a resolved build plan to esbuild and reports what it emitted.
type Bundler struct {
	config      *buildconfig.BuildConfig
	registry    *Registry
	metrics     *telemetry.Metrics
	precompress []string
	metafile    bool
	metadata    *BuildMetadata
	mu          sync.Mutex
}

type Option func(*Bundler)

// WithRegistry replaces the built-in transformer registry.
func WithRegistry(r *Registry) Option {
	return func(b *Bundler) { b.registry = r }
}

// WithPrecompress writes a compressed copy of every emitted file except
// source maps, one per algorithm (gzip, zstd).
func WithPrecompress(algorithms ...string) Option {
	return func(b *Bundler) { b.precompress = algorithms }
}

// WithMetafile controls whether meta.json is written to the output directory.
func WithMetafile(enabled bool) Option {
	return func(b *Bundler) { b.metafile = enabled }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(b *Bundler) { b.metrics = m }
}

// New creates a bundler for the given plan
func New(cfg *buildconfig.BuildConfig, opts ...Option) *Bundler {
	b := &Bundler{
		config:   cfg,
		registry: NewRegistry(),
		metrics:  telemetry.GetMetrics(),
		metafile: true,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Metadata returns the metafile of the last successful build.
func (b *Bundler) Metadata() *BuildMetadata {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.metadata
}

// Build runs esbuild once over the plan. Configuration problems such as an
// unregistered transformer are reported before the engine starts.
func (b *Bundler) Build(ctx context.Context) (*Report, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buildID := uuid.NewString()
	logger := zerolog.Ctx(ctx).With().Str("build_id", buildID).Logger()
	ctx = logger.WithContext(ctx)

	ctx, span := telemetry.Tracer().Start(ctx, "bundle.build")
	defer span.End()
	span.SetAttributes(
		attribute.String("bundle.build_id", buildID),
		attribute.String("bundle.entry", b.config.EntryPath),
		attribute.String("bundle.output", b.config.OutputPath()),
	)

	b.metrics.BuildsTotal.Add(ctx, 1)
	started := time.Now()

	logger.Info().
		Str("entry", b.config.EntryPath).
		Str("output", b.config.OutputPath()).
		Str("source_map", string(b.config.SourceMapMode)).
		Msg("Building bundle")

	var transformed atomic.Int64
	plugins := []api.Plugin{b.transformPlugin(ctx, &transformed)}
	if shims, ok := b.shimPlugin(ctx); ok {
		plugins = append([]api.Plugin{shims}, plugins...)
	}

	result := api.Build(b.buildOptions(plugins))

	duration := time.Since(started)
	b.metrics.BuildDuration.Record(ctx, float64(duration.Milliseconds()))

	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			ev := logger.Error().Str("error", msg.Text)
			if msg.Location != nil {
				ev = ev.Str("file", msg.Location.File).Int("line", msg.Location.Line)
			}
			ev.Msg("Build error")
		}
		b.metrics.BuildErrorsTotal.Add(ctx, 1)

		formatted := api.FormatMessages(result.Errors, api.FormatMessagesOptions{Kind: api.ErrorMessage})
		err := fmt.Errorf("%w: %d error(s)\n%s", ErrBuildFailed, len(result.Errors), strings.Join(formatted, ""))
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")
		return nil, err
	}

	report := &Report{
		BuildID:     buildID,
		Entry:       b.config.EntryPath,
		Duration:    duration,
		Transformed: transformed.Load(),
	}
	for _, msg := range result.Warnings {
		logger.Warn().Str("warning", msg.Text).Msg("Build warning")
		report.Warnings = append(report.Warnings, msg.Text)
	}

	for _, file := range result.OutputFiles {
		out := OutputReport{
			Path:     file.Path,
			Bytes:    len(file.Contents),
			Checksum: Checksum(file.Contents),
		}
		b.metrics.OutputBytesTotal.Add(ctx, int64(len(file.Contents)))

		if !strings.HasSuffix(file.Path, ".map") {
			for _, alg := range b.precompress {
				compressed, err := precompress(file.Path, alg)
				if err != nil {
					return nil, err
				}
				out.Compressed = append(out.Compressed, compressed)
				b.metrics.CompressedOutputs.Add(ctx, 1, metric.WithAttributes(attribute.String("algorithm", alg)))
			}
		}

		logger.Info().Str("file", file.Path).Int("bytes", out.Bytes).Str("checksum", out.Checksum).Msg("Built file")
		report.Outputs = append(report.Outputs, out)
	}

	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}
	b.metadata = &metadata
	report.Modules = metadata.Modules()
	report.ExternalImports = metadata.ExternalImports()

	if b.metafile {
		report.Metafile = filepath.Join(b.config.OutputDir, MetafileName)
		// #nosec G306 - metafile sits beside the public bundle
		if err := os.WriteFile(report.Metafile, []byte(result.Metafile), 0644); err != nil {
			return nil, fmt.Errorf("failed to write metafile: %w", err)
		}
	}

	span.SetAttributes(attribute.Int64("bundle.transformed", report.Transformed))
	logger.Info().
		Dur("duration", duration).
		Int("modules", len(report.Modules)).
		Int64("transformed", report.Transformed).
		Msg("Bundle built")

	return report, nil
}

func (b *Bundler) validate() error {
	for i, rule := range b.config.TransformRules {
		if _, ok := b.registry.Get(rule.Transformer); !ok {
			return fmt.Errorf("%w: transformRules[%d] names %q", ErrUnknownTransformer, i, rule.Transformer)
		}
	}
	for _, alg := range b.precompress {
		if _, ok := compressExt[alg]; !ok {
			return fmt.Errorf("%w: %q (expected gzip or zstd)", ErrUnknownCompression, alg)
		}
	}
	return nil
}

func (b *Bundler) buildOptions(plugins []api.Plugin) api.BuildOptions {
	web := b.config.Target == buildconfig.TargetWeb

	return api.BuildOptions{
		EntryPoints:       []string{b.config.EntryPath},
		Outfile:           b.config.OutputPath(),
		AbsWorkingDir:     b.config.Context,
		Bundle:            true,
		Write:             true,
		Metafile:          true,
		LogLevel:          api.LogLevelSilent,
		Platform:          cond(web, api.PlatformBrowser, api.PlatformNode),
		Format:            cond(web, api.FormatIIFE, api.FormatCommonJS),
		Sourcemap:         sourceMap(b.config.SourceMapMode),
		ResolveExtensions: b.config.ResolveExtensions,
		Plugins:           plugins,
	}
}

func sourceMap(mode buildconfig.SourceMapMode) api.SourceMap {
	switch mode {
	case buildconfig.SourceMapExternal:
		return api.SourceMapLinked
	case buildconfig.SourceMapHidden:
		return api.SourceMapExternal
	case buildconfig.SourceMapInline:
		return api.SourceMapInline
	default:
		return api.SourceMapNone
	}
}
