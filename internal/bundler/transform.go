package bundler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/bundleplan/internal/buildconfig"
)

// TransformRequest is a single source file handed to a Transformer.
type TransformRequest struct {
	Path     string
	Contents string
	Options  buildconfig.TransformerOptions
	// SourceMap asks the transformer to embed an inline source map so the
	// final bundle map points at the original source.
	SourceMap bool
}

// TransformResult is the transformed module. Loader tells the engine how
// to parse Code and defaults to JS.
type TransformResult struct {
	Code   string
	Loader api.Loader
}

// Transformer rewrites one source file before it is bundled.
type Transformer interface {
	Transform(ctx context.Context, req TransformRequest) (TransformResult, error)
}

// TransformerFunc adapts a function to the Transformer interface.
type TransformerFunc func(ctx context.Context, req TransformRequest) (TransformResult, error)

func (f TransformerFunc) Transform(ctx context.Context, req TransformRequest) (TransformResult, error) {
	return f(ctx, req)
}

// Registry maps transformer names used in transform rules to implementations.
type Registry struct {
	mu           sync.RWMutex
	transformers map[string]Transformer
}

// NewRegistry returns a registry holding the built-in transformers:
// "esbuild" and its alias "babel-loader".
func NewRegistry() *Registry {
	r := &Registry{transformers: make(map[string]Transformer)}
	r.Register("esbuild", ESBuildTransformer{})
	r.Register("babel-loader", ESBuildTransformer{})
	return r
}

// Register adds or replaces a transformer.
func (r *Registry) Register(name string, t Transformer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transformers[name] = t
}

// Get returns the named transformer.
func (r *Registry) Get(name string) (Transformer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transformers[name]
	return t, ok
}

// presetOptions is what a preset contributes to an esbuild transform.
type presetOptions struct {
	target     api.Target
	jsx        bool
	typescript bool
}

var presets = map[string]func(*presetOptions){
	"@babel/preset-env":        func(o *presetOptions) { o.target = api.ES2015 },
	"@babel/env":               func(o *presetOptions) { o.target = api.ES2015 },
	"@babel/preset-react":      func(o *presetOptions) { o.jsx = true },
	"@babel/react":             func(o *presetOptions) { o.jsx = true },
	"@babel/preset-typescript": func(o *presetOptions) { o.typescript = true },
	"@babel/typescript":        func(o *presetOptions) { o.typescript = true },
}

// ESBuildTransformer transpiles a single file with esbuild's transform API.
// Babel preset names select the equivalent esbuild options.
type ESBuildTransformer struct{}

func (ESBuildTransformer) Transform(ctx context.Context, req TransformRequest) (TransformResult, error) {
	if err := ctx.Err(); err != nil {
		return TransformResult{}, err
	}

	opts := presetOptions{target: api.ESNext}
	for _, name := range req.Options.Presets {
		apply, ok := presets[name]
		if !ok {
			return TransformResult{}, fmt.Errorf("unknown preset %q for %s", name, req.Path)
		}
		apply(&opts)
	}

	loader, err := sourceLoader(req.Path, opts)
	if err != nil {
		return TransformResult{}, err
	}

	result := api.Transform(req.Contents, api.TransformOptions{
		Loader:     loader,
		Target:     opts.target,
		Sourcefile: req.Path,
		Sourcemap:  cond(req.SourceMap, api.SourceMapInline, api.SourceMapNone),
	})

	if len(result.Errors) > 0 {
		msgs := api.FormatMessages(result.Errors, api.FormatMessagesOptions{Kind: api.ErrorMessage})
		return TransformResult{}, errors.New(strings.Join(msgs, ""))
	}

	return TransformResult{Code: string(result.Code), Loader: api.LoaderJS}, nil
}

func sourceLoader(path string, opts presetOptions) (api.Loader, error) {
	switch ext := filepath.Ext(path); ext {
	case ".ts", ".mts", ".cts":
		if !opts.typescript {
			return api.LoaderNone, fmt.Errorf("%s: TypeScript sources need the @babel/preset-typescript preset", path)
		}
		return api.LoaderTS, nil
	case ".tsx":
		if !opts.typescript {
			return api.LoaderNone, fmt.Errorf("%s: TypeScript sources need the @babel/preset-typescript preset", path)
		}
		return api.LoaderTSX, nil
	case ".jsx":
		if !opts.jsx {
			return api.LoaderNone, fmt.Errorf("%s: JSX sources need the @babel/preset-react preset", path)
		}
		return api.LoaderJSX, nil
	default:
		return cond(opts.jsx, api.LoaderJSX, api.LoaderJS), nil
	}
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
