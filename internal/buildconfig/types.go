package buildconfig

import (
	"path/filepath"
	"strings"
)

// SourceMapMode controls whether and how the engine emits a source map.
type SourceMapMode string

const (
	SourceMapNone SourceMapMode = "none"
	// SourceMapExternal writes a separate .map file linked from the bundle
	SourceMapExternal SourceMapMode = "source-map"
	// SourceMapHidden writes a separate .map file without the linking comment
	SourceMapHidden SourceMapMode = "hidden-source-map"
	SourceMapInline SourceMapMode = "inline-source-map"
)

// ParseSourceMapMode maps a devtool style value onto a SourceMapMode. The
// eval variants are accepted and treated as inline.
func ParseSourceMapMode(s string) (SourceMapMode, bool) {
	switch strings.TrimSpace(s) {
	case "", "none", "false":
		return SourceMapNone, true
	case "source-map":
		return SourceMapExternal, true
	case "hidden-source-map", "nosources-source-map":
		return SourceMapHidden, true
	case "inline-source-map", "eval-source-map", "eval", "inline-cheap-source-map", "cheap-module-source-map":
		return SourceMapInline, true
	}
	return "", false
}

// ShimPolicy is the substitution applied to a runtime built-in when
// bundling for an environment that lacks it.
type ShimPolicy string

const (
	// ShimDisabled replaces the built-in with an empty module
	ShimDisabled ShimPolicy = "disabled"
	// ShimMock replaces the built-in with a module whose members throw when called
	ShimMock ShimPolicy = "mock"
	// ShimPassthrough leaves the import external
	ShimPassthrough ShimPolicy = "passthrough"
)

// ParseShimPolicy accepts both the current policy names and the legacy
// node.<name> values ("empty", "false", "true").
func ParseShimPolicy(s string) (ShimPolicy, bool) {
	switch strings.TrimSpace(s) {
	case "disabled", "empty", "false":
		return ShimDisabled, true
	case "mock":
		return ShimMock, true
	case "passthrough", "true":
		return ShimPassthrough, true
	}
	return "", false
}

// Target is the execution environment the bundle is built for.
type Target string

const (
	TargetWeb  Target = "web"
	TargetNode Target = "node"
)

// TransformerOptions are passed through to the named transformer.
type TransformerOptions struct {
	Presets []string `json:"presets,omitempty" yaml:"presets,omitempty"`
}

// TransformRule applies Transformer to every file matching Match and not
// matching Exclude.
type TransformRule struct {
	Match       Pattern            `json:"match" yaml:"match"`
	Exclude     *Pattern           `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	Transformer string             `json:"transformer" yaml:"transformer"`
	Options     TransformerOptions `json:"options,omitempty" yaml:"options,omitempty"`
	// Fallback marks the rule as deliberately yielding to earlier rules
	// whose patterns overlap its own.
	Fallback bool `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// Applies reports whether the rule claims the slash separated path.
func (r *TransformRule) Applies(path string) bool {
	if !r.Match.Match(path) {
		return false
	}
	return r.Exclude == nil || !r.Exclude.Match(path)
}

// BuildConfig is a fully resolved build plan. Every path is absolute and
// independent of the working directory the build was started from.
type BuildConfig struct {
	Context           string                `json:"context" yaml:"context"`
	EntryPath         string                `json:"entryPath" yaml:"entryPath"`
	OutputDir         string                `json:"outputDir" yaml:"outputDir"`
	OutputFilename    string                `json:"outputFilename" yaml:"outputFilename"`
	SourceMapMode     SourceMapMode         `json:"sourceMapMode" yaml:"sourceMapMode"`
	Target            Target                `json:"target" yaml:"target"`
	TransformRules    []TransformRule       `json:"transformRules" yaml:"transformRules"`
	ResolveExtensions []string              `json:"resolveExtensions" yaml:"resolveExtensions"`
	NodeShims         map[string]ShimPolicy `json:"nodeShims,omitempty" yaml:"nodeShims,omitempty"`
}

// OutputPath is the absolute path of the emitted bundle.
func (c *BuildConfig) OutputPath() string {
	return filepath.Join(c.OutputDir, c.OutputFilename)
}

// RuleFor returns the first rule that claims path. Relative paths are
// taken relative to the build context.
func (c *BuildConfig) RuleFor(path string) (*TransformRule, bool) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.Context, path)
	}
	path = filepath.ToSlash(path)

	for i := range c.TransformRules {
		if c.TransformRules[i].Applies(path) {
			return &c.TransformRules[i], true
		}
	}
	return nil, false
}

// Raw converts the plan back into raw form. Resolving the result against
// any base directory yields the same plan.
func (c *BuildConfig) Raw() RawConfig {
	raw := RawConfig{
		Context:           c.Context,
		EntryPath:         c.EntryPath,
		OutputDir:         c.OutputDir,
		OutputFilename:    c.OutputFilename,
		SourceMapMode:     string(c.SourceMapMode),
		Target:            string(c.Target),
		ResolveExtensions: append([]string{}, c.ResolveExtensions...),
	}

	for _, rule := range c.TransformRules {
		rr := RawTransformRule{
			Match:       rule.Match.Raw(),
			Transformer: rule.Transformer,
			Options:     TransformerOptions{Presets: append([]string(nil), rule.Options.Presets...)},
			Fallback:    rule.Fallback,
		}
		if rule.Exclude != nil {
			ex := rule.Exclude.Raw()
			rr.Exclude = &ex
		}
		raw.TransformRules = append(raw.TransformRules, rr)
	}

	if len(c.NodeShims) > 0 {
		raw.NodeShims = make(map[string]string, len(c.NodeShims))
		for name, policy := range c.NodeShims {
			raw.NodeShims[name] = string(policy)
		}
	}

	return raw
}

// RawConfig is the declarative input to Resolve. Paths may be relative to
// the base directory, and every field except EntryPath is optional.
type RawConfig struct {
	Context           string             `json:"context,omitempty" yaml:"context,omitempty"`
	EntryPath         string             `json:"entryPath,omitempty" yaml:"entryPath,omitempty"`
	OutputDir         string             `json:"outputDir,omitempty" yaml:"outputDir,omitempty"`
	OutputFilename    string             `json:"outputFilename,omitempty" yaml:"outputFilename,omitempty"`
	SourceMapMode     string             `json:"sourceMapMode,omitempty" yaml:"sourceMapMode,omitempty"`
	Target            string             `json:"target,omitempty" yaml:"target,omitempty"`
	TransformRules    []RawTransformRule `json:"transformRules,omitempty" yaml:"transformRules,omitempty"`
	ResolveExtensions []string           `json:"resolveExtensions,omitempty" yaml:"resolveExtensions,omitempty"`
	NodeShims         map[string]string  `json:"nodeShims,omitempty" yaml:"nodeShims,omitempty"`
}

type RawTransformRule struct {
	Match       RawPattern         `json:"match" yaml:"match"`
	Exclude     *RawPattern        `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	Transformer string             `json:"transformer" yaml:"transformer"`
	Options     TransformerOptions `json:"options,omitempty" yaml:"options,omitempty"`
	Fallback    bool               `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// RawPattern sets exactly one of its fields. Patterns are matched against
// absolute slash separated paths. A relative glob such as "src/**/*.js" is
// anchored to the context directory by Resolve; globs that are absolute or
// start with ** match as written.
type RawPattern struct {
	Extensions []string `json:"extensions,omitempty" yaml:"extensions,omitempty"`
	Regexp     string   `json:"regexp,omitempty" yaml:"regexp,omitempty"`
	Glob       string   `json:"glob,omitempty" yaml:"glob,omitempty"`
}
