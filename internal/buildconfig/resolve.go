package buildconfig

import (
	"cmp"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// Defaults applied when the raw configuration omits a field. These match
// the defaults of the webpack family of bundlers.
const (
	DefaultOutputDir      = "dist"
	DefaultOutputFilename = "main.js"
)

// DefaultResolveExtensions is used when resolveExtensions is omitted.
var DefaultResolveExtensions = []string{".js", ".json"}

// Resolve validates raw and produces a build plan with every path joined
// against baseDir. baseDir must be absolute; Resolve never consults the
// process working directory or the filesystem.
func Resolve(baseDir string, raw RawConfig) (*BuildConfig, error) {
	entry := strings.TrimSpace(raw.EntryPath)
	if entry == "" {
		return nil, fieldErr(ErrMissingEntry, "entryPath", "a non-empty path to the entry module such as \"./src/index.js\"")
	}

	if !filepath.IsAbs(baseDir) {
		return nil, fieldErr(ErrInvalidField, "baseDir", "an absolute directory path, got %q", baseDir)
	}

	exts := raw.ResolveExtensions
	if exts == nil {
		exts = DefaultResolveExtensions
	}
	exts, err := normalizeExtensions("resolveExtensions", exts, ErrInvalidExtensionList)
	if err != nil {
		return nil, err
	}

	cfg := &BuildConfig{
		Context:           join(filepath.Clean(baseDir), raw.Context),
		ResolveExtensions: exts,
	}
	cfg.EntryPath = join(cfg.Context, entry)
	cfg.OutputDir = join(cfg.Context, cmp.Or(raw.OutputDir, DefaultOutputDir))

	cfg.OutputFilename = cmp.Or(strings.TrimSpace(raw.OutputFilename), DefaultOutputFilename)
	if strings.ContainsAny(cfg.OutputFilename, `/\`) {
		return nil, fieldErr(ErrInvalidField, "outputFilename", "a bare file name without directory separators, got %q", cfg.OutputFilename)
	}

	mode, ok := ParseSourceMapMode(raw.SourceMapMode)
	if !ok {
		return nil, fieldErr(ErrInvalidField, "sourceMapMode", "one of none, source-map, hidden-source-map, inline-source-map, got %q", raw.SourceMapMode)
	}
	cfg.SourceMapMode = mode

	switch Target(cmp.Or(raw.Target, string(TargetWeb))) {
	case TargetWeb:
		cfg.Target = TargetWeb
	case TargetNode:
		cfg.Target = TargetNode
	default:
		return nil, fieldErr(ErrInvalidField, "target", "one of web, node, got %q", raw.Target)
	}

	if cfg.TransformRules, err = compileRules(cfg.Context, raw.TransformRules); err != nil {
		return nil, err
	}
	if err := checkOverlap(cfg); err != nil {
		return nil, err
	}

	if len(raw.NodeShims) > 0 {
		if cfg.NodeShims, err = resolveShims(raw.NodeShims); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// resolveShims strips the node: prefix from each name. Two entries naming
// the same built-in are rejected since either policy could win.
func resolveShims(raws map[string]string) (map[string]ShimPolicy, error) {
	names := slices.Sorted(maps.Keys(raws))

	shims := make(map[string]ShimPolicy, len(raws))
	source := make(map[string]string, len(raws))
	for _, name := range names {
		field := fmt.Sprintf("nodeShims[%q]", name)
		bare := strings.TrimPrefix(strings.TrimSpace(name), "node:")
		if bare == "" {
			return nil, fieldErr(ErrInvalidField, "nodeShims", "non-empty built-in module names")
		}
		if prev, ok := source[bare]; ok {
			return nil, fieldErr(ErrInvalidField, field, "one entry per built-in, %q and %q both name %q", prev, name, bare)
		}
		policy, ok := ParseShimPolicy(raws[name])
		if !ok {
			return nil, fieldErr(ErrInvalidField, field, "one of disabled, mock, passthrough, got %q", raws[name])
		}
		source[bare] = name
		shims[bare] = policy
	}
	return shims, nil
}

func compileRules(root string, raws []RawTransformRule) ([]TransformRule, error) {
	rules := make([]TransformRule, 0, len(raws))
	for i, raw := range raws {
		field := fmt.Sprintf("transformRules[%d]", i)

		if strings.TrimSpace(raw.Transformer) == "" {
			return nil, fieldErr(ErrInvalidField, field+".transformer", "the name of a registered transformer such as \"babel-loader\"")
		}

		match, err := CompilePattern(field+".match", anchorGlob(root, raw.Match))
		if err != nil {
			return nil, err
		}

		rule := TransformRule{
			Match:       match,
			Transformer: raw.Transformer,
			Options:     TransformerOptions{Presets: slices.Clone(raw.Options.Presets)},
			Fallback:    raw.Fallback,
		}

		if raw.Exclude != nil {
			exclude, err := CompilePattern(field+".exclude", anchorGlob(root, *raw.Exclude))
			if err != nil {
				return nil, err
			}
			rule.Exclude = &exclude
		}

		rules = append(rules, rule)
	}
	return rules, nil
}

// checkOverlap rejects a rule that would claim files already claimed by an
// earlier rule unless the later rule is marked as a fallback. Identical
// patterns always overlap and two extension sets overlap when they
// intersect. Any other pair is compared by probing synthetic files in a few
// directories for every extension the resolve list or either rule names.
func checkOverlap(cfg *BuildConfig) error {
	rules := cfg.TransformRules
	for j := 1; j < len(rules); j++ {
		if rules[j].Fallback {
			continue
		}
		for i := 0; i < j; i++ {
			if !overlaps(cfg, &rules[i], &rules[j]) {
				continue
			}
			return fieldErr(ErrAmbiguousTransformRule, fmt.Sprintf("transformRules[%d].match", j),
				"a pattern disjoint from transformRules[%d] (%s) or fallback: true", i, rules[i].Match.String())
		}
	}
	return nil
}

func overlaps(cfg *BuildConfig, a, b *TransformRule) bool {
	if samePattern(&a.Match, &b.Match) {
		return true
	}

	if a.Match.Kind == PatternExtensions && b.Match.Kind == PatternExtensions &&
		a.Exclude == nil && b.Exclude == nil {
		for _, ext := range a.Match.Extensions {
			if slices.Contains(b.Match.Extensions, ext) {
				return true
			}
		}
		return false
	}

	for _, probe := range probePaths(cfg, a, b) {
		if a.Applies(probe) && b.Applies(probe) {
			return true
		}
	}
	return false
}

func samePattern(a, b *Pattern) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == PatternExtensions {
		return slices.Equal(slices.Sorted(slices.Values(a.Extensions)), slices.Sorted(slices.Values(b.Extensions)))
	}
	return a.Expr == b.Expr
}

// probeDirs are relative to the context: the root, the conventional source
// directory, a nested directory inside it and an unrelated nested directory.
var probeDirs = []string{"", "src", "src/__probe__", "__probe__/nested"}

func probePaths(cfg *BuildConfig, rules ...*TransformRule) []string {
	exts := slices.Clone(cfg.ResolveExtensions)
	for _, r := range rules {
		exts = append(exts, r.Match.extensionHints()...)
		if r.Exclude != nil {
			exts = append(exts, r.Exclude.extensionHints()...)
		}
	}
	slices.Sort(exts)
	exts = slices.Compact(exts)

	root := filepath.ToSlash(cfg.Context)
	probes := make([]string, 0, len(exts)*len(probeDirs))
	for _, dir := range probeDirs {
		prefix := strings.TrimSuffix(root, "/") + "/"
		if dir != "" {
			prefix += dir + "/"
		}
		for _, ext := range exts {
			probes = append(probes, prefix+"__probe__"+ext)
		}
	}
	return probes
}

// anchorGlob roots a relative glob at the context directory. Globs that
// are absolute or start with ** are left as written.
func anchorGlob(dir string, raw RawPattern) RawPattern {
	if raw.Glob == "" || strings.HasPrefix(raw.Glob, "/") || strings.HasPrefix(raw.Glob, "**") ||
		filepath.VolumeName(raw.Glob) != "" {
		return raw
	}
	root := strings.TrimSuffix(glob.QuoteMeta(filepath.ToSlash(dir)), "/")
	raw.Glob = root + "/" + strings.TrimPrefix(raw.Glob, "./")
	return raw
}

func join(base, p string) string {
	if p == "" {
		return base
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
