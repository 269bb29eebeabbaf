package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
	"github.com/wolfeidau/bundleplan/internal/buildconfig"
)

const evalTimeout = 5 * time.Second

// node option keys that configure globals rather than built-in modules
var nodeGlobals = []string{"global", "__filename", "__dirname"}

// evalJS runs a CommonJS bundler config and maps the exported object onto
// a RawConfig. A function export is called the way bundler CLIs call it,
// with an empty env and a production mode argv.
func evalJS(filename, baseDir string, src []byte) (buildconfig.RawConfig, error) {
	vm := goja.New()

	registry := require.NewRegistry()
	registry.RegisterNativeModule("path", pathModule(baseDir))
	registry.Enable(vm)

	module := vm.NewObject()
	exports := vm.NewObject()
	if err := module.Set("exports", exports); err != nil {
		return buildconfig.RawConfig{}, err
	}

	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}

	globals := map[string]any{
		"module":     module,
		"exports":    exports,
		"__dirname":  baseDir,
		"__filename": filename,
		"process": map[string]any{
			"env":      env,
			"platform": "linux",
			"cwd":      func() string { return baseDir },
		},
	}
	for name, value := range globals {
		if err := vm.Set(name, value); err != nil {
			return buildconfig.RawConfig{}, err
		}
	}

	timer := time.AfterFunc(evalTimeout, func() {
		vm.Interrupt("configuration evaluation timed out")
	})
	defer timer.Stop()

	if _, err := vm.RunScript(filename, string(src)); err != nil {
		return buildconfig.RawConfig{}, fmt.Errorf("failed to evaluate: %w", err)
	}

	exported := module.Get("exports")
	if fn, ok := goja.AssertFunction(exported); ok {
		var err error
		exported, err = fn(goja.Undefined(), vm.ToValue(map[string]any{}), vm.ToValue(map[string]any{"mode": "production"}))
		if err != nil {
			return buildconfig.RawConfig{}, fmt.Errorf("failed to call exported config function: %w", err)
		}
	}

	return fromWebpack(exported)
}

func fromWebpack(v goja.Value) (buildconfig.RawConfig, error) {
	root := asObject(v)
	if root == nil || root.ClassName() == "Array" {
		return buildconfig.RawConfig{}, fmt.Errorf("%w: module.exports must be a single config object", ErrUnsupportedOption)
	}

	var (
		raw buildconfig.RawConfig
		err error
	)

	if raw.EntryPath, err = entryOf(root.Get("entry")); err != nil {
		return buildconfig.RawConfig{}, err
	}
	raw.Context, _ = asString(root.Get("context"))
	raw.Target, _ = asString(root.Get("target"))

	if out := asObject(root.Get("output")); out != nil {
		raw.OutputDir, _ = asString(out.Get("path"))
		raw.OutputFilename, _ = asString(out.Get("filename"))
	}

	devtool := root.Get("devtool")
	if s, ok := asString(devtool); ok {
		raw.SourceMapMode = s
	} else if b, ok := asBool(devtool); ok && !b {
		raw.SourceMapMode = string(buildconfig.SourceMapNone)
	}

	if mod := asObject(root.Get("module")); mod != nil {
		rules := mod.Get("rules")
		if isUnset(rules) {
			rules = mod.Get("loaders")
		}
		if raw.TransformRules, err = rulesOf(rules); err != nil {
			return buildconfig.RawConfig{}, err
		}
	}

	if res := asObject(root.Get("resolve")); res != nil {
		if items := asArray(res.Get("extensions")); items != nil {
			raw.ResolveExtensions = []string{}
			for i, item := range items {
				ext, ok := asString(item)
				if !ok {
					return buildconfig.RawConfig{}, fmt.Errorf("%w: resolve.extensions[%d] must be a string", ErrUnsupportedOption, i)
				}
				// "" and "*" meant "try the exact path first" in older bundler versions
				if ext == "" || ext == "*" {
					continue
				}
				raw.ResolveExtensions = append(raw.ResolveExtensions, ext)
			}
		}

		if fallback := asObject(res.Get("fallback")); fallback != nil {
			for _, name := range fallback.Keys() {
				if b, ok := asBool(fallback.Get(name)); !ok || b {
					return buildconfig.RawConfig{}, fmt.Errorf("%w: resolve.fallback[%q] only supports false", ErrUnsupportedOption, name)
				}
				raw.NodeShims = setShim(raw.NodeShims, name, string(buildconfig.ShimDisabled))
			}
		}
	}

	if node := asObject(root.Get("node")); node != nil {
		for _, name := range node.Keys() {
			if slices.Contains(nodeGlobals, name) {
				continue
			}
			value := node.Get(name)
			if s, ok := asString(value); ok {
				raw.NodeShims = setShim(raw.NodeShims, name, s)
			} else if b, ok := asBool(value); ok {
				raw.NodeShims = setShim(raw.NodeShims, name, fmt.Sprint(b))
			} else {
				return buildconfig.RawConfig{}, fmt.Errorf("%w: node[%q] must be a string or boolean", ErrUnsupportedOption, name)
			}
		}
	}

	return raw, nil
}

func entryOf(v goja.Value) (string, error) {
	if s, ok := asString(v); ok {
		return s, nil
	}
	if items := asArray(v); items != nil {
		if len(items) != 1 {
			return "", fmt.Errorf("%w: entry must name a single module, got %d", ErrUnsupportedOption, len(items))
		}
		return entryOf(items[0])
	}
	if obj := asObject(v); obj != nil {
		keys := obj.Keys()
		if len(keys) != 1 {
			return "", fmt.Errorf("%w: entry must name a single module, got %d", ErrUnsupportedOption, len(keys))
		}
		return entryOf(obj.Get(keys[0]))
	}
	// a missing entry is reported by the resolver
	return "", nil
}

func rulesOf(v goja.Value) ([]buildconfig.RawTransformRule, error) {
	if isUnset(v) {
		return nil, nil
	}
	items := asArray(v)
	if items == nil {
		return nil, fmt.Errorf("%w: module.rules must be an array", ErrUnsupportedOption)
	}

	rules := make([]buildconfig.RawTransformRule, 0, len(items))
	for i, item := range items {
		obj := asObject(item)
		if obj == nil {
			return nil, fmt.Errorf("%w: module.rules[%d] must be an object", ErrUnsupportedOption, i)
		}
		rule, err := ruleOf(fmt.Sprintf("module.rules[%d]", i), obj)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func ruleOf(field string, obj *goja.Object) (buildconfig.RawTransformRule, error) {
	var rule buildconfig.RawTransformRule

	match, err := patternOf(field+".test", obj.Get("test"))
	if err != nil {
		return rule, err
	}
	if match == nil {
		return rule, fmt.Errorf("%w: %s.test is required", ErrUnsupportedOption, field)
	}
	rule.Match = *match

	if rule.Exclude, err = patternOf(field+".exclude", obj.Get("exclude")); err != nil {
		return rule, err
	}

	loader, options := obj.Get("loader"), obj.Get("options")
	if isUnset(options) {
		options = obj.Get("query")
	}

	if use := obj.Get("use"); !isUnset(use) {
		if items := asArray(use); items != nil {
			if len(items) != 1 {
				return rule, fmt.Errorf("%w: %s.use chains %d loaders, only one is supported", ErrUnsupportedOption, field, len(items))
			}
			use = items[0]
		}
		if u := asObject(use); u != nil {
			loader, options = u.Get("loader"), u.Get("options")
		} else {
			loader = use
		}
	}

	name, ok := asString(loader)
	if !ok {
		return rule, fmt.Errorf("%w: %s needs a loader name", ErrUnsupportedOption, field)
	}
	rule.Transformer = name

	if opts := asObject(options); opts != nil {
		for i, preset := range asArray(opts.Get("presets")) {
			// presets may be given as [name, options]
			if pair := asArray(preset); len(pair) > 0 {
				preset = pair[0]
			}
			s, ok := asString(preset)
			if !ok {
				return rule, fmt.Errorf("%w: %s.options.presets[%d] must be a preset name", ErrUnsupportedOption, field, i)
			}
			rule.Options.Presets = append(rule.Options.Presets, s)
		}
	}

	return rule, nil
}

// patternOf converts a rule condition. RegExp literals keep their JS
// source, extension-like strings and arrays become extension sets and
// any other string is treated as a path prefix.
func patternOf(field string, v goja.Value) (*buildconfig.RawPattern, error) {
	if isUnset(v) {
		return nil, nil
	}

	if obj := asObject(v); obj != nil && obj.ClassName() == "RegExp" {
		src := obj.Get("source").String()
		if flags, _ := asString(obj.Get("flags")); strings.Contains(flags, "i") {
			src = "(?i)" + src
		}
		return &buildconfig.RawPattern{Regexp: src}, nil
	}

	if s, ok := asString(v); ok {
		if isExtension(s) {
			return &buildconfig.RawPattern{Extensions: []string{s}}, nil
		}
		return &buildconfig.RawPattern{Glob: prefixGlob(s)}, nil
	}

	if items := asArray(v); items != nil {
		exts := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := asString(item)
			if !ok || !isExtension(s) {
				return nil, fmt.Errorf("%w: %s arrays may only list file extensions", ErrUnsupportedOption, field)
			}
			exts = append(exts, s)
		}
		return &buildconfig.RawPattern{Extensions: exts}, nil
	}

	return nil, fmt.Errorf("%w: %s must be a RegExp, string or array of extensions", ErrUnsupportedOption, field)
}

func isExtension(s string) bool {
	return strings.HasPrefix(s, ".") && len(s) > 1 && !strings.ContainsAny(s, `/\*?[{`)
}

func prefixGlob(s string) string {
	if strings.ContainsAny(s, "*?[{") {
		return filepath.ToSlash(s)
	}
	s = strings.TrimSuffix(filepath.ToSlash(s), "/")
	if !filepath.IsAbs(s) && !strings.HasPrefix(s, "/") {
		s = "**/" + s
	}
	return s + "/**"
}

func setShim(shims map[string]string, name, policy string) map[string]string {
	if shims == nil {
		shims = make(map[string]string)
	}
	shims[name] = policy
	return shims
}

func isUnset(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}

func asObject(v goja.Value) *goja.Object {
	if isUnset(v) {
		return nil
	}
	obj, _ := v.(*goja.Object)
	return obj
}

func asString(v goja.Value) (string, bool) {
	if isUnset(v) {
		return "", false
	}
	s, ok := v.Export().(string)
	return s, ok
}

func asBool(v goja.Value) (bool, bool) {
	if isUnset(v) {
		return false, false
	}
	b, ok := v.Export().(bool)
	return b, ok
}

func asArray(v goja.Value) []goja.Value {
	obj := asObject(v)
	if obj == nil || obj.ClassName() != "Array" {
		return nil
	}
	n := obj.Get("length").ToInteger()
	items := make([]goja.Value, 0, n)
	for i := int64(0); i < n; i++ {
		items = append(items, obj.Get(fmt.Sprint(i)))
	}
	return items
}
