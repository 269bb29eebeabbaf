package bundler

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/bundleplan/internal/buildconfig"
)

const shimNamespace = "bundleplan-shim"

// transformPlugin routes every file loaded from disk through the first
// transform rule that claims it. Files with no rule, including excluded
// ones, fall through to the engine's default loader.
func (b *Bundler) transformPlugin(ctx context.Context, transformed *atomic.Int64) api.Plugin {
	logger := zerolog.Ctx(ctx)
	sourceMap := b.config.SourceMapMode != buildconfig.SourceMapNone

	return api.Plugin{
		Name: "bundleplan-transform",
		Setup: func(pb api.PluginBuild) {
			pb.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: "file"}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				rule, ok := b.config.RuleFor(args.Path)
				if !ok {
					return api.OnLoadResult{}, nil
				}

				if err := ctx.Err(); err != nil {
					return api.OnLoadResult{}, err
				}

				transformer, ok := b.registry.Get(rule.Transformer)
				if !ok {
					return api.OnLoadResult{}, fmt.Errorf("%w: %q", ErrUnknownTransformer, rule.Transformer)
				}

				src, err := os.ReadFile(args.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}

				res, err := transformer.Transform(ctx, TransformRequest{
					Path:      args.Path,
					Contents:  string(src),
					Options:   rule.Options,
					SourceMap: sourceMap,
				})
				if err != nil {
					return api.OnLoadResult{}, fmt.Errorf("%s: %w", rule.Transformer, err)
				}

				transformed.Add(1)
				b.metrics.TransformsTotal.Add(ctx, 1)
				logger.Debug().Str("path", args.Path).Str("transformer", rule.Transformer).Msg("Transformed module")

				return api.OnLoadResult{
					Contents: &res.Code,
					Loader:   cond(res.Loader == api.LoaderNone, api.LoaderJS, res.Loader),
				}, nil
			})
		},
	}
}

// shimPlugin substitutes runtime built-ins named in the plan's node shims.
// Both the bare and node: prefixed import forms are matched.
func (b *Bundler) shimPlugin(ctx context.Context) (api.Plugin, bool) {
	if b.config.Target != buildconfig.TargetWeb || len(b.config.NodeShims) == 0 {
		return api.Plugin{}, false
	}

	names := make([]string, 0, len(b.config.NodeShims))
	for name := range b.config.NodeShims {
		names = append(names, regexp.QuoteMeta(name))
	}
	slices.Sort(names)
	filter := fmt.Sprintf("^(node:)?(%s)$", strings.Join(names, "|"))

	return api.Plugin{
		Name: "bundleplan-shims",
		Setup: func(pb api.PluginBuild) {
			pb.OnResolve(api.OnResolveOptions{Filter: filter}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				name := strings.TrimPrefix(args.Path, "node:")
				policy := b.config.NodeShims[name]

				b.metrics.ShimSubstitutionsTotal.Add(ctx, 1)
				zerolog.Ctx(ctx).Debug().
					Str("module", args.Path).
					Str("importer", args.Importer).
					Str("policy", string(policy)).
					Msg("Shimmed built-in")

				if policy == buildconfig.ShimPassthrough {
					return api.OnResolveResult{Path: args.Path, External: true}, nil
				}
				return api.OnResolveResult{Path: name, Namespace: shimNamespace, PluginData: policy}, nil
			})

			pb.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: shimNamespace}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				policy, _ := args.PluginData.(buildconfig.ShimPolicy)
				contents := shimSource(args.Path, policy)
				return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
			})
		},
	}, true
}

func shimSource(name string, policy buildconfig.ShimPolicy) string {
	if policy == buildconfig.ShimMock {
		return fmt.Sprintf(`module.exports = new Proxy({}, {
  get: function (_, key) {
    if (key === "__esModule") return false;
    return function () {
      throw new Error(%q + "." + String(key) + " is not available in this environment");
    };
  }
});
`, name)
	}
	return "module.exports = {};\n"
}
