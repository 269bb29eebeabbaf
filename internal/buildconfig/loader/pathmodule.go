package loader

import (
	"path/filepath"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
)

// pathModule provides the subset of node's path module that bundler
// configs use. resolve falls back to baseDir instead of the process
// working directory.
func pathModule(baseDir string) require.ModuleLoader {
	return func(vm *goja.Runtime, module *goja.Object) {
		exports := module.Get("exports").(*goja.Object)

		funcs := map[string]any{
			"resolve": func(segments ...string) string {
				resolved := ""
				for i := len(segments) - 1; i >= 0; i-- {
					if segments[i] == "" {
						continue
					}
					resolved = filepath.Join(segments[i], resolved)
					if filepath.IsAbs(resolved) {
						return filepath.Clean(resolved)
					}
				}
				return filepath.Join(baseDir, resolved)
			},
			"join": func(segments ...string) string {
				joined := filepath.Join(segments...)
				if joined == "" {
					return "."
				}
				return joined
			},
			"dirname":    filepath.Dir,
			"extname":    filepath.Ext,
			"isAbsolute": filepath.IsAbs,
			"normalize":  filepath.Clean,
			"basename": func(p string, ext ...string) string {
				base := filepath.Base(p)
				if len(ext) > 0 {
					base = strings.TrimSuffix(base, ext[0])
				}
				return base
			},
			"relative": func(from, to string) string {
				rel, err := filepath.Rel(from, to)
				if err != nil {
					panic(vm.NewGoError(err))
				}
				return rel
			},
			"sep": string(filepath.Separator),
		}

		for name, fn := range funcs {
			_ = exports.Set(name, fn)
		}
	}
}
