package bundler

import (
	"context"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/bundleplan/internal/buildconfig"
)

func TestESBuildTransformer(t *testing.T) {
	reactEnv := []string{"@babel/preset-env", "@babel/preset-react"}

	tests := []struct {
		name        string
		path        string
		contents    string
		presets     []string
		sourceMap   bool
		contains    []string
		notContains []string
		wantErr     string
	}{
		{
			name:     "jsx with react preset",
			path:     "/app/src/App.jsx",
			contents: `export const App = () => <div>hi</div>;`,
			presets:  reactEnv,
			contains: []string{"React.createElement"},
		},
		{
			name:        "env preset lowers syntax newer than es2015",
			path:        "/app/src/index.js",
			contents:    "export const pick = (a, b) => a ?? b ** 2;",
			presets:     []string{"@babel/preset-env"},
			contains:    []string{"=>"},
			notContains: []string{"??", "**"},
		},
		{
			name:     "no presets keeps modern syntax",
			path:     "/app/src/index.js",
			contents: "export const pick = (a, b) => a ?? b ** 2;",
			contains: []string{"=>", "??", "**"},
		},
		{
			name:      "inline source map",
			path:      "/app/src/index.js",
			contents:  "export const x = 1;",
			sourceMap: true,
			contains:  []string{"sourceMappingURL=data:application/json;base64,"},
		},
		{
			name:     "typescript preset",
			path:     "/app/src/util.ts",
			contents: "export const n: number = 1;",
			presets:  []string{"@babel/preset-typescript"},
			contains: []string{"export const n = 1"},
		},
		{
			name:     "jsx without react preset",
			path:     "/app/src/App.jsx",
			contents: `export const App = () => <div/>;`,
			wantErr:  "@babel/preset-react",
		},
		{
			name:     "typescript without preset",
			path:     "/app/src/util.ts",
			contents: "export const n: number = 1;",
			wantErr:  "@babel/preset-typescript",
		},
		{
			name:     "unknown preset",
			path:     "/app/src/index.js",
			contents: "export {};",
			presets:  []string{"@babel/preset-flow"},
			wantErr:  `unknown preset "@babel/preset-flow"`,
		},
		{
			name:     "syntax error",
			path:     "/app/src/index.js",
			contents: "export const = ;",
			wantErr:  "index.js",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ESBuildTransformer{}.Transform(context.Background(), TransformRequest{
				Path:      tt.path,
				Contents:  tt.contents,
				Options:   buildconfig.TransformerOptions{Presets: tt.presets},
				SourceMap: tt.sourceMap,
			})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, api.LoaderJS, res.Loader)
			for _, s := range tt.contains {
				assert.Contains(t, res.Code, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, res.Code, s)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"esbuild", "babel-loader"} {
		_, ok := r.Get(name)
		assert.True(t, ok, name)
	}

	_, ok := r.Get("ts-loader")
	assert.False(t, ok)

	r.Register("ts-loader", TransformerFunc(func(ctx context.Context, req TransformRequest) (TransformResult, error) {
		return TransformResult{Code: req.Contents}, nil
	}))
	tr, ok := r.Get("ts-loader")
	require.True(t, ok)

	res, err := tr.Transform(context.Background(), TransformRequest{Contents: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", res.Code)
}

func TestTransformer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ESBuildTransformer{}.Transform(ctx, TransformRequest{Path: "a.js", Contents: "1"})
	require.ErrorIs(t, err, context.Canceled)
}
