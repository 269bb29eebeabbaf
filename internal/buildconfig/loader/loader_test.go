package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/bundleplan/internal/buildconfig"
)

const webpackConfig = `'use strict';

const path = require('path');

module.exports = {
  entry: './src/index.js',
  output: {
    path: path.resolve(__dirname, 'public', 'js'),
    filename: 'bundle.js',
  },
  context: __dirname,
  devtool: 'source-map',
  module: {
    rules: [
      {
        test: /\.jsx?$/,
        exclude: /(node_modules|bower_components)/,
        use: {
          loader: 'babel-loader',
          options: {
            presets: [
              '@babel/preset-env',
              '@babel/preset-react'
            ]
          }
        }
      }
    ]
  },
  resolve: {
    extensions: ['.js', '.jsx']
  },
  node: {
    fs: 'empty'
  }
};
`

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(contents), 0600))
	return p
}

func TestLoad_WebpackConfigMatchesDefault(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "webpack.config.js", webpackConfig)

	raw, baseDir, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, dir, baseDir)

	assert.Equal(t, "./src/index.js", raw.EntryPath)
	assert.Equal(t, filepath.Join(dir, "public", "js"), raw.OutputDir)
	assert.Equal(t, dir, raw.Context)
	assert.Equal(t, []string{".js", ".jsx"}, raw.ResolveExtensions)
	assert.Equal(t, map[string]string{"fs": "empty"}, raw.NodeShims)
	require.Len(t, raw.TransformRules, 1)
	assert.Equal(t, buildconfig.RawPattern{Regexp: `\.jsx?$`}, raw.TransformRules[0].Match)

	fromJS, err := buildconfig.Resolve(baseDir, raw)
	require.NoError(t, err)

	fromDefault, err := buildconfig.Resolve(dir, buildconfig.Default())
	require.NoError(t, err)

	assert.Equal(t, fromDefault.Raw(), fromJS.Raw())
}

func TestLoad_RelativeToConfigFile(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "web")
	require.NoError(t, os.MkdirAll(nested, 0700))
	p := writeFile(t, nested, "bundle.yaml", "entryPath: ./src/main.js\noutputDir: out\n")

	raw, baseDir, err := Load(p)
	require.NoError(t, err)

	cfg, err := buildconfig.Resolve(baseDir, raw)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(nested, "out"), cfg.OutputDir)
	assert.Equal(t, filepath.Join(nested, "src", "main.js"), cfg.EntryPath)
}

func TestLoad_YAMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "bundleplan.yaml")

	require.NoError(t, Write(p, buildconfig.Default()))

	raw, _, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, buildconfig.Default(), raw)
}

func TestLoad_JSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "bundleplan.json")

	require.NoError(t, Write(p, buildconfig.Default()))

	raw, _, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, buildconfig.Default(), raw)
}

func TestLoad_EmptyExtensionListSurvivesDecoding(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "bundle.yaml", "entryPath: a.js\nresolveExtensions: []\n")

	raw, baseDir, err := Load(p)
	require.NoError(t, err)

	_, err = buildconfig.Resolve(baseDir, raw)
	require.ErrorIs(t, err, buildconfig.ErrInvalidExtensionList)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		contents string
		err      error
		contains string
	}{
		{
			name:     "unknown extension",
			file:     "bundle.toml",
			contents: "entry = 'a.js'",
			err:      ErrUnsupportedFormat,
		},
		{
			name:     "unknown yaml field",
			file:     "bundle.yaml",
			contents: "entryPath: a.js\nplugins: []\n",
			contains: "plugins",
		},
		{
			name:     "unknown json field",
			file:     "bundle.json",
			contents: `{"entryPath": "a.js", "devServer": {}}`,
			contains: "devServer",
		},
		{
			name:     "js syntax error",
			file:     "webpack.config.js",
			contents: "module.exports = {",
			contains: "failed to evaluate",
		},
		{
			name:     "multiple entries",
			file:     "webpack.config.js",
			contents: "module.exports = { entry: { a: './a.js', b: './b.js' } };",
			err:      ErrUnsupportedOption,
		},
		{
			name:     "chained loaders",
			file:     "webpack.config.js",
			contents: "module.exports = { entry: './a.js', module: { rules: [{ test: /\\.css$/, use: ['style-loader', 'css-loader'] }] } };",
			err:      ErrUnsupportedOption,
			contains: "chains 2 loaders",
		},
		{
			name:     "multi compiler export",
			file:     "webpack.config.js",
			contents: "module.exports = [{ entry: './a.js' }];",
			err:      ErrUnsupportedOption,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeFile(t, t.TempDir(), tt.file, tt.contents)

			_, _, err := Load(p)
			require.Error(t, err)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
			}
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestLoad_WebpackVariants(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		check    func(t *testing.T, dir string, raw buildconfig.RawConfig)
	}{
		{
			name: "function export",
			contents: `module.exports = (env, argv) => ({
  entry: ['./src/app.js'],
  devtool: argv.mode === 'production' ? false : 'eval-source-map',
});`,
			check: func(t *testing.T, dir string, raw buildconfig.RawConfig) {
				assert.Equal(t, "./src/app.js", raw.EntryPath)
				assert.Equal(t, "none", raw.SourceMapMode)
			},
		},
		{
			name: "single named entry and loader shorthand",
			contents: `module.exports = {
  entry: { main: './src/main.ts' },
  module: { loaders: [{ test: ['.ts', '.tsx'], loader: 'esbuild', query: { presets: [['@babel/preset-typescript', { isTSX: true }]] } }] },
};`,
			check: func(t *testing.T, dir string, raw buildconfig.RawConfig) {
				assert.Equal(t, "./src/main.ts", raw.EntryPath)
				require.Len(t, raw.TransformRules, 1)
				rule := raw.TransformRules[0]
				assert.Equal(t, []string{".ts", ".tsx"}, rule.Match.Extensions)
				assert.Equal(t, "esbuild", rule.Transformer)
				assert.Equal(t, []string{"@babel/preset-typescript"}, rule.Options.Presets)
			},
		},
		{
			name: "modern fallback and case insensitive test",
			contents: `module.exports = {
  entry: './index.js',
  target: 'web',
  module: { rules: [{ test: /\.JSX?$/i, exclude: 'vendor', use: 'babel-loader' }] },
  resolve: { extensions: ['*', '.js'], fallback: { fs: false, path: false } },
  node: { __dirname: true },
};`,
			check: func(t *testing.T, dir string, raw buildconfig.RawConfig) {
				require.Len(t, raw.TransformRules, 1)
				rule := raw.TransformRules[0]
				assert.Equal(t, `(?i)\.JSX?$`, rule.Match.Regexp)
				require.NotNil(t, rule.Exclude)
				assert.Equal(t, "**/vendor/**", rule.Exclude.Glob)
				assert.Equal(t, []string{".js"}, raw.ResolveExtensions)
				assert.Equal(t, map[string]string{"fs": "disabled", "path": "disabled"}, raw.NodeShims)
			},
		},
		{
			name: "path helpers",
			contents: `const path = require('path');
module.exports = {
  entry: path.join('src', 'index.js'),
  output: { path: path.resolve('build'), filename: path.basename('/x/app.js') },
};`,
			check: func(t *testing.T, dir string, raw buildconfig.RawConfig) {
				assert.Equal(t, filepath.Join("src", "index.js"), raw.EntryPath)
				assert.Equal(t, filepath.Join(dir, "build"), raw.OutputDir)
				assert.Equal(t, "app.js", raw.OutputFilename)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			p := writeFile(t, dir, "webpack.config.js", tt.contents)

			raw, _, err := Load(p)
			require.NoError(t, err)
			tt.check(t, dir, raw)
		})
	}
}
