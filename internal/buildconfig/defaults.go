package buildconfig

// Default returns the raw configuration of a React application: a single
// babel rule over .js and .jsx sources outside vendored package
// directories, an external source map and the browser fs shim disabled.
func Default() RawConfig {
	return RawConfig{
		EntryPath:      "./src/index.js",
		OutputDir:      "public/js",
		OutputFilename: "bundle.js",
		SourceMapMode:  string(SourceMapExternal),
		TransformRules: []RawTransformRule{
			{
				Match:       RawPattern{Regexp: `\.jsx?$`},
				Exclude:     &RawPattern{Regexp: `(node_modules|bower_components)`},
				Transformer: "babel-loader",
				Options: TransformerOptions{
					Presets: []string{"@babel/preset-env", "@babel/preset-react"},
				},
			},
		},
		ResolveExtensions: []string{".js", ".jsx"},
		NodeShims: map[string]string{
			"fs": string(ShimDisabled),
		},
	}
}
