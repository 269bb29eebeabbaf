package buildconfig

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilePattern(t *testing.T) {
	tests := []struct {
		name    string
		raw     RawPattern
		kind    PatternKind
		matches []string
		misses  []string
	}{
		{
			name:    "extensions",
			raw:     RawPattern{Extensions: []string{"js", ".jsx"}},
			kind:    PatternExtensions,
			matches: []string{"/app/src/a.js", "/app/src/b.jsx"},
			misses:  []string{"/app/src/a.mjs", "/app/src/a.ts"},
		},
		{
			name:    "ecmascript regexp",
			raw:     RawPattern{Regexp: `\.jsx?$`},
			kind:    PatternRegexp,
			matches: []string{"/app/src/a.js", "/app/src/b.jsx"},
			misses:  []string{"/app/src/a.json", "/app/src/a.ts"},
		},
		{
			name:    "regexp alternation",
			raw:     RawPattern{Regexp: `(node_modules|bower_components)`},
			kind:    PatternRegexp,
			matches: []string{"/app/node_modules/react/index.js", "/app/bower_components/x.js"},
			misses:  []string{"/app/src/modules/index.js"},
		},
		{
			name:    "regexp lookahead",
			raw:     RawPattern{Regexp: `^(?!.*\.min\.js$).*\.js$`},
			kind:    PatternRegexp,
			matches: []string{"/app/src/a.js"},
			misses:  []string{"/app/vendor/a.min.js"},
		},
		{
			name:    "glob",
			raw:     RawPattern{Glob: "**/src/*.{ts,tsx}"},
			kind:    PatternGlob,
			matches: []string{"/app/src/a.ts", "/app/src/b.tsx"},
			misses:  []string{"/app/src/nested/a.ts", "/app/lib/a.ts"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := CompilePattern("match", tt.raw)
			require.NoError(t, err)
			require.Equal(t, tt.kind, p.Kind)

			for _, path := range tt.matches {
				assert.True(t, p.Match(path), "expected %s to match %s", p.String(), path)
			}
			for _, path := range tt.misses {
				assert.False(t, p.Match(path), "expected %s not to match %s", p.String(), path)
			}
		})
	}
}

func TestCompilePattern_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		raw   RawPattern
		field string
	}{
		{name: "nothing set", raw: RawPattern{}, field: "match"},
		{name: "two variants", raw: RawPattern{Regexp: "a", Glob: "b"}, field: "match"},
		{name: "empty extension list", raw: RawPattern{Extensions: []string{}}, field: "match.extensions"},
		{name: "unbalanced regexp", raw: RawPattern{Regexp: `(\.js`}, field: "match.regexp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompilePattern("match", tt.raw)
			require.ErrorIs(t, err, ErrInvalidPattern)

			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestPattern_RawRoundTrip(t *testing.T) {
	for _, raw := range []RawPattern{
		{Extensions: []string{".js"}},
		{Regexp: `\.css$`},
		{Glob: "**/*.svg"},
	} {
		p, err := CompilePattern("match", raw)
		require.NoError(t, err)
		require.Equal(t, raw, p.Raw())
	}
}

func TestPattern_ExtensionHints(t *testing.T) {
	tests := []struct {
		raw  RawPattern
		want []string
	}{
		{raw: RawPattern{Regexp: `\.css$`}, want: []string{".css"}},
		{raw: RawPattern{Regexp: `\.jsx?$`}, want: []string{".js", ".jsx"}},
		{raw: RawPattern{Regexp: `\.(ts|tsx)$`}, want: []string{".ts", ".tsx"}},
		{raw: RawPattern{Regexp: `\.(?:scss|sass)$`}, want: []string{".scss", ".sass"}},
		{raw: RawPattern{Regexp: `(node_modules|bower_components)`}, want: nil},
		{raw: RawPattern{Glob: "**/*.svg"}, want: []string{".svg"}},
		{raw: RawPattern{Glob: "**/src/*.{ts,tsx}"}, want: []string{".ts", ".tsx"}},
		{raw: RawPattern{Extensions: []string{".md"}}, want: []string{".md"}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%+v", tt.raw), func(t *testing.T) {
			p, err := CompilePattern("match", tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.extensionHints())
		})
	}
}
