package buildconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/gobwas/glob"
)

// PatternKind tags the variant held by a Pattern.
type PatternKind string

const (
	PatternExtensions PatternKind = "extensions"
	PatternRegexp     PatternKind = "regexp"
	PatternGlob       PatternKind = "glob"
)

var (
	// a literal extension in a regexp: \.css, \.jsx? or \.(ts|tsx)
	regexpExtHint = regexp2.MustCompile(`\\\.(?:\((?:\?:)?([A-Za-z0-9_|?]+)\)|([A-Za-z0-9_]+\??))`, regexp2.ECMAScript)
	// a literal extension in a glob: *.css or *.{ts,tsx}
	globExtHint = regexp2.MustCompile(`\*\.(?:\{([A-Za-z0-9_,]+)\}|([A-Za-z0-9_]+))`, regexp2.ECMAScript)
)

// regexpTimeout bounds a single match so a pathological expression cannot
// stall the engine's load callbacks.
const regexpTimeout = 100 * time.Millisecond

// Pattern matches slash separated file paths. Regexp patterns use
// ECMAScript syntax so expressions written for JS tooling keep their
// meaning.
type Pattern struct {
	Kind       PatternKind `json:"kind" yaml:"kind"`
	Extensions []string    `json:"extensions,omitempty" yaml:"extensions,omitempty"`
	Expr       string      `json:"expr,omitempty" yaml:"expr,omitempty"`

	re *regexp2.Regexp
	g  glob.Glob
}

// ExtensionPattern returns a pattern matching any of exts.
func ExtensionPattern(exts ...string) Pattern {
	return Pattern{Kind: PatternExtensions, Extensions: exts}
}

// CompilePattern validates raw and returns the compiled pattern. field is
// used to name the offending value in errors.
func CompilePattern(field string, raw RawPattern) (Pattern, error) {
	set := 0
	if raw.Extensions != nil {
		set++
	}
	if raw.Regexp != "" {
		set++
	}
	if raw.Glob != "" {
		set++
	}
	if set != 1 {
		return Pattern{}, fieldErr(ErrInvalidPattern, field, "exactly one of extensions, regexp or glob")
	}

	switch {
	case raw.Extensions != nil:
		exts, err := normalizeExtensions(field+".extensions", raw.Extensions, ErrInvalidPattern)
		if err != nil {
			return Pattern{}, err
		}
		return Pattern{Kind: PatternExtensions, Extensions: exts}, nil

	case raw.Regexp != "":
		re, err := regexp2.Compile(raw.Regexp, regexp2.ECMAScript)
		if err != nil {
			return Pattern{}, fieldErr(ErrInvalidPattern, field+".regexp", "an ECMAScript regular expression (%v)", err)
		}
		re.MatchTimeout = regexpTimeout
		return Pattern{Kind: PatternRegexp, Expr: raw.Regexp, re: re}, nil

	default:
		g, err := glob.Compile(raw.Glob, '/')
		if err != nil {
			return Pattern{}, fieldErr(ErrInvalidPattern, field+".glob", "a glob using / separators (%v)", err)
		}
		return Pattern{Kind: PatternGlob, Expr: raw.Glob, g: g}, nil
	}
}

// Match reports whether the slash separated path matches the pattern.
func (p *Pattern) Match(path string) bool {
	switch p.Kind {
	case PatternExtensions:
		for _, ext := range p.Extensions {
			if strings.HasSuffix(path, ext) {
				return true
			}
		}
		return false
	case PatternRegexp:
		if p.re == nil {
			return false
		}
		// a timeout is reported as an error and counts as no match
		ok, err := p.re.MatchString(path)
		return err == nil && ok
	case PatternGlob:
		return p.g != nil && p.g.Match(path)
	}
	return false
}

// Raw returns the raw form of the pattern.
func (p *Pattern) Raw() RawPattern {
	switch p.Kind {
	case PatternExtensions:
		return RawPattern{Extensions: append([]string{}, p.Extensions...)}
	case PatternRegexp:
		return RawPattern{Regexp: p.Expr}
	default:
		return RawPattern{Glob: p.Expr}
	}
}

// extensionHints returns the file extensions the pattern names literally.
// They seed the synthetic paths used to detect overlapping rules.
func (p *Pattern) extensionHints() []string {
	switch p.Kind {
	case PatternExtensions:
		return p.Extensions
	case PatternRegexp:
		return literalExtensions(regexpExtHint, p.Expr, "|")
	case PatternGlob:
		return literalExtensions(globExtHint, p.Expr, ",")
	}
	return nil
}

func literalExtensions(re *regexp2.Regexp, expr, sep string) []string {
	var exts []string
	m, _ := re.FindStringMatch(expr)
	for m != nil {
		for _, g := range m.Groups()[1:] {
			if g.Length == 0 {
				continue
			}
			for _, alt := range strings.Split(g.String(), sep) {
				// jsx? names both .js and .jsx
				if base, optional := strings.CutSuffix(alt, "?"); optional {
					if len(base) > 1 {
						exts = append(exts, "."+base[:len(base)-1])
					}
					alt = base
				}
				if alt = strings.Trim(alt, "?"); alt != "" {
					exts = append(exts, "."+alt)
				}
			}
		}
		m, _ = re.FindNextMatch(m)
	}
	return exts
}

func (p *Pattern) String() string {
	if p.Kind == PatternExtensions {
		return fmt.Sprintf("extensions%v", p.Extensions)
	}
	return fmt.Sprintf("%s(%s)", p.Kind, p.Expr)
}

// normalizeExtensions trims each entry, prefixes a dot where missing and
// rejects blanks and duplicates. Order is preserved.
func normalizeExtensions(field string, exts []string, sentinel error) ([]string, error) {
	if len(exts) == 0 {
		return nil, fieldErr(sentinel, field, "a non-empty list of file extensions such as [\".js\", \".jsx\"]")
	}

	out := make([]string, 0, len(exts))
	seen := make(map[string]bool, len(exts))
	for i, ext := range exts {
		ext = strings.TrimSpace(ext)
		if ext == "" || ext == "." {
			return nil, fieldErr(sentinel, fmt.Sprintf("%s[%d]", field, i), "a file extension such as \".js\"")
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if seen[ext] {
			return nil, fieldErr(sentinel, fmt.Sprintf("%s[%d]", field, i), "unique extensions, %q is listed twice", ext)
		}
		seen[ext] = true
		out = append(out, ext)
	}
	return out, nil
}
