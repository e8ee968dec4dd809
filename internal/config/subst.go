package config

import (
	"regexp"
	"strings"
)

// Dialect describes how a variable reference is spelled.
type Dialect struct {
	name    string
	pattern *regexp.Regexp
}

var (
	// ConfigDialect is used inside configuration values: {key} or {section.key}.
	ConfigDialect = Dialect{name: "config", pattern: regexp.MustCompile(`\{([^{}]*)\}`)}

	// SpecDialect is used inside spec file templates: %{key} or %{section.key}.
	SpecDialect = Dialect{name: "spec", pattern: regexp.MustCompile(`%\{([^{}]*)\}`)}
)

// Token is a piece of text produced by Tokenize. Either Ref is set and Text is
// the verbatim reference (including delimiters), or Ref is nil and Text is
// literal text.
type Token struct {
	Text string
	Ref  *Ref
}

// Ref is a variable reference. Section is empty for bare references.
type Ref struct {
	Section string
	Key     string
}

// Name returns the reference the way it was written, without delimiters.
func (r Ref) Name() string {
	if r.Section == "" {
		return r.Key
	}
	return r.Section + "." + r.Key
}

// Tokenize splits s into literal text and references.
func Tokenize(d Dialect, s string) []Token {
	matches := d.pattern.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return []Token{{Text: s}}
	}

	tokens := make([]Token, 0, 2*len(matches)+1)
	last := 0
	for _, m := range matches {
		if m[0] > last {
			tokens = append(tokens, Token{Text: s[last:m[0]]})
		}
		ref := parseRef(s[m[2]:m[3]])
		tokens = append(tokens, Token{Text: s[m[0]:m[1]], Ref: &ref})
		last = m[1]
	}
	if last < len(s) {
		tokens = append(tokens, Token{Text: s[last:]})
	}

	return tokens
}

func parseRef(name string) Ref {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return Ref{Section: name[:i], Key: name[i+1:]}
	}
	return Ref{Key: name}
}

// ResolveFunc returns the replacement for a reference and whether one exists.
type ResolveFunc func(ref Ref) (string, bool)

// Replace performs a single pass over s, replacing every reference for which
// resolve returns a value. Unresolved references are kept verbatim. The
// number of references found is returned alongside the result.
func Replace(d Dialect, s string, resolve ResolveFunc) (string, int) {
	tokens := Tokenize(d, s)
	if len(tokens) == 1 && tokens[0].Ref == nil {
		return s, 0
	}

	var b strings.Builder
	refs := 0
	for _, tok := range tokens {
		if tok.Ref == nil {
			b.WriteString(tok.Text)
			continue
		}
		refs++
		if val, ok := resolve(*tok.Ref); ok {
			b.WriteString(val)
		} else {
			b.WriteString(tok.Text)
		}
	}

	return b.String(), refs
}

// expand substitutes configuration references in val, at most depth times.
// It stops early once a pass finds no references or changes nothing, so
// reference cycles terminate with the cyclic tokens left in place.
func expand(val string, depth int, resolve ResolveFunc) string {
	for ; depth > 0; depth-- {
		next, refs := Replace(ConfigDialect, val, resolve)
		if refs == 0 || next == val {
			break
		}
		val = next
	}

	return val
}
