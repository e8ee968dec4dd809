package config

import (
	"log/slog"
	"sort"
	"strings"
)

const (
	// DefaultSection holds built-in defaults and command line arguments.
	DefaultSection = "defaults"

	// DefaultDepth is the substitution depth used unless Depth is given.
	DefaultDepth = 8
)

// Store is the merged configuration of one command invocation: a mapping
// from section to key to value. Section and key names are case-insensitive.
type Store struct {
	sections map[string]map[string]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{sections: make(map[string]map[string]string)}
}

// Overrides shadow stored values during a single lookup without being
// persisted. Keys are either "section.key" or a bare key, which belongs to the
// section of the lookup. A qualified key wins over a bare one.
type Overrides map[string]string

func (o Overrides) lookup(active, section, key string) (string, bool) {
	if len(o) == 0 {
		return "", false
	}
	full := section + "." + key
	for k, v := range o {
		if strings.ToLower(k) == full {
			return v, true
		}
	}
	if section != active {
		return "", false
	}
	for k, v := range o {
		if strings.ToLower(k) == key {
			return v, true
		}
	}

	return "", false
}

type options struct {
	section   string
	depth     int
	def       *string
	overrides Overrides
}

// Option adjusts a Store lookup or assignment.
type Option func(*options)

// Section selects the section used for dot-less keys and bare references.
// The default is "defaults".
func Section(name string) Option {
	return func(o *options) { o.section = name }
}

// Depth limits the number of substitution passes. Depth(0) returns the raw
// stored value.
func Depth(n int) Option {
	return func(o *options) { o.depth = n }
}

// Raw is shorthand for Depth(0).
func Raw() Option { return Depth(0) }

// Default is returned (after substitution) when the key is absent.
func Default(v string) Option {
	return func(o *options) { o.def = &v }
}

// WithOverrides consults o before the store.
func WithOverrides(o Overrides) Option {
	return func(opts *options) { opts.overrides = o }
}

func buildOptions(opts []Option) options {
	o := options{section: DefaultSection, depth: DefaultDepth}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// splitKey interprets "section.key" and normalizes case.
func splitKey(key, section string) (string, string) {
	if i := strings.IndexByte(key, '.'); i >= 0 {
		section, key = key[:i], key[i+1:]
	}
	return strings.ToLower(section), strings.ToLower(key)
}

func (s *Store) raw(section, key string) (string, bool) {
	sec, ok := s.sections[section]
	if !ok {
		return "", false
	}
	val, ok := sec[key]
	return val, ok
}

// Lookup returns the value of key with references substituted. The boolean
// reports whether the key was found in the overrides or the store; when it
// was not, the (substituted) Default is returned if one was given.
func (s *Store) Lookup(key string, opts ...Option) (string, bool) {
	o := buildOptions(opts)
	section, key := splitKey(key, o.section)

	val, found := o.overrides.lookup(section, section, key)
	if !found {
		val, found = s.raw(section, key)
	}
	if !found {
		if o.def == nil {
			return "", false
		}
		val = *o.def
	}

	resolve := func(ref Ref) (string, bool) {
		refSection, refKey := strings.ToLower(ref.Section), strings.ToLower(ref.Key)
		if refSection == "" {
			refSection = section
		}
		if v, ok := o.overrides.lookup(section, refSection, refKey); ok {
			return v, true
		}
		return s.raw(refSection, refKey)
	}

	return expand(val, o.depth, resolve), found
}

// Get is Lookup without the presence flag.
func (s *Store) Get(key string, opts ...Option) string {
	val, _ := s.Lookup(key, opts...)
	return val
}

// Has reports whether key has a stored value.
func (s *Store) Has(key string, opts ...Option) bool {
	_, ok := s.Lookup(key, append(opts, Raw())...)
	return ok
}

// GetBool returns the value of key coerced with ParseBool. Absent keys are
// Indeterminate unless a Default is given.
func (s *Store) GetBool(key string, opts ...Option) Bool {
	return ParseBool(s.Get(key, opts...))
}

// GetList returns the whitespace separated fields of the value of key.
func (s *Store) GetList(key string, opts ...Option) []string {
	return strings.Fields(s.Get(key, opts...))
}

// Set stores val under key, overwriting any previous value.
func (s *Store) Set(key, val string, opts ...Option) {
	o := buildOptions(opts)
	section, key := splitKey(key, o.section)
	sec, ok := s.sections[section]
	if !ok {
		sec = make(map[string]string)
		s.sections[section] = sec
	}
	sec[key] = val
}

// SetIfAbsent stores val only if key has no raw value yet. It reports whether
// the value was stored.
func (s *Store) SetIfAbsent(key, val string, opts ...Option) bool {
	if _, ok := s.Lookup(key, append(opts, Raw())...); ok {
		return false
	}
	s.Set(key, val, opts...)
	return true
}

// Merge applies a layer below everything already in the store: keys that
// already have a value keep it. Section and key names containing a dot are
// skipped.
func (s *Store) Merge(l Layer) {
	for _, section := range sortedKeys(l.Sections) {
		if strings.Contains(section, ".") {
			slog.Warn("section name contains a dot, ignored", "section", section, "source", l.Name)
			continue
		}
		values := l.Sections[section]
		for _, key := range sortedKeys(values) {
			if strings.Contains(key, ".") {
				slog.Warn("key name contains a dot, ignored", "section", section, "key", key, "source", l.Name)
				continue
			}
			s.SetIfAbsent(key, values[key], Section(section))
		}
	}
}

// HasSection reports whether section exists.
func (s *Store) HasSection(section string) bool {
	_, ok := s.sections[strings.ToLower(section)]
	return ok
}

// Sections returns the section names in lexicographic order.
func (s *Store) Sections() []string {
	return sortedKeys(s.sections)
}

// Keys returns the key names of section in lexicographic order.
func (s *Store) Keys(section string) []string {
	return sortedKeys(s.sections[strings.ToLower(section)])
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
