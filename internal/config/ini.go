package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

// Layer is one configuration source, parsed but not yet merged.
type Layer struct {
	Name     string
	Sections map[string]map[string]string
}

// Empty reports whether the layer has no sections.
func (l Layer) Empty() bool { return len(l.Sections) == 0 }

// Set adds a value to the layer.
func (l *Layer) Set(section, key, val string) {
	if l.Sections == nil {
		l.Sections = make(map[string]map[string]string)
	}
	sec, ok := l.Sections[section]
	if !ok {
		sec = make(map[string]string)
		l.Sections[section] = sec
	}
	sec[key] = val
}

var loadOptions = ini.LoadOptions{
	Insensitive:                true,
	IgnoreInlineComment:        true,
	AllowPythonMultilineValues: true,
	PreserveSurroundedQuote:    true,
}

// ParseLayer parses INI data. Values are taken verbatim: no interpolation is
// performed at this point.
func ParseLayer(name string, data []byte) (Layer, error) {
	f, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return Layer{}, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	l := Layer{Name: name}
	for _, sec := range f.Sections() {
		// ini.v1 always has an implicit default section; keep it only
		// when something was actually written to it.
		if strings.EqualFold(sec.Name(), ini.DefaultSection) && len(sec.Keys()) == 0 {
			continue
		}
		if l.Sections == nil {
			l.Sections = make(map[string]map[string]string)
		}
		if _, ok := l.Sections[sec.Name()]; !ok {
			l.Sections[sec.Name()] = make(map[string]string)
		}
		for _, key := range sec.Keys() {
			l.Sections[sec.Name()][key.Name()] = key.Value()
		}
	}

	return l, nil
}

// ReadLayer reads and parses the INI file at path. A missing file is reported
// with an error satisfying errors.Is(err, os.ErrNotExist).
func ReadLayer(path string) (Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layer{}, err
	}
	return ParseLayer(path, data)
}

// WriteTo serializes the store as INI. Values are written raw.
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	f := ini.Empty(loadOptions)
	for _, name := range s.Sections() {
		sec, err := f.NewSection(name)
		if err != nil {
			return 0, fmt.Errorf("failed to add section %s: %w", name, err)
		}
		for _, key := range s.Keys(name) {
			val, _ := s.raw(name, key)
			if _, err := sec.NewKey(key, val); err != nil {
				return 0, fmt.Errorf("failed to add key %s.%s: %w", name, key, err)
			}
		}
	}

	return f.WriteTo(w)
}

// Dump writes the store to path.
func (s *Store) Dump(path string) error {
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
