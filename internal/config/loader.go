package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultResDir is where installed resources live.
	DefaultResDir = "/usr/share/ddiskit/"
	// ResourceConfig is the name of the package-wide config in the resource dir.
	ResourceConfig = "ddiskit.config"
	// SystemConfig is the system-wide config file.
	SystemConfig = "/etc/ddiskit.config"
	// UserConfig is the per-user config file, relative to the home directory.
	UserConfig = ".ddiskitrc"
)

// ErrModuleConfigRead is returned when an explicitly named module config
// exists but cannot be read, parsed, or contains nothing.
var ErrModuleConfigRead = errors.New("failed to read module config")

// ErrNoModuleConfig is returned by commands that cannot run without a module
// config when none was loaded.
var ErrNoModuleConfig = errors.New("module config not found")

// builtinConfig is the lowest configuration layer, compiled into the binary.
//
//go:embed defaults.config
var builtinConfig []byte

// Builtin returns the built-in defaults layer.
func Builtin() Layer {
	l, err := ParseLayer("built-in defaults", builtinConfig)
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded defaults: %v", err))
	}
	return l
}

// Fold merges layers given from lowest to highest precedence into a new
// Store. The highest layer is merged first; every following layer only fills
// in keys that are still unset.
func Fold(layers ...Layer) *Store {
	s := New()
	for i := len(layers) - 1; i >= 0; i-- {
		s.Merge(layers[i])
	}
	return s
}

// Source describes where the configuration of one command comes from. See
// the Read method.
type Source struct {
	// Defaults replaces the built-in defaults when non-empty.
	Defaults Layer
	// SystemFile and UserFile are optional layers; empty disables them.
	SystemFile string
	UserFile   string
	// ModuleFile is the primary, user-supplied config. Empty means none.
	ModuleFile string
	// Args holds values derived from the command line.
	Args Layer
}

// DefaultSource returns a Source using the standard system and user config
// locations.
func DefaultSource(moduleFile string, args Layer) *Source {
	src := &Source{
		SystemFile: SystemConfig,
		ModuleFile: moduleFile,
		Args:       args,
	}
	if home, err := os.UserHomeDir(); err == nil {
		src.UserFile = filepath.Join(home, UserConfig)
	}
	return src
}

// Read loads and returns the merged Store. Layers, from lowest to highest
// precedence:
//
//  1. Built-in defaults
//  2. <res_dir>/ddiskit.config
//  3. System config
//  4. User config
//  5. Profile, looked up by name in profile_dir
//  6. Module config
//  7. Command line arguments
//
// The boolean result reports whether a module config was loaded. A module
// file that does not exist is not an error; one that exists but cannot be
// parsed is.
func (src *Source) Read() (*Store, bool, error) {
	builtin := src.Defaults
	if builtin.Empty() {
		builtin = Builtin()
	}

	// The resource dir may only come from the command line or the built-in
	// defaults: the resource config itself cannot move it.
	resDir := Fold(builtin, src.Args).Get("res_dir")
	resLayer := readOptional(filepath.Join(resDir, ResourceConfig))
	systemLayer := readOptional(src.SystemFile)
	userLayer := readOptional(src.UserFile)

	var profileLayer Layer
	probe := Fold(builtin, resLayer, systemLayer, userLayer, src.Args)
	if profile := strings.TrimSpace(probe.Get("profile")); profile != "" {
		path := ResolvePath(profile, probe.Get("profile_dir"), ".", "")
		slog.Debug("using profile", "profile", profile, "path", path)
		profileLayer = readOptional(path)
	}

	var moduleLayer Layer
	haveModule := false
	if src.ModuleFile != "" {
		l, err := ReadLayer(src.ModuleFile)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Debug("module config not found", "path", src.ModuleFile)
		case err != nil:
			return nil, false, fmt.Errorf("%w: %v", ErrModuleConfigRead, err)
		case l.Empty():
			return nil, false, fmt.Errorf("%w: %s contains no sections", ErrModuleConfigRead, src.ModuleFile)
		default:
			moduleLayer = l
			haveModule = true
		}
	}

	return Fold(builtin, resLayer, systemLayer, userLayer, profileLayer, moduleLayer, src.Args), haveModule, nil
}

// readOptional reads a layer that is allowed to be missing or broken; in
// both cases no sections are applied.
func readOptional(path string) Layer {
	if path == "" {
		return Layer{}
	}
	l, err := ReadLayer(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("config layer not found", "path", path)
		} else {
			slog.Warn("failed to read config layer, ignoring", "path", path, "error", err)
		}
		return Layer{}
	}
	return l
}

// ResolvePath turns a config or template name into a path. A name without
// a slash that does not end in ext names a file in defaultDir (with ext
// appended); anything else is a path relative to relDir.
func ResolvePath(name, defaultDir, relDir, ext string) string {
	if !strings.Contains(name, "/") && (ext == "" || !strings.HasSuffix(name, ext)) {
		return filepath.Clean(filepath.Join(defaultDir, filepath.Base(name)+ext))
	}
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Clean(filepath.Join(relDir, name))
}
