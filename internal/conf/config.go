package conf

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	// Path is the system-wide tool settings file.
	Path = "/etc/ddiskit/tools.toml"
	// DropInDir holds drop-in tool settings files.
	DropInDir = "/etc/ddiskit/tools.toml.d/"
)

func init() {
	sources := &ConfigSource{
		Path:      Path,
		DropInDir: DropInDir,
	}
	config, err := sources.Read()
	if err != nil {
		slog.Warn("failed to load tool settings, using defaults", "error", err)
		config = Defaults()
	}
	Configuration = config
}

// defaultConfig contains the embedded default tool settings.
// This file is compiled into the binary and serves as the base layer
// before /etc/ddiskit/tools.toml and drop-in files are applied.
//
//go:embed tools.toml
var defaultConfig string

// Configuration is the global immutable state.
var Configuration Config

// Config represents the immutable public tool settings.
type Config struct {
	LogLevel     slog.Level
	Spinner      bool
	KernelSrcDir string

	RPMBuild   string
	RPM        string
	Quilt      string
	Createrepo string
	Mkisofs    string
}

// Defaults returns the embedded default settings.
func Defaults() Config {
	dto, err := parseConfigDTO(defaultConfig)
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded defaults: %v", err))
	}
	c := Config{}
	c.Update(dto)
	return c
}

// ParseLevel converts a level name into a slog.Level.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToUpper(name) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	}
	return 0, false
}

// Update applies non-nil values from a configDTO.
func (c *Config) Update(dto configDTO) {
	if dto.LogLevel != nil {
		if level, ok := ParseLevel(*dto.LogLevel); ok {
			c.LogLevel = level
		} else {
			slog.Warn("unknown log level, ignored", "log-level", *dto.LogLevel)
		}
	}
	if dto.Spinner != nil {
		c.Spinner = *dto.Spinner
	}
	if dto.KernelSrcDir != nil {
		c.KernelSrcDir = *dto.KernelSrcDir
	}
	if dto.RPMBuild != nil {
		c.RPMBuild = *dto.RPMBuild
	}
	if dto.RPM != nil {
		c.RPM = *dto.RPM
	}
	if dto.Quilt != nil {
		c.Quilt = *dto.Quilt
	}
	if dto.Createrepo != nil {
		c.Createrepo = *dto.Createrepo
	}
	if dto.Mkisofs != nil {
		c.Mkisofs = *dto.Mkisofs
	}
}

// ConfigSource orchestrates loading configuration from multiple sources.
// See the Read method.
type ConfigSource struct {
	Path      string
	DropInDir string
}

// Read loads and returns the complete Config by merging all layers:
// 1. Embedded defaults
// 2. Main configuration file
// 3. Drop-in files
func (cs *ConfigSource) Read() (Config, error) {
	resolved := Config{}

	// Start with embedded defaults
	dto, err := parseConfigDTO(defaultConfig)
	if err != nil {
		slog.Error("failed to parse embedded defaults", "error", err)
		return resolved, fmt.Errorf("failed to parse embedded defaults: %w", err)
	}
	resolved.Update(dto)

	// Load main configuration file
	data, err := os.ReadFile(cs.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			// Existing but malformed file should result in failure (let's not hide
			// problems from the users).
			return resolved, fmt.Errorf("failed to load %s: %w", cs.Path, err)
		}
	} else {
		mainDTO, err := parseConfigDTO(string(data))
		if err != nil {
			// Existing but malformed file should result in failure (let's not hide
			// problems from the users).
			return resolved, fmt.Errorf("failed to parse %s: %w", cs.Path, err)
		}
		resolved.Update(mainDTO)
	}

	// Load drop-in files
	dropInDTOs, err := cs.parseDropInFiles()
	if err != nil {
		slog.Error("failed to load drop-in files", "error", err, "dir", cs.DropInDir)
		return resolved, err
	}

	// Apply each drop-in file in order
	for _, dropInDTO := range dropInDTOs {
		resolved.Update(dropInDTO)
	}

	return resolved, nil
}

type configDTO struct {
	LogLevel     *string `toml:"log-level"`
	Spinner      *bool   `toml:"spinner"`
	KernelSrcDir *string `toml:"kernel-src-dir"`
	RPMBuild     *string `toml:"rpmbuild"`
	RPM          *string `toml:"rpm"`
	Quilt        *string `toml:"quilt"`
	Createrepo   *string `toml:"createrepo"`
	Mkisofs      *string `toml:"mkisofs"`
}

// parseConfigDTO parses a TOML string into a configDTO.
func parseConfigDTO(data string) (configDTO, error) {
	var dto configDTO

	if err := toml.Unmarshal([]byte(data), &dto); err != nil {
		return dto, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return dto, nil
}

// findDropInFiles finds and returns sorted paths to drop-in configuration files.
// Returns nil if the drop-in directory doesn't exist (not an error).
func (cs *ConfigSource) findDropInFiles() ([]string, error) {
	if _, err := os.Stat(cs.DropInDir); os.IsNotExist(err) {
		return nil, nil
	}

	entries, err := os.ReadDir(cs.DropInDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read drop-in directory %s: %w", cs.DropInDir, err)
	}

	var filenames []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".toml") {
			filenames = append(filenames, filepath.Join(cs.DropInDir, entry.Name()))
		}
	}

	// Sort lexicographically
	sort.Strings(filenames)

	return filenames, nil
}

// parseDropInFiles loads .toml files.
func (cs *ConfigSource) parseDropInFiles() ([]configDTO, error) {
	paths, err := cs.findDropInFiles()
	if err != nil {
		return nil, err
	}

	var dtos []configDTO
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		dto, err := parseConfigDTO(string(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}

		dtos = append(dtos, dto)
	}

	return dtos, nil
}
