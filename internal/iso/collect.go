// Package iso assembles built packages into a driver update disk image.
package iso

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/redhat/ddiskit/internal/l10n"
)

// Kind classifies a package file.
type Kind int

const (
	Binary Kind = iota
	Source
	Debuginfo
)

func (k Kind) String() string {
	switch k {
	case Source:
		return "source"
	case Debuginfo:
		return "debuginfo"
	default:
		return "binary"
	}
}

// Package is a package file headed for the disk image.
type Package struct {
	Path string
	Arch string
	Kind Kind
}

var x86Re = regexp.MustCompile(`(?i)i[0-9]86`)

// NormalizeArch folds the i?86 family into i386.
func NormalizeArch(arch string) string {
	return x86Re.ReplaceAllString(arch, "i386")
}

// Classify tells source, debuginfo and binary packages apart by file name.
func Classify(path string) Kind {
	name := filepath.Base(path)
	switch {
	case strings.Contains(name, ".src."):
		return Source
	case strings.Contains(name, "debuginfo"):
		return Debuginfo
	default:
		return Binary
	}
}

// Prober reports the target architecture of a package file.
type Prober interface {
	Arch(pkg string) (string, error)
}

// Collector turns the inputs of build_iso into packages.
type Collector struct {
	Prober Prober
	// IncludeSource keeps source packages found in directories. Source
	// packages named explicitly are always kept.
	IncludeSource bool
	// Progress receives user-facing status lines; discarded when nil.
	Progress io.Writer
}

// Collect probes every file in inputs and every .rpm file found below the
// directories in inputs. Packages whose architecture cannot be determined
// are skipped, as are debuginfo packages.
func (c *Collector) Collect(inputs []string) ([]Package, error) {
	out := c.Progress
	if out == nil {
		out = io.Discard
	}

	var pkgs []Package
	for _, input := range inputs {
		fi, err := os.Stat(input)
		if err != nil {
			slog.Warn("skipping input", "path", input, "error", err)
			continue
		}

		if !fi.IsDir() {
			if pkg, ok := c.probe(input); ok {
				fmt.Fprintln(out, l10n.T("Including: %s", input))
				pkgs = append(pkgs, pkg)
			}
			continue
		}

		fmt.Fprintln(out, l10n.T("Listing content: %s", input))
		err = filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".rpm") {
				return nil
			}
			if Classify(path) == Source && !c.IncludeSource {
				slog.Info("source packages are disabled by config, skipping", "path", path)
				return nil
			}
			if pkg, ok := c.probe(path); ok {
				fmt.Fprintln(out, l10n.T("Including: %s", path))
				pkgs = append(pkgs, pkg)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", input, err)
		}
	}

	return pkgs, nil
}

func (c *Collector) probe(path string) (Package, bool) {
	kind := Classify(path)
	if kind == Debuginfo {
		slog.Warn("debuginfo packages are not supported, skipping", "path", path)
		return Package{}, false
	}

	arch, err := c.Prober.Arch(path)
	if err != nil {
		slog.Warn("failed to get package architecture, skipping", "path", path, "error", err)
		return Package{}, false
	}

	return Package{Path: path, Arch: NormalizeArch(arch), Kind: kind}, true
}

// Arches returns the architectures of the binary packages, in order of
// first appearance.
func Arches(pkgs []Package) []string {
	var arches []string
	seen := map[string]bool{}
	for _, p := range pkgs {
		if p.Kind != Binary || seen[p.Arch] {
			continue
		}
		seen[p.Arch] = true
		arches = append(arches, p.Arch)
	}
	return arches
}
