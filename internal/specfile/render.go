// Package specfile renders RPM spec files from a template and a module
// configuration.
//
// Templates reference configuration values with %{key} or %{section.key};
// bare keys belong to the spec_file section. References to keys that are not
// configured are left untouched so RPM macros such as %{buildroot} survive.
// Configured but empty values become %{nil}.
package specfile

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redhat/ddiskit/internal/config"
	"github.com/redhat/ddiskit/internal/l10n"
)

// Nil is what empty values render as.
const Nil = "%{nil}"

var (
	// ErrTemplateRead is returned when the spec template cannot be read.
	ErrTemplateRead = errors.New("failed to read spec template")
	// ErrSpecWrite is returned when the rendered spec cannot be written.
	ErrSpecWrite = errors.New("failed to write spec file")
)

// Render replaces every template reference in tmpl with its configured value.
// With emptyIsNil, values that resolve to an empty string render as Nil.
func Render(tmpl string, s *config.Store, emptyIsNil bool) string {
	out, _ := config.Replace(config.SpecDialect, tmpl, func(ref config.Ref) (string, bool) {
		val, ok := s.Lookup(ref.Name(), config.Section(Section))
		if !ok {
			return "", false
		}
		if val == "" && emptyIsNil {
			return Nil, true
		}
		return val, true
	})
	return out
}

// Generator prepares a module configuration and writes the spec file.
type Generator struct {
	// SrcDir is the module source tree holding patches/ and firmware/.
	SrcDir string
	// KernelSrcDir holds the installed kernel-devel trees.
	KernelSrcDir string
	// Now returns the changelog date; time.Now when nil.
	Now func() time.Time
	// Progress receives user-facing status lines; discarded when nil.
	Progress io.Writer
}

func (g *Generator) progress() io.Writer {
	if g.Progress == nil {
		return io.Discard
	}
	return g.Progress
}

// Prepare derives every computed spec_file value from the sources and the
// configuration.
func (g *Generator) Prepare(s *config.Store) error {
	out := g.progress()

	patchDir := filepath.Join(g.SrcDir, "patches")
	patches, err := Patches(patchDir, s.GetBool("quilt_support").IsTrue())
	if err != nil {
		return fmt.Errorf("failed to list patches in %s: %w", patchDir, err)
	}
	if len(patches) > 0 {
		fmt.Fprintln(out, l10n.T("Found directory with patches, adding into spec file:"))
		for i, p := range patches {
			fmt.Fprintf(out, "  Patch%d: %s\n", i, p)
		}
	} else {
		fmt.Fprintln(out, l10n.T("Patch directory not found or empty, skipping"))
	}
	SetPatches(s, patches)

	fwDir := filepath.Join(g.SrcDir, "firmware")
	firmware, err := FirmwareFiles(fwDir)
	if err != nil {
		return fmt.Errorf("failed to list firmware in %s: %w", fwDir, err)
	}
	switch {
	case len(firmware) == 0:
		fmt.Fprintln(out, l10n.T("Firmware directory not found or empty, skipping"))
	case !s.GetBool("spec_file.firmware_include").IsTrue():
		slog.Warn("firmware directory contains files, but the firmware package is disabled by config", "dir", fwDir)
	default:
		fmt.Fprintln(out, l10n.T("Found directory with firmware, adding into spec file:"))
		for _, f := range firmware {
			fmt.Fprintf(out, "  Firmware: %s\n", f)
		}
		SetFirmware(s, firmware)
	}

	if missing := MissingKernelHeaders(s, g.KernelSrcDir); len(missing) > 0 {
		slog.Warn("kernel source code not found, building all RPMs on this system will probably fail",
			"missing", strings.Join(missing, " "),
			"package", "kernel-devel-"+s.Get("spec_file.kernel_version"))
	}

	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	SetFirmwareMarkers(s)
	SetDate(s, now())
	SetKernelRequires(s)
	SetModuleRequires(s)

	return nil
}

// Generate reads the template at tmplPath, prepares s and writes the rendered
// spec file to specPath.
func (g *Generator) Generate(s *config.Store, tmplPath, specPath string) error {
	tmpl, err := os.ReadFile(tmplPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTemplateRead, err)
	}

	if err := g.Prepare(s); err != nil {
		return err
	}

	if _, err := os.Stat(specPath); err == nil {
		slog.Warn("spec file exists, overwriting", "path", specPath)
	}

	fmt.Fprint(g.progress(), l10n.T("Writing spec into %s ... ", specPath))
	if err := os.WriteFile(specPath, []byte(Render(string(tmpl), s, true)), 0644); err != nil {
		fmt.Fprintln(g.progress(), l10n.T("FAIL"))
		return fmt.Errorf("%w: %w", ErrSpecWrite, err)
	}
	fmt.Fprintln(g.progress(), l10n.T("OK"))

	return nil
}

// SpecPath returns where the spec file of the configured module is written,
// relative to the module directory.
func SpecPath(s *config.Store) string {
	return filepath.Join("rpm", "SPECS", s.Get("spec_file.module_name")+".spec")
}
