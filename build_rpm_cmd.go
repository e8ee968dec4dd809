package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/magefile/mage/sh"
	"github.com/urfave/cli/v2"
	"golang.org/x/sys/unix"

	"github.com/redhat/ddiskit/internal/archive"
	"github.com/redhat/ddiskit/internal/config"
	"github.com/redhat/ddiskit/internal/l10n"
	"github.com/redhat/ddiskit/internal/specfile"
	"github.com/redhat/ddiskit/internal/tool"
)

const srcDir = "src"

func buildRPMCommand() *cli.Command {
	return &cli.Command{
		Name:  "build_rpm",
		Usage: l10n.T("Build rpm"),
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:    "tar-all",
				Aliases: []string{"a"},
				Usage:   l10n.T("tar all files, including hidden ones"),
			},
			&cli.BoolFlag{
				Name:    "tar-strict",
				Aliases: []string{"e"},
				Usage:   l10n.T("tar only expected files"),
			},
			&cli.BoolFlag{
				Name:    "srpm",
				Aliases: []string{"s"},
				Usage:   l10n.T("build source RPM only"),
			},
		},
		Action: moduleAction(loadOptions{requireModule: true}, buildRPM),
	}
}

func buildRPM(_ *cli.Context, s *session) error {
	if err := findMakefile(srcDir); err != nil {
		return err
	}
	fmt.Fprintln(s.stdout, l10n.T("Checking makefile ... OK"))

	spec := specfile.SpecPath(s.store)
	if _, err := os.Stat(spec); err != nil {
		return fmt.Errorf("%w: %s, use \"ddiskit generate_spec\" to create it", errSpecRead, spec)
	}

	tools, err := s.tools()
	if err != nil {
		return err
	}

	var series *tool.QuiltSeries
	if s.store.GetBool("quilt_support").IsTrue() {
		series = tools.Series(s.store.Get("quilt_series_dir", config.Default(srcDir)))
		if err := series.Deapply(); err != nil {
			slog.Error("quilt de-applying returned error, aborting", "error", err)
			return err
		}
	}

	buildErr := buildPackages(s, tools, spec)

	if series != nil {
		if patches := series.Applied(); len(patches) > 0 {
			slog.Info("re-applying quilt patches", "patches", patches)
		}
		if err := series.Reapply(); err != nil && buildErr == nil {
			return err
		}
	}
	return buildErr
}

// buildPackages writes the source archive, stages the patches and runs
// rpmbuild.
func buildPackages(s *session, tools *tool.Tools, spec string) error {
	if err := writeArchive(s); err != nil {
		return err
	}
	if err := copyPatches(s, filepath.Join(srcDir, "patches"), filepath.Join("rpm", "SOURCES")); err != nil {
		return err
	}

	b, err := tools.Builder("rpm", spec)
	if err != nil {
		return err
	}

	arch := hostArch()
	targets := strings.Fields(s.store.Get("spec_file.kernel_arch"))
	srpmOnly := s.store.GetBool("srpm").IsTrue()

	switch {
	case srpmOnly:
		return b.Source()
	case !slices.Contains(targets, arch):
		fmt.Fprintln(s.stdout, l10n.T("Because you are not on target architecture, building only SRPM"))
		return b.Source()
	}

	if err := b.Check(); err != nil {
		slog.Warn("binary RPM build check failed, building SRPM only", "status", tool.ExitStatus(err))
		return b.Source()
	}
	return b.Binary(arch)
}

// archiveName returns the source archive path, named after the
// name-vendor-version of the package.
func archiveName(s *session) (string, string) {
	nvv := strings.Join([]string{
		s.store.Get("spec_file.module_name"),
		s.store.Get("global.module_vendor"),
		s.store.Get("spec_file.module_version"),
	}, "-")
	return nvv, filepath.Join("rpm", "SOURCES", nvv+archive.Ext)
}

func writeArchive(s *session) error {
	nvv, path := archiveName(s)
	fmt.Fprintln(s.stdout, l10n.T("Writing archive %s ...", path))

	entries, warned, err := archive.Entries(srcDir, s.store.GetBool("spec_file.firmware_include").IsTrue())
	if err != nil {
		return fmt.Errorf("%w: %w", archive.ErrWrite, err)
	}

	patterns, err := regexp.Compile(s.store.Get("src_patterns", config.Default(archive.DefaultPatterns)))
	if err != nil {
		return fmt.Errorf("%w: invalid src_patterns: %w", archive.ErrWrite, err)
	}
	p := &archive.Policy{
		Prefix:   nvv,
		All:      s.store.GetBool("tar_all").IsTrue(),
		Strict:   s.store.GetBool("tar_strict").IsTrue(),
		Patterns: patterns,
	}

	stop := s.spin(l10n.T("Compressing sources"))
	err = archive.WriteFile(path, srcDir, entries, p)
	stop()
	if err != nil {
		return err
	}

	for _, name := range p.Unexpected {
		fmt.Fprintln(s.stdout, l10n.T("  Unexpected file: %s", name))
	}
	if !warned {
		fmt.Fprintln(s.stdout, l10n.T("Finish writing archive."))
	}
	return nil
}

// copyPatches copies every file of dir into dst.
func copyPatches(s *session, dir, dst string) error {
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(s.stdout, l10n.T("Patch directory not found or empty, skipping"))
		return nil
	}

	fmt.Fprintln(s.stdout, l10n.T("Copying patches into %s:", dst))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := sh.Copy(filepath.Join(dst, e.Name()), filepath.Join(dir, e.Name())); err != nil {
			return err
		}
		fmt.Fprintln(s.stdout, l10n.T("  Copying: %s", e.Name()))
	}
	return nil
}

// findMakefile looks for a Makefile anywhere below dir.
func findMakefile(dir string) error {
	deepest := ""
	found := errors.New("found")
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if len(path) > len(deepest) {
				deepest = path
			}
			return nil
		}
		if d.Name() == "Makefile" {
			return found
		}
		return nil
	})
	switch {
	case errors.Is(err, found):
		return nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return err
	}
	if deepest == "" {
		deepest = dir
	}
	return fmt.Errorf("%w, please create one in %s", errMakefileNotFound, deepest)
}

// hostArch returns the machine name of the running kernel.
func hostArch() string {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		slog.Warn("failed to get host architecture", "error", err)
		return ""
	}
	return unix.ByteSliceToString(u.Machine[:])
}
