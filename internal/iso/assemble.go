package iso

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/magefile/mage/sh"
	"golang.org/x/sys/unix"

	"github.com/redhat/ddiskit/internal/l10n"
)

const (
	// VolumeLabel is the label anaconda looks for.
	VolumeLabel = "OEMDRV"
	// MarkerFile identifies the disk as a driver update disk.
	MarkerFile    = "rhdd3"
	MarkerContent = "Driver Update Disk version 3"

	// DefaultName is used when no module configuration is available.
	DefaultName = "dd.iso"
)

// ErrMarkerWrite is returned when the disk marker cannot be written.
var ErrMarkerWrite = errors.New("failed to write driver update disk id")

// Tools are the external programs driven by the Assembler.
type Tools interface {
	CreateRepo(dir string) error
	MakeISO(args ...string) error
}

// Assembler lays out the disk tree in a staging directory and masters the
// image from it.
type Assembler struct {
	Tools Tools
	// TempDir is where the staging directory is created; os.TempDir when
	// empty.
	TempDir string
	// Progress receives user-facing status lines; discarded when nil.
	Progress io.Writer
}

// MasteringArgs returns the mkisofs arguments that write dir into iso.
func MasteringArgs(iso, dir string) []string {
	return []string{
		"-V", VolumeLabel,
		"-input-charset", "UTF-8",
		"-R",
		"-uid", "0",
		"-gid", "0",
		"-dir-mode", "0555",
		"-file-mode", "0444",
		"-o", iso,
		dir,
	}
}

// Assemble writes pkgs into a new image at iso. The staging directory is
// created under a 077 umask, the previous umask is restored and the staging
// directory removed when Assemble returns, whatever the outcome.
func (a *Assembler) Assemble(pkgs []Package, iso string) (err error) {
	out := a.Progress
	if out == nil {
		out = io.Discard
	}

	tmp := a.TempDir
	if tmp == "" {
		tmp = os.TempDir()
	}

	saved := unix.Umask(0o077)
	defer unix.Umask(saved)

	staging := filepath.Join(tmp, "ddiskit-"+uuid.NewString())
	if err := os.Mkdir(staging, 0700); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() {
		if rmErr := sh.Rm(staging); rmErr != nil {
			slog.Warn("failed to remove staging directory", "dir", staging, "error", rmErr)
		}
	}()

	disk := filepath.Join(staging, "disk")
	arches := Arches(pkgs)

	fmt.Fprint(out, l10n.T("Creating ISO directory structure ... "))
	dirs := []string{disk, filepath.Join(disk, "rpms"), filepath.Join(disk, "src")}
	for _, arch := range arches {
		dirs = append(dirs, filepath.Join(disk, "rpms", arch))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Fprintln(out, l10n.T("FAIL"))
			return err
		}
	}
	fmt.Fprintln(out, l10n.T("OK"))

	for _, p := range pkgs {
		dst := filepath.Join(disk, "rpms", p.Arch, filepath.Base(p.Path))
		if p.Kind == Source {
			dst = filepath.Join(disk, "src", filepath.Base(p.Path))
		}
		slog.Info("copying package", "src", p.Path, "dst", dst)
		if err := sh.Copy(dst, p.Path); err != nil {
			return err
		}
	}

	for _, arch := range arches {
		if err := a.Tools.CreateRepo(filepath.Join(disk, "rpms", arch)); err != nil {
			return fmt.Errorf("failed to create repository for %s: %w", arch, err)
		}
	}

	if err := os.WriteFile(filepath.Join(disk, MarkerFile), []byte(MarkerContent), 0644); err != nil {
		return fmt.Errorf("%w: %w", ErrMarkerWrite, err)
	}

	if err := a.Tools.MakeISO(MasteringArgs(iso, disk)...); err != nil {
		fmt.Fprintln(out, l10n.T("ISO creation ... %s", l10n.T("Failed")))
		return err
	}
	fmt.Fprintln(out, l10n.T("ISO creation ... %s", l10n.T("OK")))

	return nil
}
