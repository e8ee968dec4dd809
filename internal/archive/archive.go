package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// Ext is the file name extension of source archives.
const Ext = ".tar.xz"

// ErrWrite is returned when the archive cannot be written.
var ErrWrite = errors.New("failed to write source archive")

// Entries returns the top-level entries of srcDir that belong in the source
// archive. Patches are shipped separately and built packages never belong
// there. An empty firmware directory is skipped; a non-empty one is skipped
// with a warning when firmwareInclude is false, which is reported through
// the boolean result.
func Entries(srcDir string, firmwareInclude bool) ([]string, bool, error) {
	dirEntries, err := os.ReadDir(srcDir)
	if err != nil {
		return nil, false, err
	}

	var entries []string
	warned := false
	for _, e := range dirEntries {
		name := e.Name()
		switch {
		case name == "patches" || strings.HasSuffix(name, ".rpm"):
			slog.Info("skipping", "name", name)
			continue
		case name == FirmwareDir && e.IsDir():
			fw, err := os.ReadDir(filepath.Join(srcDir, name))
			if err != nil {
				return nil, false, err
			}
			if len(fw) == 0 {
				slog.Info("skipping", "name", name)
				continue
			}
			if !firmwareInclude {
				slog.Warn("firmware directory contains files, but the firmware package is disabled by config")
				warned = true
				continue
			}
		}
		entries = append(entries, name)
	}

	return entries, warned, nil
}

// Write streams the given entries of srcDir, recursively, into w as an
// uncompressed tar archive filtered through p.
func Write(w io.Writer, srcDir string, entries []string, p *Policy) error {
	tw := tar.NewWriter(w)

	for _, entry := range entries {
		root := filepath.Join(srcDir, entry)
		err := filepath.WalkDir(root, func(file string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			return addEntry(tw, srcDir, file, d, p)
		})
		if err != nil {
			return err
		}
	}

	return tw.Close()
}

func addEntry(tw *tar.Writer, srcDir, file string, d fs.DirEntry, p *Policy) error {
	fi, err := d.Info()
	if err != nil {
		return err
	}

	var link string
	if fi.Mode()&fs.ModeSymlink != 0 {
		if link, err = os.Readlink(file); err != nil {
			return err
		}
	}

	hdr, err := tar.FileInfoHeader(fi, link)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(srcDir, file)
	if err != nil {
		return err
	}
	hdr.Name = filepath.ToSlash(rel)

	if !p.Filter(hdr) {
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if hdr.Typeflag != tar.TypeReg {
		return nil
	}

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}

// WriteFile writes the xz compressed archive of entries to path. A partial
// file is removed on failure.
func WriteFile(path, srcDir string, entries []string, p *Policy) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	// From here on the file is ours to remove.
	defer func() {
		if err != nil {
			_ = os.Remove(path)
			err = fmt.Errorf("%w: %w", ErrWrite, err)
		}
	}()

	xw, err := xz.NewWriter(f)
	if err != nil {
		f.Close()
		return err
	}
	if err := Write(xw, srcDir, entries, p); err != nil {
		xw.Close()
		f.Close()
		return err
	}
	if err := xw.Close(); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
