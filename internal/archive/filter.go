// Package archive packs a module source tree into the .tar.xz source
// archive consumed by rpmbuild.
package archive

import (
	"archive/tar"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"
)

const (
	// DirMode and FileMode are forced on every archive entry.
	DirMode  = 0755
	FileMode = 0644

	// Owner is the user and group name of every archive entry.
	Owner = "nobody"
	// OwnerID is the uid and gid of Owner.
	OwnerID = 65534

	// FirmwareDir entries are exempt from the source pattern check.
	FirmwareDir = "firmware"

	// DefaultPatterns matches the file names expected in a module source
	// tree.
	DefaultPatterns = `^Kbuild$|^Kconfig$|^Makefile$|^.*\.[ch]$`
)

// Policy decides which entries go into an archive and how their headers
// look.
type Policy struct {
	// Prefix is prepended to every entry name, normally the
	// name-vendor-version of the package.
	Prefix string
	// All includes hidden files and directories.
	All bool
	// Strict drops files that do not match Patterns instead of only
	// reporting them.
	Strict bool
	// Patterns matches the base names of expected source files.
	Patterns *regexp.Regexp
	// ModTime is set on every entry; the current time when zero.
	ModTime time.Time

	// Unexpected collects the names of files that did not match Patterns.
	Unexpected []string
}

// Filter normalizes hdr in place. It returns false when the entry, and for
// directories everything below it, must be left out. hdr.Name must be the
// slash separated path relative to the archive root.
func (p *Policy) Filter(hdr *tar.Header) bool {
	name := strings.TrimSuffix(hdr.Name, "/")
	isDir := hdr.Typeflag == tar.TypeDir

	if !p.All && isHidden(name) {
		slog.Info("skipping hidden file", "name", name)
		return false
	}

	if hdr.Typeflag == tar.TypeReg && topLevel(name) != FirmwareDir && p.Patterns != nil &&
		!p.Patterns.MatchString(path.Base(name)) {
		p.Unexpected = append(p.Unexpected, name)
		slog.Warn("unexpected file", "name", name, "excluded", p.Strict)
		if p.Strict {
			return false
		}
	}

	hdr.Mode = FileMode
	if isDir {
		hdr.Mode = DirMode
	}
	hdr.Uname, hdr.Gname = Owner, Owner
	hdr.Uid, hdr.Gid = OwnerID, OwnerID
	hdr.ModTime = p.ModTime
	if hdr.ModTime.IsZero() {
		hdr.ModTime = time.Now()
	}
	hdr.AccessTime, hdr.ChangeTime = time.Time{}, time.Time{}

	hdr.Name = path.Join(p.Prefix, name)
	if isDir {
		hdr.Name += "/"
	}
	slog.Debug("adding", "name", hdr.Name)

	return true
}

func isHidden(name string) bool {
	for _, part := range strings.Split(name, "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}

func topLevel(name string) string {
	top, _, _ := strings.Cut(name, "/")
	return top
}
