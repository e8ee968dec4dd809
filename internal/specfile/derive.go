package specfile

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/redhat/ddiskit/internal/config"
	"github.com/redhat/ddiskit/internal/kver"
)

// Section is the section template references resolve against.
const Section = "spec_file"

// DateLayout is the changelog date format used by RPM spec files.
const DateLayout = "Mon Jan 02 2006"

// SetFirmwareMarkers derives firmware_begin and firmware_end from
// firmware_include. Both are always overwritten so a replayed dump cannot
// carry a stale decision.
func SetFirmwareMarkers(s *config.Store) {
	begin := "%if 0"
	if s.GetBool("spec_file.firmware_include").IsTrue() {
		begin = "%if 1"
	}
	s.Set("spec_file.firmware_begin", begin)
	s.Set("spec_file.firmware_end", "%endif")
}

// SetDate stores the changelog date unless one is already set.
func SetDate(s *config.Store, now time.Time) {
	s.SetIfAbsent("date", now.Format(DateLayout), config.Section(Section))
}

// SetKernelRequires derives kernel_requires from kernel_version unless it
// is already set. An invalid version leaves the key unset.
func SetKernelRequires(s *config.Store) {
	req, err := kver.Requires(s.Get("spec_file.kernel_version"))
	if err != nil {
		slog.Debug("not deriving kernel requirements", "error", err)
		return
	}
	s.SetIfAbsent("kernel_requires", req, config.Section(Section))
}

// SetModuleRequires derives module_requires from the free-form
// dependencies value unless it is already set.
func SetModuleRequires(s *config.Store) {
	req := ""
	if deps := s.Get("spec_file.dependencies"); deps != "" {
		req = "Requires:\t" + deps
	}
	s.SetIfAbsent("module_requires", req, config.Section(Section))
}

// Patches lists the patch files in dir in lexicographic order. When quilt
// is true the quilt "series" file is left out. A missing directory yields
// no patches.
func Patches(dir string, quilt bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var patches []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if quilt && e.Name() == "series" {
			slog.Info("skipping quilt series file", "dir", dir)
			continue
		}
		patches = append(patches, e.Name())
	}
	sort.Strings(patches)

	return patches, nil
}

// SetPatches stores the Patch and %patch directives for patches, numbered
// from zero in the given order.
func SetPatches(s *config.Store, patches []string) {
	var decl, apply strings.Builder
	if len(patches) > 0 {
		decl.WriteString("# Source code patches")
	}
	for i, p := range patches {
		fmt.Fprintf(&decl, "\nPatch%d:\t%s", i, p)
		fmt.Fprintf(&apply, "\n%%patch%d -p1", i)
	}
	s.Set("spec_file.source_patches", decl.String())
	s.Set("spec_file.source_patches_do", apply.String())
}

// FirmwareFiles walks dir and returns the paths of all regular files
// relative to it. A missing directory yields no files.
func FirmwareFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir && os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})

	return files, err
}

// SetFirmware stores the %files entries and install commands for files.
func SetFirmware(s *config.Store, files []string) {
	var list, install strings.Builder
	for _, f := range files {
		fmt.Fprintf(&list, "/lib/firmware/%s\n", f)
		fmt.Fprintf(&install, "install -m 644 -D source/firmware/%s $RPM_BUILD_ROOT/lib/firmware/%s\n", f, f)
	}
	s.Set("spec_file.firmware_files", list.String())
	s.Set("spec_file.firmware_files_install", install.String())
}

// MissingKernelHeaders returns the kernel-devel directories under srcDir
// that are needed to build for every architecture in kernel_arch but are not
// installed.
func MissingKernelHeaders(s *config.Store, srcDir string) []string {
	version := s.Get("spec_file.kernel_version")

	var missing []string
	for _, arch := range s.GetList("spec_file.kernel_arch") {
		dir := filepath.Join(srcDir, version+"."+arch)
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			missing = append(missing, dir)
		}
	}

	return missing
}
