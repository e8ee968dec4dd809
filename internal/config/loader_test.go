package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func argsLayer(kv map[string]string) Layer {
	l := Layer{Name: "command line"}
	for k, v := range kv {
		l.Set(DefaultSection, k, v)
	}
	return l
}

func TestSource_Read_Layering(t *testing.T) {
	tmpDir := t.TempDir()
	resDir := filepath.Join(tmpDir, "res")

	writeFile(t, filepath.Join(resDir, ResourceConfig), `
[spec_file]
rpm_dist = el7
kernel_arch = x86_64
module_rpm_release = 1
`)
	writeFile(t, filepath.Join(tmpDir, "system.config"), `
[global]
module_vendor = system-vendor
module_author = System Author
`)
	writeFile(t, filepath.Join(tmpDir, "user.config"), `
[global]
module_author = User Author

[defaults]
profile = testing
`)
	writeFile(t, filepath.Join(resDir, "profiles", "testing"), `
[spec_file]
rpm_dist = el7_testing
module_rpm_release = 0
`)
	writeFile(t, filepath.Join(tmpDir, "module.config"), `
[global]
module_vendor = acme

[spec_file]
module_name = e1000e
module_rpm_release = 5
`)

	src := &Source{
		SystemFile: filepath.Join(tmpDir, "system.config"),
		UserFile:   filepath.Join(tmpDir, "user.config"),
		ModuleFile: filepath.Join(tmpDir, "module.config"),
		Args:       argsLayer(map[string]string{"res_dir": resDir, "verbosity": "1"}),
	}

	s, haveModule, err := src.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !haveModule {
		t.Fatal("expected module config to be loaded")
	}

	got := map[string]string{
		"global.module_vendor":         s.Get("global.module_vendor"),
		"global.module_author":         s.Get("global.module_author"),
		"global.module_author_email":   s.Get("global.module_author_email"),
		"spec_file.rpm_dist":           s.Get("spec_file.rpm_dist"),
		"spec_file.kernel_arch":        s.Get("spec_file.kernel_arch"),
		"spec_file.module_rpm_release": s.Get("spec_file.module_rpm_release"),
		"spec_file.module_name":        s.Get("spec_file.module_name"),
		"defaults.template_dir":        s.Get("template_dir"),
		"defaults.verbosity":           s.Get("verbosity"),
	}
	want := map[string]string{
		"global.module_vendor":         "acme",
		"global.module_author":         "User Author",
		"global.module_author_email":   "ENTER_MODULE_AUTHOR_EMAIL",
		"spec_file.rpm_dist":           "el7_testing",
		"spec_file.kernel_arch":        "x86_64",
		"spec_file.module_rpm_release": "5",
		"spec_file.module_name":        "e1000e",
		"defaults.template_dir":        resDir + "/templates",
		"defaults.verbosity":           "1",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Read() mismatch (-want +got):\n%s", diff)
	}
}

func TestSource_Read_ArgsWin(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "module.config"), `
[defaults]
quilt_support = True
tar_strict = True

[spec_file]
module_name = e1000e
`)

	src := &Source{
		ModuleFile: filepath.Join(tmpDir, "module.config"),
		Args:       argsLayer(map[string]string{"quilt_support": "False", "res_dir": tmpDir}),
	}
	s, _, err := src.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.GetBool("quilt_support") != False {
		t.Errorf("expected command line to win, got quilt_support=%q", s.Get("quilt_support"))
	}
	if !s.GetBool("tar_strict").IsTrue() {
		t.Errorf("expected module config value for an unset flag, got %q", s.Get("tar_strict"))
	}
}

func TestSource_Read_MissingModule(t *testing.T) {
	tmpDir := t.TempDir()
	src := &Source{
		ModuleFile: filepath.Join(tmpDir, "module.config"),
		Args:       argsLayer(map[string]string{"res_dir": tmpDir}),
	}

	s, haveModule, err := src.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if haveModule {
		t.Error("expected no module config")
	}
	if got := s.Get("config_template"); got != "config" {
		t.Errorf("expected built-in defaults, got config_template=%q", got)
	}
}

func TestSource_Read_BrokenModule(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unparsable", content: "[spec_file\nmodule_name = x\n"},
		{name: "empty", content: "# nothing here\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			path := filepath.Join(tmpDir, "module.config")
			writeFile(t, path, tt.content)

			src := &Source{ModuleFile: path, Args: argsLayer(map[string]string{"res_dir": tmpDir})}
			_, _, err := src.Read()
			if !errors.Is(err, ErrModuleConfigRead) {
				t.Errorf("expected ErrModuleConfigRead, got %v", err)
			}
		})
	}
}

func TestSource_Read_BrokenOptionalLayer(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "system.config"), "[global\n")
	writeFile(t, filepath.Join(tmpDir, "module.config"), "[global]\nmodule_vendor = acme\n")

	src := &Source{
		SystemFile: filepath.Join(tmpDir, "system.config"),
		ModuleFile: filepath.Join(tmpDir, "module.config"),
		Args:       argsLayer(map[string]string{"res_dir": tmpDir}),
	}
	s, _, err := src.Read()
	if err != nil {
		t.Fatalf("a broken optional layer must not fail loading: %v", err)
	}
	if got := s.Get("global.module_vendor"); got != "acme" {
		t.Errorf("module_vendor = %q", got)
	}
}

func TestParseLayer(t *testing.T) {
	data := `
[Spec_File]
Module_Name = e1000e
description = A driver with a % sign; and a # hash
kernel_requires = first line
	second line
kernel_arch = x86_64 ppc64le
module_summary = "Foo"

[bad.section]
key = value
`
	l, err := ParseLayer("test", []byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]map[string]string{
		"spec_file": {
			"module_name":     "e1000e",
			"description":     "A driver with a % sign; and a # hash",
			"kernel_requires": "first line\n\tsecond line",
			"kernel_arch":     "x86_64 ppc64le",
			"module_summary":  `"Foo"`,
		},
		"bad.section": {"key": "value"},
	}
	if diff := cmp.Diff(want, l.Sections); diff != "" {
		t.Errorf("ParseLayer() mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_DumpRoundTrip(t *testing.T) {
	s := New()
	s.Set("defaults.template_dir", "{res_dir}/templates")
	s.Set("spec_file.kernel_requires", "Requires:\tkernel >= 3.10.0-123.el7\nRequires:\tkernel < 3.10.0-124.el7")
	s.Set("spec_file.firmware_files", "/lib/firmware/a.bin\n/lib/firmware/b/c.bin\n")
	s.Set("spec_file.date", "Mon Jan 02 2006")
	s.Set("spec_file.module_requires", "")
	s.Set("spec_file.src_patterns", "^Kbuild$|^.*\\.[ch]$")
	s.Set("spec_file.module_summary", `"quoted summary"`)
	s.Set("spec_file.module_license", "'GPLv2'")

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() failed: %v", err)
	}

	l, err := ParseLayer("dump", buf.Bytes())
	if err != nil {
		t.Fatalf("failed to parse dump: %v\n%s", err, buf.String())
	}

	if diff := cmp.Diff(s.sections, Fold(l).sections); diff != "" {
		t.Errorf("dump round trip mismatch (-want +got):\n%s\ndump:\n%s", diff, buf.String())
	}
}

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name, defaultDir, relDir, ext string
		want                          string
	}{
		{name: "spec", defaultDir: "/usr/share/ddiskit/templates", relDir: ".", want: "/usr/share/ddiskit/templates/spec"},
		{name: "rh-release", defaultDir: "/res//profiles", relDir: ".", want: "/res/profiles/rh-release"},
		{name: "./my-spec", defaultDir: "/res/templates", relDir: ".", want: "my-spec"},
		{name: "tmpl/spec", defaultDir: "/res/templates", relDir: "/work", want: "/work/tmpl/spec"},
		{name: "/abs/spec", defaultDir: "/res/templates", relDir: "/work", want: "/abs/spec"},
		{name: "local", defaultDir: "/cfg", relDir: ".", ext: ".cfg", want: "/cfg/local.cfg"},
		{name: "local.cfg", defaultDir: "/cfg", relDir: "/work", ext: ".cfg", want: "/work/local.cfg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolvePath(tt.name, tt.defaultDir, tt.relDir, tt.ext); got != tt.want {
				t.Errorf("ResolvePath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuiltin(t *testing.T) {
	s := Fold(Builtin())

	if got := s.Get("src_patterns"); got != `^Kbuild$|^Kconfig$|^Makefile$|^.*\.[ch]$` {
		t.Errorf("src_patterns = %q", got)
	}
	if !s.GetBool("quilt_support").IsTrue() {
		t.Error("quilt support should be on by default")
	}
	if got := s.Get("profile_dir"); got != "/usr/share/ddiskit//profiles" {
		t.Errorf("profile_dir = %q", got)
	}
}
