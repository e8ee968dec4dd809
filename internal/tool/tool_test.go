package tool

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/redhat/ddiskit/internal/conf"
)

// fakeTool writes an executable shell script that appends its working
// directory and arguments to log and then runs body.
func fakeTool(t *testing.T, dir, name, log, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\necho \"$(pwd)|$*\" >> '" + log + "'\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func readLog(t *testing.T, log string) []string {
	t.Helper()
	data, err := os.ReadFile(log)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in      string
		want    Command
		wantErr bool
	}{
		{in: "rpmbuild", want: Command{"rpmbuild"}},
		{in: "xorriso -as mkisofs", want: Command{"xorriso", "-as", "mkisofs"}},
		{in: `rpmbuild --define "dist .el7"`, want: Command{"rpmbuild", "--define", "dist .el7"}},
		{in: "", wantErr: true},
		{in: `quilt "unterminated`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCommand(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseCommand() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInDir_RestoresWorkingDirectory(t *testing.T) {
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	boom := errors.New("boom")

	var inside string
	err = InDir(dir, func() error {
		inside, _ = os.Getwd()
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected the error of fn, got %v", err)
	}
	if resolved, _ := filepath.EvalSymlinks(dir); inside != dir && inside != resolved {
		t.Errorf("fn ran in %s, want %s", inside, dir)
	}
	if now, _ := os.Getwd(); now != cwd {
		t.Errorf("working directory not restored: %s, want %s", now, cwd)
	}

	if err := InDir(filepath.Join(dir, "missing"), func() error { return nil }); err == nil {
		t.Error("expected error for a missing directory")
	}
	if now, _ := os.Getwd(); now != cwd {
		t.Errorf("working directory changed: %s, want %s", now, cwd)
	}
}

func TestRunner(t *testing.T) {
	dir := t.TempDir()
	log := filepath.Join(dir, "log")
	ok := fakeTool(t, dir, "ok", log, "echo out; echo err >&2")
	fail := fakeTool(t, dir, "fail", log, "exit 3")

	var stdout, stderr bytes.Buffer
	r := &Runner{Stdout: &stdout, Stderr: &stderr}

	if err := r.Run("", Command{ok, "--flag"}, "arg"); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if stdout.String() != "out\n" || stderr.String() != "err\n" {
		t.Errorf("stdout %q, stderr %q", stdout.String(), stderr.String())
	}

	out, err := r.Output(dir, Command{ok})
	if err != nil || out != "out" {
		t.Errorf("Output() = %q, %v", out, err)
	}

	err = r.Run("", Command{fail})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := ExitStatus(err); got != 3 {
		t.Errorf("ExitStatus() = %d, want 3", got)
	}
	if got := ExitStatus(errors.Join(errors.New("context"), err)); got != 3 {
		t.Errorf("ExitStatus() of a wrapped error = %d, want 3", got)
	}

	calls := readLog(t, log)
	if len(calls) != 3 || !strings.HasSuffix(calls[0], "|--flag arg") {
		t.Errorf("unexpected calls: %q", calls)
	}
}

func testTools(t *testing.T, dir, log string, bodies map[string]string) *Tools {
	t.Helper()
	settings := conf.Defaults()
	for name, dst := range map[string]*string{
		"rpmbuild":   &settings.RPMBuild,
		"rpm":        &settings.RPM,
		"quilt":      &settings.Quilt,
		"createrepo": &settings.Createrepo,
		"mkisofs":    &settings.Mkisofs,
	} {
		*dst = fakeTool(t, dir, name, log, bodies[name])
	}

	tools, err := New(settings, &Runner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return tools
}

func TestTools_Arch(t *testing.T) {
	dir := t.TempDir()
	log := filepath.Join(dir, "log")
	tools := testTools(t, dir, log, map[string]string{"rpm": `printf x86_64`})

	arch, err := tools.Arch("/tmp/kmod-e1000e.rpm")
	if err != nil || arch != "x86_64" {
		t.Errorf("Arch() = %q, %v", arch, err)
	}
	calls := readLog(t, log)
	if len(calls) != 1 || !strings.HasSuffix(calls[0], "|-q --qf %{ARCH} -p /tmp/kmod-e1000e.rpm") {
		t.Errorf("unexpected calls: %q", calls)
	}
}

func TestRPMBuilder(t *testing.T) {
	dir := t.TempDir()
	log := filepath.Join(dir, "log")
	tools := testTools(t, dir, log, nil)

	b, err := tools.Builder(filepath.Join(dir, "rpm"), "rpm/SPECS/e1000e.spec")
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Check(); err != nil {
		t.Fatal(err)
	}
	if err := b.Binary("x86_64"); err != nil {
		t.Fatal(err)
	}
	if err := b.Source(); err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, call := range readLog(t, log) {
		_, args, _ := strings.Cut(call, "|")
		got = append(got, args)
	}
	topDir := filepath.Join(dir, "rpm")
	want := []string{
		"--define _topdir " + topDir + " --nobuild -bc rpm/SPECS/e1000e.spec",
		"--target x86_64 --define _topdir " + topDir + " -ba rpm/SPECS/e1000e.spec",
		"--define _topdir " + topDir + " -bs rpm/SPECS/e1000e.spec",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rpmbuild calls mismatch (-want +got):\n%s", diff)
	}
}

func TestQuiltSeries(t *testing.T) {
	tests := []struct {
		name        string
		quilt       string
		wantCalls   []string
		wantDeapply error
		wantApply   error
	}{
		{
			name: "patches applied",
			quilt: `case "$1" in
applied) printf 'patches/0000-init.patch\npatches/0001-fix.patch\n' ;;
esac`,
			wantCalls: []string{
				"applied",
				"pop -a",
				"push patches/0000-init.patch",
				"push patches/0001-fix.patch",
			},
		},
		{
			name:      "quilt cannot tell",
			quilt:     `[ "$1" = applied ] && exit 2; exit 0`,
			wantCalls: []string{"applied"},
		},
		{
			name: "pop fails",
			quilt: `case "$1" in
applied) echo p.patch ;;
pop) exit 1 ;;
esac`,
			wantCalls:   []string{"applied", "pop -a", "push p.patch"},
			wantDeapply: ErrQuiltDeapply,
		},
		{
			name: "push fails",
			quilt: `case "$1" in
applied) printf 'a.patch\nb.patch\n' ;;
push) exit 1 ;;
esac`,
			wantCalls: []string{"applied", "pop -a", "push a.patch", "push b.patch"},
			wantApply: ErrQuiltApply,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			seriesDir := filepath.Join(dir, "src")
			if err := os.Mkdir(seriesDir, 0755); err != nil {
				t.Fatal(err)
			}
			log := filepath.Join(dir, "log")
			tools := testTools(t, dir, log, map[string]string{"quilt": tt.quilt})

			q := tools.Series(seriesDir)
			if err := q.Deapply(); !errors.Is(err, tt.wantDeapply) {
				t.Errorf("Deapply() = %v, want %v", err, tt.wantDeapply)
			}
			if err := q.Reapply(); !errors.Is(err, tt.wantApply) {
				t.Errorf("Reapply() = %v, want %v", err, tt.wantApply)
			}

			var got []string
			for _, call := range readLog(t, log) {
				wd, args, _ := strings.Cut(call, "|")
				if filepath.Base(wd) != "src" {
					t.Errorf("quilt ran in %s, want the series directory", wd)
				}
				got = append(got, args)
			}
			if diff := cmp.Diff(tt.wantCalls, got); diff != "" {
				t.Errorf("quilt calls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
