package tool

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/redhat/ddiskit/internal/conf"
)

var (
	// ErrQuiltDeapply is returned when applied patches cannot be popped.
	ErrQuiltDeapply = errors.New("failed to de-apply quilt patches")
	// ErrQuiltApply is returned when saved patches cannot be pushed back.
	ErrQuiltApply = errors.New("failed to re-apply quilt patches")
)

// Tools are the configured external programs.
type Tools struct {
	Runner *Runner

	RPMBuild   Command
	RPM        Command
	Quilt      Command
	Createrepo Command
	Mkisofs    Command
}

// New parses the tool command lines of c.
func New(c conf.Config, r *Runner) (*Tools, error) {
	t := &Tools{Runner: r}
	for _, tc := range []struct {
		dst  *Command
		line string
	}{
		{&t.RPMBuild, c.RPMBuild},
		{&t.RPM, c.RPM},
		{&t.Quilt, c.Quilt},
		{&t.Createrepo, c.Createrepo},
		{&t.Mkisofs, c.Mkisofs},
	} {
		cmd, err := ParseCommand(tc.line)
		if err != nil {
			return nil, err
		}
		*tc.dst = cmd
	}
	return t, nil
}

// Arch queries the target architecture of a package file.
func (t *Tools) Arch(pkg string) (string, error) {
	out, err := t.Runner.Output("", t.RPM, "-q", "--qf", "%{ARCH}", "-p", pkg)
	if err != nil {
		return "", fmt.Errorf("failed to query architecture of %s: %w", pkg, err)
	}
	return strings.TrimSpace(out), nil
}

// CreateRepo generates repository metadata in dir.
func (t *Tools) CreateRepo(dir string) error {
	return t.Runner.Run("", t.Createrepo, "--pretty", dir)
}

// MakeISO runs the ISO mastering tool with args.
func (t *Tools) MakeISO(args ...string) error {
	return t.Runner.Run("", t.Mkisofs, args...)
}

// RPMBuilder builds packages from one spec file.
type RPMBuilder struct {
	tools  *Tools
	topDir string
	spec   string
}

// Builder returns an RPMBuilder for spec using topDir as the rpmbuild
// top directory. topDir is made absolute.
func (t *Tools) Builder(topDir, spec string) (*RPMBuilder, error) {
	abs, err := filepath.Abs(topDir)
	if err != nil {
		return nil, err
	}
	return &RPMBuilder{tools: t, topDir: abs, spec: spec}, nil
}

func (b *RPMBuilder) run(args ...string) error {
	args = append([]string{"--define", "_topdir " + b.topDir}, args...)
	return b.tools.Runner.Run("", b.tools.RPMBuild, append(args, b.spec)...)
}

// Check verifies that the build dependencies of the spec file are met on
// this host without building anything.
func (b *RPMBuilder) Check() error {
	return b.run("--nobuild", "-bc")
}

// Binary builds binary and source packages for arch.
func (b *RPMBuilder) Binary(arch string) error {
	return b.tools.Runner.Run("", b.tools.RPMBuild,
		"--target", arch, "--define", "_topdir "+b.topDir, "-ba", b.spec)
}

// Source builds the source package only.
func (b *RPMBuilder) Source() error {
	return b.run("-bs")
}

// QuiltSeries de-applies and re-applies the quilt patches of one series.
type QuiltSeries struct {
	tools *Tools
	dir   string
	saved []string
}

// Series returns the quilt series rooted at dir.
func (t *Tools) Series(dir string) *QuiltSeries {
	return &QuiltSeries{tools: t, dir: dir}
}

// Deapply pops all applied patches and remembers them for Reapply. When
// quilt cannot tell which patches are applied, nothing is popped.
func (q *QuiltSeries) Deapply() error {
	q.saved = nil

	out, err := q.tools.Runner.Output(q.dir, q.tools.Quilt, "applied")
	if err != nil {
		slog.Warn("quilt returned an error, not de-applying patches", "dir", q.dir, "status", ExitStatus(err))
		return nil
	}
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			q.saved = append(q.saved, line)
		}
	}
	if len(q.saved) == 0 {
		return nil
	}

	if err := q.tools.Runner.Run(q.dir, q.tools.Quilt, "pop", "-a"); err != nil {
		return fmt.Errorf("%w: %w", ErrQuiltDeapply, err)
	}
	return nil
}

// Applied returns the patches saved by Deapply.
func (q *QuiltSeries) Applied() []string {
	return q.saved
}

// Reapply pushes the patches saved by Deapply, in order. Every patch is
// attempted even when an earlier one fails.
func (q *QuiltSeries) Reapply() error {
	if len(q.saved) == 0 {
		slog.Info("no quilt patches were applied, nothing to restore")
		return nil
	}

	var errs []error
	for _, p := range q.saved {
		if err := q.tools.Runner.Run(q.dir, q.tools.Quilt, "push", p); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrQuiltApply, errors.Join(errs...))
	}
	return nil
}
