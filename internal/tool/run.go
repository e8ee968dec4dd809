// Package tool runs the external programs ddiskit drives: rpmbuild, rpm,
// quilt, createrepo and mkisofs.
package tool

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/shlex"
	"github.com/magefile/mage/sh"
)

// Command is a program followed by its leading arguments.
type Command []string

// ParseCommand splits a configured command line with shell quoting rules.
func ParseCommand(line string) (Command, error) {
	args, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command %q: %w", line, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	return Command(args), nil
}

// With returns the full argument list for running c with args appended.
func (c Command) With(args ...string) []string {
	full := make([]string, 0, len(c)+len(args))
	full = append(full, c...)
	return append(full, args...)
}

func (c Command) String() string {
	return strings.Join(c, " ")
}

// InDir runs fn with dir as the working directory of the process. The
// previous working directory is restored before InDir returns, also when fn
// fails. An empty dir runs fn in place.
func InDir(dir string, fn func() error) (err error) {
	if dir == "" || dir == "." {
		return fn()
	}

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	if err := os.Chdir(dir); err != nil {
		return err
	}
	defer func() {
		if cerr := os.Chdir(cwd); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to restore working directory %s: %w", cwd, cerr))
		}
	}()

	return fn()
}

// Runner executes commands, forwarding their output.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout == nil {
		return os.Stdout
	}
	return r.Stdout
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr == nil {
		return os.Stderr
	}
	return r.Stderr
}

// Run executes c with args in dir.
func (r *Runner) Run(dir string, c Command, args ...string) error {
	return r.exec(dir, r.stdout(), c, args)
}

// Output executes c with args in dir and returns its standard output
// without the trailing newline.
func (r *Runner) Output(dir string, c Command, args ...string) (string, error) {
	var buf bytes.Buffer
	err := r.exec(dir, &buf, c, args)
	return strings.TrimSuffix(buf.String(), "\n"), err
}

func (r *Runner) exec(dir string, stdout io.Writer, c Command, args []string) error {
	if len(c) == 0 {
		return fmt.Errorf("empty command")
	}
	full := c.With(args...)
	slog.Debug("running command", "cmd", strings.Join(full, " "), "dir", dir)

	return InDir(dir, func() error {
		_, err := sh.Exec(nil, stdout, r.stderr(), full[0], full[1:]...)
		return err
	})
}

// ExitStatus returns the exit status of a failed command anywhere in the
// chain of err, 1 for other errors and 0 for nil.
func ExitStatus(err error) int {
	var status interface{ ExitStatus() int }
	if errors.As(err, &status) {
		return status.ExitStatus()
	}
	return sh.ExitStatus(err)
}
