package main

import (
	"errors"
	"io/fs"

	"github.com/urfave/cli/v2"

	"github.com/redhat/ddiskit/internal/archive"
	"github.com/redhat/ddiskit/internal/check"
	"github.com/redhat/ddiskit/internal/config"
	"github.com/redhat/ddiskit/internal/iso"
	"github.com/redhat/ddiskit/internal/specfile"
	"github.com/redhat/ddiskit/internal/tool"
)

// Exit codes, compatible with earlier ddiskit releases.
const (
	exitGeneric          = 1
	exitArgs             = 2
	exitConfigCheck      = 3
	exitQuiltDeapply     = 4
	exitQuiltApply       = 5
	exitIO               = 32
	exitConfigRead       = 34
	exitConfigWrite      = 35
	exitSpecTemplateRead = 36
	exitSpecRead         = 38
	exitSpecWrite        = 39
	exitArchiveWrite     = 41
	exitMakefileNotFound = 42
	exitDiskIDWrite      = 45
)

var (
	errConfigWrite      = errors.New("failed to write config file")
	errSpecRead         = errors.New("spec file not found")
	errMakefileNotFound = errors.New("Makefile not found")
)

var exitCodes = []struct {
	err  error
	code int
}{
	{check.ErrCritical, exitConfigCheck},
	{tool.ErrQuiltDeapply, exitQuiltDeapply},
	{tool.ErrQuiltApply, exitQuiltApply},
	{config.ErrModuleConfigRead, exitConfigRead},
	{config.ErrNoModuleConfig, exitConfigRead},
	{errConfigWrite, exitConfigWrite},
	{specfile.ErrTemplateRead, exitSpecTemplateRead},
	{errSpecRead, exitSpecRead},
	{specfile.ErrSpecWrite, exitSpecWrite},
	{archive.ErrWrite, exitArchiveWrite},
	{errMakefileNotFound, exitMakefileNotFound},
	{iso.ErrMarkerWrite, exitDiskIDWrite},
}

// exitCode picks the exit code for err. Known failure categories come first,
// then the exit status of a failed external tool, then generic I/O errors.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	for _, ec := range exitCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}

	var status interface{ ExitStatus() int }
	if errors.As(err, &status) {
		if code := tool.ExitStatus(err); code != 0 {
			return code
		}
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return exitIO
	}

	return exitGeneric
}

// exitError wraps err so that urfave/cli exits with its code.
func exitError(err error) error {
	if err == nil {
		return nil
	}
	return cli.Exit(err.Error(), exitCode(err))
}
