package main

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"
)

// spin shows a spinner with msg on stderr until the returned function is
// called. Nothing is shown when stderr is not a terminal, the spinner is
// disabled in the tool settings, or verbose output is on.
func (s *session) spin(msg string) func() {
	if !s.settings.Spinner || s.verbosity > 0 || !term.IsTerminal(int(os.Stderr.Fd())) {
		return func() {}
	}

	sp := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	sp.Suffix = " " + msg
	sp.Start()
	return sp.Stop
}
