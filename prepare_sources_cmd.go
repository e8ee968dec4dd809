package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/redhat/ddiskit/internal/config"
	"github.com/redhat/ddiskit/internal/l10n"
)

var (
	rpmDirs = []string{
		"rpm",
		"rpm/BUILD",
		"rpm/BUILDROOT",
		"rpm/RPMS",
		"rpm/SOURCES",
		"rpm/SPECS",
		"rpm/SRPMS",
	}
	srcDirs = []string{
		"src",
		"src/patches",
		"src/firmware",
	}
)

func prepareSourcesCommand() *cli.Command {
	return &cli.Command{
		Name:  "prepare_sources",
		Usage: l10n.T("Prepare sources"),
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "config-template",
				Aliases: []string{"t"},
				Usage:   l10n.T("config file template"),
			},
		},
		// A freshly seeded config still holds placeholders, so it is not
		// validated here.
		Action: moduleAction(loadOptions{skipCheck: true}, prepareSources),
	}
}

func prepareSources(c *cli.Context, s *session) error {
	if err := seedConfig(s, c.String("config")); err != nil {
		return err
	}

	createDirs(s, rpmDirs, l10n.T("Creating directory structure for RPM build"))
	createDirs(s, srcDirs, l10n.T("Creating directory structure for source code"))

	fmt.Fprintln(s.stdout, l10n.T("Put your module source code in src directory."))
	return nil
}

// seedConfig copies the config template to path unless path exists.
func seedConfig(s *session, path string) error {
	fmt.Fprint(s.stdout, l10n.T("Writing new config file (%s)... ", path))
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintln(s.stdout, l10n.T("File exists"))
		return nil
	}

	tmpl := config.ResolvePath(s.store.Get("config_template"), s.store.Get("template_dir"), ".", "")
	data, err := os.ReadFile(tmpl)
	if err != nil {
		fmt.Fprintln(s.stdout, l10n.T("FAIL"))
		return fmt.Errorf("%w: %w", errConfigWrite, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		fmt.Fprintln(s.stdout, l10n.T("FAIL"))
		return fmt.Errorf("%w: %w", errConfigWrite, err)
	}
	fmt.Fprintln(s.stdout, l10n.T("OK"))
	return nil
}

// createDirs creates dirs, reporting failures without stopping. It reports
// whether all directories exist afterwards.
func createDirs(s *session, dirs []string, caption string) bool {
	fmt.Fprint(s.stdout, caption+" ... ")
	ok := true
	for _, dir := range dirs {
		if err := os.MkdirAll(filepath.FromSlash(dir), 0755); err != nil {
			if ok {
				fmt.Fprintln(s.stdout)
			}
			fmt.Fprintln(s.stdout, err)
			ok = false
		}
	}
	if ok {
		fmt.Fprintln(s.stdout, l10n.T("OK"))
	}
	return ok
}
