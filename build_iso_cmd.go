package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/redhat/ddiskit/internal/iso"
	"github.com/redhat/ddiskit/internal/l10n"
)

// defaultISOInputs are searched for packages when none are named.
var defaultISOInputs = []string{"rpm/RPMS/", "rpm/SRPMS/"}

func buildISOCommand() *cli.Command {
	return &cli.Command{
		Name:      "build_iso",
		Usage:     l10n.T("Build iso"),
		ArgsUsage: l10n.T("[RPM or directory]..."),
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "isofile",
				Aliases: []string{"i"},
				Usage:   l10n.T("output file name"),
			},
		},
		Action: moduleAction(loadOptions{}, buildISO),
	}
}

func buildISO(c *cli.Context, s *session) error {
	inputs := c.Args().Slice()
	if len(inputs) == 0 {
		inputs = defaultISOInputs
	}

	tools, err := s.tools()
	if err != nil {
		return err
	}

	collector := &iso.Collector{
		Prober:        tools,
		IncludeSource: s.store.GetBool("global.include_srpm").IsTrue(),
		Progress:      s.stdout,
	}
	stop := s.spin(l10n.T("Inspecting packages"))
	pkgs, err := collector.Collect(inputs)
	stop()
	if err != nil {
		return err
	}
	if len(pkgs) == 0 {
		return fmt.Errorf("no packages found in %v", inputs)
	}
	fmt.Fprintln(s.stdout, l10n.TN("%d package collected", "%d packages collected", uint32(len(pkgs)), len(pkgs)))

	name := s.store.Get("isofile")
	if name == "" {
		name = iso.Name(s.store, s.haveModule)
	}

	a := &iso.Assembler{Tools: tools, Progress: s.stdout}
	return a.Assemble(pkgs, name)
}
