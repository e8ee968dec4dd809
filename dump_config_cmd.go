package main

import (
	"github.com/urfave/cli/v2"

	"github.com/redhat/ddiskit/internal/l10n"
)

func dumpConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "dump_config",
		Usage: l10n.T("Dump derived configuration"),
		Flags: []cli.Flag{
			configFlag(),
			dumpConfigNameFlag(),
		},
		Action: moduleAction(loadOptions{}, func(_ *cli.Context, s *session) error {
			// With -d the wrapper dumps on its own.
			if s.store.GetBool("dump_config").IsTrue() {
				return nil
			}
			return s.dump()
		}),
	}
}
