package main

import (
	"github.com/urfave/cli/v2"

	"github.com/redhat/ddiskit/internal/config"
	"github.com/redhat/ddiskit/internal/l10n"
	"github.com/redhat/ddiskit/internal/specfile"
)

func generateSpecCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate_spec",
		Usage: l10n.T("Generate spec file"),
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "spec-template",
				Aliases: []string{"t"},
				Usage:   l10n.T("RPM spec file template"),
			},
		},
		Action: moduleAction(loadOptions{requireModule: true}, generateSpec),
	}
}

func generateSpec(_ *cli.Context, s *session) error {
	g := &specfile.Generator{
		SrcDir:       "src",
		KernelSrcDir: s.settings.KernelSrcDir,
		Progress:     s.stdout,
	}
	tmpl := config.ResolvePath(s.store.Get("spec_template"), s.store.Get("template_dir"), ".", "")
	return g.Generate(s.store, tmpl, specfile.SpecPath(s.store))
}
