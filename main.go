package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/redhat/ddiskit/internal/conf"
	"github.com/redhat/ddiskit/internal/l10n"
)

// Version is set at build time.
var Version = "3.3"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitArgs)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "ddiskit"
	app.Version = Version
	app.Usage = l10n.T("Red Hat tool for creating Driver Update Disks")
	app.UseShortOptionHandling = true
	app.HideHelpCommand = true

	// -v counts verbosity, so the version flag keeps only its long form.
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version",
		Usage: l10n.T("print the version"),
	}

	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbosity",
			Aliases: []string{"v"},
			Usage:   l10n.T("increase output verbosity"),
			Count:   new(int),
		},
		&cli.StringFlag{
			Name:    "profile",
			Aliases: []string{"p"},
			Usage:   l10n.T("configuration profile to use"),
		},
		&cli.StringFlag{
			Name:    "res-dir",
			Aliases: []string{"R"},
			Usage:   l10n.T("resources directory"),
		},
		&cli.StringFlag{
			Name:    "template-dir",
			Aliases: []string{"T"},
			Usage:   l10n.T("templates directory"),
		},
		&cli.StringFlag{
			Name:    "profile-dir",
			Aliases: []string{"P"},
			Usage:   l10n.T("profiles directory"),
		},
		&cli.BoolFlag{
			Name:    "dump-config",
			Aliases: []string{"d"},
			Usage:   l10n.T("dump derived configuration after command execution"),
		},
		dumpConfigNameFlag(),
		&cli.BoolFlag{
			Name:    "quilt-enable",
			Aliases: []string{"q"},
			Usage:   l10n.T("enable quilt integration"),
		},
		&cli.BoolFlag{
			Name:    "quilt-disable",
			Aliases: []string{"Q"},
			Usage:   l10n.T("disable quilt integration"),
		},
	}

	app.Commands = []*cli.Command{
		prepareSourcesCommand(),
		generateSpecCommand(),
		buildRPMCommand(),
		buildISOCommand(),
		dumpConfigCommand(),
	}
	app.Before = beforeAction
	app.Action = func(c *cli.Context) error {
		if err := cli.ShowAppHelp(c); err != nil {
			return err
		}
		return cli.Exit("", exitArgs)
	}

	return app
}

// beforeAction sets up logging. Every -v lowers the threshold by one level
// from the configured one.
func beforeAction(c *cli.Context) error {
	level := conf.Configuration.LogLevel - slog.Level(4*c.Count("verbosity"))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   l10n.T("module config file"),
		Value:   "module.config",
	}
}

func dumpConfigNameFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "dump-config-name",
		Aliases: []string{"o"},
		Usage:   l10n.T("name of the config dump file"),
	}
}
