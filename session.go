package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/redhat/ddiskit/internal/check"
	"github.com/redhat/ddiskit/internal/conf"
	"github.com/redhat/ddiskit/internal/config"
	"github.com/redhat/ddiskit/internal/l10n"
	"github.com/redhat/ddiskit/internal/tool"
)

// session is the state shared by one command invocation.
type session struct {
	store      *config.Store
	haveModule bool
	settings   conf.Config
	verbosity  int

	stdout io.Writer
	stderr io.Writer
}

// flagKeys maps command line flags to the defaults keys they set.
var flagKeys = map[string]string{
	"profile":          "profile",
	"res-dir":          "res_dir",
	"template-dir":     "template_dir",
	"profile-dir":      "profile_dir",
	"dump-config":      "dump_config",
	"dump-config-name": "dump_config_name",
	"config-template":  "config_template",
	"spec-template":    "spec_template",
	"tar-all":          "tar_all",
	"tar-strict":       "tar_strict",
	"srpm":             "srpm",
	"isofile":          "isofile",
}

// boolFlags are rendered with config.FormatBool.
var boolFlags = map[string]bool{
	"dump-config": true,
	"tar-all":     true,
	"tar-strict":  true,
	"srpm":        true,
}

// argsLayer returns the configuration layer of the command line. Only flags
// given explicitly are included, so defaults of the flag parser never shadow
// configuration files. Subcommand flags win over global ones of the same name.
func argsLayer(c *cli.Context) config.Layer {
	l := config.Layer{Name: "command line"}
	l.Set(config.DefaultSection, "config", c.String("config"))
	l.Set(config.DefaultSection, "verbosity", strconv.Itoa(c.Count("verbosity")))

	lineage := c.Lineage()
	for i := len(lineage) - 1; i >= 0; i-- {
		ctx := lineage[i]
		if ctx.Command == nil {
			continue
		}
		set := map[string]bool{}
		for _, name := range ctx.LocalFlagNames() {
			set[name] = true
		}

		for _, f := range ctx.Command.Flags {
			names := f.Names()
			if !slices.ContainsFunc(names, func(n string) bool { return set[n] }) {
				continue
			}

			name := names[0]
			switch name {
			case "quilt-enable":
				l.Set(config.DefaultSection, "quilt_support", config.FormatBool(true))
				continue
			case "quilt-disable":
				l.Set(config.DefaultSection, "quilt_support", config.FormatBool(false))
				continue
			}

			key, ok := flagKeys[name]
			if !ok {
				continue
			}
			if boolFlags[name] {
				l.Set(config.DefaultSection, key, config.FormatBool(ctx.Bool(name)))
			} else {
				l.Set(config.DefaultSection, key, ctx.String(name))
			}
		}
	}

	return l
}

type loadOptions struct {
	// skipCheck disables validation of the module config.
	skipCheck bool
	// requireModule fails the command when no module config was loaded.
	requireModule bool
}

// newSession loads the configuration for the command of c.
func newSession(c *cli.Context, opts loadOptions) (*session, error) {
	src := config.DefaultSource(c.String("config"), argsLayer(c))
	return loadSession(c, src, opts)
}

func loadSession(c *cli.Context, src *config.Source, opts loadOptions) (*session, error) {
	store, haveModule, err := src.Read()
	if err != nil {
		return nil, err
	}

	if opts.requireModule && !haveModule {
		return nil, fmt.Errorf("%w: %s, use \"ddiskit prepare_sources\" to create it", config.ErrNoModuleConfig, src.ModuleFile)
	}
	if haveModule && !opts.skipCheck {
		if err := check.Check(store); err != nil {
			return nil, err
		}
	}

	s := &session{
		store:      store,
		haveModule: haveModule,
		settings:   conf.Configuration,
		verbosity:  c.Count("verbosity"),
		stdout:     c.App.Writer,
		stderr:     c.App.ErrWriter,
	}
	if s.stdout == nil {
		s.stdout = os.Stdout
	}
	if s.stderr == nil {
		s.stderr = os.Stderr
	}
	slog.Debug("configuration loaded", "module", haveModule, "sections", store.Sections())

	return s, nil
}

// tools returns the configured external programs.
func (s *session) tools() (*tool.Tools, error) {
	return tool.New(s.settings, &tool.Runner{Stdout: s.stdout, Stderr: s.stderr})
}

// dumpName is where the merged configuration is written.
func (s *session) dumpName() string {
	return s.store.Get("dump_config_name", config.Default(s.store.Get("config")+".generated"))
}

// dump writes the merged configuration.
func (s *session) dump() error {
	name := s.dumpName()
	fmt.Fprint(s.stdout, l10n.T("Dumping config ... "))
	if err := s.store.Dump(name); err != nil {
		fmt.Fprintln(s.stdout, l10n.T("Failed"))
		return fmt.Errorf("%w: %w", errConfigWrite, err)
	}
	fmt.Fprintln(s.stdout, l10n.T("OK"))
	return nil
}

// moduleAction wraps a command body: it loads the configuration, runs fn,
// optionally dumps the configuration and turns errors into exit codes.
func moduleAction(opts loadOptions, fn func(c *cli.Context, s *session) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		s, err := newSession(c, opts)
		if err != nil {
			return exitError(err)
		}
		if err := fn(c, s); err != nil {
			return exitError(err)
		}
		if s.store.GetBool("dump_config").IsTrue() {
			if err := s.dump(); err != nil {
				return exitError(err)
			}
		}
		return nil
	}
}
