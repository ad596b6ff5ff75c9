// pattern: Imperative Shell
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"featwt/internal/config"
	"featwt/internal/logging"
	"featwt/internal/vcs"
	"featwt/internal/worktree"
)

// Env is everything commands need from the process: resolved global
// options, output streams and a way to open the repository.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer
	// TTY reports whether Stdout is a terminal.
	TTY bool

	Config    config.Config
	ConfigDir string
	// Format overrides Config.DefaultFormat when set.
	Format string
	// RootFlag is the --root value, empty when not given.
	RootFlag string
	// Getenv reads environment variables. Defaults to os.Getenv.
	Getenv func(string) string
	Cwd    string

	Logs logging.LoggerProvider
	// OpenVCS returns the VCS for the repository containing dir.
	OpenVCS func(dir string) vcs.VCS
	// Context for VCS calls. Defaults to context.Background().
	Context context.Context
}

func (e *Env) ctx() context.Context {
	if e.Context == nil {
		return context.Background()
	}
	return e.Context
}

func (e *Env) logger(scope string) *logging.ScopedLogger {
	if e.Logs == nil {
		return logging.NopLogger()
	}
	return e.Logs.For(scope)
}

func (e *Env) printer() (*Printer, error) {
	name := e.Format
	if name == "" {
		name = e.Config.DefaultFormat
	}
	if name == "" {
		name = string(FormatText)
	}
	format, err := ParseFormat(name)
	if err != nil {
		return nil, err
	}
	return NewPrinter(e.Stdout, e.Stderr, format, e.Config.Theme, e.TTY), nil
}

func (e *Env) manager() (*worktree.Manager, error) {
	getenv := e.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	root, err := e.Config.ResolveRoot(e.RootFlag, getenv)
	if err != nil {
		return nil, err
	}
	e.logger("app").Debug("worktrees root resolved", "root", root, "cwd", e.Cwd)
	return worktree.NewManager(e.OpenVCS(e.Cwd), worktree.Options{
		Root:     root,
		Cwd:      e.Cwd,
		CopyFile: e.Config.CopyFile,
		Logger:   e.logger("worktree"),
	}), nil
}

// ReportError prints err in the selected output format.
func (e *Env) ReportError(err error) {
	p, perr := e.printer()
	if perr != nil {
		p = NewPrinter(e.Stdout, e.Stderr, FormatText, e.Config.Theme, e.TTY)
	}
	p.Error(err)
}

// BuildApp creates and configures the CLI application with all commands and groups.
func BuildApp(version string, env *Env) *App {
	app := NewApp(version)
	app.SetOutput(env.Stdout, env.Stderr)
	app.ReportError = env.ReportError

	app.AddCommand(createCommand(env))
	app.AddCommand(listCommand(env))
	app.AddCommand(switchCommand(env))
	app.AddCommand(removeCommand(env))
	app.AddCommand(statusCommand(env))

	configGroup := app.AddGroup("config", "Read and write settings")
	RegisterConfigCommands(configGroup, env)

	app.AddCommand(&Command{
		Name:    "shell-init",
		Summary: "Print a shell function that cds on switch",
		Usage:   "Usage: featwt shell-init\n\nAdd to your shell rc file:\n  eval \"$(featwt shell-init)\"",
		Run: func(args []string) error {
			if len(args) > 0 {
				return usageErrorf("Usage: featwt shell-init", "shell-init takes no arguments")
			}
			_, err := io.WriteString(env.Stdout, shellInitScript)
			return err
		},
	})

	app.AddCommand(&Command{
		Name:    "version",
		Summary: "Print version and exit",
		Usage:   "Usage: featwt version",
		Run: func(args []string) error {
			_, err := fmt.Fprintln(env.Stdout, version)
			return err
		},
	})

	return app
}

// parseFlags parses args into fs and checks the positional count is within
// [minArgs, maxArgs].
func parseFlags(fs *flag.FlagSet, usage string, args []string, minArgs, maxArgs int) ([]string, error) {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return nil, usageErrorf(usage, "%v", err)
	}
	rest := fs.Args()
	switch {
	case len(rest) < minArgs:
		return nil, usageErrorf(usage, "missing arguments")
	case len(rest) > maxArgs:
		return nil, usageErrorf(usage, "unexpected arguments: %s", strings.Join(rest[maxArgs:], " "))
	}
	return rest, nil
}

func createCommand(env *Env) *Command {
	const usage = `Usage: featwt create <name> [--base REF] [--sibling] [--no-copy]

  <name> is NNN-description, e.g. 001-user-login.

  -b, --base REF   start point for a new branch (default: the default branch)
      --sibling    use name-2, name-3, ... when the branch is checked out elsewhere
      --no-copy    skip copying files listed in the copy file`
	return &Command{
		Name:    "create",
		Summary: "Create a feature worktree",
		Usage:   usage,
		Run: func(args []string) error {
			fs := flag.NewFlagSet("create", flag.ContinueOnError)
			base := fs.StringP("base", "b", "", "start point for a new branch")
			sibling := fs.Bool("sibling", false, "create a suffixed sibling branch on conflict")
			noCopy := fs.Bool("no-copy", false, "skip copying files listed in the copy file")
			rest, err := parseFlags(fs, usage, args, 1, 1)
			if err != nil {
				return err
			}

			p, err := env.printer()
			if err != nil {
				return err
			}
			m, err := env.manager()
			if err != nil {
				return err
			}
			rec, err := m.Create(env.ctx(), rest[0], *base, worktree.CreateOptions{
				Sibling: *sibling,
				NoCopy:  *noCopy,
			})
			if err != nil {
				return err
			}
			return p.Created(rec)
		},
	}
}

func listCommand(env *Env) *Command {
	const usage = `Usage: featwt list [--name SUBSTR] [--base REF] [--page N] [--page-size N] [--no-status]

  -n, --name SUBSTR    case-insensitive name filter
      --base REF       only worktrees created from REF
      --page N         page number (default 1)
      --page-size N    items per page, 1-100 (default 20)
      --no-status      skip resolving dirty/untracked/unpushed state`
	return &Command{
		Name:    "list",
		Summary: "List feature worktrees",
		Usage:   usage,
		Run: func(args []string) error {
			fs := flag.NewFlagSet("list", flag.ContinueOnError)
			name := fs.StringP("name", "n", "", "name filter")
			base := fs.String("base", "", "base filter")
			page := fs.String("page", "", "page number")
			pageSize := fs.String("page-size", "", "items per page")
			noStatus := fs.Bool("no-status", false, "skip status resolution")
			if _, err := parseFlags(fs, usage, args, 0, 0); err != nil {
				return err
			}

			q, err := worktree.BuildListQuery(*name, *base, *page, *pageSize)
			if err != nil {
				return err
			}
			p, err := env.printer()
			if err != nil {
				return err
			}
			m, err := env.manager()
			if err != nil {
				return err
			}
			result, err := m.List(env.ctx(), q, !*noStatus)
			if err != nil {
				return err
			}
			return p.List(result)
		},
	}
}

func switchCommand(env *Env) *Command {
	const usage = `Usage: featwt switch <name>

  Prints the worktree path. Use "featwt shell-init" to cd automatically.`
	return &Command{
		Name:    "switch",
		Summary: "Switch to a feature worktree",
		Usage:   usage,
		Run: func(args []string) error {
			fs := flag.NewFlagSet("switch", flag.ContinueOnError)
			rest, err := parseFlags(fs, usage, args, 1, 1)
			if err != nil {
				return err
			}

			p, err := env.printer()
			if err != nil {
				return err
			}
			m, err := env.manager()
			if err != nil {
				return err
			}
			res, err := m.SwitchTo(env.ctx(), rest[0])
			if err != nil {
				return err
			}
			return p.Switched(res)
		},
	}
}

func removeCommand(env *Env) *Command {
	const usage = `Usage: featwt remove <name> [--force] [--delete-branch] [--merged-into REF]

  -f, --force             remove even with untracked files
  -d, --delete-branch     also delete the branch once merged
      --merged-into REF   base for the merge check (default: recorded base)`
	return &Command{
		Name:    "remove",
		Summary: "Remove a feature worktree",
		Usage:   usage,
		Run: func(args []string) error {
			fs := flag.NewFlagSet("remove", flag.ContinueOnError)
			force := fs.BoolP("force", "f", false, "remove even with untracked files")
			deleteBranch := fs.BoolP("delete-branch", "d", false, "delete the branch once merged")
			mergedInto := fs.String("merged-into", "", "base for the merge check")
			rest, err := parseFlags(fs, usage, args, 1, 1)
			if err != nil {
				return err
			}
			if *mergedInto != "" && !*deleteBranch {
				return usageErrorf(usage, "--merged-into requires --delete-branch")
			}

			p, err := env.printer()
			if err != nil {
				return err
			}
			m, err := env.manager()
			if err != nil {
				return err
			}
			res, err := m.Remove(env.ctx(), rest[0], worktree.RemoveOptions{
				Force:        *force,
				DeleteBranch: *deleteBranch,
				MergedInto:   *mergedInto,
			})
			if err != nil {
				return err
			}
			if err := p.Removed(res); err != nil {
				return err
			}
			if res.Partial() {
				return &partialError{msg: fmt.Sprintf("worktree %s removed, branch %s kept", res.Record.Name, res.Branch)}
			}
			return nil
		},
	}
}

func statusCommand(env *Env) *Command {
	const usage = `Usage: featwt status [name]

  Shows the state of a worktree (the current one when name is omitted)
  and whether it could be removed.`
	return &Command{
		Name:    "status",
		Summary: "Show worktree state and removal safety",
		Usage:   usage,
		Run: func(args []string) error {
			fs := flag.NewFlagSet("status", flag.ContinueOnError)
			rest, err := parseFlags(fs, usage, args, 0, 1)
			if err != nil {
				return err
			}
			name := ""
			if len(rest) == 1 {
				name = rest[0]
			}

			p, err := env.printer()
			if err != nil {
				return err
			}
			m, err := env.manager()
			if err != nil {
				return err
			}
			rep, err := m.Status(env.ctx(), name)
			if err != nil {
				return err
			}
			return p.Status(rep)
		},
	}
}

// RegisterConfigCommands registers the config command group commands.
func RegisterConfigCommands(group *Group, env *Env) {
	group.AddCommand(&Command{
		Name:    "get",
		Summary: "Print one setting, or all of them",
		Usage:   "Usage: featwt config get [key]\n\nKeys: " + strings.Join(config.Keys(), ", "),
		Run: func(args []string) error {
			if len(args) > 1 {
				return usageErrorf("Usage: featwt config get [key]", "config get takes at most one key")
			}
			keys := config.Keys()
			if len(args) == 1 {
				keys = []string{args[0]}
			}
			values := make(map[string]string, len(keys))
			for _, k := range keys {
				v, err := env.Config.Get(k)
				if err != nil {
					return &usageError{msg: err.Error()}
				}
				values[k] = v
			}
			p, err := env.printer()
			if err != nil {
				return err
			}
			return p.Values(keys, values)
		},
	})

	group.AddCommand(&Command{
		Name:    "set",
		Summary: "Change a setting",
		Usage:   "Usage: featwt config set <key> <value>\n\nKeys: " + strings.Join(config.Keys(), ", "),
		Run: func(args []string) error {
			if len(args) != 2 {
				return usageErrorf("Usage: featwt config set <key> <value>", "config set needs a key and a value")
			}
			var invalid error
			cfg, err := config.Update(env.ConfigDir, func(c *config.Config) error {
				invalid = c.Set(args[0], args[1])
				return invalid
			})
			if invalid != nil {
				return &usageError{msg: invalid.Error()}
			}
			if err != nil {
				return err
			}
			env.Config = cfg
			env.logger("app").Info("config updated", "key", args[0])
			return nil
		},
	})

	group.AddCommand(&Command{
		Name:    "path",
		Summary: "Print the config file path",
		Usage:   "Usage: featwt config path",
		Run: func(args []string) error {
			_, err := fmt.Fprintln(env.Stdout, config.Path(env.ConfigDir))
			return err
		},
	})
}
