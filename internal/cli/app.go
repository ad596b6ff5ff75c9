// pattern: Functional Core
package cli

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
)

// Command represents a single CLI command with its metadata and handler.
type Command struct {
	Name    string
	Summary string
	Usage   string
	Run     func(args []string) error
}

// Group represents a group of related commands.
type Group struct {
	Name     string
	Summary  string
	Commands map[string]*Command
}

// App represents the top-level CLI application with groups and ungrouped commands.
type App struct {
	groups   map[string]*Group
	commands map[string]*Command
	order    []string
	version  string

	stdout io.Writer
	stderr io.Writer

	// ReportError prints a failed command's error. Defaults to a one-line
	// "error: ..." on stderr.
	ReportError func(err error)
}

// NewApp creates a new CLI application with the given version.
func NewApp(version string) *App {
	return &App{
		groups:   make(map[string]*Group),
		commands: make(map[string]*Command),
		version:  version,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
}

// SetOutput redirects help and error output.
func (a *App) SetOutput(stdout, stderr io.Writer) {
	a.stdout = stdout
	a.stderr = stderr
}

// AddGroup creates and registers a new command group.
func (a *App) AddGroup(name, summary string) *Group {
	g := &Group{
		Name:     name,
		Summary:  summary,
		Commands: make(map[string]*Command),
	}
	a.groups[name] = g
	a.order = append(a.order, name)
	return g
}

// AddCommand registers an ungrouped (top-level) command.
func (a *App) AddCommand(cmd *Command) {
	a.commands[cmd.Name] = cmd
	a.order = append(a.order, cmd.Name)
}

// AddCommand registers a command in the group.
func (g *Group) AddCommand(cmd *Command) {
	g.Commands[cmd.Name] = cmd
}

// Execute dispatches the CLI arguments to the appropriate command and
// returns the process exit code.
func (a *App) Execute(args []string) int {
	if len(args) == 0 {
		a.PrintHelp(a.stderr)
		return ExitUsage
	}

	cmdName := args[0]
	if isHelp(cmdName) {
		a.PrintHelp(a.stdout)
		return ExitOK
	}

	if cmd, ok := a.commands[cmdName]; ok {
		return a.run(cmd, args[1:])
	}

	if group, ok := a.groups[cmdName]; ok {
		if len(args) < 2 || isHelp(args[1]) {
			group.PrintHelp(a.stdout)
			return ExitOK
		}
		if cmd, ok := group.Commands[args[1]]; ok {
			return a.run(cmd, args[2:])
		}
		fmt.Fprintf(a.stderr, "error: unknown command %q\n\n", cmdName+" "+args[1])
		group.PrintHelp(a.stderr)
		return ExitUsage
	}

	fmt.Fprintf(a.stderr, "error: unknown command %q\n\n", cmdName)
	a.PrintHelp(a.stderr)
	return ExitUsage
}

func (a *App) run(cmd *Command, args []string) int {
	for _, arg := range args {
		if arg == "--" {
			break
		}
		if arg == "--help" || arg == "-h" {
			fmt.Fprintln(a.stdout, cmd.Usage)
			return ExitOK
		}
	}

	err := cmd.Run(args)
	if err == nil {
		return ExitOK
	}

	if a.ReportError != nil {
		a.ReportError(err)
	} else {
		fmt.Fprintf(a.stderr, "error: %v\n", err)
	}
	var ue *usageError
	if errors.As(err, &ue) && ue.usage != "" {
		fmt.Fprintln(a.stderr, ue.usage)
	}
	return ExitCode(err)
}

func isHelp(arg string) bool {
	return arg == "help" || arg == "--help" || arg == "-h"
}

// PrintHelp prints the top-level help text.
func (a *App) PrintHelp(w io.Writer) {
	fmt.Fprintf(w, "Usage: featwt [options] <command>\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, name := range a.order {
		if cmd, ok := a.commands[name]; ok {
			fmt.Fprintf(w, "  %-11s %s\n", cmd.Name, cmd.Summary)
		} else if group, ok := a.groups[name]; ok {
			fmt.Fprintf(w, "  %-11s %s\n", group.Name, group.Summary)
		}
	}
	fmt.Fprintf(w, "\nUse \"featwt <command> --help\" for command details.\n\n")
	fmt.Fprintf(w, "Options:\n")
}

// PrintHelp prints help for a specific group.
func (g *Group) PrintHelp(w io.Writer) {
	fmt.Fprintf(w, "Usage: featwt %s <command>\n\n", g.Name)
	fmt.Fprintf(w, "Commands:\n")
	// Sort command names for deterministic output
	names := slices.Sorted(maps.Keys(g.Commands))
	for _, name := range names {
		cmd := g.Commands[name]
		fmt.Fprintf(w, "  %-10s %s\n", cmd.Name, cmd.Summary)
	}
	fmt.Fprintf(w, "\nUse \"featwt %s <command> --help\" for command details.\n", g.Name)
}
