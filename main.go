// pattern: Imperative Shell
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"featwt/internal/cli"
	"featwt/internal/config"
	"featwt/internal/git"
	"featwt/internal/logging"
	"featwt/internal/vcs"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("featwt", flag.ContinueOnError)
	fs.SetOutput(stderr)
	// Stop parsing flags after the first non-flag arg (the subcommand),
	// so that --help after a subcommand is handled by the subcommand.
	fs.SetInterspersed(false)

	configDir := fs.StringP("config-dir", "c", "", "config directory (default: ~/.config/featwt)")
	root := fs.String("root", "", "worktrees root (default: $"+config.EnvRoot+", then config, then ~/.worktrees)")
	format := fs.StringP("format", "o", "", "output format: text, json or csv")
	verbose := fs.BoolP("verbose", "v", false, "log debug output to stderr")

	fs.Usage = func() {
		cli.BuildApp(version, &cli.Env{Stdout: stdout, Stderr: stderr}).PrintHelp(stderr)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return cli.ExitOK
		}
		return cli.ExitUsage
	}

	cfg, err := loadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(stderr, "warning: failed to load config: %v\n", err)
	}

	var console io.Writer
	if *verbose {
		console = stderr
	}
	logManager, err := logging.NewManager(logging.Config{
		FilePath:   filepath.Join(config.Dir(*configDir), "featwt.log"),
		MaxSizeMB:  5,
		MaxBackups: 3,
		MaxAgeDays: 14,
		Level:      cfg.LogLevel,
		Console:    console,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logging: %v\n", err)
		return cli.ExitFailure
	}
	defer func() { _ = logManager.Close() }()

	appLogger := logManager.For("app")

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return cli.ExitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	env := &cli.Env{
		Stdout:    stdout,
		Stderr:    stderr,
		TTY:       isTerminal(stdout),
		Config:    cfg,
		ConfigDir: *configDir,
		Format:    *format,
		RootFlag:  *root,
		Getenv:    os.Getenv,
		Cwd:       cwd,
		Logs:      logManager,
		Context:   ctx,
		OpenVCS: func(dir string) vcs.VCS {
			return git.New(dir, logManager.For("git"))
		},
	}

	code := cli.BuildApp(version, env).Execute(fs.Args())
	appLogger.Debug("command finished", "args", fs.Args(), "exit_code", code)
	return code
}

// loadConfig loads the configuration from the specified directory or default location.
func loadConfig(configDir string) (config.Config, error) {
	if configDir != "" {
		return config.LoadFromDir(configDir)
	}
	return config.Load()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
