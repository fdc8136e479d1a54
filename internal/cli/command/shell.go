package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pveapi-go/internal/cli/repl"
	"github.com/yndnr/pveapi-go/internal/infra/confloader"
	"github.com/yndnr/pveapi-go/internal/telemetry/logger"
)

// ShellCommand returns the interactive shell command.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Start an interactive shell that keeps one login",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not read or write the history file",
			},
		},
		Action: shellAction,
	}
}

func shellAction(c *cli.Context) error {
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	history := repl.NewHistory()
	if !c.Bool("no-history") {
		if err := history.Load(); err != nil {
			logger.Warn("cannot read shell history", "error", err)
		}
	}

	stopWatch := watchConfig(c)
	defer stopWatch()

	r := repl.New(shellExecutor(c),
		repl.WithIO(inputOf(c), stdout(c)),
		repl.WithCompleter(repl.NewCompleter(CommandPaths(c.App.Commands))),
		repl.WithHistory(history),
	)

	fmt.Fprintf(stdout(c), "pvectl %s - type 'help' for commands, 'exit' to leave\n", c.App.Version)
	err := r.Run(ctx)

	if !c.Bool("no-history") {
		if saveErr := history.Save(); saveErr != nil {
			logger.Warn("cannot write shell history", "error", saveErr)
		}
	}
	return err
}

// shellExecutor runs each line through the app itself, reusing the global
// flags the shell was started with.
func shellExecutor(c *cli.Context) repl.Executor {
	base := append([]string{c.App.Name}, globalArgs(c)...)
	return func(ctx context.Context, args []string) error {
		if len(args) > 0 && args[0] == "shell" {
			return errors.New("already in a shell")
		}
		argv := append(append([]string{}, base...), args...)
		return c.App.RunContext(ctx, argv)
	}
}

// globalArgs rebuilds the global flags that were set on the command line.
func globalArgs(c *cli.Context) []string {
	var args []string
	for _, f := range c.App.Flags {
		name := f.Names()[0]
		if !c.IsSet(name) {
			continue
		}
		if _, ok := f.(*cli.BoolFlag); ok {
			args = append(args, fmt.Sprintf("--%s=%t", name, c.Bool(name)))
			continue
		}
		args = append(args, "--"+name, fmt.Sprint(c.Value(name)))
	}
	return args
}

// watchConfig reloads the configuration when its file changes.
func watchConfig(c *cli.Context) func() {
	st := getState(c)
	if st == nil {
		return func() {}
	}
	_, path := st.config()

	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(logger.Default()))
	if err != nil {
		logger.Warn("config watcher unavailable", "error", err)
		return func() {}
	}
	if err := w.Watch(path); err != nil {
		logger.Debug("config file not watched", "path", path, "error", err)
		_ = w.Stop()
		return func() {}
	}
	w.OnChange(func(string) {
		if err := st.load(path); err != nil {
			logger.Warn("config reload failed", "path", path, "error", err)
			return
		}
		logger.Info("configuration reloaded", "path", path)
	})
	w.StartAsync()
	return func() { _ = w.Stop() }
}

func inputOf(c *cli.Context) io.Reader {
	if c.App.Reader != nil {
		return c.App.Reader
	}
	return os.Stdin
}

// CommandPaths lists every command path, e.g. "acl grant", for completion.
func CommandPaths(cmds []*cli.Command) []string {
	var paths []string
	var walk func(prefix string, cmds []*cli.Command)
	walk = func(prefix string, cmds []*cli.Command) {
		for _, cmd := range cmds {
			if cmd.Hidden {
				continue
			}
			path := prefix + cmd.Name
			paths = append(paths, path)
			walk(path+" ", cmd.Subcommands)
		}
	}
	walk("", cmds)
	sort.Strings(paths)
	return paths
}
