package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mwantia/fdb"
	"github.com/mwantia/fdb/cmd"
	"github.com/mwantia/fdb/cmd/builtin"
	"github.com/mwantia/fdb/config"
	"github.com/mwantia/fdb/log"
	"github.com/spf13/pflag"
)

const ConfigFileEnv = "FDB_CONFIG_FILE"

const defaultConfigFile = "~fdb/etc/fdb/config.yaml"

type globals struct {
	config   string
	logLevel string
	logFile  string
}

func (g *globals) DefineFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&g.config, "config", "c", "", "configuration file (default $"+ConfigFileEnv+" or "+defaultConfigFile+")")
	flags.StringVar(&g.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.StringVar(&g.logFile, "log-file", "", "additionally write logs to this file")
}

// configPath resolves the configuration file from the flag, then the
// environment, then the default under the fdb home.
func (g *globals) configPath() string {
	if g.config != "" {
		return g.config
	}
	if env := os.Getenv(ConfigFileEnv); env != "" {
		return env
	}
	return config.New(nil).ExpandPath(defaultConfigFile)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	g := &globals{}

	flags := pflag.NewFlagSet("fdb", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	// Everything after the command name belongs to the command.
	flags.SetInterspersed(false)
	g.DefineFlags(flags)

	probe := cmd.NewCommandManager(nil)
	if err := builtin.Register(probe); err != nil {
		fmt.Fprintf(stderr, "fdb: %v\n", err)
		return cmd.ExitError
	}

	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: fdb [global flags] <command> [flags] [request...]\n\n")
		probe.PrintUsage(stderr)
		fmt.Fprintf(stderr, "\nGlobal flags:\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return cmd.ExitOK
		}
		return cmd.ExitUsage
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return cmd.ExitUsage
	}
	if _, err := probe.Get(flags.Arg(0)); err != nil {
		fmt.Fprintf(stderr, "fdb: %v\n", err)
		return cmd.ExitUsage
	}

	level, err := log.Parse(g.logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "fdb: %v\n", err)
		return cmd.ExitUsage
	}

	cfg, err := config.Load(g.configPath())
	if err != nil {
		fmt.Fprintf(stderr, "fdb: %v\n", err)
		return cmd.ExitError
	}

	db, err := fdb.New(ctx, cfg, fdb.WithLogLevel(level), fdb.WithLogFile(g.logFile))
	if err != nil {
		fmt.Fprintf(stderr, "fdb: %v\n", err)
		return cmd.ExitError
	}

	manager := cmd.NewCommandManager(db)
	if err := builtin.Register(manager); err != nil {
		fmt.Fprintf(stderr, "fdb: %v\n", err)
		return cmd.ExitError
	}

	code, err := manager.Execute(ctx, stdout, flags.Args()...)
	if err != nil {
		fmt.Fprintf(stderr, "fdb %s: %v\n", flags.Arg(0), err)
		if code == cmd.ExitOK {
			code = cmd.ExitError
		}
	}

	if err := db.Close(ctx); err != nil {
		fmt.Fprintf(stderr, "fdb: %v\n", err)
		if code == cmd.ExitOK {
			code = cmd.ExitError
		}
	}
	return code
}
