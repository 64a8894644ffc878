// Package cmd runs the catalog tools (list, dump, where, wipe, purge, stats)
// against a catalog handle.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/mwantia/fdb/api"
	"github.com/mwantia/fdb/data"
	"github.com/spf13/pflag"
)

// Exit codes of Execute.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

var ErrUnknownCommand = errors.New("unknown command")

// CommandManager handles command registration, parsing, and execution
type CommandManager struct {
	mu   sync.RWMutex
	api  API
	cmds map[string]Command
}

func NewCommandManager(api API) *CommandManager {
	return &CommandManager{
		api:  api,
		cmds: make(map[string]Command),
	}
}

// Register registers a custom command
func (cm *CommandManager) Register(cmd Command) error {
	if cmd == nil {
		return fmt.Errorf("%w: command cannot be nil", data.ErrInvalid)
	}

	name := cmd.Name()
	if name == "" {
		return fmt.Errorf("%w: command name cannot be empty", data.ErrInvalid)
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.cmds[name]; exists {
		return fmt.Errorf("%w: command %s", data.ErrAlreadyRegistered, name)
	}

	cm.cmds[name] = cmd
	return nil
}

// Unregister removes a registered command
func (cm *CommandManager) Unregister(name string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.cmds[name]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}

	delete(cm.cmds, name)
	return nil
}

// Get returns a command by name
func (cm *CommandManager) Get(name string) (Command, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	cmd, exists := cm.cmds[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}

	return cmd, nil
}

// List returns all registered commands sorted by name
func (cm *CommandManager) List() []Command {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	commands := make([]Command, 0, len(cm.cmds))
	for _, cmd := range cm.cmds {
		commands = append(commands, cmd)
	}
	sort.Slice(commands, func(i, j int) bool {
		return commands[i].Name() < commands[j].Name()
	})

	return commands
}

// PrintUsage writes the list of commands.
func (cm *CommandManager) PrintUsage(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range cm.List() {
		fmt.Fprintf(w, "  %-8s %s\n", cmd.Name(), cmd.Description())
	}
}

// Execute parses the arguments following the command name and runs it.
func (cm *CommandManager) Execute(ctx context.Context, w io.Writer, args ...string) (int, error) {
	if len(args) == 0 {
		return ExitUsage, fmt.Errorf("%w: no command specified", data.ErrInvalid)
	}

	cmd, err := cm.Get(args[0])
	if err != nil {
		return ExitUsage, err
	}

	flags := pflag.NewFlagSet(cmd.Name(), pflag.ContinueOnError)
	flags.SetOutput(w)
	flags.Usage = func() {
		fmt.Fprintf(w, "Usage: %s\n\n%s\n\n", cmd.Usage(), cmd.Description())
		flags.PrintDefaults()
	}

	all := flags.Bool("all", false, "select every database when no request is given")
	porcelain := flags.Bool("porcelain", false, "print stable, script friendly output")
	cmd.DefineFlags(flags)

	if err := flags.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitOK, nil
		}
		return ExitUsage, err
	}

	request, err := data.ParseRequest(strings.Join(flags.Args(), ","))
	if err != nil {
		return ExitUsage, err
	}

	parsed := &CommandArgs{
		Request:   api.ToolRequest{Request: request, All: *all},
		Porcelain: *porcelain,
		Flags:     flags,
		Raw:       args[1:],
	}
	if err := parsed.Request.Validate(); err != nil {
		return ExitUsage, fmt.Errorf("%w (use --all)", err)
	}

	return cmd.Execute(ctx, cm.api, parsed, w)
}
