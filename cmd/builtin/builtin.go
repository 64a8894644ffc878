// Package builtin holds the catalog tools shipped with fdb.
package builtin

import (
	"fmt"
	"io"

	"github.com/mwantia/fdb/cmd"
	"github.com/mwantia/fdb/stream"
)

// Commands returns one instance of every builtin tool.
func Commands() []cmd.Command {
	return []cmd.Command{
		&ListCommand{},
		&DumpCommand{},
		&WhereCommand{},
		&WipeCommand{},
		&PurgeCommand{},
		&StatsCommand{},
	}
}

// Register adds every builtin tool to the manager.
func Register(cm *cmd.CommandManager) error {
	for _, c := range Commands() {
		if err := cm.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// drain writes one line per element and returns how many were written.
func drain[T any](it *stream.Iterator[T], w io.Writer, render func(T) (string, error)) (int, error) {
	defer it.Close()

	n := 0
	for it.Next() {
		line, err := render(it.Value())
		if err != nil {
			return n, err
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return n, err
		}
		n++
	}
	return n, it.Err()
}

func status(n int, err error) (int, error) {
	if err != nil {
		return cmd.ExitError, err
	}
	return cmd.ExitOK, nil
}
