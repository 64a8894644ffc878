package builtin

import (
	"context"
	"io"

	"github.com/goccy/go-json"
	"github.com/mwantia/fdb/cmd"
	"github.com/mwantia/fdb/visitor"
	"github.com/spf13/pflag"
)

type DumpCommand struct{}

func (c *DumpCommand) Name() string {
	return "dump"
}

func (c *DumpCommand) Description() string {
	return "Print the table of contents records of matching databases"
}

func (c *DumpCommand) Usage() string {
	return "dump [--all] [--porcelain] [request...]"
}

func (c *DumpCommand) DefineFlags(flags *pflag.FlagSet) {}

// Porcelain output is one JSON record per line.
func (c *DumpCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, w io.Writer) (int, error) {
	it := api.Dump(ctx, args.Request)
	return status(drain(it, w, func(e visitor.DumpElement) (string, error) {
		if !args.Porcelain {
			return e.String(), nil
		}
		raw, err := json.Marshal(e.Record)
		return string(raw), err
	}))
}
