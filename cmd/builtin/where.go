package builtin

import (
	"context"
	"io"

	"github.com/mwantia/fdb/cmd"
	"github.com/mwantia/fdb/visitor"
	"github.com/spf13/pflag"
)

type WhereCommand struct{}

func (c *WhereCommand) Name() string {
	return "where"
}

func (c *WhereCommand) Description() string {
	return "Print the directory of each matching database"
}

func (c *WhereCommand) Usage() string {
	return "where [--all] [request...]"
}

func (c *WhereCommand) DefineFlags(flags *pflag.FlagSet) {}

func (c *WhereCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, w io.Writer) (int, error) {
	it := api.Where(ctx, args.Request)
	return status(drain(it, w, func(e visitor.WhereElement) (string, error) {
		if args.Porcelain {
			return e.Directory, nil
		}
		return e.Database.String() + " " + e.Directory, nil
	}))
}
