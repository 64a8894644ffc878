package builtin

import (
	"context"
	"io"

	"github.com/mwantia/fdb/cmd"
	"github.com/mwantia/fdb/visitor"
	"github.com/spf13/pflag"
)

type ListCommand struct{}

func (c *ListCommand) Name() string {
	return "list"
}

func (c *ListCommand) Description() string {
	return "List archived fields matching a request"
}

func (c *ListCommand) Usage() string {
	return "list [--full] [--location] [--all] [request...]"
}

func (c *ListCommand) DefineFlags(flags *pflag.FlagSet) {
	flags.Bool("full", false, "include fields masked by newer copies")
	flags.Bool("location", false, "print where each payload is stored")
}

func (c *ListCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, w io.Writer) (int, error) {
	location := args.Bool("location")

	it := api.List(ctx, args.Request, args.Bool("full"))
	return status(drain(it, w, func(e visitor.ListElement) (string, error) {
		if args.Porcelain {
			return e.Key().String(), nil
		}
		if location {
			return e.String() + " " + e.Location(), nil
		}
		return e.String(), nil
	}))
}
