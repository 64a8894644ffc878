package builtin

import (
	"context"
	"fmt"
	"io"

	"github.com/mwantia/fdb/cmd"
	"github.com/mwantia/fdb/visitor"
	"github.com/spf13/pflag"
)

type PurgeCommand struct{}

func (c *PurgeCommand) Name() string {
	return "purge"
}

func (c *PurgeCommand) Description() string {
	return "Remove index segments whose fields were all archived again"
}

func (c *PurgeCommand) Usage() string {
	return "purge [--doit] [--all] [request...]"
}

func (c *PurgeCommand) DefineFlags(flags *pflag.FlagSet) {
	flags.Bool("doit", false, "purge the segments instead of listing them")
}

func (c *PurgeCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, w io.Writer) (int, error) {
	doit := args.Bool("doit")

	masked := 0
	it := api.Purge(ctx, args.Request, doit)
	n, err := drain(it, w, func(e visitor.PurgeElement) (string, error) {
		masked += e.Masked
		if args.Porcelain {
			return e.Directory + "/" + e.Segment.ID(), nil
		}
		return e.String(), nil
	})
	if err != nil {
		return cmd.ExitError, err
	}

	if !args.Porcelain {
		verb := "would be purged"
		if doit {
			verb = "purged"
		}
		fmt.Fprintf(w, "%d segment(s) holding %d masked field(s) %s\n", n, masked, verb)
	}
	return cmd.ExitOK, nil
}
