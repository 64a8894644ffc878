package builtin

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mwantia/fdb/cmd"
	"github.com/mwantia/fdb/visitor"
	"github.com/spf13/pflag"
)

type WipeCommand struct{}

func (c *WipeCommand) Name() string {
	return "wipe"
}

func (c *WipeCommand) Description() string {
	return "Delete matching databases, a dry run unless --doit is given"
}

func (c *WipeCommand) Usage() string {
	return "wipe [--doit] [--all] [request...]"
}

func (c *WipeCommand) DefineFlags(flags *pflag.FlagSet) {
	flags.Bool("doit", false, "delete the files instead of listing them")
}

func (c *WipeCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, w io.Writer) (int, error) {
	doit := args.Bool("doit")

	it := api.Wipe(ctx, args.Request, doit)
	n, err := drain(it, w, func(e visitor.WipeElement) (string, error) {
		if args.Porcelain {
			return e.Directory, nil
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s %s", e.Database, e.Directory)
		for _, f := range e.Files {
			sb.WriteString("\n    ")
			sb.WriteString(f)
		}
		return sb.String(), nil
	})
	if err != nil {
		return cmd.ExitError, err
	}

	if !args.Porcelain && n > 0 && !doit {
		fmt.Fprintf(w, "%d database(s) would be wiped, rerun with --doit to delete them\n", n)
	}
	return cmd.ExitOK, nil
}
