package builtin

import (
	"context"
	"fmt"
	"io"

	"github.com/mwantia/fdb/cmd"
	"github.com/mwantia/fdb/database"
	"github.com/spf13/pflag"
)

type StatsCommand struct{}

func (c *StatsCommand) Name() string {
	return "stats"
}

func (c *StatsCommand) Description() string {
	return "Report segment, field and file counts of matching databases"
}

func (c *StatsCommand) Usage() string {
	return "stats [--details] [--all] [request...]"
}

func (c *StatsCommand) DefineFlags(flags *pflag.FlagSet) {
	flags.Bool("details", false, "print one line per database before the totals")
}

func (c *StatsCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, w io.Writer) (int, error) {
	details := args.Bool("details")

	var total database.Stats
	databases := 0

	it := api.Stats(ctx, args.Request)
	defer it.Close()
	for it.Next() {
		e := it.Value()
		total.Add(e.Stats)
		databases++
		if details {
			fmt.Fprintln(w, e.String())
		}
	}
	if err := it.Err(); err != nil {
		return cmd.ExitError, err
	}

	if args.Porcelain {
		fmt.Fprintf(w, "databases %d\nsegments %d\nfields %d\ndata_files %d\ndata_bytes %d\nindex_files %d\nindex_bytes %d\ntoc_records %d\n",
			databases, total.Segments, total.Fields, total.DataFiles, total.DataBytes,
			total.IndexFiles, total.IndexBytes, total.TocRecords)
		return cmd.ExitOK, nil
	}

	fmt.Fprintf(w, "Databases:        %d\n", databases)
	fmt.Fprintf(w, "Index segments:   %d\n", total.Segments)
	fmt.Fprintf(w, "Fields:           %d\n", total.Fields)
	fmt.Fprintf(w, "Data files:       %d (%d bytes)\n", total.DataFiles, total.DataBytes)
	fmt.Fprintf(w, "Index files:      %d (%d bytes)\n", total.IndexFiles, total.IndexBytes)
	fmt.Fprintf(w, "TOC records:      %d\n", total.TocRecords)
	return cmd.ExitOK, nil
}
