package cmd

import (
	"context"
	"io"

	"github.com/mwantia/fdb/api"
	"github.com/mwantia/fdb/stream"
	"github.com/mwantia/fdb/visitor"
	"github.com/spf13/pflag"
)

// API is the part of a catalog handle the tools use.
type API interface {
	List(ctx context.Context, req api.ToolRequest, full bool) *stream.Iterator[visitor.ListElement]
	Dump(ctx context.Context, req api.ToolRequest) *stream.Iterator[visitor.DumpElement]
	Where(ctx context.Context, req api.ToolRequest) *stream.Iterator[visitor.WhereElement]
	Wipe(ctx context.Context, req api.ToolRequest, doit bool) *stream.Iterator[visitor.WipeElement]
	Purge(ctx context.Context, req api.ToolRequest, doit bool) *stream.Iterator[visitor.PurgeElement]
	Stats(ctx context.Context, req api.ToolRequest) *stream.Iterator[visitor.StatsElement]
}

// Command is one catalog tool, e.g. "list".
type Command interface {
	// Name returns the command identifier
	Name() string

	// Description returns human-readable help text
	Description() string

	// Usage returns a usage string for help (e.g. "list [--full] class=od,expver=0001")
	Usage() string

	// DefineFlags adds the flags of this command next to the common ones.
	DefineFlags(flags *pflag.FlagSet)

	// Execute runs the command, writing its report to w.
	// Returns exit code (0 = success) and error message
	Execute(ctx context.Context, api API, args *CommandArgs, w io.Writer) (int, error)
}
