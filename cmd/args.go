package cmd

import (
	"github.com/mwantia/fdb/api"
	"github.com/spf13/pflag"
)

// CommandArgs contains parsed command arguments
type CommandArgs struct {
	// Request is built from the positional arguments, joined with ','.
	Request api.ToolRequest

	// Porcelain asks for stable, script friendly output.
	Porcelain bool

	// Parsed flags, including the command's own
	Flags *pflag.FlagSet

	// Raw unparsed arguments
	Raw []string
}

func (a *CommandArgs) Bool(name string) bool {
	if a.Flags == nil {
		return false
	}
	v, err := a.Flags.GetBool(name)
	return err == nil && v
}
