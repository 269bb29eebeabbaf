package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/wolfeidau/bundleplan/internal/buildconfig"
	"github.com/wolfeidau/bundleplan/internal/buildconfig/loader"
)

// InitCmd writes the default configuration to a file.
type InitCmd struct {
	Output string `help:"File to write (.yaml, .yml or .json)" default:"bundleplan.yaml" type:"path"`
	Force  bool   `help:"Overwrite an existing file" default:"false"`
}

func (c *InitCmd) Run(ctx context.Context, globals *Globals) error {
	if !c.Force {
		if _, err := os.Stat(c.Output); err == nil {
			return fmt.Errorf("%s already exists\n\nTo overwrite:\n  bundleplan init --output %s --force", c.Output, c.Output)
		}
	}

	if err := loader.Write(c.Output, buildconfig.Default()); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	out := globals.out()
	fmt.Fprintf(out, "Wrote default configuration to %s\n", c.Output)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "To inspect the resolved plan:")
	fmt.Fprintf(out, "  bundleplan resolve --config %s\n", c.Output)

	return nil
}
