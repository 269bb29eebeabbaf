package main

import (
	"context"
	"os"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/bundleplan/cmd/bundleplan/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Resolve commands.ResolveCmd `cmd:"" help:"Print the resolved build plan"`
		Build   commands.BuildCmd   `cmd:"" help:"Bundle the entry module"`
		Init    commands.InitCmd    `cmd:"" help:"Write the default configuration"`
		Debug   bool                `help:"Enable debug mode." env:"BUNDLEPLAN_DEBUG"`
		Version kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("bundleplan"),
		kong.Description("Resolve and build JavaScript bundle configurations."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version, Stdout: os.Stdout})
	cmd.FatalIfErrorf(err)
}
