package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wolfeidau/bundleplan/internal/buildconfig/loader"
	"github.com/wolfeidau/bundleplan/internal/logger"
)

// ResolveCmd prints the resolved build plan.
type ResolveCmd struct {
	Config string `help:"Configuration file (.yaml, .yml, .json, .js or .cjs)" env:"BUNDLEPLAN_CONFIG" type:"path"`
	Format string `help:"Output format" enum:"json,yaml" default:"yaml" env:"BUNDLEPLAN_FORMAT"`
}

func (c *ResolveCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx = log.WithContext(ctx)

	return logger.Timed(ctx, "resolve", func(ctx context.Context) error {
		cfg, err := loadPlan(ctx, c.Config)
		if err != nil {
			return err
		}

		var data []byte
		switch c.Format {
		case "json":
			if data, err = json.MarshalIndent(cfg.Raw(), "", "  "); err == nil {
				data = append(data, '\n')
			}
		default:
			data, err = loader.EncodeYAML(cfg.Raw())
		}
		if err != nil {
			return fmt.Errorf("failed to encode plan: %w", err)
		}

		_, err = globals.out().Write(data)
		return err
	})
}
