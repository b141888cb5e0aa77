// Package table parses table command flags and composes the room service
// entrypoint.
package table

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/louisbranch/rolltable.space/internal/platform/cmd"
	server "github.com/louisbranch/rolltable.space/internal/services/table/app"
)

// Config holds table command configuration.
type Config struct {
	HTTPAddr     string        `env:"ROLLTABLE_SPACE_TABLE_HTTP_ADDR"     envDefault:":8080"`
	GRPCAddr     string        `env:"ROLLTABLE_SPACE_TABLE_GRPC_ADDR"     envDefault:":8081"`
	GracePeriod  time.Duration `env:"ROLLTABLE_SPACE_TABLE_GRACE_PERIOD"  envDefault:"5m"`
	RollCooldown time.Duration `env:"ROLLTABLE_SPACE_TABLE_ROLL_COOLDOWN" envDefault:"3s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "table HTTP listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "table health gRPC listen address")
	fs.DurationVar(&cfg.GracePeriod, "grace-period", cfg.GracePeriod, "how long a room survives a host disconnect")
	fs.DurationVar(&cfg.RollCooldown, "roll-cooldown", cfg.RollCooldown, "minimum wait between rolls per participant")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the table app and serves the room protocol.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceTable, func(context.Context) error {
		if err := server.Run(ctx, server.Config{
			HTTPAddr:     cfg.HTTPAddr,
			GRPCAddr:     cfg.GRPCAddr,
			GracePeriod:  cfg.GracePeriod,
			RollCooldown: cfg.RollCooldown,
		}); err != nil {
			return fmt.Errorf("serve table: %w", err)
		}
		return nil
	})
}
