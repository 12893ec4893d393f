package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/ansuz/internal"
	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/normalizer"
	pkgconfig "github.com/starford/ansuz/pkg/config"
)

var (
	rootFlag = &cli.StringFlag{
		Name:  "root",
		Usage: "Documentation tree to process (overrides docs.root)",
	}
	modeFlag = &cli.StringFlag{
		Name:  "mode",
		Usage: "Existing header policy: refresh or skip (overrides docs.mode)",
	}
	dryRunFlag = &cli.BoolFlag{
		Name:  "dry-run",
		Usage: "Report what would change without writing",
	}
	limitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: "Number of runs to list",
		Value: 20,
	}
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("root") {
		cfg.Docs.Root = cmd.String("root")
	}
	if cmd.IsSet("mode") {
		cfg.Docs.Mode = normalizer.Mode(cmd.String("mode"))
	}
	if cmd.IsSet("dry-run") {
		cfg.Docs.DryRun = cmd.Bool("dry-run")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func action(command internal.Command) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithCommand(command),
		}
		if cmd.IsSet("limit") {
			opts = append(opts, internal.WithHistoryLimit(int(cmd.Int("limit"))))
		}

		if err := internal.Run(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "ansuz",
		Usage:  "Normalize documentation headers and check documentation structure",
		Action: action(internal.CommandUpdate),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "ansuz.yaml",
				Value:       "ansuz.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			// Inherited by every subcommand.
			rootFlag, modeFlag, dryRunFlag,
		},
		Commands: []*cli.Command{
			{
				Name:   "update",
				Usage:  "Stamp or refresh the header block of every document",
				Action: action(internal.CommandUpdate),
			},
			{
				Name:   "check",
				Usage:  "Verify the documentation layout and required header fields",
				Action: action(internal.CommandCheck),
			},
			{
				Name:   "watch",
				Usage:  "Normalize the tree, then keep documents normalized as they change",
				Action: action(internal.CommandWatch),
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API with live events",
				Action: action(internal.CommandServe),
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools on stdio",
				Action: action(internal.CommandMCP),
			},
			{
				Name:   "history",
				Usage:  "List recent normalization runs",
				Flags:  []cli.Flag{limitFlag},
				Action: action(internal.CommandHistory),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		// The issue list already went to stdout.
		if !errors.Is(err, apperr.ErrNonCompliant) {
			slog.Error("application error", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}
}
