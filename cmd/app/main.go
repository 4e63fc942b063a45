package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/graphlens/internal"
	"github.com/starford/graphlens/internal/query"
	pkgconfig "github.com/starford/graphlens/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func sync(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rep, err := internal.Sync(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	if err != nil {
		return err
	}
	fmt.Printf("imported: %d, skipped: %d, removed: %d, failed: %d\n",
		rep.Imported, rep.Skipped, rep.Removed, rep.Failed)
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func queryEntity(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("entity name is required")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := query.DefaultOptions()
	opts.ComputeRelatedEntities = cmd.Bool("related")
	df := query.DefaultDocumentFilter()
	df.MaxChunks = int(cmd.Int("max-chunks"))
	df.IncludeFullText = !cmd.Bool("no-text")
	opts.DocumentFilter = &df

	return internal.QueryEntity(ctx, name, opts, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func search(ctx context.Context, cmd *cli.Command) error {
	text := cmd.Args().First()
	if text == "" {
		return fmt.Errorf("search text is required")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.SearchEntities(ctx, text, cmd.StringSlice("type"), int(cmd.Int("limit")),
		internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func main() {
	cmd := &cli.Command{
		Name:   "graphlens",
		Usage:  "Entity relationship and source document queries over a knowledge graph",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Import the dataset directory, watch it and serve the HTTP API",
				Action: serve,
			},
			{
				Name:   "sync",
				Usage:  "Import the dataset directory once and exit",
				Action: sync,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: mcp,
			},
			{
				Name:      "query",
				Usage:     "Print entity details, relationships, documents and statistics as JSON",
				ArgsUsage: "<entity>",
				Action:    queryEntity,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "related", Usage: "Include related entity names"},
					&cli.BoolFlag{Name: "no-text", Usage: "Omit chunk content"},
					&cli.IntFlag{Name: "max-chunks", Usage: "Maximum source chunks", Value: 100},
				},
			},
			{
				Name:      "search",
				Usage:     "Search entities by name",
				ArgsUsage: "<text>",
				Action:    search,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "type", Aliases: []string{"t"}, Usage: "Entity types to keep"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum results", Value: 20},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
