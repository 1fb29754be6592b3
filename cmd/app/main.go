package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/opnvault/internal"
	"github.com/starford/opnvault/internal/tags"
	"github.com/starford/opnvault/internal/vault"
	pkgconfig "github.com/starford/opnvault/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// withStore opens the configured vault for a one-shot command.
func withStore(ctx context.Context, cmd *cli.Command, fn func(*vault.Store) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := internal.NewLogger(cfg.App.LogLevel, os.Stderr)
	store, closeTags, err := internal.OpenStore(cfg, logger)
	if err != nil {
		return err
	}
	defer internal.CloseLogged(logger, "tags", closeTags)
	return fn(store)
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

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
}

func list(ctx context.Context, cmd *cli.Command) error {
	return withStore(ctx, cmd, func(store *vault.Store) error {
		files, err := store.List(ctx)
		if err != nil {
			return err
		}
		usage := vault.TotalSize(files)
		files = vault.Filter(files, cmd.Args().First())

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tSIZE\tMODIFIED\tTAGS")
		for _, f := range files {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.ID, f.Name,
				humanize.Bytes(uint64(f.Size)), humanize.Time(f.ModifiedAt), strings.Join(f.Tags, ", "))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Printf("\nThe vault is using %s.\n", humanize.Bytes(uint64(usage)))
		return nil
	})
}

func upload(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("upload: path is required")
	}
	return withStore(ctx, cmd, func(store *vault.Store) error {
		f, err := store.Upload(ctx, vault.PathSource(path))
		if err != nil {
			return err
		}
		if f == nil {
			fmt.Println("nothing uploaded")
			return nil
		}
		fmt.Printf("%s\t%s\t%s\n", f.ID, f.Name, humanize.Bytes(uint64(f.Size)))
		return nil
	})
}

func tag(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("tag: id is required")
	}
	return withStore(ctx, cmd, func(store *vault.Store) error {
		f, err := store.Get(ctx, id)
		if err != nil {
			return err
		}
		stored, err := store.SetTags(ctx, f.ID, tags.ParseList(cmd.Args().Get(1)))
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\n", f.Name, strings.Join(stored, ", "))
		return nil
	})
}

func main() {
	cmd := &cli.Command{
		Name:    "opnvault",
		Usage:   "Local document vault with free-form tags",
		Version: version,
		Action:  serve,
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
				Usage:  "Serve the HTTP API",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:      "ls",
				Usage:     "List files, newest first",
				ArgsUsage: "[query]",
				Action:    list,
			},
			{
				Name:      "upload",
				Usage:     "Copy a document into the vault",
				ArgsUsage: "<path>",
				Action:    upload,
			},
			{
				Name:      "tag",
				Usage:     "Replace the tags of a file",
				ArgsUsage: "<id> \"<tag, tag>\"",
				Action:    tag,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
