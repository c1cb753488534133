package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/munin/internal"
	"github.com/starford/munin/internal/journal"
	pkgconfig "github.com/starford/munin/pkg/config"
)

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithMCP(cmd.Bool("mcp")),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runRecord(_ context.Context, cmd *cli.Command) error {
	j, err := journal.New(journal.ResolvePath(cmd.String("journal")))
	if err != nil {
		return err
	}

	ev := journal.Event{
		Type:      cmd.String("type"),
		Namespace: cmd.String("namespace"),
		Origin:    cmd.String("origin"),
		Actor:     cmd.String("actor"),
	}
	if raw := cmd.String("payload"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &ev.Payload); err != nil {
			return fmt.Errorf("payload is not a JSON object: %w", err)
		}
	}

	st, err := j.Append(ev)
	if err != nil {
		return err
	}
	fmt.Printf("recorded %s as event %d\n", ev.Type, len(st.Memories))
	return nil
}

func runTail(_ context.Context, cmd *cli.Command) error {
	j, err := journal.New(journal.ResolvePath(cmd.String("journal")))
	if err != nil {
		return err
	}

	st, err := j.Peek()
	if err != nil {
		return err
	}

	n := int(cmd.Int("n"))
	if n <= 0 || n > len(st.Memories) {
		n = len(st.Memories)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, ev := range st.Memories[len(st.Memories)-n:] {
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	journalFlag := &cli.StringFlag{
		Name:    "journal",
		Aliases: []string{"j"},
		Usage:   "Path to the journal file (overrides MUNIN_JOURNAL_PATH)",
	}

	cmd := &cli.Command{
		Name:  "munin",
		Usage: "Append-only event journal with file locking, search index, and HTTP/MCP access",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API server (or MCP stdio server with --mcp)",
				Action: runServe,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "config",
						Aliases:     []string{"c"},
						Usage:       "Path to config file",
						DefaultText: "config/config.yaml",
						Value:       "config/config.yaml",
						Sources:     cli.EnvVars("APP_CONFIG_FILE"),
					},
					&cli.BoolFlag{
						Name:  "mcp",
						Usage: "Serve the MCP protocol on stdio instead of HTTP",
					},
				},
			},
			{
				Name:   "record",
				Usage:  "Append a single event to the journal",
				Action: runRecord,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "type",
						Aliases:  []string{"t"},
						Usage:    "Event kind, e.g. health_snapshot",
						Required: true,
					},
					&cli.StringFlag{Name: "namespace", Usage: "Source namespace"},
					&cli.StringFlag{Name: "origin", Usage: "Originating component", Value: "cli"},
					&cli.StringFlag{Name: "actor", Usage: "Optional actor identifier"},
					&cli.StringFlag{Name: "payload", Aliases: []string{"p"}, Usage: "Payload as a JSON object string"},
					journalFlag,
				},
			},
			{
				Name:   "tail",
				Usage:  "Print the most recent journal events",
				Action: runTail,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "n",
						Usage: "Number of events to print (0 = all)",
						Value: 10,
					},
					journalFlag,
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
