package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/enigma/internal"
	pkgconfig "github.com/starford/enigma/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func dump(_ context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return cli.Exit("usage: enigma dump [flags] <file>", 2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return internal.Dump(os.Stdout, path, internal.DumpOptions{
		Strict:  cmd.Bool("strict"),
		Part:    int(cmd.Int("part")),
		Staff:   int(cmd.Int("staff")),
		Measure: int(cmd.Int("measure")),
		Layer:   int(cmd.Int("layer")),
	}, logger)
}

func check(_ context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return cli.Exit("usage: enigma check <file>", 2)
	}
	report, err := internal.Check(path)
	if err != nil {
		return err
	}
	s := report.Stats
	fmt.Printf("%s: %d entries, %d frames, %d frame holders, %d tuplets\n",
		path, s.Entries, s.Frames, s.FrameHolds, s.TupletDefs)
	for _, v := range report.Violations {
		fmt.Println("  " + v)
	}
	if n := len(report.Violations); n > 0 {
		return cli.Exit(fmt.Sprintf("%d consistency violation(s)", n), 1)
	}
	return nil
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file (.yaml or .toml)",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:    "enigma",
		Usage:   "Index and traverse EnigmaXML score documents",
		Version: version,
		Action:  serve,
		Flags:   []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Index the library and serve the HTTP API",
				Flags:  []cli.Flag{configFlag},
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Index the library and serve MCP tools over stdio",
				Flags:  []cli.Flag{configFlag},
				Action: serveMCP,
			},
			{
				Name:      "dump",
				Usage:     "Print the traversed entries of a document",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "strict", Usage: "Fail on the first consistency violation"},
					&cli.IntFlag{Name: "part", Usage: "Linked part id (0 = score)"},
					&cli.IntFlag{Name: "staff", Value: -1, Usage: "Only this staff"},
					&cli.IntFlag{Name: "measure", Value: -1, Usage: "Only this measure"},
					&cli.IntFlag{Name: "layer", Value: -1, Usage: "Only this layer (0-3)"},
				},
				Action: dump,
			},
			{
				Name:      "check",
				Usage:     "Report consistency violations in a document",
				ArgsUsage: "<file>",
				Action:    check,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
