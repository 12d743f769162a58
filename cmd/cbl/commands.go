package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/cbl/internal"
	"github.com/starford/cbl/internal/docservice"
	"github.com/starford/cbl/internal/editor"
	"github.com/starford/cbl/internal/mcpserver"
	"github.com/starford/cbl/internal/render"
	pkgconfig "github.com/starford/cbl/pkg/config"
)

// env is what every command needs before touching the workspace.
type env struct {
	layout     internal.Layout
	configPath string
	config     *internal.Config
	logger     *slog.Logger
}

func setup(cmd *cli.Command) (*env, error) {
	layout := internal.NewLayout(cmd.String("root"))
	configPath := cmd.String("config")
	if configPath == "" {
		configPath = layout.ConfigPath()
	}

	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	level := cfg.App.LogLevel
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.Root().ErrWriter, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	return &env{layout: layout, configPath: configPath, config: cfg, logger: logger}, nil
}

func (e *env) open(create bool) (*internal.Workspace, error) {
	return internal.OpenWorkspace(e.layout, e.config, create, e.logger)
}

func requireArgs(cmd *cli.Command, n int) error {
	if cmd.NArg() < n {
		return fmt.Errorf("%s: expected %d argument(s): %s", cmd.Name, n, cmd.ArgsUsage)
	}
	return nil
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:      "init",
		Usage:     "Create the workspace (if needed) and a new project",
		ArgsUsage: "<project>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "description", Usage: "Project description"},
			&cli.StringFlag{Name: "sections", Usage: "Comma-separated section order written to the config"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			ws, err := e.open(true)
			if err != nil {
				return err
			}
			defer ws.Close()

			name := cmd.Args().First()
			if _, err := ws.Service.Init(ctx, name, cmd.String("description")); err != nil {
				return err
			}

			if sections := cmd.String("sections"); sections != "" {
				e.config.Display.Sections = sections
			}
			if cmd.IsSet("sections") || !fileExists(e.configPath) {
				if err := pkgconfig.Save(e.configPath, e.config); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.Root().Writer, "Initialized project '%s'\n", name)
			return nil
		},
	}
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add a new version of an object",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "version", Usage: "Semantic version (default: defaults.version)"},
			&cli.StringFlag{Name: "section", Usage: "Section label"},
			&cli.StringFlag{Name: "audience", Usage: "Audience label"},
			&cli.StringFlag{Name: "project", Usage: "Project name (default: the only project)"},
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Read content from a file, or - for stdin"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			ws, err := e.open(false)
			if err != nil {
				return err
			}
			defer ws.Close()

			name := cmd.Args().First()
			src := editor.Source{
				Stdin:  os.Stdin,
				Stdout: cmd.Root().Writer,
				Stderr: cmd.Root().ErrWriter,
				Editor: e.config.Defaults.Editor,
			}
			content, err := src.Read(ctx, name, cmd.String("file"))
			if err != nil {
				return err
			}

			added, err := ws.Service.Add(ctx, docservice.AddInput{
				Project:  cmd.String("project"),
				Name:     name,
				Version:  cmd.String("version"),
				Section:  cmd.String("section"),
				Audience: cmd.String("audience"),
				Content:  content,
			})
			if err != nil {
				return err
			}
			e.logger.Debug("object stored", slog.String("digest", added.Record.Digest))

			fmt.Fprintf(cmd.Root().Writer, "Added object '%s' version %s to project '%s'\n",
				added.Record.Name, added.Record.Version, added.Project)
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "List every object version in a project",
		ArgsUsage: "<project>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			ws, err := e.open(false)
			if err != nil {
				return err
			}
			defer ws.Close()

			project := cmd.Args().First()
			records, err := ws.Service.List(ctx, project)
			if err != nil {
				return err
			}
			return render.Records(cmd.Root().Writer, fmt.Sprintf("Objects in %s", project), records)
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show the objects visible at a version",
		ArgsUsage: "<project> <version>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "level", Usage: "Audience filter (default: defaults.audience)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 2); err != nil {
				return err
			}
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			ws, err := e.open(false)
			if err != nil {
				return err
			}
			defer ws.Close()

			project, target := cmd.Args().Get(0), cmd.Args().Get(1)
			buckets, err := ws.Service.Show(ctx, project, target, cmd.String("level"))
			if err != nil {
				return err
			}
			level := ws.Service.Level(cmd.String("level"))
			if level == "" {
				level = "all"
			}
			title := fmt.Sprintf("Visible objects for %s @ %s (level=%s)", project, target, level)
			return render.Preview(cmd.Root().Writer, title, buckets)
		},
	}
}

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "Assemble the document for a version",
		ArgsUsage: "<project> <version>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "level", Usage: "Audience filter (default: defaults.audience)"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write to a file instead of stdout"},
			&cli.StringFlag{Name: "format", Value: render.FormatMarkdown, Usage: "Output format: md or html"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 2); err != nil {
				return err
			}
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			ws, err := e.open(false)
			if err != nil {
				return err
			}
			defer ws.Close()

			doc, err := ws.Service.Build(ctx, cmd.Args().Get(0), cmd.Args().Get(1), cmd.String("level"))
			if err != nil {
				return err
			}
			out, err := render.Document(doc, cmd.String("format"))
			if err != nil {
				return err
			}

			if path := cmd.String("out"); path != "" {
				if err := os.WriteFile(path, out, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				e.logger.Info("document written", slog.String("path", path), slog.Int("bytes", len(out)))
				return nil
			}
			_, err = cmd.Root().Writer.Write(out)
			return err
		},
	}
}

func projectsCommand() *cli.Command {
	return &cli.Command{
		Name:  "projects",
		Usage: "List projects",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			ws, err := e.open(false)
			if err != nil {
				return err
			}
			defer ws.Close()

			projects, err := ws.Service.Projects(ctx)
			if err != nil {
				return err
			}
			return render.Projects(cmd.Root().Writer, projects)
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP API with live events",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Usage: "Override app.http.port"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			if port := cmd.Int("port"); port > 0 {
				e.config.App.HTTP.Port = int(port)
			}
			if cmd.Bool("verbose") {
				e.config.App.LogLevel = slog.LevelDebug
			}

			opts := []internal.Option{
				internal.WithConfig(e.config),
				internal.WithLayout(e.layout),
				internal.WithConfigPath(e.configPath),
			}
			if err := internal.Run(ctx, opts...); err != nil {
				return fmt.Errorf("app run error: %w", err)
			}
			return nil
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			ws, err := e.open(false)
			if err != nil {
				return err
			}
			defer ws.Close()

			e.logger.Debug("mcp: serving on stdio")
			return mcpserver.New(ws.Service, strings.TrimPrefix(version, "v")).ServeStdio()
		},
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
