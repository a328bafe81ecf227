package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/wikivault/wikivault/internal/errors"
	"github.com/wikivault/wikivault/internal/mcp"
	"github.com/wikivault/wikivault/internal/ops"
	"github.com/wikivault/wikivault/internal/sync"
	"github.com/wikivault/wikivault/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "wikivault",
		Usage:   "Offline wiki page vault",
		Version: Version,
		Commands: []*cli.Command{
			addCmd(env),
			removeCmd(env),
			forceSaveCmd(env),
			pagesCmd(env),
			listsCmd(env),
			createListCmd(env),
			searchCmd(env),
			statusCmd(env),
			syncCmd(env),
			exportCmd(env),
			serveCmd(env),
			mcpCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// addCmd creates the add command.
func addCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Track a wiki page and queue it for download",
		ArgsUsage: "<title>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "list", Aliases: []string{"l"}, Usage: "Reading list id (default list when omitted)"},
			&cli.StringFlag{Name: "lang", Usage: "Page language (config default when omitted)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("title argument is required"))
			}

			output, err := ops.AddPage(c.Context, env.db, env.cfg, ops.AddPageInput{
				ListID: c.String("list"),
				Title:  c.Args().First(),
				Lang:   c.String("lang"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// removeCmd creates the remove command.
func removeCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Usage:     "Queue a tracked page for deletion",
		ArgsUsage: "<id|title>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "list", Aliases: []string{"l"}, Usage: "Reading list id"},
			&cli.StringFlag{Name: "lang", Usage: "Page language"},
		},
		Action: func(c *cli.Context) error {
			input := ops.RemovePageInput{
				ListID: c.String("list"),
				Lang:   c.String("lang"),
			}
			if err := fillPageAddress(c, &input.ID, &input.Title); err != nil {
				return outputError(err)
			}

			output, err := ops.RemovePage(c.Context, env.db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// forceSaveCmd creates the force-save command.
func forceSaveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "force-save",
		Usage:     "Queue a page for a forced re-download, resetting its retry budget",
		ArgsUsage: "<id|title>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "list", Aliases: []string{"l"}, Usage: "Reading list id"},
			&cli.StringFlag{Name: "lang", Usage: "Page language"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ForceSaveInput{
				ListID: c.String("list"),
				Lang:   c.String("lang"),
			}
			if err := fillPageAddress(c, &input.ID, &input.Title); err != nil {
				return outputError(err)
			}

			output, err := ops.ForceSave(c.Context, env.db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// pagesCmd creates the pages command.
func pagesCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "pages",
		Usage: "List the pages tracked on a reading list",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "list", Aliases: []string{"l"}, Usage: "Reading list id"},
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "Page size"},
			&cli.IntFlag{Name: "offset", Value: 0, Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListPages(c.Context, env.db, ops.ListPagesInput{
				ListID: c.String("list"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// listsCmd creates the lists command.
func listsCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "lists",
		Usage: "Show all reading lists",
		Action: func(c *cli.Context) error {
			output, err := ops.Lists(c.Context, env.db)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// createListCmd creates the create-list command.
func createListCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "create-list",
		Usage:     "Create a new reading list",
		ArgsUsage: "<title>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "List description (Markdown)"},
			&cli.BoolFlag{Name: "no-download", Usage: "Track pages on this list without saving them offline"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("title argument is required"))
			}

			input := ops.CreateListInput{
				Title:      c.Args().First(),
				NoDownload: c.Bool("no-download"),
			}
			if desc := c.String("description"); desc != "" {
				input.Description = &desc
			}

			output, err := ops.CreateList(c.Context, env.db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// searchCmd creates the search command.
func searchCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Full-text search over saved page content",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "Page size"},
			&cli.IntFlag{Name: "offset", Value: 0, Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("query argument is required"))
			}

			output, err := ops.Search(c.Context, env.db, ops.SearchInput{
				Query:  c.Args().First(),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// statusCmd creates the status command.
func statusCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show vault statistics, or one page's storage detail",
		ArgsUsage: "[id|title]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "list", Aliases: []string{"l"}, Usage: "Reading list id"},
			&cli.StringFlag{Name: "lang", Usage: "Page language"},
		},
		Action: func(c *cli.Context) error {
			input := ops.StatusInput{
				ListID: c.String("list"),
				Lang:   c.String("lang"),
			}
			if c.NArg() > 0 {
				if err := fillPageAddress(c, &input.ID, &input.Title); err != nil {
					return outputError(err)
				}
			}

			output, err := ops.Status(c.Context, env.db, env.store, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// syncCmd creates the sync command.
func syncCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Run a sync pass (downloads queued saves, applies queued deletes)",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "loop", Usage: "Keep syncing on the configured interval until interrupted"},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("loop") {
				scheduler := sync.NewScheduler(env.worker, env.cfg.SyncInterval(), nil)
				return scheduler.Run(c.Context)
			}

			output, err := ops.SyncNow(c.Context, env.worker)
			if err != nil {
				return outputError(err)
			}
			env.interceptor.Flush()
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export a saved page's stored content as Markdown",
		ArgsUsage: "<id|title>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "list", Aliases: []string{"l"}, Usage: "Reading list id"},
			&cli.StringFlag{Name: "lang", Usage: "Page language"},
			&cli.StringFlag{Name: "path", Aliases: []string{"o"}, Usage: "Destination file (.md)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ExportInput{
				ListID: c.String("list"),
				Lang:   c.String("lang"),
				Path:   c.String("path"),
			}
			if err := fillPageAddress(c, &input.ID, &input.Title); err != nil {
				return outputError(err)
			}

			output, err := ops.Export(c.Context, env.db, env.store, env.cfg, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Value: 8321, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(env.db, env.store, env.worker, env.cfg, Version,
				c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the vault tools over MCP stdio",
		Action: func(c *cli.Context) error {
			for _, name := range mcp.ValidateDisabledTools(env.cfg.DisabledTools) {
				fmt.Fprintf(os.Stderr, "warning: unknown disabled tool %q\n", name)
			}
			for _, name := range mcp.ValidateDisabledTypes(env.cfg.DisabledTypes) {
				fmt.Fprintf(os.Stderr, "warning: unknown disabled type %q\n", name)
			}
			return mcp.Run(env.db, env.store, env.worker, env.cfg, Version)
		},
	}
}

// Helper functions

// fillPageAddress interprets the positional argument as a numeric page id
// when it parses as one, and as a title otherwise.
func fillPageAddress(c *cli.Context, id *int64, title *string) error {
	if c.NArg() == 0 {
		return errors.NewInvalidRequest("id or title argument is required")
	}
	arg := c.Args().First()
	if n, err := strconv.ParseInt(arg, 10, 64); err == nil && n > 0 {
		*id = n
		return nil
	}
	*title = arg
	return nil
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if vErr, ok := err.(*errors.VaultError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", vErr.Code, vErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
