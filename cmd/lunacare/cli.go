package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hbiui/LunaCare/internal/errors"
	"github.com/hbiui/LunaCare/internal/ops"
	"github.com/hbiui/LunaCare/internal/web"
)

// newCLIApp creates the CLI application with all commands. d may be nil when
// only help or version output is needed.
func newCLIApp(d *deps) *cli.App {
	app := &cli.App{
		Name:    "lunacare",
		Usage:   "Menstrual cycle tracker and care advisor",
		Version: Version,
		Commands: []*cli.Command{
			logCmd(d),
			statusCmd(d),
			predictCmd(d),
			statsCmd(d),
			askCmd(d),
			tipCmd(d),
			topicsCmd(d),
			symptomCmd(d),
			exportCmd(d),
			importCmd(d),
			serveCmd(d),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// logFlags are shared by log add and log edit.
func logFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "start", Aliases: []string{"s"}, Usage: "Period start date (YYYY-MM-DD)"},
		&cli.StringFlag{Name: "end", Aliases: []string{"e"}, Usage: "Period end date (YYYY-MM-DD)"},
		&cli.StringFlag{Name: "flow", Aliases: []string{"f"}, Usage: "Flow: Light|Medium|Heavy (default Medium)"},
		&cli.StringFlag{Name: "mood", Usage: "Mood (default Happy)"},
		&cli.StringFlag{Name: "symptoms", Usage: "Comma-separated symptoms"},
		&cli.StringFlag{Name: "notes", Aliases: []string{"n"}, Usage: "Free-form notes"},
	}
}

// logInputFromFlags builds a LogInput from the shared log flags.
func logInputFromFlags(c *cli.Context) ops.LogInput {
	input := ops.LogInput{
		StartDate: c.String("start"),
		Flow:      c.String("flow"),
		Mood:      c.String("mood"),
		Symptoms:  parseSymptoms(c.String("symptoms")),
	}
	if end := c.String("end"); end != "" {
		input.EndDate = &end
	}
	if notes := c.String("notes"); notes != "" {
		input.Notes = &notes
	}
	return input
}

// logCmd creates the log command group.
func logCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "log",
		Usage: "Record and manage period logs",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Record a period",
				Flags: logFlags(),
				Action: func(c *cli.Context) error {
					output, err := ops.AddLog(c.Context, d.db, logInputFromFlags(c))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, output)
				},
			},
			{
				Name:      "edit",
				Usage:     "Replace the fields of an existing log",
				ArgsUsage: "<id>",
				Flags:     logFlags(),
				Action: func(c *cli.Context) error {
					output, err := ops.UpdateLog(c.Context, d.db, c.Args().First(), logInputFromFlags(c))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, output)
				},
			},
			{
				Name:      "delete",
				Usage:     "Permanently delete a log",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					output, err := ops.DeleteLog(c.Context, d.db, c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, output)
				},
			},
			{
				Name:  "list",
				Usage: "List logs, most recent first",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
					&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.ListLogs(c.Context, d.db, ops.ListInput{
						Limit:  c.Int("limit"),
						Offset: c.Int("offset"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, output)
				},
			},
			{
				Name:  "clear",
				Usage: "Delete every log, custom symptom, and cached answer",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm permanent deletion"},
				},
				Action: func(c *cli.Context) error {
					if !c.Bool("yes") {
						return outputError(errors.NewInvalidRequest("refusing to clear without --yes"))
					}
					output, err := ops.ClearAll(c.Context, d.db, d.cache)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, output)
				},
			},
		},
	}
}

// statusCmd creates the status command.
func statusCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the current phase, cycle day, and next predicted period",
		Action: func(c *cli.Context) error {
			output, err := ops.Status(c.Context, d.db, ops.StatusInput{})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// predictCmd creates the predict command.
func predictCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "predict",
		Usage: "Predict the next period start date",
		Action: func(c *cli.Context) error {
			output, err := ops.PredictNext(c.Context, d.db)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Summarize cycle lengths, durations, and regularity",
		Action: func(c *cli.Context) error {
			output, err := ops.Stats(c.Context, d.db)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// askCmd creates the ask command.
func askCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask a question for the current phase",
		ArgsUsage: "[question]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "topic", Aliases: []string{"t"}, Usage: "Ask the stored question of a library topic"},
			&cli.StringFlag{Name: "phase", Aliases: []string{"p"}, Usage: "Override the derived phase"},
			&cli.BoolFlag{Name: "stream", Usage: "Print the answer as it arrives instead of JSON"},
		},
		Action: func(c *cli.Context) error {
			input := ops.AdviceInput{
				Query:   strings.Join(c.Args().Slice(), " "),
				TopicID: c.String("topic"),
				Phase:   c.String("phase"),
			}

			if !c.Bool("stream") {
				output, err := ops.ResolveAdvice(c.Context, d.db, d.advisor, input)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(c.App.Writer, output)
			}

			// Partials carry the whole text so far; print only what is new.
			printed := 0
			_, err := ops.ResolveAdviceStream(c.Context, d.db, d.advisor, input, func(partial string) {
				fmt.Fprint(c.App.Writer, partial[printed:])
				printed = len(partial)
			})
			if err != nil {
				return outputError(err)
			}
			fmt.Fprintln(c.App.Writer)
			return nil
		},
	}
}

// tipCmd creates the tip command.
func tipCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "tip",
		Usage: "Show today's care tip",
		Action: func(c *cli.Context) error {
			output, err := ops.DailyTip(c.Context, d.db, d.advisor, ops.TipInput{})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// topicsCmd creates the topics command.
func topicsCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "topics",
		Usage: "List suggested questions",
		Action: func(c *cli.Context) error {
			output, err := ops.Topics(c.Context, d.db, ops.TopicsInput{})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// symptomCmd creates the symptom command group.
func symptomCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "symptom",
		Usage: "Manage custom symptoms",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List default and custom symptoms",
				Action: func(c *cli.Context) error {
					output, err := ops.ListSymptoms(c.Context, d.db)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, output)
				},
			},
			{
				Name:      "add",
				Usage:     "Add a custom symptom",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "emoji", Usage: "Display emoji (default ✨)"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.AddSymptom(c.Context, d.db, ops.SymptomInput{
						Name:  c.Args().First(),
						Emoji: c.String("emoji"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, output)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a custom symptom",
				ArgsUsage: "<name>",
				Action: func(c *cli.Context) error {
					name := c.Args().First()
					if err := ops.DeleteSymptom(c.Context, d.db, name); err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, map[string]any{"deleted": true, "name": name})
				},
			},
		},
	}
}

// exportCmd creates the export command.
func exportCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export logs and custom symptoms to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.lunacare/exports/<label>-<timestamp>.jsonl)"},
			&cli.StringFlag{Name: "label", Usage: "Label used in the default file name"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, d.db, d.cfg, ops.ExportInput{
				Path:  c.String("path"),
				Label: c.String("label"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// importCmd creates the import command.
func importCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import logs and custom symptoms from a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|replace|rename"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(c.Context, d.db, d.cfg, ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the JSON API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8737, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			if port := c.Int("port"); port < 1 || port > 65535 {
				return outputError(errors.NewInvalidRequest("port must be between 1 and 65535"))
			}
			srv := web.NewServer(web.Options{
				DB:       d.db,
				Advisor:  d.advisor,
				Cache:    d.cache,
				Gatherer: d.registry,
				Logger:   d.logger,
			}, c.String("bind"), c.Int("port"))
			return web.Run(srv, d.logger)
		},
	}
}

// Helper functions

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var lErr *errors.LunaError
	if stderrors.As(err, &lErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", lErr.Code, lErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// parseSymptoms splits a comma-separated list. Full-width commas are
// accepted as separators too.
func parseSymptoms(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '，' })
	symptoms := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			symptoms = append(symptoms, t)
		}
	}
	return symptoms
}
