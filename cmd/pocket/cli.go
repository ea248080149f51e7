package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize/english"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/pocket/internal/capsule"
	"github.com/hpungsan/pocket/internal/config"
	"github.com/hpungsan/pocket/internal/errors"
	"github.com/hpungsan/pocket/internal/events"
	"github.com/hpungsan/pocket/internal/kv"
	"github.com/hpungsan/pocket/internal/learn"
	"github.com/hpungsan/pocket/internal/library"
	"github.com/hpungsan/pocket/internal/logging"
	"github.com/hpungsan/pocket/internal/ops"
	"github.com/hpungsan/pocket/internal/web"
)

// runtime is what the commands run against. It is nil for --help and
// --version, which never reach an Action.
type runtime struct {
	store kv.Store
	bus   *events.Bus
	cfg   *config.Config
	log   *logging.Logger
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(rt *runtime) *cli.App {
	app := &cli.App{
		Name:    "pocket",
		Usage:   "Study capsules: notes, flashcards and quizzes",
		Version: Version,
		Commands: []*cli.Command{
			newCmd(rt),
			saveCmd(rt),
			fetchCmd(rt),
			listCmd(rt),
			libraryCmd(rt),
			deleteCmd(rt),
			exportCmd(rt),
			importCmd(rt),
			progressCmd(rt),
			markCmd(rt, "known", true),
			markCmd(rt, "unknown", false),
			quizCmd(rt),
			checkCmd(rt),
			serveCmd(rt),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// newCmd creates the new command.
func newCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "new",
		Usage: "Create an empty capsule",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Capsule title"},
			&cli.StringFlag{Name: "subject", Aliases: []string{"s"}, Usage: "Subject"},
			&cli.StringFlag{Name: "level", Aliases: []string{"l"}, Usage: "Beginner|Intermediate|Advanced"},
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Short description"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Create(c.Context, rt.store, ops.CreateInput{
				Title:       c.String("title"),
				Subject:     c.String("subject"),
				Level:       c.String("level"),
				Description: c.String("description"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// saveCmd creates the save command.
func saveCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "save",
		Usage: "Save a capsule (reads capsule JSON from stdin)",
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("capsule JSON must be piped via stdin"))
			}
			data, err := readStdin()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if data == "" {
				return outputError(errors.NewInvalidRequest("capsule JSON is required"))
			}

			var draft capsule.Capsule
			if err := json.Unmarshal([]byte(data), &draft); err != nil {
				return outputError(errors.NewMalformedInput("stdin", err))
			}

			output, err := ops.Save(c.Context, rt.store, ops.SaveInput{Capsule: &draft})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// fetchCmd creates the fetch command.
func fetchCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch a capsule by ID",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.Fetch(c.Context, rt.store, ops.FetchInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List capsules in library order",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: ops.DefaultListLimit, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Value: 0, Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(c.Context, rt.store, ops.ListInput{
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

// libraryCmd creates the library command.
func libraryCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "library",
		Usage: "Show the library with progress bars",
		Action: func(c *cli.Context) error {
			view, err := library.Build(c.Context, rt.store, time.Now())
			if err != nil {
				return outputError(err)
			}
			printLibrary(os.Stdout, view)
			return nil
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a capsule with its progress",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.Delete(c.Context, rt.store, ops.DeleteInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export a capsule to a JSON file",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output file path (default: ~/.pocket/exports/<title>.json)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, rt.store, rt.cfg, ops.ExportInput{
				ID:   c.Args().First(),
				Path: c.String("path"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import a capsule from a JSON export file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(c.Context, rt.store, rt.cfg, ops.ImportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// progressCmd creates the progress command.
func progressCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "progress",
		Usage:     "Show best quiz score and known flashcards",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.GetProgress(c.Context, rt.store, ops.ProgressInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// markCmd creates the known and unknown commands.
func markCmd(rt *runtime, name string, known bool) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     fmt.Sprintf("Mark a flashcard %s", name),
		ArgsUsage: "<id> <index>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return outputError(errors.NewInvalidRequest("usage: pocket " + name + " <id> <index>"))
			}
			index, err := strconv.Atoi(c.Args().Get(1))
			if err != nil {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("index must be a number, got %q", c.Args().Get(1))))
			}
			output, err := ops.MarkFlashcard(c.Context, rt.store, ops.MarkFlashcardInput{
				ID:    c.Args().First(),
				Index: index,
				Known: known,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// quizCmd creates the interactive quiz command.
func quizCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "quiz",
		Usage:     "Take a capsule's quiz in the terminal",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			session, err := learn.NewSession(c.Context, rt.store, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			if err := session.SetMode(learn.ModeQuiz); err != nil {
				return outputError(err)
			}
			if len(session.Capsule().Quiz) == 0 {
				return outputError(errors.NewInvalidRequest("capsule has no quiz questions"))
			}
			if err := runQuiz(c, session, bufio.NewReader(os.Stdin), os.Stdout); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// checkCmd creates the check command.
func checkCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Compare the library index with the stored capsules",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "prune", Usage: "Repair dangling entries and orphaned records"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Check(c.Context, rt.store, ops.CheckInput{Prune: c.Bool("prune")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to listen on"},
			&cli.IntFlag{Name: "port", Value: 8420, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			watcher := library.NewWatcher(rt.store, rt.bus, rt.cfg.PollInterval(), rt.log)
			srv, err := web.NewServer(web.Options{
				Store:   rt.store,
				Watcher: watcher,
				Config:  rt.cfg,
				Log:     rt.log,
				Version: Version,
				Bind:    c.String("bind"),
				Port:    c.Int("port"),
			})
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if err := web.Run(c.Context, srv, watcher, rt.log); err != nil {
				rt.log.Error("web UI stopped", "error", err)
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}

// runQuiz asks every question in turn. Answers are letters A-D; anything
// else is asked again.
func runQuiz(c *cli.Context, s *learn.Session, in *bufio.Reader, out io.Writer) error {
	bold := color.New(color.Bold)
	good := color.New(color.FgGreen, color.Bold)
	bad := color.New(color.FgRed, color.Bold)
	faint := color.New(color.Faint)

	_, _ = bold.Fprintf(out, "%s\n\n", s.View().Title)

	for !s.Finished() {
		q := s.View().Question
		_, _ = bold.Fprintf(out, "Question %d/%d: ", q.Index+1, q.Total)
		fmt.Fprintln(out, q.Question)
		for i, choice := range q.Choices {
			fmt.Fprintf(out, "  %c) %s\n", 'A'+i, choice)
		}

		var choice int
		for {
			fmt.Fprint(out, "> ")
			line, err := in.ReadString('\n')
			if line == "" && err != nil {
				if err == io.EOF {
					fmt.Fprintln(out)
					return errors.NewCancelled("quiz")
				}
				return errors.NewInternal(err)
			}
			var ok bool
			if choice, ok = parseChoice(line); ok {
				break
			}
			_, _ = faint.Fprintln(out, "Answer with A, B, C or D.")
		}

		fb, err := s.Answer(choice)
		if err != nil {
			return err
		}
		if fb.IsCorrect {
			_, _ = good.Fprintln(out, "Correct!")
		} else {
			_, _ = bad.Fprintf(out, "Wrong. The answer is %c.\n", 'A'+fb.Correct)
		}
		if fb.Explanation != "" {
			_, _ = faint.Fprintln(out, fb.Explanation)
		}
		fmt.Fprintln(out)

		result, err := s.Advance(c.Context)
		if err != nil {
			return err
		}
		if result != nil {
			_, _ = bold.Fprintf(out, "Score: %d%%  Best: %d%%\n", result.Score, result.BestScore)
			if result.Improved {
				_, _ = good.Fprintln(out, "New best score!")
			}
		}
	}
	return nil
}

// parseChoice maps a letter A-D (either case) to 0-3.
func parseChoice(line string) (int, bool) {
	s := strings.ToUpper(strings.TrimSpace(line))
	if len(s) != 1 || s[0] < 'A' || s[0] > 'D' {
		return 0, false
	}
	return int(s[0] - 'A'), true
}

// barWidth is the number of cells of a terminal progress bar.
const barWidth = 20

// printLibrary writes one block per capsule card.
func printLibrary(out io.Writer, v *library.View) {
	if len(v.Cards) == 0 {
		fmt.Fprintln(out, "No capsules yet. Run 'pocket new' or 'pocket import --path <file>'.")
		return
	}

	title := color.New(color.Bold)
	faint := color.New(color.Faint)
	missing := color.New(color.FgRed)

	for i, card := range v.Cards {
		if i > 0 {
			fmt.Fprintln(out)
		}
		if card.Missing {
			_, _ = missing.Fprintf(out, "%s (missing capsule record)\n", card.ID)
			continue
		}
		_, _ = title.Fprint(out, card.Title)
		fmt.Fprintf(out, "  [%s]  %s\n", card.Level, card.Subject)
		_, _ = faint.Fprintf(out, "  %s · updated %s · %s, %s, %s\n",
			card.ID, card.Updated,
			english.Plural(card.Counts.Notes, "note", "notes"),
			english.Plural(card.Counts.Flashcards, "flashcard", "flashcards"),
			english.Plural(card.Counts.Quiz, "question", "questions"))
		fmt.Fprintf(out, "  %s  quiz %d%%  known %d%%\n", progressBar(card.Segments), card.BestScore, card.Known)
	}
}

// progressBar draws the quiz, flashcard and remaining segments.
func progressBar(seg capsule.Segments) string {
	quiz := seg.Quiz * barWidth / 100
	flash := seg.Flash * barWidth / 100
	rest := barWidth - quiz - flash

	var b strings.Builder
	b.WriteString(color.GreenString(strings.Repeat("█", quiz)))
	b.WriteString(color.BlueString(strings.Repeat("█", flash)))
	b.WriteString(color.New(color.Faint).Sprint(strings.Repeat("░", rest)))
	return b.String()
}

// outputJSON writes JSON output to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if pErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", pErr.Code, pErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
