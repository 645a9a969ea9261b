package main

import (
	"context"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/justestif/go-music-muse/internal/engine"
	"github.com/justestif/go-music-muse/internal/logging"
	"github.com/justestif/go-music-muse/internal/query"
)

const maxConcurrentQuestions = 4

// answer is one question's result, as printed by ask --json.
type answer struct {
	Question string            `json:"question"`
	Parsed   query.ParsedQuery `json:"parsed"`
	HTML     string            `json:"html"`
}

func newAskCmd(a *app) *cobra.Command {
	var (
		userID  string
		asJSON  bool
		rawHTML bool
	)

	cmd := &cobra.Command{
		Use:   "ask QUESTION...",
		Short: "Answer one or more questions",
		Example: `  music-muse ask --user 42 "When did I first listen to Frank Ocean?"
  music-muse ask --json "What are my top songs after 8PM?" "Which artists did I skip the most on Thursdays?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			database, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			logging.Debug().Int("questions", len(args)).Str("user_id", userID).Msg("answering")
			answers, err := askAll(ctx, a.newEngine(database), args, userID)
			if err != nil {
				return err
			}
			return printAnswers(cmd.OutOrStdout(), answers, asJSON, rawHTML)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "restrict answers to this user id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the parsed query and HTML as JSON lines")
	cmd.Flags().BoolVar(&rawHTML, "html", false, "print the HTML fragment instead of plain text")
	return cmd
}

// askAll answers questions concurrently, each in its own pipeline run, and
// returns the answers in argument order.
func askAll(ctx context.Context, e *engine.Engine, questions []string, userID string) ([]answer, error) {
	answers := make([]answer, len(questions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentQuestions)
	for i, question := range questions {
		g.Go(func() error {
			q, rendered := e.Answer(gctx, question, userID)
			answers[i] = answer{Question: question, Parsed: q, HTML: rendered}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("answering questions: %w", err)
	}
	return answers, nil
}

func printAnswers(w io.Writer, answers []answer, asJSON, rawHTML bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		for _, a := range answers {
			if err := enc.Encode(a); err != nil {
				return fmt.Errorf("encoding answer: %w", err)
			}
		}
		return nil
	}

	for i, a := range answers {
		if i > 0 {
			fmt.Fprintln(w)
		}
		body := a.HTML
		if !rawHTML {
			body = plainText(body)
		}
		fmt.Fprintf(w, "Q: %s\n%s\n", a.Question, body)
	}
	return nil
}

var (
	blockEnd = regexp.MustCompile(`</(h2|li|p|ul)>`)
	anyTag   = regexp.MustCompile(`<[^>]+>`)
)

// plainText renders an answer fragment for a terminal: one line per heading
// or list item.
func plainText(fragment string) string {
	s := strings.ReplaceAll(fragment, "<li>", "  - ")
	s = blockEnd.ReplaceAllString(s, "\n")
	s = anyTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)

	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimRight(line, " "))
		}
	}
	return strings.Join(lines, "\n")
}
