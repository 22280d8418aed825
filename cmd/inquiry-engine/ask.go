// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/pdiddy/inquiry-engine/internal/router"
	"github.com/pdiddy/inquiry-engine/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the corpus",
	Long: `Ask runs a question through the full pipeline: clarification, research
over the indexed corpus (with knowledge-graph augmentation), verification of
the strongest claims, and answer generation.

If the question is ambiguous the run stops and prints clarifying questions;
re-run with a more specific question or pass --clarify=false to skip the
check. Progress lines are written to stderr. Use --stream to print each
pipeline event as it happens instead of the aggregate result.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().String("context", "", "additional context for the question")
	askCmd.Flags().Bool("clarify", true, "run the clarification stage")
	askCmd.Flags().Bool("verify", true, "run the verification stage")
	askCmd.Flags().Bool("stream", false, "print pipeline events as they happen")
	askCmd.Flags().String("format", formatText, "output format: text, json, yaml")
	askCmd.Flags().String("style", "", "answer style: comprehensive, concise, conversational")
	askCmd.Flags().String("language", "", "answer language (default from config)")
	askCmd.Flags().String("user", "", "requester id recorded in the confidentiality audit")
	askCmd.Flags().Int("max-results", 0, "maximum research findings (0 uses the configured default)")
	askCmd.Flags().Bool("no-graph", false, "disable knowledge-graph augmentation")
	askCmd.Flags().Bool("routes", false, "print the model routing decisions after the answer")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}
	stream, _ := cmd.Flags().GetBool("stream")
	showRoutes, _ := cmd.Flags().GetBool("routes")

	req := askRequest(cmd, strings.Join(args, " "))

	e, err := newEngine(engineCfg, loadedSecrets, logger)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	if stream {
		if err := streamEvents(os.Stdout, format, e.orch.Stream(ctx, req)); err != nil {
			return err
		}
	} else {
		req.Progress = func(ev types.Event) {
			if ev.Type == types.EventProgress {
				fmt.Fprintf(os.Stderr, "[%s] %s\n", ev.State, ev.Message)
			}
		}
		res := e.orch.Run(ctx, req)
		if format == formatText {
			printResult(os.Stdout, res)
		} else if err := writeStructured(os.Stdout, format, res); err != nil {
			return err
		}
		if res.State == types.StateError {
			return fmt.Errorf("run %v failed: %v", res.Metadata[types.MetaRunID], res.Metadata[types.MetaError])
		}
	}

	if showRoutes {
		printRoutes(os.Stdout, e.router.Decisions())
	}
	return nil
}

// askRequest builds the pipeline request from command flags.
func askRequest(cmd *cobra.Command, query string) types.Request {
	extra, _ := cmd.Flags().GetString("context")
	doClarify, _ := cmd.Flags().GetBool("clarify")
	doVerify, _ := cmd.Flags().GetBool("verify")
	style, _ := cmd.Flags().GetString("style")
	language, _ := cmd.Flags().GetString("language")
	user, _ := cmd.Flags().GetString("user")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	noGraph, _ := cmd.Flags().GetBool("no-graph")

	prefs := types.Preferences{}
	if style != "" {
		prefs["style"] = style
	}
	if language != "" {
		prefs["language"] = language
	}

	return types.Request{
		Query:                query,
		Context:              extra,
		Preferences:          prefs,
		RequireClarification: doClarify,
		RequireVerification:  doVerify,
		UserID:               user,
		MaxResults:           maxResults,
		DisableGraph:         noGraph,
	}
}

// streamEvents prints events until the channel closes. Structured formats
// emit one JSON object per line; YAML emits one document per event.
func streamEvents(w io.Writer, format string, events <-chan types.Event) error {
	var final types.Event
	for ev := range events {
		final = ev
		switch format {
		case formatJSON:
			if err := json.NewEncoder(w).Encode(ev); err != nil {
				return err
			}
		case formatYAML:
			fmt.Fprintln(w, "---")
			if err := writeStructured(w, formatYAML, ev); err != nil {
				return err
			}
		default:
			printEvent(w, ev)
		}
	}
	if final.Type == types.EventError {
		return fmt.Errorf("run failed: %s", final.Message)
	}
	return nil
}

func printEvent(w io.Writer, ev types.Event) {
	ts := ev.Timestamp.Format("15:04:05.000")
	switch ev.Type {
	case types.EventClarificationNeeded:
		fmt.Fprintf(w, "%s %-20s %s\n", ts, ev.Type, ev.Message)
		if c, ok := ev.Data.(types.ClarificationResult); ok {
			printQuestions(w, c.Questions)
		}
	case types.EventComplete:
		fmt.Fprintf(w, "%s %-20s %s\n", ts, ev.Type, ev.Message)
		if ans, ok := ev.Data.(types.AnswerResult); ok {
			fmt.Fprintln(w)
			fmt.Fprintln(w, ans.Answer)
			printAnswerDetail(w, ans)
			fmt.Fprintf(w, "\nconfidence %.2f, backend %s\n", ans.Confidence, ans.Backend)
		}
	default:
		fmt.Fprintf(w, "%s %-20s %s\n", ts, ev.Type, ev.Message)
	}
}

// printResult renders an aggregate result for a terminal.
func printResult(w io.Writer, res types.OrchestratorResult) {
	if res.NeedsUserInput() {
		fmt.Fprintln(w, "The question is ambiguous. Please clarify:")
		if res.Clarification != nil {
			printQuestions(w, res.Clarification.Questions)
		}
		return
	}
	if res.State == types.StateError {
		fmt.Fprintf(w, "Run ended in error: %v\n", res.Metadata[types.MetaError])
		return
	}

	fmt.Fprintln(w, res.Answer)

	if res.AnswerDetail != nil {
		printAnswerDetail(w, *res.AnswerDetail)
	}

	if v := res.Verification; v != nil && len(v.Results) > 0 {
		fmt.Fprintln(w, "\nVerification:")
		t := newTable(w, "Claim", "Verdict", "Confidence", "Sources")
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 1, WidthMax: 60},
			{Number: 3, Align: text.AlignRight},
			{Number: 4, Align: text.AlignRight},
		})
		for _, r := range v.Results {
			t.AppendRow(table.Row{r.Claim, r.Verdict, fmt.Sprintf("%.2f", r.Confidence), r.SourceCount})
		}
		t.Render()
	}

	confidence := 0.0
	if res.AnswerDetail != nil {
		confidence = res.AnswerDetail.Confidence
	}
	fmt.Fprintf(w, "\nconfidence %.2f, backend %s, %s\n", confidence, res.Backend, res.Duration.Round(time.Millisecond))
}

// printAnswerDetail prints key points, cited sources, caveats, and follow-ups.
func printAnswerDetail(w io.Writer, d types.AnswerResult) {
	bulletList(w, "Key points", d.KeyPoints)
	if len(d.Sources) > 0 {
		fmt.Fprintln(w, "\nSources:")
		t := newTable(w, "#", "Document", "Name", "Bucket")
		for i, s := range d.Sources {
			t.AppendRow(table.Row{i + 1, s.DocumentID, s.DocumentName, s.Bucket})
		}
		t.Render()
	}
	bulletList(w, "Caveats", d.Caveats)
	bulletList(w, "Follow-up questions", d.FollowUps)
}

func printQuestions(w io.Writer, questions []string) {
	for i, q := range questions {
		fmt.Fprintf(w, "  %d. %s\n", i+1, q)
	}
}

// printRoutes renders the router's decision log.
func printRoutes(w io.Writer, decisions []router.Decision) {
	fmt.Fprintln(w, "\nRouting decisions:")
	t := newTable(w, "Stage", "Backend", "Reason", "Confidential", "Public", "Texts")
	alignRight(t, 4, 5, 6)
	for _, d := range decisions {
		t.AppendRow(table.Row{d.Stage, d.Backend, d.Reason, d.Confidential, d.Public, d.Texts})
	}
	t.Render()
}
