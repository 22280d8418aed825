// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pdiddy/inquiry-engine/internal/graphrag"
	"github.com/pdiddy/inquiry-engine/internal/knowledge"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect the knowledge graph",
}

var graphExpandCmd = &cobra.Command{
	Use:   "expand [query]",
	Short: "Show graph-augmented retrieval for a query",
	Long: `Expand searches the corpus, then expands the result through the
knowledge graph: entities named in the query or mentioned by the findings
form the core set, which is walked breadth-first up to graph.max_depth hops.
Prints the core entities, the expanded entities, and the re-ranked findings.
No model calls are made.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGraphExpand,
}

func init() {
	graphExpandCmd.Flags().Int("limit", 10, "maximum findings to expand from")
	graphExpandCmd.Flags().Int("depth", 0, "traversal depth (0 uses graph.max_depth)")
	graphExpandCmd.Flags().String("format", formatText, "output format: text, json, yaml")

	graphCmd.AddCommand(graphExpandCmd)
	rootCmd.AddCommand(graphCmd)
}

func runGraphExpand(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	depth, _ := cmd.Flags().GetInt("depth")
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}
	query := strings.Join(args, " ")

	store, err := knowledge.NewStore(engineCfg.Store, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	findings, err := store.Search(cmd.Context(), knowledge.SearchRequest{Query: query, Limit: limit})
	if err != nil {
		return err
	}

	opts := graphrag.OptionsFromConfig(engineCfg.Graph)
	if depth > 0 {
		opts.MaxDepth = depth
	}
	res, err := graphrag.New(store, opts, logger).Augment(cmd.Context(), query, findings)
	if err != nil {
		return err
	}

	if format != formatText {
		return writeStructured(os.Stdout, format, res)
	}

	if len(res.Context.CoreEntities) == 0 {
		fmt.Println("No graph entities matched the query or its findings.")
	} else {
		fmt.Println("Core entities:")
		t := newTable(os.Stdout, "ID", "Name", "Type", "Mentions")
		alignRight(t, 4)
		for _, e := range res.Context.CoreEntities {
			t.AppendRow(table.Row{e.ID, e.Name, e.Type, e.MentionCount})
		}
		t.Render()
	}

	if len(res.Expanded) > 0 {
		fmt.Println("\nExpanded entities:")
		t := newTable(os.Stdout, "Depth", "Entity", "Type", "Relation", "Via", "Confidence")
		alignRight(t, 1, 6)
		for _, x := range res.Expanded {
			t.AppendRow(table.Row{x.Depth, x.Entity.Name, x.Entity.Type, x.Relation, x.Via, fmt.Sprintf("%.0f", x.Confidence)})
		}
		t.Render()
	}

	fmt.Println("\nRe-ranked findings:")
	if len(res.Findings) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	printFindings(res.Findings)
	return nil
}
