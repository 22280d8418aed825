// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/pdiddy/inquiry-engine/internal/knowledge"
	"github.com/pdiddy/inquiry-engine/pkg/types"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage the document corpus (ingest, search, export)",
	Long: `Corpus manages the local SQLite index built from corpus/documents/*.yaml
and corpus/graph.yaml. Use subcommands to index the corpus, query the
retrieval index directly, or export it.`,
}

// --- ingest subcommand ---

var corpusIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index corpus documents and the knowledge graph",
	Long: `Ingest reads document YAML files from <corpus>/documents/ and the graph
from <corpus>/graph.yaml into the SQLite index with FTS5 passage search.
Unchanged files are skipped on subsequent runs and deleted files are removed.`,
	RunE: runCorpusIngest,
}

func runCorpusIngest(cmd *cobra.Command, args []string) error {
	store, err := knowledge.NewStore(engineCfg.Store, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(cmd.Context(), os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d document(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- search subcommand ---

var corpusSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Query the retrieval index directly",
	Long: `Search runs the query against the passage index without any model calls
and prints ranked findings with their confidentiality bucket. Filter with
--bucket and --type.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCorpusSearch,
}

func runCorpusSearch(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	bucket, _ := cmd.Flags().GetString("bucket")
	docType, _ := cmd.Flags().GetString("type")
	user, _ := cmd.Flags().GetString("user")
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}

	store, err := knowledge.NewStore(engineCfg.Store, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	req := knowledge.SearchRequest{
		Query:     strings.Join(args, " "),
		Limit:     limit,
		Offset:    offset,
		Requester: user,
		Filters:   map[string]string{},
	}
	if bucket != "" {
		req.Filters["bucket"] = bucket
	}
	if docType != "" {
		req.Filters["document_type"] = docType
	}

	findings, err := store.Search(cmd.Context(), req)
	if err != nil {
		return err
	}

	if format != formatText {
		return writeStructured(os.Stdout, format, findings)
	}
	if len(findings) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	printFindings(findings)
	return nil
}

// printFindings renders findings as a table on stdout.
func printFindings(findings []types.Finding) {
	t := newTable(os.Stdout, "#", "Score", "Bucket", "Document", "Type", "Passage")
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 6, WidthMax: 70},
	})
	for i, f := range findings {
		t.AppendRow(table.Row{
			i + 1,
			fmt.Sprintf("%.3f", f.Score),
			f.Bucket,
			f.DocumentName,
			f.DocumentType(),
			snippet(f.Text, 200),
		})
	}
	t.Render()
	fmt.Printf("%d result(s)\n", len(findings))
}

// --- export subcommand ---

var corpusExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the indexed corpus and graph",
	Long: `Export writes every indexed document and the full knowledge graph to
<index>/export.yaml or <index>/export.json. Use --bucket to restrict the
documents to one confidentiality bucket.`,
	RunE: runCorpusExport,
}

func runCorpusExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	bucket, _ := cmd.Flags().GetString("bucket")

	opts := knowledge.ExportOptions{Bucket: types.Bucket(bucket)}
	switch opts.Bucket {
	case "", types.BucketPublic, types.BucketConfidential:
	default:
		return fmt.Errorf("unknown bucket %q (want public or confidential)", bucket)
	}

	store, err := knowledge.NewStore(engineCfg.Store, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	var path string
	switch format {
	case formatYAML:
		path, err = store.ExportYAML(cmd.Context(), opts)
	case formatJSON:
		path, err = store.ExportJSON(cmd.Context(), opts)
	default:
		return fmt.Errorf("unknown export format %q (want yaml or json)", format)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Exported corpus to %s\n", path)
	return nil
}

func init() {
	corpusSearchCmd.Flags().Int("limit", 20, "maximum number of results")
	corpusSearchCmd.Flags().Int("offset", 0, "number of results to skip")
	corpusSearchCmd.Flags().String("bucket", "", "restrict to a bucket: public or confidential")
	corpusSearchCmd.Flags().String("type", "", "restrict to a document type")
	corpusSearchCmd.Flags().String("user", "", "requester id recorded in the search log")
	corpusSearchCmd.Flags().String("format", formatText, "output format: text, json, yaml")

	corpusExportCmd.Flags().String("format", formatYAML, "export format: yaml or json")
	corpusExportCmd.Flags().String("bucket", "", "restrict documents to a bucket: public or confidential")

	corpusCmd.AddCommand(corpusIngestCmd)
	corpusCmd.AddCommand(corpusSearchCmd)
	corpusCmd.AddCommand(corpusExportCmd)
	rootCmd.AddCommand(corpusCmd)
}
