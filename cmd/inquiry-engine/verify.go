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
	"github.com/pdiddy/inquiry-engine/internal/verify"
	"github.com/pdiddy/inquiry-engine/pkg/types"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [query]",
	Short: "Check claims against the findings for a query",
	Long: `Verify retrieves findings for the query and checks claims against the
highest-scoring ones. Each source is assessed independently as supporting,
contradicting, or neutral, and the claim's verdict is the majority.

Pass one or more --claim flags to verify specific statements; without them
the leading sentences of the top findings are used. Supplied claims are
treated as confidential and checked on the local model unless
--claim-bucket public is given. --inconsistencies also compares the
sources pairwise for factual conflicts.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringArray("claim", nil, "claim to verify (repeatable)")
	verifyCmd.Flags().String("claim-bucket", string(types.BucketConfidential), "bucket of the --claim text: public or confidential")
	verifyCmd.Flags().Bool("inconsistencies", false, "compare sources pairwise for conflicts")
	verifyCmd.Flags().Int("limit", 10, "findings to retrieve for the query")
	verifyCmd.Flags().String("user", "", "requester id recorded in the search log")
	verifyCmd.Flags().String("format", formatText, "output format: text, json, yaml")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	texts, _ := cmd.Flags().GetStringArray("claim")
	bucket, _ := cmd.Flags().GetString("claim-bucket")
	claims, err := userClaims(texts, bucket)
	if err != nil {
		return err
	}
	inconsistencies, _ := cmd.Flags().GetBool("inconsistencies")
	limit, _ := cmd.Flags().GetInt("limit")
	user, _ := cmd.Flags().GetString("user")
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}
	ctx := cmd.Context()

	store, err := knowledge.NewStore(engineCfg.Store, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	gw, _, err := newGateway(engineCfg, loadedSecrets, logger)
	if err != nil {
		return err
	}
	opts := verify.OptionsFromConfig(engineCfg.Verification)
	opts.DetectInconsistencies = inconsistencies
	stage := verify.New(gw, opts, logger)

	findings, err := store.Search(ctx, knowledge.SearchRequest{
		Query:     strings.Join(args, " "),
		Limit:     limit,
		Requester: user,
	})
	if err != nil {
		return err
	}
	if len(findings) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	var report types.VerificationReport
	if len(claims) == 0 {
		report, err = stage.VerifyFindings(ctx, findings)
	} else {
		report.Results, err = stage.VerifyAll(ctx, claims, findings)
		if err == nil && inconsistencies && len(findings) > 1 {
			sources := findings
			if len(sources) > opts.MaxSources {
				sources = sources[:opts.MaxSources]
			}
			report.Inconsistencies, err = stage.DetectInconsistencies(ctx, sources)
		}
	}
	if err != nil {
		return err
	}

	if format != formatText {
		return writeStructured(os.Stdout, format, report)
	}
	printReport(report)
	return nil
}

// userClaims marks --claim text with the --claim-bucket value.
func userClaims(texts []string, bucket string) ([]verify.Claim, error) {
	b := types.Bucket(strings.ToLower(strings.TrimSpace(bucket)))
	if b != types.BucketPublic && b != types.BucketConfidential {
		return nil, fmt.Errorf("invalid claim bucket %q: want public or confidential", bucket)
	}
	claims := make([]verify.Claim, len(texts))
	for i, t := range texts {
		claims[i] = verify.Claim{Text: t, Bucket: b}
	}
	return claims, nil
}

// printReport renders verification results and detected conflicts.
func printReport(report types.VerificationReport) {
	for i, r := range report.Results {
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("Claim: %s\n", r.Claim)
		fmt.Printf("Verdict: %s (confidence %.2f, %d sources)\n", r.Verdict, r.Confidence, r.SourceCount)
		fmt.Printf("%s\n", r.Notes)

		evidence := append(append([]types.Evidence(nil), r.Supporting...), r.Contradicting...)
		if len(evidence) == 0 {
			continue
		}
		t := newTable(os.Stdout, "Stance", "Document", "Bucket", "Reliability", "Excerpt")
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 4, Align: text.AlignRight},
			{Number: 5, WidthMax: 60},
		})
		for _, e := range evidence {
			t.AppendRow(table.Row{e.Stance, e.DocumentName, e.Bucket, fmt.Sprintf("%.2f", e.Reliability), snippet(e.Excerpt, 160)})
		}
		t.Render()
	}

	if len(report.Inconsistencies) > 0 {
		fmt.Println("\nInconsistencies:")
		t := newTable(os.Stdout, "Severity", "First", "Second", "Description")
		t.SetColumnConfigs([]table.ColumnConfig{{Number: 4, WidthMax: 60}})
		for _, inc := range report.Inconsistencies {
			t.AppendRow(table.Row{inc.Severity, inc.First.DocumentName, inc.Second.DocumentName, inc.Description})
		}
		t.Render()
	}
}
