package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimreview/internal/model"
	"github.com/ppiankov/claimreview/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <manifest.yaml>",
	Short: "Review many claims from a manifest in parallel",
	Long: `Batch reviews every claim listed in a YAML manifest without prompting:
- Upload each claim's documents for extraction
- Apply the manifest's corrections and charge classifications
- Submit each claim for evaluation with a configurable worker count
- Write a JSON and Markdown receipt per claim

Document paths in the manifest are relative to the manifest's directory.

Example manifest:
  claims:
    - name: unit-4b
      policyNumber: 6313R
      documents:
        lease_agreement: lease.pdf
        tenant_ledger: ledger.pdf
      monthlyRent: "1850"
      wear:
        2: beyond
      occupancy:
        1: "no"

Example:
  claimreview batch claims.yaml
  claimreview batch claims.yaml --concurrency 8 --output-dir ./receipts`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent claims (default from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./claimreview-receipts", "output directory for receipts")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}

	manifest, err := worker.LoadManifest(file)
	if err != nil {
		return err
	}

	svc, err := newServices(cfg, newLogger(os.Stderr, cfg.Output.Verbose))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Claim Review Batch\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Manifest:     %s (%d claims)\n", file, len(manifest.Claims))
	fmt.Fprintf(os.Stderr, "  Services:     %s\n", cfg.API.BaseURL)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	if svc.narrator.IsEnabled() {
		fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", svc.narrator.ProviderName(), cfg.LLM.Model)
	}
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	processor := worker.NewBatchProcessor(svc.newSession, cfg.Concurrency.Workers)

	fmt.Fprintf(os.Stderr, "⚙️  Reviewing claims with %d workers...\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "\n")
	results := processor.Process(ctx, manifest)

	counts := map[model.DecisionStatus]int{}
	failureCount := 0
	written := map[string]int{}

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			if result.Notice != "" {
				fmt.Fprintf(os.Stderr, "✗ %s (%s): %s [%s]\n", result.Name, result.Stage, result.Notice, result.Error)
			} else {
				fmt.Fprintf(os.Stderr, "✗ %s (%s): %v\n", result.Name, result.Stage, result.Error)
			}
			continue
		}

		slug := sanitizeFilename(result.Name)
		if n := written[slug]; n > 0 {
			slug = fmt.Sprintf("%s-%d", slug, n+1)
		}
		written[slug]++

		jsonPath := filepath.Join(outputDir, slug+".json")
		mdPath := filepath.Join(outputDir, slug+".md")
		if _, err := svc.writeReceipt(ctx, *result.Receipt, jsonPath, mdPath); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Name, err)
			continue
		}

		res := result.Receipt.Result
		counts[res.Status]++
		if res.FinalPayoutBasedOnCoverage != nil {
			fmt.Fprintf(os.Stderr, "✓ %s: %s (payout %.2f)\n", result.Name, res.Status, *res.FinalPayoutBasedOnCoverage)
		} else {
			fmt.Fprintf(os.Stderr, "✓ %s: %s (%d missing documents)\n", result.Name, res.Status, len(res.MissingDocuments))
		}
	}

	skipped := len(manifest.Claims) - len(results)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:        %d claims\n", len(manifest.Claims))
	fmt.Fprintf(os.Stderr, "  Approved:     %d\n", counts[model.DecisionApproved])
	fmt.Fprintf(os.Stderr, "  Declined:     %d\n", counts[model.DecisionDeclined])
	fmt.Fprintf(os.Stderr, "  Failures:     %d\n", failureCount)
	if skipped > 0 {
		fmt.Fprintf(os.Stderr, "  Not started:  %d\n", skipped)
	}
	fmt.Fprintf(os.Stderr, "  Output:       %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}
