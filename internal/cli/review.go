package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimreview/internal/console"
	"github.com/ppiankov/claimreview/internal/llm"
	"github.com/ppiankov/claimreview/internal/model"
)

var (
	policyNumber   string
	leaseAgreement string
	leaseAddendum  string
	notification   string
	tenantLedger   string
	jsonOut        string
	mdOut          string
)

// reviewCmd represents the review command
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review a single claim interactively",
	Long: `Review uploads a claim's documents for extraction, then opens an
interactive review. Confirm or complete the extracted fields, classify each
charge, and run "analyze" to submit the claim for evaluation.

At least a policy number is required; documents are optional.

Example:
  claimreview review --policy 6313R --lease-agreement lease.pdf --tenant-ledger ledger.pdf
  claimreview review --policy 6313R --json receipt.json --md receipt.md
  claimreview review --policy 6313R --lease-agreement lease.pdf --llm`,
	Args: cobra.NoArgs,
	RunE: runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	reviewCmd.Flags().StringVar(&policyNumber, "policy", "", "policy number (required)")
	reviewCmd.Flags().StringVar(&leaseAgreement, "lease-agreement", "", "path to the lease agreement")
	reviewCmd.Flags().StringVar(&leaseAddendum, "lease-addendum", "", "path to the lease addendum")
	reviewCmd.Flags().StringVar(&notification, "notification", "", "path to the notification to tenant")
	reviewCmd.Flags().StringVar(&tenantLedger, "tenant-ledger", "", "path to the tenant ledger")
	reviewCmd.Flags().StringVar(&jsonOut, "json", "", "write the receipt as JSON to this path")
	reviewCmd.Flags().StringVar(&mdOut, "md", "", "write the receipt as Markdown to this path")
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	upload, err := readUpload(policyNumber, map[model.DocumentKind]string{
		model.DocLeaseAgreement:       leaseAgreement,
		model.DocLeaseAddendum:        leaseAddendum,
		model.DocNotificationToTenant: notification,
		model.DocTenantLedger:         tenantLedger,
	})
	if err != nil {
		return err
	}

	svc, err := newServices(cfg, newLogger(os.Stderr, cfg.Output.Verbose))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	session := svc.newSession()
	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Session %s against %s\n", session.ID(), cfg.API.BaseURL)
	}

	receipt, err := console.New(session, svc.renderer, os.Stdin, os.Stdout).Run(ctx, upload)
	if errors.Is(err, console.ErrAborted) {
		fmt.Fprintf(os.Stderr, "Review abandoned; nothing was submitted.\n")
		return nil
	}
	if err != nil {
		return err
	}

	if svc.narrator.IsEnabled() {
		fmt.Fprintf(os.Stderr, "⚙️  Generating narrative with %s...\n", svc.narrator.ProviderName())
	}
	narrative, err := svc.writeReceipt(ctx, *receipt, jsonOut, mdOut)
	if err != nil {
		return err
	}

	if jsonOut != "" {
		fmt.Fprintf(os.Stderr, "✓ JSON receipt: %s\n", jsonOut)
	}
	if mdOut != "" {
		fmt.Fprintf(os.Stderr, "✓ Markdown receipt: %s\n", mdOut)
	}
	if narrative != nil {
		for _, w := range narrative.Warnings {
			fmt.Fprintf(os.Stderr, "⚠️  %s\n", w)
		}
		if narrative.Text != "" {
			fmt.Fprintln(os.Stdout)
			fmt.Fprint(os.Stdout, llm.RenderMarkdown(narrative))
			if mdOut != "" {
				fmt.Fprintf(os.Stderr, "✓ Narrative: %s\n", strings.TrimSuffix(mdOut, filepath.Ext(mdOut))+".llm.md")
			}
		}
	}
	return nil
}
