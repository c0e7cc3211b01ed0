package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/kr/text"

	"github.com/ppiankov/claimreview/internal/model"
	"github.com/ppiankov/claimreview/internal/workflow"
)

const wrapWidth = 76

const footer = "This receipt is read-only. Start a new review to change the inputs."

// Renderer writes review and receipt views
type Renderer struct {
	includeFooter bool
}

func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// receiptFile is the JSON file layout: the view plus the raw data behind it
type receiptFile struct {
	Receipt   Receipt                `json:"receipt"`
	Result    model.EvaluationResult `json:"result"`
	Payload   model.ClaimPayload     `json:"payload"`
	Narrative *model.Narrative       `json:"narrative,omitempty"`
}

// RenderJSON writes the receipt, the evaluation result and the evaluated
// payload to path
func (r *Renderer) RenderJSON(rec workflow.Receipt, narrative *model.Narrative, path string) error {
	data, err := json.MarshalIndent(receiptFile{
		Receipt:   BuildReceipt(rec.Result, rec.Payload),
		Result:    rec.Result,
		Payload:   rec.Payload,
		Narrative: narrative,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderMarkdown writes the receipt as Markdown to path
func (r *Renderer) RenderMarkdown(rec workflow.Receipt, path string) error {
	md := r.Markdown(BuildReceipt(rec.Result, rec.Payload))
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderNarrativeMarkdown writes already-rendered narrative Markdown to path
func (r *Renderer) RenderNarrativeMarkdown(md, path string) error {
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Markdown renders a receipt view
func (r *Renderer) Markdown(v Receipt) string {
	var b strings.Builder

	b.WriteString("# Claim Result (Receipt)\n\n")
	fmt.Fprintf(&b, "- **Tenant Name:** %s\n", v.TenantName)
	fmt.Fprintf(&b, "- **Assessment Status:** %s\n", v.Status)
	fmt.Fprintf(&b, "- **Property Address:** %s\n", v.PropertyAddress)
	fmt.Fprintf(&b, "- **Monthly Rent:** %s\n", v.MonthlyRent)
	fmt.Fprintf(&b, "- **Submitted Documents:** %s\n", submitted(v.SubmittedDocuments))

	writeDecisionsMD(&b, "Approved Charges", v.ApprovedCharges)
	writeDecisionsMD(&b, "Excluded Charges", v.ExcludedCharges)

	b.WriteString("\n## Totals\n\n")
	fmt.Fprintf(&b, "- **Total Approved Charges:** %s\n", v.TotalApprovedCharges)
	fmt.Fprintf(&b, "- **Final Payout Based on Coverage:** %s\n", v.FinalPayout)

	l := v.Ledger
	b.WriteString("\n## Ledger Verification\n\n")
	fmt.Fprintf(&b, "- First Month Paid: %t\n", l.FirstMonthPaid)
	fmt.Fprintf(&b, "- First Month Paid Evidence: %s\n", l.FirstMonthPaidEvidence)
	fmt.Fprintf(&b, "- First Month SDI Premium Paid: %t\n", l.FirstMonthSdiPremiumPaid)
	fmt.Fprintf(&b, "- First Month SDI Premium Paid Evidence: %s\n", l.FirstMonthSdiPremiumPaidEvidence)
	fmt.Fprintf(&b, "- Missing documents: %s\n", l.MissingDocuments)
	fmt.Fprintf(&b, "- Status: %s\n", l.Status)
	fmt.Fprintf(&b, "- Summary of decision: %s\n", l.SummaryOfDecision)

	if r.includeFooter {
		fmt.Fprintf(&b, "\n---\n\n_%s_\n", footer)
	}
	return b.String()
}

func writeDecisionsMD(b *strings.Builder, title string, lines []DecisionLine) {
	fmt.Fprintf(b, "\n## %s\n\n", title)
	if len(lines) == 0 {
		b.WriteString("None\n")
		return
	}
	for _, l := range lines {
		fmt.Fprintf(b, "- %s: %s — %s\n", l.Description, l.Amount, l.Reason)
	}
}

// WriteReceipt prints a receipt view for a terminal
func (r *Renderer) WriteReceipt(w io.Writer, v Receipt) error {
	var b strings.Builder

	b.WriteString("Claim Result (Receipt)\n")
	b.WriteString(strings.Repeat("=", 22) + "\n\n")

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Tenant Name:\t%s\n", v.TenantName)
	fmt.Fprintf(tw, "Assessment Status:\t%s\n", v.Status)
	fmt.Fprintf(tw, "Property Address:\t%s\n", v.PropertyAddress)
	fmt.Fprintf(tw, "Monthly Rent:\t%s\n", v.MonthlyRent)
	fmt.Fprintf(tw, "Submitted Documents:\t%s\n", submitted(v.SubmittedDocuments))
	_ = tw.Flush()

	writeDecisionsText(&b, "Approved Charges", v.ApprovedCharges)
	writeDecisionsText(&b, "Excluded Charges", v.ExcludedCharges)

	b.WriteString("\n")
	tw = tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total Approved Charges:\t%s\n", v.TotalApprovedCharges)
	fmt.Fprintf(tw, "Final Payout Based on Coverage:\t%s\n", v.FinalPayout)
	_ = tw.Flush()

	l := v.Ledger
	b.WriteString("\nLedger Verification\n")
	tw = tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "  • First Month Paid:\t%t\n", l.FirstMonthPaid)
	fmt.Fprintf(tw, "  • First Month Paid Evidence:\t%s\n", l.FirstMonthPaidEvidence)
	fmt.Fprintf(tw, "  • First Month SDI Premium Paid:\t%t\n", l.FirstMonthSdiPremiumPaid)
	fmt.Fprintf(tw, "  • First Month SDI Premium Paid Evidence:\t%s\n", l.FirstMonthSdiPremiumPaidEvidence)
	fmt.Fprintf(tw, "  • Missing documents:\t%s\n", l.MissingDocuments)
	fmt.Fprintf(tw, "  • Status:\t%s\n", l.Status)
	_ = tw.Flush()
	b.WriteString("  • Summary of decision:\n")
	b.WriteString(text.Indent(text.Wrap(l.SummaryOfDecision, wrapWidth-4), "    "))
	b.WriteString("\n")

	if r.includeFooter {
		fmt.Fprintf(&b, "\n%s\n", footer)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeDecisionsText(b *strings.Builder, title string, lines []DecisionLine) {
	fmt.Fprintf(b, "\n%s\n", title)
	if len(lines) == 0 {
		b.WriteString("  None\n")
		return
	}
	for _, l := range lines {
		fmt.Fprintf(b, "  %s  %s\n", l.Amount, l.Description)
		if l.Reason != "" {
			b.WriteString(text.Indent(text.Wrap(l.Reason, wrapWidth-6), "      "))
			b.WriteString("\n")
		}
	}
}

// WriteReview prints the review view for a terminal
func (r *Renderer) WriteReview(w io.Writer, v Review) error {
	var b strings.Builder

	b.WriteString("Review & Complete Details\n")
	b.WriteString(strings.Repeat("=", 25) + "\n\n")

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Tenant Name:\t%s\n", v.TenantName)
	fmt.Fprintf(tw, "Property Address:\t%s\n", v.PropertyAddress)
	fmt.Fprintf(tw, "Monthly Rent (USD):\t%s\n", v.MonthlyRent)
	fmt.Fprintf(tw, "Maximum Benefit (USD):\t%s\n", v.MaximumBenefit)
	_ = tw.Flush()

	b.WriteString("\nSubmitted Documents:\n")
	for _, d := range v.Documents {
		fmt.Fprintf(&b, "  %s: %s\n", d.Label, yesNo(d.Present))
	}

	b.WriteString("\nCharges\n")
	if len(v.Charges) == 0 {
		b.WriteString("  (no charges)\n")
	} else {
		tw = tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		header := "  #\tDate\tDescription\tAmount\tCategory"
		if v.ShowWear {
			header += "\tWear"
		}
		if v.ShowOccupancy {
			header += "\tTied to Occupancy"
		}
		fmt.Fprintln(tw, header)
		for _, c := range v.Charges {
			line := fmt.Sprintf("  %d\t%s\t%s\t%s\t%s", c.Row, c.Date, c.Description, c.Amount, c.Category)
			if v.ShowWear {
				line += "\t" + c.Wear
			}
			if v.ShowOccupancy {
				line += "\t" + c.Occupancy
			}
			fmt.Fprintln(tw, line)
		}
		_ = tw.Flush()
	}

	if len(v.Notes) > 0 {
		b.WriteString("\n")
		for _, n := range v.Notes {
			b.WriteString(bullet(n))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// bullet wraps s under a "•" with a hanging indent
func bullet(s string) string {
	indented := text.Indent(text.Wrap(s, wrapWidth-4), "    ")
	if len(indented) < 4 {
		return "\n"
	}
	return "  • " + indented[4:] + "\n"
}

func submitted(docs []string) string {
	if len(docs) == 0 {
		return NoDocuments
	}
	return strings.Join(docs, ", ")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
