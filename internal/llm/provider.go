// Package llm writes an optional plain-language narrative of a claim receipt.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/claimreview/internal/classify"
	"github.com/ppiankov/claimreview/internal/model"
	"github.com/ppiankov/claimreview/internal/workflow"
)

// Provider is a chat model backend
type Provider interface {
	Name() string

	// Narrate generates text from the request prompt
	Narrate(ctx context.Context, req NarrateRequest) (*NarrateResponse, error)

	// Ping checks that the backend is reachable and the credentials work
	Ping(ctx context.Context) error
}

// NarrateRequest is the input for a narrative
type NarrateRequest struct {
	Prompt string

	// AllowedAmounts are the only dollar amounts the text may quote when
	// strict amounts is on
	AllowedAmounts []float64

	Model     string
	MaxTokens int
}

// NarrateResponse is the model output
type NarrateResponse struct {
	Text          string
	QuotedAmounts []string
	Model         string
	TokensUsed    int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", or "" to disable
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  int // seconds

	// StrictAmounts rejects a narrative quoting an amount not on the receipt
	StrictAmounts bool
	MaxTokens     int

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

func DefaultConfig() Config {
	return Config{
		Timeout:       30,
		StrictAmounts: true,
		MaxTokens:     600,
	}
}

// ConfigFromModel converts the application config, taking proxies from the API section
func ConfigFromModel(llmCfg model.LLMConfig, api model.APIConfig) Config {
	return Config{
		Provider:      llmCfg.Provider,
		Model:         llmCfg.Model,
		APIKey:        llmCfg.APIKey,
		BaseURL:       llmCfg.BaseURL,
		Timeout:       llmCfg.Timeout,
		StrictAmounts: llmCfg.StrictAmounts,
		MaxTokens:     llmCfg.MaxTokens,
		HTTPProxy:     api.HTTPProxy,
		HTTPSProxy:    api.HTTPSProxy,
		NoProxy:       api.NoProxy,
	}
}

// BuildPrompt describes the receipt for the model
func BuildPrompt(r workflow.Receipt) string {
	var b strings.Builder
	res := r.Result
	p := r.Payload

	b.WriteString(`You are explaining a rental security-deposit claim decision to a claims reviewer.

RULES:
1. Only quote dollar amounts that appear below. Write them as $X.XX.
2. Do not add coverage rules, charges or documents that are not listed.
3. The decision is final. Explain it; never question or change it.
4. Use 3-5 plain sentences.

`)

	fmt.Fprintf(&b, "Decision: %s\n", res.Status)
	fmt.Fprintf(&b, "Service summary: %s\n", orNone(res.SummaryOfDecision))
	fmt.Fprintf(&b, "Tenant: %s\n", orNone(deref(p.TenantName)))
	fmt.Fprintf(&b, "Property: %s\n", orNone(deref(p.PropertyAddress)))
	fmt.Fprintf(&b, "Monthly rent: %s\n", moneyOrNone(p.MonthlyRent))
	fmt.Fprintf(&b, "Maximum benefit: %s\n", moneyOrNone(p.MaximumBenefit))
	fmt.Fprintf(&b, "First month rent paid: %t\n", res.FirstMonthPaid)
	fmt.Fprintf(&b, "First month SDI premium paid: %t\n", res.FirstMonthSdiPremiumPaid)
	if len(res.MissingDocuments) > 0 {
		fmt.Fprintf(&b, "Missing documents: %s\n", strings.Join(res.MissingDocuments, ", "))
	}

	if len(p.Charges) > 0 {
		b.WriteString("\nLedger charges:\n")
		for _, c := range p.Charges {
			fmt.Fprintf(&b, "- %s: $%s (%s", c.Description, model.Money(c.Amount), orNone(string(c.Category)))
			if w := classify.EffectiveWear(c); w != model.WearUnset {
				fmt.Fprintf(&b, ", %s", w)
			}
			b.WriteString(")\n")
		}
	}

	writeDecisions(&b, "Approved charges", res.ApprovedCharges)
	writeDecisions(&b, "Excluded charges", res.ExcludedCharges)

	if res.TotalApprovedCharges != nil {
		fmt.Fprintf(&b, "\nTotal approved: $%s\n", model.Money(*res.TotalApprovedCharges))
	}
	if res.FinalPayoutBasedOnCoverage != nil {
		fmt.Fprintf(&b, "Final payout: $%s\n", model.Money(*res.FinalPayoutBasedOnCoverage))
	}

	return b.String()
}

// AllowedAmounts lists every amount on the receipt
func AllowedAmounts(r workflow.Receipt) []float64 {
	var out []float64
	add := func(v *float64) {
		if v != nil {
			out = append(out, *v)
		}
	}

	add(r.Payload.MonthlyRent)
	add(r.Payload.MaximumBenefit)
	for _, c := range r.Payload.Charges {
		out = append(out, c.Amount)
	}
	for _, d := range r.Result.ApprovedCharges {
		out = append(out, d.Amount)
	}
	for _, d := range r.Result.ExcludedCharges {
		out = append(out, d.Amount)
	}
	add(r.Result.TotalApprovedCharges)
	add(r.Result.FinalPayoutBasedOnCoverage)
	return out
}

func writeDecisions(b *strings.Builder, title string, ds []model.ChargeDecision) {
	if len(ds) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, d := range ds {
		fmt.Fprintf(b, "- %s: $%s (%s)\n", d.Description, model.Money(d.Amount), orNone(d.Reason))
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}

func moneyOrNone(v *float64) string {
	if v == nil {
		return "(none)"
	}
	return "$" + model.Money(*v)
}
