package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/claimreview/internal/model"
	"github.com/ppiankov/claimreview/internal/workflow"
)

// Narrator turns receipts into narratives. A narrator without a provider is
// disabled and produces nothing.
type Narrator struct {
	provider Provider
	config   Config
}

// NewNarrator creates a narrator for config
func NewNarrator(config Config) (*Narrator, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	return &Narrator{provider: provider, config: config}, nil
}

func (n *Narrator) IsEnabled() bool {
	return n.provider != nil
}

func (n *Narrator) ProviderName() string {
	if n.provider == nil {
		return ""
	}
	return n.provider.Name()
}

// Narrate writes a narrative for r. Provider failures are reported as
// warnings on the narrative, not as errors, so a receipt is never lost to
// a model outage.
func (n *Narrator) Narrate(ctx context.Context, r workflow.Receipt) (*model.Narrative, error) {
	if n.provider == nil {
		return nil, nil
	}

	out := &model.Narrative{
		Provider:      n.provider.Name(),
		Model:         n.config.Model,
		StrictAmounts: n.config.StrictAmounts,
	}

	if err := n.provider.Ping(ctx); err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("LLM provider %s not available: %v", n.provider.Name(), err))
		return out, nil
	}

	resp, err := n.provider.Narrate(ctx, NarrateRequest{
		Prompt:         BuildPrompt(r),
		AllowedAmounts: AllowedAmounts(r),
		Model:          n.config.Model,
		MaxTokens:      n.config.MaxTokens,
	})
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("narrative generation failed: %v", err))
		return out, nil
	}

	out.Enabled = true
	out.Model = resp.Model
	out.Text = resp.Text
	if resp.TokensUsed > 0 {
		out.Warnings = append(out.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	}
	if len(resp.QuotedAmounts) > 0 {
		out.Warnings = append(out.Warnings, fmt.Sprintf("Checked %d quoted amounts", len(resp.QuotedAmounts)))
	}
	return out, nil
}

// RenderMarkdown renders a narrative as its own Markdown document
func RenderMarkdown(n *model.Narrative) string {
	if n == nil || (!n.Enabled && len(n.Warnings) == 0) {
		return ""
	}

	var b strings.Builder
	b.WriteString("# Claim Narrative\n\n")
	b.WriteString("> GENERATED CONTENT. The decision above was made by the evaluation service and is not affected by this text.\n\n")
	fmt.Fprintf(&b, "- **Provider**: %s\n", n.Provider)
	if n.Model != "" {
		fmt.Fprintf(&b, "- **Model**: %s\n", n.Model)
	}
	fmt.Fprintf(&b, "- **Strict Amounts**: %t\n\n", n.StrictAmounts)

	if n.Text != "" {
		b.WriteString(n.Text)
		b.WriteString("\n")
	} else {
		b.WriteString("_No narrative generated._\n")
	}

	if len(n.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range n.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}
