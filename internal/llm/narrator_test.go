package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/claimreview/internal/model"
	"github.com/ppiankov/claimreview/internal/workflow"
)

// MockProvider implements the Provider interface for testing
type MockProvider struct {
	name     string
	pingErr  error
	response *NarrateResponse
	err      error
	lastReq  NarrateRequest
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Narrate(ctx context.Context, req NarrateRequest) (*NarrateResponse, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *MockProvider) Ping(ctx context.Context) error {
	return m.pingErr
}

func sampleReceipt() workflow.Receipt {
	return workflow.Receipt{
		Result: model.EvaluationResult{
			FirstMonthPaid:    true,
			MissingDocuments:  []string{},
			Status:            model.DecisionApproved,
			SummaryOfDecision: "Carpet damage approved; late fee excluded.",
			ApprovedCharges: []model.ChargeDecision{
				{Description: "Carpet replacement", Amount: 850, Reason: "beyond normal wear"},
			},
			ExcludedCharges: []model.ChargeDecision{
				{Description: "Late fee", Amount: 75, Reason: "fees are not covered"},
			},
			TotalApprovedCharges:       model.Ref(850.0),
			FinalPayoutBasedOnCoverage: model.Ref(850.0),
		},
		Payload: model.ClaimPayload{
			TenantName:     model.Ref("Jordan Lee"),
			MonthlyRent:    model.Ref(1750.0),
			MaximumBenefit: model.Ref(3500.0),
			Charges: []model.ChargeItem{
				{Description: "Carpet replacement", Amount: 850, Category: model.CategoryCarpet, WearClassification: model.WearBeyond},
				{Description: "Late fee", Amount: 75, Category: model.CategoryOther},
			},
		},
	}
}

func TestNewNarrator_Disabled(t *testing.T) {
	n, err := NewNarrator(Config{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if n.IsEnabled() {
		t.Error("Expected narrator to be disabled")
	}
	if n.ProviderName() != "" {
		t.Error("Expected empty provider name when disabled")
	}

	out, err := n.Narrate(context.Background(), sampleReceipt())
	if err != nil || out != nil {
		t.Errorf("Expected nil narrative and nil error when disabled, got %v, %v", out, err)
	}
}

func TestNewNarrator_BadProvider(t *testing.T) {
	if _, err := NewNarrator(Config{Provider: "nope"}); err == nil {
		t.Error("Expected error for unknown provider")
	}
}

func TestNarrator_ProviderUnavailable(t *testing.T) {
	n := &Narrator{
		provider: &MockProvider{name: "test-provider", pingErr: errors.New("connection refused")},
		config:   Config{StrictAmounts: true},
	}

	out, err := n.Narrate(context.Background(), sampleReceipt())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if out == nil || out.Enabled {
		t.Fatalf("Expected disabled narrative, got %+v", out)
	}
	if len(out.Warnings) == 0 || !strings.Contains(out.Warnings[0], "not available") {
		t.Errorf("Expected unavailability warning, got %v", out.Warnings)
	}
}

func TestNarrator_Success(t *testing.T) {
	mock := &MockProvider{
		name: "test-provider",
		response: &NarrateResponse{
			Text:          "The carpet charge of $850.00 was approved.",
			QuotedAmounts: []string{"850.00"},
			Model:         "gpt-4o-mini",
			TokensUsed:    120,
		},
	}
	n := &Narrator{provider: mock, config: Config{StrictAmounts: true, MaxTokens: 300}}

	out, err := n.Narrate(context.Background(), sampleReceipt())
	if err != nil {
		t.Fatalf("Narrate failed: %v", err)
	}
	if !out.Enabled || out.Text != "The carpet charge of $850.00 was approved." {
		t.Errorf("Unexpected narrative: %+v", out)
	}
	if out.Provider != "test-provider" || out.Model != "gpt-4o-mini" || !out.StrictAmounts {
		t.Errorf("Unexpected metadata: %+v", out)
	}
	if mock.lastReq.MaxTokens != 300 {
		t.Errorf("Expected max tokens 300, got %d", mock.lastReq.MaxTokens)
	}
	if !strings.Contains(mock.lastReq.Prompt, "Decision: Approved") {
		t.Error("Expected prompt to carry the decision")
	}
	if len(mock.lastReq.AllowedAmounts) == 0 {
		t.Error("Expected allowed amounts to be passed")
	}

	foundTokens := false
	for _, w := range out.Warnings {
		if strings.Contains(w, "Tokens used: 120") {
			foundTokens = true
		}
	}
	if !foundTokens {
		t.Errorf("Expected token note, got %v", out.Warnings)
	}
}

func TestNarrator_ProviderError(t *testing.T) {
	n := &Narrator{
		provider: &MockProvider{name: "test-provider", err: errors.New("quota exceeded")},
		config:   Config{},
	}

	out, err := n.Narrate(context.Background(), sampleReceipt())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if out.Enabled {
		t.Error("Expected narrative to be disabled on provider error")
	}
	if len(out.Warnings) == 0 || !strings.Contains(out.Warnings[0], "quota exceeded") {
		t.Errorf("Expected warning to mention error: %v", out.Warnings)
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(sampleReceipt())

	for _, want := range []string{
		"Only quote dollar amounts",
		"Decision: Approved",
		"Tenant: Jordan Lee",
		"Property: (none)",
		"Monthly rent: $1750.00",
		"Maximum benefit: $3500.00",
		"- Carpet replacement: $850.00 (carpet, beyond_normal_wear_and_tear)",
		"- Late fee: $75.00 (other)",
		"Excluded charges:",
		"Total approved: $850.00",
		"Final payout: $850.00",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}

	if strings.Contains(prompt, "Missing documents") {
		t.Error("Expected no missing documents line when none are missing")
	}
}

func TestAllowedAmounts(t *testing.T) {
	got := AllowedAmounts(sampleReceipt())
	// rent, benefit, 2 charges, 1 approved, 1 excluded, total, payout
	if len(got) != 8 {
		t.Errorf("Expected 8 amounts, got %d: %v", len(got), got)
	}

	empty := AllowedAmounts(workflow.Receipt{})
	if len(empty) != 0 {
		t.Errorf("Expected no amounts, got %v", empty)
	}
}

func TestRenderMarkdown(t *testing.T) {
	if RenderMarkdown(nil) != "" {
		t.Error("Expected empty markdown when nil")
	}
	if RenderMarkdown(&model.Narrative{}) != "" {
		t.Error("Expected empty markdown when disabled without warnings")
	}

	md := RenderMarkdown(&model.Narrative{
		Enabled:       true,
		Provider:      "openai",
		Model:         "gpt-4o-mini",
		StrictAmounts: true,
		Text:          "The claim was approved.",
		Warnings:      []string{"Tokens used: 150"},
	})
	for _, want := range []string{
		"# Claim Narrative",
		"GENERATED CONTENT",
		"**Provider**: openai",
		"**Model**: gpt-4o-mini",
		"**Strict Amounts**: true",
		"The claim was approved.",
		"## Notes",
		"Tokens used: 150",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Expected markdown to contain %q", want)
		}
	}

	failed := RenderMarkdown(&model.Narrative{Provider: "ollama", Warnings: []string{"not available"}})
	if !strings.Contains(failed, "No narrative generated") {
		t.Error("Expected message about no narrative")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != "" {
		t.Error("Expected LLM disabled by default")
	}
	if !cfg.StrictAmounts {
		t.Error("Expected strict amounts on by default")
	}
	if cfg.Timeout != 30 || cfg.MaxTokens != 600 {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := ConfigFromModel(
		model.LLMConfig{Provider: "ollama", Model: "llama3.2", Timeout: 10, MaxTokens: 200, StrictAmounts: true},
		model.APIConfig{HTTPSProxy: "http://proxy:3128", NoProxy: "localhost"},
	)
	if cfg.Provider != "ollama" || cfg.Model != "llama3.2" || cfg.Timeout != 10 || cfg.MaxTokens != 200 || !cfg.StrictAmounts {
		t.Errorf("Unexpected config: %+v", cfg)
	}
	if cfg.HTTPSProxy != "http://proxy:3128" || cfg.NoProxy != "localhost" {
		t.Errorf("Expected proxies from API config, got %+v", cfg)
	}
}
