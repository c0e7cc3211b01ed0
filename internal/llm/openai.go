package llm

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/claimreview/internal/model"
	"github.com/ppiankov/claimreview/internal/util"
)

const ollamaBaseURL = "http://localhost:11434/v1"

// OpenAIProvider talks to the OpenAI chat completions API or any endpoint
// speaking it, such as Ollama's /v1
type OpenAIProvider struct {
	client *openai.Client
	config Config
	name   string
}

// NewOpenAIProvider creates a provider for api.openai.com or config.BaseURL
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	return newChatProvider("openai", config), nil
}

// NewOllamaProvider creates a provider for a local Ollama server. No API key
// is needed.
func NewOllamaProvider(config Config) (*OpenAIProvider, error) {
	if config.BaseURL == "" {
		config.BaseURL = ollamaBaseURL
	}
	if config.APIKey == "" {
		config.APIKey = "ollama"
	}
	if config.Model == "" {
		return nil, fmt.Errorf("ollama requires a model name")
	}
	return newChatProvider("ollama", config), nil
}

func newChatProvider(name string, config Config) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(config.BaseURL, "/")
	}
	clientConfig.HTTPClient = &http.Client{
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
		},
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		name:   name,
	}
}

func (p *OpenAIProvider) Name() string {
	return p.name
}

// Ping lists models, which is cheap and checks the key
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	if _, err := p.client.ListModels(ctx); err != nil {
		return fmt.Errorf("%s: list models: %w", p.name, err)
	}
	return nil
}

// Narrate calls chat completions. With strict amounts on, a reply quoting a
// dollar amount not in req.AllowedAmounts is an error.
func (p *OpenAIProvider) Narrate(ctx context.Context, req NarrateRequest) (*NarrateResponse, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = p.config.Model
	}
	if modelName == "" {
		modelName = openai.GPT4oMini
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 600
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You explain insurance claim decisions using only the facts you are given.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", p.name)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	quoted := extractAmounts(text)

	if p.config.StrictAmounts {
		if bad := unlisted(quoted, req.AllowedAmounts); bad != "" {
			return nil, fmt.Errorf("narrative quotes an amount not on the receipt: %s", bad)
		}
	}

	return &NarrateResponse{
		Text:          text,
		QuotedAmounts: quoted,
		Model:         modelName,
		TokensUsed:    resp.Usage.TotalTokens,
	}, nil
}

func (p *OpenAIProvider) timeout() time.Duration {
	if p.config.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(p.config.Timeout) * time.Second
}

var amountPattern = regexp.MustCompile(`\$\s?([0-9][0-9,]*(?:\.[0-9]+)?)`)

// extractAmounts returns the distinct dollar amounts quoted in text
func extractAmounts(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range amountPattern.FindAllStringSubmatch(text, -1) {
		v := strings.TrimRight(m[1], ",.")
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// unlisted returns the first quoted amount that matches no allowed amount to the cent
func unlisted(quoted []string, allowed []float64) string {
	cents := make(map[int64]bool, len(allowed))
	for _, a := range allowed {
		cents[model.Cents(a)] = true
	}
	for _, q := range quoted {
		v, err := strconv.ParseFloat(strings.ReplaceAll(q, ",", ""), 64)
		if err != nil || !cents[model.Cents(v)] {
			return "$" + q
		}
	}
	return ""
}
