package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/claimreview/internal/cache"
	"github.com/ppiankov/claimreview/internal/llm"
	"github.com/ppiankov/claimreview/internal/model"
	"github.com/ppiankov/claimreview/internal/render"
	"github.com/ppiankov/claimreview/internal/service"
	"github.com/ppiankov/claimreview/internal/worker"
	"github.com/ppiankov/claimreview/internal/workflow"
)

// services is the wiring shared by review and batch: one HTTP client, one
// rate limiter and one extraction cache for every session.
type services struct {
	cfg       *model.Config
	logger    *slog.Logger
	extractor workflow.Extractor
	evaluator workflow.Evaluator
	renderer  *render.Renderer
	narrator  *llm.Narrator
}

func newServices(cfg *model.Config, logger *slog.Logger) (*services, error) {
	limiter := newLimiter(cfg.RateLimiting)
	client := service.NewClient(cfg.API, service.WithThrottle(limiter))

	var extractor workflow.Extractor = client
	if cfg.Cache.Enabled {
		mem := cache.NewMemoryCache(cfg.Cache.TTL, 2*cfg.Cache.TTL)
		extractor = cache.NewExtractor(client, mem, cfg.Cache.TTL, logger)
	}

	narrator, err := llm.NewNarrator(llm.ConfigFromModel(cfg.LLM, cfg.API))
	if err != nil {
		return nil, err
	}

	return &services{
		cfg:       cfg,
		logger:    logger,
		extractor: extractor,
		evaluator: client,
		renderer:  render.NewRenderer(cfg.Output.IncludeFooter),
		narrator:  narrator,
	}, nil
}

// newLimiter builds the shared throttle with any per-host overrides
func newLimiter(cfg model.RateLimitConfig) *worker.Limiter {
	limiter := worker.NewLimiter(cfg.RequestsPerSecond, cfg.BurstSize)
	for _, h := range cfg.Hosts {
		if h.Host == "" {
			continue
		}
		limiter.SetHostRate(h.Host, h.RequestsPerSecond, h.BurstSize)
	}
	return limiter
}

func (s *services) newSession() *workflow.Session {
	return workflow.NewSession(s.extractor, s.evaluator, s.logger)
}

// writeReceipt writes <base>.json and <base>.md, plus <base>.llm.md when a
// narrative was generated. Empty jsonPath or mdPath skip that file.
func (s *services) writeReceipt(ctx context.Context, rec workflow.Receipt, jsonPath, mdPath string) (*model.Narrative, error) {
	narrative, err := s.narrator.Narrate(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("narrate: %w", err)
	}

	if jsonPath != "" {
		if err := s.renderer.RenderJSON(rec, narrative, jsonPath); err != nil {
			return narrative, fmt.Errorf("write JSON: %w", err)
		}
	}
	if mdPath != "" {
		if err := s.renderer.RenderMarkdown(rec, mdPath); err != nil {
			return narrative, fmt.Errorf("write Markdown: %w", err)
		}
		if narrative != nil && narrative.Text != "" {
			llmPath := strings.TrimSuffix(mdPath, filepath.Ext(mdPath)) + ".llm.md"
			if err := s.renderer.RenderNarrativeMarkdown(llm.RenderMarkdown(narrative), llmPath); err != nil {
				return narrative, fmt.Errorf("write narrative: %w", err)
			}
		}
	}
	return narrative, nil
}

// readUpload loads the documents named on the command line
func readUpload(policy string, paths map[model.DocumentKind]string) (workflow.Upload, error) {
	upload := workflow.Upload{
		PolicyNumber: policy,
		Documents:    make(map[model.DocumentKind]workflow.Document),
	}
	for _, kind := range model.DocumentKinds {
		path := paths[kind]
		if path == "" {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return workflow.Upload{}, fmt.Errorf("read %s: %w", kind.Label(), err)
		}
		upload.Documents[kind] = workflow.Document{
			Filename: filepath.Base(path),
			Content:  content,
		}
	}
	return upload, nil
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "-",
)

// sanitizeFilename makes s safe to use as a file name
func sanitizeFilename(s string) string {
	s = filenameReplacer.Replace(strings.TrimSpace(s))
	s = strings.Trim(s, ".")
	if s == "" {
		s = "claim"
	}
	return truncate(s, maxFilenameBytes)
}

const maxFilenameBytes = 100

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
