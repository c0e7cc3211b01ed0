package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ppiankov/claimreview/internal/model"
	"github.com/ppiankov/claimreview/internal/workflow"
)

// Extractor serves repeated uploads from a cache and forwards the rest.
// Failures are never cached.
type Extractor struct {
	next   workflow.Extractor
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewExtractor wraps next with cache c
func NewExtractor(next workflow.Extractor, c Cache, ttl time.Duration, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{next: next, cache: c, ttl: ttl, logger: logger}
}

// Extract implements workflow.Extractor
func (e *Extractor) Extract(ctx context.Context, upload workflow.Upload) (*model.ClaimPayload, error) {
	key := UploadKey(upload)

	if data, ok := e.cache.Get(key); ok {
		var payload model.ClaimPayload
		if err := json.Unmarshal(data, &payload); err == nil {
			e.logger.Debug("extraction cache hit", "policy", upload.PolicyNumber)
			return &payload, nil
		}
		_ = e.cache.Delete(key)
	}

	payload, err := e.next.Extract(ctx, upload)
	if err != nil || payload == nil {
		return payload, err
	}

	if data, err := json.Marshal(payload); err == nil {
		if err := e.cache.Set(key, data, e.ttl); err != nil {
			e.logger.Warn("extraction cache write failed", "error", err)
		}
	}
	return payload, nil
}
