// Package cache holds extraction responses so a re-run of the same claim
// does not upload the documents again.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/ppiankov/claimreview/internal/model"
	"github.com/ppiankov/claimreview/internal/workflow"
)

const keyPrefix = "claimreview:v1:"

// Cache stores opaque values with a per-entry TTL
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// UploadKey derives the cache key for an intake submission. The key covers
// the trimmed policy number and every document's kind and bytes in canonical
// order; filenames do not participate.
func UploadKey(upload workflow.Upload) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(upload.PolicyNumber)))
	h.Write([]byte{0})

	for _, kind := range model.DocumentKinds {
		doc, ok := upload.Documents[kind]
		if !ok {
			continue
		}
		sum := sha256.Sum256(doc.Content)
		h.Write([]byte(kind))
		h.Write([]byte{0})
		h.Write(sum[:])
	}

	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}
