// Package service is the HTTP client for the extraction and evaluation services.
package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/claimreview/internal/model"
	"github.com/ppiankov/claimreview/internal/util"
	"github.com/ppiankov/claimreview/internal/workflow"
)

const (
	extractPath  = "/claims/extract"
	evaluatePath = "/claims/evaluate"
)

// Throttle delays a request until the target host may be called
type Throttle interface {
	Wait(ctx context.Context, rawURL string) error
}

// ServiceError is a failed call. Message is what the reviewer sees.
type ServiceError struct {
	Op         string // "extract" or "evaluate"
	StatusCode int    // 0 for transport failures
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Notice returns the reviewer-facing message
func (e *ServiceError) Notice() string {
	return e.Message
}

// Client calls POST /claims/extract and POST /claims/evaluate. It never retries.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	maxBytes   int64
	throttle   Throttle
}

// Option configures a Client
type Option func(*Client)

// WithThrottle waits on t before every request
func WithThrottle(t Throttle) Option {
	return func(c *Client) {
		c.throttle = t
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the services rooted at cfg.BaseURL
func NewClient(cfg model.APIConfig, opts ...Option) *Client {
	transport := &http.Transport{
		Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
	}
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via --insecure
	}

	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Extract uploads the documents and policy number and returns the extracted claim
func (c *Client) Extract(ctx context.Context, upload workflow.Upload) (*model.ClaimPayload, error) {
	body, contentType, err := encodeUpload(upload)
	if err != nil {
		return nil, &ServiceError{Op: "extract", Message: workflow.DefaultExtractNotice, Err: err}
	}

	var payload model.ClaimPayload
	if err := c.post(ctx, "extract", extractPath, contentType, body, workflow.DefaultExtractNotice, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Evaluate submits the reviewed claim and returns the decision
func (c *Client) Evaluate(ctx context.Context, payload model.ClaimPayload) (*model.EvaluationResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ServiceError{Op: "evaluate", Message: workflow.DefaultEvaluateNotice, Err: fmt.Errorf("encode payload: %w", err)}
	}

	var result model.EvaluationResult
	if err := c.post(ctx, "evaluate", evaluatePath, "application/json", body, workflow.DefaultEvaluateNotice, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, op, path, contentType string, body []byte, fallback string, out any) error {
	url := c.baseURL + path

	if c.throttle != nil {
		if err := c.throttle.Wait(ctx, url); err != nil {
			return &ServiceError{Op: op, Message: fallback, Err: fmt.Errorf("rate limit: %w", err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &ServiceError{Op: op, Message: fallback, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ServiceError{Op: op, Message: fallback, Err: fmt.Errorf("post %s: %w", path, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return &ServiceError{Op: op, StatusCode: resp.StatusCode, Message: fallback, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ServiceError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data, fallback),
			Err:        fmt.Errorf("unexpected status: %d %s (after %v)", resp.StatusCode, http.StatusText(resp.StatusCode), time.Since(start).Round(time.Millisecond)),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &ServiceError{Op: op, StatusCode: resp.StatusCode, Message: fallback, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// errorMessage pulls the "error" field out of a failure body
func errorMessage(body []byte, fallback string) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
		return fallback
	}
	return e.Error
}

// encodeUpload writes the multipart form: one part per present document in
// canonical order, then policyNumber.
func encodeUpload(upload workflow.Upload) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, kind := range model.DocumentKinds {
		doc, ok := upload.Documents[kind]
		if !ok {
			continue
		}
		name := doc.Filename
		if name == "" {
			name = string(kind) + ".pdf"
		}
		part, err := w.CreateFormFile(string(kind), name)
		if err != nil {
			return nil, "", fmt.Errorf("create part %s: %w", kind, err)
		}
		if _, err := part.Write(doc.Content); err != nil {
			return nil, "", fmt.Errorf("write part %s: %w", kind, err)
		}
	}

	if err := w.WriteField("policyNumber", upload.PolicyNumber); err != nil {
		return nil, "", fmt.Errorf("write policyNumber: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
