package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/claimreview/internal/model"
	"github.com/ppiankov/claimreview/internal/review"
	"github.com/ppiankov/claimreview/internal/workflow"
)

// Manifest lists the claims of a batch review
type Manifest struct {
	Claims []ClaimSpec `yaml:"claims"`

	// BaseDir resolves relative document paths. LoadManifest sets it to the
	// manifest's directory.
	BaseDir string `yaml:"-"`
}

// ClaimSpec is one claim and the reviewer's inputs for it. Empty fields keep
// the extracted value. Wear and Occupancy are keyed by 1-based charge row.
type ClaimSpec struct {
	Name            string            `yaml:"name"`
	PolicyNumber    string            `yaml:"policyNumber"`
	Documents       map[string]string `yaml:"documents"`
	MonthlyRent     string            `yaml:"monthlyRent"`
	MaximumBenefit  string            `yaml:"maximumBenefit"`
	TenantName      string            `yaml:"tenantName"`
	PropertyAddress string            `yaml:"propertyAddress"`
	Wear            map[int]string    `yaml:"wear"`
	Occupancy       map[int]string    `yaml:"occupancy"`
}

// LoadManifest reads a YAML manifest from path
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = f.Close() }()

	m, err := ReadManifest(f)
	if err != nil {
		return nil, err
	}
	m.BaseDir = filepath.Dir(path)
	return m, nil
}

// ReadManifest decodes a manifest and names unnamed claims claim-N
func ReadManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest is empty")
		}
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Claims) == 0 {
		return nil, fmt.Errorf("manifest lists no claims")
	}

	for i := range m.Claims {
		if m.Claims[i].Name == "" {
			m.Claims[i].Name = fmt.Sprintf("claim-%d", i+1)
		}
	}
	return &m, nil
}

// Upload reads the claim's documents. Relative paths are resolved against baseDir.
func (c ClaimSpec) Upload(baseDir string) (workflow.Upload, error) {
	upload := workflow.Upload{
		PolicyNumber: c.PolicyNumber,
		Documents:    make(map[model.DocumentKind]workflow.Document, len(c.Documents)),
	}

	for name, path := range c.Documents {
		kind := model.DocumentKind(name)
		if !kind.Valid() {
			return workflow.Upload{}, fmt.Errorf("%w: %q", workflow.ErrUnknownDocument, name)
		}
		if path == "" {
			continue
		}
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return workflow.Upload{}, fmt.Errorf("read %s: %w", kind, err)
		}
		upload.Documents[kind] = workflow.Document{Filename: filepath.Base(path), Content: content}
	}
	return upload, nil
}

// Apply writes the reviewer inputs into the buffer
func (c ClaimSpec) Apply(b *review.Buffer) error {
	if strings.TrimSpace(c.MonthlyRent) != "" {
		b.SetMonthlyRent(c.MonthlyRent)
	}
	if strings.TrimSpace(c.MaximumBenefit) != "" {
		b.SetMaximumBenefit(c.MaximumBenefit)
	}
	if c.TenantName != "" {
		b.SetTenantName(c.TenantName)
	}
	if c.PropertyAddress != "" {
		b.SetPropertyAddress(c.PropertyAddress)
	}

	for _, row := range sortedRows(c.Wear) {
		w, err := review.ParseWear(c.Wear[row])
		if err != nil {
			return fmt.Errorf("row %d: %w", row, err)
		}
		if err := review.SetRowWear(b, row-1, w); err != nil {
			return fmt.Errorf("row %d: %w", row, err)
		}
	}
	for _, row := range sortedRows(c.Occupancy) {
		o, err := review.ParseOccupancy(c.Occupancy[row])
		if err != nil {
			return fmt.Errorf("row %d: %w", row, err)
		}
		if err := review.SetRowOccupancy(b, row-1, o); err != nil {
			return fmt.Errorf("row %d: %w", row, err)
		}
	}
	return nil
}

func sortedRows(m map[int]string) []int {
	rows := make([]int, 0, len(m))
	for row := range m {
		rows = append(rows, row)
	}
	sort.Ints(rows)
	return rows
}

// SessionFactory creates a fresh session for each claim
type SessionFactory func() *workflow.Session

// ClaimJob reviews one manifest entry end to end
type ClaimJob struct {
	Index      int
	Spec       ClaimSpec
	BaseDir    string
	NewSession SessionFactory
}

// Execute runs intake, review and analysis for the claim
func (j *ClaimJob) Execute(ctx context.Context) Result {
	res := &ClaimResult{
		Index:        j.Index,
		Name:         j.Spec.Name,
		PolicyNumber: j.Spec.PolicyNumber,
		Stage:        workflow.StateIntake,
	}

	upload, err := j.Spec.Upload(j.BaseDir)
	if err != nil {
		res.Error = err
		return res
	}

	s := j.NewSession()
	res.SessionID = s.ID()

	if err := s.Submit(ctx, upload); err != nil {
		res.Notice = s.Notice()
		res.Error = err
		return res
	}
	res.Stage = s.State()

	buf, err := s.Buffer()
	if err != nil {
		res.Error = err
		return res
	}
	if err := j.Spec.Apply(buf); err != nil {
		res.Error = err
		return res
	}

	if err := s.Analyze(ctx); err != nil {
		res.Notice = s.Notice()
		res.Error = err
		return res
	}
	res.Stage = s.State()

	receipt, err := s.Receipt()
	if err != nil {
		res.Error = err
		return res
	}
	res.Receipt = &receipt
	return res
}

// ClaimResult is the outcome of one batch entry
type ClaimResult struct {
	Index        int
	Name         string
	PolicyNumber string
	SessionID    uuid.UUID
	Stage        workflow.State // last state reached
	Notice       string         // reviewer-facing failure message, if any
	Receipt      *workflow.Receipt
	Error        error
}

func (r *ClaimResult) GetError() error {
	return r.Error
}

// BatchProcessor reviews manifest entries concurrently
type BatchProcessor struct {
	newSession  SessionFactory
	concurrency int
}

// NewBatchProcessor creates a processor running up to concurrency claims at once
func NewBatchProcessor(newSession SessionFactory, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		newSession:  newSession,
		concurrency: concurrency,
	}
}

// Process reviews every claim in m. Results are in manifest order; claims
// not yet started when ctx is cancelled are omitted.
func (b *BatchProcessor) Process(ctx context.Context, m *Manifest) []*ClaimResult {
	if m == nil || len(m.Claims) == 0 {
		return []*ClaimResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, spec := range m.Claims {
		pool.Submit(&ClaimJob{
			Index:      i,
			Spec:       spec,
			BaseDir:    m.BaseDir,
			NewSession: b.newSession,
		})
	}

	var results []Result
	if ctx.Err() != nil {
		results = pool.Shutdown()
	} else {
		results = pool.Wait()
	}

	claimResults := make([]*ClaimResult, 0, len(results))
	for _, r := range results {
		claimResults = append(claimResults, r.(*ClaimResult))
	}
	sort.Slice(claimResults, func(i, j int) bool {
		return claimResults[i].Index < claimResults[j].Index
	})
	return claimResults
}
