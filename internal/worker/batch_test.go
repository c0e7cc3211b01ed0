package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/claimreview/internal/model"
	"github.com/ppiankov/claimreview/internal/review"
	"github.com/ppiankov/claimreview/internal/workflow"
)

// fakeServices implements workflow.Extractor and workflow.Evaluator
type fakeServices struct {
	mu        sync.Mutex
	uploads   []workflow.Upload
	evaluated []model.ClaimPayload
	failFor   string
}

func (f *fakeServices) Extract(ctx context.Context, upload workflow.Upload) (*model.ClaimPayload, error) {
	time.Sleep(5 * time.Millisecond)
	f.mu.Lock()
	f.uploads = append(f.uploads, upload)
	f.mu.Unlock()

	if upload.PolicyNumber == f.failFor {
		return nil, errors.New("extraction backend unavailable")
	}
	return &model.ClaimPayload{
		DocPresence: model.DocPresence{
			LeaseAgreement: upload.Documents[model.DocLeaseAgreement].Content != nil,
			TenantLedger:   upload.Documents[model.DocTenantLedger].Content != nil,
		},
		MonthlyRent: model.Ref(1500.0),
		Charges: []model.ChargeItem{
			{Description: "Carpet replacement", Amount: 400, Category: model.CategoryCarpet},
			{Description: "Prorated rent", Amount: 600, Category: model.CategoryProratedRent},
		},
	}, nil
}

func (f *fakeServices) Evaluate(ctx context.Context, payload model.ClaimPayload) (*model.EvaluationResult, error) {
	f.mu.Lock()
	f.evaluated = append(f.evaluated, payload)
	f.mu.Unlock()
	return &model.EvaluationResult{Status: model.DecisionApproved, MissingDocuments: []string{}}, nil
}

func (f *fakeServices) factory() SessionFactory {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return func() *workflow.Session {
		return workflow.NewSession(f, f, logger)
	}
}

func TestReadManifest(t *testing.T) {
	m, err := ReadManifest(strings.NewReader(`
claims:
  - policyNumber: 6313R
    documents:
      lease_agreement: lease.pdf
    monthlyRent: 1750
    maximumBenefit: "3500"
    wear:
      1: beyond
    occupancy:
      2: "no"
  - name: second
    policyNumber: 7000A
`))
	if err != nil {
		t.Fatalf("ReadManifest failed: %v", err)
	}
	if len(m.Claims) != 2 {
		t.Fatalf("expected 2 claims, got %d", len(m.Claims))
	}

	first := m.Claims[0]
	if first.Name != "claim-1" {
		t.Errorf("expected default name claim-1, got %q", first.Name)
	}
	if first.MonthlyRent != "1750" {
		t.Errorf("expected rent 1750, got %q", first.MonthlyRent)
	}
	if first.Wear[1] != "beyond" || first.Occupancy[2] != "no" {
		t.Errorf("unexpected row inputs: wear=%v occupancy=%v", first.Wear, first.Occupancy)
	}
	if m.Claims[1].Name != "second" {
		t.Errorf("expected name second, got %q", m.Claims[1].Name)
	}
}

func TestReadManifest_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no claims", "claims: []\n"},
		{"unknown field", "claims:\n  - policy: 1\n"},
		{"not yaml", "claims: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadManifest(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestClaimSpec_Upload(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "lease.pdf"), []byte("%PDF-lease"), 0o644); err != nil {
		t.Fatal(err)
	}

	spec := ClaimSpec{
		PolicyNumber: "6313R",
		Documents: map[string]string{
			"lease_agreement": "lease.pdf",
			"lease_addendum":  "",
		},
	}
	upload, err := spec.Upload(dir)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	doc, ok := upload.Documents[model.DocLeaseAgreement]
	if !ok || string(doc.Content) != "%PDF-lease" || doc.Filename != "lease.pdf" {
		t.Errorf("unexpected lease document: %+v", doc)
	}
	if _, ok := upload.Documents[model.DocLeaseAddendum]; ok {
		t.Error("expected empty path to be skipped")
	}

	if _, err := (ClaimSpec{Documents: map[string]string{"w2": "x.pdf"}}).Upload(dir); !errors.Is(err, workflow.ErrUnknownDocument) {
		t.Errorf("expected ErrUnknownDocument, got %v", err)
	}
	if _, err := (ClaimSpec{Documents: map[string]string{"tenant_ledger": "missing.pdf"}}).Upload(dir); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestClaimSpec_Apply(t *testing.T) {
	b := review.NewBuffer(model.ClaimPayload{
		MonthlyRent: model.Ref(1500.0),
		TenantName:  model.Ref("Extracted Name"),
		Charges: []model.ChargeItem{
			{Description: "Carpet replacement", Amount: 400, Category: model.CategoryCarpet},
			{Description: "Prorated rent", Amount: 600, Category: model.CategoryProratedRent},
		},
	})

	spec := ClaimSpec{
		MaximumBenefit: "3000",
		Wear:           map[int]string{1: "beyond"},
		Occupancy:      map[int]string{2: "yes"},
	}
	if err := spec.Apply(b); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	p := b.Payload()
	if p.MonthlyRent == nil || *p.MonthlyRent != 1500 {
		t.Errorf("expected extracted rent kept, got %v", p.MonthlyRent)
	}
	if p.MaximumBenefit == nil || *p.MaximumBenefit != 3000 {
		t.Errorf("expected benefit 3000, got %v", p.MaximumBenefit)
	}
	if p.TenantName == nil || *p.TenantName != "Extracted Name" {
		t.Errorf("expected extracted tenant kept, got %v", p.TenantName)
	}
	if p.Charges[0].WearClassification != model.WearBeyond {
		t.Errorf("expected beyond on row 1, got %q", p.Charges[0].WearClassification)
	}
	if p.Charges[1].OccupancyLink != model.OccupancyYes {
		t.Errorf("expected Yes on row 2, got %q", p.Charges[1].OccupancyLink)
	}

	if err := (ClaimSpec{Wear: map[int]string{2: "normal"}}).Apply(b); !errors.Is(err, review.ErrNotApplicable) {
		t.Errorf("expected ErrNotApplicable, got %v", err)
	}
	if err := (ClaimSpec{Occupancy: map[int]string{5: "no"}}).Apply(b); !errors.Is(err, review.ErrChargeIndex) {
		t.Errorf("expected ErrChargeIndex, got %v", err)
	}
}

func TestBatchProcessor_Process(t *testing.T) {
	services := &fakeServices{failFor: "BROKEN"}
	processor := NewBatchProcessor(services.factory(), 2)

	m := &Manifest{Claims: []ClaimSpec{
		{Name: "a", PolicyNumber: "A1", MaximumBenefit: "2000", Wear: map[int]string{1: "beyond"}},
		{Name: "b", PolicyNumber: "BROKEN", MaximumBenefit: "2000"},
		{Name: "c", PolicyNumber: "C1"},
		{Name: "d", PolicyNumber: "D1", MaximumBenefit: "2000", Occupancy: map[int]string{1: "yes"}},
		{Name: "e", PolicyNumber: ""},
	}}

	results := processor.Process(context.Background(), m)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("expected results in manifest order, got index %d at %d", r.Index, i)
		}
	}

	a := results[0]
	if a.Error != nil || a.Receipt == nil {
		t.Fatalf("expected claim a to complete, got %v", a.Error)
	}
	if a.Stage != workflow.StateResult {
		t.Errorf("expected result stage, got %s", a.Stage)
	}
	if a.Receipt.Payload.Charges[0].WearClassification != model.WearBeyond {
		t.Error("expected receipt to carry the reviewer's wear choice")
	}

	b := results[1]
	if b.Error == nil || b.Stage != workflow.StateIntake {
		t.Errorf("expected claim b to fail at intake, got stage %s err %v", b.Stage, b.Error)
	}
	if b.Notice != workflow.DefaultExtractNotice {
		t.Errorf("expected default extract notice, got %q", b.Notice)
	}

	c := results[2]
	if c.Stage != workflow.StateReview || c.Notice != "Maximum Benefit is required." {
		t.Errorf("expected claim c blocked in review, got stage %s notice %q", c.Stage, c.Notice)
	}

	if results[3].Error == nil || !errors.Is(results[3].Error, review.ErrNotApplicable) {
		t.Errorf("expected claim d to fail on occupancy for a carpet row, got %v", results[3].Error)
	}

	if !errors.Is(results[4].Error, workflow.ErrPolicyNumberRequired) {
		t.Errorf("expected claim e to need a policy number, got %v", results[4].Error)
	}

	if len(services.evaluated) != 1 {
		t.Errorf("expected exactly one evaluation, got %d", len(services.evaluated))
	}
}

func TestBatchProcessor_CancelledBeforeStart(t *testing.T) {
	services := &fakeServices{}
	processor := NewBatchProcessor(services.factory(), 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := &Manifest{Claims: []ClaimSpec{
		{Name: "a", PolicyNumber: "A1"},
		{Name: "b", PolicyNumber: "B1"},
		{Name: "c", PolicyNumber: "C1"},
	}}

	done := make(chan []*ClaimResult, 1)
	go func() { done <- processor.Process(ctx, m) }()

	select {
	case results := <-done:
		if len(results) != 0 {
			t.Errorf("expected no claims started, got %d results", len(results))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Process did not return after cancellation")
	}

	services.mu.Lock()
	defer services.mu.Unlock()
	if len(services.uploads) != 0 {
		t.Errorf("expected no extraction calls, got %d", len(services.uploads))
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor((&fakeServices{}).factory(), 2)
	if results := processor.Process(context.Background(), &Manifest{}); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestLoadManifest_BaseDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "claims.yaml")
	if err := os.WriteFile(path, []byte("claims:\n  - policyNumber: X\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}
	if m.BaseDir != dir {
		t.Errorf("expected base dir %s, got %s", dir, m.BaseDir)
	}
	if _, err := LoadManifest(filepath.Join(dir, "nope.yaml")); err == nil {
		t.Error("expected error for missing manifest")
	}
}
