package review

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ppiankov/claimreview/internal/model"
)

func extracted() model.ClaimPayload {
	return model.ClaimPayload{
		TenantName:      model.Ref("Sam Rivera"),
		PropertyAddress: model.Ref("1801 Crystal Dr Apt 511, Arlington, VA 22202"),
		DocPresence:     model.DocPresence{LeaseAgreement: true, TenantLedger: true},
		MonthlyRent:     model.Ref(1750.0),
		Charges: []model.ChargeItem{
			{Date: model.Ref("2024-05-01"), Description: "Carpet cleaning", Amount: 150, Category: model.CategoryCleaning},
			{Date: model.Ref("2024-05-01"), Description: "Prorated rent", Amount: 410.33, Category: model.CategoryProratedRent},
			{Description: "Replace broken tile", Amount: 95, Category: model.CategoryOther},
		},
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

func TestSetNumber(t *testing.T) {
	tests := []struct {
		raw   string
		want  *float64
		label string
	}{
		{"", nil, "empty"},
		{"   ", nil, "whitespace"},
		{"abc", nil, "non-numeric"},
		{"12abc", nil, "trailing junk"},
		{"NaN", nil, "NaN"},
		{"Infinity", nil, "infinity"},
		{"1750", model.Ref(1750.0), "integer"},
		{" 1200.50 ", model.Ref(1200.5), "padded decimal"},
		{"0", model.Ref(0.0), "zero kept"},
		{"-25", model.Ref(-25.0), "negative kept"},
		{"1e3", model.Ref(1000.0), "exponent"},
		{"33.3333", model.Ref(33.3333), "not rounded"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			p := SetNumber(extracted(), FieldMaximumBenefit, tt.raw)
			switch {
			case tt.want == nil && p.MaximumBenefit != nil:
				t.Errorf("expected unset, got %v", *p.MaximumBenefit)
			case tt.want != nil && p.MaximumBenefit == nil:
				t.Errorf("expected %v, got unset", *tt.want)
			case tt.want != nil && *p.MaximumBenefit != *tt.want:
				t.Errorf("expected %v, got %v", *tt.want, *p.MaximumBenefit)
			}
		})
	}
}

func TestSetNumber_LeavesOtherFields(t *testing.T) {
	before := extracted()
	after := SetNumber(before, FieldMonthlyRent, "2000")

	if *after.MonthlyRent != 2000 {
		t.Errorf("expected 2000, got %v", *after.MonthlyRent)
	}
	if *before.MonthlyRent != 1750 {
		t.Errorf("expected source payload untouched, got %v", *before.MonthlyRent)
	}
	after.MonthlyRent = before.MonthlyRent
	if mustJSON(t, after) != mustJSON(t, before) {
		t.Errorf("expected only monthly rent to change\nbefore: %s\nafter:  %s", mustJSON(t, before), mustJSON(t, after))
	}
}

func TestSetText(t *testing.T) {
	p := SetText(extracted(), FieldTenantName, "   ")
	if p.TenantName != nil {
		t.Errorf("expected whitespace to unset, got %q", *p.TenantName)
	}

	p = SetText(p, FieldTenantName, "  Sai B  ")
	if p.TenantName == nil || *p.TenantName != "  Sai B  " {
		t.Errorf("expected value stored as typed, got %v", p.TenantName)
	}

	p = SetText(p, FieldPropertyAddress, "")
	if p.PropertyAddress != nil {
		t.Errorf("expected empty address to unset, got %q", *p.PropertyAddress)
	}
}

func TestSetWear_Isolation(t *testing.T) {
	before := extracted()
	after, err := SetWear(before, 0, model.WearBeyond)
	if err != nil {
		t.Fatalf("SetWear failed: %v", err)
	}

	if after.Charges[0].WearClassification != model.WearBeyond {
		t.Errorf("expected beyond, got %q", after.Charges[0].WearClassification)
	}
	if before.Charges[0].WearClassification != model.WearUnset {
		t.Errorf("expected earlier version untouched, got %q", before.Charges[0].WearClassification)
	}
	if len(after.Charges) != len(before.Charges) {
		t.Fatalf("expected %d charges, got %d", len(before.Charges), len(after.Charges))
	}
	for i := 1; i < len(before.Charges); i++ {
		if mustJSON(t, after.Charges[i]) != mustJSON(t, before.Charges[i]) {
			t.Errorf("charge %d changed: %s -> %s", i, mustJSON(t, before.Charges[i]), mustJSON(t, after.Charges[i]))
		}
	}

	after.Charges = before.Charges
	if mustJSON(t, after) != mustJSON(t, before) {
		t.Error("expected top-level fields untouched")
	}
}

func TestSetOccupancy(t *testing.T) {
	p, err := SetOccupancy(extracted(), 1, model.OccupancyNo)
	if err != nil {
		t.Fatalf("SetOccupancy failed: %v", err)
	}
	if p.Charges[1].OccupancyLink != model.OccupancyNo {
		t.Errorf("expected No, got %q", p.Charges[1].OccupancyLink)
	}

	p, err = SetOccupancy(p, 1, model.OccupancyUnset)
	if err != nil {
		t.Fatalf("SetOccupancy failed: %v", err)
	}
	if p.Charges[1].OccupancyLink != model.OccupancyUnset {
		t.Errorf("expected unset, got %q", p.Charges[1].OccupancyLink)
	}
}

func TestSetWear_OutOfRange(t *testing.T) {
	p := extracted()
	for _, idx := range []int{-1, 3, 100} {
		got, err := SetWear(p, idx, model.WearNormal)
		if !errors.Is(err, ErrChargeIndex) {
			t.Errorf("index %d: expected ErrChargeIndex, got %v", idx, err)
		}
		if mustJSON(t, got) != mustJSON(t, p) {
			t.Errorf("index %d: expected payload unchanged", idx)
		}
	}
}

func TestBuffer_SeededFromCopy(t *testing.T) {
	src := extracted()
	b := NewBuffer(src)

	b.SetTenantName("Someone Else")
	b.SetMonthlyRent("900")
	if err := b.SetWear(0, model.WearNormal); err != nil {
		t.Fatalf("SetWear failed: %v", err)
	}

	if *src.TenantName != "Sam Rivera" {
		t.Errorf("expected extracted tenant untouched, got %q", *src.TenantName)
	}
	if *src.MonthlyRent != 1750 {
		t.Errorf("expected extracted rent untouched, got %v", *src.MonthlyRent)
	}
	if src.Charges[0].WearClassification != model.WearUnset {
		t.Errorf("expected extracted charge untouched, got %q", src.Charges[0].WearClassification)
	}

	got := b.Payload()
	if *got.TenantName != "Someone Else" || *got.MonthlyRent != 900 || got.Charges[0].WearClassification != model.WearNormal {
		t.Errorf("unexpected buffer contents: %s", mustJSON(t, got))
	}
}

func TestBuffer_PayloadIsCopy(t *testing.T) {
	b := NewBuffer(extracted())
	snap := b.Payload()
	*snap.MonthlyRent = 1
	snap.Charges[0].Description = "changed"

	again := b.Payload()
	if *again.MonthlyRent != 1750 {
		t.Errorf("expected buffer rent 1750, got %v", *again.MonthlyRent)
	}
	if again.Charges[0].Description != "Carpet cleaning" {
		t.Errorf("expected buffer charge untouched, got %q", again.Charges[0].Description)
	}
}

func TestBuffer_Charge(t *testing.T) {
	b := NewBuffer(extracted())
	if b.Charges() != 3 {
		t.Fatalf("expected 3 charges, got %d", b.Charges())
	}
	c, err := b.Charge(2)
	if err != nil {
		t.Fatalf("Charge failed: %v", err)
	}
	if c.Description != "Replace broken tile" {
		t.Errorf("unexpected charge: %+v", c)
	}
	if _, err := b.Charge(3); !errors.Is(err, ErrChargeIndex) {
		t.Errorf("expected ErrChargeIndex, got %v", err)
	}
	if err := b.SetOccupancy(7, model.OccupancyYes); !errors.Is(err, ErrChargeIndex) {
		t.Errorf("expected ErrChargeIndex, got %v", err)
	}
}
