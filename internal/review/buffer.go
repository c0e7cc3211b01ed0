// Package review holds the reviewer's working copy of a claim and the
// precondition check that guards evaluation.
package review

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ppiankov/claimreview/internal/model"
)

// NumberField names an editable numeric field
type NumberField string

const (
	FieldMonthlyRent    NumberField = "monthlyRent"
	FieldMaximumBenefit NumberField = "maximumBenefit"
)

// TextField names an editable text field
type TextField string

const (
	FieldTenantName      TextField = "tenantName"
	FieldPropertyAddress TextField = "propertyAddress"
)

// SetNumber returns p with the numeric field set from raw reviewer input.
// Empty or unparsable input leaves the field unset; any parsed value is
// stored as-is, including zero and negatives.
func SetNumber(p model.ClaimPayload, field NumberField, raw string) model.ClaimPayload {
	v := parseNumber(raw)
	switch field {
	case FieldMonthlyRent:
		p.MonthlyRent = v
	case FieldMaximumBenefit:
		p.MaximumBenefit = v
	}
	return p
}

// SetText returns p with the text field set. Whitespace-only input unsets the
// field; anything else is stored exactly as typed.
func SetText(p model.ClaimPayload, field TextField, raw string) model.ClaimPayload {
	var v *string
	if strings.TrimSpace(raw) != "" {
		v = model.Ref(raw)
	}
	switch field {
	case FieldTenantName:
		p.TenantName = v
	case FieldPropertyAddress:
		p.PropertyAddress = v
	}
	return p
}

// SetWear returns p with the wear classification of charge idx replaced
func SetWear(p model.ClaimPayload, idx int, w model.Wear) (model.ClaimPayload, error) {
	return updateCharge(p, idx, func(c *model.ChargeItem) {
		c.WearClassification = w
	})
}

// SetOccupancy returns p with the occupancy link of charge idx replaced
func SetOccupancy(p model.ClaimPayload, idx int, o model.Occupancy) (model.ClaimPayload, error) {
	return updateCharge(p, idx, func(c *model.ChargeItem) {
		c.OccupancyLink = o
	})
}

// updateCharge copies the charges slice before touching it, so earlier
// versions of the payload keep their charges.
func updateCharge(p model.ClaimPayload, idx int, fn func(*model.ChargeItem)) (model.ClaimPayload, error) {
	if idx < 0 || idx >= len(p.Charges) {
		return p, fmt.Errorf("%w: %d (have %d charges)", ErrChargeIndex, idx, len(p.Charges))
	}
	next := make([]model.ChargeItem, len(p.Charges))
	copy(next, p.Charges)
	fn(&next[idx])
	p.Charges = next
	return p, nil
}

func parseNumber(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	return &n
}

// Buffer is the reviewer's live copy of the claim. It is seeded from a clone
// of the extraction result and every edit replaces its value wholesale.
type Buffer struct {
	current model.ClaimPayload
}

// NewBuffer seeds a buffer with a deep copy of p
func NewBuffer(p model.ClaimPayload) *Buffer {
	return &Buffer{current: p.Clone()}
}

// Payload returns a deep copy of the current contents
func (b *Buffer) Payload() model.ClaimPayload {
	return b.current.Clone()
}

// Charges returns the number of charges in the buffer
func (b *Buffer) Charges() int {
	return len(b.current.Charges)
}

// Charge returns a copy of charge idx
func (b *Buffer) Charge(idx int) (model.ChargeItem, error) {
	if idx < 0 || idx >= len(b.current.Charges) {
		return model.ChargeItem{}, fmt.Errorf("%w: %d (have %d charges)", ErrChargeIndex, idx, len(b.current.Charges))
	}
	c := b.current.Charges[idx]
	if c.Date != nil {
		c.Date = model.Ref(*c.Date)
	}
	return c, nil
}

// SetMonthlyRent applies raw reviewer input to the monthly rent
func (b *Buffer) SetMonthlyRent(raw string) {
	b.current = SetNumber(b.current, FieldMonthlyRent, raw)
}

// SetMaximumBenefit applies raw reviewer input to the maximum benefit
func (b *Buffer) SetMaximumBenefit(raw string) {
	b.current = SetNumber(b.current, FieldMaximumBenefit, raw)
}

// SetTenantName applies raw reviewer input to the tenant name
func (b *Buffer) SetTenantName(raw string) {
	b.current = SetText(b.current, FieldTenantName, raw)
}

// SetPropertyAddress applies raw reviewer input to the property address
func (b *Buffer) SetPropertyAddress(raw string) {
	b.current = SetText(b.current, FieldPropertyAddress, raw)
}

// SetWear sets the wear classification of charge idx
func (b *Buffer) SetWear(idx int, w model.Wear) error {
	next, err := SetWear(b.current, idx, w)
	if err != nil {
		return err
	}
	b.current = next
	return nil
}

// SetOccupancy sets the occupancy link of charge idx
func (b *Buffer) SetOccupancy(idx int, o model.Occupancy) error {
	next, err := SetOccupancy(b.current, idx, o)
	if err != nil {
		return err
	}
	b.current = next
	return nil
}
