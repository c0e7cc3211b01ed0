package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// ChargeStatus is the payment status of a ledger charge
type ChargeStatus string

const (
	StatusUnset   ChargeStatus = ""
	StatusUnpaid  ChargeStatus = "unpaid"
	StatusPaid    ChargeStatus = "paid"
	StatusOverdue ChargeStatus = "overdue"
)

// Category classifies a ledger charge. Values the extraction service returns
// outside the known set are kept verbatim.
type Category string

const (
	CategoryUnset                 Category = ""
	CategoryCleaning              Category = "cleaning"
	CategoryRekey                 Category = "rekey"
	CategoryLandscaping           Category = "landscaping"
	CategoryUnpaidUtilities       Category = "unpaid_utilities"
	CategoryUnpaidRent            Category = "unpaid_rent"
	CategoryLeaseBreakFee         Category = "lease_break_fee"
	CategoryProratedRent          Category = "prorated_rent"
	CategoryPainting              Category = "painting"
	CategoryCarpet                Category = "carpet"
	CategoryFlooring              Category = "flooring"
	CategoryRepair                Category = "repair"
	CategoryPetDamage             Category = "pet_damage"
	CategoryNonRefundableFee      Category = "non_refundable_fee"
	CategoryLawnServiceUnoccupied Category = "lawn_service_unoccupied"
	CategoryOther                 Category = "other"
)

// Wear distinguishes ordinary wear from damage beyond it
type Wear string

const (
	WearUnset  Wear = ""
	WearNormal Wear = "normal_wear_and_tear"
	WearBeyond Wear = "beyond_normal_wear_and_tear"
)

// Occupancy records whether a prorated rent charge is tied to the tenant's occupancy
type Occupancy string

const (
	OccupancyUnset Occupancy = ""
	OccupancyYes   Occupancy = "Yes"
	OccupancyNo    Occupancy = "No"
)

// DocPresence records which supporting documents extraction recognized
type DocPresence struct {
	LeaseAgreement       bool `json:"leaseAgreement"`
	LeaseAddendum        bool `json:"leaseAddendum"`
	NotificationToTenant bool `json:"notificationToTenant"`
	TenantLedger         bool `json:"tenantLedger"`
}

// LedgerValidation holds first-month facts read from the tenant ledger
type LedgerValidation struct {
	FirstMonthRentPaid     *bool   `json:"firstMonthRentPaid"`
	FirstMonthRentEvidence *string `json:"firstMonthRentEvidence"`
	FirstMonthSdiPaid      *bool   `json:"firstMonthSdiPaid"`
	FirstMonthSdiEvidence  *string `json:"firstMonthSdiEvidence"`
}

// NotificationBlock describes the notice sent to the tenant
type NotificationBlock struct {
	Present  *bool   `json:"present"`
	Date     *string `json:"date"`
	Evidence *string `json:"evidence"`
}

// ChargeItem is a single line of the move-out ledger
type ChargeItem struct {
	Date               *string      `json:"date"`
	Description        string       `json:"description"`
	Amount             float64      `json:"amount"`
	Status             ChargeStatus `json:"status"`
	Category           Category     `json:"category"`
	WearClassification Wear         `json:"wearClassification"`
	Evidence           string       `json:"evidence,omitempty"`
	OccupancyLink      Occupancy    `json:"occupancyLink"`
}

// ClaimPayload is the editable unit: what extraction returns and what evaluation consumes
type ClaimPayload struct {
	TenantName       *string           `json:"tenantName"`
	PropertyAddress  *string           `json:"propertyAddress"`
	DocPresence      DocPresence       `json:"docPresence"`
	MonthlyRent      *float64          `json:"monthlyRent"`
	MaximumBenefit   *float64          `json:"maximumBenefit"`
	LedgerValidation LedgerValidation  `json:"ledgerValidation"`
	Charges          []ChargeItem      `json:"charges"`
	Notification     NotificationBlock `json:"notification"`
}

// Clone returns a deep copy. The copy shares no pointers or slices with p.
func (p ClaimPayload) Clone() ClaimPayload {
	out := p
	out.TenantName = cloneRef(p.TenantName)
	out.PropertyAddress = cloneRef(p.PropertyAddress)
	out.MonthlyRent = cloneRef(p.MonthlyRent)
	out.MaximumBenefit = cloneRef(p.MaximumBenefit)

	out.LedgerValidation = LedgerValidation{
		FirstMonthRentPaid:     cloneRef(p.LedgerValidation.FirstMonthRentPaid),
		FirstMonthRentEvidence: cloneRef(p.LedgerValidation.FirstMonthRentEvidence),
		FirstMonthSdiPaid:      cloneRef(p.LedgerValidation.FirstMonthSdiPaid),
		FirstMonthSdiEvidence:  cloneRef(p.LedgerValidation.FirstMonthSdiEvidence),
	}
	out.Notification = NotificationBlock{
		Present:  cloneRef(p.Notification.Present),
		Date:     cloneRef(p.Notification.Date),
		Evidence: cloneRef(p.Notification.Evidence),
	}

	if p.Charges != nil {
		out.Charges = make([]ChargeItem, len(p.Charges))
		for i, c := range p.Charges {
			c.Date = cloneRef(c.Date)
			out.Charges[i] = c
		}
	}

	return out
}

func cloneRef[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Ref returns a pointer to v
func Ref[T any](v T) *T {
	return &v
}

// Money formats an amount as a fixed 2-decimal currency value
func Money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// Cents returns the amount in whole cents, the form amounts are compared in
func Cents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// Unset enum values travel as JSON null

func (s ChargeStatus) MarshalJSON() ([]byte, error) { return marshalNullable(string(s)) }
func (c Category) MarshalJSON() ([]byte, error)     { return marshalNullable(string(c)) }
func (w Wear) MarshalJSON() ([]byte, error)         { return marshalNullable(string(w)) }
func (o Occupancy) MarshalJSON() ([]byte, error)    { return marshalNullable(string(o)) }

func (s *ChargeStatus) UnmarshalJSON(b []byte) error {
	return unmarshalNullable(b, (*string)(s))
}

func (c *Category) UnmarshalJSON(b []byte) error {
	return unmarshalNullable(b, (*string)(c))
}

func (w *Wear) UnmarshalJSON(b []byte) error {
	return unmarshalNullable(b, (*string)(w))
}

func (o *Occupancy) UnmarshalJSON(b []byte) error {
	return unmarshalNullable(b, (*string)(o))
}

func marshalNullable(s string) ([]byte, error) {
	if s == "" {
		return []byte("null"), nil
	}
	return json.Marshal(s)
}

func unmarshalNullable(b []byte, dst *string) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*dst = ""
		return nil
	}
	return json.Unmarshal(b, dst)
}
