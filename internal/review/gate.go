package review

import (
	"errors"

	"github.com/ppiankov/claimreview/internal/model"
)

// ErrChargeIndex is returned for a charge index outside the charges sequence
var ErrChargeIndex = errors.New("charge index out of range")

// ValidationError is a failed precondition. Message is shown to the reviewer verbatim.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrMaximumBenefitRequired = &ValidationError{Field: "maximumBenefit", Message: "Maximum Benefit is required."}
	ErrMonthlyRentRequired    = &ValidationError{Field: "monthlyRent", Message: "Monthly Rent is required."}
)

// Check reports the first submission precondition p fails, or nil.
// Checks run in a fixed order and p is never modified.
func Check(p model.ClaimPayload) error {
	if !positive(p.MaximumBenefit) {
		return ErrMaximumBenefitRequired
	}
	if !positive(p.MonthlyRent) {
		return ErrMonthlyRentRequired
	}
	return nil
}

// positive is false for nil, zero, negatives and NaN
func positive(v *float64) bool {
	return v != nil && *v > 0
}
