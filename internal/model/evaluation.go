package model

// DecisionStatus is the evaluation service's verdict
type DecisionStatus string

const (
	DecisionApproved DecisionStatus = "Approved"
	DecisionDeclined DecisionStatus = "Declined"
)

// ChargeDecision is a charge the evaluation service approved or excluded
type ChargeDecision struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Reason      string  `json:"reason"`
}

// EvaluationResult is the evaluation service's response for a claim
type EvaluationResult struct {
	FirstMonthPaid                   bool           `json:"firstMonthPaid"`
	FirstMonthPaidEvidence           *string        `json:"firstMonthPaidEvidence"`
	FirstMonthSdiPremiumPaid         bool           `json:"firstMonthSdiPremiumPaid"`
	FirstMonthSdiPremiumPaidEvidence *string        `json:"firstMonthSdiPremiumPaidEvidence"`
	MissingDocuments                 []string       `json:"missingDocuments"`
	Status                           DecisionStatus `json:"status"`
	SummaryOfDecision                string         `json:"summaryOfDecision"`

	ApprovedCharges            []ChargeDecision `json:"approvedCharges,omitempty"`
	ExcludedCharges            []ChargeDecision `json:"excludedCharges,omitempty"`
	TotalApprovedCharges       *float64         `json:"totalApprovedCharges,omitempty"`
	FinalPayoutBasedOnCoverage *float64         `json:"finalPayoutBasedOnCoverage,omitempty"`
}
