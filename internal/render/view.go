// Package render builds the review and receipt views and writes them to
// terminals and files. View builders never modify their inputs.
package render

import (
	"strconv"
	"strings"

	"github.com/ppiankov/claimreview/internal/classify"
	"github.com/ppiankov/claimreview/internal/model"
)

// Placeholders shown in views
const (
	NotExtracted  = "(Not extracted)"
	Unset         = "(unset)"
	NotApplicable = "—"
	NoValue       = "-"
	NoDocuments   = "None"
	NoMissingDocs = "[]"
)

// ReviewNotes are shown under the charges table during review
var ReviewNotes = []string{
	"If any required doc is missing, the evaluation will return Status: Declined.",
	"Late/Admin/Legal/SDRP/Filter/Maintenance fees are excluded automatically.",
	"For repair/cleaning/etc, set wear = beyond if evidence supports it.",
}

// DocumentLine is one row of the submitted-documents list
type DocumentLine struct {
	Kind    model.DocumentKind `json:"kind"`
	Label   string             `json:"label"`
	Present bool               `json:"present"`
}

// ChargeRow is one displayed charge. Wear and Occupancy are empty when the
// column is hidden.
type ChargeRow struct {
	Row         int    `json:"row"` // 1-based
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Evidence    string `json:"evidence,omitempty"`
	Wear        string `json:"wear,omitempty"`
	Occupancy   string `json:"occupancy,omitempty"`
}

// Review is the review-step view of the edit buffer
type Review struct {
	TenantName      string         `json:"tenantName"`
	PropertyAddress string         `json:"propertyAddress"`
	MonthlyRent     string         `json:"monthlyRent"`
	MaximumBenefit  string         `json:"maximumBenefit"`
	Documents       []DocumentLine `json:"documents"`
	ShowWear        bool           `json:"showWear"`
	ShowOccupancy   bool           `json:"showOccupancy"`
	Charges         []ChargeRow    `json:"charges"`
	Notes           []string       `json:"notes"`
}

// BuildReview maps the buffer contents to the review view. Document presence
// comes from what extraction recognized, not from the buffer.
func BuildReview(p model.ClaimPayload, extracted model.DocPresence) Review {
	ann := classify.Annotate(p.Charges)

	v := Review{
		TenantName:      textOr(p.TenantName, Unset),
		PropertyAddress: textOr(p.PropertyAddress, Unset),
		MonthlyRent:     numberOr(p.MonthlyRent, Unset),
		MaximumBenefit:  numberOr(p.MaximumBenefit, Unset),
		ShowWear:        ann.AnyWear,
		ShowOccupancy:   ann.AnyOccupancy,
		Charges:         make([]ChargeRow, 0, len(p.Charges)),
		Notes:           append([]string(nil), ReviewNotes...),
	}

	for _, kind := range model.DocumentKinds {
		v.Documents = append(v.Documents, DocumentLine{
			Kind:    kind,
			Label:   kind.Label(),
			Present: extracted.Has(kind),
		})
	}

	for i, c := range p.Charges {
		row := ChargeRow{
			Row:         i + 1,
			Date:        textOr(c.Date, NoValue),
			Description: c.Description,
			Amount:      "$" + model.Money(c.Amount),
			Category:    orValue(string(c.Category), NoValue),
			Evidence:    c.Evidence,
		}
		if ann.AnyWear {
			row.Wear = NotApplicable
			if ann.Rows[i].NeedsWear {
				row.Wear = wearLabel(c.WearClassification)
			}
		}
		if ann.AnyOccupancy {
			row.Occupancy = NotApplicable
			if ann.Rows[i].NeedsOccupancy {
				row.Occupancy = orValue(string(c.OccupancyLink), Unset)
			}
		}
		v.Charges = append(v.Charges, row)
	}

	return v
}

// DecisionLine is an approved or excluded charge on the receipt
type DecisionLine struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Reason      string `json:"reason"`
}

// LedgerVerification is the receipt's first-month block
type LedgerVerification struct {
	FirstMonthPaid                   bool   `json:"firstMonthPaid"`
	FirstMonthPaidEvidence           string `json:"firstMonthPaidEvidence"`
	FirstMonthSdiPremiumPaid         bool   `json:"firstMonthSdiPremiumPaid"`
	FirstMonthSdiPremiumPaidEvidence string `json:"firstMonthSdiPremiumPaidEvidence"`
	MissingDocuments                 string `json:"missingDocuments"`
	Status                           string `json:"status"`
	SummaryOfDecision                string `json:"summaryOfDecision"`
}

// Receipt is the read-only result view
type Receipt struct {
	TenantName           string             `json:"tenantName"`
	PropertyAddress      string             `json:"propertyAddress"`
	Status               string             `json:"status"`
	MonthlyRent          string             `json:"monthlyRent"`
	SubmittedDocuments   []string           `json:"submittedDocuments"`
	ApprovedCharges      []DecisionLine     `json:"approvedCharges"`
	ExcludedCharges      []DecisionLine     `json:"excludedCharges"`
	TotalApprovedCharges string             `json:"totalApprovedCharges"`
	FinalPayout          string             `json:"finalPayoutBasedOnCoverage"`
	Ledger               LedgerVerification `json:"ledgerVerification"`
}

// BuildReceipt maps an evaluation result and the payload that produced it to
// the receipt view
func BuildReceipt(res model.EvaluationResult, p model.ClaimPayload) Receipt {
	v := Receipt{
		TenantName:           textOr(p.TenantName, NotExtracted),
		PropertyAddress:      textOr(p.PropertyAddress, NotExtracted),
		Status:               string(res.Status),
		MonthlyRent:          moneyOrZero(p.MonthlyRent),
		SubmittedDocuments:   []string{},
		ApprovedCharges:      decisionLines(res.ApprovedCharges),
		ExcludedCharges:      decisionLines(res.ExcludedCharges),
		TotalApprovedCharges: moneyOrZero(res.TotalApprovedCharges),
		FinalPayout:          moneyOrZero(res.FinalPayoutBasedOnCoverage),
		Ledger: LedgerVerification{
			FirstMonthPaid:                   res.FirstMonthPaid,
			FirstMonthPaidEvidence:           textOr(res.FirstMonthPaidEvidence, NoValue),
			FirstMonthSdiPremiumPaid:         res.FirstMonthSdiPremiumPaid,
			FirstMonthSdiPremiumPaidEvidence: textOr(res.FirstMonthSdiPremiumPaidEvidence, NoValue),
			MissingDocuments:                 orValue(strings.Join(res.MissingDocuments, ", "), NoMissingDocs),
			Status:                           string(res.Status),
			SummaryOfDecision:                res.SummaryOfDecision,
		},
	}

	for _, kind := range model.DocumentKinds {
		if p.DocPresence.Has(kind) {
			v.SubmittedDocuments = append(v.SubmittedDocuments, string(kind))
		}
	}

	return v
}

func decisionLines(ds []model.ChargeDecision) []DecisionLine {
	out := make([]DecisionLine, 0, len(ds))
	for _, d := range ds {
		out = append(out, DecisionLine{
			Description: d.Description,
			Amount:      "$" + model.Money(d.Amount),
			Reason:      d.Reason,
		})
	}
	return out
}

func wearLabel(w model.Wear) string {
	switch w {
	case model.WearBeyond:
		return "beyond"
	case model.WearNormal:
		return "normal"
	case model.WearUnset:
		return Unset
	}
	return string(w)
}

// textOr treats nil and empty text alike
func textOr(s *string, placeholder string) string {
	if s == nil || *s == "" {
		return placeholder
	}
	return *s
}

func orValue(s, placeholder string) string {
	if s == "" {
		return placeholder
	}
	return s
}

func numberOr(v *float64, placeholder string) string {
	if v == nil {
		return placeholder
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func moneyOrZero(v *float64) string {
	if v == nil {
		return "$" + model.Money(0)
	}
	return "$" + model.Money(*v)
}
