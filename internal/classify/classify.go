// Package classify decides, per ledger charge, which reviewer inputs the charge
// requires before the claim can be evaluated.
//
// The predicates are pure and read only the charge's current category and
// description, so they follow reviewer edits.
package classify

import (
	"regexp"
	"strings"

	"github.com/ppiankov/claimreview/internal/model"
)

// damageCategories always take a wear classification
var damageCategories = map[string]bool{
	"cleaning": true,
	"painting": true,
	"carpet":   true,
	"flooring": true,
	"repair":   true,
}

// feeLike matches fees and service charges. It excludes a description from
// wear review even when it also reads like damage.
var feeLike = regexp.MustCompile(`(?i)(late fee|returned payment|convenience|admin(istrative)?|legal|professional|court|maintenance coordination|sdrp|filter program|processing fee|service fee|coordination)`)

// damageLike matches physical damage or remediation work
var damageLike = regexp.MustCompile(`(?i)(repair|replace|patch|hole|stain|burn|tear|broken|damaged|gouge|scrape|paint|clean|carpet|floor|tile|appliance|fixture)`)

// NeedsWear reports whether a charge needs a wear classification
func NeedsWear(category model.Category, description string) bool {
	cat := strings.ToLower(string(category))
	desc := strings.ToLower(description)

	if damageCategories[cat] {
		return true
	}
	if cat == string(model.CategoryOther) {
		return damageLike.MatchString(desc) && !feeLike.MatchString(desc)
	}
	return false
}

// NeedsOccupancy reports whether a charge needs an occupancy link
func NeedsOccupancy(category model.Category) bool {
	return strings.ToLower(string(category)) == string(model.CategoryProratedRent)
}

// Row holds the flags for a single charge
type Row struct {
	NeedsWear      bool
	NeedsOccupancy bool
}

// Annotation is the classification of a whole charges sequence.
// AnyWear and AnyOccupancy decide whether the column exists at all;
// the per-row flags decide whether that row takes a value.
type Annotation struct {
	Rows         []Row
	AnyWear      bool
	AnyOccupancy bool
}

// Annotate classifies every charge, in order
func Annotate(charges []model.ChargeItem) Annotation {
	a := Annotation{Rows: make([]Row, len(charges))}
	for i, c := range charges {
		row := Row{
			NeedsWear:      NeedsWear(c.Category, c.Description),
			NeedsOccupancy: NeedsOccupancy(c.Category),
		}
		a.Rows[i] = row
		a.AnyWear = a.AnyWear || row.NeedsWear
		a.AnyOccupancy = a.AnyOccupancy || row.NeedsOccupancy
	}
	return a
}

// EffectiveWear returns the stored wear classification when the charge is
// wear-relevant and unset otherwise
func EffectiveWear(c model.ChargeItem) model.Wear {
	if !NeedsWear(c.Category, c.Description) {
		return model.WearUnset
	}
	return c.WearClassification
}

// EffectiveOccupancy returns the stored occupancy link for prorated rent and
// unset otherwise
func EffectiveOccupancy(c model.ChargeItem) model.Occupancy {
	if !NeedsOccupancy(c.Category) {
		return model.OccupancyUnset
	}
	return c.OccupancyLink
}
