package review

import (
	"errors"
	"fmt"

	"github.com/ppiankov/claimreview/internal/classify"
	"github.com/ppiankov/claimreview/internal/model"
)

// ErrNotApplicable is returned when a row does not take the requested input
var ErrNotApplicable = errors.New("not applicable to this charge")

// SetRowWear sets the wear classification of charge idx, but only when the
// charge is one that shows a wear selector.
func SetRowWear(b *Buffer, idx int, w model.Wear) error {
	c, err := b.Charge(idx)
	if err != nil {
		return err
	}
	if !classify.NeedsWear(c.Category, c.Description) {
		return fmt.Errorf("%w: charge %d (%s) takes no wear classification", ErrNotApplicable, idx+1, c.Description)
	}
	return b.SetWear(idx, w)
}

// SetRowOccupancy sets the occupancy link of charge idx, but only for
// prorated rent charges.
func SetRowOccupancy(b *Buffer, idx int, o model.Occupancy) error {
	c, err := b.Charge(idx)
	if err != nil {
		return err
	}
	if !classify.NeedsOccupancy(c.Category) {
		return fmt.Errorf("%w: charge %d (%s) takes no occupancy link", ErrNotApplicable, idx+1, c.Description)
	}
	return b.SetOccupancy(idx, o)
}
