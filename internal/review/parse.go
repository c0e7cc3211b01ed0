package review

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/claimreview/internal/model"
)

// ErrUnknownChoice is returned for a wear or occupancy word that is not recognized
var ErrUnknownChoice = errors.New("unknown choice")

// ParseWear reads a reviewer's wear choice: normal, beyond or unset, or the
// wire value itself.
func ParseWear(s string) (model.Wear, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal", string(model.WearNormal):
		return model.WearNormal, nil
	case "beyond", string(model.WearBeyond):
		return model.WearBeyond, nil
	case "unset", "":
		return model.WearUnset, nil
	}
	return model.WearUnset, fmt.Errorf("%w: wear %q (want normal, beyond or unset)", ErrUnknownChoice, s)
}

// ParseOccupancy reads a reviewer's occupancy choice: yes, no or unset
func ParseOccupancy(s string) (model.Occupancy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y":
		return model.OccupancyYes, nil
	case "no", "n":
		return model.OccupancyNo, nil
	case "unset", "":
		return model.OccupancyUnset, nil
	}
	return model.OccupancyUnset, fmt.Errorf("%w: occupancy %q (want yes, no or unset)", ErrUnknownChoice, s)
}
