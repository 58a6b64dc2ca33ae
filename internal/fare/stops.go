package fare

import (
	"fmt"

	"github.com/frahmantamala/metro-ticketing/internal/core/money"
)

type position struct {
	line  int
	index int
}

// StopCountPolicy charges base + perStop for every stop travelled along the
// shortest shared line. Pairs with no common line pay the cap.
type StopCountPolicy struct {
	base      money.Amount
	perStop   money.Amount
	maxAmount money.Amount
	positions map[int64][]position
}

func NewStopCountPolicy(lines [][]int64, base, perStop, maxAmount money.Amount) (*StopCountPolicy, error) {
	if base < 0 || perStop < 0 {
		return nil, fmt.Errorf("fare components cannot be negative")
	}
	if !maxAmount.IsPositive() || maxAmount < base {
		return nil, fmt.Errorf("max fare %s must be positive and at least the base fare %s", maxAmount, base)
	}

	positions := make(map[int64][]position)
	for li, line := range lines {
		for idx, stationID := range line {
			positions[stationID] = append(positions[stationID], position{line: li, index: idx})
		}
	}

	return &StopCountPolicy{
		base:      base,
		perStop:   perStop,
		maxAmount: maxAmount,
		positions: positions,
	}, nil
}

func (p *StopCountPolicy) Quote(originID, destinationID int64) (money.Amount, error) {
	if err := validatePair(originID, destinationID); err != nil {
		return 0, err
	}

	stops := -1
	for _, from := range p.positions[originID] {
		for _, to := range p.positions[destinationID] {
			if from.line != to.line {
				continue
			}
			d := from.index - to.index
			if d < 0 {
				d = -d
			}
			if stops < 0 || d < stops {
				stops = d
			}
		}
	}
	if stops < 0 {
		return p.maxAmount, nil
	}

	amount := p.base + p.perStop*money.Amount(stops)
	if amount > p.maxAmount {
		amount = p.maxAmount
	}
	return amount, nil
}
