// Package fare quotes ticket prices. Policies are pure: the same pair of
// stations always yields the same amount for the lifetime of a policy.
package fare

import (
	"fmt"

	"github.com/frahmantamala/metro-ticketing/internal"
	"github.com/frahmantamala/metro-ticketing/internal/core/money"
)

const (
	PolicyFlat  = "flat"
	PolicyStops = "stops"
)

type Policy interface {
	Quote(originID, destinationID int64) (money.Amount, error)
}

func validatePair(originID, destinationID int64) error {
	if originID <= 0 || destinationID <= 0 {
		return internal.NewValidationError("station ids must be positive", internal.ErrCodeStationNotFound)
	}
	return nil
}

// FlatPolicy charges the same fare for every trip.
type FlatPolicy struct {
	amount money.Amount
}

func NewFlatPolicy(amount money.Amount) (*FlatPolicy, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("flat fare must be positive, got %s", amount)
	}
	return &FlatPolicy{amount: amount}, nil
}

func (p *FlatPolicy) Quote(originID, destinationID int64) (money.Amount, error) {
	if err := validatePair(originID, destinationID); err != nil {
		return 0, err
	}
	return p.amount, nil
}

// FromConfig builds the configured policy. lines is only read by the
// stop-count policy and is copied, so later changes to the network do not
// affect quotes.
func FromConfig(cfg internal.FareConfig, lines [][]int64) (Policy, error) {
	switch cfg.Policy {
	case "", PolicyFlat:
		amount, err := money.Parse(cfg.FlatAmount)
		if err != nil {
			return nil, err
		}
		return NewFlatPolicy(amount)
	case PolicyStops:
		base, err := money.Parse(cfg.BaseAmount)
		if err != nil {
			return nil, fmt.Errorf("base_amount: %w", err)
		}
		perStop, err := money.Parse(cfg.PerStop)
		if err != nil {
			return nil, fmt.Errorf("per_stop: %w", err)
		}
		maxAmount, err := money.Parse(cfg.MaxAmount)
		if err != nil {
			return nil, fmt.Errorf("max_amount: %w", err)
		}
		return NewStopCountPolicy(lines, base, perStop, maxAmount)
	default:
		return nil, fmt.Errorf("unknown fare policy %q", cfg.Policy)
	}
}
