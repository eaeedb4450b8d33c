package automation

import (
	"fmt"
	"math"
)

// MaxChannelIDLength bounds watch and do channel ids.
const MaxChannelIDLength = 128

// Validate checks that the rule is complete and internally consistent.
// Errors wrap ErrInvalidRule and name the offending field.
func (r Rule) Validate() error {
	if err := validateChannelID("watch", r.Watch); err != nil {
		return err
	}
	if err := validateChannelID("do", r.Do); err != nil {
		return err
	}
	if math.IsNaN(r.DoValue) || math.IsInf(r.DoValue, 0) {
		return fmt.Errorf("%w: do_value must be a finite number", ErrInvalidRule)
	}
	if r.Condition == nil {
		return fmt.Errorf("%w: missing 'type'", ErrInvalidRule)
	}
	return r.Condition.validate()
}

func validateChannelID(field, id string) error {
	if id == "" {
		return fmt.Errorf("%w: missing '%s'", ErrInvalidRule, field)
	}
	if len(id) > MaxChannelIDLength {
		return fmt.Errorf("%w: '%s' exceeds %d characters", ErrInvalidRule, field, MaxChannelIDLength)
	}
	return nil
}
