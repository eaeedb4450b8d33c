package automation

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// maxDelaySeconds is the longest delay a time.Duration can hold.
const maxDelaySeconds = math.MaxInt64 / int64(time.Second)

// ruleWire is the JSON shape shared by the admin API and the legacy rules file:
//
//	{"watch": "tempA", "do": "fanA", "type": "bang-bang", "threshold": 80, "do_value": 1}
//
// delay is in seconds.
type ruleWire struct {
	Watch     string   `json:"watch"`
	Do        string   `json:"do"`
	Type      Kind     `json:"type"`
	Threshold *float64 `json:"threshold,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Delay     *float64 `json:"delay,omitempty"`
	DoValue   *float64 `json:"do_value"`
}

// MarshalJSON encodes the rule in its wire shape.
func (r Rule) MarshalJSON() ([]byte, error) {
	w := ruleWire{Watch: r.Watch, Do: r.Do, Type: r.Kind()}
	doValue := r.DoValue
	w.DoValue = &doValue

	switch c := r.Condition.(type) {
	case BangBang:
		w.Threshold = &c.Threshold
	case Range:
		w.Min, w.Max = &c.Min, &c.Max
	case Delayed:
		seconds := c.Delay.Seconds()
		w.Threshold, w.Delay = &c.Threshold, &seconds
	case Rising:
		w.Threshold = &c.Threshold
	case Falling:
		w.Threshold = &c.Threshold
	}

	return json.Marshal(w)
}

// UnmarshalJSON decodes and validates a rule from its wire shape.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var w ruleWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}

	rule, err := w.rule()
	if err != nil {
		return err
	}
	*r = rule
	return nil
}

func (w ruleWire) rule() (Rule, error) {
	rule := Rule{Watch: w.Watch, Do: w.Do}

	if w.Type == "" {
		return Rule{}, fmt.Errorf("%w: missing 'type'", ErrInvalidRule)
	}
	if w.DoValue == nil {
		return Rule{}, fmt.Errorf("%w: missing 'do_value'", ErrInvalidRule)
	}
	rule.DoValue = *w.DoValue

	need := func(name string, v *float64) (float64, error) {
		if v == nil {
			return 0, fmt.Errorf("%w: missing '%s' for %s rule", ErrInvalidRule, name, w.Type)
		}
		return *v, nil
	}

	switch w.Type {
	case KindBangBang, KindRising, KindFalling:
		th, err := need("threshold", w.Threshold)
		if err != nil {
			return Rule{}, err
		}
		switch w.Type {
		case KindBangBang:
			rule.Condition = BangBang{Threshold: th}
		case KindRising:
			rule.Condition = Rising{Threshold: th}
		default:
			rule.Condition = Falling{Threshold: th}
		}
	case KindRange:
		lo, err := need("min", w.Min)
		if err != nil {
			return Rule{}, err
		}
		hi, err := need("max", w.Max)
		if err != nil {
			return Rule{}, err
		}
		rule.Condition = Range{Min: lo, Max: hi}
	case KindDelayed:
		th, err := need("threshold", w.Threshold)
		if err != nil {
			return Rule{}, err
		}
		seconds, err := need("delay", w.Delay)
		if err != nil {
			return Rule{}, err
		}
		if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
			return Rule{}, fmt.Errorf("%w: delay must be a finite number", ErrInvalidRule)
		}
		if seconds > float64(maxDelaySeconds) {
			return Rule{}, fmt.Errorf("%w: delay exceeds %d seconds", ErrInvalidRule, maxDelaySeconds)
		}
		rule.Condition = Delayed{Threshold: th, Delay: time.Duration(seconds * float64(time.Second))}
	default:
		return Rule{}, fmt.Errorf("%w: unknown type %q", ErrInvalidRule, w.Type)
	}

	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}
	return rule, nil
}
