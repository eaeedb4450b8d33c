package automation

import (
	"fmt"
	"time"
)

// Kind names a rule condition on the wire.
type Kind string

// Rule kinds.
const (
	KindBangBang Kind = "bang-bang"
	KindRange    Kind = "range"
	KindDelayed  Kind = "delayed"
	KindRising   Kind = "rising"
	KindFalling  Kind = "falling"
)

// Rule ties a condition on a watch channel to a value written to a do channel.
// At most one rule exists per (Watch, Do) pair.
type Rule struct {
	Watch     string
	Do        string
	DoValue   float64
	Condition Condition
}

// Key returns the rule's identity.
func (r Rule) Key() RuleKey {
	return RuleKey{Watch: r.Watch, Do: r.Do}
}

// Kind returns the kind of the rule's condition, or "" if it has none.
func (r Rule) Kind() Kind {
	if r.Condition == nil {
		return ""
	}
	return r.Condition.Kind()
}

// RuleKey identifies a rule and its pending trigger.
type RuleKey struct {
	Watch string `json:"watch"`
	Do    string `json:"do"`
}

func (k RuleKey) String() string {
	return k.Watch + "->" + k.Do
}

// Condition is one of BangBang, Range, Delayed, Rising or Falling.
type Condition interface {
	Kind() Kind
	validate() error
}

// BangBang fires on every reading at or above Threshold.
type BangBang struct {
	Threshold float64
}

// Range fires on every reading within [Min, Max].
type Range struct {
	Min float64
	Max float64
}

// Delayed arms on a reading at or above Threshold and fires Delay later.
type Delayed struct {
	Threshold float64
	Delay     time.Duration
}

// Rising fires when consecutive readings cross Threshold upwards:
// previous < Threshold <= current.
type Rising struct {
	Threshold float64
}

// Falling fires when consecutive readings cross Threshold downwards:
// previous > Threshold >= current.
type Falling struct {
	Threshold float64
}

func (BangBang) Kind() Kind { return KindBangBang }
func (Range) Kind() Kind    { return KindRange }
func (Delayed) Kind() Kind  { return KindDelayed }
func (Rising) Kind() Kind   { return KindRising }
func (Falling) Kind() Kind  { return KindFalling }

func (BangBang) validate() error { return nil }
func (Rising) validate() error   { return nil }
func (Falling) validate() error  { return nil }

func (c Range) validate() error {
	if c.Min > c.Max {
		return fmt.Errorf("%w: min %g is greater than max %g", ErrInvalidRule, c.Min, c.Max)
	}
	return nil
}

func (c Delayed) validate() error {
	if c.Delay < 0 {
		return fmt.Errorf("%w: delay cannot be negative", ErrInvalidRule)
	}
	return nil
}

// Command is an outbound actuation: channel id to target value.
type Command struct {
	Source string
	Data   map[string]float64
}
