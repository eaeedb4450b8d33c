package automation

// Reading is a channel's previous value, if one has been seen.
type Reading struct {
	Value float64
	Known bool
}

// Evaluate reports whether rule fires for the transition previous -> current.
// For Delayed rules a true result means "arm", not "execute now".
//
// Evaluate is pure: it reads nothing but its arguments.
func Evaluate(rule Rule, previous Reading, current float64) bool {
	switch c := rule.Condition.(type) {
	case BangBang:
		return current >= c.Threshold
	case Range:
		return c.Min <= current && current <= c.Max
	case Delayed:
		return current >= c.Threshold
	case Rising:
		return previous.Known && previous.Value < c.Threshold && c.Threshold <= current
	case Falling:
		return previous.Known && previous.Value > c.Threshold && c.Threshold >= current
	default:
		return false
	}
}
