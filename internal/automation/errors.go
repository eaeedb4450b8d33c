package automation

import "errors"

// Domain errors for the automation package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, automation.ErrRuleNotFound) {
//	    // handle not found case
//	}
var (
	// ErrInvalidRule is returned when a rule fails validation. The wrapping
	// message names the offending field.
	ErrInvalidRule = errors.New("automation: invalid rule")

	// ErrRuleNotFound is returned when removing a (watch, do) pair that has no rule.
	ErrRuleNotFound = errors.New("automation: rule not found")

	// ErrActionFailed is returned when a fired rule's write or publish fails.
	ErrActionFailed = errors.New("automation: action failed")

	// ErrEngineClosed is returned by operations on a closed engine.
	ErrEngineClosed = errors.New("automation: engine closed")
)
