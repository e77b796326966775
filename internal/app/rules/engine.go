package rules

import (
	"errors"
	"fmt"

	"tradecore/internal/app/ports"
)

var ErrRuleViolation = errors.New("trade rule violation")

// ViolationError names the failing rule and carries its human-readable
// reason.
type ViolationError struct {
	Rule   string
	Reason string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("rule %s: %s", e.Rule, e.Reason)
}

func (e *ViolationError) Unwrap() error { return ErrRuleViolation }

// Context is the input every rule predicate sees when a trade is initiated.
type Context struct {
	SeasonID  string
	Initiator ports.CharacterProfile
	Target    ports.CharacterProfile
}

// Rule is one named predicate. Rules are data: deployments change the check
// set by changing the list handed to NewEngine, not by branching in the
// trade state machine.
type Rule interface {
	Name() string
	Evaluate(tc Context) (allowed bool, reason string)
}

type Engine struct {
	rules []Rule
}

func NewEngine(rules ...Rule) Engine {
	return Engine{rules: rules}
}

// Default returns the built-in pipeline in its canonical order.
func Default() Engine {
	return NewEngine(SelfTrade{}, SameSeason{}, SoloSelfFound{})
}

// Evaluate runs the pipeline in registration order and returns the first
// violation, or nil when every rule allows the trade.
func (e Engine) Evaluate(tc Context) error {
	for _, r := range e.rules {
		if allowed, reason := r.Evaluate(tc); !allowed {
			return &ViolationError{Rule: r.Name(), Reason: reason}
		}
	}
	return nil
}

type SelfTrade struct{}

func (SelfTrade) Name() string { return "self_trade" }

func (SelfTrade) Evaluate(tc Context) (bool, string) {
	if tc.Initiator.CharacterID == tc.Target.CharacterID {
		return false, "a character cannot trade with itself"
	}
	return true, ""
}

type SameSeason struct{}

func (SameSeason) Name() string { return "same_season" }

func (SameSeason) Evaluate(tc Context) (bool, string) {
	if tc.Initiator.SeasonID != tc.SeasonID {
		return false, fmt.Sprintf("initiator belongs to season %q, trade is in season %q", tc.Initiator.SeasonID, tc.SeasonID)
	}
	if tc.Target.SeasonID != tc.SeasonID {
		return false, fmt.Sprintf("target belongs to season %q, trade is in season %q", tc.Target.SeasonID, tc.SeasonID)
	}
	return true, ""
}

type SoloSelfFound struct{}

func (SoloSelfFound) Name() string { return "solo_self_found" }

func (SoloSelfFound) Evaluate(tc Context) (bool, string) {
	if tc.Initiator.SoloSelfFound {
		return false, "Solo Self-Found characters cannot initiate trades"
	}
	if tc.Target.SoloSelfFound {
		return false, "Solo Self-Found characters cannot be trade targets"
	}
	return true, ""
}
