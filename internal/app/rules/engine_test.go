package rules

import (
	"errors"
	"testing"

	"tradecore/internal/app/ports"
)

func profile(id, season string, ssf bool) ports.CharacterProfile {
	return ports.CharacterProfile{CharacterID: id, SeasonID: season, SoloSelfFound: ssf}
}

func TestDefaultPipelineAllowsNormalTrade(t *testing.T) {
	err := Default().Evaluate(Context{
		SeasonID:  "s1",
		Initiator: profile("alice", "s1", false),
		Target:    profile("bob", "s1", false),
	})
	if err != nil {
		t.Fatalf("unexpected violation: %v", err)
	}
}

func TestSelfTradeRejected(t *testing.T) {
	err := Default().Evaluate(Context{
		SeasonID:  "s1",
		Initiator: profile("alice", "s1", false),
		Target:    profile("alice", "s1", false),
	})
	assertViolation(t, err, "self_trade")
}

func TestCrossSeasonRejected(t *testing.T) {
	err := Default().Evaluate(Context{
		SeasonID:  "s1",
		Initiator: profile("alice", "s1", false),
		Target:    profile("bob", "s2", false),
	})
	assertViolation(t, err, "same_season")
}

func TestSoloSelfFoundRejectedBothDirections(t *testing.T) {
	err := Default().Evaluate(Context{
		SeasonID:  "s1",
		Initiator: profile("alice", "s1", true),
		Target:    profile("bob", "s1", false),
	})
	assertViolation(t, err, "solo_self_found")
	var v *ViolationError
	if !errors.As(err, &v) || v.Reason != "Solo Self-Found characters cannot initiate trades" {
		t.Fatalf("initiator reason: %v", err)
	}

	err = Default().Evaluate(Context{
		SeasonID:  "s1",
		Initiator: profile("alice", "s1", false),
		Target:    profile("bob", "s1", true),
	})
	assertViolation(t, err, "solo_self_found")
	if !errors.As(err, &v) || v.Reason != "Solo Self-Found characters cannot be trade targets" {
		t.Fatalf("target reason: %v", err)
	}
}

func TestPipelineReportsFirstViolationInOrder(t *testing.T) {
	// Self trade between two solo self-found characters: self_trade runs
	// first, so it wins.
	err := Default().Evaluate(Context{
		SeasonID:  "s1",
		Initiator: profile("alice", "s1", true),
		Target:    profile("alice", "s1", true),
	})
	assertViolation(t, err, "self_trade")
}

type denyAll struct{ reason string }

func (denyAll) Name() string { return "deny_all" }

func (d denyAll) Evaluate(Context) (bool, string) { return false, d.reason }

func TestCustomEngineComposition(t *testing.T) {
	engine := NewEngine(SelfTrade{}, denyAll{reason: "maintenance window"})
	err := engine.Evaluate(Context{
		SeasonID:  "s1",
		Initiator: profile("alice", "s1", false),
		Target:    profile("bob", "s1", false),
	})
	assertViolation(t, err, "deny_all")

	if err := NewEngine().Evaluate(Context{}); err != nil {
		t.Fatalf("empty engine must allow everything: %v", err)
	}
}

func assertViolation(t *testing.T, err error, rule string) {
	t.Helper()
	if !errors.Is(err, ErrRuleViolation) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	var v *ViolationError
	if !errors.As(err, &v) {
		t.Fatalf("expected ViolationError, got %T", err)
	}
	if v.Rule != rule {
		t.Fatalf("rule %q, want %q", v.Rule, rule)
	}
}
