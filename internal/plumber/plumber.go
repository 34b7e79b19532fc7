// Package plumber decides which drains a notification should be poured into.
// Given a recipient's ordered preference rules and an event, it produces the
// routing decision the dispatcher fans out on.
package plumber

import (
	"slices"

	"bullhorn/internal/event"
	"bullhorn/internal/logger"
	"bullhorn/internal/profile"
)

// Target is one selected delivery destination.
type Target struct {
	Type event.Channel
	Addr string
}

type Resolver struct {
	logger logger.Logger
}

func NewResolver(log logger.Logger) *Resolver {
	return &Resolver{logger: log}
}

// Resolve evaluates rules in stored order and returns the ordered list of
// targets for ev. A rule is eligible when ev.Domain is among its domain tags.
// Evaluation stops after including an exclusive rule, or after including a
// non-exclusive rule whose immediate successor is exclusive. Duplicate
// channel+address pairs keep the first occurrence. An empty result means the
// event is undeliverable for this recipient; that is a routing outcome, not
// an error.
//
// Resolve is pure: it has no side effects beyond warning about malformed
// rules, and a malformed rule never blocks evaluation of the rest.
func (r *Resolver) Resolve(p *profile.Profile, ev event.Notification) []Target {
	var targets []Target
	seen := make(map[Target]struct{})

	rules := p.Drains
	for i := 0; i < len(rules); i++ {
		rule := rules[i]

		if rule.Type == "" || len(rule.For) == 0 {
			r.logger.Warnw("Skipping malformed routing rule",
				"profile_id", p.ID,
				"rule_index", i,
			)
			continue
		}
		if !rule.Type.Valid() {
			r.logger.Warnw("Skipping rule with unknown drain type",
				"profile_id", p.ID,
				"rule_index", i,
				"type", string(rule.Type),
			)
			continue
		}

		if !slices.Contains(rule.For, ev.Domain) {
			continue
		}

		target := Target{Type: rule.Type, Addr: rule.Addr}
		if _, dup := seen[target]; !dup {
			seen[target] = struct{}{}
			targets = append(targets, target)
		}

		if rule.Exclusive {
			break
		}
		// An exclusive rule also terminates the chain built so far when it
		// directly follows an included rule. The bounds check matters: the
		// last rule has no successor.
		if i+1 < len(rules) && rules[i+1].Exclusive {
			break
		}
	}

	return targets
}
