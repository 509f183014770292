package rules

import "github.com/dmeyer/bridgemail/internal/models"

// PlanOptions tunes evaluation policy.
type PlanOptions struct {
	// DeletePrecedence makes a matched delete action short-circuit all
	// remaining actions and rules for that message. On by default.
	DeletePrecedence bool
}

// DefaultPlanOptions returns the standard evaluation policy.
func DefaultPlanOptions() PlanOptions {
	return PlanOptions{DeletePrecedence: true}
}

// Plan is the batched realization of a rule evaluation: one entry per
// distinct action-target across the whole evaluated message set, so the
// executor issues at most one bulk call per target.
//
// Execution order matters: marks first (UIDs must still be valid), then
// moves, then deletes.
type Plan struct {
	MarkRead      []uint32
	MarkImportant []uint32
	Moves         map[string][]uint32
	Delete        []uint32

	// RuleHits counts matched messages per rule id for statistics updates.
	RuleHits map[string]int
	// Evaluated is the number of messages examined.
	Evaluated int
	// Matched is the number of messages matched by at least one rule.
	Matched int
}

// Empty reports whether the plan contains no actions.
func (p *Plan) Empty() bool {
	return len(p.MarkRead) == 0 && len(p.MarkImportant) == 0 && len(p.Moves) == 0 && len(p.Delete) == 0
}

// BuildPlan evaluates every enabled rule, in stored order, against every
// message. Clauses within a rule AND together. A message may accumulate
// actions from multiple rules; queued actions are grouped by target rather
// than executed per message. Earlier rules' actions are never undone by
// later ones; with DeletePrecedence a matched delete stops further action
// accumulation for that message.
func BuildPlan(ruleSet []Rule, emails []*models.Email, opts PlanOptions) *Plan {
	plan := &Plan{
		Moves:     make(map[string][]uint32),
		RuleHits:  make(map[string]int),
		Evaluated: len(emails),
	}

	for _, email := range emails {
		matched := false
		deleted := false

		for _, rule := range ruleSet {
			if deleted || !rule.Enabled {
				continue
			}
			if !rule.Matches(email) {
				continue
			}
			matched = true
			plan.RuleHits[rule.ID]++

			for _, action := range rule.Actions {
				switch action.Type {
				case ActionMarkAsRead:
					plan.MarkRead = appendUnique(plan.MarkRead, email.UID)
				case ActionMarkAsImportant:
					plan.MarkImportant = appendUnique(plan.MarkImportant, email.UID)
				case ActionMoveToFolder:
					plan.Moves[action.Target] = appendUnique(plan.Moves[action.Target], email.UID)
				case ActionDelete:
					plan.Delete = appendUnique(plan.Delete, email.UID)
					if opts.DeletePrecedence {
						deleted = true
					}
				}
				if deleted {
					break
				}
			}
		}

		if deleted {
			// Move and delete are mutually exclusive: delete wins even when
			// an earlier rule queued a move for this message.
			for target, uids := range plan.Moves {
				plan.Moves[target] = removeUID(uids, email.UID)
				if len(plan.Moves[target]) == 0 {
					delete(plan.Moves, target)
				}
			}
		}

		if matched {
			plan.Matched++
		}
	}

	return plan
}

func removeUID(uids []uint32, uid uint32) []uint32 {
	out := uids[:0]
	for _, existing := range uids {
		if existing != uid {
			out = append(out, existing)
		}
	}
	return out
}

func appendUnique(uids []uint32, uid uint32) []uint32 {
	for _, existing := range uids {
		if existing == uid {
			return uids
		}
	}
	return append(uids, uid)
}
