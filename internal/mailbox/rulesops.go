package mailbox

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dmeyer/bridgemail/internal/batch"
	"github.com/dmeyer/bridgemail/internal/imap"
	"github.com/dmeyer/bridgemail/internal/models"
	"github.com/dmeyer/bridgemail/internal/rules"
)

const defaultRuleRunLimit = 100

// ApplyResult reports one filter-rule run over a mailbox.
type ApplyResult struct {
	Mailbox       string                  `json:"mailbox"`
	Evaluated     int                     `json:"evaluated"`
	Matched       int                     `json:"matched"`
	MarkedRead    *batch.Result           `json:"marked_read,omitempty"`
	MarkedFlagged *batch.Result           `json:"marked_important,omitempty"`
	Moved         map[string]batch.Result `json:"moved,omitempty"`
	Deleted       *batch.Result           `json:"deleted,omitempty"`
	RuleHits      map[string]int          `json:"rule_hits,omitempty"`
}

// ApplyFilterRules evaluates the persisted rule set against a mailbox with
// default limits.
func (s *Service) ApplyFilterRules(ctx context.Context, mailbox string) (*ApplyResult, error) {
	return s.ApplyFilterRulesOptimized(ctx, mailbox, defaultRuleRunLimit, 0)
}

// ApplyFilterRulesOptimized evaluates the persisted rule set against up to
// limit messages of a mailbox, executing matched actions in chunks of
// chunkSize (0 keeps the executor default). Actions run marks first, then
// moves, then deletes, so flag updates always address still-valid UIDs.
func (s *Service) ApplyFilterRulesOptimized(ctx context.Context, mailbox string, limit, chunkSize int) (*ApplyResult, error) {
	if s.engine == nil {
		return nil, fmt.Errorf("filter rules are not configured")
	}
	mailbox = s.resolveMailbox(mailbox)
	if limit <= 0 {
		limit = defaultRuleRunLimit
	}

	ruleSet, err := s.engine.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}

	result := &ApplyResult{Mailbox: mailbox}
	if !anyEnabled(ruleSet) {
		return result, nil
	}

	executor := s.executor
	if chunkSize > 0 {
		scoped := *s.executor
		scoped.ChunkSize = chunkSize
		executor = &scoped
	}

	var plan *rules.Plan
	err = s.sessions.With(mailbox, func(c imap.Client) error {
		uids, searchErr := imap.SearchUIDs(c, imap.BuildSearchCriteria("", time.Time{}), limit)
		if searchErr != nil {
			return searchErr
		}

		messages, fetchErr := executor.Fetch(c, uids, true)
		if fetchErr != nil {
			return fetchErr
		}
		emails := make([]*models.Email, 0, len(messages))
		for _, msg := range messages {
			email, parseErr := imap.ParseMessage(msg, mailbox)
			if parseErr != nil {
				continue
			}
			emails = append(emails, email)
		}

		plan = rules.BuildPlan(ruleSet, emails, rules.DefaultPlanOptions())
		result.Evaluated = plan.Evaluated
		result.Matched = plan.Matched
		result.RuleHits = plan.RuleHits
		if plan.Empty() {
			return nil
		}

		if len(plan.MarkRead) > 0 {
			r, runErr := executor.Run(c, batch.MarkRead(), plan.MarkRead)
			if runErr != nil {
				return runErr
			}
			result.MarkedRead = &r
		}
		if len(plan.MarkImportant) > 0 {
			r, runErr := executor.Run(c, batch.MarkImportant(), plan.MarkImportant)
			if runErr != nil {
				return runErr
			}
			result.MarkedFlagged = &r
		}
		if len(plan.Moves) > 0 {
			result.Moved = make(map[string]batch.Result, len(plan.Moves))
			for target, moveUIDs := range plan.Moves {
				r, runErr := executor.Run(c, batch.Move(target), moveUIDs)
				if runErr != nil {
					return runErr
				}
				result.Moved[target] = r
			}
		}
		if len(plan.Delete) > 0 {
			r, runErr := executor.Run(c, batch.Delete(false), plan.Delete)
			if runErr != nil {
				return runErr
			}
			result.Deleted = &r
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if plan != nil && len(plan.RuleHits) > 0 {
		if recordErr := s.engine.RecordApplied(ctx, plan.RuleHits); recordErr != nil {
			log.Printf("Warning: failed to record rule statistics: %v", recordErr)
		}
	}

	return result, nil
}

func anyEnabled(ruleSet []rules.Rule) bool {
	for _, r := range ruleSet {
		if r.Enabled {
			return true
		}
	}
	return false
}
