package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Engine manages the persisted rule set: CRUD with validation, pure
// evaluation planning, and usage-statistic updates. The mailbox façade
// orchestrates fetching and batch execution around it.
type Engine struct {
	repo Repository
	now  func() time.Time
}

// NewEngine creates a rule engine over the given repository.
func NewEngine(repo Repository) *Engine {
	return &Engine{repo: repo, now: time.Now}
}

// List returns the full rule set in stored order.
func (e *Engine) List(ctx context.Context) ([]Rule, error) {
	return e.repo.LoadAll(ctx)
}

// Get returns the rule with the given id.
func (e *Engine) Get(ctx context.Context, id string) (Rule, error) {
	rules, err := e.repo.LoadAll(ctx)
	if err != nil {
		return Rule{}, err
	}
	for _, r := range rules {
		if r.ID == id {
			return r, nil
		}
	}
	return Rule{}, fmt.Errorf("rule %s not found", id)
}

// Create validates and appends a new rule. The name must be unique
// (case-sensitive) among current rules.
func (e *Engine) Create(ctx context.Context, name string, conditions []Condition, actions []Action, enabled bool) (Rule, error) {
	rule := Rule{
		ID:         uuid.New().String(),
		Name:       name,
		Enabled:    enabled,
		Conditions: conditions,
		Actions:    actions,
		CreatedAt:  e.now().UTC(),
	}
	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}

	rules, err := e.repo.LoadAll(ctx)
	if err != nil {
		return Rule{}, err
	}
	for _, existing := range rules {
		if existing.Name == name {
			return Rule{}, &ValidationError{Field: "name", Reason: fmt.Sprintf("a rule named %q already exists", name)}
		}
	}

	rules = append(rules, rule)
	if err := e.repo.SaveAll(ctx, rules); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

// Update is a partial rule update; nil fields keep their current value.
// The rule id is immutable.
type Update struct {
	Name       *string
	Enabled    *bool
	Conditions *[]Condition
	Actions    *[]Action
}

// Update applies a partial update to the rule with the given id.
func (e *Engine) Update(ctx context.Context, id string, update Update) (Rule, error) {
	rules, err := e.repo.LoadAll(ctx)
	if err != nil {
		return Rule{}, err
	}

	index := -1
	for i, r := range rules {
		if r.ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		return Rule{}, fmt.Errorf("rule %s not found", id)
	}

	updated := rules[index]
	if update.Name != nil {
		for i, other := range rules {
			if i != index && other.Name == *update.Name {
				return Rule{}, &ValidationError{Field: "name", Reason: fmt.Sprintf("a rule named %q already exists", *update.Name)}
			}
		}
		updated.Name = *update.Name
	}
	if update.Enabled != nil {
		updated.Enabled = *update.Enabled
	}
	if update.Conditions != nil {
		updated.Conditions = *update.Conditions
	}
	if update.Actions != nil {
		updated.Actions = *update.Actions
	}

	if err := updated.Validate(); err != nil {
		return Rule{}, err
	}

	rules[index] = updated
	if err := e.repo.SaveAll(ctx, rules); err != nil {
		return Rule{}, err
	}
	return updated, nil
}

// Delete removes the rule with the given id.
func (e *Engine) Delete(ctx context.Context, id string) error {
	rules, err := e.repo.LoadAll(ctx)
	if err != nil {
		return err
	}

	remaining := make([]Rule, 0, len(rules))
	found := false
	for _, r := range rules {
		if r.ID == id {
			found = true
			continue
		}
		remaining = append(remaining, r)
	}
	if !found {
		return fmt.Errorf("rule %s not found", id)
	}

	return e.repo.SaveAll(ctx, remaining)
}

// RecordApplied increments times_applied for every rule in hits (keyed by
// rule id, valued by matched-message count), stamps last_applied, and
// persists the full set atomically.
func (e *Engine) RecordApplied(ctx context.Context, hits map[string]int) error {
	if len(hits) == 0 {
		return nil
	}

	rules, err := e.repo.LoadAll(ctx)
	if err != nil {
		return err
	}

	now := e.now().UTC()
	for i := range rules {
		count, ok := hits[rules[i].ID]
		if !ok || count == 0 {
			continue
		}
		rules[i].TimesApplied += count
		rules[i].LastApplied = &now
	}

	return e.repo.SaveAll(ctx, rules)
}
