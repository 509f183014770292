// Package rules implements declarative filter rules: a persisted, ordered
// rule set evaluated against mailbox messages to produce batched actions.
package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmeyer/bridgemail/internal/models"
)

// Field names a message attribute a condition matches against.
type Field string

const (
	FieldFrom            Field = "from"
	FieldTo              Field = "to"
	FieldSubjectContains Field = "subject_contains"
	FieldSubjectEquals   Field = "subject_equals"
	FieldBodyContains    Field = "body_contains"
	FieldSenderDomain    Field = "sender_domain"
)

// ActionType names one of the fixed, closed set of rule actions.
type ActionType string

const (
	ActionMoveToFolder    ActionType = "move_to_folder"
	ActionMarkAsRead      ActionType = "mark_as_read"
	ActionMarkAsImportant ActionType = "mark_as_important"
	ActionDelete          ActionType = "delete"
)

// Condition is one clause of a rule. All of a rule's clauses must match
// (AND semantics).
type Condition struct {
	Field Field  `json:"field"`
	Value string `json:"value"`
}

// Action is one effect applied to every message a rule matches.
type Action struct {
	Type   ActionType `json:"type"`
	Target string     `json:"target,omitempty"`
}

// Rule is one persisted filter rule. IDs are immutable after creation and
// names are unique (case-sensitive) across the active rule set.
type Rule struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Enabled      bool        `json:"enabled"`
	Conditions   []Condition `json:"conditions"`
	Actions      []Action    `json:"actions"`
	TimesApplied int         `json:"times_applied"`
	LastApplied  *time.Time  `json:"last_applied,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// ValidationError reports a malformed rule, naming the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid rule: %s: %s", e.Field, e.Reason)
}

var validFields = map[Field]bool{
	FieldFrom:            true,
	FieldTo:              true,
	FieldSubjectContains: true,
	FieldSubjectEquals:   true,
	FieldBodyContains:    true,
	FieldSenderDomain:    true,
}

var validActions = map[ActionType]bool{
	ActionMoveToFolder:    true,
	ActionMarkAsRead:      true,
	ActionMarkAsImportant: true,
	ActionDelete:          true,
}

// Validate checks the structural validity of a rule: recognized condition
// fields, recognized actions, move targets present, non-empty name.
func (r *Rule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if len(r.Conditions) == 0 {
		return &ValidationError{Field: "conditions", Reason: "at least one condition is required"}
	}
	if len(r.Actions) == 0 {
		return &ValidationError{Field: "actions", Reason: "at least one action is required"}
	}
	for _, c := range r.Conditions {
		if !validFields[c.Field] {
			return &ValidationError{Field: string(c.Field), Reason: "unrecognized condition field"}
		}
		if c.Value == "" {
			return &ValidationError{Field: string(c.Field), Reason: "condition value must not be empty"}
		}
	}
	for _, a := range r.Actions {
		if !validActions[a.Type] {
			return &ValidationError{Field: string(a.Type), Reason: "unrecognized action"}
		}
		if a.Type == ActionMoveToFolder && strings.TrimSpace(a.Target) == "" {
			return &ValidationError{Field: string(ActionMoveToFolder), Reason: "target folder is required"}
		}
	}
	return nil
}

// Matches reports whether every condition clause of the rule matches the
// message. Substring matches are case-insensitive; subject_equals is an
// exact case-insensitive comparison; sender_domain compares the domain
// portion of the sender address.
func (r *Rule) Matches(email *models.Email) bool {
	for _, c := range r.Conditions {
		if !matchCondition(c, email) {
			return false
		}
	}
	return true
}

func matchCondition(c Condition, email *models.Email) bool {
	value := strings.ToLower(c.Value)
	switch c.Field {
	case FieldFrom:
		return strings.Contains(strings.ToLower(email.FromAddress), value)
	case FieldTo:
		for _, to := range email.ToAddresses {
			if strings.Contains(strings.ToLower(to), value) {
				return true
			}
		}
		return false
	case FieldSubjectContains:
		return strings.Contains(strings.ToLower(email.Subject), value)
	case FieldSubjectEquals:
		return strings.EqualFold(email.Subject, c.Value)
	case FieldBodyContains:
		if strings.Contains(strings.ToLower(email.BodyText), value) {
			return true
		}
		return strings.Contains(strings.ToLower(email.UnsafeBodyHTML), value)
	case FieldSenderDomain:
		return email.SenderDomain() == strings.TrimPrefix(value, "@")
	}
	return false
}
