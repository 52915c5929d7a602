// Package rules persists the business rules learned by the agent. Rules are
// proposed as pending and become active only through an explicit approval.
package rules

import (
	"context"
	"errors"
	"time"
)

// Status of a business rule.
type Status string

const (
	StatusPending Status = "pending_approval"
	StatusActive  Status = "active"
)

const (
	keyMapping  = "mapping_rules"
	keyProposed = "proposed_rules"

	// DefaultCategory is the collection an approved rule lands in.
	DefaultCategory = keyMapping
)

// ErrRuleNotFound is returned by Approve for an id that is not pending.
var ErrRuleNotFound = errors.New("rule not found")

// Rule is one business rule.
type Rule struct {
	ID          string     `json:"id"`
	Condition   string     `json:"condition"`
	Description string     `json:"description"`
	Category    string     `json:"category,omitempty"`
	Status      Status     `json:"status,omitempty"`
	ProposedAt  *time.Time `json:"proposed_at,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
}

// Document is the full rule set.
type Document struct {
	MappingRules  []Rule `json:"mapping_rules"`
	ProposedRules []Rule `json:"proposed_rules"`
}

// Outcome of a proposal.
type Outcome int

const (
	// Proposed means a new pending rule was stored.
	Proposed Outcome = iota
	// AlreadyPending means a rule with the id is waiting for approval.
	AlreadyPending
	// AlreadyActive means a rule with the id was approved before.
	AlreadyActive
)

// Store is the rule store boundary. Propose is idempotent by id.
type Store interface {
	Propose(ctx context.Context, r Rule) (Outcome, error)
	Approve(ctx context.Context, id string) (Rule, error)
	List(ctx context.Context) (Document, error)
	Active(ctx context.Context) ([]Rule, error)
}

func findRule(list []Rule, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func pending(r Rule, now time.Time) Rule {
	r.Status = StatusPending
	if r.Category == "" {
		r.Category = DefaultCategory
	}
	r.ProposedAt = &now
	r.ApprovedAt = nil
	return r
}

func activated(r Rule, now time.Time) Rule {
	r.Status = StatusActive
	r.ApprovedAt = &now
	return r
}
