package domain

import (
	"fmt"
	"time"

	"reverse-logistics/internal/core/apperror"
)

// Type is the canonical NDR type that selects a workflow.
type Type string

const (
	TypeCustomerUnavailable Type = "customer_unavailable"
	TypeAddressIssue        Type = "address_issue"
	TypeRefused             Type = "refused"
	TypePaymentIssue        Type = "payment_issue"
	TypeRescheduleRequested Type = "reschedule_requested"
	TypeOther               Type = "other"
)

// Types lists every canonical type.
var Types = []Type{
	TypeCustomerUnavailable,
	TypeAddressIssue,
	TypeRefused,
	TypePaymentIssue,
	TypeRescheduleRequested,
	TypeOther,
}

// Valid reports whether t is a canonical type.
func (t Type) Valid() bool {
	for _, v := range Types {
		if v == t {
			return true
		}
	}
	return false
}

// ActionType is a step the resolver can take.
type ActionType string

const (
	ActionNotifyCustomer       ActionType = "notify_customer"
	ActionRequestAddressUpdate ActionType = "request_address_update"
	ActionRequestReattempt     ActionType = "request_reattempt"
	ActionSellerReview         ActionType = "seller_review"
)

// Valid reports whether a is a known action.
func (a ActionType) Valid() bool {
	switch a {
	case ActionNotifyCustomer, ActionRequestAddressUpdate, ActionRequestReattempt, ActionSellerReview:
		return true
	}
	return false
}

// ActionStatus tracks one workflow step.
type ActionStatus string

const (
	ActionPending ActionStatus = "pending"
	// ActionInProgress marks a step claimed by a worker. A crash leaves it
	// here rather than firing the side effect twice.
	ActionInProgress ActionStatus = "in_progress"
	ActionExecuted   ActionStatus = "executed"
	ActionFailed     ActionStatus = "failed"
	ActionSkipped    ActionStatus = "skipped"
)

// MaxActionAttempts is how often an automatic step is retried.
const MaxActionAttempts = 3

// Action is a scheduled workflow step on an event.
type Action struct {
	Sequence    int          `json:"sequence"`
	Type        ActionType   `json:"type"`
	AutoExecute bool         `json:"auto_execute"`
	Channel     string       `json:"channel,omitempty"`
	Template    string       `json:"template,omitempty"`
	DueAt       time.Time    `json:"due_at"`
	Status      ActionStatus `json:"status"`
	Attempts    int          `json:"attempts"`
	LastError   string       `json:"last_error,omitempty"`
	ExecutedAt  *time.Time   `json:"executed_at,omitempty"`
	Actor       string       `json:"actor,omitempty"`
}

// Step is one configured workflow action.
type Step struct {
	Action      ActionType `json:"action"`
	DelayHours  int        `json:"delay_hours"`
	AutoExecute bool       `json:"auto_execute"`
	Channel     string     `json:"channel,omitempty"`
	Template    string     `json:"template,omitempty"`
}

// Workflow is the resolution playbook for an NDR type.
type Workflow struct {
	Type               Type   `json:"type"`
	MaxResolutionHours int    `json:"max_resolution_hours"`
	Steps              []Step `json:"steps"`
}

// MaxWorkflowHours caps a configured resolution window at 30 days.
const MaxWorkflowHours = 720

// Validate checks a workflow definition before it is stored.
func (w Workflow) Validate() error {
	fields := map[string]string{}
	if !w.Type.Valid() {
		fields["type"] = "unknown NDR type"
	}
	if w.MaxResolutionHours <= 0 || w.MaxResolutionHours > MaxWorkflowHours {
		fields["max_resolution_hours"] = fmt.Sprintf("must be between 1 and %d", MaxWorkflowHours)
	}
	if len(w.Steps) == 0 {
		fields["steps"] = "at least one step is required"
	}
	for i, s := range w.Steps {
		if !s.Action.Valid() {
			fields[fmt.Sprintf("steps[%d].action", i)] = "unknown action"
		}
		if s.DelayHours < 0 || (w.MaxResolutionHours > 0 && s.DelayHours >= w.MaxResolutionHours) {
			fields[fmt.Sprintf("steps[%d].delay_hours", i)] = "must fall inside the resolution window"
		}
	}
	if len(fields) > 0 {
		return apperror.Validation("invalid workflow definition", fields)
	}
	return nil
}

// BuildActions schedules the steps relative to start. Sequence numbers
// continue after offset.
func (w Workflow) BuildActions(start time.Time, offset int) []Action {
	out := make([]Action, 0, len(w.Steps))
	for i, s := range w.Steps {
		out = append(out, Action{
			Sequence:    offset + i + 1,
			Type:        s.Action,
			AutoExecute: s.AutoExecute,
			Channel:     s.Channel,
			Template:    s.Template,
			DueAt:       start.Add(time.Duration(s.DelayHours) * time.Hour),
			Status:      ActionPending,
		})
	}
	return out
}

// DefaultWorkflows are used for any type without a stored definition.
// Unclassified reasons get the longest window before an automatic RTO.
func DefaultWorkflows() map[Type]Workflow {
	return map[Type]Workflow{
		TypeCustomerUnavailable: {
			Type:               TypeCustomerUnavailable,
			MaxResolutionHours: 72,
			Steps: []Step{
				{Action: ActionNotifyCustomer, AutoExecute: true, Channel: "whatsapp", Template: "ndr_customer_unavailable"},
				{Action: ActionRequestReattempt, DelayHours: 24, AutoExecute: true},
				{Action: ActionNotifyCustomer, DelayHours: 48, AutoExecute: true, Channel: "sms", Template: "ndr_final_attempt"},
			},
		},
		TypeAddressIssue: {
			Type:               TypeAddressIssue,
			MaxResolutionHours: 48,
			Steps: []Step{
				{Action: ActionRequestAddressUpdate, AutoExecute: true, Channel: "whatsapp", Template: "ndr_address_update"},
				{Action: ActionRequestReattempt, AutoExecute: false},
			},
		},
		TypeRefused: {
			Type:               TypeRefused,
			MaxResolutionHours: 24,
			Steps: []Step{
				{Action: ActionNotifyCustomer, AutoExecute: true, Channel: "whatsapp", Template: "ndr_refused_confirm"},
				{Action: ActionSellerReview, AutoExecute: false},
			},
		},
		TypePaymentIssue: {
			Type:               TypePaymentIssue,
			MaxResolutionHours: 48,
			Steps: []Step{
				{Action: ActionNotifyCustomer, AutoExecute: true, Channel: "whatsapp", Template: "ndr_payment_pending"},
				{Action: ActionRequestReattempt, DelayHours: 24, AutoExecute: true},
			},
		},
		TypeRescheduleRequested: {
			Type:               TypeRescheduleRequested,
			MaxResolutionHours: 96,
			Steps: []Step{
				{Action: ActionNotifyCustomer, AutoExecute: true, Channel: "sms", Template: "ndr_reschedule_confirm"},
				{Action: ActionRequestReattempt, AutoExecute: false},
			},
		},
		TypeOther: {
			Type:               TypeOther,
			MaxResolutionHours: 96,
			Steps: []Step{
				{Action: ActionNotifyCustomer, AutoExecute: true, Channel: "email", Template: "ndr_generic"},
				{Action: ActionSellerReview, AutoExecute: false},
			},
		},
	}
}
