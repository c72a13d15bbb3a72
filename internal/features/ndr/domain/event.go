package domain

import (
	"sort"
	"time"

	"reverse-logistics/internal/core/apperror"
)

// Status is the NDR lifecycle state.
type Status string

const (
	StatusDetected     Status = "detected"
	StatusClassifying  Status = "classifying"
	StatusInResolution Status = "in_resolution"
	StatusResolved     Status = "resolved"
	StatusEscalated    Status = "escalated"
)

// transitions lists every allowed move. escalated is reachable from any
// unresolved state so a manual RTO can supersede an event early, and a
// confirmed delivery closes an event before it is classified. An escalated
// event can still resolve until an RTO is linked to it.
var transitions = map[Status][]Status{
	StatusDetected:     {StatusClassifying, StatusResolved, StatusEscalated},
	StatusClassifying:  {StatusInResolution, StatusResolved, StatusEscalated},
	StatusInResolution: {StatusResolved, StatusEscalated},
	StatusEscalated:    {StatusResolved},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

var (
	ErrNDRNotFound = apperror.NotFound("NDR_NOT_FOUND", "NDR event not found")
	// ErrNotInResolution is returned for inputs on events that are not being resolved.
	ErrNotInResolution = apperror.Conflict("NDR_NOT_IN_RESOLUTION", "NDR event is not awaiting resolution")
	// ErrNotFailedDelivery is returned when an update does not describe a failed attempt.
	ErrNotFailedDelivery = apperror.New(apperror.KindValidation, apperror.CodeValidation, "tracking update is not a failed delivery")
)

// Attempt is one failed delivery attempt reported by the courier.
type Attempt struct {
	Number     int       `json:"number"`
	Code       string    `json:"code,omitempty"`
	Remark     string    `json:"remark,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// TimelineEntry is one append-only action log record.
type TimelineEntry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Notes     string    `json:"notes,omitempty"`
}

// Event is a non-delivery report for a shipment.
type Event struct {
	ID                 string          `json:"id"`
	ShipmentID         string          `json:"shipment_id"`
	OrderID            string          `json:"order_id"`
	CompanyID          string          `json:"company_id"`
	Courier            string          `json:"courier,omitempty"`
	CustomerContact    string          `json:"customer_contact,omitempty"`
	ReasonCode         string          `json:"reason_code,omitempty"`
	Reason             string          `json:"reason"`
	Type               *Type           `json:"ndr_type"`
	Status             Status          `json:"status"`
	ClassifiedAt       *time.Time      `json:"classified_at,omitempty"`
	ResolutionDeadline *time.Time      `json:"resolution_deadline,omitempty"`
	AttemptCount       int             `json:"attempt_count"`
	Attempts           []Attempt       `json:"attempts"`
	Actions            []Action        `json:"actions"`
	Timeline           []TimelineEntry `json:"timeline"`
	NextActionAt       *time.Time      `json:"next_action_at,omitempty"`
	RTOEventID         string          `json:"rto_event_id,omitempty"`
	ResolvedAt         *time.Time      `json:"resolved_at,omitempty"`
	EscalatedAt        *time.Time      `json:"escalated_at,omitempty"`
	Version            int             `json:"version"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// NewEvent builds a detected event from the first failed attempt.
func NewEvent(id string, u TrackingUpdate, now time.Time) *Event {
	e := &Event{
		ID:              id,
		ShipmentID:      u.ShipmentID,
		OrderID:         u.OrderID,
		CompanyID:       u.CompanyID,
		Courier:         u.Courier,
		CustomerContact: u.CustomerContact,
		ReasonCode:      u.Code,
		Reason:          u.Remark,
		Status:          StatusDetected,
		AttemptCount:    1,
		Attempts: []Attempt{{
			Number:     1,
			Code:       u.Code,
			Remark:     u.Remark,
			OccurredAt: u.OccurredAt,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	e.Log("courier", "ndr_detected", u.Remark, now)
	return e
}

// IsOpen reports whether the event still blocks a new NDR for the shipment.
// It closes on resolution or once an RTO supersedes it.
func (e *Event) IsOpen() bool {
	return e.Status != StatusResolved && e.RTOEventID == ""
}

// Transition moves the event and logs the move.
func (e *Event) Transition(to Status, actor, action, notes string, now time.Time) error {
	if !CanTransition(e.Status, to) || (e.Status == StatusEscalated && e.RTOEventID != "") {
		return apperror.InvalidTransition(string(e.Status), string(to))
	}
	e.Status = to
	switch to {
	case StatusInResolution:
		e.RefreshNextAction()
	case StatusResolved:
		e.ResolvedAt = &now
		e.NextActionAt = nil
		e.skipPending()
	case StatusEscalated:
		e.EscalatedAt = &now
		e.NextActionAt = nil
		e.skipPending()
	}
	e.Log(actor, action, notes, now)
	return nil
}

// Log appends an action log entry at the current status.
func (e *Event) Log(actor, action, notes string, now time.Time) {
	e.Timeline = append(e.Timeline, TimelineEntry{
		Status:    e.Status,
		Timestamp: now,
		Actor:     actor,
		Action:    action,
		Notes:     notes,
	})
}

// HasAttempt reports whether the attempt (time and code) is already recorded.
func (e *Event) HasAttempt(code string, occurredAt time.Time) bool {
	for _, a := range e.Attempts {
		if a.OccurredAt.Equal(occurredAt) && a.Code == code {
			return true
		}
	}
	return false
}

// AppendAttempt records a failed attempt. It returns false when the same
// attempt was already recorded.
func (e *Event) AppendAttempt(code, remark string, occurredAt time.Time, now time.Time) bool {
	if e.HasAttempt(code, occurredAt) {
		return false
	}
	e.AttemptCount++
	e.Attempts = append(e.Attempts, Attempt{
		Number:     e.AttemptCount,
		Code:       code,
		Remark:     remark,
		OccurredAt: occurredAt,
	})
	if remark != "" {
		e.Reason = remark
	}
	if code != "" {
		e.ReasonCode = code
	}
	e.Log("courier", "attempt_recorded", remark, now)
	return true
}

// Overdue reports whether the resolution deadline has passed unresolved.
func (e *Event) Overdue(now time.Time) bool {
	return e.Status == StatusInResolution && e.ResolutionDeadline != nil && now.After(*e.ResolutionDeadline)
}

// ApplyClassification sets the type and deadline and (re)builds the pending
// actions. Already executed actions are kept. It returns false when nothing
// changed.
func (e *Event) ApplyClassification(t Type, wf Workflow, actor string, now time.Time) bool {
	if e.Type != nil && *e.Type == t && e.ClassifiedAt != nil {
		return false
	}

	if e.ClassifiedAt == nil {
		e.ClassifiedAt = &now
	}
	prev := e.Type
	typ := t
	e.Type = &typ

	deadline := e.ClassifiedAt.Add(time.Duration(wf.MaxResolutionHours) * time.Hour)
	e.ResolutionDeadline = &deadline

	kept := make([]Action, 0, len(e.Actions))
	for _, a := range e.Actions {
		if a.Status != ActionPending {
			kept = append(kept, a)
		}
	}
	e.Actions = append(kept, wf.BuildActions(*e.ClassifiedAt, len(kept))...)
	e.RefreshNextAction()

	if prev != nil {
		e.Log(actor, "reclassified", string(*prev)+" -> "+string(t), now)
	}
	return true
}

// NextPending returns the index of the first pending action in sequence
// order, or -1.
func (e *Event) NextPending() int {
	idx := -1
	for i, a := range e.Actions {
		if a.Status != ActionPending {
			continue
		}
		if idx == -1 || a.Sequence < e.Actions[idx].Sequence {
			idx = i
		}
	}
	return idx
}

// RefreshNextAction recomputes when the sweep should next look at the event.
// A pending manual action blocks the sequence until external input arrives.
func (e *Event) RefreshNextAction() {
	e.NextActionAt = nil
	if e.Status != StatusInResolution {
		return
	}
	i := e.NextPending()
	if i == -1 || !e.Actions[i].AutoExecute {
		return
	}
	due := e.Actions[i].DueAt
	e.NextActionAt = &due
}

// SortedActions returns the actions ordered by sequence.
func (e *Event) SortedActions() []Action {
	out := append([]Action{}, e.Actions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

// ActionIndex returns the index of the action with sequence seq, or -1.
func (e *Event) ActionIndex(seq int) int {
	for i, a := range e.Actions {
		if a.Sequence == seq {
			return i
		}
	}
	return -1
}

// FindPending returns the index of the first pending action of type t, or -1.
func (e *Event) FindPending(t ActionType) int {
	idx := -1
	for i, a := range e.Actions {
		if a.Type != t || a.Status != ActionPending {
			continue
		}
		if idx == -1 || a.Sequence < e.Actions[idx].Sequence {
			idx = i
		}
	}
	return idx
}

// AddAction appends an unscheduled manual action due now and returns its index.
func (e *Event) AddAction(t ActionType, now time.Time) int {
	seq := 0
	for _, a := range e.Actions {
		if a.Sequence > seq {
			seq = a.Sequence
		}
	}
	e.Actions = append(e.Actions, Action{
		Sequence: seq + 1,
		Type:     t,
		DueAt:    now,
		Status:   ActionPending,
	})
	return len(e.Actions) - 1
}

// CompleteAction marks the action at i executed by actor.
func (e *Event) CompleteAction(i int, actor string, now time.Time) {
	e.Actions[i].Status = ActionExecuted
	e.Actions[i].ExecutedAt = &now
	e.Actions[i].Actor = actor
	e.Actions[i].LastError = ""
}

func (e *Event) skipPending() {
	for i := range e.Actions {
		if e.Actions[i].Status == ActionPending {
			e.Actions[i].Status = ActionSkipped
		}
	}
}
