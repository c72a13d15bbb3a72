package domain

import (
	"testing"
	"time"

	"reverse-logistics/internal/core/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusDetected, StatusClassifying))
	assert.True(t, CanTransition(StatusClassifying, StatusInResolution))
	assert.True(t, CanTransition(StatusInResolution, StatusResolved))
	assert.True(t, CanTransition(StatusInResolution, StatusEscalated))
	assert.True(t, CanTransition(StatusDetected, StatusEscalated))

	assert.True(t, CanTransition(StatusDetected, StatusResolved))
	assert.False(t, CanTransition(StatusDetected, StatusInResolution))
	assert.False(t, CanTransition(StatusResolved, StatusEscalated))
	assert.False(t, CanTransition(StatusEscalated, StatusInResolution))
	assert.True(t, CanTransition(StatusEscalated, StatusResolved))
}

func TestEvent_EscalatedResolvesOnlyWithoutRTO(t *testing.T) {
	e := &Event{Status: StatusEscalated}
	require.NoError(t, e.Transition(StatusResolved, "courier", "delivered", "", t0))
	assert.Equal(t, StatusResolved, e.Status)

	linked := &Event{Status: StatusEscalated, RTOEventID: "rto-1"}
	err := linked.Transition(StatusResolved, "courier", "delivered", "", t0)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	assert.Equal(t, StatusEscalated, linked.Status)
	assert.Empty(t, linked.Timeline)
}

func TestEvent_TransitionRejectedBeforeWrite(t *testing.T) {
	e := &Event{Status: StatusDetected}

	err := e.Transition(StatusInResolution, "ops", "resolve", "", t0)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	assert.Equal(t, StatusDetected, e.Status)
	assert.Empty(t, e.Timeline)
}

func TestEvent_AppendAttempt(t *testing.T) {
	e := &Event{Status: StatusDetected}

	assert.True(t, e.AppendAttempt("CNA", "customer not available", t0, t0))
	assert.False(t, e.AppendAttempt("CNA", "customer not available", t0, t0), "same attempt is ignored")
	assert.True(t, e.AppendAttempt("CNA", "door locked", t0.Add(24*time.Hour), t0.Add(24*time.Hour)))

	assert.Equal(t, 2, e.AttemptCount)
	require.Len(t, e.Attempts, 2)
	assert.Equal(t, 2, e.Attempts[1].Number)
	assert.Equal(t, "door locked", e.Reason)
}

func TestEvent_ApplyClassification(t *testing.T) {
	wfs := DefaultWorkflows()
	e := &Event{Status: StatusInResolution}

	changed := e.ApplyClassification(TypeAddressIssue, wfs[TypeAddressIssue], "system", t0)
	require.True(t, changed)
	assert.Equal(t, TypeAddressIssue, *e.Type)
	assert.Equal(t, t0.Add(48*time.Hour), *e.ResolutionDeadline)
	require.Len(t, e.Actions, 2)
	assert.Empty(t, e.Timeline, "first classification is logged by the caller")

	// Same type again: nothing changes, no history entry.
	before := len(e.Timeline)
	assert.False(t, e.ApplyClassification(TypeAddressIssue, wfs[TypeAddressIssue], "system", t0.Add(time.Hour)))
	assert.Len(t, e.Timeline, before)
	assert.Len(t, e.Actions, 2)

	// Execute the first step, then reclassify.
	e.Actions[0].Status = ActionExecuted
	changed = e.ApplyClassification(TypeRefused, wfs[TypeRefused], "ops", t0.Add(2*time.Hour))
	require.True(t, changed)
	assert.Equal(t, t0.Add(24*time.Hour), *e.ResolutionDeadline, "deadline stays anchored to first classification")
	require.Len(t, e.Actions, 3, "executed action kept, pending rebuilt")
	assert.Equal(t, ActionExecuted, e.Actions[0].Status)
	assert.Equal(t, 2, e.Actions[1].Sequence)
	require.Len(t, e.Timeline, 1)
	assert.Equal(t, "reclassified", e.Timeline[0].Action)
}

func TestEvent_RefreshNextAction(t *testing.T) {
	wfs := DefaultWorkflows()
	e := &Event{Status: StatusInResolution}
	e.ApplyClassification(TypeCustomerUnavailable, wfs[TypeCustomerUnavailable], "system", t0)

	require.NotNil(t, e.NextActionAt)
	assert.Equal(t, t0, *e.NextActionAt)

	e.Actions[0].Status = ActionExecuted
	e.RefreshNextAction()
	assert.Equal(t, t0.Add(24*time.Hour), *e.NextActionAt)

	// Manual step blocks the sequence.
	e2 := &Event{Status: StatusInResolution}
	e2.ApplyClassification(TypeAddressIssue, wfs[TypeAddressIssue], "system", t0)
	e2.Actions[0].Status = ActionExecuted
	e2.RefreshNextAction()
	assert.Nil(t, e2.NextActionAt)
}

func TestEvent_IsOpenAndOverdue(t *testing.T) {
	deadline := t0.Add(48 * time.Hour)
	e := &Event{Status: StatusInResolution, ResolutionDeadline: &deadline}

	assert.True(t, e.IsOpen())
	assert.False(t, e.Overdue(t0.Add(47*time.Hour)))
	assert.True(t, e.Overdue(t0.Add(49*time.Hour)))

	require.NoError(t, e.Transition(StatusEscalated, "system", "deadline_elapsed", "", t0.Add(49*time.Hour)))
	assert.True(t, e.IsOpen(), "escalated stays open until an RTO supersedes it")
	e.RTOEventID = "rto-1"
	assert.False(t, e.IsOpen())
}

func TestTrackingUpdate_Validate(t *testing.T) {
	err := TrackingUpdate{CompanyID: "c1", Status: TrackingDeliveryFailed, OccurredAt: t0}.Validate()
	require.ErrorIs(t, err, apperror.ErrValidation)
	e, _ := apperror.As(err)
	assert.Contains(t, e.Fields, "shipment_id")

	ok := TrackingUpdate{ShipmentID: "s1", CompanyID: "c1", Status: "DELIVERY_FAILED", OccurredAt: t0}
	assert.NoError(t, ok.Validate())
	assert.True(t, ok.IsFailedDelivery())
	assert.False(t, ok.IsDelivered())
}

func TestEvent_ActionHelpers(t *testing.T) {
	e := &Event{Status: StatusClassifying}
	e.ApplyClassification(TypeRefused, DefaultWorkflows()[TypeRefused], "system", t0)
	assert.Nil(t, e.NextActionAt, "not scheduled before resolution starts")

	require.NoError(t, e.Transition(StatusInResolution, "system", "classified", "", t0))
	require.NotNil(t, e.NextActionAt)
	assert.Equal(t, t0, *e.NextActionAt)

	assert.Equal(t, -1, e.FindPending(ActionRequestReattempt))
	i := e.AddAction(ActionRequestReattempt, t0.Add(time.Hour))
	assert.Equal(t, 3, e.Actions[i].Sequence)
	assert.Equal(t, i, e.FindPending(ActionRequestReattempt))
	assert.Equal(t, i, e.ActionIndex(3))

	e.CompleteAction(i, "ops", t0.Add(time.Hour))
	assert.Equal(t, ActionExecuted, e.Actions[i].Status)
	assert.Equal(t, "ops", e.Actions[i].Actor)

	require.NoError(t, e.Transition(StatusResolved, "ops", "resolved_manually", "", t0.Add(2*time.Hour)))
	assert.Equal(t, ActionSkipped, e.Actions[0].Status)
	assert.Equal(t, ActionExecuted, e.Actions[i].Status)
}

func TestInput_Validate(t *testing.T) {
	assert.NoError(t, Input{Kind: InputAddressUpdated}.Validate())
	assert.ErrorIs(t, Input{Kind: "unknown"}.Validate(), apperror.ErrValidation)
}
