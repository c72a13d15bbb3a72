package domain

import (
	"strings"
	"time"

	"reverse-logistics/internal/core/apperror"
	qc "reverse-logistics/internal/features/qc/domain"

	"github.com/shopspring/decimal"
)

// Action is what happens to the goods after QC.
type Action string

const (
	ActionRestock        Action = "restock"
	ActionScrap          Action = "scrap"
	ActionReturnToSeller Action = "return_to_seller"
	ActionHoldForReview  Action = "hold_for_review"
)

// Valid reports whether a is a known disposition.
func (a Action) Valid() bool {
	switch a {
	case ActionRestock, ActionScrap, ActionReturnToSeller, ActionHoldForReview:
		return true
	}
	return false
}

// ExecutionStatus tracks the two-phase disposition write.
type ExecutionStatus string

const (
	// ExecutionProcessing is written before the inventory call.
	ExecutionProcessing ExecutionStatus = "processing"
	ExecutionCompleted  ExecutionStatus = "completed"
)

var (
	// ErrAlreadyDisposed is returned on a second disposition.
	ErrAlreadyDisposed = apperror.Conflict("RTO_ALREADY_DISPOSED", "RTO event has already been disposed")
	// ErrDispositionInconsistent is returned when the action contradicts the QC result.
	ErrDispositionInconsistent = apperror.Conflict("DISPOSITION_INCONSISTENT", "disposition contradicts the quality check result")
	// ErrQCNotCompleted is returned when disposing before QC.
	ErrQCNotCompleted = apperror.Conflict("QC_NOT_COMPLETED", "quality check has not been recorded")
	// ErrDispositionInProgress is returned when a different action is mid-flight.
	ErrDispositionInProgress = apperror.Conflict("DISPOSITION_IN_PROGRESS", "another disposition is being applied")
)

// reviewKeywords in inspector notes force a manual review.
var reviewKeywords = []string{"review", "hold", "suspicious", "fraud", "mismatch", "tamper"}

// StockAdjustment is one inventory movement caused by a disposition.
type StockAdjustment struct {
	SKU    string `json:"sku"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

// Disposition records the one-time post-QC decision.
type Disposition struct {
	Action           Action            `json:"action"`
	Status           ExecutionStatus   `json:"status"`
	Reference        string            `json:"reference"`
	Suggested        Action            `json:"suggested"`
	Override         bool              `json:"override"`
	Actor            string            `json:"actor"`
	Notes            string            `json:"notes,omitempty"`
	StockAdjustments []StockAdjustment `json:"stock_adjustments,omitempty"`
	CreditAmount     decimal.Decimal   `json:"credit_amount"`
	StartedAt        time.Time         `json:"started_at"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
}

// Suggestion is a proposed disposition with its rationale.
type Suggestion struct {
	Action Action `json:"action"`
	Reason string `json:"reason"`
}

// Suggest proposes a disposition from a completed QC record. It is a pure
// function of the record and the non-restockable category list.
func Suggest(rec qc.Record, nonRestockable []string) (Suggestion, error) {
	if !rec.Completed() {
		return Suggestion{}, ErrQCNotCompleted
	}

	notes := strings.ToLower(rec.Notes)
	for _, kw := range reviewKeywords {
		if strings.Contains(notes, kw) {
			return Suggestion{Action: ActionHoldForReview, Reason: "inspector notes ask for review"}, nil
		}
	}

	switch rec.Result {
	case qc.ResultRejected:
		for _, it := range rec.RejectedItems {
			if !it.Condition.Unsellable() {
				return Suggestion{Action: ActionHoldForReview, Reason: "rejected item " + itemKey(it) + " is not marked damaged or missing"}, nil
			}
		}
		return Suggestion{Action: ActionScrap, Reason: "all items failed inspection"}, nil
	case qc.ResultPartial:
		return Suggestion{Action: ActionHoldForReview, Reason: "quality check passed only part of the parcel"}, nil
	}

	blocked := map[string]bool{}
	for _, c := range nonRestockable {
		blocked[strings.ToLower(c)] = true
	}
	for _, it := range rec.AcceptedItems {
		if it.Category != "" && blocked[it.Category] {
			return Suggestion{Action: ActionReturnToSeller, Reason: "category " + it.Category + " cannot be restocked"}, nil
		}
		if it.Condition != qc.ConditionSellable {
			return Suggestion{Action: ActionReturnToSeller, Reason: "item " + itemKey(it) + " is " + string(it.Condition)}, nil
		}
	}
	return Suggestion{Action: ActionRestock, Reason: "all items passed inspection in sellable condition"}, nil
}

// CheckConsistency rejects actions that contradict the QC result unless
// override is set.
func CheckConsistency(rec qc.Record, action Action, override bool) error {
	if !action.Valid() {
		return apperror.Validation("invalid disposition", map[string]string{"action": "unknown disposition action"})
	}
	if !rec.Completed() {
		return ErrQCNotCompleted
	}
	if override {
		return nil
	}
	switch {
	case action == ActionRestock && rec.Result == qc.ResultRejected:
		return ErrDispositionInconsistent.WithMessage("cannot restock a failed quality check without override")
	case action == ActionScrap && rec.Result == qc.ResultApproved:
		return ErrDispositionInconsistent.WithMessage("cannot scrap goods that passed quality check without override")
	}
	return nil
}

// PlanStock lists the inventory movements for action. Only restocking
// touches stock; an override restock also returns the rejected items.
func PlanStock(rec qc.Record, action Action, override bool) []StockAdjustment {
	if action != ActionRestock {
		return nil
	}
	items := rec.AcceptedItems
	if override {
		items = append(append([]qc.Item{}, rec.AcceptedItems...), rec.RejectedItems...)
	}
	out := make([]StockAdjustment, 0, len(items))
	for _, it := range items {
		out = append(out, StockAdjustment{SKU: itemKey(it), Delta: it.Quantity, Reason: "rto_restock"})
	}
	return out
}

// CreditAmount values the accepted goods at the parcel's unit prices. Items
// without a known price count as zero. A hold credits nothing.
func CreditAmount(items []LineItem, rec qc.Record, action Action) decimal.Decimal {
	if action == ActionHoldForReview {
		return decimal.Zero
	}
	prices := map[string]decimal.Decimal{}
	for _, li := range items {
		prices[li.SKU] = li.UnitPrice
		if li.ProductID != "" {
			prices[li.ProductID] = li.UnitPrice
		}
	}
	total := decimal.Zero
	for _, it := range rec.AcceptedItems {
		total = total.Add(prices[itemKey(it)].Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total.Round(2)
}

func itemKey(it qc.Item) string {
	if it.SKU != "" {
		return it.SKU
	}
	return it.ProductID
}
