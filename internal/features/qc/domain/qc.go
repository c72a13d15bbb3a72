package domain

import (
	"fmt"
	"strings"
	"time"

	"reverse-logistics/internal/core/apperror"
)

// Result is the inspector's verdict on a returned parcel.
type Result string

const (
	ResultApproved Result = "approved"
	ResultRejected Result = "rejected"
	ResultPartial  Result = "partial"
)

// Valid reports whether r is a known result.
func (r Result) Valid() bool {
	return r == ResultApproved || r == ResultRejected || r == ResultPartial
}

// Status of the QC sub-record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Condition is the physical state of an inspected item.
type Condition string

const (
	ConditionSellable Condition = "sellable"
	ConditionOpened   Condition = "opened"
	ConditionDamaged  Condition = "damaged"
	ConditionMissing  Condition = "missing"
)

// Valid reports whether c is a known condition.
func (c Condition) Valid() bool {
	switch c {
	case ConditionSellable, ConditionOpened, ConditionDamaged, ConditionMissing:
		return true
	}
	return false
}

// Unsellable reports whether the item can never go back to stock.
func (c Condition) Unsellable() bool {
	return c == ConditionDamaged || c == ConditionMissing
}

// ErrQCAlreadyRecorded is returned on a second QC submission.
var ErrQCAlreadyRecorded = apperror.Conflict("QC_ALREADY_RECORDED", "quality check has already been recorded")

// Item is one inspected line.
type Item struct {
	ProductID string    `json:"product_id"`
	SKU       string    `json:"sku"`
	Quantity  int       `json:"quantity"`
	Condition Condition `json:"condition"`
	Category  string    `json:"category,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

// Record is the QC sub-record shared by return orders and RTO events. It is
// written once; CompletedAt marks it immutable.
type Record struct {
	Status        Status     `json:"status"`
	Result        Result     `json:"result,omitempty"`
	AcceptedItems []Item     `json:"accepted_items,omitempty"`
	RejectedItems []Item     `json:"rejected_items,omitempty"`
	Photos        []string   `json:"photos,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	Inspector     string     `json:"inspector,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Completed reports whether the record is final.
func (r Record) Completed() bool {
	return r.CompletedAt != nil
}

// Submission is the inspector's input to recordQCResult.
type Submission struct {
	Result    Result `json:"result"`
	Accepted  []Item `json:"accepted_items"`
	Rejected  []Item `json:"rejected_items"`
	Notes     string `json:"notes"`
	Inspector string `json:"inspector"`
}

// Validate checks the submission is self-consistent.
func (s Submission) Validate() error {
	fields := map[string]string{}

	if !s.Result.Valid() {
		fields["result"] = "must be one of approved, rejected, partial"
	}
	if strings.TrimSpace(s.Inspector) == "" {
		fields["inspector"] = "is required"
	}
	if len(s.Accepted)+len(s.Rejected) == 0 {
		fields["items"] = "at least one inspected item is required"
	}

	switch s.Result {
	case ResultApproved:
		if len(s.Rejected) > 0 {
			fields["rejected_items"] = "must be empty for an approved result"
		}
	case ResultRejected:
		if len(s.Accepted) > 0 {
			fields["accepted_items"] = "must be empty for a rejected result"
		}
	case ResultPartial:
		if len(s.Accepted) == 0 || len(s.Rejected) == 0 {
			fields["items"] = "partial result needs both accepted and rejected items"
		}
	}

	check := func(prefix string, items []Item) {
		for i, it := range items {
			key := fmt.Sprintf("%s[%d]", prefix, i)
			if it.SKU == "" && it.ProductID == "" {
				fields[key] = "product_id or sku is required"
			}
			if it.Quantity <= 0 {
				fields[key+".quantity"] = "must be positive"
			}
			if it.Condition != "" && !it.Condition.Valid() {
				fields[key+".condition"] = "unknown condition"
			}
		}
	}
	check("accepted_items", s.Accepted)
	check("rejected_items", s.Rejected)

	if len(fields) > 0 {
		return apperror.Validation("invalid quality check submission", fields)
	}
	return nil
}

// Line is a returned line an inspection is checked against.
type Line struct {
	SKU       string
	ProductID string
	Quantity  int
}

// CheckAgainst rejects inspected items the parcel never held and accepted
// plus rejected quantities above what was returned.
func (s Submission) CheckAgainst(lines []Line) error {
	index := map[string]int{}
	for i, l := range lines {
		if l.SKU != "" {
			index[l.SKU] = i
		}
		if l.ProductID != "" {
			index[l.ProductID] = i
		}
	}

	fields := map[string]string{}
	inspected := make([]int, len(lines))
	check := func(prefix string, items []Item) {
		for i, it := range items {
			key := fmt.Sprintf("%s[%d]", prefix, i)
			idx, ok := index[it.SKU]
			if !ok || it.SKU == "" {
				idx, ok = index[it.ProductID]
				ok = ok && it.ProductID != ""
			}
			if !ok {
				fields[key] = "is not part of the returned items"
				continue
			}
			inspected[idx] += it.Quantity
			if inspected[idx] > lines[idx].Quantity {
				fields[key+".quantity"] = fmt.Sprintf("exceeds the returned quantity of %d", lines[idx].Quantity)
			}
		}
	}
	check("accepted_items", s.Accepted)
	check("rejected_items", s.Rejected)

	if len(fields) > 0 {
		return apperror.Validation("quality check items do not match the returned items", fields)
	}
	return nil
}

// Complete applies a submission to an unfinished record.
func Complete(existing Record, s Submission, now time.Time) (Record, error) {
	if existing.Completed() {
		return existing, ErrQCAlreadyRecorded
	}
	if err := s.Validate(); err != nil {
		return existing, err
	}

	accepted := normalizeConditions(s.Accepted, ConditionSellable)
	rejected := normalizeConditions(s.Rejected, ConditionDamaged)

	completedAt := now
	return Record{
		Status:        StatusCompleted,
		Result:        s.Result,
		AcceptedItems: accepted,
		RejectedItems: rejected,
		Photos:        existing.Photos,
		Notes:         s.Notes,
		Inspector:     s.Inspector,
		CompletedAt:   &completedAt,
	}, nil
}

func normalizeConditions(items []Item, fallback Condition) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		if it.Condition == "" {
			it.Condition = fallback
		}
		it.Category = strings.ToLower(strings.TrimSpace(it.Category))
		out[i] = it
	}
	return out
}

// AttachPhotos adds evidence to an unfinished record.
func AttachPhotos(existing Record, urls []string) (Record, error) {
	if existing.Completed() {
		return existing, ErrQCAlreadyRecorded.WithMessage("photos cannot be added after the quality check is recorded")
	}
	if existing.Status == "" {
		existing.Status = StatusPending
	}
	existing.Photos = append(append([]string{}, existing.Photos...), urls...)
	return existing, nil
}
