package domain

import "reverse-logistics/internal/core/apperror"

// InputKind is an external signal that advances a manual workflow step.
type InputKind string

const (
	// InputAddressUpdated arrives from the address-update webhook.
	InputAddressUpdated InputKind = "address_updated"
	// InputReattemptRequested asks the courier for another attempt.
	InputReattemptRequested InputKind = "reattempt_requested"
	// InputSellerReviewed closes a pending seller review.
	InputSellerReviewed InputKind = "seller_reviewed"
	// InputResolved closes the event manually.
	InputResolved InputKind = "resolved"
)

// Input is an external signal for an event in resolution.
type Input struct {
	Kind  InputKind `json:"kind"`
	Notes string    `json:"notes"`
}

// Validate checks the input kind.
func (in Input) Validate() error {
	switch in.Kind {
	case InputAddressUpdated, InputReattemptRequested, InputSellerReviewed, InputResolved:
		return nil
	}
	return apperror.Validation("invalid NDR input", map[string]string{"kind": "unknown input kind"})
}
