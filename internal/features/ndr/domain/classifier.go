package domain

import "strings"

// Rule maps courier codes and remark keywords to a type.
type Rule struct {
	Type     Type
	Codes    []string
	Keywords []string
}

// DefaultRules is the built-in rule table. Codes are checked across all rules
// before keywords; within each pass the first matching rule wins, so refusals
// are matched before the softer reasons.
var DefaultRules = []Rule{
	{
		Type:     TypeRefused,
		Codes:    []string{"REFUSED", "RTD", "CUSTOMER_REFUSED", "DELIVERY_REFUSED"},
		Keywords: []string{"refused", "refuse", "rejected by customer", "not interested", "cancel order", "rechaz", "rehus", "no acepta"},
	},
	{
		Type:     TypePaymentIssue,
		Codes:    []string{"COD_NOT_READY", "PAYMENT_ISSUE", "NO_CASH"},
		Keywords: []string{"cod amount", "cash not ready", "payment", "no cash", "pago", "sin dinero"},
	},
	{
		Type:     TypeAddressIssue,
		Codes:    []string{"ADDRESS_ISSUE", "BAD_ADDRESS", "INCOMPLETE_ADDRESS", "ODA"},
		Keywords: []string{"address", "incomplete", "wrong pincode", "not serviceable", "landmark", "direccion", "dirección", "no existe"},
	},
	{
		Type:     TypeRescheduleRequested,
		Codes:    []string{"RESCHEDULE", "FUTURE_DELIVERY", "CUSTOMER_RESCHEDULED"},
		Keywords: []string{"reschedule", "future delivery", "another day", "deliver later", "reprogram", "otro día", "otro dia"},
	},
	{
		Type:     TypeCustomerUnavailable,
		Codes:    []string{"CNA", "CUSTOMER_UNAVAILABLE", "DOOR_LOCKED", "NOT_REACHABLE"},
		Keywords: []string{"not available", "unavailable", "door locked", "premises closed", "not reachable", "no answer", "no response", "ausente", "nadie", "cerrado"},
	},
}

// Classifier derives a type from a failure reason. It is deterministic.
type Classifier struct {
	rules []Rule
}

// NewClassifier builds a classifier over rules, DefaultRules when empty.
func NewClassifier(rules []Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Classifier{rules: rules}
}

// Classify returns the matching type, TypeOther when nothing matches.
func (c *Classifier) Classify(code, remark string) Type {
	normCode := strings.ToUpper(strings.TrimSpace(code))
	if normCode != "" {
		for _, r := range c.rules {
			for _, rc := range r.Codes {
				if normCode == rc {
					return r.Type
				}
			}
		}
	}

	text := strings.ToLower(remark)
	if strings.TrimSpace(text) == "" {
		return TypeOther
	}
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(text, kw) {
				return r.Type
			}
		}
	}
	return TypeOther
}
