package usecase

import "lifeboard/internal/domain/model"

var (
	negativeEvents = set("PURCHASE_REFUNDED", "PURCHASE_CANCELED", "PURCHASE_CANCELLED", "PURCHASE_CHARGEBACK", "PURCHASE_DISPUTE")
	positiveEvents = set("PURCHASE_APPROVED", "PURCHASE_COMPLETE")

	negativeStatuses = set("REFUNDED", "CANCELED", "CANCELLED", "CHARGEBACK", "DISPUTE", "EXPIRED")
	positiveStatuses = set("APPROVED", "COMPLETE", "COMPLETED", "PAID")
)

// Decide maps a normalized (status, event type) pair to an activation decision.
// Event type is checked before status in both directions; anything unrecognized
// is denied. Inputs are expected upper-cased.
func Decide(status, eventType string) bool {
	switch {
	case negativeEvents[eventType]:
		return false
	case positiveEvents[eventType]:
		return true
	case negativeStatuses[status]:
		return false
	case positiveStatuses[status]:
		return true
	default:
		return false
	}
}

// Evaluate runs Decide and keeps the evidence.
func Evaluate(ev *model.NormalizedEvent) model.ActivationOutcome {
	if ev == nil {
		return model.ActivationOutcome{}
	}
	return model.ActivationOutcome{
		Activate:  Decide(ev.Status, ev.EventType),
		Status:    ev.Status,
		EventType: ev.EventType,
	}
}

func set(vals ...string) map[string]bool {
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	return m
}
