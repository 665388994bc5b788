package model

import "time"

// NormalizedEvent is the canonical view of one inbound provider notification.
type NormalizedEvent struct {
	Email      string     // lower-cased, required
	Status     string     // upper-cased, may be empty
	EventType  string     // upper-cased, may be empty
	PurchaseID *string    // nil when absent
	OccurredAt *time.Time // provider event time, nil when absent
}

type ProvisionResult string

const (
	ProvisionNone          ProvisionResult = ""               // not attempted (deactivation or stale event)
	ProvisionCreated       ProvisionResult = "created"        // account created now
	ProvisionAlreadyExists ProvisionResult = "already_exists" // account was there before
	ProvisionSkipped       ProvisionResult = "skipped"        // no identity provider configured
	ProvisionFailed        ProvisionResult = "failed"         // best effort failure, logged only
)

// ActivationOutcome is the decision together with the evidence that produced it.
type ActivationOutcome struct {
	Activate  bool
	Status    string
	EventType string

	// Applied is false when the stored license already reflects a newer event.
	Applied      bool
	Provisioning ProvisionResult
}

// Label is used for logs and metric labels.
func (o ActivationOutcome) Label() string {
	if o.Activate {
		return "activate"
	}
	return "deactivate"
}
