package usecase

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"lifeboard/internal/domain"
	"lifeboard/internal/domain/model"
)

// Accessor reads one candidate value out of a decoded webhook payload.
// ok is false when the value is absent or not a scalar.
type Accessor func(payload map[string]any) (value string, ok bool)

// The provider's payload shape differs between product/account setups, so every
// field is probed along a fixed, ordered list of paths. Order matters.
var (
	DefaultEmailPaths = []string{
		"email",
		"buyer.email",
		"data.buyer.email",
		"purchase.buyer.email",
		"data.purchase.buyer.email",
	}
	DefaultStatusPaths = []string{
		"status",
		"data.status",
		"purchase.status",
		"data.purchase.status",
		"transaction_status",
		"data.transaction_status",
	}
	DefaultEventPaths = []string{
		"event",
		"data.event",
	}
	DefaultPurchaseIDPaths = []string{
		"purchase_id",
		"data.purchase_id",
		"transaction",
		"data.transaction",
		"purchase.transaction",
		"data.purchase.transaction",
	}
	DefaultOccurredAtPaths = []string{
		"creation_date",
		"data.creation_date",
		"purchase.approved_date",
		"data.purchase.approved_date",
	}
)

// NormalizerConfig overrides the probe lists; empty lists keep the defaults.
type NormalizerConfig struct {
	EmailPaths      []string
	StatusPaths     []string
	EventPaths      []string
	PurchaseIDPaths []string
	OccurredAtPaths []string
}

// Normalizer turns an arbitrarily shaped payload into a model.NormalizedEvent.
type Normalizer struct {
	email      []Accessor
	status     []Accessor
	event      []Accessor
	purchaseID []Accessor
	occurredAt []Accessor
}

func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	return &Normalizer{
		email:      pathAccessors(orDefault(cfg.EmailPaths, DefaultEmailPaths)),
		status:     pathAccessors(orDefault(cfg.StatusPaths, DefaultStatusPaths)),
		event:      pathAccessors(orDefault(cfg.EventPaths, DefaultEventPaths)),
		purchaseID: pathAccessors(orDefault(cfg.PurchaseIDPaths, DefaultPurchaseIDPaths)),
		occurredAt: pathAccessors(orDefault(cfg.OccurredAtPaths, DefaultOccurredAtPaths)),
	}
}

// AppendEmailAccessor adds a custom probe after the configured paths.
func (n *Normalizer) AppendEmailAccessor(a Accessor) { n.email = append(n.email, a) }

// Normalize fails with domain.ErrMissingEmail when no probe yields an email.
func (n *Normalizer) Normalize(payload map[string]any) (*model.NormalizedEvent, error) {
	email, _ := firstMatch(payload, n.email)
	email = model.NormalizeEmail(email)
	if email == "" {
		return nil, domain.ErrMissingEmail
	}
	status, _ := firstMatch(payload, n.status)
	event, _ := firstMatch(payload, n.event)

	ev := &model.NormalizedEvent{
		Email:     email,
		Status:    strings.ToUpper(strings.TrimSpace(status)),
		EventType: strings.ToUpper(strings.TrimSpace(event)),
	}
	if pid, ok := firstMatch(payload, n.purchaseID); ok {
		ev.PurchaseID = &pid
	}
	if raw, ok := firstMatch(payload, n.occurredAt); ok {
		if ts, ok := parseEpochMillis(raw); ok {
			ev.OccurredAt = &ts
		}
	}
	return ev, nil
}

// PathAccessor walks a dotted path ("data.buyer.email") through nested objects.
func PathAccessor(path string) Accessor {
	parts := strings.Split(path, ".")
	return func(payload map[string]any) (string, bool) {
		var cur any = payload
		for _, p := range parts {
			m, ok := cur.(map[string]any)
			if !ok {
				return "", false
			}
			if cur, ok = m[p]; !ok {
				return "", false
			}
		}
		return scalarString(cur)
	}
}

func pathAccessors(paths []string) []Accessor {
	out := make([]Accessor, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, PathAccessor(p))
	}
	return out
}

func firstMatch(payload map[string]any, accessors []Accessor) (string, bool) {
	if payload == nil {
		return "", false
	}
	for _, a := range accessors {
		if v, ok := a(payload); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10), true
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	default:
		return "", false
	}
}

// parseEpochMillis accepts the provider's millisecond timestamps.
func parseEpochMillis(s string) (time.Time, bool) {
	ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}
