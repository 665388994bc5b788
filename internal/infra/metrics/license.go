package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		LicenseWebhookRequests,
		LicenseWebhookDuration,
		licenseDecisionsTotal,
		licenseProvisioningTotal,
		licenseChecksTotal,
	)
}

// Webhook result and reason label values. An applied event is (ok, ""); a
// stale one is acknowledged as (ok, stale).
const (
	WebhookOK   = "ok"
	WebhookFail = "fail"

	ReasonMissingSecret = "missing_secret"
	ReasonUnauthorized  = "unauthorized"
	ReasonMissingEmail  = "missing_email"
	ReasonStorage       = "storage"
	ReasonStale         = "stale"
)

var (
	LicenseWebhookRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "license_webhook_requests_total",
			Help: "Count of license webhook calls by result and reason.",
		},
		[]string{"result", "reason"},
	)

	LicenseWebhookDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "license_webhook_duration_seconds",
			Help:    "Duration of the license webhook handler in seconds.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"result"},
	)

	licenseDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "license_decisions_total",
			Help: "Activation decisions by outcome and whether they were applied (false = stale event).",
		},
		[]string{"outcome", "applied"},
	)

	licenseProvisioningTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "license_provisioning_total",
			Help: "Identity account provisioning attempts by result.",
		},
		[]string{"result"},
	)

	licenseChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "license_checks_total",
			Help: "License check queries by result (active|inactive|invalid|error|rate_limited).",
		},
		[]string{"result"},
	)
)

func ObserveWebhook(result, reason string, seconds float64) {
	LicenseWebhookRequests.WithLabelValues(norm(result), norm(reason)).Inc()
	LicenseWebhookDuration.WithLabelValues(norm(result)).Observe(seconds)
}

func IncLicenseDecision(outcome string, applied bool) {
	licenseDecisionsTotal.WithLabelValues(norm(outcome), strconv.FormatBool(applied)).Inc()
}

func IncLicenseProvisioning(result string) {
	licenseProvisioningTotal.WithLabelValues(norm(result)).Inc()
}

func IncLicenseCheck(result string) {
	licenseChecksTotal.WithLabelValues(norm(result)).Inc()
}
