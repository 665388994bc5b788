package api

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"lifeboard/internal/domain"
	"lifeboard/internal/infra/logging"
	"lifeboard/internal/infra/metrics"
	red "lifeboard/internal/infra/redis"
)

// handleWebhook authenticates the call before anything in the body is trusted.
// The body is decoded up front only because the secret may live in it.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result, reason := metrics.WebhookOK, ""
	defer func() {
		metrics.ObserveWebhook(result, reason, time.Since(start).Seconds())
	}()
	l := logging.With(r.Context(), s.log)

	if s.opts.Hottok == "" {
		l.Error().Msg("webhook secret is not configured")
		result, reason = metrics.WebhookFail, metrics.ReasonMissingSecret
		writeJSON(w, http.StatusInternalServerError, webhookResponse{Error: "missing_hotmart_hottok_env"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		l.Warn().Err(err).Msg("webhook body read failed")
	}
	payload := decodeLenient(body)

	if !secretMatches(s.providedSecret(r, payload), s.opts.Hottok) {
		l.Warn().Msg("webhook rejected: bad secret")
		result, reason = metrics.WebhookFail, metrics.ReasonUnauthorized
		writeJSON(w, http.StatusUnauthorized, webhookResponse{Error: "invalid_hottok"})
		return
	}

	out, err := s.licenseUC.ApplyEvent(r.Context(), payload)
	switch {
	case errors.Is(err, domain.ErrMissingEmail):
		result, reason = metrics.WebhookFail, metrics.ReasonMissingEmail
		writeJSON(w, http.StatusBadRequest, webhookResponse{Error: "missing_email"})
		return
	case err != nil:
		l.Error().Err(err).Msg("webhook processing failed")
		result, reason = metrics.WebhookFail, metrics.ReasonStorage
		writeJSON(w, http.StatusInternalServerError, webhookResponse{Error: err.Error()})
		return
	}

	if out != nil && !out.Applied {
		reason = metrics.ReasonStale
	}
	writeJSON(w, http.StatusOK, webhookResponse{OK: true})
}

// providedSecret looks at the bearer token, then the legacy headers, then the
// body fields, and returns the first non-empty value.
func (s *Server) providedSecret(r *http.Request, payload map[string]any) string {
	if tok, ok := bearerToken(r); ok {
		return tok
	}
	for _, h := range s.opts.LegacyHeaders {
		if v := strings.TrimSpace(r.Header.Get(h)); v != "" {
			return v
		}
	}
	for _, f := range s.opts.BodyFields {
		if v, ok := payload[f].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func secretMatches(provided, expected string) bool {
	if provided == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}

// decodeLenient never fails: anything that is not a JSON object becomes an
// empty payload and is rejected later for lack of an email.
func decodeLenient(body []byte) map[string]any {
	payload := map[string]any{}
	if len(bytes.TrimSpace(body)) == 0 {
		return payload
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil {
		return payload
	}
	return m
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logging.With(ctx, s.log)

	if s.opts.Limiter != nil {
		ok, err := s.opts.Limiter.Allow(ctx, red.LicenseCheckKey(clientIP(r)), s.opts.CheckLimit, s.opts.CheckWindow)
		switch {
		case err != nil:
			l.Warn().Err(err).Msg("rate limiter unavailable")
		case !ok:
			metrics.IncLicenseCheck("rate_limited")
			writeJSON(w, http.StatusTooManyRequests, checkResponse{Error: "rate_limited"})
			return
		}
	}

	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if err := s.validate.Var(email, "required,email"); err != nil {
		metrics.IncLicenseCheck("invalid")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_email"})
		return
	}

	active, err := s.licenseUC.IsActive(ctx, email)
	if err != nil {
		l.Error().Err(err).Msg("license check failed")
		metrics.IncLicenseCheck("error")
		writeJSON(w, http.StatusInternalServerError, checkResponse{Active: false, Error: err.Error()})
		return
	}

	if active {
		metrics.IncLicenseCheck("active")
	} else {
		metrics.IncLicenseCheck("inactive")
	}
	writeJSON(w, http.StatusOK, checkResponse{Active: active})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
