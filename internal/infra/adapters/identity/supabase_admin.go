// File: internal/infra/adapters/identity/supabase_admin.go
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"lifeboard/internal/domain/model"
	"lifeboard/internal/domain/ports/adapter"
)

var _ adapter.IdentityProvisioner = (*SupabaseAdmin)(nil)

// error_code values the auth server uses for a duplicate email.
var alreadyExistsCodes = map[string]bool{
	"email_exists":        true,
	"user_already_exists": true,
}

// SupabaseAdmin creates accounts through the GoTrue admin endpoint
// (POST /auth/v1/admin/users) using the service role key.
type SupabaseAdmin struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

func NewSupabaseAdmin(baseURL, serviceRoleKey string) (*SupabaseAdmin, error) {
	if serviceRoleKey == "" {
		return nil, errors.New("service role key empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid identity url %q", baseURL)
	}
	return &SupabaseAdmin{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceRoleKey,
		client:     &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// SetHTTPClient replaces the default client (tests, custom transports).
func (s *SupabaseAdmin) SetHTTPClient(c *http.Client) {
	if c != nil {
		s.client = c
	}
}

func (s *SupabaseAdmin) Name() string { return "supabase" }

// EnsureUser creates a pre-confirmed account with a random password nobody
// knows; sign-in happens through magic links.
func (s *SupabaseAdmin) EnsureUser(ctx context.Context, email string) (model.ProvisionResult, error) {
	payload := map[string]any{
		"email":         email,
		"password":      uuid.NewString(),
		"email_confirm": true,
	}
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/auth/v1/admin/users", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("supabase create user: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return model.ProvisionCreated, nil
	}

	var apiErr struct {
		Code      int    `json:"code"`
		ErrorCode string `json:"error_code"`
		Msg       string `json:"msg"`
	}
	_ = json.Unmarshal(body, &apiErr)
	if (resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusConflict) && alreadyExistsCodes[apiErr.ErrorCode] {
		return model.ProvisionAlreadyExists, nil
	}
	return "", &ProvisionError{Status: resp.StatusCode, Code: apiErr.ErrorCode, Message: apiErr.Msg}
}

// ProvisionError is any non-success answer other than "already exists".
type ProvisionError struct {
	Status  int
	Code    string
	Message string
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("supabase create user: status=%d code=%s msg=%s", e.Status, e.Code, e.Message)
}
