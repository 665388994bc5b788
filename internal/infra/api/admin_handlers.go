package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"lifeboard/internal/domain"
	"lifeboard/internal/domain/model"
	"lifeboard/internal/infra/logging"

	"github.com/go-chi/chi/v5"
)

type loginRequest struct {
	APIKey string `json:"api_key" validate:"required"`
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_body"})
		return
	}
	if err := s.validate.Struct(req); err != nil || !s.opts.Auth.CheckAPIKey(req.APIKey) {
		logging.With(r.Context(), s.log).Warn().Msg("admin login rejected")
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	tok, err := s.opts.Auth.Mint(w)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "token_error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": tok})
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	s.opts.Auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.opts.Auth.ParseFromRequest(r); err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleAdminGetLicense(w http.ResponseWriter, r *http.Request) {
	email, ok := s.emailParam(w, r)
	if !ok {
		return
	}
	lic, err := s.licenseUC.Get(r.Context(), email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found"})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, lic)
	}
}

func (s *Server) handleAdminSetLicense(w http.ResponseWriter, r *http.Request) {
	email, ok := s.emailParam(w, r)
	if !ok {
		return
	}
	var req setStatusRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_body"})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_status"})
		return
	}
	status, err := model.ParseLicenseStatus(req.Status)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_status"})
		return
	}

	lic, err := s.licenseUC.SetStatus(r.Context(), email, status)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, lic)
}

func (s *Server) emailParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil || s.validate.Var(email, "required,email") != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_email"})
		return "", false
	}
	return email, true
}
