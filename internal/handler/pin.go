package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/auth247/pin-server-go/internal/errors"
	"github.com/auth247/pin-server-go/internal/httputil"
	"github.com/auth247/pin-server-go/internal/service"
)

const maxUserIDLength = 128

// PinEngine is the subset of service.PinService used by the handler.
type PinEngine interface {
	IssueCode(ctx context.Context, userID string) (*service.IssueResult, error)
	ValidateCode(ctx context.Context, userID, code string) (*service.ValidateResult, error)
	HasPendingVerification(ctx context.Context, userID string) (bool, error)
	ClearVerification(ctx context.Context, userID string) (bool, error)
}

type PinHandler struct {
	pins      PinEngine
	validator *RequestValidator
}

func NewPinHandler(pins PinEngine, validator *RequestValidator) *PinHandler {
	return &PinHandler{
		pins:      pins,
		validator: validator,
	}
}

// Routes mounts the PIN endpoints. validateLimit throttles /validate and
// adminOnly guards /clear.
func (h *PinHandler) Routes(validateLimit, adminOnly func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/issue", h.Issue)
	r.With(validateLimit).Post("/validate", h.Validate)
	r.Get("/status/{userId}", h.Status)
	r.With(adminOnly).Post("/clear", h.Clear)

	return r
}

// POST /auth/otp/issue
func (h *PinHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := h.validator.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.pins.IssueCode(r.Context(), req.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Msg("failed to issue pin")
		httputil.WriteError(w, err)
		return
	}

	if !result.Success {
		if result.Reason == apperrors.ErrCodeRateLimited {
			setRetryAfter(w, result.RetryAfter)
		}
		writeReason(w, result.Reason)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// POST /auth/otp/validate
func (h *PinHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := h.validator.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.pins.ValidateCode(r.Context(), req.UserID, req.Code)
	if err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Msg("failed to validate pin")
		httputil.WriteError(w, err)
		return
	}

	if !result.Success {
		writeJSON(w, httputil.StatusFromCode(result.Reason), result)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GET /auth/otp/status/{userId}
func (h *PinHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" || len(userID) > maxUserIDLength {
		httputil.WriteError(w, apperrors.InvalidInput("userId", "must be 1-128 characters"))
		return
	}

	pending, err := h.pins.HasPendingVerification(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to read pin status")
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"pending": pending})
}

// POST /auth/otp/clear
func (h *PinHandler) Clear(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := h.validator.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	ok, err := h.pins.ClearVerification(r.Context(), req.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Msg("failed to clear pin")
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": ok})
}
