package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	slogctx "github.com/veqryn/slog-context"

	"github.com/Geodev122/cogniflow-sub002/internal/authsession"
	"github.com/Geodev122/cogniflow-sub002/internal/profile"
	"github.com/Geodev122/cogniflow-sub002/internal/serviceerr"
)

type apiHandler struct {
	manager  *authsession.Manager
	profiles *profile.Service
}

func newAPIHandler(manager *authsession.Manager, profiles *profile.Service) *apiHandler {
	return &apiHandler{
		manager:  manager,
		profiles: profiles,
	}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

type updateProfileRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Phone     *string `json:"phone"`
	Verified  *bool   `json:"verified"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code        serviceerr.Code `json:"code"`
	Description string          `json:"description"`
	Retryable   bool            `json:"retryable"`
}

func (h *apiHandler) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(r, w, http.StatusOK, h.manager.State())
}

func (h *apiHandler) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.manager.SignIn(r.Context(), req.Email, req.Password); err != nil {
		writeError(r, w, err)
		return
	}

	writeJSON(r, w, http.StatusOK, h.manager.State())
}

func (h *apiHandler) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := h.manager.SignUp(r.Context(), req.Email, req.Password, req.FirstName, req.LastName, profile.Role(req.Role))
	if err != nil {
		writeError(r, w, err)
		return
	}

	writeJSON(r, w, http.StatusOK, h.manager.State())
}

func (h *apiHandler) signOut(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.SignOut(r.Context()); err != nil {
		writeError(r, w, err)
		return
	}

	writeJSON(r, w, http.StatusOK, h.manager.State())
}

func (h *apiHandler) retry(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Retry(r.Context()); err != nil {
		writeError(r, w, err)
		return
	}

	writeJSON(r, w, http.StatusOK, h.manager.State())
}

func (h *apiHandler) refreshProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.RefreshProfile(r.Context()); err != nil {
		writeError(r, w, err)
		return
	}

	writeJSON(r, w, http.StatusOK, h.manager.State())
}

func (h *apiHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	state := h.manager.State()
	if state.User == nil {
		writeError(r, w, fmt.Errorf("%w: no signed-in user", serviceerr.ErrNotFound))
		return
	}

	var req updateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	updated, err := h.profiles.UpdateProfile(r.Context(), state.User.ID, profile.Update{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Verified:  req.Verified,
	})
	if err != nil {
		writeError(r, w, err)
		return
	}

	// Reflect the new profile in the session state as well.
	if err := h.manager.RefreshProfile(r.Context()); err != nil {
		slogctx.Warn(r.Context(), "Profile updated but state refresh failed", "error", err)
	}

	writeJSON(r, w, http.StatusOK, updated)
}

func decodeBody(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeError(r, w, &serviceerr.Error{
			Err:         serviceerr.CodeInvalidRequest,
			Description: "request body is not valid JSON",
		})

		return false
	}

	return true
}

func writeError(r *http.Request, w http.ResponseWriter, err error) {
	code := serviceerr.Classify(err)

	writeJSON(r, w, code.HTTPStatus(), errorResponse{
		Error: errorBody{
			Code:        code,
			Description: err.Error(),
			Retryable:   code.Retryable(),
		},
	})
}

func writeJSON(r *http.Request, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slogctx.Error(r.Context(), "Failed to encode response body", "error", err)
	}
}
