package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bloodlinkbd/bloodlink-api/internal/adapters/middleware"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/forms"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/services"
)

type AuthHandler struct {
	authService *services.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(auth *services.AuthService, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{authService: auth, logger: logger}
}

type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	ClientID  string    `json:"clientId"`
	StateResponse
	Notice   Notice   `json:"notice"`
	FollowUp FollowUp `json:"followUp"`
}

// credentialEcho never includes the password.
type credentialEcho struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

var (
	registerFailed = Notice{Title: "Registration Failed", Description: "An unexpected error occurred. Please try again."}
	loginFailed    = Notice{Title: "Login Failed", Description: "An unexpected error occurred. Please try again."}
)

// resolveClient returns the caller's client id, minting one for a new client.
func resolveClient(w http.ResponseWriter, r *http.Request) string {
	id := clientID(r)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(middleware.ClientIDHeader, id)
	return id
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var form forms.Register
	if err := decodeJSON(w, r, &form); err != nil {
		writeError(w, h.logger, err, registerFailed, nil)
		return
	}
	echo := credentialEcho{Name: form.Name, Email: form.Email}

	cid := resolveClient(w, r)
	result, err := h.authService.Register(r.Context(), cid, form)
	if err != nil {
		writeError(w, h.logger, err, registerFailed, echo)
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, AuthResponse{
		Token:         result.Session.Token,
		ExpiresAt:     result.Session.ExpiresAt,
		ClientID:      cid,
		StateResponse: stateResponse(result.State),
		Notice: Notice{
			Title:       "Registration Successful!",
			Description: "Welcome to BloodLink BD. You can now explore the app.",
		},
		FollowUp: followHome,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var form forms.Login
	if err := decodeJSON(w, r, &form); err != nil {
		writeError(w, h.logger, err, loginFailed, nil)
		return
	}
	echo := credentialEcho{Email: form.Email}

	cid := resolveClient(w, r)
	result, err := h.authService.Login(r.Context(), cid, form)
	if err != nil {
		writeError(w, h.logger, err, loginFailed, echo)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, AuthResponse{
		Token:         result.Session.Token,
		ExpiresAt:     result.Session.ExpiresAt,
		ClientID:      cid,
		StateResponse: stateResponse(result.State),
		Notice: Notice{
			Title:       "Login Successful!",
			Description: "Welcome back to BloodLink BD.",
		},
		FollowUp: followHome,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.authService.Logout(r.Context(), session); err != nil {
		writeError(w, h.logger, err, Notice{Title: "Logout Failed", Description: "Could not sign you out. Please try again."}, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
