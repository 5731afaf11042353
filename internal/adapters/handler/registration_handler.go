package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/bloodlinkbd/bloodlink-api/internal/adapters/middleware"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/forms"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/services"
)

// RegistrationHandler serves the signed-in user's profile: reading it, the
// donor form and the profile editor.
type RegistrationHandler struct {
	registrationService *services.RegistrationService
	logger              *zap.Logger
}

func NewRegistrationHandler(registration *services.RegistrationService, logger *zap.Logger) *RegistrationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationHandler{registrationService: registration, logger: logger}
}

type FormDefaults struct {
	Donate       forms.Donate       `json:"donate"`
	RequestBlood forms.RequestBlood `json:"requestBlood"`
}

type MeResponse struct {
	StateResponse
	Defaults FormDefaults `json:"defaults"`
}

type ProfileResponse struct {
	Profile  *domain.UserProfile `json:"profile"`
	Notice   Notice              `json:"notice"`
	FollowUp FollowUp            `json:"followUp"`
}

var (
	donateFailed = Notice{Title: "Registration Failed", Description: "There was an error processing your registration. Please try again."}
	updateFailed = Notice{Title: "Update Failed", Description: "There was an error updating your profile. Please try again."}
)

func (h *RegistrationHandler) session(w http.ResponseWriter, r *http.Request) (domain.Session, bool) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
	return session, ok
}

func (h *RegistrationHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	state, err := h.registrationService.State(r.Context(), session)
	if err != nil {
		writeError(w, h.logger, err, Notice{Title: "Profile Unavailable", Description: "Could not load your profile. Please try again."}, nil)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, MeResponse{
		StateResponse: stateResponse(state),
		Defaults: FormDefaults{
			Donate:       forms.DonateDefaults(state.Profile),
			RequestBlood: forms.RequestDefaults(state.Profile),
		},
	})
}

// Unmount tears down the client's profile subscription.
func (h *RegistrationHandler) Unmount(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.registrationService.Unmount(session.ClientID); err != nil {
		h.logger.Warn("failed to unmount client", zap.String("client_id", session.ClientID), zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RegistrationHandler) Donate(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var form forms.Donate
	if err := decodeJSON(w, r, &form); err != nil {
		writeError(w, h.logger, err, donateFailed, nil)
		return
	}

	profile, err := h.registrationService.RegisterDonor(r.Context(), session, form)
	if err != nil {
		writeError(w, h.logger, err, donateFailed, form)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, ProfileResponse{
		Profile: profile,
		Notice: Notice{
			Title:       "Registration Successful!",
			Description: "Thank you for becoming a blood donor.",
		},
		FollowUp: followConfirm,
	})
}

func (h *RegistrationHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var form forms.Profile
	if err := decodeJSON(w, r, &form); err != nil {
		writeError(w, h.logger, err, updateFailed, nil)
		return
	}

	profile, err := h.registrationService.UpdateProfile(r.Context(), session, form)
	if err != nil {
		writeError(w, h.logger, err, updateFailed, form)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, ProfileResponse{
		Profile: profile,
		Notice: Notice{
			Title:       "Profile Updated!",
			Description: "Your profile information has been successfully updated.",
		},
		FollowUp: followReset,
	})
}
