package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/bloodlinkbd/bloodlink-api/internal/adapters/middleware"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/forms"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/services"
)

type RequestHandler struct {
	requests     *services.BloodRequestService
	board        *services.RequestBoard
	registration *services.RegistrationService
	logger       *zap.Logger
	now          func() time.Time
}

func NewRequestHandler(
	requests *services.BloodRequestService,
	board *services.RequestBoard,
	registration *services.RegistrationService,
	logger *zap.Logger,
) *RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestHandler{
		requests:     requests,
		board:        board,
		registration: registration,
		logger:       logger,
		now:          time.Now,
	}
}

// CreatedResponse carries the form values to reset to, prefilled from the
// requester's profile.
type CreatedResponse struct {
	Request  *domain.BloodRequest `json:"request"`
	Defaults forms.RequestBlood   `json:"defaults"`
	Notice   Notice               `json:"notice"`
	FollowUp FollowUp             `json:"followUp"`
}

var submitFailed = Notice{
	Title:       "Submission Failed",
	Description: "There was an error submitting your request. Please try again.",
}

func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthenticated, Notice{
			Title:       "Authentication Required",
			Description: "You must be logged in to request blood.",
		}, nil)
		return
	}

	var form forms.RequestBlood
	if err := decodeJSON(w, r, &form); err != nil {
		writeError(w, h.logger, err, submitFailed, nil)
		return
	}

	req, err := h.requests.Create(r.Context(), session.User, form)
	if err != nil {
		writeError(w, h.logger, err, submitFailed, form)
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, CreatedResponse{
		Request:  req,
		Defaults: h.defaults(r, session),
		Notice: Notice{
			Title:       "Request Submitted",
			Description: "Your blood request has been successfully submitted.",
		},
		FollowUp: followReset,
	})
}

func (h *RequestHandler) defaults(r *http.Request, session domain.Session) forms.RequestBlood {
	if h.registration == nil {
		return forms.RequestBlood{}
	}
	state, err := h.registration.State(r.Context(), session)
	if err != nil {
		h.logger.Warn("could not load profile for form defaults", zap.String("uid", session.User.UID), zap.Error(err))
		return forms.RequestBlood{}
	}
	return forms.RequestDefaults(state.Profile)
}

// List serves the open request board. Failures are reported inside the view.
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.board.List(r.Context(), h.now()))
}

func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	req, err := h.requests.Find(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err, Notice{Title: "Request Unavailable", Description: "Could not load this blood request."}, nil)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, req)
}
