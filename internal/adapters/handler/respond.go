package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/bloodlinkbd/bloodlink-api/internal/adapters/middleware"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/services"
)

const maxBodyBytes = 1 << 20

// FollowUp tells the client what to do with the form after a successful submission.
type FollowUp struct {
	Action string `json:"action"`
	To     string `json:"to,omitempty"`
}

var (
	followReset   = FollowUp{Action: "reset"}
	followConfirm = FollowUp{Action: "confirm"}
	followHome    = FollowUp{Action: "redirect", To: "/"}
)

// Notice is the toast a client shows after a submission.
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	Retryable bool   `json:"retryable"`
}

// ErrorResponse carries the submitted values back so the client keeps its input.
type ErrorResponse struct {
	Error  APIError `json:"error"`
	Notice *Notice  `json:"notice,omitempty"`
	Values any      `json:"values,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response", zap.Error(err))
	}
}

// classify maps an error to its HTTP status and client-facing description.
// fallback is the message for anything unrecognised.
func classify(err error, fallback string) (int, APIError) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, APIError{Code: "validation_failed", Message: verr.Message, Field: verr.Field}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, APIError{Code: "invalid_credentials", Message: "Invalid email or password. Please try again."}
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, APIError{Code: "unauthenticated", Message: "You must be logged in to do this."}
	case errors.Is(err, domain.ErrEmailInUse):
		return http.StatusConflict, APIError{Code: "email_in_use", Message: "This email address is already in use. Please try another one or log in."}
	case errors.Is(err, domain.ErrWeakPassword):
		return http.StatusUnprocessableEntity, APIError{Code: "weak_password", Message: "The password is too weak. Please choose a stronger password.", Field: "password"}
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden, APIError{Code: "permission_denied", Message: "You do not have permission to do this."}
	case errors.Is(err, domain.ErrSubmissionInFlight):
		return http.StatusConflict, APIError{Code: "submission_in_flight", Message: "This form is already being submitted.", Retryable: true}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, APIError{Code: "not_found", Message: "Not found."}
	case errors.Is(err, domain.ErrFlowDisabled):
		return http.StatusServiceUnavailable, APIError{Code: "ai_disabled", Message: "AI features are not configured on this server."}
	case errors.Is(err, domain.ErrInvalidFlowOutput):
		return http.StatusBadGateway, APIError{Code: "invalid_ai_output", Message: fallback, Retryable: true}
	case errors.Is(err, domain.ErrUnavailable),
		errors.Is(err, services.ErrSyncClosed),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, APIError{Code: "unavailable", Message: fallback, Retryable: true}
	}
	return http.StatusInternalServerError, APIError{Code: "internal", Message: fallback, Retryable: true}
}

// writeError reports err with the failure toast and echoes values.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error, failure Notice, values any) {
	status, apiErr := classify(err, failure.Description)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}

	notice := failure
	if status < http.StatusInternalServerError && apiErr.Field == "" {
		notice.Description = apiErr.Message
	}
	writeJSON(w, logger, status, ErrorResponse{Error: apiErr, Notice: &notice, Values: values})
}

// decodeJSON reads a bounded body into v and rejects unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &domain.ValidationError{Field: "body", Message: "Request body is required."}
		}
		return &domain.ValidationError{Field: "body", Message: fmt.Sprintf("Invalid request body: %v", err)}
	}
	return nil
}

// StateResponse is the profile state a client renders.
type StateResponse struct {
	Phase   services.SyncPhase  `json:"phase"`
	User    *domain.SessionUser `json:"user"`
	Profile *domain.UserProfile `json:"profile"`
	Loading bool                `json:"loading"`
	Error   *string             `json:"error"`
}

func stateResponse(st services.SyncState) StateResponse {
	resp := StateResponse{
		Phase:   st.Phase,
		User:    st.User,
		Profile: st.Profile,
		Loading: st.Loading,
	}
	if st.Err != nil {
		msg := st.Err.Error()
		resp.Error = &msg
	}
	return resp
}

func clientID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(middleware.ClientIDHeader))
}
