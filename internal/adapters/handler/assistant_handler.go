package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/services"
)

type AssistantHandler struct {
	assistant *services.Assistant
	logger    *zap.Logger
}

func NewAssistantHandler(assistant *services.Assistant, logger *zap.Logger) *AssistantHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssistantHandler{assistant: assistant, logger: logger}
}

type messageRequest struct {
	Content string `json:"content"`
}

var chatFailed = Notice{Title: "Message Failed", Description: "Your message could not be sent. Please try again."}

func (h *AssistantHandler) Open(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusCreated, h.assistant.Open())
}

func (h *AssistantHandler) Send(w http.ResponseWriter, r *http.Request) {
	var body messageRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.logger, err, chatFailed, nil)
		return
	}

	conv, err := h.assistant.Send(r.Context(), r.PathValue("id"), body.Content)
	if err != nil {
		writeError(w, h.logger, err, chatFailed, body)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, conv)
}

func (h *AssistantHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	conv, err := h.assistant.Transcript(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err, chatFailed, nil)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, conv)
}

func (h *AssistantHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.assistant.Close(r.PathValue("id")); err != nil {
		writeError(w, h.logger, err, chatFailed, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
