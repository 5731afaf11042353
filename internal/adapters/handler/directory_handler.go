package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/services"
)

type DirectoryHandler struct {
	donors    *services.DonorDirectory
	hospitals *services.HospitalDirectory
	logger    *zap.Logger
}

func NewDirectoryHandler(donors *services.DonorDirectory, hospitals *services.HospitalDirectory, logger *zap.Logger) *DirectoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryHandler{donors: donors, hospitals: hospitals, logger: logger}
}

func (h *DirectoryHandler) Donors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.donors.List(r.Context()))
}

func (h *DirectoryHandler) Hospitals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.hospitals.List())
}
