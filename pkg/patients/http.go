package patients

import (
	"encoding/json"
	"net/http"

	"github.com/cardioguard/platform/pkg/api"
	"github.com/cardioguard/platform/pkg/common/logger"
	"github.com/cardioguard/platform/pkg/common/models"
	"github.com/gorilla/mux"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/patient", h.handleCreate).Methods(http.MethodPost)
}

func (h *HTTPHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePatientRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		logger.Log.WithError(err).Warn("invalid patient payload")
		api.WriteError(w, api.DecodeStatus(err), "invalid request body: "+err.Error())
		return
	}

	if _, err := h.service.Register(r.Context(), req); err != nil {
		if IsValidationError(err) {
			api.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Log.WithError(err).Error("failed to save patient")
		api.WriteError(w, http.StatusInternalServerError, "failed to save patient")
		return
	}

	api.WriteJSON(w, http.StatusOK, models.StatusResponse{Status: "saved"})
}
