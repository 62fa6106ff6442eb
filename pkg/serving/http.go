package serving

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cardioguard/platform/pkg/api"
	"github.com/cardioguard/platform/pkg/common/logger"
	"github.com/cardioguard/platform/pkg/common/models"
	"github.com/cardioguard/platform/pkg/features"
	"github.com/cardioguard/platform/pkg/observability/metrics"
	"github.com/gorilla/mux"
)

const homeStatus = "CardioGuard Backend Running"

type Pinger interface {
	Ping(ctx context.Context) error
}

type HTTPHandler struct {
	service *Service
	store   Pinger
}

// NewHTTPHandler serves the inference routes. store backs /health and may be nil.
func NewHTTPHandler(service *Service, store Pinger) *HTTPHandler {
	return &HTTPHandler{service: service, store: store}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/", h.handleHome).Methods(http.MethodGet)
	router.HandleFunc("/predict", h.handlePredict).Methods(http.MethodPost)
	router.HandleFunc("/history", h.handleHistory).Methods(http.MethodGet)
	router.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/metrics", handleMetrics).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleHome(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, models.StatusResponse{Status: homeStatus})
}

func (h *HTTPHandler) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req models.PredictRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		metrics.IncInputError()
		logger.Log.WithError(err).Warn("invalid prediction payload")
		api.WriteError(w, api.DecodeStatus(err), "invalid request body: "+err.Error())
		return
	}

	resp, err := h.service.Predict(r.Context(), req)
	if err != nil {
		if features.IsInputError(err) {
			api.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		var inferenceErr *InferenceError
		if errors.As(err, &inferenceErr) {
			logger.Log.WithError(err).Error("prediction failed")
			api.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		logger.Log.WithError(err).Error("unexpected prediction error")
		api.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	api.WriteJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.History(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to read prediction history")
		api.WriteError(w, http.StatusInternalServerError, "failed to read prediction history")
		return
	}
	api.WriteJSON(w, http.StatusOK, records)
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			api.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}
	api.WriteJSON(w, http.StatusOK, models.StatusResponse{Status: "healthy"})
}

func handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics.WritePrometheus(w)
}
