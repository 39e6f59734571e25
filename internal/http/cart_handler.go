package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/brandonecarr/amosmiller-sub002/internal/domain"
	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

// maxBodyBytes bounds request bodies; a cart is a few kilobytes.
const maxBodyBytes = 1 << 20

// RecordService is the cart record backend the handlers expose.
type RecordService interface {
	Load(ctx context.Context, userID string) (domain.Snapshot, error)
	Save(ctx context.Context, userID string, cart domain.Snapshot) error
	Merge(ctx context.Context, userID string, local domain.Snapshot) (domain.Snapshot, error)
	Clear(ctx context.Context, userID string) error
}

type CartHandler struct {
	records RecordService
	timeout time.Duration
}

func NewCartHandler(records RecordService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		records: records,
		timeout: timeout,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "user_id is required")
		return
	}

	cart, err := h.records.Load(ctx, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) SaveCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := chi.URLParam(r, "user_id")
	cart, ok := decodeSnapshot(w, r)
	if !ok {
		return
	}

	if err := h.records.Save(ctx, userID, cart); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) MergeCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := chi.URLParam(r, "user_id")
	local, ok := decodeSnapshot(w, r)
	if !ok {
		return
	}

	merged, err := h.records.Merge(ctx, userID, local)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, merged)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.records.Clear(ctx, chi.URLParam(r, "user_id")); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func decodeSnapshot(w http.ResponseWriter, r *http.Request) (domain.Snapshot, bool) {
	var cart domain.Snapshot
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&cart); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return cart, false
	}

	if !cart.Fulfillment.Type.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_fulfillment", "unknown fulfillment type")
		return cart, false
	}
	for _, item := range cart.Items {
		if item.ProductID == "" {
			respondError(w, http.StatusBadRequest, "invalid_product_id", "productId is required")
			return cart, false
		}
	}
	if cart.Items == nil {
		cart.Items = []domain.LineItem{}
	}
	return cart, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log.WithError(err).
		WithField("request_id", getRequestID(r.Context())).
		WithField("path", r.URL.Path).
		Error("request failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "upstream timed out")
	case errors.Is(err, context.Canceled):
		respondError(w, http.StatusServiceUnavailable, "canceled", "request canceled")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
