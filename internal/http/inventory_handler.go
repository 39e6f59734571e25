package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/brandonecarr/amosmiller-sub002/internal/domain"
)

type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, items []domain.LineItem) ([]domain.InventoryWarning, error)
}

type InventoryHandler struct {
	checker AvailabilityChecker
	timeout time.Duration
}

func NewInventoryHandler(checker AvailabilityChecker, timeout time.Duration) *InventoryHandler {
	return &InventoryHandler{checker: checker, timeout: timeout}
}

type CheckRequestDTO struct {
	Items []domain.LineItem `json:"items"`
}

type CheckResponseDTO struct {
	InvalidItems []domain.InventoryWarning `json:"invalidItems"`
}

func (h *InventoryHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CheckRequestDTO
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	invalid, err := h.checker.CheckAvailability(ctx, req.Items)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if invalid == nil {
		invalid = []domain.InventoryWarning{}
	}

	respondJSON(w, http.StatusOK, CheckResponseDTO{InvalidItems: invalid})
}
