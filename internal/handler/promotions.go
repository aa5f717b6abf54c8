package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dineflow/api/internal/service"
	"github.com/go-chi/chi/v5"
)

// PromotionServicer sends promotional messages.
// Satisfied by *service.PromotionService.
type PromotionServicer interface {
	Broadcast(ctx context.Context, businessID int64, message string, customerIDs []int64) ([]service.Delivery, error)
}

type PromotionHandler struct {
	svc PromotionServicer
}

func NewPromotionHandler(svc PromotionServicer) *PromotionHandler {
	return &PromotionHandler{svc: svc}
}

// RegisterRoutes registers the broadcast endpoint, mounted at /promotions.
func (h *PromotionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/broadcast", h.Broadcast)
}

type broadcastRequest struct {
	Message     string  `json:"message"`
	CustomerIDs []int64 `json:"customer_ids"`
}

type broadcastResponse struct {
	Recipients int                `json:"recipients"`
	Sent       int                `json:"sent"`
	Deliveries []service.Delivery `json:"deliveries"`
}

// Broadcast messages the selected customers, or every reachable customer
// when customer_ids is empty, and reports the outcome per recipient.
func (h *PromotionHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	businessID, ok := ownerBusiness(w, r)
	if !ok {
		return
	}

	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	deliveries, err := h.svc.Broadcast(r.Context(), businessID, req.Message, req.CustomerIDs)
	if err != nil {
		writeServiceError(w, "broadcast promotion", err)
		return
	}

	resp := broadcastResponse{Recipients: len(deliveries), Deliveries: deliveries}
	if resp.Deliveries == nil {
		resp.Deliveries = []service.Delivery{}
	}
	for _, d := range deliveries {
		if d.Status == service.DeliverySent {
			resp.Sent++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
