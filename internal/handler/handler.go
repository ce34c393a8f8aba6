// Package handler exposes the admin order API over HTTP, delegating all
// business logic to the order service.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/shop-order-service/internal/domain/order"
)

// Handler implements the admin order endpoints.
type Handler struct {
	orders *order.Service
}

// NewHandler constructs a Handler backed by the given order service.
func NewHandler(orders *order.Service) *Handler {
	return &Handler{orders: orders}
}

// Routes registers every endpoint on the mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/orders", h.listOrders)
	mux.HandleFunc("POST /admin/orders", h.createOrder)
	mux.HandleFunc("GET /admin/orders/{uid}", h.getOrder)
	mux.HandleFunc("PATCH /admin/orders/{uid}", h.updateOrder)
	mux.HandleFunc("POST /admin/orders/remove", h.removeOrders)
	mux.HandleFunc("POST /admin/orders/status", h.updateStatus)
	mux.HandleFunc("POST /admin/orders/cancel-status", h.updateCancelStatus)
}

// errorResponse is the uniform error body for every non-2xx response.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses. Anything unmapped is a
// 500 with the detail kept out of the response body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classifyError(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		msg = "internal server error"
	}
	writeJSON(w, status, errorResponse{Code: status, Message: msg})
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound, "order not found"
	case errors.Is(err, order.ErrMissingIdentifier),
		errors.Is(err, order.ErrMalformedCursor):
		return http.StatusBadRequest, err.Error()
	}

	var (
		sortErr   *order.InvalidSortFieldError
		dirErr    *order.InvalidDirectionError
		dateErr   *order.InvalidDateFieldError
		statusErr *order.InvalidStatusError
	)
	switch {
	case errors.As(err, &sortErr):
		return http.StatusBadRequest, sortErr.Error()
	case errors.As(err, &dirErr):
		return http.StatusBadRequest, dirErr.Error()
	case errors.As(err, &dateErr):
		return http.StatusBadRequest, dateErr.Error()
	case errors.As(err, &statusErr):
		return http.StatusUnprocessableEntity, statusErr.Error()
	}

	return http.StatusInternalServerError, ""
}

// decodeBody unmarshals a JSON request body into dst, rejecting unknown
// fields so client typos surface as 400s instead of silent no-ops.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, "decode request body")
	}
	return nil
}
