package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/raushankrgupta/tailorme/listing"
	"github.com/raushankrgupta/tailorme/models"
	"github.com/raushankrgupta/tailorme/orders"
	"github.com/raushankrgupta/tailorme/store"
	"github.com/raushankrgupta/tailorme/utils"
)

const orderDeletedMessage = "This order was deleted."

// OrderListResponse is the order list screen: the filtered orders and the
// per-status counts of all orders.
type OrderListResponse struct {
	Orders []models.Order `json:"orders"`
	Counts map[string]int `json:"counts"`
}

// SetStatusRequest represents the payload for an explicit status change
type SetStatusRequest struct {
	Status string `json:"status"`
}

func orderFilter(r *http.Request) listing.OrderFilter {
	q := r.URL.Query()
	return listing.OrderFilter{Query: q.Get("q"), Status: q.Get("status")}
}

func orderList(all []models.Order, filter listing.OrderFilter) OrderListResponse {
	return OrderListResponse{
		Orders: listing.OrderView(all, filter),
		Counts: listing.CountByStatus(all),
	}
}

// ListOrdersHandler lists the tailor's orders, searched with ?q= and ?status=
func (h *Handler) ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[List Orders API]")

	all, err := h.Orders.ListForTailor(r.Context(), currentSession(r).UID, listing.OrderFilter{})
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	res := orderList(all, orderFilter(r))
	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Returning %d of %d orders", len(res.Orders), len(all)))
	utils.RespondJSON(w, http.StatusOK, res)
}

// CreateOrderHandler creates an In-Progress order
func (h *Handler) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Create Order API]")

	var req orders.CreateInput
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}

	order, err := h.Orders.Create(r.Context(), currentSession(r).UID, req)
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Order created with ID: %s", order.ID.Hex()))
	utils.RespondJSON(w, http.StatusCreated, order)
}

// GetOrderHandler returns one order
func (h *Handler) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Get Order API]")

	order, err := h.Orders.Get(r.Context(), currentSession(r).UID, mux.Vars(r)["id"])
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, order)
}

// UpdateOrderHandler applies a partial edit
func (h *Handler) UpdateOrderHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Update Order API]")

	var req orders.UpdateInput
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}

	id := mux.Vars(r)["id"]
	order, err := h.Orders.Update(r.Context(), currentSession(r).UID, id, req)
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Order %s updated", id))
	utils.RespondJSON(w, http.StatusOK, order)
}

// DeleteOrderHandler removes an order permanently
func (h *Handler) DeleteOrderHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Delete Order API]")

	id := mux.Vars(r)["id"]
	if err := h.Orders.Delete(r.Context(), currentSession(r).UID, id); err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Order %s deleted", id))
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Order deleted successfully"})
}

// ToggleOrderStatusHandler flips In-Progress and Completed
func (h *Handler) ToggleOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Toggle Order Status API]")

	order, err := h.Orders.ToggleStatus(r.Context(), currentSession(r).UID, mux.Vars(r)["id"])
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Order %s is now %s", order.ID.Hex(), order.OrderStatus))
	utils.RespondJSON(w, http.StatusOK, order)
}

// SetOrderStatusHandler moves an order to the requested status
func (h *Handler) SetOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Set Order Status API]")

	var req SetStatusRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}

	order, err := h.Orders.SetStatus(r.Context(), currentSession(r).UID, mux.Vars(r)["id"], req.Status)
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Order %s is now %s", order.ID.Hex(), order.OrderStatus))
	utils.RespondJSON(w, http.StatusOK, order)
}

// OrdersStreamHandler pushes the filtered order list whenever an order changes
func (h *Handler) OrdersStreamHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Orders Stream API]")

	filter := orderFilter(r)
	sub, err := h.Orders.Watch(r.Context(), currentSession(r).UID)
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	serveStream(w, r, &logMessageBuilder, sub, func(all []models.Order) (string, interface{}, bool) {
		return "orders", orderList(all, filter), false
	})
}

// OrderStreamHandler pushes one order whenever it changes and ends with a
// deleted event once it is gone.
func (h *Handler) OrderStreamHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Order Stream API]")

	sub, err := h.Orders.WatchOne(r.Context(), currentSession(r).UID, mux.Vars(r)["id"])
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	serveStream(w, r, &logMessageBuilder, sub, func(snap store.OrderSnapshot) (string, interface{}, bool) {
		if snap.Deleted {
			return "deleted", map[string]string{"message": orderDeletedMessage}, true
		}
		return "order", snap.Order, false
	})
}
