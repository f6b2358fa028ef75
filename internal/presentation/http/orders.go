package httppresentation

import (
	"net/http"

	appOrder "github.com/candleshop/shop/internal/application/order"
)

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	o, err := h.svc.Orders.Create.Execute(r.Context(), appOrder.CreateOrderInput{
		Principal: principal(r),
		Items:     toLines(req.Items),
		Address:   req.ShippingAddress.toDomain(),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrder(o))
}

func (h *Handler) handleCreateOrderFromCart(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Orders.CreateFromCart.Execute(r.Context(), appOrder.CreateFromCartInput{Principal: principal(r)})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrder(o))
}

func (h *Handler) handleListMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders.ListMine.Execute(r.Context(), appOrder.ListMyOrdersInput{Principal: principal(r)})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrders(orders))
}

func (h *Handler) handleListAllOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orders, err := h.svc.Orders.ListAll.Execute(r.Context(), appOrder.ListAllOrdersInput{
		Principal: principal(r),
		Search:    q.Get("search"),
		Ordering:  q.Get("ordering"),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrders(orders))
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		notFound(w)
		return
	}
	o, err := h.svc.Orders.Get.Execute(r.Context(), appOrder.GetOrderInput{Principal: principal(r), OrderID: id})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrder(o))
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		notFound(w)
		return
	}
	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	o, err := h.svc.Orders.UpdateStatus.Execute(r.Context(), appOrder.UpdateStatusInput{
		Principal: principal(r),
		OrderID:   id,
		Status:    req.Status,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrder(o))
}
