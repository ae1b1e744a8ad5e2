package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/order"
)

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var items []order.Item
	err := readObject(r, func(d *jx.Decoder, key string) error {
		if key != "items" {
			return d.Skip()
		}
		if d.Next() == jx.Null {
			return d.Null()
		}
		return d.Arr(func(d *jx.Decoder) error {
			var it order.Item
			if err := d.Obj(func(d *jx.Decoder, key string) (err error) {
				switch key {
				case "productId":
					it.ProductID, err = decodeInt64(d, "items.productId")
				case "quantity":
					it.Quantity, err = decodeInt(d, "items.quantity")
				default:
					err = d.Skip()
				}
				return err
			}); err != nil {
				return err
			}
			items = append(items, it)
			return nil
		})
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	p := principal(r)
	v, err := h.orders.PlaceOrder(r.Context(), p.UserID, p.Role, items)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeOrder(e, v) })
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	raw := r.URL.Query().Get("status")
	if raw == "" {
		writeError(w, r, apperr.Invalid("status", "query parameter is required"))
		return
	}
	status, err := order.ParseStatus(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.orders.UpdateStatus(r.Context(), id, status, principal(r).Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, v) })
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p := principal(r)
	v, err := h.orders.Get(r.Context(), id, p.UserID, p.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, v) })
}

func (h *Handler) myOrders(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	list, err := h.orders.ListForUser(r.Context(), p.UserID, p.UserID, p.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrders(w, list)
}

func (h *Handler) userOrders(w http.ResponseWriter, r *http.Request) {
	target, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p := principal(r)
	list, err := h.orders.ListForUser(r.Context(), target, p.UserID, p.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrders(w, list)
}

func (h *Handler) allOrders(w http.ResponseWriter, r *http.Request) {
	role := principal(r).Role
	var (
		list []order.View
		err  error
	)
	if raw := r.URL.Query().Get("status"); raw != "" {
		var status order.Status
		status, err = order.ParseStatus(raw)
		if err == nil {
			list, err = h.orders.ListByStatus(r.Context(), status, role)
		}
	} else {
		list, err = h.orders.ListAll(r.Context(), role)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrders(w, list)
}

func writeOrders(w http.ResponseWriter, list []order.View) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range list {
				encodeOrder(e, &list[i])
			}
		})
	})
}

func encodeOrder(e *jx.Encoder, v *order.View) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(v.ID) })
		e.Field("userId", func(e *jx.Encoder) { e.Int64(v.UserID) })
		e.Field("userEmail", func(e *jx.Encoder) { e.Str(v.UserEmail) })
		e.Field("totalAmount", func(e *jx.Encoder) { encodeMoney(e, v.Total) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(v.Status)) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, l := range v.Lines {
					e.Obj(func(e *jx.Encoder) {
						e.Field("productId", func(e *jx.Encoder) { e.Int64(l.ProductID) })
						e.Field("productName", func(e *jx.Encoder) { e.Str(l.ProductName) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
						e.Field("price", func(e *jx.Encoder) { encodeMoney(e, l.UnitPrice) })
						e.Field("lineTotal", func(e *jx.Encoder) { encodeMoney(e, l.LineTotal) })
					})
				}
			})
		})
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, v.CreatedAt) })
		e.Field("updatedAt", func(e *jx.Encoder) { encodeTime(e, v.UpdatedAt) })
	})
}
