package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ariefcatur/go-poster-orders/internal/auth"
	"github.com/ariefcatur/go-poster-orders/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, actor orders.Actor, req orders.Request, traceID string) (orders.Order, error)
	ListByUser(ctx context.Context, actor orders.Actor) ([]orders.Order, error)
	ListAll(ctx context.Context) ([]orders.AdminOrder, error)
	UpdateStatus(ctx context.Context, orderID, status, traceID string) (orders.Order, error)
	GetOrderItems(ctx context.Context, orderID string, actor orders.Actor) ([]orders.LineItem, error)
}

type Idempotency interface {
	Begin(ctx context.Context, userID int64, key string) (orderID string, started bool, err error)
	Complete(ctx context.Context, userID int64, key, orderID string) error
	Abort(ctx context.Context, userID int64, key string) error
}

type OrdersHandler struct {
	Service OrderService
	Idem    Idempotency // optional
	Log     *zap.Logger
}

// Guards are the middlewares the order routes are mounted behind.
type Guards struct {
	Authn         Middleware
	AuthnNotFound Middleware
	Admin         Middleware
	Checkout      Middleware
}

func (h *OrdersHandler) Register(r chi.Router, g Guards) {
	r.Route("/api/orders", func(r chi.Router) {
		r.With(g.Authn, g.Checkout).Post("/", h.createOrder)
		r.With(g.Authn).Get("/my", h.myOrders)
		r.With(g.AuthnNotFound).Get("/{id}/items", h.orderItems)

		r.With(g.Authn, g.Admin).Get("/", h.listAll)
		r.With(g.Authn, g.Admin).Put("/{id}", h.updateStatus)
	})
}

func actorOf(id auth.Identity) orders.Actor {
	return orders.Actor{UserID: id.UserID, Username: id.Username, Email: id.Email, Admin: id.IsAdmin()}
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	actor := actorOf(id)

	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	reqID := middleware.GetReqID(ctx)

	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if key != "" && h.Idem != nil {
		prev, started, err := h.Idem.Begin(ctx, actor.UserID, key)
		switch {
		case err != nil:
			// Redis is only a shortcut; place the order without replay protection.
			h.Log.Warn("idempotency unavailable", zap.String("request_id", reqID), zap.Error(err))
			key = ""
		case !started && prev == "":
			writeError(w, http.StatusConflict, "An order with this Idempotency-Key is still being processed")
			return
		case !started:
			writeJSON(w, http.StatusOK, createOrderResp{OrderID: prev, Success: true, Message: "Order already created"})
			return
		}
	} else {
		key = ""
	}

	order, err := h.Service.PlaceOrder(ctx, actor, req.toDomain(), reqID)
	if err != nil {
		if key != "" {
			h.releaseKey(actor.UserID, key, reqID)
		}
		h.fail(w, r, err)
		return
	}
	if key != "" {
		h.completeKey(actor.UserID, key, order.ID, reqID)
	}

	writeJSON(w, http.StatusCreated, createOrderResp{OrderID: order.ID, Success: true, Message: "Order created successfully"})
}

// The idempotency key is settled on its own context: the request context may
// already be cancelled, and a key left in flight blocks retries.
func idemCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Second)
}

func (h *OrdersHandler) releaseKey(userID int64, key, reqID string) {
	ctx, cancel := idemCtx()
	defer cancel()
	if err := h.Idem.Abort(ctx, userID, key); err != nil {
		h.Log.Warn("idempotency abort",
			zap.Int64("user_id", userID),
			zap.String("request_id", reqID),
			zap.Error(err))
	}
}

func (h *OrdersHandler) completeKey(userID int64, key, orderID, reqID string) {
	ctx, cancel := idemCtx()
	defer cancel()
	if err := h.Idem.Complete(ctx, userID, key, orderID); err != nil {
		h.Log.Warn("idempotency complete",
			zap.String("order_id", orderID),
			zap.String("request_id", reqID),
			zap.Error(err))
	}
}

func (h *OrdersHandler) myOrders(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Service.ListByUser(ctx, actorOf(id))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) orderItems(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	items, err := h.Service.GetOrderItems(ctx, chi.URLParam(r, "id"), actorOf(id))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *OrdersHandler) listAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Service.ListAll(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Service.UpdateStatus(ctx, chi.URLParam(r, "id"), req.Status, middleware.GetReqID(ctx))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := orderError(err)
	if code >= http.StatusInternalServerError {
		h.Log.Error("order request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
	}
	writeError(w, code, msg)
}
