package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jcmexdev/book-escrow/internal/api-gateway/core/ports"
	"github.com/jcmexdev/book-escrow/internal/api-gateway/infra/httpx/middlewares"
	catalogservice "github.com/jcmexdev/book-escrow/internal/catalog-service"
	"github.com/jcmexdev/book-escrow/internal/coordinator/sagalog"
	"github.com/jcmexdev/book-escrow/internal/order-service/app"
	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
	"github.com/jcmexdev/book-escrow/internal/pkg/interceptors/constants"
)

// Handler serves the marketplace JSON API on top of a ports.Marketplace,
// which is either the in-process engine or the order-service gRPC client.
type Handler struct {
	market ports.Marketplace
}

func NewHandler(market ports.Marketplace) *Handler {
	return &Handler{market: market}
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if !decode(w, r, &req, false) {
		return
	}
	if req.BookID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "book_id is required")
		return
	}

	actor := actorOf(r)
	requestID, _ := r.Context().Value(constants.ContextKeyRequestID).(string)
	slog.InfoContext(r.Context(), "creating order", "request_id", requestID, "buyer_id", actor.UserID, "book_id", req.BookID)

	order, err := h.market.CreateOrder(r.Context(), actor, req.BookID)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapOrderToResponse(order))
}

// Checkout runs reserve, create and capture as one saga.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if !decode(w, r, &req, false) {
		return
	}
	if req.BookID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "book_id is required")
		return
	}

	sagaID, order, err := h.market.Checkout(r.Context(), actorOf(r), req.BookID)
	if err != nil {
		code, kind := statusFor(err)
		slog.WarnContext(r.Context(), "checkout failed", "saga_id", sagaID, "book_id", req.BookID, "error", err)
		writeJSON(w, code, ErrorResponse{Error: kind, Message: err.Error(), SagaID: sagaID})
		return
	}
	writeJSON(w, http.StatusCreated, CheckoutResponse{SagaID: sagaID, Order: mapOrderToResponse(order)})
}

func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	l, err := h.market.CheckoutStatus(r.Context(), actorOf(r), chi.URLParam(r, "sagaID"))
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, SagaResponse{
		SagaID:      l.SagaID,
		Status:      string(l.Status),
		CurrentStep: l.CurrentStep,
		Errors:      l.ErrorMessages,
		TraceID:     l.TraceID,
		UpdatedAt:   l.UpdatedAt,
	})
}

func (h *Handler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, func(ctx context.Context, actor app.Actor, id string) (*domain.Order, error) {
		return h.market.GetOrder(ctx, actor, id)
	})
}

func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, h.market.MarkPaid)
}

func (h *Handler) MarkShipped(w http.ResponseWriter, r *http.Request) {
	var req ShipOrderRequest
	if !decode(w, r, &req, true) {
		return
	}
	h.orderAction(w, r, func(ctx context.Context, actor app.Actor, id string) (*domain.Order, error) {
		return h.market.MarkShipped(ctx, actor, id, req.TrackingNumber)
	})
}

func (h *Handler) ConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, h.market.ConfirmDelivery)
}

func (h *Handler) RaiseDispute(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, h.market.RaiseDispute)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if !decode(w, r, &req, true) {
		return
	}
	h.orderAction(w, r, func(ctx context.Context, actor app.Actor, id string) (*domain.Order, error) {
		return h.market.CancelOrder(ctx, actor, id, req.Reason)
	})
}

func (h *Handler) ForceDelivered(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, h.market.ForceDelivered)
}

func (h *Handler) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	var req ResolveDisputeRequest
	if !decode(w, r, &req, false) {
		return
	}
	outcome := domain.Resolution(req.Outcome)
	if !outcome.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_request", "outcome must be refund or release")
		return
	}
	h.orderAction(w, r, func(ctx context.Context, actor app.Actor, id string) (*domain.Order, error) {
		return h.market.ResolveDispute(ctx, actor, id, outcome)
	})
}

func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	actor := actorOf(r)
	orders, err := h.market.ListOrdersForBuyer(r.Context(), actor, actor.UserID)
	h.writeOrders(w, r, orders, err)
}

func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	actor := actorOf(r)
	orders, err := h.market.ListOrdersForSeller(r.Context(), actor, actor.UserID)
	h.writeOrders(w, r, orders, err)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	actor := actorOf(r)
	u, err := h.market.Account(r.Context(), actor, actor.UserID)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, AccountResponse{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		IsBusiness:         u.IsBusiness,
		IsVerified:         u.IsVerified,
		City:               u.City,
		CreatedAt:          u.CreatedAt,
		WalletBalance:      u.WalletBalance,
		FreeBooksThisMonth: u.FreeBooksThisMonth,
	})
}

func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	b, err := h.market.GetBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapBookToResponse(b))
}

func (h *Handler) AddBook(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	if !decode(w, r, &req, false) {
		return
	}
	b, err := h.market.AddBook(r.Context(), actorOf(r), domain.Book{
		Title:          req.Title,
		Author:         req.Author,
		Description:    req.Description,
		Condition:      domain.Condition(req.Condition),
		Price:          req.Price,
		IsDonation:     req.IsDonation,
		DeliveryOption: domain.DeliveryOption(req.DeliveryOption),
		PaymentMethod:  domain.PaymentMethod(req.PaymentMethod),
		City:           req.City,
		Category:       req.Category,
	})
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapBookToResponse(b))
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type orderFunc func(ctx context.Context, actor app.Actor, orderID string) (*domain.Order, error)

func (h *Handler) orderAction(w http.ResponseWriter, r *http.Request, call orderFunc) {
	order, err := call(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(order))
}

func (h *Handler) writeOrders(w http.ResponseWriter, r *http.Request, orders []*domain.Order, err error) {
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	out := OrderListResponse{Orders: make([]OrderResponse, len(orders))}
	for i, o := range orders {
		out.Orders[i] = mapOrderToResponse(o)
	}
	writeJSON(w, http.StatusOK, out)
}

// actorOf returns the actor set by middlewares.Authenticate.
func actorOf(r *http.Request) app.Actor {
	a, _ := middlewares.ActorFrom(r.Context())
	return a
}

// decode reads a JSON body into v. With optional set an empty body is fine.
func decode(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
	return false
}

var errorStatuses = []struct {
	err  error
	code int
	kind string
}{
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{sagalog.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{domain.ErrWindowExpired, http.StatusConflict, "window_expired"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{domain.ErrDonationLimitReached, http.StatusConflict, "donation_limit_reached"},
	{domain.ErrPaymentFailed, http.StatusPaymentRequired, "payment_failed"},
	{domain.ErrConcurrentModification, http.StatusConflict, "concurrent_modification"},
	{catalogservice.ErrReserved, http.StatusConflict, "book_reserved"},
}

func statusFor(err error) (int, string) {
	for _, m := range errorStatuses {
		if errors.Is(err, m.err) {
			return m.code, m.kind
		}
	}
	switch status.Code(err) {
	case codes.Unauthenticated:
		return http.StatusUnauthorized, "unauthenticated"
	case codes.PermissionDenied:
		return http.StatusForbidden, "unauthorized"
	case codes.InvalidArgument:
		return http.StatusBadRequest, "invalid_input"
	case codes.Unavailable, codes.DeadlineExceeded:
		return http.StatusBadGateway, "order_service_unavailable"
	}
	return http.StatusInternalServerError, "internal"
}

func writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	code, kind := statusFor(err)
	if code >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "request failed", "error", err)
	}
	writeError(w, code, kind, err.Error())
}

func mapOrderToResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		ID:               o.ID,
		BookID:           o.BookID,
		BuyerID:          o.BuyerID,
		SellerID:         o.SellerID,
		PaymentMethod:    string(o.PaymentMethod),
		Donation:         o.Donation,
		Price:            o.Price,
		TotalAmount:      o.TotalAmount,
		ShippingFee:      o.ShippingFee,
		PlatformFee:      o.PlatformFee,
		DonationAmount:   o.DonationAmount,
		Status:           string(o.Status),
		TrackingNumber:   o.TrackingNumber,
		PaymentReference: o.PaymentReference,
		CancelReason:     o.CancelReason,
		Resolution:       string(o.Resolution),
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		PaidAt:           o.PaidAt,
		DeliveredAt:      o.DeliveredAt,
		DisputeDeadline:  o.DisputeDeadline,
		CompletedAt:      o.CompletedAt,
		Version:          o.Version,
	}
}

func mapBookToResponse(b *domain.Book) BookResponse {
	return BookResponse{
		ID:             b.ID,
		Title:          b.Title,
		Author:         b.Author,
		Description:    b.Description,
		Condition:      string(b.Condition),
		Price:          b.Price,
		IsDonation:     b.IsDonation,
		DeliveryOption: string(b.DeliveryOption),
		PaymentMethod:  string(b.PaymentMethod),
		City:           b.City,
		SellerID:       b.SellerID,
		Category:       b.Category,
		CreatedAt:      b.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
