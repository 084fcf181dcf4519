package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcmexdev/book-escrow/internal/api-gateway/infra/httpx/middlewares"
)

func NewRouter(handler *Handler, jwtSecret []byte) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachTracingMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handler.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middlewares.Authenticate(jwtSecret))

		r.Post("/books", handler.AddBook)
		r.Get("/books/{id}", handler.GetBook)

		r.Post("/checkout", handler.Checkout)
		r.Get("/checkout/{sagaID}", handler.GetCheckout)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", handler.CreateOrder)
			r.Get("/{id}", handler.GetOrderByID)
			r.Post("/{id}/pay", handler.MarkPaid)
			r.Post("/{id}/ship", handler.MarkShipped)
			r.Post("/{id}/confirm-delivery", handler.ConfirmDelivery)
			r.Post("/{id}/dispute", handler.RaiseDispute)
			r.Post("/{id}/cancel", handler.CancelOrder)
		})

		r.Route("/admin/orders", func(r chi.Router) {
			r.Use(middlewares.RequireAdmin)
			r.Post("/{id}/deliver", handler.ForceDelivered)
			r.Post("/{id}/resolve", handler.ResolveDispute)
		})

		r.Get("/me/purchases", handler.ListPurchases)
		r.Get("/me/sales", handler.ListSales)
		r.Get("/me/account", handler.GetAccount)
	})
	return r
}
