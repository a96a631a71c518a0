package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/ecobazaar-estimator/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса оценки заказов.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/session", h.OpenSession)
		r.Delete("/session", h.CloseSession)

		r.Post("/estimate", h.Estimate)
		r.Get("/loyalty/standing", h.Standing)

		r.Route("/emission-factors", func(r chi.Router) {
			r.Get("/", h.EmissionFactors)
			r.Post("/footprint", h.Footprint)
			r.Get("/baseline", h.Baseline)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/checkout/summary", h.CheckoutSummary)
			r.Post("/checkout", h.Checkout)

			r.Get("/estimates", h.GetEstimates)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
