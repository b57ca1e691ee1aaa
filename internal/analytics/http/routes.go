package analytichttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers payment-behavior endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(30, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/payment-behavior", h.handlePaymentBehavior)
	r.Get("/customers/{customerID}/history", h.handleCustomerHistory)
	r.Get("/stats/tiers", h.handleTierSummary)
	r.Delete("/cache", h.handlePurgeCache)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/annual/{year}", h.handleAnnualReport)
		gr.Get("/ranking", h.handleRanking)
		gr.Get("/top-customers", h.handleTopCustomers)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
