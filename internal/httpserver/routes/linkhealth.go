package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/marks/internal/httpserver/mw"
)

func init() { Register(registerLinkHealth) }

// /api/link-health is public, so it is only rate limited. Clients in the
// ops CIDR list (where linkcheck --report runs) are not limited.
func registerLinkHealth(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.ProbeRateBurst,
		RefillPerIPPerMin: d.ProbeRatePerMin,
		MaxEntries:        10_000,
		TrustProxy:        d.TrustProxy,
		Exempt:            d.AllowedCIDRS,
	})
	r.With(limit).Get("/api/link-health", handlers.LinkHealth(d))
}
