package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/finledger-app/backend/internal/accounts"
	"github.com/finledger-app/backend/internal/accumulation"
	"github.com/finledger-app/backend/internal/config"
	"github.com/finledger-app/backend/internal/recurring"
	"github.com/finledger-app/backend/internal/transactions"
)

// Router wires the domain handlers onto the Fiber app. Every registered
// group sits behind the auth middleware; writes additionally pass the
// per-user rate limiter.
type Router struct {
	Cfg *config.Config

	TransactionsHandler *transactions.Handler
	AccountsHandler     *accounts.Handler
	RecurringHandler    *recurring.Handler
	GoalsHandler        *accumulation.Handler

	AuthMW fiber.Handler
}

func (r *Router) RegisterRoutes(app *fiber.App) {
	app.Use(RequestID())
	app.Use(CorsMiddleware(r.Cfg.CORSOrigin))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", r.AuthMW)
	api.Use(RateLimitWrite(r.Cfg.RateLimit))

	if r.TransactionsHandler != nil {
		r.TransactionsHandler.Register(api)
	}
	if r.AccountsHandler != nil {
		r.AccountsHandler.Register(api)
	}
	if r.RecurringHandler != nil {
		r.RecurringHandler.Register(api)
	}
	if r.GoalsHandler != nil {
		r.GoalsHandler.Register(api)
	}
}
