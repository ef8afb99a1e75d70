package main

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/finledger-app/backend/internal/accounts"
	"github.com/finledger-app/backend/internal/accumulation"
	"github.com/finledger-app/backend/internal/auth"
	"github.com/finledger-app/backend/internal/config"
	"github.com/finledger-app/backend/internal/logger"
	"github.com/finledger-app/backend/internal/recurring"
	"github.com/finledger-app/backend/internal/router"
	"github.com/finledger-app/backend/internal/transactions"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ctx := context.Background()

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("bad DATABASE_URL")
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("pgx pool create failed")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("database ping failed")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "internal server error"

			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				code = fiberErr.Code
				message = fiberErr.Message
			}

			return c.Status(code).JSON(fiber.Map{"error": message})
		},
	})

	app.Use(requestLogger(log))

	// Dev token endpoint
	if strings.EqualFold(os.Getenv("ENV"), "dev") {
		app.Get("/dev/token", func(c *fiber.Ctx) error {
			token, err := auth.IssueToken([]byte(cfg.JWTSecret), 1, 24*time.Hour)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
			}
			return c.JSON(fiber.Map{"token": token})
		})
	}

	store := &transactions.PgStore{Pool: pool}
	runner := transactions.PoolRunner{Pool: pool}

	// The manager and the two kind services reference each other: the
	// services apply through the manager, the manager calls their cancel
	// hooks. Hooks are wired after construction.
	rules := &ruleHooks{}
	goals := &goalHooks{}
	manager := transactions.NewManager(runner, store, rules, goals, log)

	recurringSvc := recurring.NewService(pool, manager, log)
	goalsSvc := accumulation.NewService(pool, manager, log)
	rules.svc = recurringSvc
	goals.svc = goalsSvc

	accountsRepo := accounts.NewRepository(pool)

	authMW := auth.Middleware([]byte(cfg.JWTSecret))

	r := &router.Router{
		Cfg:                 cfg,
		TransactionsHandler: transactions.NewHandler(manager, pool, log, cfg.Transactions),
		AccountsHandler:     accounts.NewHandler(accountsRepo, log),
		RecurringHandler:    recurring.NewHandler(recurringSvc, log),
		GoalsHandler:        accumulation.NewHandler(goalsSvc, log),
		AuthMW:              authMW,
	}
	r.RegisterRoutes(app)

	go runRecurringLoop(ctx, recurringSvc, log)

	log.Info().Str("port", cfg.Port).Msg("listening")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// ruleHooks and goalHooks break the construction cycle between the manager
// and the rule/goal services.
type ruleHooks struct {
	svc *recurring.Service
}

func (h *ruleHooks) TransactionApplied(ctx context.Context, tx pgx.Tx, ruleID int64) error {
	if h.svc == nil {
		return nil
	}
	return h.svc.TransactionApplied(ctx, tx, ruleID)
}

func (h *ruleHooks) TransactionCancelled(ctx context.Context, tx pgx.Tx, ruleID int64) error {
	if h.svc == nil {
		return nil
	}
	return h.svc.TransactionCancelled(ctx, tx, ruleID)
}

type goalHooks struct {
	svc *accumulation.Service
}

func (h *goalHooks) TransactionApplied(ctx context.Context, tx pgx.Tx, goalID int64) error {
	if h.svc == nil {
		return nil
	}
	return h.svc.TransactionApplied(ctx, tx, goalID)
}

func (h *goalHooks) TransactionCancelled(ctx context.Context, tx pgx.Tx, goalID int64) error {
	if h.svc == nil {
		return nil
	}
	return h.svc.TransactionCancelled(ctx, tx, goalID)
}

func runRecurringLoop(ctx context.Context, svc *recurring.Service, log zerolog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		if err := svc.ProcessDue(ctx, time.Now()); err != nil {
			log.Error().Err(err).Msg("recurring pass failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func requestLogger(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("duration", time.Since(start)).
			Msg("request")
		return err
	}
}
