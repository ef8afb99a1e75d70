package recurring

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/finledger-app/backend/internal/audit"
	"github.com/finledger-app/backend/internal/auth"
)

type Handler struct {
	Service *Service
	Log     zerolog.Logger
}

func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{Service: service, Log: log}
}

func (h *Handler) Register(r fiber.Router) {
	r.Post("/recurring", h.Create)
	r.Get("/recurring", h.List)
	r.Delete("/recurring/:id", h.Delete)
}

func (h *Handler) Create(c *fiber.Ctx) error {
	ownerID, ok := auth.OwnerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "missing user")
	}

	var rule Rule
	if err := c.BodyParser(&rule); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	rule.OwnerID = ownerID

	if rule.CategoryID <= 0 || rule.AccountID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "category_id and account_id are required")
	}
	if rule.Delta.IsZero() {
		return fiber.NewError(fiber.StatusBadRequest, "delta must not be zero")
	}
	if rule.RepeatDays <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "repeat_days must be positive")
	}
	if rule.NextRepeat.IsZero() {
		rule.NextRepeat = time.Now().AddDate(0, 0, rule.RepeatDays)
	}

	id, err := h.Service.CreateRule(c.Context(), rule)
	if err != nil {
		h.Log.Error().Err(err).Msg("recurring rule create failed")
		return fiber.NewError(fiber.StatusInternalServerError, "could not create rule")
	}

	h.writeAudit(c, ownerID, "recurring_rule.create", id)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

func (h *Handler) List(c *fiber.Ctx) error {
	ownerID, ok := auth.OwnerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "missing user")
	}

	rules, err := h.Service.ListByOwner(c.Context(), ownerID)
	if err != nil {
		h.Log.Error().Err(err).Msg("recurring rule list failed")
		return fiber.NewError(fiber.StatusInternalServerError, "could not fetch rules")
	}
	if rules == nil {
		rules = []Rule{}
	}
	return c.JSON(rules)
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	ownerID, ok := auth.OwnerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "missing user")
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid rule id")
	}

	if err := h.Service.DeleteRule(c.Context(), ownerID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "rule not found")
		}
		h.Log.Error().Err(err).Msg("recurring rule delete failed")
		return fiber.NewError(fiber.StatusInternalServerError, "could not delete rule")
	}

	h.writeAudit(c, ownerID, "recurring_rule.delete", id)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) writeAudit(c *fiber.Ctx, ownerID int64, action string, entityID int64) {
	entry := audit.Entry{
		UserID:     ownerID,
		Action:     action,
		EntityType: audit.EntityRule,
		EntityID:   &entityID,
	}
	if rid, ok := c.Locals("request_id").(string); ok && rid != "" {
		entry.RequestID = &rid
	}
	if ip := c.IP(); ip != "" {
		entry.IP = &ip
	}

	if err := audit.Write(c.Context(), h.Service.Pool, entry); err != nil {
		h.Log.Warn().Err(err).Str("action", action).Msg("audit write failed")
	}
}
