package accounts

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/finledger-app/backend/internal/audit"
	"github.com/finledger-app/backend/internal/auth"
)

type Handler struct {
	Repo *Repository
	Log  zerolog.Logger
}

func NewHandler(repo *Repository, log zerolog.Logger) *Handler {
	return &Handler{Repo: repo, Log: log}
}

func (h *Handler) Register(r fiber.Router) {
	r.Post("/accounts", h.Create)
	r.Get("/accounts", h.List)
	r.Get("/accounts/:id", h.Get)
	r.Put("/accounts/:id/hidden", h.SetHidden)
}

func (h *Handler) Create(c *fiber.Ctx) error {
	ownerID, ok := auth.OwnerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "missing user")
	}

	var req NewAccount
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if strings.TrimSpace(req.Name) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}
	if req.CurrencyID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "currency_id is required")
	}

	id, err := h.Repo.Create(c.Context(), ownerID, req)
	if err != nil {
		h.Log.Error().Err(err).Msg("account create failed")
		return fiber.NewError(fiber.StatusInternalServerError, "could not create account")
	}

	h.writeAudit(c, ownerID, "account.create", id)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

func (h *Handler) List(c *fiber.Ctx) error {
	ownerID, ok := auth.OwnerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "missing user")
	}

	accounts, err := h.Repo.ListByOwner(c.Context(), ownerID)
	if err != nil {
		h.Log.Error().Err(err).Msg("account list failed")
		return fiber.NewError(fiber.StatusInternalServerError, "could not fetch accounts")
	}
	if accounts == nil {
		accounts = []Account{}
	}
	return c.JSON(accounts)
}

func (h *Handler) Get(c *fiber.Ctx) error {
	ownerID, ok := auth.OwnerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "missing user")
	}

	id, err := parseAccountID(c)
	if err != nil {
		return err
	}

	acc, err := h.Repo.Get(c.Context(), id)
	if errors.Is(err, ErrNotFound) || (err == nil && acc.OwnerID != ownerID) {
		return fiber.NewError(fiber.StatusNotFound, "account not found")
	}
	if err != nil {
		h.Log.Error().Err(err).Msg("account get failed")
		return fiber.NewError(fiber.StatusInternalServerError, "could not fetch account")
	}
	return c.JSON(acc)
}

func (h *Handler) SetHidden(c *fiber.Ctx) error {
	ownerID, ok := auth.OwnerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "missing user")
	}

	id, err := parseAccountID(c)
	if err != nil {
		return err
	}

	var req struct {
		Hidden bool `json:"hidden"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}

	if err := h.Repo.SetHidden(c.Context(), ownerID, id, req.Hidden); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "account not found")
		}
		h.Log.Error().Err(err).Msg("account update failed")
		return fiber.NewError(fiber.StatusInternalServerError, "could not update account")
	}

	h.writeAudit(c, ownerID, "account.update", id)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) writeAudit(c *fiber.Ctx, ownerID int64, action string, entityID int64) {
	entry := audit.Entry{
		UserID:     ownerID,
		Action:     action,
		EntityType: audit.EntityAccount,
		EntityID:   &entityID,
	}
	if rid, ok := c.Locals("request_id").(string); ok && rid != "" {
		entry.RequestID = &rid
	}
	if ip := c.IP(); ip != "" {
		entry.IP = &ip
	}

	if err := audit.Write(c.Context(), h.Repo.Pool, entry); err != nil {
		h.Log.Warn().Err(err).Str("action", action).Msg("audit write failed")
	}
}

func parseAccountID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid account id")
	}
	return id, nil
}
