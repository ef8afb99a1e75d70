package transactions

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/finledger-app/backend/internal/audit"
	"github.com/finledger-app/backend/internal/auth"
	"github.com/finledger-app/backend/internal/config"
)

// Handler exposes the transaction API over HTTP. All routes sit behind the
// auth middleware; the owner id always comes from the token, never from the
// payload.
type Handler struct {
	Manager *Manager
	DB      *pgxpool.Pool
	Log     zerolog.Logger
	Cfg     config.TransactionsConfig
}

func NewHandler(manager *Manager, db *pgxpool.Pool, log zerolog.Logger, cfg config.TransactionsConfig) *Handler {
	return &Handler{Manager: manager, DB: db, Log: log, Cfg: cfg}
}

func (h *Handler) Register(r fiber.Router) {
	r.Post("/transactions", h.Create)
	r.Post("/transactions/internal", h.CreateInternal)
	r.Post("/transactions/bulk", h.CreateBulk)
	r.Get("/transactions", h.List)
	r.Get("/transactions/count", h.Count)
	r.Put("/transactions/:id", h.Edit)
	r.Delete("/transactions/:id", h.Delete)
}

func (h *Handler) Create(c *fiber.Ctx) error {
	ownerID, ok := auth.OwnerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "missing user")
	}

	var cmd NewTransaction
	if err := c.BodyParser(&cmd); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	cmd.OwnerID = ownerID
	if err := h.checkDescription(cmd.Description); err != nil {
		return err
	}

	id, err := h.Manager.ApplyTransaction(c.Context(), cmd)
	if err != nil {
		return h.mapError(err)
	}

	h.writeAudit(c, ownerID, "transaction.create", audit.EntityTransaction, id)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

func (h *Handler) CreateInternal(c *fiber.Ctx) error {
	ownerID, ok := auth.OwnerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "missing user")
	}

	var cmd NewInternalTransfer
	if err := c.BodyParser(&cmd); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	cmd.OwnerID = ownerID
	if err := h.checkDescription(cmd.Description); err != nil {
		return err
	}

	id, err := h.Manager.ApplyInternalTransfer(c.Context(), cmd)
	if err != nil {
		return h.mapError(err)
	}

	h.writeAudit(c, ownerID, "transaction.transfer", audit.EntityTransfer, id)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

func (h *Handler) CreateBulk(c *fiber.Ctx) error {
	ownerID, ok := auth.OwnerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "missing user")
	}

	batch, err := DecodeBulk(c.Body(), ownerID, h.Cfg.MaxPerListRequest)
	if err != nil {
		return h.mapError(err)
	}

	if err := h.Manager.ApplyBulkTransactions(c.Context(), batch, ownerID); err != nil {
		return h.mapError(err)
	}

	h.writeAudit(c, ownerID, "transaction.bulk", audit.EntityTransaction, 0)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"applied": len(batch)})
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	ownerID, ok := auth.OwnerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "missing user")
	}

	id, err := parseTransactionID(c)
	if err != nil {
		return err
	}

	owns, err := h.Manager.UserOwnsTransaction(c.Context(), ownerID, id)
	if err != nil {
		return h.mapError(err)
	}
	if !owns {
		return fiber.NewError(fiber.StatusNotFound, "transaction not found")
	}

	if err := h.Manager.CancelTransaction(c.Context(), id); err != nil {
		return h.mapError(err)
	}

	h.writeAudit(c, ownerID, "transaction.cancel", audit.EntityTransaction, id)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) Edit(c *fiber.Ctx) error {
	ownerID, ok := auth.OwnerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "missing user")
	}

	id, err := parseTransactionID(c)
	if err != nil {
		return err
	}

	owns, err := h.Manager.UserOwnsTransaction(c.Context(), ownerID, id)
	if err != nil {
		return h.mapError(err)
	}
	if !owns {
		return fiber.NewError(fiber.StatusNotFound, "transaction not found")
	}

	var cmd EditTransaction
	if err := c.BodyParser(&cmd); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if err := h.checkDescription(cmd.Description); err != nil {
		return err
	}

	if err := h.Manager.EditTransaction(c.Context(), id, cmd); err != nil {
		return h.mapError(err)
	}

	h.writeAudit(c, ownerID, "transaction.edit", audit.EntityTransaction, id)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) List(c *fiber.Ctx) error {
	ownerID, ok := auth.OwnerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "missing user")
	}

	f, err := h.filterFromQuery(c)
	if err != nil {
		return h.mapError(err)
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	count := c.QueryInt("count", h.Cfg.MaxPerListRequest)
	if count <= 0 || count > h.Cfg.MaxPerListRequest {
		count = h.Cfg.MaxPerListRequest
	}

	entries, err := h.Manager.GetTransactions(c.Context(), ownerID, offset, count, f)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(entries)
}

func (h *Handler) Count(c *fiber.Ctx) error {
	ownerID, ok := auth.OwnerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "missing user")
	}

	f, err := h.filterFromQuery(c)
	if err != nil {
		return h.mapError(err)
	}

	n, err := h.Manager.GetTransactionsCount(c.Context(), ownerID, f)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(fiber.Map{"count": n})
}

// filterFromQuery builds a filter from the query string. A fully specified
// time range is bounded; a half-open range passes through unchecked.
func (h *Handler) filterFromQuery(c *fiber.Ctx) (Filter, error) {
	queryPtr := func(key string) *string {
		if !c.Request().URI().QueryArgs().Has(key) {
			return nil
		}
		v := c.Query(key)
		return &v
	}

	f, err := NewFilterFromStrings(
		queryPtr("categories"),
		queryPtr("accounts"),
		queryPtr("currencies"),
		queryPtr("from"),
		queryPtr("to"),
		queryPtr("description"),
	)
	if err != nil {
		return Filter{}, err
	}

	if f.FromTime != nil && f.ToTime != nil && !f.ValidateTime(h.Cfg.MaxFilterRangeDays) {
		return Filter{}, errValidation("time range exceeds %d days", h.Cfg.MaxFilterRangeDays)
	}
	return f, nil
}

func (h *Handler) checkDescription(d *string) error {
	if d != nil && len(*d) > h.Cfg.MaxDescriptionLength {
		return fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("description exceeds %d characters", h.Cfg.MaxDescriptionLength))
	}
	return nil
}

func (h *Handler) mapError(err error) error {
	var bulkErr *BulkRowError
	switch {
	case IsValidation(err):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.As(err, &bulkErr):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "transaction not found")
	default:
		h.Log.Error().Err(err).Msg("transaction request failed")
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) writeAudit(c *fiber.Ctx, ownerID int64, action, entityType string, entityID int64) {
	entry := audit.Entry{
		UserID:     ownerID,
		Action:     action,
		EntityType: entityType,
	}
	if entityID > 0 {
		entry.EntityID = &entityID
	}
	if rid, ok := c.Locals("request_id").(string); ok && rid != "" {
		entry.RequestID = &rid
	}
	if ip := c.IP(); ip != "" {
		entry.IP = &ip
	}

	if err := audit.Write(c.Context(), h.DB, entry); err != nil {
		h.Log.Warn().Err(err).Str("action", action).Msg("audit write failed")
	}
}

func parseTransactionID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid transaction id")
	}
	return id, nil
}
