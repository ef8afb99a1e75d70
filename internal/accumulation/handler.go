package accumulation

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/finledger-app/backend/internal/audit"
	"github.com/finledger-app/backend/internal/auth"
	"github.com/finledger-app/backend/internal/transactions"
)

type Handler struct {
	Service *Service
	Log     zerolog.Logger
}

func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{Service: service, Log: log}
}

func (h *Handler) Register(r fiber.Router) {
	r.Post("/goals", h.Create)
	r.Get("/goals", h.List)
	r.Get("/goals/:id", h.Get)
	r.Post("/goals/:id/contribute", h.Contribute)
}

func (h *Handler) Create(c *fiber.Ctx) error {
	ownerID, ok := auth.OwnerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "missing user")
	}

	var goal Goal
	if err := c.BodyParser(&goal); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	goal.OwnerID = ownerID

	if strings.TrimSpace(goal.Name) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}
	if goal.TargetAmount.Sign() <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "target_amount must be positive")
	}

	id, err := h.Service.CreateGoal(c.Context(), goal)
	if err != nil {
		h.Log.Error().Err(err).Msg("goal create failed")
		return fiber.NewError(fiber.StatusInternalServerError, "could not create goal")
	}

	h.writeAudit(c, ownerID, "goal.create", id)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

func (h *Handler) List(c *fiber.Ctx) error {
	ownerID, ok := auth.OwnerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "missing user")
	}

	goals, err := h.Service.ListByOwner(c.Context(), ownerID)
	if err != nil {
		h.Log.Error().Err(err).Msg("goal list failed")
		return fiber.NewError(fiber.StatusInternalServerError, "could not fetch goals")
	}
	if goals == nil {
		goals = []Goal{}
	}
	return c.JSON(goals)
}

func (h *Handler) Get(c *fiber.Ctx) error {
	ownerID, ok := auth.OwnerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "missing user")
	}

	id, err := parseGoalID(c)
	if err != nil {
		return err
	}

	goal, err := h.Service.GetGoal(c.Context(), ownerID, id)
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "goal not found")
	}
	if err != nil {
		h.Log.Error().Err(err).Msg("goal get failed")
		return fiber.NewError(fiber.StatusInternalServerError, "could not fetch goal")
	}
	return c.JSON(goal)
}

func (h *Handler) Contribute(c *fiber.Ctx) error {
	ownerID, ok := auth.OwnerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "missing user")
	}

	goalID, err := parseGoalID(c)
	if err != nil {
		return err
	}
	if _, err := h.Service.GetGoal(c.Context(), ownerID, goalID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "goal not found")
		}
		h.Log.Error().Err(err).Msg("goal get failed")
		return fiber.NewError(fiber.StatusInternalServerError, "could not fetch goal")
	}

	var cmd transactions.NewAccumulationTransaction
	if err := c.BodyParser(&cmd); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	cmd.OwnerID = ownerID
	cmd.GoalID = goalID

	id, err := h.Service.Contribute(c.Context(), cmd)
	if err != nil {
		if transactions.IsValidation(err) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		h.Log.Error().Err(err).Msg("goal contribution failed")
		return fiber.NewError(fiber.StatusInternalServerError, "could not apply contribution")
	}

	h.writeAudit(c, ownerID, "goal.contribute", goalID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

func (h *Handler) writeAudit(c *fiber.Ctx, ownerID int64, action string, entityID int64) {
	entry := audit.Entry{
		UserID:     ownerID,
		Action:     action,
		EntityType: audit.EntityGoal,
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

func parseGoalID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid goal id")
	}
	return id, nil
}
