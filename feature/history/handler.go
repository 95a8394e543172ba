package history

import (
	"errors"

	"exam-mirror/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the run ledger.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the ledger routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/runs")
	group.Get("/", h.HandleListRuns)
	group.Get("/:id", h.HandleGetRun)
	group.Get("/:id/decisions", h.HandleListDecisions)
}

// HandleListRuns returns the most recent runs.
// GET /runs?limit=N
func (h *Handler) HandleListRuns(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	runs, err := h.service.ListRuns(c.Context(), c.QueryInt("limit", DefaultListLimit))
	if err != nil {
		l.Error("Listing runs failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(runs)
}

// HandleGetRun returns one run and its counters.
// GET /runs/:id
func (h *Handler) HandleGetRun(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	run, err := h.service.GetRun(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, l, err)
	}
	return c.JSON(run)
}

// HandleListDecisions returns the decisions of a run.
// GET /runs/:id/decisions?kind=upload
func (h *Handler) HandleListDecisions(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	decisions, err := h.service.ListDecisions(c.Context(), c.Params("id"), c.Query("kind"))
	if err != nil {
		return h.fail(c, l, err)
	}
	return c.JSON(decisions)
}

func (h *Handler) fail(c *fiber.Ctx, l *zap.Logger, err error) error {
	if errors.Is(err, ErrRunNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	l.Error("Ledger query failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
