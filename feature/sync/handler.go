package sync

import (
	"context"
	"errors"

	"inventory-sync/core/logger"
	"inventory-sync/core/reconcile"
	"inventory-sync/core/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for sync runs.
type Handler struct {
	service        *Service
	timeoutSeconds int
}

// NewHandler creates a new HTTP handler. Runs triggered over HTTP are bounded
// by timeoutSeconds.
func NewHandler(service *Service, timeoutSeconds int) *Handler {
	return &Handler{service: service, timeoutSeconds: timeoutSeconds}
}

// RegisterRoutes registers the sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sync")
	group.Get("/", h.HandleListSources)
	group.Post("/:source", h.HandleRun)
	group.Get("/:source", h.HandleLastReport)
}

// HandleListSources lists the configured sources.
// @Summary List Sources
// @Description Lists the configured sources in run order with the report of their last run.
// @Tags sync
// @Produce json
// @Success 200 {array} SourceStatus
// @Router /sync [get]
func (h *Handler) HandleListSources(c *fiber.Ctx) error {
	return c.JSON(h.service.Sources())
}

// HandleRun runs one source.
// @Summary Run Source
// @Description Reconciles one source into the inventory. Concurrent requests for the same source share one run.
// @Tags sync
// @Produce json
// @Param source path string true "Source name"
// @Param dry_run query boolean false "Do not write the inventory"
// @Param upload query boolean false "Upload the report to object storage"
// @Success 200 {object} reconcile.RunReport
// @Failure 404 {object} map[string]string "Unknown source"
// @Failure 409 {object} map[string]string "Source disabled"
// @Failure 502 {object} reconcile.RunReport "Source unavailable"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /sync/{source} [post]
func (h *Handler) HandleRun(c *fiber.Ctx) error {
	name := c.Params("source")
	l := logger.WithRayID(h.service.logger, c).With(zap.String("source", name))
	opts := Options{
		DryRun: utils.ToBool(c.Query("dry_run")),
		Upload: utils.ToBool(c.Query("upload")),
	}
	l.Info("Sync run requested", zap.Bool("dry_run", opts.DryRun), zap.Bool("upload", opts.Upload))

	ctx, cancel := context.WithTimeout(c.Context(), runTimeout(h.timeoutSeconds))
	defer cancel()

	report, shared, err := h.service.Run(ctx, name, opts)
	if shared {
		l.Info("Joined sync run in flight")
	}
	switch {
	case errors.Is(err, ErrUnknownSource):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrSourceDisabled):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, reconcile.ErrSourceUnavailable):
		l.Error("Source unavailable", zap.Error(err))
		if report != nil {
			return c.Status(fiber.StatusBadGateway).JSON(report)
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		l.Error("Sync run failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(report)
}

// HandleLastReport returns the report of the last run.
// @Summary Last Report
// @Description Returns the report of the most recent run of a source since the server started.
// @Tags sync
// @Produce json
// @Param source path string true "Source name"
// @Success 200 {object} reconcile.RunReport
// @Failure 404 {object} map[string]string "No run yet"
// @Router /sync/{source} [get]
func (h *Handler) HandleLastReport(c *fiber.Ctx) error {
	name := c.Params("source")
	report, ok := h.service.LastReport(name)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no run recorded for source " + name})
	}
	return c.JSON(report)
}
