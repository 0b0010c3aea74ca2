// internal/dashboard/handler.go
package dashboard

import (
	"fmt"

	"royalty-portal/internal/common/backend"
	"royalty-portal/internal/common/errors"
	"royalty-portal/internal/common/logger"
	"royalty-portal/internal/session"

	"github.com/gofiber/fiber/v2"
)

type HandlerOptions struct {
	Service *Service
	Logger  logger.Logger
}

type Handler struct {
	service *Service
	logger  logger.Logger
}

func NewHandler(opts HandlerOptions) *Handler {
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	return &Handler{
		service: opts.Service,
		logger:  opts.Logger.WithFields(map[string]interface{}{"handler": "dashboard"}),
	}
}

// RegisterTabs mounts the subscription-protected dashboard API.
func (h *Handler) RegisterTabs(r fiber.Router) {
	r.Get("/overview", h.Overview)
	r.Get("/franchises", h.Franchises)
	r.Put("/franchises/:franchiseNumber", h.Toggle)
	r.Post("/franchises/bulk", h.Bulk)
	r.Get("/reports", h.Reports)
	r.Post("/reports/:type/generate", h.Generate)
	r.Post("/reports/:type/generate-all", h.GenerateAll)
	r.Get("/billing", h.Billing)
	r.Post("/billing/portal", h.Portal)
}

func (h *Handler) Overview(c *fiber.Ctx) error {
	view, err := h.service.Overview(c.UserContext(), session.FromCtx(c))
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func (h *Handler) Franchises(c *fiber.Ctx) error {
	view, err := h.service.Franchises(c.UserContext(), session.FromCtx(c))
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func (h *Handler) Toggle(c *fiber.Ctx) error {
	var req ToggleRequest
	if err := decode(toggleSchema, c.Body(), &req); err != nil {
		return err
	}
	result, err := h.service.Toggle(c.UserContext(), session.FromCtx(c), c.Params("franchiseNumber"), req.Active)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *Handler) Bulk(c *fiber.Ctx) error {
	var req BulkRequest
	if err := decode(bulkSchema, c.Body(), &req); err != nil {
		return err
	}
	result, err := h.service.Bulk(c.UserContext(), session.FromCtx(c), req)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *Handler) Reports(c *fiber.Ctx) error {
	view, err := h.service.Reports(c.UserContext(), session.FromCtx(c))
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func (h *Handler) Generate(c *fiber.Ctx) error {
	kind, err := reportType(c)
	if err != nil {
		return err
	}
	var req GenerateRequest
	if err := decode(generateSchema, c.Body(), &req); err != nil {
		return err
	}
	report, err := h.service.Generate(c.UserContext(), session.FromCtx(c), kind, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

func (h *Handler) GenerateAll(c *fiber.Ctx) error {
	kind, err := reportType(c)
	if err != nil {
		return err
	}
	var req GenerateAllRequest
	if err := decode(generateAllSchema, c.Body(), &req); err != nil {
		return err
	}
	reports, err := h.service.GenerateAll(c.UserContext(), session.FromCtx(c), kind, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"reports": reports})
}

func (h *Handler) Billing(c *fiber.Ctx) error {
	view, err := h.service.Billing(c.UserContext(), session.FromCtx(c))
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func (h *Handler) Portal(c *fiber.Ctx) error {
	view, err := h.service.Portal(c.UserContext(), session.FromCtx(c))
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// Checkout is served to signed-in users without a subscription.
func (h *Handler) Checkout(c *fiber.Ctx) error {
	view, err := h.service.Checkout(c.UserContext(), session.FromCtx(c))
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// Success is the page Stripe returns to after checkout.
func (h *Handler) Success(c *fiber.Ctx) error {
	view, err := h.service.Success(c.UserContext(), session.FromCtx(c))
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func reportType(c *fiber.Ctx) (backend.ReportType, error) {
	kind, ok := backend.ParseReportType(c.Params("type"))
	if !ok {
		return "", errors.NewValidationError(fmt.Sprintf("unknown report type %q", c.Params("type")))
	}
	return kind, nil
}
