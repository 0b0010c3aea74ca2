// internal/oauth/handler.go
package oauth

import (
	"royalty-portal/internal/session"

	"github.com/gofiber/fiber/v2"
)

type HandlerOptions struct {
	Service  *Service
	Sessions *session.Manager
}

type Handler struct {
	service  *Service
	sessions *session.Manager
}

func NewHandler(opts HandlerOptions) *Handler {
	return &Handler{service: opts.Service, sessions: opts.Sessions}
}

func (h *Handler) Register(r fiber.Router) {
	r.Get("/callback", h.Callback)
	r.Post("/logout", h.Logout)
}

// Callback handles the QuickBooks redirect: GET /callback?code=...&realmId=...
func (h *Handler) Callback(c *fiber.Ctx) error {
	target, err := h.service.Callback(c.UserContext(), session.FromCtx(c), c.Query("code"), c.Query("realmId"))
	if err != nil {
		return err
	}
	return c.Redirect(target, fiber.StatusFound)
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	if err := h.sessions.Destroy(c.UserContext(), session.FromCtx(c)); err != nil {
		return err
	}
	return c.Redirect("/", fiber.StatusFound)
}
