// internal/licenses/handler.go
package licenses

import (
	"context"

	"royalty-portal/internal/common/logger"
	"royalty-portal/internal/session"

	"github.com/gofiber/fiber/v2"
)

// CompletionFunc runs after a successful save with the backend response and
// returns where the browser should go next.
type CompletionFunc func(ctx context.Context, sess *session.Session, w *Wizard, response map[string]interface{}) (string, error)

// GuardFunc runs before the selection is submitted. An error aborts the save
// with nothing sent.
type GuardFunc func(sess *session.Session, w *Wizard) error

type HandlerOptions struct {
	Service    *Service
	CanSave    GuardFunc
	OnComplete CompletionFunc
	Logger     logger.Logger
}

type Handler struct {
	service    *Service
	canSave    GuardFunc
	onComplete CompletionFunc
	logger     logger.Logger
}

func NewHandler(opts HandlerOptions) *Handler {
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	return &Handler{
		service:    opts.Service,
		canSave:    opts.CanSave,
		onComplete: opts.OnComplete,
		logger:     opts.Logger.WithFields(map[string]interface{}{"handler": "wizard"}),
	}
}

// Register mounts the wizard routes on r.
func (h *Handler) Register(r fiber.Router) {
	r.Get("/", h.Open)
	r.Get("/view", h.View)
	r.Post("/query", h.Query)
	r.Post("/toggle/:franchiseNumber", h.Toggle)
	r.Post("/select-all", h.SelectAll)
	r.Post("/deselect-all", h.DeselectAll)
	r.Post("/save", h.Save)
}

// Open (re)loads the license list. ?mode=manage preselects active franchises.
func (h *Handler) Open(c *fiber.Ctx) error {
	w, err := h.service.Open(c.UserContext(), session.FromCtx(c), ParseMode(c.Query("mode")))
	if err != nil {
		return err
	}
	return c.JSON(w.View())
}

func (h *Handler) View(c *fiber.Ctx) error {
	w, err := h.service.Current(c.UserContext(), session.FromCtx(c))
	if err != nil {
		return err
	}
	return c.JSON(w.View())
}

func (h *Handler) Query(c *fiber.Ctx) error {
	update, err := parseQueryUpdate(c.Body())
	if err != nil {
		return err
	}
	return h.mutate(c, func(w *Wizard) error { return w.Apply(update) })
}

func (h *Handler) Toggle(c *fiber.Ctx) error {
	fn := c.Params("franchiseNumber")
	return h.mutate(c, func(w *Wizard) error { return w.Toggle(fn) })
}

func (h *Handler) SelectAll(c *fiber.Ctx) error {
	return h.mutate(c, func(w *Wizard) error {
		w.SelectAll()
		return nil
	})
}

func (h *Handler) DeselectAll(c *fiber.Ctx) error {
	return h.mutate(c, func(w *Wizard) error {
		w.DeselectAll()
		return nil
	})
}

func (h *Handler) Save(c *fiber.Ctx) error {
	sess := session.FromCtx(c)
	var allow func(*Wizard) error
	if h.canSave != nil {
		allow = func(w *Wizard) error { return h.canSave(sess, w) }
	}
	w, response, err := h.service.Save(c.UserContext(), sess, allow)
	if err != nil {
		return err
	}

	result := SaveResult{Response: response}
	if h.onComplete != nil {
		next, err := h.onComplete(c.UserContext(), sess, w, response)
		if err != nil {
			return err
		}
		result.Next = next
	}
	return c.JSON(result)
}

func (h *Handler) mutate(c *fiber.Ctx, fn func(*Wizard) error) error {
	w, err := h.service.Mutate(c.UserContext(), session.FromCtx(c), fn)
	if err != nil {
		return err
	}
	return c.JSON(w.View())
}
