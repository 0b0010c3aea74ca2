// internal/onboarding/handler.go
package onboarding

import (
	"context"

	"royalty-portal/internal/common/logger"
	"royalty-portal/internal/licenses"
	"royalty-portal/internal/session"

	"github.com/gofiber/fiber/v2"
)

// WizardOpener starts the license wizard for step 2.
type WizardOpener interface {
	Open(ctx context.Context, sess *session.Session, mode licenses.Mode) (*licenses.Wizard, error)
}

type HandlerOptions struct {
	Service *Service
	Wizard  WizardOpener
	Logger  logger.Logger
}

type Handler struct {
	service *Service
	wizard  WizardOpener
	logger  logger.Logger
}

func NewHandler(opts HandlerOptions) *Handler {
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	return &Handler{
		service: opts.Service,
		wizard:  opts.Wizard,
		logger:  opts.Logger.WithFields(map[string]interface{}{"handler": "onboarding"}),
	}
}

// View is the JSON rendering of a non-terminal state.
type View struct {
	State       string         `json:"state"`
	Step        int            `json:"step"`
	Manage      bool           `json:"manage"`
	CompanyName string         `json:"company_name,omitempty"`
	RetryPrompt string         `json:"retry_prompt,omitempty"`
	Wizard      *licenses.View `json:"wizard,omitempty"`
}

func (h *Handler) Register(r fiber.Router) {
	r.Get("/", h.Enter)
	r.Post("/retry", h.Retry)
	r.Post("/complete", h.Complete)
}

func (h *Handler) Enter(c *fiber.Ctx) error {
	sess := session.FromCtx(c)
	state, err := h.service.Enter(c.UserContext(), sess, c.Query("mode") == string(licenses.ModeManage))
	if err != nil {
		return err
	}
	return h.render(c, sess, state)
}

func (h *Handler) Retry(c *fiber.Ctx) error {
	sess := session.FromCtx(c)
	state, err := h.service.Retry(c.UserContext(), sess, c.Query("mode") == string(licenses.ModeManage))
	if err != nil {
		return err
	}
	return h.render(c, sess, state)
}

func (h *Handler) Complete(c *fiber.Ctx) error {
	redirect, err := h.service.Finish(c.UserContext(), session.FromCtx(c))
	if err != nil {
		return err
	}
	return c.Redirect(redirect.To, fiber.StatusFound)
}

func (h *Handler) render(c *fiber.Ctx, sess *session.Session, state State) error {
	view := View{State: state.Name(), Step: state.Step()}

	switch st := state.(type) {
	case Redirect:
		return c.Redirect(st.To, fiber.StatusFound)
	case Connecting:
		view.Manage = st.Manage
		view.RetryPrompt = st.RetryPrompt
	case SelectingFranchises:
		view.Manage = st.Manage
		view.CompanyName = st.CompanyName
		mode := licenses.ModeFirstRun
		if st.Manage {
			mode = licenses.ModeManage
		}
		w, err := h.wizard.Open(c.UserContext(), sess, mode)
		if err != nil {
			return err
		}
		wv := w.View()
		view.Wizard = &wv
	case Complete:
	}

	return c.JSON(view)
}
