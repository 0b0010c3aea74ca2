// internal/licenses/service.go
package licenses

import (
	"context"

	"royalty-portal/internal/cache"
	"royalty-portal/internal/common/backend"
	"royalty-portal/internal/common/errors"
	"royalty-portal/internal/common/logger"
	"royalty-portal/internal/session"
)

// LicenseSource is the part of the backend client the wizard uses.
type LicenseSource interface {
	GetLicenses(ctx context.Context, token, realmID string) (*backend.LicenseList, error)
	SelectLicenses(ctx context.Context, token, realmID string, franchiseNumbers []string) (map[string]interface{}, error)
}

type ServiceOptions struct {
	Backend  LicenseSource
	Cache    *cache.Cache
	States   *StateStore
	PageSize int
	Logger   logger.Logger
}

type Service struct {
	backend  LicenseSource
	cache    *cache.Cache
	states   *StateStore
	pageSize int
	logger   logger.Logger
}

func NewService(opts ServiceOptions) *Service {
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	return &Service{
		backend:  opts.Backend,
		cache:    opts.Cache,
		states:   opts.States,
		pageSize: opts.PageSize,
		logger:   opts.Logger.WithFields(map[string]interface{}{"component": "licenses"}),
	}
}

// LoadList reads the realm's license list through the shared cache.
func (s *Service) LoadList(ctx context.Context, sess *session.Session) (*backend.LicenseList, error) {
	return cache.Get(ctx, s.cache, cache.ResourceLicenses, sess.RealmID(), func(ctx context.Context) (*backend.LicenseList, error) {
		return s.backend.GetLicenses(ctx, sess.AccessToken(), sess.RealmID())
	})
}

// Open loads the license list and starts a wizard in the given mode,
// replacing any wizard already open for this session and realm.
func (s *Service) Open(ctx context.Context, sess *session.Session, mode Mode) (*Wizard, error) {
	if sess.RealmID() == "" {
		return nil, errors.NewSessionMissingError("realm_id is empty")
	}

	list, err := s.LoadList(ctx, sess)
	if err != nil {
		s.logger.Warn("license list load failed", map[string]interface{}{
			"realmId": sess.RealmID(),
			"error":   err.Error(),
		})
		return nil, loadFailed(err)
	}

	w := NewWizard(sess.RealmID(), mode, list, s.pageSize)
	if err := s.states.Save(ctx, sess.ID(), w); err != nil {
		return nil, errors.NewSessionStoreError(err)
	}

	s.logger.Info("wizard opened", map[string]interface{}{
		"realmId":  sess.RealmID(),
		"mode":     mode,
		"licenses": len(w.Licenses),
		"selected": len(w.Selected),
	})
	return w, nil
}

// Current returns the open wizard or WIZARD_NOT_LOADED.
func (s *Service) Current(ctx context.Context, sess *session.Session) (*Wizard, error) {
	w, err := s.states.Load(ctx, sess.ID(), sess.RealmID())
	if err != nil {
		return nil, errors.NewSessionStoreError(err)
	}
	if w == nil {
		return nil, errors.NewWizardNotLoadedError()
	}
	return w, nil
}

// Mutate applies fn to the open wizard and persists the result. Nothing is
// stored when fn fails.
func (s *Service) Mutate(ctx context.Context, sess *session.Session, fn func(*Wizard) error) (*Wizard, error) {
	w, err := s.Current(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := fn(w); err != nil {
		return nil, err
	}
	if err := s.states.Save(ctx, sess.ID(), w); err != nil {
		return nil, errors.NewSessionStoreError(err)
	}
	return w, nil
}

// Save submits the Selection Set. An empty selection, or one refused by allow,
// is rejected without a network call; a failed submit leaves the wizard
// untouched. On success the license cache is invalidated and the wizard is
// discarded.
func (s *Service) Save(ctx context.Context, sess *session.Session, allow func(*Wizard) error) (*Wizard, map[string]interface{}, error) {
	w, err := s.Current(ctx, sess)
	if err != nil {
		return nil, nil, err
	}

	selected := w.SelectedNumbers()
	if len(selected) == 0 {
		return w, nil, errors.NewEmptySelectionError()
	}
	if allow != nil {
		if err := allow(w); err != nil {
			return w, nil, err
		}
	}

	response, err := s.backend.SelectLicenses(ctx, sess.AccessToken(), w.RealmID, selected)
	if err != nil {
		s.logger.Warn("license selection save failed", map[string]interface{}{
			"realmId":  w.RealmID,
			"selected": len(selected),
			"error":    err.Error(),
		})
		return w, nil, err
	}
	if response == nil {
		response = map[string]interface{}{}
	}

	if err := s.cache.Invalidate(ctx, w.RealmID, cache.ResourceLicenses); err != nil {
		s.logger.Warn("license cache invalidation failed", map[string]interface{}{"error": err.Error()})
	}
	if err := s.states.Discard(ctx, sess.ID(), w.RealmID); err != nil {
		s.logger.Warn("wizard discard failed", map[string]interface{}{"error": err.Error()})
	}

	s.logger.Info("license selection saved", map[string]interface{}{
		"realmId":  w.RealmID,
		"mode":     w.Mode,
		"selected": len(selected),
	})
	return w, response, nil
}

// loadFailed marks an initial load failure as a retryable full-screen error.
func loadFailed(err error) error {
	src := errors.Normalize(err)
	out := *src
	out.Retryable = true
	out.Metadata = map[string]interface{}{
		"screen":   "fullscreen",
		"retryUrl": "/api/wizard",
	}
	return &out
}
