package licenses

import (
	"context"
	"testing"
	"time"

	"royalty-portal/internal/cache"
	"royalty-portal/internal/common/backend"
	"royalty-portal/internal/common/errors"
	"royalty-portal/internal/common/logger"
	"royalty-portal/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Doubles
// ==========================

type mockLicenseSource struct {
	mock.Mock
}

func (m *mockLicenseSource) GetLicenses(ctx context.Context, token, realmID string) (*backend.LicenseList, error) {
	args := m.Called(token, realmID)
	list, _ := args.Get(0).(*backend.LicenseList)
	return list, args.Error(1)
}

func (m *mockLicenseSource) SelectLicenses(ctx context.Context, token, realmID string, franchiseNumbers []string) (map[string]interface{}, error) {
	args := m.Called(token, realmID, franchiseNumbers)
	resp, _ := args.Get(0).(map[string]interface{})
	return resp, args.Error(1)
}

type serviceFixture struct {
	service *Service
	source  *mockLicenseSource
	mr      *miniredis.Miniredis
	manager *session.Manager
	sess    *session.Session
}

func createTestService(t *testing.T) *serviceFixture {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	source := &mockLicenseSource{}
	svc := NewService(ServiceOptions{
		Backend:  source,
		Cache:    cache.New(client, cache.Options{Prefix: "test", TTL: time.Minute}),
		States:   NewStateStore(client, time.Hour),
		PageSize: 25,
		Logger:   logger.NewTestLogger(t),
	})

	mgr := session.NewManager(session.NewRedisStore(client), session.ManagerOptions{TTL: time.Hour})
	sess := createTestSession(t, mgr)

	return &serviceFixture{service: svc, source: source, mr: mr, manager: mgr, sess: sess}
}

// createTestSession writes an authenticated identity through the manager.
func createTestSession(t *testing.T, mgr *session.Manager) *session.Session {
	sess := session.New("sess-1")
	require.NoError(t, mgr.SetAuth(context.Background(), sess, session.Auth{
		AccessToken: "tok",
		RealmID:     "realm-1",
		UserID:      "u1",
	}))
	return sess
}

// ==========================
// Open
// ==========================

func TestService_Open(t *testing.T) {
	f := createTestService(t)
	f.source.On("GetLicenses", "tok", "realm-1").Return(createTestList(), nil).Once()

	w, err := f.service.Open(context.Background(), f.sess, ModeManage)
	require.NoError(t, err)
	assert.Equal(t, []string{"003", "002"}, w.SelectedNumbers())

	current, err := f.service.Current(context.Background(), f.sess)
	require.NoError(t, err)
	assert.Equal(t, w.SelectedNumbers(), current.SelectedNumbers())
	assert.Equal(t, ModeManage, current.Mode)
	assert.True(t, current.Licenses[0].Active)
	f.source.AssertExpectations(t)
}

func TestService_OpenFailureIsRetryable(t *testing.T) {
	f := createTestService(t)
	f.source.On("GetLicenses", "tok", "realm-1").
		Return(nil, errors.NewBackendRejectedError("licenses.list", 400, "Realm is not connected")).Once()

	_, err := f.service.Open(context.Background(), f.sess, ModeFirstRun)
	require.Error(t, err)

	stdErr := errors.Normalize(err)
	assert.Equal(t, errors.ErrCodeBackendRejected, stdErr.Code)
	assert.Equal(t, "Realm is not connected", stdErr.UserMessage())
	assert.True(t, stdErr.Retryable)
	assert.Equal(t, "fullscreen", stdErr.Metadata["screen"])

	_, err = f.service.Current(context.Background(), f.sess)
	assert.True(t, errors.HasCode(err, errors.ErrCodeWizardNotLoaded))
}

func TestService_OpenWithoutRealm(t *testing.T) {
	f := createTestService(t)

	_, err := f.service.Open(context.Background(), session.New("other"), ModeFirstRun)
	assert.True(t, errors.HasCode(err, errors.ErrCodeSessionMissing))
	f.source.AssertNotCalled(t, "GetLicenses", mock.Anything, mock.Anything)
}

// ==========================
// Save
// ==========================

func TestService_SaveEmptySelectionMakesNoCall(t *testing.T) {
	f := createTestService(t)
	f.source.On("GetLicenses", "tok", "realm-1").Return(createTestList(), nil).Once()

	_, err := f.service.Open(context.Background(), f.sess, ModeFirstRun)
	require.NoError(t, err)
	_, err = f.service.Mutate(context.Background(), f.sess, func(w *Wizard) error {
		w.DeselectAll()
		return nil
	})
	require.NoError(t, err)

	_, _, err = f.service.Save(context.Background(), f.sess, nil)
	require.Error(t, err)
	assert.Equal(t, "Please select at least one franchise", errors.Normalize(err).UserMessage())
	f.source.AssertNotCalled(t, "SelectLicenses", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_SaveSuccess(t *testing.T) {
	f := createTestService(t)
	f.source.On("GetLicenses", "tok", "realm-1").Return(createTestList(), nil).Once()
	f.source.On("SelectLicenses", "tok", "realm-1", []string{"003", "001", "004"}).
		Return(map[string]interface{}{"message": "Selected 3 franchises"}, nil).Once()

	_, err := f.service.Open(context.Background(), f.sess, ModeFirstRun)
	require.NoError(t, err)
	_, err = f.service.Mutate(context.Background(), f.sess, func(w *Wizard) error { return w.Toggle("002") })
	require.NoError(t, err)

	_, resp, err := f.service.Save(context.Background(), f.sess, nil)
	require.NoError(t, err)
	assert.Equal(t, "Selected 3 franchises", resp["message"])

	assert.False(t, f.mr.Exists("test:licenses:realm-1"))
	_, err = f.service.Current(context.Background(), f.sess)
	assert.True(t, errors.HasCode(err, errors.ErrCodeWizardNotLoaded))
	f.source.AssertExpectations(t)
}

func TestService_SaveFailureKeepsSelection(t *testing.T) {
	f := createTestService(t)
	f.source.On("GetLicenses", "tok", "realm-1").Return(createTestList(), nil).Once()
	f.source.On("SelectLicenses", "tok", "realm-1", mock.Anything).
		Return(nil, errors.NewBackendRejectedError("licenses.select", 500, "")).Once()

	_, err := f.service.Open(context.Background(), f.sess, ModeManage)
	require.NoError(t, err)

	_, _, err = f.service.Save(context.Background(), f.sess, nil)
	require.Error(t, err)

	current, err := f.service.Current(context.Background(), f.sess)
	require.NoError(t, err)
	assert.Equal(t, []string{"003", "002"}, current.SelectedNumbers())
}

func TestService_MutateFailureIsNotStored(t *testing.T) {
	f := createTestService(t)
	f.source.On("GetLicenses", "tok", "realm-1").Return(createTestList(), nil).Once()

	_, err := f.service.Open(context.Background(), f.sess, ModeManage)
	require.NoError(t, err)

	_, err = f.service.Mutate(context.Background(), f.sess, func(w *Wizard) error {
		w.DeselectAll()
		return w.Toggle("999")
	})
	require.Error(t, err)

	current, err := f.service.Current(context.Background(), f.sess)
	require.NoError(t, err)
	assert.Len(t, current.SelectedNumbers(), 2)
}
