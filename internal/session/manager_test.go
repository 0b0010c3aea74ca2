package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"royalty-portal/internal/common/errors"
	"royalty-portal/internal/common/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestManager(t *testing.T) (*Manager, *RedisStore) {
	_, client := createTestRedis(t)
	store := NewRedisStore(client)
	mgr := NewManager(store, ManagerOptions{
		CookieName: "portal_session",
		TTL:        time.Hour,
		Logger:     logger.NewTestLogger(t),
	})
	return mgr, store
}

func createTestApp(mgr *Manager) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: errors.NewErrorHandler(logger.NewNoOpLogger()).Handle})
	app.Use(mgr.Middleware())

	app.Post("/login", func(c *fiber.Ctx) error {
		return mgr.SetAuth(c.UserContext(), FromCtx(c), Auth{
			AccessToken: "tok",
			RealmID:     "realm-1",
			UserID:      "u1",
			Email:       "owner@example.com",
		})
	})
	app.Get("/whoami", func(c *fiber.Ctx) error {
		s := FromCtx(c)
		return c.JSON(fiber.Map{
			"authenticated": s.Authenticated(),
			"realm":         s.RealmID(),
		})
	})
	app.Post("/logout", func(c *fiber.Ctx) error {
		return mgr.Destroy(c.UserContext(), FromCtx(c))
	})
	return app
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "portal_session" {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

// ==========================
// Core Functionality Tests
// ==========================

func TestMiddleware_CookieIssuedOnlyAfterWrite(t *testing.T) {
	mgr, _ := createTestManager(t)
	app := createTestApp(mgr)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.NoError(t, err)
	assert.Empty(t, resp.Header.Values("Set-Cookie"))

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cookie := sessionCookie(t, resp)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
}

func TestMiddleware_RoundTrip(t *testing.T) {
	mgr, store := createTestManager(t)
	app := createTestApp(mgr)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	cookie := sessionCookie(t, resp)

	values, err := store.Load(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "tok", values[KeyAccessToken])
	assert.Equal(t, "owner@example.com", values[KeyUserEmail])

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "portal_session", Value: cookie.Value})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, cookie.Value, sessionCookie(t, resp).Value)
}

func TestMiddleware_UnknownCookieGetsFreshSession(t *testing.T) {
	mgr, _ := createTestManager(t)
	app := createTestApp(mgr)

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.AddCookie(&http.Cookie{Name: "portal_session", Value: "5f0c6f5e-9a1e-4a53-8d6b-3fd1f6d1b1aa"})
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.NotEqual(t, "5f0c6f5e-9a1e-4a53-8d6b-3fd1f6d1b1aa", sessionCookie(t, resp).Value)
}

func TestManager_Destroy(t *testing.T) {
	mgr, store := createTestManager(t)
	app := createTestApp(mgr)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	cookie := sessionCookie(t, resp)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "portal_session", Value: cookie.Value})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Empty(t, sessionCookie(t, resp).Value)

	values, err := store.Load(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestManager_SubscriptionFlagAndMarkers(t *testing.T) {
	mgr, store := createTestManager(t)
	ctx := context.Background()
	s := newSession("s1", nil, false)

	require.NoError(t, mgr.SetHasSubscription(ctx, s, true))
	assert.True(t, s.HasSubscription())

	require.NoError(t, mgr.SetHasSubscription(ctx, s, false))
	assert.False(t, s.HasSubscription())
	values, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.NotContains(t, values, KeyHasSubscription)

	require.NoError(t, mgr.MarkOnboardingCompleted(ctx, s, "realm-1"))
	assert.True(t, s.OnboardingCompleted("realm-1"))
	assert.False(t, s.OnboardingCompleted("realm-2"))

	require.Error(t, mgr.MarkOnboardingCompleted(ctx, s, ""))

	require.NoError(t, mgr.SetOnboardingStep(ctx, s, "realm-1", "selecting_franchises"))
	assert.Equal(t, "selecting_franchises", s.OnboardingStep("realm-1"))
	assert.Empty(t, s.OnboardingStep("realm-2"))
	require.Error(t, mgr.SetOnboardingStep(ctx, s, "", "complete"))

	require.NoError(t, mgr.ClearOnboardingStep(ctx, s, "realm-1"))
	assert.Empty(t, s.OnboardingStep("realm-1"))
	values, err = store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.NotContains(t, values, OnboardingStepKey("realm-1"))
	assert.Equal(t, "true", values[OnboardingKey("realm-1")])
}

func TestManager_SetAuthClearsOnboardingSteps(t *testing.T) {
	mgr, store := createTestManager(t)
	ctx := context.Background()
	s := newSession("s1", nil, false)

	require.NoError(t, mgr.SetAuth(ctx, s, Auth{AccessToken: "tok", RealmID: "realm-1", UserID: "u1"}))
	require.NoError(t, mgr.SetOnboardingStep(ctx, s, "realm-1", "complete"))
	require.NoError(t, mgr.MarkOnboardingCompleted(ctx, s, "realm-1"))

	require.NoError(t, mgr.SetAuth(ctx, s, Auth{AccessToken: "tok2", RealmID: "realm-2", UserID: "u1"}))
	assert.Empty(t, s.OnboardingStep("realm-1"))
	assert.Empty(t, s.OnboardingStep("realm-2"))
	assert.True(t, s.OnboardingCompleted("realm-1"))

	values, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.NotContains(t, values, OnboardingStepKey("realm-1"))

	require.NoError(t, mgr.SetOnboardingStep(ctx, s, "realm-2", "selecting_franchises"))
	require.NoError(t, mgr.SetAuth(ctx, s, Auth{AccessToken: "tok3", RealmID: "realm-2", UserID: "u1"}))
	assert.Empty(t, s.OnboardingStep("realm-2"))
}

func TestManager_SetAuthClearsStaleSubscription(t *testing.T) {
	mgr, _ := createTestManager(t)
	ctx := context.Background()
	s := newSession("s1", nil, false)

	require.NoError(t, mgr.SetHasSubscription(ctx, s, true))
	require.NoError(t, mgr.SetAuth(ctx, s, Auth{AccessToken: "tok", RealmID: "realm-2", UserID: "u1"}))

	assert.False(t, s.HasSubscription())
	assert.Equal(t, "realm-2", s.RealmID())
	assert.Empty(t, s.UserEmail())
}

func TestManager_NilSession(t *testing.T) {
	mgr, _ := createTestManager(t)

	err := mgr.SetHasSubscription(context.Background(), nil, true)
	assert.True(t, errors.HasCode(err, errors.ErrCodeSessionMissing))
}

func TestSession_Accessors(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		want   bool
	}{
		{name: "token and user", values: map[string]string{KeyAccessToken: "t", KeyUserID: "u"}, want: true},
		{name: "token only", values: map[string]string{KeyAccessToken: "t"}, want: false},
		{name: "user only", values: map[string]string{KeyUserID: "u"}, want: false},
		{name: "empty strings", values: map[string]string{KeyAccessToken: "", KeyUserID: ""}, want: false},
		{name: "stale realm without user", values: map[string]string{KeyRealmID: "r"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession("id", tt.values, true)
			assert.Equal(t, tt.want, s.Authenticated())
		})
	}

	var nilSession *Session
	assert.False(t, nilSession.Authenticated())
	assert.Empty(t, nilSession.RealmID())
	assert.Empty(t, nilSession.Values())
}
