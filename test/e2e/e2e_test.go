// test/e2e/e2e_test.go
package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"royalty-portal/internal/common/backend"
	"royalty-portal/internal/common/config"
	"royalty-portal/internal/common/logger"
	"royalty-portal/internal/server"
	"royalty-portal/internal/session"
)

// royaltyAPI is an in-memory stand-in for the royalty backend.
type royaltyAPI struct {
	mu               sync.Mutex
	companyPopulated bool
	onboarded        bool
	paid             bool
	active           map[string]bool
	exchanges        int
	selections       [][]string
}

func newRoyaltyAPI() *royaltyAPI {
	return &royaltyAPI{active: map[string]bool{"001": true, "002": false, "003": false}}
}

func (a *royaltyAPI) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /quickbooks/store-qbo-oauth", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		a.exchanges++
		a.mu.Unlock()
		reply(w, http.StatusOK, `{"access_token": "tok-1", "user_id": "u1", "realm_id": "realm-1", "email": "owner@example.com"}`)
	})
	mux.HandleFunc("GET /quickbooks/qbo-user/{realm}", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		defer a.mu.Unlock()
		reply(w, http.StatusOK, fmt.Sprintf(`{"user_id": "u1", "email": "owner@example.com", "onboarding_completed": "%t"}`, a.onboarded))
	})
	mux.HandleFunc("GET /quickbooks/company-info/{realm}", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		defer a.mu.Unlock()
		if !a.companyPopulated {
			reply(w, http.StatusNotFound, `{"detail": "Company not found"}`)
			return
		}
		reply(w, http.StatusOK, fmt.Sprintf(`{"company_name": "Acme Franchising", "onboarding_completed": "%t"}`, a.onboarded))
	})
	mux.HandleFunc("GET /quickbooks/fetch-company-info/{realm}", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.companyPopulated = true
		reply(w, http.StatusOK, `{"company_name": "Acme Franchising", "onboarding_completed": "false"}`)
	})
	mux.HandleFunc("GET /licenses/company/{realm}", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		defer a.mu.Unlock()
		reply(w, http.StatusOK, fmt.Sprintf(`{"company_name": "Acme Franchising", "licenses": [
			{"franchise_number": "001", "name": "North", "city": "Austin", "quickbooks": {"is_active": "%t"}},
			{"franchise_number": "002", "name": "South", "city": "Dallas", "quickbooks": {"is_active": "%t"}},
			{"franchise_number": "003", "name": "East", "city": "Houston", "quickbooks": {"is_active": "%t"}}
		]}`, a.active["001"], a.active["002"], a.active["003"]))
	})
	mux.HandleFunc("POST /licenses/company/{realm}/select-licenses", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			FranchiseNumbers []string `json:"franchise_numbers"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		a.mu.Lock()
		defer a.mu.Unlock()
		a.selections = append(a.selections, body.FranchiseNumbers)
		for k := range a.active {
			a.active[k] = false
		}
		for _, fn := range body.FranchiseNumbers {
			a.active[fn] = true
		}
		a.onboarded = true
		reply(w, http.StatusOK, fmt.Sprintf(`{"message": "Licenses selected", "selected": %d}`, len(body.FranchiseNumbers)))
	})
	mux.HandleFunc("GET /subscriptions/company/{realm}", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		defer a.mu.Unlock()
		if !a.paid {
			reply(w, http.StatusOK, `{"status": "no_subscription"}`)
			return
		}
		reply(w, http.StatusOK, `{"status": "active", "quantity": 2}`)
	})
	mux.HandleFunc("POST /stripe/create-checkout-session", func(w http.ResponseWriter, r *http.Request) {
		var body backend.CheckoutRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		a.mu.Lock()
		a.paid = body.Quantity > 0
		a.mu.Unlock()
		reply(w, http.StatusOK, `{"checkout_url": "https://checkout.stripe.test/c/1", "session_id": "cs_1"}`)
	})
	mux.HandleFunc("GET /rvcr/list/{realm}", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, `[]`)
	})
	mux.HandleFunc("GET /payment-summary/list/{realm}", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusInternalServerError, `{"detail": "report store offline"}`)
	})

	return mux
}

func reply(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// browser replays the session cookie the way a user agent would.
type browser struct {
	t      *testing.T
	srv    *server.Server
	cookie *http.Cookie
}

func (b *browser) do(method, path string) (*http.Response, map[string]interface{}) {
	req := httptest.NewRequest(method, path, nil)
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	resp, err := b.srv.App().Test(req, -1)
	require.NoError(b.t, err)
	defer resp.Body.Close()

	for _, c := range resp.Cookies() {
		if c.Name == "portal_session" && c.Value != "" {
			b.cookie = c
		}
	}

	body := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(b.t, json.Unmarshal(raw, &body))
	}
	return resp, body
}

func newPortal(t *testing.T, api *royaltyAPI) *browser {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	backendSrv := httptest.NewServer(api.handler())
	t.Cleanup(backendSrv.Close)

	log := logger.NewTestLogger(t)
	if os.Getenv("E2E_VERBOSE") == "" {
		log = logger.NewNoOpLogger()
	}

	cfg := &config.Config{
		App:     config.AppConfig{Name: "royalty-portal"},
		Session: config.SessionConfig{CookieName: "portal_session", TTL: 3600000},
		Cache:   config.CacheConfig{Prefix: "e2e:cache", TTL: 60000},
		Wizard:  config.WizardConfig{DefaultPageSize: 25, StateTTL: 3600000},
		OAuth:   config.OAuthConfig{ClaimTTL: 600000},
		Billing: config.BillingConfig{SuccessRecheckDelay: 1},
	}

	srv := server.New(server.Options{
		Config:   cfg,
		Logger:   log,
		Redis:    rdb,
		Sessions: session.NewRedisStore(rdb),
		Backend:  backend.NewClient(backendSrv.URL, backendSrv.Client(), log),
	})
	return &browser{t: t, srv: srv}
}

func TestFirstRunToDashboard(t *testing.T) {
	api := newRoyaltyAPI()
	b := newPortal(t, api)

	t.Log("1. QuickBooks redirects back with a fresh authorization code")
	resp, _ := b.do(http.MethodGet, "/callback?code=auth-code-1&realmId=realm-1")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/onboarding", resp.Header.Get("Location"))
	require.NotNil(t, b.cookie)

	t.Log("2. Company info is populated and franchise selection opens with everything selected")
	resp, view := b.do(http.MethodGet, "/onboarding")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "selecting_franchises", view["state"])
	assert.EqualValues(t, 2, view["step"])
	assert.Equal(t, "Acme Franchising", view["company_name"])
	wizard := view["wizard"].(map[string]interface{})
	assert.EqualValues(t, 3, wizard["total_licenses"])
	assert.EqualValues(t, 3, wizard["selected_count"])

	t.Log("3. One franchise is dropped and the selection saved")
	resp, wv := b.do(http.MethodPost, "/api/wizard/toggle/002")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, wv["selected_count"])

	resp, saved := b.do(http.MethodPost, "/api/wizard/save")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/onboarding", saved["next"])
	require.Len(t, api.selections, 1)
	assert.Equal(t, []string{"001", "003"}, api.selections[0])

	t.Log("4. Onboarding shows the completion step and finishing sends the user to checkout")
	resp, view = b.do(http.MethodGet, "/onboarding")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "complete", view["state"])

	resp, _ = b.do(http.MethodPost, "/onboarding/complete")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/subscribe", resp.Header.Get("Location"))

	resp, _ = b.do(http.MethodGet, "/dashboard")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/subscribe", resp.Header.Get("Location"))

	t.Log("5. Checkout bills the two active franchises and the success page confirms")
	resp, checkout := b.do(http.MethodPost, "/api/billing/checkout")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://checkout.stripe.test/c/1", checkout["url"])

	resp, success := b.do(http.MethodGet, "/success")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, success["active"])
	assert.Equal(t, "/dashboard", success["next"])

	t.Log("6. The dashboard loads and isolates the failing report list")
	resp, overview := b.do(http.MethodGet, "/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, overview["active_count"])
	assert.Equal(t, []interface{}{}, overview["payment_summary_reports"])
	errs := overview["errors"].(map[string]interface{})
	assert.Contains(t, errs, "payment_summary_reports")

	t.Log("7. A browser retry of the same callback does not exchange the code again")
	resp, _ = b.do(http.MethodGet, "/callback?code=auth-code-1&realmId=realm-1")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/onboarding", resp.Header.Get("Location"))
	assert.Equal(t, 1, api.exchanges)
}

func TestManageFranchisesReturnsToDashboard(t *testing.T) {
	api := newRoyaltyAPI()
	api.companyPopulated = true
	api.onboarded = true
	api.paid = true
	b := newPortal(t, api)

	resp, _ := b.do(http.MethodGet, "/callback?code=auth-code-2&realmId=realm-1")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	resp, view := b.do(http.MethodGet, "/onboarding?mode=manage")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "selecting_franchises", view["state"])
	assert.Equal(t, true, view["manage"])
	wizard := view["wizard"].(map[string]interface{})
	assert.EqualValues(t, 1, wizard["selected_count"])

	resp, _ = b.do(http.MethodPost, "/api/wizard/select-all")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, saved := b.do(http.MethodPost, "/api/wizard/save")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/dashboard", saved["next"])

	resp, franchises := b.do(http.MethodGet, "/api/dashboard/franchises")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 3, franchises["active_count"])

	resp, _ = b.do(http.MethodGet, "/onboarding")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
}
