package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/services"
	"expenses/internal/storage/memory"
)

type testServer struct {
	*Server
	store *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.New()
	srv, err := NewServer(":0", Deps{
		Logger:             applog.New(applog.Config{Output: io.Discard}),
		Identity:           services.NewIdentityService(store, store, time.Hour),
		Expenses:           services.NewExpenseService(store, nil, time.Minute),
		Limits:             services.NewLimitService(store, store),
		Store:              store,
		RateLimitPerMinute: 1000,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return &testServer{Server: srv, store: store}
}

func (ts *testServer) do(t *testing.T, method, target string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	return rr
}

// signUp registers and logs in, returning the session cookie.
func (ts *testServer) signUp(t *testing.T, username string) *http.Cookie {
	t.Helper()
	creds := url.Values{"username": {username}, "password": {"pw-" + username}}
	if rr := ts.do(t, http.MethodPost, "/register", creds, nil); rr.Code != http.StatusFound {
		t.Fatalf("register %s: %d %s", username, rr.Code, rr.Body.String())
	}
	rr := ts.do(t, http.MethodPost, "/login", creds, nil)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/" {
		t.Fatalf("login %s: %d", username, rr.Code)
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatalf("no session cookie for %s", username)
	return nil
}

func (ts *testServer) add(t *testing.T, cookie *http.Cookie, amount, category, date string) *httptest.ResponseRecorder {
	t.Helper()
	return ts.do(t, http.MethodPost, "/add", url.Values{
		"amount": {amount}, "category": {category}, "description": {"d"}, "date": {date},
	}, cookie)
}

func (ts *testServer) expensesOf(t *testing.T, userID int64) []core.Expense {
	t.Helper()
	out, err := ts.store.ListExpenses(context.Background(), core.NewFilter(userID), core.DateDesc)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return out
}

func TestProtectedRoutesRedirectToLogin(t *testing.T) {
	ts := newTestServer(t)
	routes := []struct{ method, path string }{
		{http.MethodGet, "/"},
		{http.MethodGet, "/add"},
		{http.MethodPost, "/add"},
		{http.MethodGet, "/edit/1"},
		{http.MethodPost, "/edit/1"},
		{http.MethodPost, "/delete/1"},
		{http.MethodGet, "/summary"},
		{http.MethodGet, "/monthly"},
		{http.MethodGet, "/export/2024-01"},
		{http.MethodGet, "/set_limit"},
		{http.MethodPost, "/set_limit"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rr := ts.do(t, rt.method, rt.path, url.Values{}, nil)
			if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/login" {
				t.Fatalf("status %d location %q", rr.Code, rr.Header().Get("Location"))
			}
		})
	}

	bogus := &http.Cookie{Name: sessionCookieName, Value: "not-a-session"}
	if rr := ts.do(t, http.MethodGet, "/", nil, bogus); rr.Header().Get("Location") != "/login" {
		t.Fatalf("unknown session not redirected: %d", rr.Code)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "alice")

	rr := ts.do(t, http.MethodPost, "/register", url.Values{"username": {"alice"}, "password": {"other"}}, nil)
	if rr.Code != http.StatusConflict || rr.Body.String() != "Username already exists" {
		t.Fatalf("duplicate: %d %q", rr.Code, rr.Body.String())
	}

	for _, creds := range []url.Values{
		{"username": {"alice"}, "password": {"wrong"}},
		{"username": {"nobody"}, "password": {"pw-alice"}},
	} {
		rr := ts.do(t, http.MethodPost, "/login", creds, nil)
		if rr.Code != http.StatusUnauthorized || rr.Body.String() != "Invalid login" {
			t.Fatalf("bad login: %d %q", rr.Code, rr.Body.String())
		}
	}

	rr = ts.do(t, http.MethodPost, "/register", url.Values{"username": {""}, "password": {"x"}}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty username: %d", rr.Code)
	}

	for _, path := range []string{"/login", "/register"} {
		if rr := ts.do(t, http.MethodGet, path, nil, nil); rr.Code != http.StatusOK {
			t.Fatalf("GET %s: %d", path, rr.Code)
		}
	}
}

func TestRegisterAndLoginRoundTrip(t *testing.T) {
	tests := []struct {
		name          string
		username      string
		password      string
		loginUsername string
	}{
		{"password over 72 bytes", "alice", strings.Repeat("p", 80), "alice"},
		{"control character in username", "bob\x01", "secret", "bob\x01"},
		{"login without the control character", "carol\x01", "secret", "carol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			rr := ts.do(t, http.MethodPost, "/register", url.Values{"username": {tt.username}, "password": {tt.password}}, nil)
			if rr.Code != http.StatusFound {
				t.Fatalf("register: %d %q", rr.Code, rr.Body.String())
			}
			rr = ts.do(t, http.MethodPost, "/login", url.Values{"username": {tt.loginUsername}, "password": {tt.password}}, nil)
			if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/" {
				t.Fatalf("login: %d %q", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestLogoutEndsSession(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.signUp(t, "alice")

	if rr := ts.do(t, http.MethodGet, "/", nil, cookie); rr.Code != http.StatusOK {
		t.Fatalf("index before logout: %d", rr.Code)
	}
	rr := ts.do(t, http.MethodGet, "/logout", nil, cookie)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/login" {
		t.Fatalf("logout: %d", rr.Code)
	}
	if rr := ts.do(t, http.MethodGet, "/", nil, cookie); rr.Header().Get("Location") != "/login" {
		t.Fatalf("session still valid after logout: %d", rr.Code)
	}
	// Logging out without a session still lands on the login page.
	if rr := ts.do(t, http.MethodGet, "/logout", nil, nil); rr.Header().Get("Location") != "/login" {
		t.Fatalf("anonymous logout: %d", rr.Code)
	}
}

func TestAddAndList(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signUp(t, "alice")
	bob := ts.signUp(t, "bob")

	if rr := ts.add(t, alice, "12.50", "food", "2024-01-15"); rr.Code != http.StatusFound {
		t.Fatalf("add: %d %s", rr.Code, rr.Body.String())
	}
	ts.add(t, alice, "30", "rent", "2024-02-01")
	ts.add(t, bob, "999", "bobs-secret", "2024-01-20")

	rr := ts.do(t, http.MethodGet, "/", nil, alice)
	body := rr.Body.String()
	if rr.Code != http.StatusOK || !strings.Contains(body, "food") || !strings.Contains(body, "42.50") {
		t.Fatalf("index: %d %s", rr.Code, body)
	}
	if strings.Contains(body, "bobs-secret") {
		t.Fatal("listing leaked another user's expense")
	}

	rr = ts.do(t, http.MethodGet, "/?category=food&from_date=2024-01-01&to_date=2024-01-31", nil, alice)
	body = rr.Body.String()
	if strings.Contains(body, "rent") || !strings.Contains(body, "12.50") {
		t.Fatalf("filtered listing: %s", body)
	}
}

func TestAddValidation(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signUp(t, "alice")

	tests := []struct {
		name, amount, category, date, want string
	}{
		{"non-numeric", "abc", "food", "2024-01-01", "invalid amount"},
		{"negative", "-1", "food", "2024-01-01", "invalid amount"},
		{"bad date", "1", "food", "yesterday", "invalid date"},
		{"no category", "1", "", "2024-01-01", "invalid category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.add(t, alice, tt.amount, tt.category, tt.date)
			if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), tt.want) {
				t.Fatalf("%d %s", rr.Code, rr.Body.String())
			}
		})
	}
	if n := len(ts.expensesOf(t, 1)); n != 0 {
		t.Fatalf("%d invalid expenses stored", n)
	}
}

func TestLimitBlocksAdd(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signUp(t, "alice")

	rr := ts.do(t, http.MethodPost, "/set_limit", url.Values{"category": {"food"}, "limit": {"100"}}, alice)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Limit set successfully") {
		t.Fatalf("set limit: %d %s", rr.Code, rr.Body.String())
	}
	ts.add(t, alice, "80", "food", "2024-01-01")

	rr = ts.add(t, alice, "25", "food", "2024-01-02")
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "Expense limit exceeded for food. Limit: 100.00") {
		t.Fatalf("over limit: %d %s", rr.Code, rr.Body.String())
	}
	if n := len(ts.expensesOf(t, 1)); n != 1 {
		t.Fatalf("rejected expense stored, have %d rows", n)
	}

	if rr := ts.add(t, alice, "15", "food", "2024-01-03"); rr.Code != http.StatusFound {
		t.Fatalf("within limit: %d", rr.Code)
	}

	rr = ts.do(t, http.MethodGet, "/set_limit", nil, alice)
	if !strings.Contains(rr.Body.String(), "95.00") {
		t.Fatalf("limit page missing spend: %s", rr.Body.String())
	}

	rr = ts.do(t, http.MethodPost, "/set_limit", url.Values{"category": {"food"}, "limit": {"lots"}}, alice)
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "invalid limit") {
		t.Fatalf("bad limit: %d", rr.Code)
	}
}

func TestEditOwnership(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signUp(t, "alice")
	bob := ts.signUp(t, "bob")
	ts.add(t, alice, "80", "food", "2024-01-01")
	id := ts.expensesOf(t, 1)[0].ID
	target := "/edit/" + itoa(id)

	if rr := ts.do(t, http.MethodGet, target, nil, bob); rr.Code != http.StatusForbidden || rr.Body.String() != "Not allowed" {
		t.Fatalf("foreign edit form: %d %q", rr.Code, rr.Body.String())
	}
	form := url.Values{"amount": {"1"}, "category": {"x"}, "date": {"2024-01-01"}}
	if rr := ts.do(t, http.MethodPost, target, form, bob); rr.Code != http.StatusForbidden {
		t.Fatalf("foreign edit: %d", rr.Code)
	}
	if rr := ts.do(t, http.MethodGet, "/edit/abc", nil, alice); rr.Code != http.StatusNotFound {
		t.Fatalf("non-numeric id: %d", rr.Code)
	}
	if rr := ts.do(t, http.MethodGet, "/edit/9999", nil, alice); rr.Code != http.StatusForbidden {
		t.Fatalf("missing id: %d", rr.Code)
	}

	rr := ts.do(t, http.MethodGet, target, nil, alice)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `value="80.00"`) {
		t.Fatalf("edit form: %d %s", rr.Code, rr.Body.String())
	}
}

func TestEditRespectsLimit(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signUp(t, "alice")
	ts.do(t, http.MethodPost, "/set_limit", url.Values{"category": {"food"}, "limit": {"100"}}, alice)
	ts.add(t, alice, "100", "food", "2024-01-01")
	target := "/edit/" + itoa(ts.expensesOf(t, 1)[0].ID)

	same := url.Values{"amount": {"100"}, "category": {"food"}, "description": {"same"}, "date": {"2024-01-02"}}
	if rr := ts.do(t, http.MethodPost, target, same, alice); rr.Code != http.StatusFound {
		t.Fatalf("same-amount edit rejected: %d %s", rr.Code, rr.Body.String())
	}

	over := url.Values{"amount": {"150"}, "category": {"food"}, "description": {"over"}, "date": {"2024-01-03"}}
	rr := ts.do(t, http.MethodPost, target, over, alice)
	body := rr.Body.String()
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(body, "Expense limit exceeded for food") {
		t.Fatalf("over-limit edit: %d %s", rr.Code, body)
	}
	// The form shows the stored row, not the rejected input.
	if !strings.Contains(body, `value="100.00"`) || !strings.Contains(body, `value="2024-01-02"`) {
		t.Fatalf("edit form not re-filled with stored values: %s", body)
	}
}

func TestDeleteIsSilentForForeignRows(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signUp(t, "alice")
	bob := ts.signUp(t, "bob")
	ts.add(t, alice, "10", "food", "2024-01-01")
	target := "/delete/" + itoa(ts.expensesOf(t, 1)[0].ID)

	if rr := ts.do(t, http.MethodPost, target, url.Values{}, bob); rr.Code != http.StatusFound {
		t.Fatalf("foreign delete: %d", rr.Code)
	}
	if n := len(ts.expensesOf(t, 1)); n != 1 {
		t.Fatal("foreign delete removed the row")
	}
	if rr := ts.do(t, http.MethodPost, "/delete/abc", url.Values{}, alice); rr.Code != http.StatusNotFound {
		t.Fatalf("non-numeric delete: %d", rr.Code)
	}
	ts.do(t, http.MethodPost, target, url.Values{}, alice)
	if n := len(ts.expensesOf(t, 1)); n != 0 {
		t.Fatal("owner delete did not remove the row")
	}
}

func TestSummaries(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signUp(t, "alice")
	ts.add(t, alice, "10", "food", "2024-01-15")
	ts.add(t, alice, "5", "food", "2024-01-31")
	ts.add(t, alice, "7", "bus", "2024-02-02")

	rr := ts.do(t, http.MethodGet, "/summary", nil, alice)
	body := rr.Body.String()
	if rr.Code != http.StatusOK || strings.Index(body, "bus") > strings.Index(body, "food") || !strings.Contains(body, "15.00") {
		t.Fatalf("summary: %s", body)
	}

	rr = ts.do(t, http.MethodGet, "/monthly", nil, alice)
	body = rr.Body.String()
	if rr.Code != http.StatusOK || strings.Index(body, "2024-02") > strings.Index(body, "2024-01") {
		t.Fatalf("monthly order: %s", body)
	}
	if !strings.Contains(body, `href="/export/2024-01"`) {
		t.Fatalf("monthly page lacks export link: %s", body)
	}
}

func TestExport(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signUp(t, "alice")
	ts.add(t, alice, "3", "bus", "2024-01-20")
	ts.add(t, alice, "12.5", "food", "2024-01-05")
	ts.add(t, alice, "9", "food", "2024-02-05")

	rr := ts.do(t, http.MethodGet, "/export/2024-01", nil, alice)
	if rr.Code != http.StatusOK {
		t.Fatalf("export: %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); cd != "attachment; filename=expenses_2024-01.csv" {
		t.Errorf("disposition %q", cd)
	}
	want := "Date,Amount,Category,Description\n2024-01-05,12.50,food,d\n2024-01-20,3.00,bus,d\n"
	if rr.Body.String() != want {
		t.Fatalf("body:\n%s\nwant:\n%s", rr.Body.String(), want)
	}

	if rr := ts.do(t, http.MethodGet, "/export/january", nil, alice); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad month: %d", rr.Code)
	}
}

func TestSystemEndpoints(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := ts.do(t, http.MethodGet, path, nil, nil)
		if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"status"`) {
			t.Fatalf("%s: %d %s", path, rr.Code, rr.Body.String())
		}
	}

	rr := ts.do(t, http.MethodGet, "/metrics", nil, nil)
	for _, name := range []string{"http_requests_total", "expenses_created_total", "cache_hits_total", "rate_limit_hits_total"} {
		if !strings.Contains(rr.Body.String(), name) {
			t.Errorf("metrics missing %s", name)
		}
	}

	rr = ts.do(t, http.MethodGet, "/static/style.css", nil, nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Header().Get("Cache-Control"), "max-age") {
		t.Fatalf("static: %d", rr.Code)
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" || rr.Header().Get("Content-Security-Policy") == "" {
		t.Fatal("security headers missing")
	}
}

type downStore struct{}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestReadyReportsStoreFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.store = nil
	ts.Server.store = downStore{}

	rr := ts.do(t, http.MethodGet, "/readyz", nil, nil)
	if rr.Code != http.StatusServiceUnavailable || !strings.Contains(rr.Body.String(), "connection refused") {
		t.Fatalf("readyz: %d %s", rr.Code, rr.Body.String())
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
