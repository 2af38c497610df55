package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRegisterIssuesToken(t *testing.T) {
	h := newTestHandler(t)
	phone := "+15551234567"
	rec := httptest.NewRecorder()
	h.Register(rec, jsonRequest(t, http.MethodPost, "/api/register", map[string]interface{}{
		"email":    "alice@example.com",
		"password": "secret",
		"phone":    phone,
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %s)", rec.Code, rec.Body.String())
	}

	var body tokenResponse
	decodeBody(t, rec, &body)
	if body.TokenType != "bearer" {
		t.Fatalf("expected token_type bearer, got %q", body.TokenType)
	}
	subject, err := h.Tokens.Verify(body.AccessToken)
	if err != nil {
		t.Fatalf("issued token failed verification: %v", err)
	}
	if subject != "alice@example.com" {
		t.Fatalf("expected token subject to be the email, got %q", subject)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	user, ok, err := h.Store.FindUserByEmail(req.Context(), "alice@example.com")
	if err != nil || !ok {
		t.Fatalf("FindUserByEmail = (%v, %v)", ok, err)
	}
	if user.Phone == nil || *user.Phone != phone {
		t.Fatalf("expected phone persisted, got %v", user.Phone)
	}
	if user.PasswordHash == "secret" {
		t.Fatal("password stored in plaintext")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h := newTestHandler(t)
	registerTestUser(t, h, "alice@example.com", "secret")

	rec := httptest.NewRecorder()
	h.Register(rec, jsonRequest(t, http.MethodPost, "/api/register", map[string]interface{}{
		"email":    "alice@example.com",
		"password": "other",
	}))
	assertDetail(t, rec, http.StatusBadRequest, "Email already registered")
}

func TestRegisterValidation(t *testing.T) {
	h := newTestHandler(t)
	cases := []struct {
		name    string
		payload map[string]interface{}
	}{
		{name: "missing email", payload: map[string]interface{}{"password": "secret"}},
		{name: "email without at", payload: map[string]interface{}{"email": "not-an-email", "password": "secret"}},
		{name: "email starting with at", payload: map[string]interface{}{"email": "@example.com", "password": "secret"}},
		{name: "email ending with at", payload: map[string]interface{}{"email": "alice@", "password": "secret"}},
		{name: "missing password", payload: map[string]interface{}{"email": "alice@example.com"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Register(rec, jsonRequest(t, http.MethodPost, "/api/register", tc.payload))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRegisterRejectsMalformedJSON(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/register", nil)
	rec := httptest.NewRecorder()
	h.Register(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty body, got %d", rec.Code)
	}
}

func TestLoginIssuesToken(t *testing.T) {
	h := newTestHandler(t)
	registerTestUser(t, h, "alice@example.com", "secret")

	rec := httptest.NewRecorder()
	h.Login(rec, jsonRequest(t, http.MethodPost, "/api/login", map[string]interface{}{
		"email":    "alice@example.com",
		"password": "secret",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %s)", rec.Code, rec.Body.String())
	}
	var body tokenResponse
	decodeBody(t, rec, &body)
	if body.TokenType != "bearer" {
		t.Fatalf("expected token_type bearer, got %q", body.TokenType)
	}
	if subject, err := h.Tokens.Verify(body.AccessToken); err != nil || subject != "alice@example.com" {
		t.Fatalf("Verify = (%q, %v)", subject, err)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	h := newTestHandler(t)
	registerTestUser(t, h, "alice@example.com", "secret")

	wrongPassword := httptest.NewRecorder()
	h.Login(wrongPassword, jsonRequest(t, http.MethodPost, "/api/login", map[string]interface{}{
		"email":    "alice@example.com",
		"password": "wrong",
	}))
	unknownEmail := httptest.NewRecorder()
	h.Login(unknownEmail, jsonRequest(t, http.MethodPost, "/api/login", map[string]interface{}{
		"email":    "nobody@example.com",
		"password": "secret",
	}))

	for _, rec := range []*httptest.ResponseRecorder{wrongPassword, unknownEmail} {
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if challenge := rec.Header().Get("WWW-Authenticate"); challenge != "Bearer" {
			t.Fatalf("expected WWW-Authenticate: Bearer, got %q", challenge)
		}
	}
	if wrongPassword.Body.String() != unknownEmail.Body.String() {
		t.Fatalf("login failure bodies differ: %q vs %q", wrongPassword.Body.String(), unknownEmail.Body.String())
	}
	assertDetail(t, wrongPassword, http.StatusUnauthorized, "Incorrect email or password")
}

func TestLoginEmailIsCaseSensitive(t *testing.T) {
	h := newTestHandler(t)
	registerTestUser(t, h, "alice@example.com", "secret")

	rec := httptest.NewRecorder()
	h.Login(rec, jsonRequest(t, http.MethodPost, "/api/login", map[string]interface{}{
		"email":    "Alice@example.com",
		"password": "secret",
	}))
	assertDetail(t, rec, http.StatusUnauthorized, "Incorrect email or password")
}

func TestMeReturnsProfile(t *testing.T) {
	h := newTestHandler(t)
	user := registerTestUser(t, h, "alice@example.com", "secret")

	rec := httptest.NewRecorder()
	h.Me(rec, authedRequest(t, http.MethodGet, "/api/me", nil, user))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body meResponse
	decodeBody(t, rec, &body)
	if body.ID != user.ID || body.Email != "alice@example.com" {
		t.Fatalf("unexpected profile: %+v", body)
	}
	if _, err := time.Parse(time.RFC3339Nano, body.CreatedAt); err != nil {
		t.Fatalf("created_at not RFC3339: %v", err)
	}
}

func TestMeWithoutAuthenticatedUser(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.Me(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assertDetail(t, rec, http.StatusUnauthorized, "Could not validate credentials")
	if challenge := rec.Header().Get("WWW-Authenticate"); challenge != "Bearer" {
		t.Fatalf("expected WWW-Authenticate: Bearer, got %q", challenge)
	}
}

func TestAuthenticateRequest(t *testing.T) {
	h := newTestHandler(t)
	user := registerTestUser(t, h, "alice@example.com", "secret")
	token, _, err := h.Tokens.Issue(user.Email)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	got, err := h.AuthenticateRequest(req)
	if err != nil {
		t.Fatalf("AuthenticateRequest returned error: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("expected user %q, got %q", user.ID, got.ID)
	}
}

func TestAuthenticateRequestFailures(t *testing.T) {
	h := newTestHandler(t)
	registerTestUser(t, h, "alice@example.com", "secret")

	orphanToken, _, err := h.Tokens.Issue("ghost@example.com")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	cases := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "not bearer", header: "Basic abc"},
		{name: "garbage token", header: "Bearer not-a-token"},
		{name: "valid token for deleted account", header: "Bearer " + orphanToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if _, err := h.AuthenticateRequest(req); err == nil {
				t.Fatal("expected authentication to fail")
			}
		})
	}
}

func TestExtractToken(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   string
	}{
		{name: "standard", header: "Bearer abc123", want: "abc123"},
		{name: "lowercase scheme", header: "bearer abc123", want: "abc123"},
		{name: "missing", header: "", want: ""},
		{name: "wrong scheme", header: "Basic abc123", want: ""},
		{name: "scheme only", header: "Bearer", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if got := ExtractToken(req); got != tc.want {
				t.Fatalf("ExtractToken = %q, want %q", got, tc.want)
			}
		})
	}
}
