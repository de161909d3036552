package httpx

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csrfHandler(t *testing.T, cfg CSRFConfig) (http.Handler, *string) {
	t.Helper()
	var seen string
	h := CSRFProtection(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCSRFToken(r)
		w.WriteHeader(http.StatusOK)
	}))
	return h, &seen
}

func TestCSRF_IssuesCookieOnSafeRequest(t *testing.T) {
	h, seen := csrfHandler(t, CSRFConfig{CookieDomain: "finance.example.com"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, DefaultCSRFCookieName, c.Name)
	assert.NotEmpty(t, c.Value)
	assert.Equal(t, "finance.example.com", c.Domain)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.False(t, c.HttpOnly)
	assert.False(t, c.Secure)
	assert.Equal(t, c.Value, *seen)
}

func TestCSRF_SecureBehindTLSProxy(t *testing.T) {
	h, _ := csrfHandler(t, CSRFConfig{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "http, HTTPS")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].Secure)
}

func TestCSRF_ReusesExistingCookie(t *testing.T) {
	h, seen := csrfHandler(t, CSRFConfig{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: "existing"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, "existing", *seen)
}

func TestCSRF_UnsafeMethods(t *testing.T) {
	tests := []struct {
		name       string
		cookie     string
		header     string
		form       url.Values
		wantStatus int
	}{
		{"header matches", "tok", "tok", nil, http.StatusOK},
		{"form field matches", "tok", "", url.Values{"csrf_token": {"tok"}}, http.StatusOK},
		{"header mismatch", "tok", "other", nil, http.StatusForbidden},
		{"form mismatch", "tok", "", url.Values{"csrf_token": {"other"}}, http.StatusForbidden},
		{"nothing submitted", "tok", "", nil, http.StatusForbidden},
		{"no cookie", "", "tok", nil, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := csrfHandler(t, CSRFConfig{})

			body := ""
			if tt.form != nil {
				body = tt.form.Encode()
			}
			req := httptest.NewRequest(http.MethodPost, "/logout", strings.NewReader(body))
			if tt.form != nil {
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(DefaultCSRFHeaderName, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestCSRF_CustomNames(t *testing.T) {
	h, _ := csrfHandler(t, CSRFConfig{CookieName: "xsrf", HeaderName: "X-Xsrf"})

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "xsrf", Value: "tok"})
	req.Header.Set("X-Xsrf", "tok")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
