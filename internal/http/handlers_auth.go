package httpx

import (
	"log/slog"
	"net/http"
	"strings"

	domainauth "github.com/findash/findash/internal/domain/auth"
	apperrors "github.com/findash/findash/internal/errors"
	"github.com/findash/findash/internal/http/ui/viewmodel"
	"github.com/findash/findash/internal/http/validation"
)

// AuthHandlers provides HTTP handlers for signing in and out.
type AuthHandlers struct {
	Sessions SessionManager
	Shell    *Shell
	UI       *UIHandlers
	Logger   *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type loginForm struct {
	Email  string
	Errors map[string]string
	// Message is the form-level error shown above the fields.
	Message string
}

type loginData struct {
	viewmodel.Layout
	Form loginForm
}

func (h *UIHandlers) renderLogin(w http.ResponseWriter, r *http.Request, status int, form loginForm) {
	if form.Errors == nil {
		form.Errors = map[string]string{}
	}
	h.render(w, r, status, &loginData{
		Layout: buildLayout(r, PageMeta{Title: "Sign in", CurrentPage: PageLogin}),
		Form:   form,
	})
}

// LoginPage shows the sign-in form, or sends a signed-in user to the dashboard.
// GET /login.
func (h *AuthHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	state, _ := h.Shell.Await(r.Context())
	switch state {
	case StateCheckingAuth:
		h.UI.Checking(w, r)
	case StateAuthenticated:
		http.Redirect(w, r, HomePath, http.StatusSeeOther)
	default:
		h.UI.renderLogin(w, r, http.StatusOK, loginForm{})
	}
}

// Login submits the credentials to the backend. Errors are shown on the form
// and as a toast; the backend's message is used when it sent one.
// POST /login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.UI.renderLogin(w, r, http.StatusBadRequest, loginForm{Message: "Could not read the submitted form."})
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	fv := validation.New().
		Validate("email", email, validation.Required("Email", maxEmailLen), validation.Email("Email")).
		Validate("password", password, validation.Present("Password"))
	if !fv.Valid() {
		h.UI.renderLogin(w, r, formStatus(r, http.StatusBadRequest), loginForm{Email: email, Errors: fv.Errors()})
		return
	}

	res, err := h.Sessions.Login(r.Context(), email, password)
	if err != nil {
		h.logger().InfoContext(r.Context(), "login failed", "error_code", string(apperrors.GetCode(err)), "error", err)
		msg := apperrors.UserMessage(err)
		triggerToast(w, Toast{Title: "Login Failed", Description: msg, Variant: ToastError})
		h.UI.renderLogin(w, r, formStatus(r, statusFor(err)), loginForm{Email: email, Message: msg})
		return
	}

	triggerToast(w, Toast{
		Title:       "Login Successful",
		Description: "Welcome back, " + res.User.Name + "!",
		Variant:     ToastSuccess,
		Redirect:    true,
	})
	if IsHTMX(r) {
		HTMX(w).Redirect(HomePath)
		return
	}
	http.Redirect(w, r, HomePath, http.StatusSeeOther)
}

// Logout ends the session. It always succeeds from the user's point of view.
// POST /logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Logout(r.Context())
	triggerToast(w, Toast{
		Title:       "Logged Out",
		Description: "You have been successfully logged out.",
		Variant:     ToastSuccess,
		Redirect:    true,
	})
	if IsHTMX(r) {
		HTMX(w).Redirect(LoginPath)
		return
	}
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

// StatusResponse is the body of GET /auth/status.
type StatusResponse struct {
	State      AuthState        `json:"state"`
	User       *domainauth.User `json:"user"`
	Navigation []string         `json:"navigation"`
	Features   []string         `json:"features"`
}

// Status reports the shell state as JSON for scripts and health checks.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	state, user := h.Shell.Await(r.Context())
	resp := StatusResponse{State: state, Navigation: []string{}, Features: []string{}}
	if user != nil {
		resp.User = user
		for _, item := range domainauth.Navigation(*user) {
			resp.Navigation = append(resp.Navigation, item.Path)
		}
		for _, p := range domainauth.AccessibleFeatures(user.Role) {
			resp.Features = append(resp.Features, string(p))
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}

// formStatus keeps htmx form responses at 200 so the fragment is swapped in.
func formStatus(r *http.Request, status int) int {
	if IsHTMX(r) {
		return http.StatusOK
	}
	return status
}
