package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SherPsu/cms-blog/internal/access"
	"github.com/SherPsu/cms-blog/internal/middleware"
	"github.com/SherPsu/cms-blog/internal/render"
	"github.com/SherPsu/cms-blog/internal/service"
	"github.com/SherPsu/cms-blog/internal/session"
)

// Auth groups the login, registration, and logout pages.
type Auth struct {
	renderer *render.Renderer
	sessions Sessions
	users    *service.Users
}

// NewAuth creates a new Auth handler group.
func NewAuth(renderer *render.Renderer, sessions Sessions, users *service.Users) *Auth {
	return &Auth{renderer: renderer, sessions: sessions, users: users}
}

// LoginPage renders the login form. Signed-in users are sent on.
func (a *Auth) LoginPage(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"), "")
	if access.IsAuthenticated(middleware.IdentityFromCtx(r.Context())) {
		http.Redirect(w, r, landing(middleware.IdentityFromCtx(r.Context()), next), http.StatusSeeOther)
		return
	}

	a.renderer.Page(w, r, "login", &render.PageData{
		Title: "Log in",
		Data:  map[string]any{"Next": next},
	})
}

// LoginSubmit processes the login form.
func (a *Auth) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	next := safeNext(r.FormValue("next"), "")

	u, err := a.users.Authenticate(r.Context(), username, r.FormValue("password"))
	if err != nil {
		status, message := render.StatusFor(err)
		if status == http.StatusInternalServerError {
			a.renderer.Error(w, r, err)
			return
		}
		a.renderer.PageStatus(w, r, status, "login", &render.PageData{
			Title: "Log in",
			Data:  map[string]any{"Error": message, "Username": username, "Next": next},
		})
		return
	}

	data := session.NewData(u)
	if _, err := a.sessions.Create(r.Context(), w, r, data); err != nil {
		slog.Error("session create failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	slog.Info("user logged in", "user_id", u.ID, "role", u.Role)
	session.SetFlash(w, "success", "Welcome back, "+u.Username+"!")
	http.Redirect(w, r, landing(data.Identity(), next), http.StatusSeeOther)
}

// RegisterPage renders the sign-up form.
func (a *Auth) RegisterPage(w http.ResponseWriter, r *http.Request) {
	if access.IsAuthenticated(middleware.IdentityFromCtx(r.Context())) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	a.renderer.Page(w, r, "register", &render.PageData{Title: "Register"})
}

// RegisterSubmit creates a subscriber account and sends the user to the
// login page.
func (a *Auth) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	in := service.Registration{
		Username:        r.FormValue("username"),
		Email:           r.FormValue("email"),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirm_password"),
	}

	if _, err := a.users.Register(r.Context(), in); err != nil {
		status, message := render.StatusFor(err)
		if status == http.StatusInternalServerError {
			a.renderer.Error(w, r, err)
			return
		}
		a.renderer.PageStatus(w, r, status, "register", &render.PageData{
			Title: "Register",
			Data:  map[string]any{"Error": message, "Username": in.Username, "Email": in.Email},
		})
		return
	}

	session.SetFlash(w, "success", "Registration successful. Please log in.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Logout destroys the session and redirects to the home page.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	session.SetFlash(w, "info", "You have been logged out.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// landing picks where to send a user after login: the requested page if
// any, the admin dashboard for staff, otherwise the home page.
func landing(id access.Identity, next string) string {
	if next != "" {
		return next
	}
	if access.Allowed(id, access.AdminPanel, access.View) {
		return "/admin"
	}
	return "/"
}
