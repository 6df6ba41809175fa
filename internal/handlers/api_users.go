package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/SherPsu/cms-blog/internal/access"
	"github.com/SherPsu/cms-blog/internal/middleware"
	"github.com/SherPsu/cms-blog/internal/models"
	"github.com/SherPsu/cms-blog/internal/service"
	"github.com/SherPsu/cms-blog/internal/session"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type userRequest struct {
	Username *string      `json:"username"`
	Email    *string      `json:"email"`
	Role     *models.Role `json:"role"`
	Active   *bool        `json:"active"`
	Password *string      `json:"password"`
}

// identityView is the JSON shape of the signed-in caller.
type identityView struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
}

// Register handles POST /api/auth/register.
func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	var req service.Registration
	if err := decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	u, err := a.svc.Users.Register(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	respondCreated(w, "Registration successful", u)
}

// Login handles POST /api/auth/login and starts a session.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	u, err := a.svc.Users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		fail(w, r, err)
		return
	}
	if _, err := a.sessions.Create(r.Context(), w, r, session.NewData(u)); err != nil {
		fail(w, r, models.NewStoreError("Error signing in", err))
		return
	}
	respond(w, "Login successful", u)
}

// Logout handles POST /api/auth/logout.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	respond(w, "Logged out successfully", nil)
}

// Me handles GET /api/auth/me.
func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	if !access.IsAuthenticated(id) {
		failMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	respond(w, "", identityView{ID: id.UserID, Username: id.Username, Email: id.Email, Role: id.Role})
}

// ChangePassword handles PUT /api/users/me/password.
func (a *API) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	err := a.svc.Users.ChangePassword(r.Context(), middleware.IdentityFromCtx(r.Context()),
		req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, "Password changed successfully", nil)
}

// ListUsers handles GET /api/users.
func (a *API) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.UserFilter{
		Role:   models.Role(q.Get("role")),
		Search: q.Get("search"),
		Page:   pageFrom(r),
	}
	if v, err := strconv.ParseBool(q.Get("active")); err == nil {
		f.Active = &v
	}
	users, p, err := a.svc.Users.List(r.Context(), middleware.IdentityFromCtx(r.Context()), f)
	if err != nil {
		fail(w, r, err)
		return
	}
	respondPage(w, list(users), p)
}

// GetUser handles GET /api/users/{id}.
func (a *API) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, valid := idParam(w, r, "User")
	if !valid {
		return
	}
	u, err := a.svc.Users.Get(r.Context(), middleware.IdentityFromCtx(r.Context()), userID)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, "", u)
}

// UpdateUser handles PUT /api/users/{id}. Fields missing from the body keep
// their current values.
func (a *API) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, valid := idParam(w, r, "User")
	if !valid {
		return
	}
	var req userRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}

	id := middleware.IdentityFromCtx(r.Context())
	current, err := a.svc.Users.Get(r.Context(), id, userID)
	if err != nil {
		fail(w, r, err)
		return
	}
	upd := models.UserUpdate{
		Username: current.Username,
		Email:    current.Email,
		Role:     current.Role,
		Active:   current.Active,
		Password: req.Password,
	}
	if req.Username != nil {
		upd.Username = *req.Username
	}
	if req.Email != nil {
		upd.Email = *req.Email
	}
	if req.Role != nil {
		upd.Role = *req.Role
	}
	if req.Active != nil {
		upd.Active = *req.Active
	}

	u, err := a.svc.Users.Update(r.Context(), id, userID, upd)
	if err != nil {
		fail(w, r, err)
		return
	}
	syncSessions(r, a.sessions, id, u.ID, u)
	respond(w, "User updated successfully", u)
}

// DeleteUser handles DELETE /api/users/{id}.
func (a *API) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, valid := idParam(w, r, "User")
	if !valid {
		return
	}
	id := middleware.IdentityFromCtx(r.Context())
	if err := a.svc.Users.Delete(r.Context(), id, userID); err != nil {
		fail(w, r, err)
		return
	}
	syncSessions(r, a.sessions, id, userID, nil)
	respond(w, "User deleted successfully", nil)
}

// syncSessions brings sessions in line with an account change. Editing
// your own account rewrites your current session in place. Editing or
// deleting someone else signs them out everywhere, so a new role, a
// deactivation or a password reset takes effect at once. u is nil after
// a delete.
func syncSessions(r *http.Request, sessions Sessions, id access.Identity, userID int64, u *models.User) {
	if u != nil && access.Owns(id, userID) {
		if err := sessions.Update(r.Context(), r, session.NewData(u)); err != nil {
			slog.Warn("session refresh failed", "user_id", userID, "error", err)
		}
		return
	}
	if err := sessions.Revoke(r.Context(), userID); err != nil {
		slog.Warn("session revoke failed", "user_id", userID, "error", err)
	}
}
