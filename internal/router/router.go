// Package router sets up all HTTP routes and middleware chains for the
// blog. It organizes routes into public, admin, and JSON API groups with
// appropriate middleware stacks.
package router

import (
	"context"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SherPsu/cms-blog/internal/access"
	"github.com/SherPsu/cms-blog/internal/handlers"
	"github.com/SherPsu/cms-blog/internal/metrics"
	"github.com/SherPsu/cms-blog/internal/middleware"
)

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

// Options carries the router's dependencies.
type Options struct {
	Sessions      middleware.SessionGetter
	SecureCookies bool
	AuthLimiter   *middleware.RateLimiter // applied to login and registration
	Static        fs.FS                   // served at /static/; may be nil
	Checks        map[string]HealthCheck  // run by /health

	API    *handlers.API
	Public *handlers.Public
	Auth   *handlers.Auth
	Admin  *handlers.Admin
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(o Options) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.LoadSession(o.Sessions))
	r.Use(middleware.SecureHeaders(o.SecureCookies))
	r.Use(middleware.NewCSRF(o.SecureCookies))

	limit := func(h http.HandlerFunc) http.Handler {
		if o.AuthLimiter == nil {
			return h
		}
		return o.AuthLimiter.Middleware(h)
	}

	// Operational endpoints.
	r.Get("/health", healthHandler(o.Checks))
	r.Handle("/metrics", metrics.Handler())
	if o.Static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(o.Static))))
	}

	// JSON API. The 404/405 handlers are set first so nested routes
	// inherit them.
	r.Route("/api", func(r chi.Router) {
		r.NotFound(o.API.NotFound)
		r.MethodNotAllowed(o.API.MethodNotAllowed)

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", o.API.ListPosts)
			r.Post("/", o.API.CreatePost)
			r.Get("/{id}", o.API.GetPost)
			r.Put("/{id}", o.API.UpdatePost)
			r.Delete("/{id}", o.API.DeletePost)
			r.Get("/{id}/comments", o.API.ListPostComments)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", o.API.ListCategories)
			r.Post("/", o.API.CreateCategory)
			r.Get("/{id}", o.API.GetCategory)
			r.Put("/{id}", o.API.UpdateCategory)
			r.Delete("/{id}", o.API.DeleteCategory)
		})

		r.Route("/comments", func(r chi.Router) {
			r.Get("/", o.API.ListComments)
			r.Post("/", o.API.CreateComment)
			r.Put("/{id}", o.API.UpdateComment)
			r.Delete("/{id}", o.API.DeleteComment)
		})

		r.Route("/reactions", func(r chi.Router) {
			r.Get("/", o.API.GetReactions)
			r.Post("/", o.API.SetReaction)
		})

		r.Get("/tags", o.API.ListTags)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", o.API.ListUsers)
			r.Put("/me/password", o.API.ChangePassword)
			r.Get("/{id}", o.API.GetUser)
			r.Put("/{id}", o.API.UpdateUser)
			r.Delete("/{id}", o.API.DeleteUser)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Method(http.MethodPost, "/register", limit(o.API.Register))
			r.Method(http.MethodPost, "/login", limit(o.API.Login))
			r.Post("/logout", o.API.Logout)
			r.Get("/me", o.API.Me)
		})
	})

	// Auth pages.
	r.Get("/login", o.Auth.LoginPage)
	r.Method(http.MethodPost, "/login", limit(o.Auth.LoginSubmit))
	r.Get("/register", o.Auth.RegisterPage)
	r.Method(http.MethodPost, "/register", limit(o.Auth.RegisterSubmit))
	r.Post("/logout", o.Auth.Logout)

	// Public pages.
	r.Get("/", o.Public.Home)
	r.Get("/posts/{id}", o.Public.Post)
	r.Get("/posts/{id}/{slug}", o.Public.Post)

	// Signed-in visitors.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/posts/{id}/comments", o.Public.CommentSubmit)
		r.Post("/posts/{id}/reactions", o.Public.ReactionSubmit)
		r.Get("/account", o.Public.Account)
		r.Post("/account/password", o.Public.PasswordSubmit)
	})

	// Admin panel, open to staff roles.
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequirePolicy(access.AdminPanel, access.View))

		r.Get("/", o.Admin.Dashboard)

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", o.Admin.PostsList)
			r.Get("/new", o.Admin.PostNew)
			r.Post("/", o.Admin.PostCreate)
			r.Get("/{id}/edit", o.Admin.PostEdit)
			r.Post("/{id}", o.Admin.PostUpdate)
			r.Post("/{id}/delete", o.Admin.PostDelete)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Use(middleware.RequirePolicy(access.Category, access.Manage))
			r.Get("/", o.Admin.CategoriesList)
			r.Post("/", o.Admin.CategoryCreate)
			r.Get("/{id}/edit", o.Admin.CategoryEdit)
			r.Post("/{id}", o.Admin.CategoryUpdate)
			r.Post("/{id}/delete", o.Admin.CategoryDelete)
		})

		r.Route("/comments", func(r chi.Router) {
			r.Use(middleware.RequirePolicy(access.Comment, access.Moderate))
			r.Get("/", o.Admin.CommentsList)
			r.Post("/{id}/status", o.Admin.CommentStatus)
			r.Post("/{id}/delete", o.Admin.CommentDelete)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequirePolicy(access.User, access.Manage))
			r.Get("/", o.Admin.UsersList)
			r.Get("/{id}/edit", o.Admin.UserEdit)
			r.Post("/{id}", o.Admin.UserUpdate)
			r.Post("/{id}/delete", o.Admin.UserDelete)
		})
	})

	r.NotFound(o.Public.NotFound)

	return r
}

// healthHandler runs every check with a short timeout and reports the
// result as JSON. Any failing check turns the response into a 503.
func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				slog.Warn("health check failed", "check", name, "error", err)
				body[name] = "unavailable"
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				continue
			}
			body[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
}
