// Package router wires the HTTP surface: one auth group per principal kind
// plus the public job and plan reads, each behind the appropriate guards.
package router

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"jobnest-auth/internal/domain"
	"jobnest-auth/internal/handler"
	"jobnest-auth/pkg/cache"
	"jobnest-auth/pkg/middleware"
)

type Handlers struct {
	Applicant *handler.AuthHandler
	Employer  *handler.AuthHandler
	Admin     *handler.AuthHandler
	Jobs      *handler.JobHandler
	Plans     *handler.PlanHandler
	Admins    *handler.AdminHandler
}

func SetupRoutes(r chi.Router, h Handlers, auth *middleware.AuthMiddleware, c *cache.Cache) chi.Router {
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RateLimiter(c, 300, time.Minute, time.Minute, "global"))

	// Auth endpoints get a tighter window than browsing traffic.
	loginLimit := middleware.RateLimiter(c, 10, 30*time.Second, time.Minute, "auth")

	mountAuthRoutes := func(g chi.Router, role domain.Role, ah *handler.AuthHandler) {
		g.Group(func(pub chi.Router) {
			pub.Use(loginLimit)
			pub.Post("/signup", ah.Signup)
			pub.Post("/verify-otp", ah.VerifyOTP)
			pub.Post("/login", ah.Login)
			pub.Post("/google-signup", ah.GoogleSignup)
			pub.Post("/google-login", ah.GoogleLogin)
			pub.Post("/refresh", ah.Refresh)
		})

		g.Group(func(priv chi.Router) {
			priv.Use(auth.Require(role))
			priv.Post("/logout", ah.Logout)
			priv.Get("/me", ah.Me)
			priv.Put("/profile", ah.UpdateProfile)
		})
	}

	r.Route("/applicant", func(g chi.Router) {
		mountAuthRoutes(g, domain.RoleApplicant, h.Applicant)

		g.Route("/jobs", func(j chi.Router) {
			j.Use(auth.Require(domain.RoleApplicant))
			j.With(middleware.RequireQuota("application limit reached, upgrade your plan")).
				Post("/{jobID}/apply", h.Jobs.Apply)
		})
	})

	r.Route("/employer", func(g chi.Router) {
		mountAuthRoutes(g, domain.RoleEmployer, h.Employer)

		g.Route("/jobs", func(j chi.Router) {
			j.Use(auth.Require(domain.RoleEmployer))
			j.Get("/", h.Jobs.ListMyJobs)
			j.Get("/{jobID}/applications", h.Jobs.ListJobApplications)
			j.With(middleware.RequireQuota("job posting limit reached, upgrade your plan")).
				Post("/", h.Jobs.PostJob)
		})
	})

	// Admins have no self-signup; accounts are seeded at startup.
	r.Route("/admin", func(g chi.Router) {
		g.Group(func(pub chi.Router) {
			pub.Use(loginLimit)
			pub.Post("/login", h.Admin.Login)
			pub.Post("/refresh", h.Admin.Refresh)
		})
		g.Group(func(priv chi.Router) {
			priv.Use(auth.Require(domain.RoleAdmin))
			priv.Post("/logout", h.Admin.Logout)
			priv.Get("/me", h.Admin.Me)
			priv.Get("/users/{role}", h.Admins.ListPrincipals)
			priv.Patch("/users/{role}/{id}/block", h.Admins.SetBlocked)
			priv.Post("/plans/{role}", h.Admins.CreatePlan)
			priv.Put("/plans/{role}/{name}", h.Admins.UpdatePlan)
		})
	})

	// Public reads.
	r.Get("/jobs/{jobID}", h.Jobs.GetJob)
	r.Get("/plans/{role}", h.Plans.ListPlans)

	return r
}
