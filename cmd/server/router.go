package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/companion-app/companion-api/internal/api"
	apimiddleware "github.com/companion-app/companion-api/internal/api/middleware"
)

// setupRouter builds the HTTP router: standard middleware, public auth
// routes, authenticated resource routes, and health endpoints at the root.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apimiddleware.TraceMiddleware)

	// Anonymous traffic is throttled per IP, authenticated traffic per user.
	// The user-keyed limiter must sit behind authentication so the request
	// carries a user ID by the time the key is computed.
	anonLimiter := apimiddleware.NewRateLimiter(
		app.config.RateLimit.RequestsPerSecond,
		app.config.RateLimit.Burst,
	)
	userLimiter := apimiddleware.NewRateLimiter(
		app.config.RateLimit.RequestsPerSecond,
		app.config.RateLimit.Burst,
	)
	app.rateLimiters = []*apimiddleware.RateLimiter{anonLimiter, userLimiter}

	authHandler := api.NewAuthHandler(app.authService, app.logger)
	userHandler := api.NewUserHandler(app.userService, app.logger)
	noteHandler := api.NewNoteHandler(app.noteService, app.logger)
	taskHandler := api.NewTaskHandler(app.taskService, app.logger)
	healthHandler := api.NewHealthHandler(app.db, app.logger)

	authMiddleware := apimiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/auth", func(r chi.Router) {
		r.Use(anonLimiter.Limit)
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.RefreshToken)
	})

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Use(userLimiter.Limit)

		r.Route("/users", func(r chi.Router) {
			r.Get("/me", userHandler.GetProfile)
			r.Patch("/me", userHandler.UpdateProfile)
			r.Delete("/me", userHandler.DeactivateAccount)
			r.Put("/me/password", userHandler.UpdatePassword)
		})

		r.Route("/notes", func(r chi.Router) {
			r.Post("/", noteHandler.CreateNote)
			r.Get("/", noteHandler.ListNotes)
			r.Get("/stats", noteHandler.GetNoteStats)
			r.Get("/{id}", noteHandler.GetNote)
			r.Patch("/{id}", noteHandler.UpdateNote)
			r.Delete("/{id}", noteHandler.DeleteNote)
			r.Post("/{id}/enhance", noteHandler.EnhanceNote)
			r.Post("/{id}/summarize", noteHandler.SummarizeNote)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.ListTasks)
			r.Get("/{id}", taskHandler.GetTask)
			r.Post("/{id}/cancel", taskHandler.CancelTask)
		})
	})

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Get("/live", healthHandler.Live)

	return r
}
