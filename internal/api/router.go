/**
 * @description
 * This file sets up the HTTP router for the merchant top-up service. It
 * defines the API endpoints, associates them with their handlers, and applies
 * middleware for logging, CORS, and operator authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware for browser-based dashboards.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// TopupRoutes creates and returns a new router for the top-up service.
func TopupRoutes(h *TopupHandlers, accessTokenSecret string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require operator authentication.
	r.Group(func(r chi.Router) {
		r.Use(AccessTokenMiddleware(accessTokenSecret))

		r.Get("/topup/verify/{identifier}", h.VerifyTopupHandler)
		r.Post("/topup/{identifier}", h.TopupHandler)
		r.Get("/topup/{userID}", h.GetTopupsHandler)
		r.Post("/topup/void/{referenceNumber}", h.VoidTopupHandler)
	})

	return r
}
