package main

import (
	"context"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"

	"github.com/openbid/auctionhouse/internal/api"
	"github.com/openbid/auctionhouse/internal/auth"
	"github.com/openbid/auctionhouse/internal/config"
	"github.com/openbid/auctionhouse/internal/db"
	"github.com/openbid/auctionhouse/internal/ticker"
)

// Main entry point: sets up database, auth, ticker, and HTTP server
func main() {
	cfg := config.Load()

	log.SetFormatter(&log.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
	log.SetOutput(os.Stdout)
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx := context.Background()

	// Initialize database connection
	database, err := db.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close(ctx)

	// Initialize auth service
	authService := auth.NewAuthService(database, []byte(cfg.JWTSecret))

	// Initialize price ticker hub
	hub := ticker.NewHub()

	// Initialize API handlers
	handler := api.NewHandler(database, authService, hub)

	// Set up HTTP router
	r := chi.NewRouter()

	// Enable CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// WebSocket price ticker. Registered outside the logging middleware,
	// which cannot wrap a hijacked connection.
	r.Get("/ws", hub.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(api.RequestIDMiddleware)
		r.Use(api.RequestLoggerMiddleware)

		// Public endpoints
		r.Get("/", handler.ListListings)
		r.Get("/listings", handler.ListListings)
		r.Get("/listings/{id}", handler.GetListing)
		r.Get("/categories", handler.ListCategories)
		r.Get("/categories/{id}", handler.GetCategory)
		r.Post("/auth/register", handler.Register)
		r.Post("/auth/login", handler.Login)

		// Protected endpoints (require JWT)
		r.Group(func(r chi.Router) {
			r.Use(handler.JWTAuthMiddleware)
			r.Post("/auth/logout", handler.Logout)
			r.Get("/listings/new", handler.NewListingForm)
			r.Post("/listings", handler.CreateListing)
			r.Post("/listings/{id}/close", handler.CloseListing)
			r.Post("/bids", handler.PlaceBid)
			r.Post("/comments", handler.CreateComment)
			r.Post("/watchlist", handler.ToggleWatchlist)
			r.Get("/watchlist", handler.GetWatchlist)
		})
	})

	// Start server
	log.WithField("addr", cfg.Addr).Info("Starting auction server")
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		log.WithError(err).Fatal("Server failed")
	}
}
