package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/openbid/auctionhouse/internal/auction"
	"github.com/openbid/auctionhouse/internal/auth"
	"github.com/openbid/auctionhouse/internal/db"
	"github.com/openbid/auctionhouse/internal/models"
	"github.com/openbid/auctionhouse/internal/ticker"
)

// Currency codes offered on the listing creation form
var Currencies = []string{"USD", "EUR", "GBP", "JPY", "SGD"}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	DB          *db.DB
	AuthService *auth.AuthService
	Ticker      *ticker.Hub
}

// NewHandler creates a new handler
func NewHandler(db *db.DB, authService *auth.AuthService, hub *ticker.Hub) *Handler {
	return &Handler{DB: db, AuthService: authService, Ticker: hub}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Register handles account creation
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username     string `json:"username"`
		Email        string `json:"email"`
		Password     string `json:"password"`
		Confirmation string `json:"confirmation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password required")
		return
	}
	if req.Password != req.Confirmation {
		writeError(w, http.StatusBadRequest, "Passwords must match")
		return
	}

	user, err := h.AuthService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, db.ErrDuplicateUsername) {
			writeError(w, http.StatusConflict, "Username already taken")
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to register user")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":       user.ID,
		"username": user.Username,
	})
}

// Login handles session start
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := h.AuthService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid username and/or password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Logout acknowledges session end. Tokens are stateless; clients discard
// theirs on logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// JWTAuthMiddleware verifies JWT tokens
func (h *Handler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		// Remove "Bearer " prefix if present
		if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
			tokenString = tokenString[7:]
		}

		userID, err := h.AuthService.GetUserFromToken(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(r *http.Request) (int, bool) {
	userID, ok := r.Context().Value(userIDKey).(int)
	return userID, ok
}

func urlID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

// ListListings returns all listings with their bid rollups
func (h *Handler) ListListings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.DB.GetListings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve listings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"listings": listings})
}

// GetListing returns one listing with its bids and comments
func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid listing ID")
		return
	}

	listing, err := h.DB.GetListing(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Listing not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to retrieve listing")
		return
	}

	bids, err := h.DB.GetListingBids(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve bids")
		return
	}

	comments, err := h.DB.GetListingComments(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve comments")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"listing":  listing,
		"bids":     bids,
		"comments": comments,
	})
}

// NewListingForm returns the data a client needs to render the creation form
func (h *Handler) NewListingForm(w http.ResponseWriter, r *http.Request) {
	categories, err := h.DB.GetCategories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve categories")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"currencies": Currencies,
	})
}

// CreateListing handles listing creation
func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Item        string  `json:"item"`
		Price       float64 `json:"price"`
		Currency    string  `json:"currency"`
		ImageURL    string  `json:"image_url"`
		Description string  `json:"description"`
		CategoryID  int     `json:"category_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Validate input
	if req.Item == "" {
		writeError(w, http.StatusBadRequest, "Item name required")
		return
	}
	if req.Price < 0 {
		writeError(w, http.StatusBadRequest, "Starting price cannot be negative")
		return
	}
	if len(req.Currency) != 3 {
		writeError(w, http.StatusBadRequest, "Currency must be a 3-letter code")
		return
	}

	listing := models.Listing{
		Item:        req.Item,
		Price:       req.Price,
		Currency:    req.Currency,
		ImageURL:    req.ImageURL,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		CreatedBy:   userID,
	}

	created, err := h.DB.CreateListing(r.Context(), &listing)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Category not found")
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to create listing")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// CloseListing lets a listing's owner close it
func (h *Handler) CloseListing(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := urlID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid listing ID")
		return
	}

	if err := h.DB.CloseListing(r.Context(), id, userID); err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			writeError(w, http.StatusNotFound, "Listing not found")
		case errors.Is(err, auction.ErrNotOwner):
			writeError(w, http.StatusForbidden, "Only the owner can close a listing")
		case errors.Is(err, auction.ErrAlreadyClosed):
			writeError(w, http.StatusUnprocessableEntity, "Listing already closed")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to close listing")
		}
		return
	}

	if listing, err := h.DB.GetListing(r.Context(), id); err == nil {
		h.Ticker.Publish(ticker.Event{Type: "close", ListingID: id, Price: listing.CurrentPrice})
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Listing closed"})
}

// PlaceBid handles bid submission
func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		ListingID int     `json:"listing_id"`
		Amount    float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "Bid amount must be positive")
		return
	}

	bid, err := h.DB.PlaceBid(r.Context(), req.ListingID, userID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			writeError(w, http.StatusNotFound, "Listing not found")
		case errors.Is(err, auction.ErrListingClosed):
			writeError(w, http.StatusUnprocessableEntity, "Listing is closed")
		case errors.Is(err, auction.ErrBidTooLow):
			writeError(w, http.StatusUnprocessableEntity, "Bid must exceed the current price")
		default:
			log.WithError(err).Error("Failed to place bid")
			writeError(w, http.StatusInternalServerError, "Failed to place bid")
		}
		return
	}

	h.Ticker.Publish(ticker.Event{Type: "bid", ListingID: bid.ListingID, Price: bid.Amount, Bidder: bid.BidBy})

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Bid placed",
		"bid":     bid,
	})
}

// CreateComment handles comment submission
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		ListingID int    `json:"listing_id"`
		Content   string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "Comment content required")
		return
	}

	comment := models.Comment{
		ListingID: req.ListingID,
		Content:   req.Content,
		CreatedBy: userID,
	}
	created, err := h.DB.CreateComment(r.Context(), &comment)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Listing not found")
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to create comment")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// ToggleWatchlist flips the acting user's watch state for a listing
func (h *Handler) ToggleWatchlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		ListingID int `json:"listing_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	watching, err := h.DB.ToggleWatch(r.Context(), userID, req.ListingID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Listing not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to toggle watchlist")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"listing_id": req.ListingID,
		"watching":   watching,
	})
}

// GetWatchlist returns the listings the acting user is watching
func (h *Handler) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	listings, err := h.DB.GetWatchlist(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve watchlist")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"listings": listings})
}

// ListCategories returns all categories
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.DB.GetCategories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve categories")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": categories})
}

// GetCategory returns one category with its listings
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid category ID")
		return
	}

	category, err := h.DB.GetCategory(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Category not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to retrieve category")
		return
	}

	listings, err := h.DB.GetListingsByCategory(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve listings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"category": category,
		"listings": listings,
	})
}
