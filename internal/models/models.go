package models

import "time"

// User represents a registered user
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Category groups listings by kind
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Listing represents an item offered for auction. Price is the starting
// price; the current price is derived from the bid history.
type Listing struct {
	ID          int       `json:"id"`
	Item        string    `json:"item"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency"` // ISO 4217 code
	ImageURL    string    `json:"image_url,omitempty"`
	Description string    `json:"description,omitempty"`
	CategoryID  int       `json:"category_id"`
	Closed      bool      `json:"closed"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   int       `json:"created_by"`
}

// ListingSummary is a listing annotated with a rollup of its bid history
type ListingSummary struct {
	Listing
	BidCount      int     `json:"bid_count"`
	CurrentPrice  float64 `json:"current_price"`
	LeadingBidder *int    `json:"leading_bidder,omitempty"`
}

// Bid represents a monetary offer against a listing. Immutable once accepted.
type Bid struct {
	ID        int       `json:"id"`
	ListingID int       `json:"listing_id"`
	Amount    float64   `json:"amount"`
	BidBy     int       `json:"bid_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment represents a remark left on a listing. Append-only.
type Comment struct {
	ID        int       `json:"id"`
	ListingID int       `json:"listing_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy int       `json:"created_by"`
}

// WatchlistEntry marks that a user is watching a listing
type WatchlistEntry struct {
	UserID    int       `json:"user_id"`
	ListingID int       `json:"listing_id"`
	CreatedAt time.Time `json:"created_at"`
}
