package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/openbid/auctionhouse/internal/auction"
	"github.com/openbid/auctionhouse/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Storage-level errors
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("username already taken")
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// NewDB initializes a new database connection pool
func NewDB(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close(ctx context.Context) error {
	db.Pool.Close()
	return nil
}

// CreateUser inserts a new user
func (db *DB) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	user := &models.User{}
	err := db.Pool.QueryRow(ctx,
		"INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3) RETURNING id, username, email, password_hash, created_at",
		username, email, passwordHash).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	err := db.Pool.QueryRow(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE username = $1",
		username).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// CreateCategory inserts a new category
func (db *DB) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	if name == "" {
		return nil, fmt.Errorf("category name cannot be empty")
	}
	category := &models.Category{}
	err := db.Pool.QueryRow(ctx,
		"INSERT INTO categories (name) VALUES ($1) RETURNING id, name",
		name).Scan(&category.ID, &category.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

// GetCategories retrieves all categories
func (db *DB) GetCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := db.Pool.Query(ctx, "SELECT id, name FROM categories ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var category models.Category
		if err := rows.Scan(&category.ID, &category.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// GetCategory retrieves a single category by ID
func (db *DB) GetCategory(ctx context.Context, id int) (*models.Category, error) {
	category := &models.Category{}
	err := db.Pool.QueryRow(ctx, "SELECT id, name FROM categories WHERE id = $1", id).
		Scan(&category.ID, &category.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

// CreateListing inserts a new listing
func (db *DB) CreateListing(ctx context.Context, listing *models.Listing) (*models.Listing, error) {
	// Validate listing
	if listing.Item == "" {
		return nil, fmt.Errorf("item name cannot be empty")
	}
	if listing.Price < 0 {
		return nil, fmt.Errorf("starting price cannot be negative")
	}
	if len(listing.Currency) != 3 {
		return nil, fmt.Errorf("currency must be a 3-letter code")
	}

	// Verify the category exists
	var exists bool
	err := db.Pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)", listing.CategoryID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check category existence: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	newListing := &models.Listing{}
	err = db.Pool.QueryRow(ctx,
		`INSERT INTO listings (item, price, currency, image_url, description, category_id, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, item, price, currency, image_url, description, category_id, closed, created_at, created_by`,
		listing.Item, listing.Price, listing.Currency, listing.ImageURL, listing.Description, listing.CategoryID, listing.CreatedBy).Scan(
		&newListing.ID, &newListing.Item, &newListing.Price, &newListing.Currency, &newListing.ImageURL,
		&newListing.Description, &newListing.CategoryID, &newListing.Closed, &newListing.CreatedAt, &newListing.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}
	return newListing, nil
}

const listingSummaryColumns = `
	l.id, l.item, l.price, l.currency, l.image_url, l.description,
	l.category_id, l.closed, l.created_at, l.created_by,
	(SELECT COUNT(*) FROM bids b WHERE b.listing_id = l.id) AS bid_count,
	GREATEST(l.price, COALESCE((SELECT MAX(b.amount) FROM bids b WHERE b.listing_id = l.id), l.price)) AS current_price,
	(SELECT b.bid_by FROM bids b WHERE b.listing_id = l.id ORDER BY b.amount DESC, b.id ASC LIMIT 1) AS leading_bidder`

func scanListingSummary(row pgx.Row) (*models.ListingSummary, error) {
	s := &models.ListingSummary{}
	err := row.Scan(
		&s.ID, &s.Item, &s.Price, &s.Currency, &s.ImageURL, &s.Description,
		&s.CategoryID, &s.Closed, &s.CreatedAt, &s.CreatedBy,
		&s.BidCount, &s.CurrentPrice, &s.LeadingBidder)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetListing retrieves a single listing with its bid rollup
func (db *DB) GetListing(ctx context.Context, id int) (*models.ListingSummary, error) {
	row := db.Pool.QueryRow(ctx,
		"SELECT "+listingSummaryColumns+" FROM listings l WHERE l.id = $1", id)
	summary, err := scanListingSummary(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return summary, nil
}

// GetListings retrieves all listings, newest first, with bid rollups
func (db *DB) GetListings(ctx context.Context) ([]models.ListingSummary, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT "+listingSummaryColumns+" FROM listings l ORDER BY l.created_at DESC, l.id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to get listings: %w", err)
	}
	defer rows.Close()
	return collectListingSummaries(rows)
}

// GetListingsByCategory retrieves all listings within a category, newest first
func (db *DB) GetListingsByCategory(ctx context.Context, categoryID int) ([]models.ListingSummary, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT "+listingSummaryColumns+" FROM listings l WHERE l.category_id = $1 ORDER BY l.created_at DESC, l.id DESC",
		categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get listings by category: %w", err)
	}
	defer rows.Close()
	return collectListingSummaries(rows)
}

func collectListingSummaries(rows pgx.Rows) ([]models.ListingSummary, error) {
	var listings []models.ListingSummary
	for rows.Next() {
		summary, err := scanListingSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, *summary)
	}
	return listings, rows.Err()
}

// CloseListing flips a listing to closed if the actor owns it. The row is
// locked so a concurrent PlaceBid cannot slip a bid past the close.
func (db *DB) CloseListing(ctx context.Context, listingID, actorID int) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	listing, err := lockListing(ctx, tx, listingID)
	if err != nil {
		return err
	}

	if err := auction.EvaluateClose(*listing, actorID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, "UPDATE listings SET closed = TRUE WHERE id = $1", listingID); err != nil {
		return fmt.Errorf("failed to close listing: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// PlaceBid validates and records a bid in a single transaction. The listing
// row is locked for the duration, so concurrent bids against the same listing
// serialize: the first writer wins and later bids are re-checked against the
// committed maximum.
func (db *DB) PlaceBid(ctx context.Context, listingID, bidderID int, amount float64) (*models.Bid, error) {
	if amount <= 0 {
		return nil, auction.ErrBidTooLow
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	listing, err := lockListing(ctx, tx, listingID)
	if err != nil {
		return nil, err
	}

	bids, err := listingBids(ctx, tx, listingID)
	if err != nil {
		return nil, err
	}

	if err := auction.EvaluateBid(*listing, bids, amount); err != nil {
		return nil, err
	}

	bid := &models.Bid{}
	err = tx.QueryRow(ctx,
		"INSERT INTO bids (listing_id, amount, bid_by) VALUES ($1, $2, $3) RETURNING id, listing_id, amount, bid_by, created_at",
		listingID, amount, bidderID).Scan(&bid.ID, &bid.ListingID, &bid.Amount, &bid.BidBy, &bid.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record bid: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return bid, nil
}

// lockListing reads a listing row under FOR UPDATE within tx
func lockListing(ctx context.Context, tx pgx.Tx, listingID int) (*models.Listing, error) {
	listing := &models.Listing{}
	err := tx.QueryRow(ctx,
		`SELECT id, item, price, currency, image_url, description, category_id, closed, created_at, created_by
		 FROM listings WHERE id = $1 FOR UPDATE`,
		listingID).Scan(
		&listing.ID, &listing.Item, &listing.Price, &listing.Currency, &listing.ImageURL,
		&listing.Description, &listing.CategoryID, &listing.Closed, &listing.CreatedAt, &listing.CreatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return listing, nil
}

func listingBids(ctx context.Context, tx pgx.Tx, listingID int) ([]models.Bid, error) {
	rows, err := tx.Query(ctx,
		"SELECT id, listing_id, amount, bid_by, created_at FROM bids WHERE listing_id = $1 ORDER BY created_at ASC, id ASC",
		listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bids: %w", err)
	}
	defer rows.Close()

	var bids []models.Bid
	for rows.Next() {
		var bid models.Bid
		if err := rows.Scan(&bid.ID, &bid.ListingID, &bid.Amount, &bid.BidBy, &bid.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, bid)
	}
	return bids, rows.Err()
}

// GetListingBids retrieves all bids for a listing in acceptance order
func (db *DB) GetListingBids(ctx context.Context, listingID int) ([]models.Bid, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT id, listing_id, amount, bid_by, created_at FROM bids WHERE listing_id = $1 ORDER BY created_at ASC, id ASC",
		listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bids: %w", err)
	}
	defer rows.Close()

	var bids []models.Bid
	for rows.Next() {
		var bid models.Bid
		if err := rows.Scan(&bid.ID, &bid.ListingID, &bid.Amount, &bid.BidBy, &bid.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, bid)
	}
	return bids, rows.Err()
}

// CreateComment appends a comment to a listing
func (db *DB) CreateComment(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	if comment.Content == "" {
		return nil, fmt.Errorf("comment content cannot be empty")
	}

	// Verify the listing exists
	var exists bool
	err := db.Pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM listings WHERE id = $1)", comment.ListingID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check listing existence: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	newComment := &models.Comment{}
	err = db.Pool.QueryRow(ctx,
		"INSERT INTO comments (listing_id, content, created_by) VALUES ($1, $2, $3) RETURNING id, listing_id, content, created_at, created_by",
		comment.ListingID, comment.Content, comment.CreatedBy).Scan(
		&newComment.ID, &newComment.ListingID, &newComment.Content, &newComment.CreatedAt, &newComment.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return newComment, nil
}

// GetListingComments retrieves a listing's comments, newest first
func (db *DB) GetListingComments(ctx context.Context, listingID int) ([]models.Comment, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT id, listing_id, content, created_at, created_by FROM comments WHERE listing_id = $1 ORDER BY created_at DESC, id DESC",
		listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var comment models.Comment
		if err := rows.Scan(&comment.ID, &comment.ListingID, &comment.Content, &comment.CreatedAt, &comment.CreatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

// ToggleWatch flips the watch state of (user, listing) and reports the
// resulting state. Adding an existing entry and removing an absent one are
// both no-ops, so the toggle is idempotent per direction.
func (db *DB) ToggleWatch(ctx context.Context, userID, listingID int) (bool, error) {
	// Verify the listing exists
	var exists bool
	err := db.Pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM listings WHERE id = $1)", listingID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check listing existence: %w", err)
	}
	if !exists {
		return false, ErrNotFound
	}

	tag, err := db.Pool.Exec(ctx,
		"DELETE FROM watchlist WHERE user_id = $1 AND listing_id = $2", userID, listingID)
	if err != nil {
		return false, fmt.Errorf("failed to toggle watchlist: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	_, err = db.Pool.Exec(ctx,
		"INSERT INTO watchlist (user_id, listing_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		userID, listingID)
	if err != nil {
		return false, fmt.Errorf("failed to toggle watchlist: %w", err)
	}
	return true, nil
}

// GetWatchlist retrieves the listings a user is watching, most recently
// watched first
func (db *DB) GetWatchlist(ctx context.Context, userID int) ([]models.ListingSummary, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT "+listingSummaryColumns+
			" FROM listings l JOIN watchlist w ON w.listing_id = l.id WHERE w.user_id = $1 ORDER BY w.created_at DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get watchlist: %w", err)
	}
	defer rows.Close()
	return collectListingSummaries(rows)
}
