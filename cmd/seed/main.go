package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/openbid/auctionhouse/internal/config"
	"github.com/openbid/auctionhouse/internal/db"
	"github.com/openbid/auctionhouse/internal/models"
)

// Seed the database with demo data
func main() {
	ctx := context.Background()
	cfg := config.Load()

	database, err := db.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(ctx)

	// Skip seeding if listings already exist
	listings, err := database.GetListings(ctx)
	if err != nil {
		log.Fatalf("Failed to check listings: %v", err)
	}
	if len(listings) > 0 {
		fmt.Printf("Database already has %d listings. No need to seed.\n", len(listings))
		os.Exit(0)
	}

	// Categories
	categoryIDs := make(map[string]int)
	for _, name := range []string{"Electronics", "Furniture", "Books", "Collectibles"} {
		var id int
		err := database.Pool.QueryRow(ctx, "SELECT id FROM categories WHERE name = $1", name).Scan(&id)
		if err != nil {
			category, err := database.CreateCategory(ctx, name)
			if err != nil {
				log.Fatalf("Failed to create category %s: %v", name, err)
			}
			id = category.ID
		}
		categoryIDs[name] = id
	}

	// Demo users (password: "password")
	const demoHash = "$2a$10$XLhV7TU4dIvHO1d9UKgoT.Kt1XCYIbLV4LkQqmXGtN6VBnsmgS.G."
	userIDs := make(map[string]int)
	for _, username := range []string{"alice", "bob"} {
		var id int
		err := database.Pool.QueryRow(ctx, "SELECT id FROM users WHERE username = $1", username).Scan(&id)
		if err != nil {
			err = database.Pool.QueryRow(ctx,
				"INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3) RETURNING id",
				username, username+"@example.com", demoHash).Scan(&id)
			if err != nil {
				log.Fatalf("Failed to create user %s: %v", username, err)
			}
		}
		userIDs[username] = id
	}

	// Listings
	seedListings := []models.Listing{
		{
			Item:        "Mechanical keyboard",
			Price:       40,
			Currency:    "USD",
			Description: "Tenkeyless, brown switches, lightly used.",
			CategoryID:  categoryIDs["Electronics"],
			CreatedBy:   userIDs["alice"],
		},
		{
			Item:        "Mid-century armchair",
			Price:       120,
			Currency:    "USD",
			Description: "Teak frame, reupholstered in 2024.",
			CategoryID:  categoryIDs["Furniture"],
			CreatedBy:   userIDs["bob"],
		},
		{
			Item:        "First edition paperback set",
			Price:       25,
			Currency:    "GBP",
			Description: "Complete trilogy, minor shelf wear.",
			CategoryID:  categoryIDs["Books"],
			CreatedBy:   userIDs["alice"],
		},
	}

	var created []models.Listing
	for _, l := range seedListings {
		listing, err := database.CreateListing(ctx, &l)
		if err != nil {
			log.Fatalf("Failed to create listing %q: %v", l.Item, err)
		}
		created = append(created, *listing)
	}

	// A short bid history on the keyboard
	if _, err := database.PlaceBid(ctx, created[0].ID, userIDs["bob"], 45); err != nil {
		log.Fatalf("Failed to place bid: %v", err)
	}
	if _, err := database.PlaceBid(ctx, created[0].ID, userIDs["alice"], 50); err != nil {
		log.Fatalf("Failed to place bid: %v", err)
	}

	comment := models.Comment{
		ListingID: created[0].ID,
		Content:   "Does it come with the original keycaps?",
		CreatedBy: userIDs["bob"],
	}
	if _, err := database.CreateComment(ctx, &comment); err != nil {
		log.Fatalf("Failed to create comment: %v", err)
	}

	if _, err := database.ToggleWatch(ctx, userIDs["bob"], created[2].ID); err != nil {
		log.Fatalf("Failed to seed watchlist: %v", err)
	}

	fmt.Println("Successfully seeded the database with demo listings!")
}
