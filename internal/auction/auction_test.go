package auction

import (
	"errors"
	"testing"

	"github.com/openbid/auctionhouse/internal/models"
)

func TestCurrentPrice(t *testing.T) {
	listing := models.Listing{ID: 1, Price: 10}

	if got := CurrentPrice(listing, nil); got != 10 {
		t.Errorf("expected starting price 10 with no bids, got %f", got)
	}

	bids := []models.Bid{
		{ID: 1, ListingID: 1, Amount: 15, BidBy: 2},
		{ID: 2, ListingID: 1, Amount: 12, BidBy: 3},
	}
	if got := CurrentPrice(listing, bids); got != 15 {
		t.Errorf("expected highest bid 15, got %f", got)
	}

	// A bid below the starting price never lowers the current price
	low := []models.Bid{{ID: 1, ListingID: 1, Amount: 5, BidBy: 2}}
	if got := CurrentPrice(listing, low); got != 10 {
		t.Errorf("expected starting price 10 to floor the current price, got %f", got)
	}
}

func TestCurrentPrice_Monotonic(t *testing.T) {
	listing := models.Listing{ID: 1, Price: 10}

	var bids []models.Bid
	prev := CurrentPrice(listing, bids)
	for i, amount := range []float64{15, 12, 20, 3, 25} {
		bids = append(bids, models.Bid{ID: i + 1, ListingID: 1, Amount: amount, BidBy: 2})
		cur := CurrentPrice(listing, bids)
		if cur < prev {
			t.Errorf("current price decreased from %f to %f after bid %f", prev, cur, amount)
		}
		prev = cur
	}
}

func TestLeadingBid(t *testing.T) {
	if _, ok := LeadingBid(nil); ok {
		t.Error("expected no leading bid for empty history")
	}

	bids := []models.Bid{
		{ID: 1, ListingID: 1, Amount: 15, BidBy: 2},
		{ID: 2, ListingID: 1, Amount: 20, BidBy: 3},
		{ID: 3, ListingID: 1, Amount: 12, BidBy: 4},
	}
	leader, ok := LeadingBid(bids)
	if !ok {
		t.Fatal("expected a leading bid")
	}
	if leader.ID != 2 || leader.BidBy != 3 {
		t.Errorf("expected bid 2 by user 3 to lead, got bid %d by user %d", leader.ID, leader.BidBy)
	}
}

func TestEvaluateBid(t *testing.T) {
	open := models.Listing{ID: 1, Price: 10}
	closed := models.Listing{ID: 2, Price: 10, Closed: true}
	bids := []models.Bid{{ID: 1, ListingID: 1, Amount: 15, BidBy: 2}}

	tests := []struct {
		name      string
		listing   models.Listing
		bids      []models.Bid
		amount    float64
		expectErr error
	}{
		{
			name:    "AboveStartingPrice",
			listing: open,
			amount:  11,
		},
		{
			name:      "EqualToStartingPrice",
			listing:   open,
			amount:    10,
			expectErr: ErrBidTooLow,
		},
		{
			name:    "AboveHighestBid",
			listing: open,
			bids:    bids,
			amount:  20,
		},
		{
			name:      "EqualToHighestBid",
			listing:   open,
			bids:      bids,
			amount:    15,
			expectErr: ErrBidTooLow,
		},
		{
			name:      "BelowHighestBid",
			listing:   open,
			bids:      bids,
			amount:    12,
			expectErr: ErrBidTooLow,
		},
		{
			name:      "ClosedListing",
			listing:   closed,
			amount:    1000,
			expectErr: ErrListingClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := EvaluateBid(tt.listing, tt.bids, tt.amount)
			if !errors.Is(err, tt.expectErr) {
				t.Errorf("expected %v, got %v", tt.expectErr, err)
			}
		})
	}
}

func TestEvaluateBid_Scenario(t *testing.T) {
	// Listing at 10: 15 accepted, 15 rejected, 20 accepted, then the
	// listing closes and 25 is rejected.
	listing := models.Listing{ID: 1, Price: 10}
	var bids []models.Bid

	if err := EvaluateBid(listing, bids, 15); err != nil {
		t.Fatalf("bid 15 should be accepted: %v", err)
	}
	bids = append(bids, models.Bid{ID: 1, ListingID: 1, Amount: 15, BidBy: 2})

	if err := EvaluateBid(listing, bids, 15); !errors.Is(err, ErrBidTooLow) {
		t.Fatalf("tie bid 15 should be rejected, got %v", err)
	}

	if err := EvaluateBid(listing, bids, 20); err != nil {
		t.Fatalf("bid 20 should be accepted: %v", err)
	}
	bids = append(bids, models.Bid{ID: 2, ListingID: 1, Amount: 20, BidBy: 3})

	listing.Closed = true
	if err := EvaluateBid(listing, bids, 25); !errors.Is(err, ErrListingClosed) {
		t.Fatalf("bid 25 after close should be rejected, got %v", err)
	}
}

func TestEvaluateClose(t *testing.T) {
	tests := []struct {
		name      string
		listing   models.Listing
		actorID   int
		expectErr error
	}{
		{
			name:    "Owner",
			listing: models.Listing{ID: 1, CreatedBy: 1},
			actorID: 1,
		},
		{
			name:      "NonOwner",
			listing:   models.Listing{ID: 1, CreatedBy: 1},
			actorID:   2,
			expectErr: ErrNotOwner,
		},
		{
			name:      "AlreadyClosed",
			listing:   models.Listing{ID: 1, CreatedBy: 1, Closed: true},
			actorID:   1,
			expectErr: ErrAlreadyClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := EvaluateClose(tt.listing, tt.actorID)
			if !errors.Is(err, tt.expectErr) {
				t.Errorf("expected %v, got %v", tt.expectErr, err)
			}
		})
	}
}
