package auction

import (
	"errors"

	"github.com/openbid/auctionhouse/internal/models"
)

// Business rule failures surfaced to callers
var (
	ErrListingClosed = errors.New("listing is closed")
	ErrBidTooLow     = errors.New("bid does not exceed current price")
	ErrNotOwner      = errors.New("only the listing owner may close it")
	ErrAlreadyClosed = errors.New("listing already closed")
)

// CurrentPrice returns the highest bid amount for a listing, or the starting
// price if no bids exist. It never returns less than the starting price.
func CurrentPrice(listing models.Listing, bids []models.Bid) float64 {
	price := listing.Price
	for _, b := range bids {
		if b.Amount > price {
			price = b.Amount
		}
	}
	return price
}

// LeadingBid returns the bid achieving the current price. The second return
// is false when the listing has no bids. Ties on amount resolve to the
// earliest accepted bid, though ties cannot occur through EvaluateBid.
func LeadingBid(bids []models.Bid) (models.Bid, bool) {
	var leader models.Bid
	found := false
	for _, b := range bids {
		if !found || b.Amount > leader.Amount {
			leader = b
			found = true
		}
	}
	return leader, found
}

// EvaluateBid decides whether a proposed amount is acceptable against the
// listing's current state. A bid is accepted only while the listing is open
// and only if it strictly exceeds the current price; an amount equal to the
// current price is rejected.
func EvaluateBid(listing models.Listing, bids []models.Bid, amount float64) error {
	if listing.Closed {
		return ErrListingClosed
	}
	if amount <= CurrentPrice(listing, bids) {
		return ErrBidTooLow
	}
	return nil
}

// EvaluateClose decides whether the actor may close the listing. Closing is
// permitted only by the owner, and only once; closed is terminal.
func EvaluateClose(listing models.Listing, actorID int) error {
	if listing.CreatedBy != actorID {
		return ErrNotOwner
	}
	if listing.Closed {
		return ErrAlreadyClosed
	}
	return nil
}
