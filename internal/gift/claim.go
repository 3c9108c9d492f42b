// Package gift implements the wishlist claim/purchase state machine.
// Transitions mutate the item in memory; the store persists them inside
// a single write transaction.
package gift

import (
	"errors"
	"time"

	"github.com/tomstout/gifter/internal/authz"
	"github.com/tomstout/gifter/internal/model"
)

// ErrPermissionDenied is returned when the acting profile lacks the role
// or relationship a transition requires. It is the only error a
// transition can produce.
var ErrPermissionDenied = errors.New("permission denied")

// Claim marks the item as claimed by actor. Allowed when the item is
// unclaimed or already claimed by actor (re-claim is idempotent and the
// first claim timestamp sticks). Claiming over another parent's claim is
// denied: one claimer at a time.
func Claim(actor *model.Profile, item *model.WishlistItem, now time.Time) error {
	if !actor.IsParent() {
		return ErrPermissionDenied
	}
	if item.IsClaimed && item.ClaimedBy != nil && *item.ClaimedBy != actor.ID {
		return ErrPermissionDenied
	}
	item.IsClaimed = true
	item.ClaimedBy = &actor.ID
	if item.ClaimedAt == nil {
		item.ClaimedAt = &now
	}
	return nil
}

// Unclaim releases a claim. The claimer may always release their own;
// a parent who can edit the owner's profile may release anyone's.
// ClaimedAt is kept as a historical marker.
func Unclaim(actor, owner *model.Profile, item *model.WishlistItem) error {
	if !actor.IsParent() {
		return ErrPermissionDenied
	}
	if item.ClaimedBy != nil && *item.ClaimedBy != actor.ID && !authz.CanEditProfile(actor, owner) {
		return ErrPermissionDenied
	}
	item.IsClaimed = false
	item.ClaimedBy = nil
	return nil
}

// MarkPurchased records that actor bought the item. Any parent may do
// this; unlike claiming there is no exclusivity, purchase is a fact
// record any parent may set or correct. PurchasedAt is set once.
func MarkPurchased(actor *model.Profile, item *model.WishlistItem, now time.Time) error {
	if !actor.IsParent() {
		return ErrPermissionDenied
	}
	item.IsPurchased = true
	item.PurchasedBy = &actor.ID
	if item.PurchasedAt == nil {
		item.PurchasedAt = &now
	}
	return nil
}

// ClearPurchased undoes a purchase record, clearing all three purchase
// fields. Any parent may do this.
func ClearPurchased(actor *model.Profile, item *model.WishlistItem) error {
	if !actor.IsParent() {
		return ErrPermissionDenied
	}
	item.IsPurchased = false
	item.PurchasedBy = nil
	item.PurchasedAt = nil
	return nil
}
