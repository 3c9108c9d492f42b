package model

import "time"

type WishlistItem struct {
	ID          int64      `json:"id"`
	ProfileID   int64      `json:"profile_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Link        string     `json:"link"`
	PriceCents  *int64     `json:"price_cents,omitempty"`
	ImageKey    string     `json:"image_key,omitempty"`
	IsClaimed   bool       `json:"is_claimed"`
	ClaimedBy   *int64     `json:"claimed_by,omitempty"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	IsPurchased bool       `json:"is_purchased"`
	PurchasedBy *int64     `json:"purchased_by,omitempty"`
	PurchasedAt *time.Time `json:"purchased_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ClaimedByProfile reports whether the item is currently claimed by the
// given profile.
func (w *WishlistItem) ClaimedByProfile(profileID int64) bool {
	return w.IsClaimed && w.ClaimedBy != nil && *w.ClaimedBy == profileID
}
