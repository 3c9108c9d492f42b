package model

import "time"

type Family struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Parent1ID *int64    `json:"parent1_id"`
	Parent2ID *int64    `json:"parent2_id"`
	CreatedAt time.Time `json:"created_at"`
}

// HasOpenSlot reports whether either parent slot is unfilled.
func (f *Family) HasOpenSlot() bool {
	return f.Parent1ID == nil || f.Parent2ID == nil
}

// HasParent reports whether the given user occupies one of the two
// parent slots.
func (f *Family) HasParent(userID int64) bool {
	if f.Parent1ID != nil && *f.Parent1ID == userID {
		return true
	}
	if f.Parent2ID != nil && *f.Parent2ID == userID {
		return true
	}
	return false
}
