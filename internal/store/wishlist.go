package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tomstout/gifter/internal/gift"
	"github.com/tomstout/gifter/internal/model"
)

type WishlistStore struct {
	db *sql.DB
}

func NewWishlistStore(db *sql.DB) *WishlistStore {
	return &WishlistStore{db: db}
}

func scanWishlistItem(scanner interface{ Scan(...any) error }) (*model.WishlistItem, error) {
	var w model.WishlistItem
	var price, claimedBy, purchasedBy sql.NullInt64
	var claimedAt, purchasedAt sql.NullTime

	err := scanner.Scan(
		&w.ID, &w.ProfileID, &w.Title, &w.Description, &w.Link, &price, &w.ImageKey,
		&w.IsClaimed, &claimedBy, &claimedAt,
		&w.IsPurchased, &purchasedBy, &purchasedAt,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if price.Valid {
		w.PriceCents = &price.Int64
	}
	if claimedBy.Valid {
		w.ClaimedBy = &claimedBy.Int64
	}
	if claimedAt.Valid {
		w.ClaimedAt = &claimedAt.Time
	}
	if purchasedBy.Valid {
		w.PurchasedBy = &purchasedBy.Int64
	}
	if purchasedAt.Valid {
		w.PurchasedAt = &purchasedAt.Time
	}
	return &w, nil
}

const wishlistCols = `id, profile_id, title, description, link, price_cents, image_key,
	is_claimed, claimed_by, claimed_at,
	is_purchased, purchased_by, purchased_at,
	created_at, updated_at`

func (s *WishlistStore) Create(profileID int64, title, description, link string, priceCents *int64, imageKey string) (*model.WishlistItem, error) {
	result, err := s.db.Exec(
		`INSERT INTO wishlist_items (profile_id, title, description, link, price_cents, image_key) VALUES (?, ?, ?, ?, ?, ?)`,
		profileID, title, description, link, priceCents, imageKey,
	)
	if err != nil {
		return nil, fmt.Errorf("insert wishlist item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *WishlistStore) GetByID(id int64) (*model.WishlistItem, error) {
	row := s.db.QueryRow(`SELECT `+wishlistCols+` FROM wishlist_items WHERE id = ?`, id)
	w, err := scanWishlistItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get wishlist item: %w", err)
	}
	return w, nil
}

// ListByProfile returns the profile's items, newest first.
func (s *WishlistStore) ListByProfile(profileID int64) ([]model.WishlistItem, error) {
	rows, err := s.db.Query(
		`SELECT `+wishlistCols+` FROM wishlist_items WHERE profile_id = ? ORDER BY created_at DESC, id DESC`,
		profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("list wishlist items: %w", err)
	}
	defer rows.Close()

	var items []model.WishlistItem
	for rows.Next() {
		w, err := scanWishlistItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wishlist item: %w", err)
		}
		items = append(items, *w)
	}
	return items, rows.Err()
}

func (s *WishlistStore) Update(id int64, title, description, link string, priceCents *int64, imageKey string) (*model.WishlistItem, error) {
	_, err := s.db.Exec(
		`UPDATE wishlist_items SET title = ?, description = ?, link = ?, price_cents = ?, image_key = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		title, description, link, priceCents, imageKey, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update wishlist item: %w", err)
	}
	return s.GetByID(id)
}

func (s *WishlistStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM wishlist_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete wishlist item: %w", err)
	}
	return nil
}

// Claim applies the claim transition inside one write transaction. The
// item is re-read in the transaction, the pure transition decides, and
// the UPDATE repeats the exclusivity precondition in its WHERE clause:
// if another parent's claim lands between read and write, zero rows are
// affected and the claim is denied. Two parents can never both hold it.
func (s *WishlistStore) Claim(actor *model.Profile, itemID int64, now time.Time) (*model.WishlistItem, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	item, err := getItemTx(tx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}

	if err := gift.Claim(actor, item, now); err != nil {
		return nil, err
	}

	// The guard mirrors gift.Claim exactly: open, orphaned (claimer
	// deleted), or already ours.
	result, err := tx.Exec(
		`UPDATE wishlist_items SET is_claimed = 1, claimed_by = ?, claimed_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND (is_claimed = 0 OR claimed_by IS NULL OR claimed_by = ?)`,
		actor.ID, item.ClaimedAt, itemID, actor.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("claim item: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, gift.ErrPermissionDenied
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(itemID)
}

// Unclaim releases a claim under the same transactional discipline as
// Claim. The owner profile is read in the transaction because release
// rights depend on who may edit the owner.
func (s *WishlistStore) Unclaim(actor *model.Profile, itemID int64) (*model.WishlistItem, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	item, err := getItemTx(tx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	owner, err := getProfileTx(tx, item.ProfileID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, ErrNotFound
	}

	claimedBy := item.ClaimedBy
	if err := gift.Unclaim(actor, owner, item); err != nil {
		return nil, err
	}

	var result sql.Result
	if claimedBy == nil {
		result, err = tx.Exec(
			`UPDATE wishlist_items SET is_claimed = 0, claimed_by = NULL, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND claimed_by IS NULL`,
			itemID,
		)
	} else {
		result, err = tx.Exec(
			`UPDATE wishlist_items SET is_claimed = 0, claimed_by = NULL, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND claimed_by = ?`,
			itemID, *claimedBy,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("unclaim item: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, gift.ErrPermissionDenied
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(itemID)
}

// MarkPurchased records a purchase. No exclusivity, so no guard beyond
// the role check; purchased_at keeps its first-set value.
func (s *WishlistStore) MarkPurchased(actor *model.Profile, itemID int64, now time.Time) (*model.WishlistItem, error) {
	item, err := s.GetByID(itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	if err := gift.MarkPurchased(actor, item, now); err != nil {
		return nil, err
	}

	_, err = s.db.Exec(
		`UPDATE wishlist_items SET is_purchased = 1, purchased_by = ?, purchased_at = COALESCE(purchased_at, ?), updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		actor.ID, now, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("mark purchased: %w", err)
	}
	return s.GetByID(itemID)
}

// ClearPurchased clears all three purchase fields.
func (s *WishlistStore) ClearPurchased(actor *model.Profile, itemID int64) (*model.WishlistItem, error) {
	item, err := s.GetByID(itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	if err := gift.ClearPurchased(actor, item); err != nil {
		return nil, err
	}

	_, err = s.db.Exec(
		`UPDATE wishlist_items SET is_purchased = 0, purchased_by = NULL, purchased_at = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("clear purchased: %w", err)
	}
	return s.GetByID(itemID)
}

func getItemTx(tx *sql.Tx, id int64) (*model.WishlistItem, error) {
	row := tx.QueryRow(`SELECT `+wishlistCols+` FROM wishlist_items WHERE id = ?`, id)
	w, err := scanWishlistItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get wishlist item: %w", err)
	}
	return w, nil
}

func getProfileTx(tx *sql.Tx, id int64) (*model.Profile, error) {
	row := tx.QueryRow(`SELECT `+profileCols+` FROM profiles p WHERE p.id = ?`, id)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}
