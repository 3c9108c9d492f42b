package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomstout/gifter/internal/gift"
	"github.com/tomstout/gifter/internal/model"
)

type wishlistFixture struct {
	ws     *WishlistStore
	parent *model.Profile
	other  *model.Profile
	child  *model.Profile
	item   *model.WishlistItem
}

// setupWishlist builds a family with two parents and a child, plus one
// open item on the child's list.
func setupWishlist(t *testing.T, file bool) *wishlistFixture {
	t.Helper()
	var db = setupTestDB(t)
	if file {
		db = setupFileDB(t)
	}
	us := NewUserStore(db)
	fs := NewFamilyStore(db)
	ps := NewProfileStore(db)
	ws := NewWishlistStore(db)

	f, err := fs.Create("Smiths")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}

	mk := func(username, role string, familyID int64) *model.Profile {
		uid := createTestUser(t, us, username)
		p, err := ps.GetByUserID(uid)
		if err != nil {
			t.Fatalf("get profile: %v", err)
		}
		p, err = ps.Update(p.ID, ProfileUpdate{FamilyID: &familyID, Role: role})
		if err != nil {
			t.Fatalf("update profile: %v", err)
		}
		return p
	}

	otherFamily, err := fs.Create("Joneses")
	if err != nil {
		t.Fatalf("create other family: %v", err)
	}

	fx := &wishlistFixture{
		ws:     ws,
		parent: mk("mom", model.RoleParent, f.ID),
		other:  mk("neighbor", model.RoleParent, otherFamily.ID),
		child:  mk("kid", model.RoleChild, f.ID),
	}

	price := int64(2999)
	fx.item, err = ws.Create(fx.child.ID, "PS5 Controller", "White", "https://example.com/c", &price, "")
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	return fx
}

func TestWishlistCreateAndList(t *testing.T) {
	fx := setupWishlist(t, false)

	if fx.item.IsClaimed || fx.item.IsPurchased {
		t.Error("new items start open")
	}
	if fx.item.PriceCents == nil || *fx.item.PriceCents != 2999 {
		t.Errorf("price = %v, want 2999", fx.item.PriceCents)
	}

	if _, err := fx.ws.Create(fx.child.ID, "Lego Set", "", "", nil, ""); err != nil {
		t.Fatalf("create second item: %v", err)
	}
	items, err := fx.ws.ListByProfile(fx.child.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Title != "Lego Set" {
		t.Error("newest item should come first")
	}
}

func TestWishlistClaimExclusive(t *testing.T) {
	fx := setupWishlist(t, false)
	now := time.Now()

	item, err := fx.ws.Claim(fx.parent, fx.item.ID, now)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !item.ClaimedByProfile(fx.parent.ID) {
		t.Error("item should be claimed by parent")
	}

	_, err = fx.ws.Claim(fx.other, fx.item.ID, now)
	if !errors.Is(err, gift.ErrPermissionDenied) {
		t.Fatalf("second claimer: got %v, want ErrPermissionDenied", err)
	}

	// Release, then the other parent may claim.
	if _, err := fx.ws.Unclaim(fx.parent, fx.item.ID); err != nil {
		t.Fatalf("unclaim: %v", err)
	}
	item, err = fx.ws.Claim(fx.other, fx.item.ID, now)
	if err != nil {
		t.Fatalf("claim after release: %v", err)
	}
	if !item.ClaimedByProfile(fx.other.ID) {
		t.Error("released item should be claimable again")
	}
}

func TestWishlistReclaimKeepsTimestamp(t *testing.T) {
	fx := setupWishlist(t, false)
	first := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	item, err := fx.ws.Claim(fx.parent, fx.item.ID, first)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	item, err = fx.ws.Claim(fx.parent, item.ID, first.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("re-claim: %v", err)
	}
	if item.ClaimedAt == nil || !item.ClaimedAt.Equal(first) {
		t.Errorf("claimed_at = %v, want sticky %v", item.ClaimedAt, first)
	}
}

func TestWishlistUnclaimPermissions(t *testing.T) {
	fx := setupWishlist(t, false)
	now := time.Now()

	item, err := fx.ws.Claim(fx.parent, fx.item.ID, now)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	// The unrelated parent can neither release someone else's claim...
	if _, err := fx.ws.Unclaim(fx.other, item.ID); !errors.Is(err, gift.ErrPermissionDenied) {
		t.Fatalf("stranger unclaim: got %v, want ErrPermissionDenied", err)
	}
	// ...nor can the child owner.
	if _, err := fx.ws.Unclaim(fx.child, item.ID); !errors.Is(err, gift.ErrPermissionDenied) {
		t.Fatalf("child unclaim: got %v, want ErrPermissionDenied", err)
	}
	// The claimer can.
	item, err = fx.ws.Unclaim(fx.parent, item.ID)
	if err != nil {
		t.Fatalf("claimer unclaim: %v", err)
	}
	if item.IsClaimed {
		t.Error("claim should be released")
	}
	if item.ClaimedAt == nil {
		t.Error("claimed_at survives unclaim as a historical marker")
	}
}

func TestWishlistPurchaseIndependentOfClaim(t *testing.T) {
	fx := setupWishlist(t, false)
	now := time.Now()

	if _, err := fx.ws.Claim(fx.parent, fx.item.ID, now); err != nil {
		t.Fatalf("claim: %v", err)
	}
	// A different parent records the purchase; the claim is untouched.
	item, err := fx.ws.MarkPurchased(fx.other, fx.item.ID, now)
	if err != nil {
		t.Fatalf("mark purchased: %v", err)
	}
	if !item.IsPurchased || item.PurchasedBy == nil || *item.PurchasedBy != fx.other.ID {
		t.Errorf("purchase state wrong: %+v", item)
	}
	if !item.ClaimedByProfile(fx.parent.ID) {
		t.Error("claim must survive a purchase")
	}

	item, err = fx.ws.ClearPurchased(fx.parent, fx.item.ID)
	if err != nil {
		t.Fatalf("clear purchased: %v", err)
	}
	if item.IsPurchased || item.PurchasedBy != nil || item.PurchasedAt != nil {
		t.Error("clear should reset all purchase fields")
	}
}

func TestWishlistTransitionsByChildDenied(t *testing.T) {
	fx := setupWishlist(t, false)
	now := time.Now()

	if _, err := fx.ws.Claim(fx.child, fx.item.ID, now); !errors.Is(err, gift.ErrPermissionDenied) {
		t.Errorf("child claim: got %v, want ErrPermissionDenied", err)
	}
	if _, err := fx.ws.MarkPurchased(fx.child, fx.item.ID, now); !errors.Is(err, gift.ErrPermissionDenied) {
		t.Errorf("child purchase: got %v, want ErrPermissionDenied", err)
	}
	if _, err := fx.ws.ClearPurchased(fx.child, fx.item.ID); !errors.Is(err, gift.ErrPermissionDenied) {
		t.Errorf("child clear: got %v, want ErrPermissionDenied", err)
	}
}

func TestWishlistTransitionsNotFound(t *testing.T) {
	fx := setupWishlist(t, false)
	if _, err := fx.ws.Claim(fx.parent, 99999, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("claim missing item: got %v, want ErrNotFound", err)
	}
	if _, err := fx.ws.Unclaim(fx.parent, 99999); !errors.Is(err, ErrNotFound) {
		t.Errorf("unclaim missing item: got %v, want ErrNotFound", err)
	}
}

func TestWishlistClaimConcurrent(t *testing.T) {
	fx := setupWishlist(t, true)
	now := time.Now()

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, actor := range []*model.Profile{fx.parent, fx.other} {
		wg.Add(1)
		go func(actor *model.Profile) {
			defer wg.Done()
			_, err := fx.ws.Claim(actor, fx.item.ID, now)
			results <- err
		}(actor)
	}
	wg.Wait()
	close(results)

	var ok, denied int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, gift.ErrPermissionDenied):
			denied++
		default:
			t.Fatalf("concurrent claim: %v", err)
		}
	}
	if ok != 1 || denied != 1 {
		t.Fatalf("got %d successes and %d denials, want exactly 1 each", ok, denied)
	}

	item, err := fx.ws.GetByID(fx.item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if !item.IsClaimed || item.ClaimedBy == nil {
		t.Error("exactly one claim should have landed")
	}
}

func TestWishlistDeleteProfileClearsClaimRef(t *testing.T) {
	db := setupTestDB(t)
	us := NewUserStore(db)
	fs := NewFamilyStore(db)
	ps := NewProfileStore(db)
	ws := NewWishlistStore(db)

	f, err := fs.Create("Smiths")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	claimerUID := createTestUser(t, us, "mom")
	otherUID := createTestUser(t, us, "dad")
	ownerUID := createTestUser(t, us, "kid")

	claimer, err := ps.GetByUserID(claimerUID)
	if err != nil {
		t.Fatalf("get claimer: %v", err)
	}
	claimer, err = ps.Update(claimer.ID, ProfileUpdate{FamilyID: &f.ID, Role: model.RoleParent})
	if err != nil {
		t.Fatalf("update claimer: %v", err)
	}
	other, err := ps.GetByUserID(otherUID)
	if err != nil {
		t.Fatalf("get other parent: %v", err)
	}
	other, err = ps.Update(other.ID, ProfileUpdate{FamilyID: &f.ID, Role: model.RoleParent})
	if err != nil {
		t.Fatalf("update other parent: %v", err)
	}
	owner, err := ps.GetByUserID(ownerUID)
	if err != nil {
		t.Fatalf("get owner: %v", err)
	}

	item, err := ws.Create(owner.ID, "Bike", "", "", nil, "")
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if _, err := ws.Claim(claimer, item.ID, time.Now()); err != nil {
		t.Fatalf("claim: %v", err)
	}

	// Removing the claimer's account releases the claim entirely: the
	// item survives, open, never claimed-by-nobody.
	if err := us.Delete(claimerUID); err != nil {
		t.Fatalf("delete claimer: %v", err)
	}
	item, err = ws.GetByID(item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item == nil {
		t.Fatal("item must survive claimer deletion")
	}
	if item.ClaimedBy != nil {
		t.Error("claimed_by should be cleared when the profile goes away")
	}
	if item.IsClaimed {
		t.Error("a claim cannot outlive its claimer")
	}

	// And another parent can pick it up.
	item, err = ws.Claim(other, item.ID, time.Now())
	if err != nil {
		t.Fatalf("claim after claimer deletion: %v", err)
	}
	if !item.ClaimedByProfile(other.ID) {
		t.Error("released item should be claimable by another parent")
	}
}
