// Package authz holds the viewer/target permission predicates. Every
// profile- and wishlist-level check in the handlers routes through these
// three functions; there are no parallel rules elsewhere.
package authz

import "github.com/tomstout/gifter/internal/model"

// CanEditProfile reports whether viewer may edit target's profile and
// wishlist. Self-edit is always allowed; a Parent may edit a Child in
// the same family.
func CanEditProfile(viewer, target *model.Profile) bool {
	if viewer.ID == target.ID {
		return true
	}
	return viewer.IsParent() && target.Role == model.RoleChild && viewer.SameFamilyAs(target)
}

// CanViewPrivateNotes reports whether viewer may see (and write) the
// private notes on target's profile. Only parents, and never their own:
// notes are gift hints about a person, kept from that person.
func CanViewPrivateNotes(viewer, target *model.Profile) bool {
	return viewer.IsParent() && viewer.ID != target.ID
}

// CanViewPurchaseInfo reports whether viewer may see claim and purchase
// state on target's wishlist. Children never see it, and a parent never
// sees it on their own list, so gift status stays a surprise.
func CanViewPurchaseInfo(viewer, target *model.Profile) bool {
	return viewer.IsParent() && viewer.ID != target.ID
}
