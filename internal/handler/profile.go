package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/tomstout/gifter/internal/auth"
	"github.com/tomstout/gifter/internal/authz"
	"github.com/tomstout/gifter/internal/media"
	"github.com/tomstout/gifter/internal/model"
	"github.com/tomstout/gifter/internal/occasion"
	"github.com/tomstout/gifter/internal/store"
)

const maxUploadBytes = 5 << 20

type ProfileHandler struct {
	profiles  *store.ProfileStore
	families  *store.FamilyStore
	wishlists *store.WishlistStore
	media     *media.Storage
	logger    *slog.Logger
}

func NewProfileHandler(profiles *store.ProfileStore, families *store.FamilyStore, wishlists *store.WishlistStore, mediaStorage *media.Storage, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles:  profiles,
		families:  families,
		wishlists: wishlists,
		media:     mediaStorage,
		logger:    logger,
	}
}

func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.ListApproved()
	if err != nil {
		h.serverError(w, "list profiles", err)
		return
	}
	if profiles == nil {
		profiles = []model.ProfileDetail{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

// Detail returns a profile with its wishlist. What the caller sees
// depends on who they are: private notes only show to other parents, and
// claim/purchase state is hidden from the list's owner and from children.
func (h *ProfileHandler) Detail(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewerProfile(w, r)
	if !ok {
		return
	}

	target, err := h.profiles.GetDetailByUsername(r.PathValue("username"))
	if err != nil {
		h.serverError(w, "get profile", err)
		return
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	ac, _ := auth.FromContext(r.Context())
	// Unapproved profiles are invisible to everyone but their owner, and
	// unapproved viewers see only themselves.
	if !target.IsApproved && target.UserID != ac.UserID {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	if !ac.Approved && target.UserID != ac.UserID {
		writeError(w, http.StatusForbidden, "account pending approval")
		return
	}

	if !authz.CanViewPrivateNotes(viewer, &target.Profile) {
		target.PrivateNotes = ""
	}

	items, err := h.wishlists.ListByProfile(target.Profile.ID)
	if err != nil {
		h.serverError(w, "list wishlist", err)
		return
	}
	items = redactItems(items, authz.CanViewPurchaseInfo(viewer, &target.Profile))

	resp := map[string]any{
		"profile":  target,
		"wishlist": items,
		"can_edit": authz.CanEditProfile(viewer, &target.Profile),
	}
	if target.Birthday != nil {
		resp["age"] = occasion.Age(*target.Birthday, time.Now())
	}
	writeJSON(w, http.StatusOK, resp)
}

// profileUpdateRequest uses pointers so an absent field means "leave it
// alone" while an empty string explicitly clears.
type profileUpdateRequest struct {
	Role           *string `json:"role"`
	FamilySlug     *string `json:"family_slug"`
	Birthday       *string `json:"birthday"`
	Anniversary    *string `json:"anniversary"`
	ShirtSize      *string `json:"shirt_size"`
	PantsSize      *string `json:"pants_size"`
	ShoeSize       *string `json:"shoe_size"`
	Hobbies        *string `json:"hobbies"`
	FavoriteStores *string `json:"favorite_stores"`
	FavoriteSites  *string `json:"favorite_websites"`
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	_, target, ok := h.editableTarget(w, r)
	if !ok {
		return
	}

	var req profileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	// Start from what's stored and overlay only the provided fields, so
	// a partial edit never detaches memberships as a side effect.
	upd := store.ProfileUpdate{
		FamilyID:       target.FamilyID,
		Role:           target.Role,
		Birthday:       target.Birthday,
		Anniversary:    target.Anniversary,
		ShirtSize:      target.ShirtSize,
		PantsSize:      target.PantsSize,
		ShoeSize:       target.ShoeSize,
		Hobbies:        target.Hobbies,
		FavoriteStores: target.FavoriteStores,
		FavoriteSites:  target.FavoriteSites,
	}
	if req.Role != nil {
		if *req.Role != "" && *req.Role != model.RoleParent && *req.Role != model.RoleChild {
			writeError(w, http.StatusBadRequest, "role must be Parent or Child")
			return
		}
		upd.Role = *req.Role
	}
	if req.ShirtSize != nil {
		upd.ShirtSize = *req.ShirtSize
	}
	if req.PantsSize != nil {
		upd.PantsSize = *req.PantsSize
	}
	if req.ShoeSize != nil {
		upd.ShoeSize = *req.ShoeSize
	}
	if req.Hobbies != nil {
		upd.Hobbies = *req.Hobbies
	}
	if req.FavoriteStores != nil {
		upd.FavoriteStores = *req.FavoriteStores
	}
	if req.FavoriteSites != nil {
		upd.FavoriteSites = *req.FavoriteSites
	}

	var err error
	if req.Birthday != nil {
		if upd.Birthday, err = parseDate(*req.Birthday); err != nil {
			writeError(w, http.StatusBadRequest, "birthday must be YYYY-MM-DD")
			return
		}
	}
	if req.Anniversary != nil {
		if upd.Anniversary, err = parseDate(*req.Anniversary); err != nil {
			writeError(w, http.StatusBadRequest, "anniversary must be YYYY-MM-DD")
			return
		}
	}

	var family *model.Family
	if req.FamilySlug != nil {
		if *req.FamilySlug == "" {
			upd.FamilyID = nil
		} else {
			family, err = h.families.GetBySlug(*req.FamilySlug)
			if err != nil {
				h.serverError(w, "look up family", err)
				return
			}
			if family == nil {
				writeError(w, http.StatusBadRequest, "no family with that slug")
				return
			}
			upd.FamilyID = &family.ID
		}
	}

	updated, err := h.profiles.Update(target.ID, upd)
	if err != nil {
		h.serverError(w, "update profile", err)
		return
	}

	// A parent joining a family takes one of its two seats.
	if family != nil && updated.IsParent() {
		if _, err := h.families.AssignParentSlot(family.ID, updated.UserID); err != nil {
			h.serverError(w, "assign parent slot", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, updated)
}

// UpdateNotes edits the gift notes other parents keep about a profile.
// The owner never holds this permission on themselves.
func (h *ProfileHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewerProfile(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	target, err := h.profiles.GetByID(id)
	if err != nil {
		h.serverError(w, "get profile", err)
		return
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	if !authz.CanViewPrivateNotes(viewer, target) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req struct {
		PrivateNotes string `json:"private_notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.profiles.SetPrivateNotes(id, req.PrivateNotes); err != nil {
		h.serverError(w, "set notes", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type avatarRequest struct {
	Source  string `json:"source"`
	Library string `json:"library"`
}

// SetAvatar switches a profile to the default avatar or a library image.
// Uploads go through UploadAvatar; switching away from an upload removes
// the stored object.
func (h *ProfileHandler) SetAvatar(w http.ResponseWriter, r *http.Request) {
	_, target, ok := h.editableTarget(w, r)
	if !ok {
		return
	}

	var req avatarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	switch req.Source {
	case model.AvatarDefault:
		req.Library = ""
	case model.AvatarLibrary:
		if req.Library == "" {
			writeError(w, http.StatusBadRequest, "library avatar requires a filename")
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "source must be default or library")
		return
	}

	oldKey := ""
	if target.AvatarSource == model.AvatarUpload {
		oldKey = target.AvatarUploadKey
	}

	updated, err := h.profiles.SetAvatar(target.ID, req.Source, req.Library, "")
	if err != nil {
		h.serverError(w, "set avatar", err)
		return
	}

	if oldKey != "" && h.media.Configured() {
		if err := h.media.Delete(r.Context(), oldKey); err != nil {
			h.logger.Warn("delete stale avatar", "key", oldKey, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, updated)
}

// UploadAvatar accepts a multipart PNG/JPEG and stores it keyed by the
// owning account, replacing any previous upload.
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	_, target, ok := h.editableTarget(w, r)
	if !ok {
		return
	}
	if !h.media.Configured() {
		writeError(w, http.StatusServiceUnavailable, "image storage is not configured")
		return
	}

	file, header, ok := readUpload(w, r, "avatar")
	if !ok {
		return
	}
	defer file.Close()

	ext := filepath.Ext(header.Filename)
	if !media.ValidImageExt(ext) {
		writeError(w, http.StatusBadRequest, "avatar must be a PNG or JPEG")
		return
	}

	key, err := h.media.PutAvatar(r.Context(), target.UserID, ext, file, header.Header.Get("Content-Type"))
	if err != nil {
		h.serverError(w, "store avatar", err)
		return
	}

	updated, err := h.profiles.SetAvatar(target.ID, model.AvatarUpload, "", key)
	if err != nil {
		h.serverError(w, "set avatar", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Approve marks a profile as reviewed. Staff only; routed behind
// RequireStaff.
func (h *ProfileHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.profiles.Approve(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		h.serverError(w, "approve profile", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

// viewerProfile loads the caller's profile out of the AuthContext.
func (h *ProfileHandler) viewerProfile(w http.ResponseWriter, r *http.Request) (*model.Profile, bool) {
	viewer, err := h.profiles.GetByID(auth.ProfileID(r.Context()))
	if err != nil || viewer == nil {
		h.serverError(w, "get viewer profile", err)
		return nil, false
	}
	return viewer, true
}

// editableTarget resolves {id} and checks the caller may edit it. While
// unapproved, callers may only touch their own profile.
func (h *ProfileHandler) editableTarget(w http.ResponseWriter, r *http.Request) (viewer, target *model.Profile, ok bool) {
	viewer, ok = h.viewerProfile(w, r)
	if !ok {
		return nil, nil, false
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, nil, false
	}
	target, err = h.profiles.GetByID(id)
	if err != nil {
		h.serverError(w, "get profile", err)
		return nil, nil, false
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return nil, nil, false
	}
	ac, _ := auth.FromContext(r.Context())
	if !ac.Approved && target.ID != viewer.ID {
		writeError(w, http.StatusForbidden, "account pending approval")
		return nil, nil, false
	}
	if !authz.CanEditProfile(viewer, target) {
		writeError(w, http.StatusForbidden, "forbidden")
		return nil, nil, false
	}
	return viewer, target, true
}

func (h *ProfileHandler) serverError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// redactItems hides claim and purchase state from callers who may not
// see gift coordination, most importantly the list's owner.
func redactItems(items []model.WishlistItem, canView bool) []model.WishlistItem {
	if items == nil {
		return []model.WishlistItem{}
	}
	if canView {
		return items
	}
	out := make([]model.WishlistItem, len(items))
	for i, item := range items {
		item.IsClaimed = false
		item.ClaimedBy = nil
		item.ClaimedAt = nil
		item.IsPurchased = false
		item.PurchasedBy = nil
		item.PurchasedAt = nil
		out[i] = item
	}
	return out
}

// readUpload pulls one file out of a size-capped multipart form.
func readUpload(w http.ResponseWriter, r *http.Request, field string) (multipart.File, *multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "upload too large or malformed")
		return nil, nil, false
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		writeError(w, http.StatusBadRequest, field+" file is required")
		return nil, nil, false
	}
	return file, header, true
}
