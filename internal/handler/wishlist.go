package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomstout/gifter/internal/auth"
	"github.com/tomstout/gifter/internal/authz"
	"github.com/tomstout/gifter/internal/gift"
	"github.com/tomstout/gifter/internal/media"
	"github.com/tomstout/gifter/internal/model"
	"github.com/tomstout/gifter/internal/store"
)

type WishlistHandler struct {
	wishlists *store.WishlistStore
	profiles  *store.ProfileStore
	media     *media.Storage
	logger    *slog.Logger
}

func NewWishlistHandler(wishlists *store.WishlistStore, profiles *store.ProfileStore, mediaStorage *media.Storage, logger *slog.Logger) *WishlistHandler {
	return &WishlistHandler{
		wishlists: wishlists,
		profiles:  profiles,
		media:     mediaStorage,
		logger:    logger,
	}
}

type wishlistItemRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	PriceCents  *int64 `json:"price_cents"`
}

// List returns a profile's wishlist, with gift coordination state hidden
// from the owner and from children.
func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	viewer, owner, ok := h.ownerProfile(w, r)
	if !ok {
		return
	}
	items, err := h.wishlists.ListByProfile(owner.ID)
	if err != nil {
		h.serverError(w, "list wishlist", err)
		return
	}
	writeJSON(w, http.StatusOK, redactItems(items, authz.CanViewPurchaseInfo(viewer, owner)))
}

// Create adds an item to a wishlist the caller may edit.
func (h *WishlistHandler) Create(w http.ResponseWriter, r *http.Request) {
	viewer, owner, ok := h.ownerProfile(w, r)
	if !ok {
		return
	}
	if !authz.CanEditProfile(viewer, owner) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	req, ok := decodeItem(w, r)
	if !ok {
		return
	}

	item, err := h.wishlists.Create(owner.ID, req.Title, req.Description, req.Link, req.PriceCents, "")
	if err != nil {
		h.serverError(w, "create item", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *WishlistHandler) Update(w http.ResponseWriter, r *http.Request) {
	_, item, ok := h.editableItem(w, r)
	if !ok {
		return
	}

	req, ok := decodeItem(w, r)
	if !ok {
		return
	}

	updated, err := h.wishlists.Update(item.ID, req.Title, req.Description, req.Link, req.PriceCents, item.ImageKey)
	if err != nil {
		h.serverError(w, "update item", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *WishlistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, item, ok := h.editableItem(w, r)
	if !ok {
		return
	}

	if err := h.wishlists.Delete(item.ID); err != nil {
		h.serverError(w, "delete item", err)
		return
	}
	if item.ImageKey != "" && h.media.Configured() {
		if err := h.media.Delete(r.Context(), item.ImageKey); err != nil {
			h.logger.Warn("delete item image", "key", item.ImageKey, "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage attaches a photo to an item the caller may edit.
func (h *WishlistHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	_, item, ok := h.editableItem(w, r)
	if !ok {
		return
	}
	if !h.media.Configured() {
		writeError(w, http.StatusServiceUnavailable, "image storage is not configured")
		return
	}

	file, header, ok := readUpload(w, r, "image")
	if !ok {
		return
	}
	defer file.Close()

	ext := filepath.Ext(header.Filename)
	if !media.ValidImageExt(ext) {
		writeError(w, http.StatusBadRequest, "image must be a PNG or JPEG")
		return
	}

	key, err := h.media.PutWishlistImage(r.Context(), ext, file, header.Header.Get("Content-Type"))
	if err != nil {
		h.serverError(w, "store image", err)
		return
	}
	oldKey := item.ImageKey

	updated, err := h.wishlists.Update(item.ID, item.Title, item.Description, item.Link, item.PriceCents, key)
	if err != nil {
		h.serverError(w, "update item", err)
		return
	}
	if oldKey != "" {
		if err := h.media.Delete(r.Context(), oldKey); err != nil {
			h.logger.Warn("delete replaced image", "key", oldKey, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *WishlistHandler) Claim(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor *model.Profile, itemID int64) (*model.WishlistItem, error) {
		return h.wishlists.Claim(actor, itemID, time.Now().UTC())
	})
}

func (h *WishlistHandler) Unclaim(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.wishlists.Unclaim)
}

func (h *WishlistHandler) MarkPurchased(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor *model.Profile, itemID int64) (*model.WishlistItem, error) {
		return h.wishlists.MarkPurchased(actor, itemID, time.Now().UTC())
	})
}

func (h *WishlistHandler) ClearPurchased(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.wishlists.ClearPurchased)
}

// transition runs one claim/purchase state change for the caller and
// maps its sentinel errors onto status codes.
func (h *WishlistHandler) transition(w http.ResponseWriter, r *http.Request, fn func(*model.Profile, int64) (*model.WishlistItem, error)) {
	actor, err := h.profiles.GetByID(auth.ProfileID(r.Context()))
	if err != nil || actor == nil {
		h.serverError(w, "get actor profile", err)
		return
	}
	itemID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	item, err := fn(actor, itemID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "item not found")
		return
	case errors.Is(err, gift.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "not allowed")
		return
	case err != nil:
		h.serverError(w, "wishlist transition", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// ownerProfile resolves {id} as the wishlist owner's profile.
func (h *WishlistHandler) ownerProfile(w http.ResponseWriter, r *http.Request) (viewer, owner *model.Profile, ok bool) {
	viewer, err := h.profiles.GetByID(auth.ProfileID(r.Context()))
	if err != nil || viewer == nil {
		h.serverError(w, "get viewer profile", err)
		return nil, nil, false
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, nil, false
	}
	owner, err = h.profiles.GetByID(id)
	if err != nil {
		h.serverError(w, "get owner profile", err)
		return nil, nil, false
	}
	if owner == nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return nil, nil, false
	}
	return viewer, owner, true
}

// editableItem resolves {id} as an item and checks the caller may edit
// the owning profile's list.
func (h *WishlistHandler) editableItem(w http.ResponseWriter, r *http.Request) (*model.Profile, *model.WishlistItem, bool) {
	viewer, err := h.profiles.GetByID(auth.ProfileID(r.Context()))
	if err != nil || viewer == nil {
		h.serverError(w, "get viewer profile", err)
		return nil, nil, false
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, nil, false
	}
	item, err := h.wishlists.GetByID(id)
	if err != nil {
		h.serverError(w, "get item", err)
		return nil, nil, false
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return nil, nil, false
	}
	owner, err := h.profiles.GetByID(item.ProfileID)
	if err != nil || owner == nil {
		h.serverError(w, "get owner profile", err)
		return nil, nil, false
	}
	if !authz.CanEditProfile(viewer, owner) {
		writeError(w, http.StatusForbidden, "forbidden")
		return nil, nil, false
	}
	return viewer, item, true
}

func decodeItem(w http.ResponseWriter, r *http.Request) (wishlistItemRequest, bool) {
	var req wishlistItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return req, false
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return req, false
	}
	if req.PriceCents != nil && *req.PriceCents < 0 {
		writeError(w, http.StatusBadRequest, "price cannot be negative")
		return req, false
	}
	return req, true
}

func (h *WishlistHandler) serverError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
