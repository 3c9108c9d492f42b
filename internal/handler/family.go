package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tomstout/gifter/internal/auth"
	"github.com/tomstout/gifter/internal/model"
	"github.com/tomstout/gifter/internal/occasion"
	"github.com/tomstout/gifter/internal/store"
)

type FamilyHandler struct {
	families *store.FamilyStore
	profiles *store.ProfileStore
	logger   *slog.Logger
}

func NewFamilyHandler(families *store.FamilyStore, profiles *store.ProfileStore, logger *slog.Logger) *FamilyHandler {
	return &FamilyHandler{families: families, profiles: profiles, logger: logger}
}

func (h *FamilyHandler) List(w http.ResponseWriter, r *http.Request) {
	families, err := h.families.List()
	if err != nil {
		h.serverError(w, "list families", err)
		return
	}
	if families == nil {
		families = []model.Family{}
	}
	writeJSON(w, http.StatusOK, families)
}

// Detail returns a family with its members (parents first) and the next
// couple of birthdays and anniversaries coming up.
func (h *FamilyHandler) Detail(w http.ResponseWriter, r *http.Request) {
	family, err := h.families.GetBySlug(r.PathValue("slug"))
	if err != nil {
		h.serverError(w, "get family", err)
		return
	}
	if family == nil {
		writeError(w, http.StatusNotFound, "family not found")
		return
	}

	members, err := h.families.Members(family.ID)
	if err != nil {
		h.serverError(w, "list members", err)
		return
	}
	if members == nil {
		members = []model.ProfileDetail{}
	}

	people := make([]occasion.Person, 0, len(members))
	for _, m := range members {
		people = append(people, occasion.Person{
			ProfileID:   m.Profile.ID,
			Name:        m.FirstName,
			Role:        m.Role,
			Birthday:    m.Birthday,
			Anniversary: m.Anniversary,
		})
	}
	events := occasion.Upcoming(people, time.Now())
	if events == nil {
		events = []occasion.Event{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"family":      family,
		"members":     members,
		"coming_soon": events,
	})
}

type createFamilyRequest struct {
	Name string `json:"name"`
}

// Create makes a new family and moves the caller into it, seating them
// as a parent when their role allows.
func (h *FamilyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createFamilyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	family, err := h.families.Create(req.Name)
	if err != nil {
		h.serverError(w, "create family", err)
		return
	}

	profile, err := h.profiles.GetByID(auth.ProfileID(r.Context()))
	if err != nil || profile == nil {
		h.serverError(w, "get profile", err)
		return
	}
	if _, err := h.profiles.Update(profile.ID, store.ProfileUpdate{
		FamilyID:       &family.ID,
		Role:           profile.Role,
		Birthday:       profile.Birthday,
		Anniversary:    profile.Anniversary,
		ShirtSize:      profile.ShirtSize,
		PantsSize:      profile.PantsSize,
		ShoeSize:       profile.ShoeSize,
		Hobbies:        profile.Hobbies,
		FavoriteStores: profile.FavoriteStores,
		FavoriteSites:  profile.FavoriteSites,
	}); err != nil {
		h.serverError(w, "join family", err)
		return
	}
	if profile.IsParent() {
		if _, err := h.families.AssignParentSlot(family.ID, profile.UserID); err != nil {
			h.serverError(w, "assign parent slot", err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, family)
}

func (h *FamilyHandler) serverError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
