package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tomstout/gifter/internal/auth"
	"github.com/tomstout/gifter/internal/email"
	"github.com/tomstout/gifter/internal/middleware"
	"github.com/tomstout/gifter/internal/model"
	"github.com/tomstout/gifter/internal/store"
	"golang.org/x/crypto/bcrypt"
)

const sessionCookieMaxAge = 90 * 24 * time.Hour

type AuthHandler struct {
	users    *store.UserStore
	profiles *store.ProfileStore
	families *store.FamilyStore
	sessions *store.SessionStore
	email    *email.Client
	logger   *slog.Logger
}

func NewAuthHandler(users *store.UserStore, profiles *store.ProfileStore, families *store.FamilyStore, sessions *store.SessionStore, emailClient *email.Client, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:    users,
		profiles: profiles,
		families: families,
		sessions: sessions,
		email:    emailClient,
		logger:   logger,
	}
}

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Role            string `json:"role"`
	NewFamilyName   string `json:"new_family_name"`
	FamilySlug      string `json:"family_slug"`
}

// Register creates the account and its profile, optionally creating or
// joining a family. New accounts wait for admin approval.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Username = strings.TrimSpace(strings.ToLower(req.Username))
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Username == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "username and email are required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if req.Password != req.PasswordConfirm {
		writeError(w, http.StatusBadRequest, "passwords do not match")
		return
	}
	if req.Role != "" && req.Role != model.RoleParent && req.Role != model.RoleChild {
		writeError(w, http.StatusBadRequest, "role must be Parent or Child")
		return
	}
	if req.NewFamilyName != "" && req.FamilySlug != "" {
		writeError(w, http.StatusBadRequest, "choose a new family or an existing one, not both")
		return
	}

	if taken, err := h.users.UsernameExists(req.Username); err != nil {
		h.serverError(w, "check username", err)
		return
	} else if taken {
		writeError(w, http.StatusConflict, "username is taken")
		return
	}
	if taken, err := h.users.EmailExists(req.Email); err != nil {
		h.serverError(w, "check email", err)
		return
	} else if taken {
		writeError(w, http.StatusConflict, "an account with that email already exists")
		return
	}

	// Resolve the family before creating anything, so a bad slug does not
	// leave a half-registered account.
	var family *model.Family
	if req.FamilySlug != "" {
		f, err := h.families.GetBySlug(req.FamilySlug)
		if err != nil {
			h.serverError(w, "look up family", err)
			return
		}
		if f == nil {
			writeError(w, http.StatusBadRequest, "no family with that slug")
			return
		}
		family = f
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.serverError(w, "hash password", err)
		return
	}

	user, err := h.users.Create(req.Username, req.Email, req.FirstName, req.LastName, string(hash))
	if err != nil {
		h.serverError(w, "create user", err)
		return
	}

	if req.NewFamilyName != "" {
		family, err = h.families.Create(req.NewFamilyName)
		if err != nil {
			h.serverError(w, "create family", err)
			return
		}
	}

	profile, err := h.profiles.GetByUserID(user.ID)
	if err != nil || profile == nil {
		h.serverError(w, "load profile", err)
		return
	}
	if family != nil || req.Role != "" {
		upd := store.ProfileUpdate{Role: req.Role}
		if family != nil {
			upd.FamilyID = &family.ID
		}
		profile, err = h.profiles.Update(profile.ID, upd)
		if err != nil {
			h.serverError(w, "update profile", err)
			return
		}
	}
	if family != nil && req.Role == model.RoleParent {
		if _, err := h.families.AssignParentSlot(family.ID, user.ID); err != nil {
			h.serverError(w, "assign parent slot", err)
			return
		}
	}

	// Admin notice is best-effort: the registration stands even if the
	// email never leaves.
	if h.email.Configured() {
		if err := h.email.SendNewRegistrationNotice(user.FullName(), user.Email); err != nil {
			h.logger.Warn("registration notice failed", "error", err)
		}
	}

	sess, err := h.sessions.Create(user.ID)
	if err != nil {
		h.serverError(w, "create session", err)
		return
	}
	setSessionCookie(w, sess.Token)

	writeJSON(w, http.StatusCreated, map[string]any{
		"user":    user,
		"profile": profile,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Username = strings.TrimSpace(strings.ToLower(req.Username))

	hash, err := h.users.GetPasswordHash(req.Username)
	if err != nil {
		h.serverError(w, "get password hash", err)
		return
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	user, err := h.users.GetByUsername(req.Username)
	if err != nil || user == nil {
		h.serverError(w, "get user", err)
		return
	}

	sess, err := h.sessions.Create(user.ID)
	if err != nil {
		h.serverError(w, "create session", err)
		return
	}
	setSessionCookie(w, sess.Token)

	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.Delete(cookie.Value); err != nil {
			h.logger.Warn("delete session", "error", err)
		}
	}
	clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the caller's own account and profile, approved or not.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	user, err := h.users.GetByID(ac.UserID)
	if err != nil || user == nil {
		h.serverError(w, "get user", err)
		return
	}
	profile, err := h.profiles.GetByUserID(ac.UserID)
	if err != nil || profile == nil {
		h.serverError(w, "get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":     user,
		"profile":  profile,
		"complete": model.IsComplete(user, profile),
	})
}

func (h *AuthHandler) serverError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionCookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
