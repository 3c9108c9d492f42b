package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/tomstout/gifter/internal/auth"
	"github.com/tomstout/gifter/internal/store"
)

const SessionCookieName = "gifter_session"

// RequireAuth validates the session cookie and populates AuthContext with
// the caller's account, profile, family and staff flags.
func RequireAuth(sessions *store.SessionStore, users *store.UserStore, profiles *store.ProfileStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			sess, err := sessions.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				unauthorized(w)
				return
			}

			user, err := users.GetByID(sess.UserID)
			if err != nil || user == nil {
				unauthorized(w)
				return
			}
			profile, err := profiles.GetByUserID(sess.UserID)
			if err != nil || profile == nil {
				unauthorized(w)
				return
			}

			ac := auth.AuthContext{
				UserID:    user.ID,
				ProfileID: profile.ID,
				Role:      profile.Role,
				Approved:  profile.IsApproved,
				Staff:     user.IsStaff,
				SessionID: sess.ID,
			}
			if profile.FamilyID != nil {
				ac.FamilyID = *profile.FamilyID
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireApproved rejects accounts still waiting for admin approval. It
// assumes RequireAuth already ran.
func RequireApproved(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			unauthorized(w)
			return
		}
		if !ac.Approved {
			writeError(w, http.StatusForbidden, "account pending approval")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireStaff checks that the authenticated user is a site admin.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsStaff(r.Context()) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "authentication required")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
