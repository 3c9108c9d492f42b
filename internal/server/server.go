package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/tomstout/gifter/internal/email"
	"github.com/tomstout/gifter/internal/handler"
	"github.com/tomstout/gifter/internal/media"
	"github.com/tomstout/gifter/internal/middleware"
	"github.com/tomstout/gifter/internal/store"
)

type Server struct {
	db           *sql.DB
	authH        *handler.AuthHandler
	profileH     *handler.ProfileHandler
	familyH      *handler.FamilyHandler
	wishlistH    *handler.WishlistHandler
	sessionStore *store.SessionStore
	userStore    *store.UserStore
	profileStore *store.ProfileStore
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, emailClient *email.Client, mediaStorage *media.Storage, logger *slog.Logger) *Server {
	userStore := store.NewUserStore(db)
	profileStore := store.NewProfileStore(db)
	familyStore := store.NewFamilyStore(db)
	wishlistStore := store.NewWishlistStore(db)
	sessionStore := store.NewSessionStore(db)

	return &Server{
		db:           db,
		authH:        handler.NewAuthHandler(userStore, profileStore, familyStore, sessionStore, emailClient, logger.With("component", "auth")),
		profileH:     handler.NewProfileHandler(profileStore, familyStore, wishlistStore, mediaStorage, logger.With("component", "profile")),
		familyH:      handler.NewFamilyHandler(familyStore, profileStore, logger.With("component", "family")),
		wishlistH:    handler.NewWishlistHandler(wishlistStore, profileStore, mediaStorage, logger.With("component", "wishlist")),
		sessionStore: sessionStore,
		userStore:    userStore,
		profileStore: profileStore,
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore, s.profileStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)

	// Own-profile routes stay reachable while approval is pending; the
	// handlers restrict unapproved callers to themselves.
	mux.HandleFunc("GET /api/profiles/{username}", s.profileH.Detail)
	mux.HandleFunc("PUT /api/profiles/{id}", s.profileH.Update)
	mux.HandleFunc("PUT /api/profiles/{id}/avatar", s.profileH.SetAvatar)
	mux.HandleFunc("POST /api/profiles/{id}/avatar/upload", s.profileH.UploadAvatar)

	// Everything else requires an approved account.
	approved := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireApproved(h)
	}
	mux.Handle("GET /api/profiles", approved(s.profileH.List))
	mux.Handle("PUT /api/profiles/{id}/notes", approved(s.profileH.UpdateNotes))

	mux.Handle("GET /api/families", approved(s.familyH.List))
	mux.Handle("POST /api/families", approved(s.familyH.Create))
	mux.Handle("GET /api/families/{slug}", approved(s.familyH.Detail))

	mux.Handle("GET /api/profiles/{id}/wishlist", approved(s.wishlistH.List))
	mux.Handle("POST /api/profiles/{id}/wishlist", approved(s.wishlistH.Create))
	mux.Handle("PUT /api/wishlist/{id}", approved(s.wishlistH.Update))
	mux.Handle("DELETE /api/wishlist/{id}", approved(s.wishlistH.Delete))
	mux.Handle("POST /api/wishlist/{id}/image", approved(s.wishlistH.UploadImage))
	mux.Handle("POST /api/wishlist/{id}/claim", approved(s.wishlistH.Claim))
	mux.Handle("POST /api/wishlist/{id}/unclaim", approved(s.wishlistH.Unclaim))
	mux.Handle("POST /api/wishlist/{id}/purchase", approved(s.wishlistH.MarkPurchased))
	mux.Handle("POST /api/wishlist/{id}/unpurchase", approved(s.wishlistH.ClearPurchased))

	mux.Handle("POST /api/profiles/{id}/approve", middleware.RequireStaff(http.HandlerFunc(s.profileH.Approve)))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
