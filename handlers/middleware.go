package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"inkpad/models"

	"github.com/gorilla/mux"
)

// TokenVerifier resolves a bearer token to a username.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UserChecker confirms a token subject still refers to a registered
// account, so deleting a user revokes their outstanding tokens.
type UserChecker interface {
	UserExists(ctx context.Context, username string) (bool, error)
}

// PermissionStore is the live permission lookup backing the guards.
type PermissionStore interface {
	Permissions(ctx context.Context, documentID, username string) (int, error)
	SetCollaborator(ctx context.Context, documentID, username string, role models.Role) error
	ListCollaborators(ctx context.Context, documentID string) ([]models.Collaborator, error)
}

// AuthedHandler is a handler that has a verified caller. The username
// is passed explicitly rather than stashed on the request.
type AuthedHandler func(w http.ResponseWriter, r *http.Request, username string)

// Guard builds the per-route middleware chain: authentication first,
// then a permission check against live state.
type Guard struct {
	tokens TokenVerifier
	users  UserChecker
	perms  PermissionStore
}

func NewGuard(tokens TokenVerifier, users UserChecker, perms PermissionStore) *Guard {
	return &Guard{tokens: tokens, users: users, perms: perms}
}

// Authenticated rejects requests without a valid bearer token whose
// subject is a registered user, and hands the username to next.
func (g *Guard) Authenticated(next AuthedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			writeError(w, http.StatusUnauthorized, messageNotAuthorized)
			return
		}
		username, err := g.tokens.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, messageNotAuthorized)
			return
		}
		exists, err := g.users.UserExists(r.Context(), username)
		if err != nil {
			writeServerError(w, err)
			return
		}
		if !exists {
			writeError(w, http.StatusUnauthorized, messageNotAuthorized)
			return
		}
		next(w, r, username)
	}
}

// Permission wraps Authenticated with a minimum-permission check on
// the addressed document. A missing document and insufficient
// permission are indistinguishable to the caller.
func (g *Guard) Permission(bits int, next AuthedHandler) http.HandlerFunc {
	return g.Authenticated(func(w http.ResponseWriter, r *http.Request, username string) {
		documentID := mux.Vars(r)["documentId"]
		permissions, err := g.perms.Permissions(r.Context(), documentID, username)
		if err != nil {
			writeServerError(w, err)
			return
		}
		if permissions == 0 || permissions&bits != bits {
			writeError(w, http.StatusForbidden, messageForbidden)
			return
		}
		next(w, r, username)
	})
}

// LoggingMiddleware logs all incoming requests.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("Request: %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// CORSMiddleware handles CORS headers.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
