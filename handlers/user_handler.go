package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"inkpad/models"
	"inkpad/services"

	"github.com/gorilla/mux"
)

// UserStore is the account storage the user handler works against.
type UserStore interface {
	CreateUser(ctx context.Context, username, password, fullName string) error
	VerifyPassword(ctx context.Context, username, password string) (bool, error)
	GetUser(ctx context.Context, username string) (*models.User, error)
	ListUsernames(ctx context.Context) ([]string, error)
	UpdateFullName(ctx context.Context, username, fullName string) error
	DeleteUser(ctx context.Context, username string) error
}

// SessionIssuer signs session tokens for logins.
type SessionIssuer interface {
	IssueSessionToken(username string) (string, error)
}

type UserHandler struct {
	users  UserStore
	tokens SessionIssuer
}

func NewUserHandler(users UserStore, tokens SessionIssuer) *UserHandler {
	return &UserHandler{users: users, tokens: tokens}
}

// Login handles POST /api/jwt.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input models.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}
	if input.Username == "" || input.Password == "" {
		writeError(w, http.StatusBadRequest, "Both username and password are required.")
		return
	}

	valid, err := h.users.VerifyPassword(r.Context(), input.Username, input.Password)
	if err != nil {
		writeServerError(w, err)
		return
	}
	if !valid {
		writeError(w, http.StatusUnauthorized, "Incorrect username or password.")
		return
	}

	token, err := h.tokens.IssueSessionToken(input.Username)
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{"success": true, "token": token})
}

// Register handles POST /api/users.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input models.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}
	if input.Username == "" || input.Password == "" || input.FullName == "" {
		writeError(w, http.StatusBadRequest, "The username, password and fullName are required.")
		return
	}
	if !models.ValidUsername(input.Username) {
		writeError(w, http.StatusBadRequest, "The username may only contain letters, numbers and the characters ~_.-")
		return
	}

	err := h.users.CreateUser(r.Context(), input.Username, input.Password, input.FullName)
	if errors.Is(err, services.ErrDuplicateUser) {
		writeError(w, http.StatusConflict, "A user already exists with that username.")
		return
	}
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, response{"success": true})
}

// ListUsers handles GET /api/users.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsernames(r.Context())
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{"success": true, "users": users})
}

// GetUser handles GET /api/users/{username}.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request, _ string) {
	username := mux.Vars(r)["username"]
	user, err := h.users.GetUser(r.Context(), username)
	if errors.Is(err, services.ErrNotFound) {
		writeError(w, http.StatusNotFound, "No user exists with that username.")
		return
	}
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{"success": true, "fullName": user.FullName})
}

// UpdateUser handles PUT /api/users/{username}. Only the display name
// is mutable, and only by the account owner.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request, requester string) {
	username := mux.Vars(r)["username"]
	if username != requester {
		writeError(w, http.StatusForbidden, "Users may only modify their own details.")
		return
	}
	var input models.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}
	if input.FullName == "" {
		writeError(w, http.StatusBadRequest, "The fullName is required.")
		return
	}

	if err := h.users.UpdateFullName(r.Context(), username, input.FullName); err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{"success": true})
}

// DeleteUser handles DELETE /api/users/{username}. Deletion cascades
// to collaborator rows and held locks, and revokes outstanding tokens
// by way of the authentication gate's existence check.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request, requester string) {
	username := mux.Vars(r)["username"]
	if username != requester {
		writeError(w, http.StatusForbidden, "Users may only modify their own details.")
		return
	}

	if err := h.users.DeleteUser(r.Context(), username); err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{"success": true})
}
