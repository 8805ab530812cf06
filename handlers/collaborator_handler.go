package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"inkpad/models"
	"inkpad/services"

	"github.com/gorilla/mux"
)

type CollaboratorHandler struct {
	perms PermissionStore
}

func NewCollaboratorHandler(perms PermissionStore) *CollaboratorHandler {
	return &CollaboratorHandler{perms: perms}
}

// ListCollaborators handles GET /api/documents/{documentId}/collaborators.
// Ordering (permissions descending, username ascending) comes from the
// store so presentation is deterministic.
func (h *CollaboratorHandler) ListCollaborators(w http.ResponseWriter, r *http.Request, _ string) {
	collaborators, err := h.perms.ListCollaborators(r.Context(), mux.Vars(r)["documentId"])
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{"success": true, "collaborators": collaborators})
}

// SetCollaborator handles PUT /api/documents/{documentId}/collaborators/{username}.
// Granting the none role removes the row rather than storing zero
// permissions.
func (h *CollaboratorHandler) SetCollaborator(w http.ResponseWriter, r *http.Request, _ string) {
	vars := mux.Vars(r)
	documentID := vars["documentId"]
	username := vars["username"]
	if username == "" {
		writeError(w, http.StatusBadRequest, "The username path parameter is required.")
		return
	}

	var input models.CollaboratorInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}
	if !models.ValidRole(input.Role) {
		message := `The role must be one of: "` + strings.Join(models.RoleNames(), `", "`) + `".`
		writeError(w, http.StatusBadRequest, message)
		return
	}

	err := h.perms.SetCollaborator(r.Context(), documentID, username, input.Role)
	if errors.Is(err, services.ErrUnknownUser) {
		writeError(w, http.StatusBadRequest, "The username does not refer to a user that exists.")
		return
	}
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{"success": true})
}
