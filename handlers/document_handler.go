package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"inkpad/models"
	"inkpad/services"

	"github.com/gorilla/mux"
)

// DocumentStore is the document storage the document handler works
// against.
type DocumentStore interface {
	CreateDocument(ctx context.Context, owner, title string) (string, error)
	ListDocuments(ctx context.Context, username string) ([]string, error)
	Title(ctx context.Context, documentID string) (string, error)
	SetTitle(ctx context.Context, documentID, title string) error
	Content(ctx context.Context, documentID string) (string, int64, error)
	SaveContent(ctx context.Context, documentID, content string) error
	SaveContentVersion(ctx context.Context, documentID, content string, version int64) (bool, error)
	DeleteDocument(ctx context.Context, documentID string) error
	AcquireLock(ctx context.Context, documentID, username string) (bool, error)
	ReleaseLock(ctx context.Context, documentID, username string) error
	HoldsLock(ctx context.Context, documentID, username string) (bool, error)
	DocumentKey(ctx context.Context, documentID, hint string) (string, string, error)
}

// DocumentIssuer signs document-scoped tokens for the hosted
// collaboration service.
type DocumentIssuer interface {
	IssueDocumentToken(documentID, username string, canWrite bool) (string, error)
}

type DocumentHandler struct {
	documents DocumentStore
	perms     PermissionStore
	tokens    DocumentIssuer
	archive   *services.SnapshotArchive
}

func NewDocumentHandler(documents DocumentStore, perms PermissionStore, tokens DocumentIssuer, archive *services.SnapshotArchive) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		perms:     perms,
		tokens:    tokens,
		archive:   archive,
	}
}

// CreateDocument handles POST /api/documents.
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request, username string) {
	var input models.DocumentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}
	if input.Title == "" {
		writeError(w, http.StatusBadRequest, "The title is required.")
		return
	}

	id, err := h.documents.CreateDocument(r.Context(), username, input.Title)
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{"success": true, "uuid": id})
}

// ListDocuments handles GET /api/documents.
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request, username string) {
	documents, err := h.documents.ListDocuments(r.Context(), username)
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{"success": true, "documents": documents})
}

// GetTitle handles GET /api/documents/{documentId}/title.
func (h *DocumentHandler) GetTitle(w http.ResponseWriter, r *http.Request, _ string) {
	title, err := h.documents.Title(r.Context(), mux.Vars(r)["documentId"])
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{"success": true, "title": title})
}

// SetTitle handles PUT /api/documents/{documentId}/title.
func (h *DocumentHandler) SetTitle(w http.ResponseWriter, r *http.Request, _ string) {
	var input models.DocumentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}
	if input.Title == "" {
		writeError(w, http.StatusBadRequest, "The title is required.")
		return
	}

	if err := h.documents.SetTitle(r.Context(), mux.Vars(r)["documentId"], input.Title); err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{"success": true})
}

// GetContent handles GET /api/documents/{documentId}/content.
func (h *DocumentHandler) GetContent(w http.ResponseWriter, r *http.Request, _ string) {
	content, version, err := h.documents.Content(r.Context(), mux.Vars(r)["documentId"])
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{"success": true, "content": content, "version": version})
}

// SetContent handles PUT /api/documents/{documentId}/content. A body
// carrying a version goes through the monotonic version gate and a
// stale write is silently dropped. A body without a version is the
// legacy single-writer path and requires a currently-valid lock.
func (h *DocumentHandler) SetContent(w http.ResponseWriter, r *http.Request, username string) {
	documentID := mux.Vars(r)["documentId"]

	var input models.ContentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}
	if input.Content == nil {
		writeError(w, http.StatusBadRequest, "The content is required.")
		return
	}

	if input.Version != nil {
		applied, err := h.documents.SaveContentVersion(r.Context(), documentID, *input.Content, *input.Version)
		if err != nil {
			writeServerError(w, err)
			return
		}
		if applied {
			h.archiveSnapshot(r.Context(), documentID, *input.Version, *input.Content)
		}
		writeJSON(w, http.StatusOK, response{"success": true})
		return
	}

	held, err := h.documents.HoldsLock(r.Context(), documentID, username)
	if err != nil {
		writeServerError(w, err)
		return
	}
	if !held {
		writeError(w, http.StatusLocked, messageLockRequired)
		return
	}
	if err := h.documents.SaveContent(r.Context(), documentID, *input.Content); err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{"success": true})
}

// UpdateLock handles PUT /api/documents/{documentId}/lock. Failing to
// acquire a held lock is a normal outcome, reported with success=false
// and status 200; callers poll.
func (h *DocumentHandler) UpdateLock(w http.ResponseWriter, r *http.Request, username string) {
	documentID := mux.Vars(r)["documentId"]

	var input models.LockInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "The release option must be true or false if provided.")
		return
	}
	release := input.Release != nil && *input.Release

	if release {
		if err := h.documents.ReleaseLock(r.Context(), documentID, username); err != nil {
			writeServerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, response{"success": true, "release": true})
		return
	}

	acquired, err := h.documents.AcquireLock(r.Context(), documentID, username)
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{"success": acquired, "release": false})
}

// DeleteDocument handles DELETE /api/documents/{documentId}.
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request, _ string) {
	documentID := mux.Vars(r)["documentId"]
	if err := h.documents.DeleteDocument(r.Context(), documentID); err != nil {
		writeServerError(w, err)
		return
	}
	if h.archive != nil {
		if err := h.archive.Remove(r.Context(), documentID); err != nil {
			log.Printf("Failed to remove archived snapshots for %s: %v", documentID, err)
		}
	}
	writeJSON(w, http.StatusOK, response{"success": true})
}

// GetDocumentToken handles GET /api/documents/{documentId}/jwt. The
// role claim reflects live permissions at issue time.
func (h *DocumentHandler) GetDocumentToken(w http.ResponseWriter, r *http.Request, username string) {
	documentID := mux.Vars(r)["documentId"]
	permissions, err := h.perms.Permissions(r.Context(), documentID, username)
	if err != nil {
		writeServerError(w, err)
		return
	}
	canWrite := permissions&models.PermissionWrite == models.PermissionWrite

	token, err := h.tokens.IssueDocumentToken(documentID, username, canWrite)
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{"success": true, "token": token})
}

// GetDocumentKey handles GET /api/documents/{documentId}/key. Without
// a keyHint the newest key is returned, rotating at most hourly; a
// keyHint pins the exact historical key.
func (h *DocumentHandler) GetDocumentKey(w http.ResponseWriter, r *http.Request, _ string) {
	documentID := mux.Vars(r)["documentId"]
	hint := r.URL.Query().Get("keyHint")

	key, keyHint, err := h.documents.DocumentKey(r.Context(), documentID, hint)
	if errors.Is(err, services.ErrNotFound) {
		writeError(w, http.StatusNotFound, "No key exists with that hint.")
		return
	}
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{"success": true, "key": key, "keyHint": keyHint})
}

// archiveSnapshot uploads an accepted snapshot when the archive is
// configured. Best effort only.
func (h *DocumentHandler) archiveSnapshot(ctx context.Context, documentID string, version int64, content string) {
	if h.archive == nil {
		return
	}
	if err := h.archive.Store(ctx, documentID, version, []byte(content)); err != nil {
		log.Printf("Failed to archive snapshot of %s: %v", documentID, err)
	}
}
