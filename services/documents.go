package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"inkpad/db"
	"inkpad/models"

	"github.com/google/uuid"
)

// CreateDocument inserts the document and grants the owner the manage
// role in a single transaction. A document without collaborators can
// never be observed.
func (ds *DatabaseService) CreateDocument(ctx context.Context, owner, title string) (string, error) {
	id := uuid.NewString()

	tx, err := ds.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, db.CreateDocumentQuery, id, title); err != nil {
		return "", fmt.Errorf("failed to create document: %w", err)
	}
	ownerBits := models.PermissionManage | models.PermissionWrite | models.PermissionRead
	if _, err := tx.ExecContext(ctx, db.CreateOwnerCollaboratorQuery, id, owner, ownerBits); err != nil {
		return "", fmt.Errorf("failed to create owner collaborator: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}

// ListDocuments returns the uuids of every document the user can read.
func (ds *DatabaseService) ListDocuments(ctx context.Context, username string) ([]string, error) {
	rows, err := ds.db.QueryContext(ctx, db.GetUserDocumentsQuery, username)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	documents := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		documents = append(documents, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return documents, nil
}

// Title returns the document title.
func (ds *DatabaseService) Title(ctx context.Context, documentID string) (string, error) {
	var title string
	err := ds.db.QueryRowContext(ctx, db.GetDocumentTitleQuery, documentID).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get title: %w", err)
	}
	return title, nil
}

// SetTitle updates the document title.
func (ds *DatabaseService) SetTitle(ctx context.Context, documentID, title string) error {
	result, err := ds.db.ExecContext(ctx, db.UpdateDocumentTitleQuery, title, documentID)
	if err != nil {
		return fmt.Errorf("failed to update title: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Content returns the stored content and its version counter.
func (ds *DatabaseService) Content(ctx context.Context, documentID string) (string, int64, error) {
	var content string
	var version int64
	err := ds.db.QueryRowContext(ctx, db.GetDocumentContentQuery, documentID).Scan(&content, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, ErrNotFound
	}
	if err != nil {
		return "", 0, fmt.Errorf("failed to get content: %w", err)
	}
	return content, version, nil
}

// SaveContent stores content unconditionally (legacy lock-guarded
// path; the version counter is untouched).
func (ds *DatabaseService) SaveContent(ctx context.Context, documentID, content string) error {
	if _, err := ds.db.ExecContext(ctx, db.UpdateDocumentContentQuery, content, documentID); err != nil {
		return fmt.Errorf("failed to update content: %w", err)
	}
	return nil
}

// SaveContentVersion stores content through the monotonic version
// gate. Returns false when the write was dropped as stale, which is
// not an error.
func (ds *DatabaseService) SaveContentVersion(ctx context.Context, documentID, content string, version int64) (bool, error) {
	result, err := ds.db.ExecContext(ctx, db.UpdateDocumentContentVersionQuery, content, version, documentID)
	if err != nil {
		return false, fmt.Errorf("failed to update content: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeleteDocument removes the document. Collaborator and key rows go
// with it via the schema's cascade rules.
func (ds *DatabaseService) DeleteDocument(ctx context.Context, documentID string) error {
	result, err := ds.db.ExecContext(ctx, db.DeleteDocumentQuery, documentID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// AcquireLock attempts to take or renew the advisory write lock. The
// whole check is one conditional update so two racing acquirers can
// never both succeed. Failure to acquire is not an error; callers
// poll.
func (ds *DatabaseService) AcquireLock(ctx context.Context, documentID, username string) (bool, error) {
	staleBefore := time.Now().Add(-ds.lockStealTTL)
	result, err := ds.db.ExecContext(ctx, db.AcquireLockQuery, username, documentID, staleBefore)
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// ReleaseLock clears the lock if held by username. Releasing a lock
// someone else holds, or no lock at all, is a no-op.
func (ds *DatabaseService) ReleaseLock(ctx context.Context, documentID, username string) error {
	if _, err := ds.db.ExecContext(ctx, db.ReleaseLockQuery, documentID, username); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// HoldsLock reports whether username currently holds a write-valid
// lock on the document.
func (ds *DatabaseService) HoldsLock(ctx context.Context, documentID, username string) (bool, error) {
	var lockUser sql.NullString
	var lockTime sql.NullTime
	err := ds.db.QueryRowContext(ctx, db.GetLockQuery, documentID).Scan(&lockUser, &lockTime)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get lock: %w", err)
	}
	if !lockUser.Valid || lockUser.String != username || !lockTime.Valid {
		return false, nil
	}
	return models.LockValid(lockTime.Time, time.Now(), ds.lockWriteTTL), nil
}
