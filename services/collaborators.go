package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"inkpad/db"
	"inkpad/models"
)

// Permissions returns the stored permission bits for the pair, or 0
// when no row exists.
func (ds *DatabaseService) Permissions(ctx context.Context, documentID, username string) (int, error) {
	var permissions int
	err := ds.db.QueryRowContext(ctx, db.GetPermissionsQuery, documentID, username).Scan(&permissions)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get permissions: %w", err)
	}
	return permissions, nil
}

// SetCollaborator sets a user's role on a document. A zero-permission
// row is never persisted: the none role deletes instead. Returns
// ErrUnknownUser when the target is not a registered account.
func (ds *DatabaseService) SetCollaborator(ctx context.Context, documentID, username string, role models.Role) error {
	permissions, err := models.RoleBits(role)
	if err != nil {
		return err
	}

	exists, err := ds.UserExists(ctx, username)
	if err != nil {
		return err
	}
	if !exists {
		return ErrUnknownUser
	}

	if permissions == 0 {
		if _, err := ds.db.ExecContext(ctx, db.DeleteCollaboratorQuery, documentID, username); err != nil {
			return fmt.Errorf("failed to delete collaborator: %w", err)
		}
		return nil
	}
	if _, err := ds.db.ExecContext(ctx, db.UpsertCollaboratorQuery, documentID, username, permissions); err != nil {
		return fmt.Errorf("failed to upsert collaborator: %w", err)
	}
	return nil
}

// ListCollaborators returns the document's collaborators ordered by
// descending permissions, then ascending username.
func (ds *DatabaseService) ListCollaborators(ctx context.Context, documentID string) ([]models.Collaborator, error) {
	rows, err := ds.db.QueryContext(ctx, db.GetCollaboratorsQuery, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collaborators: %w", err)
	}
	defer rows.Close()

	collaborators := []models.Collaborator{}
	for rows.Next() {
		var username string
		var permissions int
		if err := rows.Scan(&username, &permissions); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		collaborators = append(collaborators, models.Collaborator{
			Username: username,
			Role:     models.RoleFromBits(permissions),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return collaborators, nil
}
