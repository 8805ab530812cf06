package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"inkpad/db"
	"inkpad/models"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost makes reverse engineering stored hashes computationally
// expensive.
const bcryptCost = 12

// CreateUser registers a new account. The password is stored only as
// a bcrypt salt+hash combination. Returns ErrDuplicateUser when the
// username is taken.
func (ds *DatabaseService) CreateUser(ctx context.Context, username, password, fullName string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if _, err := ds.db.ExecContext(ctx, db.CreateUserQuery, username, string(hash), fullName); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// VerifyPassword checks a login attempt. A missing user and a wrong
// password are indistinguishable to the caller.
func (ds *DatabaseService) VerifyPassword(ctx context.Context, username, password string) (bool, error) {
	var hash string
	err := ds.db.QueryRowContext(ctx, db.GetUserHashQuery, username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up user: %w", err)
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, nil
}

// GetUser returns a user's details, or ErrNotFound.
func (ds *DatabaseService) GetUser(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := ds.db.QueryRowContext(ctx, db.GetUserQuery, username).
		Scan(&user.Username, &user.Hash, &user.FullName, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return &user, nil
}

// UserExists reports whether the username refers to a registered
// account.
func (ds *DatabaseService) UserExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	if err := ds.db.QueryRowContext(ctx, db.UserExistsQuery, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// ListUsernames returns every registered username.
func (ds *DatabaseService) ListUsernames(ctx context.Context) ([]string, error) {
	rows, err := ds.db.QueryContext(ctx, db.GetAllUsernamesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	usernames := []string{}
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		usernames = append(usernames, username)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return usernames, nil
}

// UpdateFullName changes the one mutable user field.
func (ds *DatabaseService) UpdateFullName(ctx context.Context, username, fullName string) error {
	result, err := ds.db.ExecContext(ctx, db.UpdateUserFullNameQuery, fullName, username)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
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

// DeleteUser removes the account. Collaborator rows and held locks go
// with it via the schema's cascade rules, which also invalidates any
// outstanding tokens naming the user.
func (ds *DatabaseService) DeleteUser(ctx context.Context, username string) error {
	result, err := ds.db.ExecContext(ctx, db.DeleteUserQuery, username)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
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
