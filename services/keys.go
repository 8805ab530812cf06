package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"inkpad/db"
)

// keyRotateAfter is how long a document key stays current before a
// fresh one is generated on demand.
const keyRotateAfter = time.Hour

// hintFormat serializes a key's creation time as its hint so clients
// can pin the exact key an old snapshot was encrypted with.
const hintFormat = time.RFC3339Nano

// DocumentKey returns the symmetric key for a document along with its
// hint. With an empty hint the newest key is returned, rotating when
// it is over an hour old or absent. With an explicit hint the exact
// historical key is returned, or ErrNotFound.
func (ds *DatabaseService) DocumentKey(ctx context.Context, documentID, hint string) (string, string, error) {
	if hint != "" {
		created, err := time.Parse(hintFormat, hint)
		if err != nil {
			return "", "", fmt.Errorf("%w: bad key hint", ErrNotFound)
		}
		var key string
		err = ds.db.QueryRowContext(ctx, db.GetKeyByCreatedQuery, documentID, created).Scan(&key)
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", ErrNotFound
		}
		if err != nil {
			return "", "", fmt.Errorf("failed to get key: %w", err)
		}
		return key, hint, nil
	}

	var key string
	var created time.Time
	err := ds.db.QueryRowContext(ctx, db.GetNewestKeyQuery, documentID).Scan(&key, &created)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", "", fmt.Errorf("failed to get key: %w", err)
	}
	if err == nil && time.Since(created) <= keyRotateAfter {
		return key, created.Format(hintFormat), nil
	}

	key, err = generateKey()
	if err != nil {
		return "", "", err
	}
	created = time.Now().UTC()
	if _, err := ds.db.ExecContext(ctx, db.InsertKeyQuery, documentID, created, key); err != nil {
		return "", "", fmt.Errorf("failed to store key: %w", err)
	}
	return key, created.Format(hintFormat), nil
}

// generateKey produces a fresh 256-bit symmetric key, base64 encoded
// for transport to the collaboration service.
func generateKey() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
