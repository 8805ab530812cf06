package models

import "time"

// Document represents a document row. Content is the serialized
// rich-text payload supplied by the editor; Version is the monotonic
// counter used to gate stale snapshot writes. The lock columns hold
// the advisory single-writer lock, nil when unlocked.
type Document struct {
	UUID      string     `json:"uuid" db:"uuid"`
	Title     string     `json:"title" db:"title"`
	Content   string     `json:"content,omitempty" db:"content"`
	Version   int64      `json:"version" db:"version"`
	LockUser  *string    `json:"-" db:"lock_user"`
	LockTime  *time.Time `json:"-" db:"lock_time"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// DocumentInput for creating documents and updating titles.
type DocumentInput struct {
	Title string `json:"title"`
}

// ContentInput for PUT content. Version is optional: when present the
// write goes through the monotonic version gate, when absent it goes
// through the legacy lock-held path.
type ContentInput struct {
	Content *string `json:"content"`
	Version *int64  `json:"version"`
}

// LockInput for PUT lock.
type LockInput struct {
	Release *bool `json:"release"`
}

// LockValid reports whether a lock acquired at acquiredAt still
// authorizes writes at now, given the write TTL.
func LockValid(acquiredAt, now time.Time, writeTTL time.Duration) bool {
	return now.Sub(acquiredAt) <= writeTTL
}
