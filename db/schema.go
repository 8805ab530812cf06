package db

// User table queries
const (
	CreateUserQuery = `
		INSERT INTO users (username, hash, full_name, created_at)
		VALUES ($1, $2, $3, NOW())`

	GetUserQuery = `
		SELECT username, hash, full_name, created_at
		FROM users
		WHERE username = $1`

	GetUserHashQuery = `
		SELECT hash
		FROM users
		WHERE username = $1`

	UserExistsQuery = `
		SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`

	GetAllUsernamesQuery = `
		SELECT username
		FROM users
		ORDER BY username ASC`

	UpdateUserFullNameQuery = `
		UPDATE users
		SET full_name = $1
		WHERE username = $2`

	DeleteUserQuery = `
		DELETE FROM users
		WHERE username = $1`
)

// Document table queries
const (
	CreateDocumentQuery = `
		INSERT INTO documents (uuid, title, content, version, created_at, updated_at)
		VALUES ($1, $2, '', 0, NOW(), NOW())`

	GetUserDocumentsQuery = `
		SELECT documents.uuid
		FROM documents
		INNER JOIN collaborators ON documents.uuid = collaborators.document
		WHERE collaborators.username = $1 AND collaborators.permissions >= 1
		ORDER BY documents.updated_at DESC`

	GetDocumentTitleQuery = `
		SELECT title
		FROM documents
		WHERE uuid = $1`

	UpdateDocumentTitleQuery = `
		UPDATE documents
		SET title = $1, updated_at = NOW()
		WHERE uuid = $2`

	GetDocumentContentQuery = `
		SELECT content, version
		FROM documents
		WHERE uuid = $1`

	UpdateDocumentContentQuery = `
		UPDATE documents
		SET content = $1, updated_at = NOW()
		WHERE uuid = $2`

	// Monotonic version gate: the row only changes when the incoming
	// version is strictly greater than the stored one.
	UpdateDocumentContentVersionQuery = `
		UPDATE documents
		SET content = $1, version = $2, updated_at = NOW()
		WHERE uuid = $3 AND version < $2`

	DeleteDocumentQuery = `
		DELETE FROM documents
		WHERE uuid = $1`
)

// Document lock queries. Acquisition is a single conditional update:
// the predicate admits an unlocked row, a renewal by the current
// holder, or a steal from an expired holder. Rows affected decides
// success, so two racing acquirers can never both win.
const (
	AcquireLockQuery = `
		UPDATE documents
		SET lock_user = $1, lock_time = NOW()
		WHERE uuid = $2
		  AND (lock_user IS NULL OR lock_user = $1 OR lock_time < $3)`

	ReleaseLockQuery = `
		UPDATE documents
		SET lock_user = NULL, lock_time = NULL
		WHERE uuid = $1 AND lock_user = $2`

	GetLockQuery = `
		SELECT lock_user, lock_time
		FROM documents
		WHERE uuid = $1`
)

// Collaborator table queries
const (
	GetPermissionsQuery = `
		SELECT permissions
		FROM collaborators
		WHERE document = $1 AND username = $2`

	// Atomic per (document, user) pair.
	UpsertCollaboratorQuery = `
		INSERT INTO collaborators (document, username, permissions)
		VALUES ($1, $2, $3)
		ON CONFLICT (document, username) DO UPDATE SET permissions = EXCLUDED.permissions`

	DeleteCollaboratorQuery = `
		DELETE FROM collaborators
		WHERE document = $1 AND username = $2`

	GetCollaboratorsQuery = `
		SELECT username, permissions
		FROM collaborators
		WHERE document = $1
		ORDER BY permissions DESC, username ASC`

	CreateOwnerCollaboratorQuery = `
		INSERT INTO collaborators (document, username, permissions)
		VALUES ($1, $2, $3)`
)

// Document key queries
const (
	GetNewestKeyQuery = `
		SELECT key, created
		FROM document_keys
		WHERE document = $1
		ORDER BY created DESC
		LIMIT 1`

	GetKeyByCreatedQuery = `
		SELECT key
		FROM document_keys
		WHERE document = $1 AND created = $2`

	InsertKeyQuery = `
		INSERT INTO document_keys (document, created, key)
		VALUES ($1, $2, $3)`
)
