package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"inkpad/models"
	"inkpad/services"

	"github.com/gorilla/mux"
)

// fakeDB is an in-memory stand-in for the database service. Lock
// acquisition takes the mutex for the whole check-and-set, matching
// the single conditional UPDATE the real store issues.
type fakeDB struct {
	mu    sync.Mutex
	now   time.Time
	users map[string]*fakeUser
	docs  map[string]*fakeDoc
	perms map[string]map[string]int
	keys  map[string]string

	writeTTL time.Duration
	stealTTL time.Duration

	nextID int
}

type fakeUser struct {
	password string
	fullName string
}

type fakeDoc struct {
	title    string
	content  string
	version  int64
	lockUser string
	lockTime time.Time
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		now:      time.Date(2021, 9, 14, 12, 0, 0, 0, time.UTC),
		users:    map[string]*fakeUser{},
		docs:     map[string]*fakeDoc{},
		perms:    map[string]map[string]int{},
		keys:     map[string]string{},
		writeTTL: 60 * time.Second,
		stealTTL: 60 * time.Second,
	}
}

func (f *fakeDB) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// UserStore

func (f *fakeDB) CreateUser(_ context.Context, username, password, fullName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[username]; ok {
		return services.ErrDuplicateUser
	}
	f.users[username] = &fakeUser{password: password, fullName: fullName}
	return nil
}

func (f *fakeDB) VerifyPassword(_ context.Context, username, password string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[username]
	return ok && user.password == password, nil
}

func (f *fakeDB) GetUser(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[username]
	if !ok {
		return nil, services.ErrNotFound
	}
	return &models.User{Username: username, FullName: user.fullName}, nil
}

func (f *fakeDB) UserExists(_ context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.users[username]
	return ok, nil
}

func (f *fakeDB) ListUsernames(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := []string{}
	for name := range f.users {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeDB) UpdateFullName(_ context.Context, username, fullName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[username]
	if !ok {
		return services.ErrNotFound
	}
	user.fullName = fullName
	return nil
}

func (f *fakeDB) DeleteUser(_ context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[username]; !ok {
		return services.ErrNotFound
	}
	delete(f.users, username)
	for _, docPerms := range f.perms {
		delete(docPerms, username)
	}
	for _, doc := range f.docs {
		if doc.lockUser == username {
			doc.lockUser = ""
			doc.lockTime = time.Time{}
		}
	}
	return nil
}

// DocumentStore

func (f *fakeDB) CreateDocument(_ context.Context, owner, title string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("doc-%d", f.nextID)
	f.docs[id] = &fakeDoc{title: title}
	f.perms[id] = map[string]int{
		owner: models.PermissionManage | models.PermissionWrite | models.PermissionRead,
	}
	return id, nil
}

func (f *fakeDB) ListDocuments(_ context.Context, username string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	documents := []string{}
	for id, docPerms := range f.perms {
		if docPerms[username] >= models.PermissionRead {
			documents = append(documents, id)
		}
	}
	return documents, nil
}

func (f *fakeDB) Title(_ context.Context, documentID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[documentID]
	if !ok {
		return "", services.ErrNotFound
	}
	return doc.title, nil
}

func (f *fakeDB) SetTitle(_ context.Context, documentID, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[documentID]
	if !ok {
		return services.ErrNotFound
	}
	doc.title = title
	return nil
}

func (f *fakeDB) Content(_ context.Context, documentID string) (string, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[documentID]
	if !ok {
		return "", 0, services.ErrNotFound
	}
	return doc.content, doc.version, nil
}

func (f *fakeDB) SaveContent(_ context.Context, documentID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[documentID]
	if !ok {
		return services.ErrNotFound
	}
	doc.content = content
	return nil
}

func (f *fakeDB) SaveContentVersion(_ context.Context, documentID, content string, version int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[documentID]
	if !ok || doc.version >= version {
		return false, nil
	}
	doc.content = content
	doc.version = version
	return true, nil
}

func (f *fakeDB) DeleteDocument(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[documentID]; !ok {
		return services.ErrNotFound
	}
	delete(f.docs, documentID)
	delete(f.perms, documentID)
	return nil
}

func (f *fakeDB) AcquireLock(_ context.Context, documentID, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[documentID]
	if !ok {
		return false, nil
	}
	free := doc.lockUser == "" ||
		doc.lockUser == username ||
		f.now.Sub(doc.lockTime) > f.stealTTL
	if !free {
		return false, nil
	}
	doc.lockUser = username
	doc.lockTime = f.now
	return true, nil
}

func (f *fakeDB) ReleaseLock(_ context.Context, documentID, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[documentID]
	if ok && doc.lockUser == username {
		doc.lockUser = ""
		doc.lockTime = time.Time{}
	}
	return nil
}

func (f *fakeDB) HoldsLock(_ context.Context, documentID, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[documentID]
	if !ok || doc.lockUser != username {
		return false, nil
	}
	return models.LockValid(doc.lockTime, f.now, f.writeTTL), nil
}

func (f *fakeDB) DocumentKey(_ context.Context, documentID, hint string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if hint != "" {
		key, ok := f.keys[documentID+"/"+hint]
		if !ok {
			return "", "", services.ErrNotFound
		}
		return key, hint, nil
	}
	key := "key-" + documentID
	f.keys[documentID+"/current"] = key
	return key, "current", nil
}

// PermissionStore

func (f *fakeDB) Permissions(_ context.Context, documentID, username string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.perms[documentID][username], nil
}

func (f *fakeDB) SetCollaborator(_ context.Context, documentID, username string, role models.Role) error {
	bits, err := models.RoleBits(role)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[username]; !ok {
		return services.ErrUnknownUser
	}
	docPerms, ok := f.perms[documentID]
	if !ok {
		docPerms = map[string]int{}
		f.perms[documentID] = docPerms
	}
	if bits == 0 {
		delete(docPerms, username)
		return nil
	}
	docPerms[username] = bits
	return nil
}

func (f *fakeDB) ListCollaborators(_ context.Context, documentID string) ([]models.Collaborator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	type row struct {
		username string
		bits     int
	}
	rows := []row{}
	for username, bits := range f.perms[documentID] {
		rows = append(rows, row{username, bits})
	}
	// permissions descending, username ascending
	for i := 0; i < len(rows); i++ {
		for j := i + 1; j < len(rows); j++ {
			if rows[j].bits > rows[i].bits ||
				(rows[j].bits == rows[i].bits && rows[j].username < rows[i].username) {
				rows[i], rows[j] = rows[j], rows[i]
			}
		}
	}
	collaborators := []models.Collaborator{}
	for _, r := range rows {
		collaborators = append(collaborators, models.Collaborator{
			Username: r.username,
			Role:     models.RoleFromBits(r.bits),
		})
	}
	return collaborators, nil
}

// fakeTokens issues and verifies transparent tokens of the form
// "session:<username>".
type fakeTokens struct{}

func (fakeTokens) IssueSessionToken(username string) (string, error) {
	return "session:" + username, nil
}

func (fakeTokens) IssueDocumentToken(documentID, username string, canWrite bool) (string, error) {
	role := services.CollabRoleViewer
	if canWrite {
		role = services.CollabRoleEditor
	}
	return fmt.Sprintf("doc:%s:%s:%s", documentID, username, role), nil
}

func (fakeTokens) Verify(token string) (string, error) {
	username, found := strings.CutPrefix(token, "session:")
	if !found || username == "" {
		return "", fmt.Errorf("invalid token")
	}
	return username, nil
}

// newTestRouter wires the handlers exactly as main does.
func newTestRouter(f *fakeDB) *mux.Router {
	guard := NewGuard(fakeTokens{}, f, f)
	userHandler := NewUserHandler(f, fakeTokens{})
	documentHandler := NewDocumentHandler(f, f, fakeTokens{}, nil)
	collaboratorHandler := NewCollaboratorHandler(f)

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/jwt", userHandler.Login).Methods("POST")
	api.HandleFunc("/users", userHandler.Register).Methods("POST")
	api.HandleFunc("/users", userHandler.ListUsers).Methods("GET")
	api.HandleFunc("/users/{username}", guard.Authenticated(userHandler.GetUser)).Methods("GET")
	api.HandleFunc("/users/{username}", guard.Authenticated(userHandler.UpdateUser)).Methods("PUT")
	api.HandleFunc("/users/{username}", guard.Authenticated(userHandler.DeleteUser)).Methods("DELETE")
	api.HandleFunc("/documents", guard.Authenticated(documentHandler.ListDocuments)).Methods("GET")
	api.HandleFunc("/documents", guard.Authenticated(documentHandler.CreateDocument)).Methods("POST")
	api.HandleFunc("/documents/{documentId}/title",
		guard.Permission(models.PermissionRead, documentHandler.GetTitle)).Methods("GET")
	api.HandleFunc("/documents/{documentId}/title",
		guard.Permission(models.PermissionWrite, documentHandler.SetTitle)).Methods("PUT")
	api.HandleFunc("/documents/{documentId}/content",
		guard.Permission(models.PermissionRead, documentHandler.GetContent)).Methods("GET")
	api.HandleFunc("/documents/{documentId}/content",
		guard.Permission(models.PermissionWrite, documentHandler.SetContent)).Methods("PUT")
	api.HandleFunc("/documents/{documentId}/lock",
		guard.Permission(models.PermissionWrite, documentHandler.UpdateLock)).Methods("PUT")
	api.HandleFunc("/documents/{documentId}",
		guard.Permission(models.PermissionManage, documentHandler.DeleteDocument)).Methods("DELETE")
	api.HandleFunc("/documents/{documentId}/jwt",
		guard.Permission(models.PermissionRead, documentHandler.GetDocumentToken)).Methods("GET")
	api.HandleFunc("/documents/{documentId}/key",
		guard.Permission(models.PermissionRead, documentHandler.GetDocumentKey)).Methods("GET")
	api.HandleFunc("/documents/{documentId}/collaborators",
		guard.Permission(models.PermissionRead, collaboratorHandler.ListCollaborators)).Methods("GET")
	api.HandleFunc("/documents/{documentId}/collaborators/{username}",
		guard.Permission(models.PermissionManage, collaboratorHandler.SetCollaborator)).Methods("PUT")
	return r
}

// request performs one request against the router and decodes the
// JSON response body.
func request(t *testing.T, router *mux.Router, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	decoded := map[string]any{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code, decoded
}

// seedUsers registers users directly in the fake.
func seedUsers(t *testing.T, f *fakeDB, usernames ...string) {
	t.Helper()
	for _, username := range usernames {
		if err := f.CreateUser(context.Background(), username, "pw-"+username, "User "+username); err != nil {
			t.Fatalf("failed to seed user %s: %v", username, err)
		}
	}
}

func mustStatus(t *testing.T, got, want int, body map[string]any) {
	t.Helper()
	if got != want {
		t.Fatalf("status = %d, want %d (body %v)", got, want, body)
	}
}
