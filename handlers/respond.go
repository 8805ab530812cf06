package handlers

import (
	"encoding/json"
	"log"
	"net/http"
)

// Messages reused across handlers. The forbidden message must not
// reveal whether the document exists.
const (
	messageNotAuthorized = "Not authorized"
	messageForbidden     = "Document either does not exist or the user does not have the permission required."
	messageLockRequired  = "User must acquire a lock on the document."
	messageServerError   = "An unexpected error occurred."
)

type response map[string]any

// writeJSON writes a JSON body with the given status.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeError writes the {success:false, message} failure envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, response{"success": false, "message": message})
}

// writeServerError logs the underlying fault and returns a generic
// 500. Storage failures are infrastructure problems, not client
// mistakes, so no detail leaks out.
func writeServerError(w http.ResponseWriter, err error) {
	log.Printf("Internal error: %v", err)
	writeError(w, http.StatusInternalServerError, messageServerError)
}
