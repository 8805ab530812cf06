package main

import (
	"context"
	"log"
	"net/http"

	"inkpad/config"
	"inkpad/handlers"
	"inkpad/models"
	"inkpad/services"

	"github.com/gorilla/mux"
)

func main() {
	cfg := config.New()

	// Initialize database service
	dbService, err := services.NewDatabaseService(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database service: %v", err)
	}
	defer dbService.Close()

	// Initialize token service
	tokenService, err := services.NewTokenService(cfg.PrivateKey, cfg.PublicKey)
	if err != nil {
		log.Fatalf("Failed to initialize token service: %v", err)
	}

	// Initialize the optional snapshot archive
	var archive *services.SnapshotArchive
	if cfg.Bucket != "" {
		archive, err = services.NewSnapshotArchive(context.Background(), cfg.Bucket, cfg.Region)
		if err != nil {
			log.Printf("WARNING: snapshot archive failed to initialize: %v", err)
			log.Printf("Continuing without snapshot archive")
			archive = nil
		}
	}

	// Initialize handlers and guards
	guard := handlers.NewGuard(tokenService, dbService, dbService)
	userHandler := handlers.NewUserHandler(dbService, tokenService)
	documentHandler := handlers.NewDocumentHandler(dbService, dbService, tokenService, archive)
	collaboratorHandler := handlers.NewCollaboratorHandler(dbService)

	// Create router
	r := mux.NewRouter()

	// Add request logging middleware
	r.Use(handlers.LoggingMiddleware)

	// Health check endpoint
	r.HandleFunc("/health", healthCheck).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(handlers.CORSMiddleware)

	// Session and user routes
	api.HandleFunc("/jwt", userHandler.Login).Methods("POST")
	api.HandleFunc("/users", userHandler.Register).Methods("POST")
	api.HandleFunc("/users", userHandler.ListUsers).Methods("GET")
	api.HandleFunc("/users/{username}", guard.Authenticated(userHandler.GetUser)).Methods("GET")
	api.HandleFunc("/users/{username}", guard.Authenticated(userHandler.UpdateUser)).Methods("PUT")
	api.HandleFunc("/users/{username}", guard.Authenticated(userHandler.DeleteUser)).Methods("DELETE")

	// Document routes
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

	// Hosted collaboration service integration
	api.HandleFunc("/documents/{documentId}/jwt",
		guard.Permission(models.PermissionRead, documentHandler.GetDocumentToken)).Methods("GET")
	api.HandleFunc("/documents/{documentId}/key",
		guard.Permission(models.PermissionRead, documentHandler.GetDocumentKey)).Methods("GET")

	// Collaborator routes
	api.HandleFunc("/documents/{documentId}/collaborators",
		guard.Permission(models.PermissionRead, collaboratorHandler.ListCollaborators)).Methods("GET")
	api.HandleFunc("/documents/{documentId}/collaborators/{username}",
		guard.Permission(models.PermissionManage, collaboratorHandler.SetCollaborator)).Methods("PUT")

	log.Printf("Starting inkpad API server on port %s", cfg.APIPort)

	if err := http.ListenAndServe(":"+cfg.APIPort, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// healthCheck provides a simple health check endpoint
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "healthy", "service": "inkpad-api"}`))
}
