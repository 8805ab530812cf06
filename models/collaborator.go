package models

// Collaborator is one (document, user, permission) relationship row,
// presented with the role derived from the stored permission bits.
type Collaborator struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// CollaboratorInput for PUT collaborators/{username}.
type CollaboratorInput struct {
	Role Role `json:"role"`
}
