package services

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	sessionTokenLifetime  = 24 * time.Hour
	documentTokenLifetime = 10 * time.Minute
)

// Roles understood by the hosted collaboration service.
const (
	CollabRoleEditor = "editor"
	CollabRoleViewer = "viewer"
)

// DocumentClaims is the payload of a document-scoped token consumed
// by the hosted collaboration service. The role claim is derived from
// live permissions at issue time; server-side authorization never
// trusts it.
type DocumentClaims struct {
	jwt.RegisteredClaims
	Document string `json:"doc"`
	Role     string `json:"role"`
}

// TokenService signs and verifies bearer tokens with an RSA keypair.
type TokenService struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

// NewTokenService parses the PEM-encoded keypair.
func NewTokenService(privatePEM, publicPEM []byte) (*TokenService, error) {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return &TokenService{privateKey: privateKey, publicKey: publicKey}, nil
}

// IssueSessionToken signs a one-day token naming the user as subject.
// Authorization is re-checked per request against live state, so the
// token carries no other claims.
func (ts *TokenService) IssueSessionToken(username string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(sessionTokenLifetime)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(ts.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// IssueDocumentToken signs a short-lived token scoped to one document
// for the hosted collaboration service.
func (ts *TokenService) IssueDocumentToken(documentID, username string, canWrite bool) (string, error) {
	role := CollabRoleViewer
	if canWrite {
		role = CollabRoleEditor
	}
	now := time.Now()
	claims := DocumentClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(documentTokenLifetime)),
		},
		Document: documentID,
		Role:     role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(ts.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of a session token and
// returns its subject. The signing method is pinned to RSA: a token
// signed with any other algorithm is rejected regardless of whether
// its signature would check out.
func (ts *TokenService) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwt.RegisteredClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return ts.publicKey, nil
		},
	)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid token claims")
	}
	return claims.Subject, nil
}
