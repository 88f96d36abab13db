package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ClientAuthenticator exchanges API-client credentials for tokens. The daemon
// never stores the secret itself, only its bcrypt hash.
type ClientAuthenticator struct {
	clientID   string
	secretHash []byte
	jwt        *JWTManager
}

// NewClientAuthenticator creates an authenticator for one configured client.
// secretHash is the bcrypt hash of the client's secret.
func NewClientAuthenticator(clientID, secretHash string, jwt *JWTManager) *ClientAuthenticator {
	return &ClientAuthenticator{
		clientID:   clientID,
		secretHash: []byte(secretHash),
		jwt:        jwt,
	}
}

// Authenticate verifies the credentials and returns a signed token.
func (a *ClientAuthenticator) Authenticate(clientID, secret string) (string, error) {
	if clientID != a.clientID {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.secretHash, []byte(secret)); err != nil {
		return "", ErrInvalidCredentials
	}
	return a.jwt.Generate(clientID)
}

// HashSecret produces the bcrypt hash for a client secret; used by operators
// when provisioning configuration.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}
