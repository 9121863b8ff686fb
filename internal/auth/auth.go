// Package auth verifies bearer tokens for admin-protected endpoints.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned for absent, malformed or invalid tokens.
var ErrUnauthorized = errors.New("unauthorized")

// Verifier validates a bearer token and returns the authenticated subject.
type Verifier interface {
	Verify(ctx context.Context, token string) (subject string, err error)
}

// FirebaseVerifier validates Firebase ID tokens.
type FirebaseVerifier struct {
	client *fbauth.Client
}

var _ Verifier = (*FirebaseVerifier)(nil)

// NewFirebaseVerifier wraps a Firebase Auth client.
func NewFirebaseVerifier(client *fbauth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (string, error) {
	decoded, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", ErrUnauthorized
	}
	return decoded.UID, nil
}

// HMACVerifier validates a single static admin key by comparing its
// HMAC-SHA256 against a stored hash in constant time. Used in local mode
// and tooling where Firebase is not configured.
type HMACVerifier struct {
	pepper  []byte
	keyHash []byte
}

var _ Verifier = (*HMACVerifier)(nil)

// NewHMACVerifier creates a verifier for the key whose HMAC-SHA256(pepper)
// equals hexKeyHash.
func NewHMACVerifier(pepper []byte, hexKeyHash string) (*HMACVerifier, error) {
	keyHash, err := hex.DecodeString(hexKeyHash)
	if err != nil {
		return nil, errors.Wrap(err, "decode admin key hash")
	}
	return &HMACVerifier{pepper: pepper, keyHash: keyHash}, nil
}

func (v *HMACVerifier) Verify(_ context.Context, token string) (string, error) {
	mac := hmac.New(sha256.New, v.pepper)
	mac.Write([]byte(token))
	if subtle.ConstantTimeCompare(mac.Sum(nil), v.keyHash) != 1 {
		return "", ErrUnauthorized
	}
	return "admin", nil
}

// HashKey computes the hex HMAC-SHA256 of a key, for provisioning the
// static admin credential.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}
