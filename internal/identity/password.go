// Package identity holds the credential primitives: password hashing and
// bearer tokens. Every function takes its inputs explicitly and keeps no state.
package identity

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned when a password does not match its hash.
var ErrPasswordMismatch = errors.New("identity: password mismatch")

// HashPassword hashes password with bcrypt at the given cost. A cost of zero
// uses bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("identity: hash password: %w", err)
	}
	return string(b), nil
}

// VerifyPassword checks password against hash. Hashes written before bcrypt was
// introduced are lowercase hex MD5 digests; for those needsRehash is true when
// the password matches, so the caller can store a bcrypt hash instead.
func VerifyPassword(hash, password string) (needsRehash bool, err error) {
	if isLegacyHash(hash) {
		sum := md5.Sum([]byte(password))
		if subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(hash)) != 1 {
			return false, ErrPasswordMismatch
		}
		return true, nil
	}

	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, ErrPasswordMismatch
	}
	if err != nil {
		return false, fmt.Errorf("identity: verify password: %w", err)
	}
	return false, nil
}

func isLegacyHash(hash string) bool {
	if len(hash) != md5.Size*2 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}
