// Password hashing.
//
// Passwords are hashed with bcrypt. The output embeds its own random salt
// and cost, so the full string returned by Hash is all that is stored:
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (12 rounds → 2^12 iterations)
//	 version

package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/jenilmangukiya/blog-backend/internal/apperror"
)

// DefaultBcryptCost is the work factor used when the configuration does not
// set one. Roughly 250ms per hash on current server hardware.
const DefaultBcryptCost = 12

// MaxPasswordBytes is bcrypt's input limit. Longer input would be silently
// truncated by the algorithm, so Hash rejects it instead.
const MaxPasswordBytes = 72

// PasswordService provides bcrypt hashing and verification at a fixed cost.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the given bcrypt cost.
// Zero selects DefaultBcryptCost. Tests pass bcrypt.MinCost (4).
func NewPasswordService(cost int) (*PasswordService, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("auth: bcrypt cost must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, cost)
	}
	return &PasswordService{cost: cost}, nil
}

// Hash hashes the given plaintext password with bcrypt.
//
// Returns a validation error if the plaintext is longer than 72 bytes.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", MaxPasswordBytes))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored bcrypt digest.
//
// bcrypt.CompareHashAndPassword compares in constant time. Any failure,
// including a digest that is not valid bcrypt output, is a plain false:
// callers only ever need a yes/no answer here.
func (p *PasswordService) Verify(digest, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
