package utils

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"PathLab/cache"
)

const resetCodeExpiry = 15 * time.Minute

// GenerateResetCode generates a random 6-digit reset code.
func GenerateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// ResetCodes keeps password reset codes in Redis for 15 minutes.
type ResetCodes struct {
	cache *cache.Cache
}

func NewResetCodes(c *cache.Cache) *ResetCodes {
	return &ResetCodes{cache: c}
}

func resetKey(email string) string {
	return "reset_code:" + email
}

func (r *ResetCodes) Set(ctx context.Context, email, code string) error {
	return r.cache.Set(ctx, resetKey(email), code, resetCodeExpiry)
}

// Get returns nil when no code exists for email.
func (r *ResetCodes) Get(ctx context.Context, email string) (*string, error) {
	code, err := r.cache.Get(ctx, resetKey(email))
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, nil
	}
	return &code, nil
}

func (r *ResetCodes) Delete(ctx context.Context, email string) error {
	return r.cache.Delete(ctx, resetKey(email))
}
