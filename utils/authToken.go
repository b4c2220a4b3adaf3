package utils

import (
	"fmt"
	"strconv"
	"time"

	"PathLab/apperrors"

	"github.com/o1egl/paseto"
)

const (
	// Set expiration times for access and refresh tokens.
	AccessTokenExpiry  = 24 * time.Hour
	RefreshTokenExpiry = 7 * 24 * time.Hour
)

// TokenClaims is the data carried in a token.
type TokenClaims struct {
	UserID string    `json:"userId"`
	Role   string    `json:"role"`
	LabID  string    `json:"labId,omitempty"`
	Expiry time.Time `json:"expiry"`
}

// UserIDInt parses the numeric user ID.
func (c *TokenClaims) UserIDInt() (int64, error) {
	return strconv.ParseInt(c.UserID, 10, 64)
}

// TokenMaker issues and validates PASETO v2 local tokens.
type TokenMaker struct {
	key []byte
	now func() time.Time
}

// NewTokenMaker checks the symmetric key is 32 bytes long.
func NewTokenMaker(symmetricKey string) (*TokenMaker, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("SYMMETRIC_KEY must be 32 bytes long, got %d", len(symmetricKey))
	}
	return &TokenMaker{key: []byte(symmetricKey), now: time.Now}, nil
}

// GenerateTokens generates both the access token and refresh token.
func (m *TokenMaker) GenerateTokens(userID, role, labID string) (accessToken, refreshToken string, err error) {
	accessToken, err = m.generate(userID, role, labID, AccessTokenExpiry)
	if err != nil {
		return "", "", err
	}
	refreshToken, err = m.generate(userID, role, labID, RefreshTokenExpiry)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

// GenerateAccessToken generates only the access token for a user.
func (m *TokenMaker) GenerateAccessToken(userID, role, labID string) (string, error) {
	return m.generate(userID, role, labID, AccessTokenExpiry)
}

func (m *TokenMaker) generate(userID, role, labID string, expiry time.Duration) (string, error) {
	claims := TokenClaims{
		UserID: userID,
		Role:   role,
		LabID:  labID,
		Expiry: m.now().Add(expiry),
	}
	token, err := paseto.NewV2().Encrypt(m.key, claims, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

// ValidateToken decrypts the token, checks expiry and, when roles are
// given, that the token carries one of them.
func (m *TokenMaker) ValidateToken(tokenString string, requiredRoles ...string) (*TokenClaims, error) {
	var claims TokenClaims
	if err := paseto.NewV2().Decrypt(tokenString, m.key, &claims, nil); err != nil {
		return nil, apperrors.Unauthorized("invalid token")
	}

	if m.now().After(claims.Expiry) {
		return nil, apperrors.Unauthorized("token expired")
	}

	if len(requiredRoles) == 0 {
		return &claims, nil
	}
	for _, role := range requiredRoles {
		if claims.Role == role {
			return &claims, nil
		}
	}
	return nil, apperrors.Forbidden("insufficient permissions")
}
