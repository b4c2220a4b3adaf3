package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"PathLab/apperrors"
	"PathLab/models"
	"PathLab/repositories"

	"github.com/pkg/errors"
)

// Locker serialises work on one key across server instances.
// *database.Locker satisfies it.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func() error) error
}

// Actor is the authenticated caller performing an operation.
type Actor struct {
	UserID   string
	Username string
	Role     string
	LabID    string
}

// HasSystemRole reports whether the actor holds one of roles.
func (a Actor) HasSystemRole(roles ...models.SystemRole) bool {
	for _, r := range roles {
		if strings.EqualFold(a.Role, string(r)) {
			return true
		}
	}
	return false
}

// Name is what goes into audit entries.
func (a Actor) Name() string {
	if a.Username != "" {
		return a.Username
	}
	return a.UserID
}

type clock func() time.Time

func lockKey(kind string, parts ...interface{}) string {
	key := kind + "_lock"
	for _, p := range parts {
		key += fmt.Sprintf(":%v", p)
	}
	return key
}

// storeErr classifies a repository error.
func storeErr(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repositories.ErrDuplicate) {
		return apperrors.Conflict(format+": already exists", args...)
	}
	return apperrors.Infrastructure(err, format, args...)
}

func requireLab(labID string) error {
	if strings.TrimSpace(labID) == "" {
		return apperrors.Validation("lab is required")
	}
	return nil
}
