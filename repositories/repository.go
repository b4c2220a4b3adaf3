package repositories

import (
	"errors"
	"time"

	"PathLab/database"

	"gorm.io/gorm"
)

const (
	defaultCacheExpiry = 7 * 24 * time.Hour
	listCacheExpiry    = 10 * time.Minute
	queryTimeout       = 5 * time.Second
)

// ErrDuplicate is returned when an insert hits a unique index.
var ErrDuplicate = errors.New("record already exists")

// translate maps driver errors to repository errors. ok is false when the
// record was not found.
func translate(err error) (ok bool, out error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	case database.IsUniqueViolation(err):
		return false, ErrDuplicate
	}
	return false, err
}

func createErr(err error) error {
	if database.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}
