package counter

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const (
	incrementSQL = `INSERT INTO counters (name, value, updated_at) VALUES (?, 1, now()) ` +
		`ON CONFLICT (name) DO UPDATE SET value = counters.value + 1, updated_at = now() RETURNING value`
	raiseSQL = `INSERT INTO counters (name, value, updated_at) VALUES (?, ?, now()) ` +
		`ON CONFLICT (name) DO UPDATE SET value = GREATEST(counters.value, EXCLUDED.value), updated_at = now() RETURNING value`
	currentSQL = `SELECT value FROM counters WHERE name = ?`
)

// PostgresStore keeps counters in the counters table. The upsert is one
// statement, so concurrent callers serialise on the row lock.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Increment(ctx context.Context, name string) (int64, error) {
	var value int64
	if err := s.db.WithContext(ctx).Raw(incrementSQL, name).Scan(&value).Error; err != nil {
		return 0, errors.Wrapf(err, "increment counter %s", name)
	}
	return value, nil
}

func (s *PostgresStore) RaiseTo(ctx context.Context, name string, floor int64) (int64, error) {
	var value int64
	if err := s.db.WithContext(ctx).Raw(raiseSQL, name, floor).Scan(&value).Error; err != nil {
		return 0, errors.Wrapf(err, "raise counter %s", name)
	}
	return value, nil
}

func (s *PostgresStore) Current(ctx context.Context, name string) (int64, error) {
	var value int64
	if err := s.db.WithContext(ctx).Raw(currentSQL, name).Scan(&value).Error; err != nil {
		return 0, errors.Wrapf(err, "read counter %s", name)
	}
	return value, nil
}
