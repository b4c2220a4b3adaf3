// Package counter allocates monotonically increasing sequence numbers for
// patient IDs, appointment IDs and receipt numbers.
package counter

import (
	"context"
	"fmt"

	"PathLab/config"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Store is an atomic named counter. Implementations must increment in a
// single storage operation and create the counter at zero on first use.
type Store interface {
	// Increment adds one and returns the new value.
	Increment(ctx context.Context, name string) (int64, error)
	// RaiseTo sets the value to max(current, floor) and returns it.
	RaiseTo(ctx context.Context, name string, floor int64) (int64, error)
	// Current returns the value, zero for an unseen name.
	Current(ctx context.Context, name string) (int64, error)
}

// NewStore picks the backend named by COUNTER_BACKEND.
func NewStore(backend string, db *gorm.DB, client *redis.Client) (Store, error) {
	switch backend {
	case config.CounterBackendPostgres, "":
		return NewPostgresStore(db), nil
	case config.CounterBackendRedis:
		return NewRedisStore(client), nil
	}
	return nil, fmt.Errorf("unknown counter backend %q", backend)
}
