package counter

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"sync"
	"testing"

	"PathLab/apperrors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), PoolSize: 32})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestSequenceFormat(t *testing.T) {
	assert.Equal(t, "PAT2025000042", PatientSequence("lab1", 2025).Format(42))
	assert.Equal(t, "APT2024000001", AppointmentSequence("lab1", 2024).Format(1))
	assert.Equal(t, "1234567", Sequence{Prefix: "", Width: 3}.Format(1234567))
	assert.Equal(t, "17", ReceiptSequence("lab1").Format(17))
	assert.Equal(t, "receipt_lab1", ReceiptSequence("lab1").Name)
	assert.Equal(t, "patientId_lab1_2025", PatientSequence("lab1", 2025).Name)
}

func TestSequenceParse(t *testing.T) {
	seq := PatientSequence("lab1", 2025)
	n, ok := seq.Parse("PAT2025000042")
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)

	_, ok = seq.Parse("PAT2024000042")
	assert.False(t, ok)
	_, ok = seq.Parse("PAT2025abc")
	assert.False(t, ok)
}

func TestSequenceFor(t *testing.T) {
	seq, err := SequenceFor(KindReceipt, "lab9", 2025)
	require.NoError(t, err)
	assert.Equal(t, "receipt_lab9", seq.Name)

	_, err = SequenceFor("invoice", "lab9", 2025)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	_, err = SequenceFor(KindPatient, "", 2025)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestRedisStoreConcurrentAllocation(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, mr.Set(keyPrefix+"receipt_lab1", "100"))

	const n = 50
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		got  []int64
		errs []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := store.Increment(context.Background(), "receipt_lab1")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			got = append(got, v)
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	require.Len(t, got, n)
	for i, v := range got {
		assert.Equal(t, int64(101+i), v)
	}
}

func TestRedisStoreLazyCreate(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	cur, err := store.Current(ctx, "fresh")
	require.NoError(t, err)
	assert.Zero(t, cur)

	v, err := store.Increment(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestRedisStoreRaiseOnly(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	v, err := store.RaiseTo(ctx, "patientId_lab1_2025", 40)
	require.NoError(t, err)
	assert.Equal(t, int64(40), v)

	v, err = store.RaiseTo(ctx, "patientId_lab1_2025", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(40), v)

	v, err = store.Increment(ctx, "patientId_lab1_2025")
	require.NoError(t, err)
	assert.Equal(t, int64(41), v)
}

func TestServiceResyncNeverLowers(t *testing.T) {
	store, _ := newRedisStore(t)
	svc := NewService(store, zap.NewNop())
	ctx := context.Background()
	seq := ReceiptSequence("lab1")

	for i := 0; i < 5; i++ {
		_, err := svc.Next(ctx, seq)
		require.NoError(t, err)
	}

	before, after, err := svc.Resync(ctx, seq, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), before)
	assert.Equal(t, int64(5), after)

	_, after, err = svc.Resync(ctx, seq, 90)
	require.NoError(t, err)
	assert.Equal(t, int64(90), after)

	next, err := svc.NextID(ctx, seq)
	require.NoError(t, err)
	assert.Equal(t, "91", next)

	_, _, err = svc.Resync(ctx, seq, -1)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

type failingStore struct{ err error }

func (f failingStore) Increment(context.Context, string) (int64, error)      { return 0, f.err }
func (f failingStore) RaiseTo(context.Context, string, int64) (int64, error) { return 0, f.err }
func (f failingStore) Current(context.Context, string) (int64, error)        { return 0, f.err }

func TestServiceFailureIsInfrastructure(t *testing.T) {
	boom := errors.New("connection refused")
	svc := NewService(failingStore{err: boom}, zap.NewNop())

	_, err := svc.NextID(context.Background(), PatientSequence("lab1", 2025))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, apperrors.KindInfrastructure, apperrors.KindOf(err))
	assert.NotContains(t, apperrors.PublicMessage(err), "connection refused")
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestPostgresStoreIncrement(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresStore(db)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (name) DO UPDATE SET value = counters.value + 1")).
		WithArgs("receipt_lab1").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(7))

	v, err := store.Increment(context.Background(), "receipt_lab1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreRaiseUsesGreatest(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresStore(db)

	mock.ExpectQuery(regexp.QuoteMeta("GREATEST(counters.value, EXCLUDED.value)")).
		WithArgs("receipt_lab1", int64(12)).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(30))

	v, err := store.RaiseTo(context.Background(), "receipt_lab1", 12)
	require.NoError(t, err)
	assert.Equal(t, int64(30), v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreError(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(NewPostgresStore(db), zap.NewNop())

	mock.ExpectQuery("INSERT INTO counters").WillReturnError(errors.New("db down"))

	_, err := svc.Next(context.Background(), ReceiptSequence("lab1"))
	assert.Equal(t, apperrors.KindInfrastructure, apperrors.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewStore(t *testing.T) {
	s, err := NewStore("redis", nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)

	s, err = NewStore("postgres", nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &PostgresStore{}, s)

	_, err = NewStore("mongo", nil, nil)
	assert.Error(t, err)
}
