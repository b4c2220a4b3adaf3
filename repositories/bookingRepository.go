package repositories

import (
	"context"
	"fmt"
	"time"

	"PathLab/cache"
	"PathLab/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const bookingCacheExpiry = time.Hour

type BookingRepository interface {
	Create(ctx context.Context, booking *models.PathologyBooking) error
	GetByID(ctx context.Context, labID, id string) (*models.PathologyBooking, error)
	GetByReceipt(ctx context.Context, labID string, receiptNumber int64) (*models.PathologyBooking, error)
	List(ctx context.Context, labID string, from, to time.Time) ([]models.PathologyBooking, error)
	Update(ctx context.Context, labID, id string, fn func(*models.PathologyBooking) (bool, error)) (*models.PathologyBooking, error)
	MaxReceiptNumber(ctx context.Context, labID string) (int64, error)
}

type bookingRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewBookingRepository(db *gorm.DB, cache *cache.Cache) BookingRepository {
	return &bookingRepository{db: db, cache: cache}
}

func (r *bookingRepository) Create(ctx context.Context, booking *models.PathologyBooking) error {
	if err := r.db.WithContext(ctx).Create(booking).Error; err != nil {
		return errors.Wrap(createErr(err), "failed to create booking")
	}
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, labID, id string) (*models.PathologyBooking, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var booking models.PathologyBooking
	cacheKey := r.getBookingCacheKey(labID, id)
	if r.cache.GetJSON(ctx, cacheKey, &booking) {
		return &booking, nil
	}

	err := r.db.WithContext(ctx).Where("lab_id = ? AND id = ?", labID, id).First(&booking).Error
	if found, err := translate(err); !found {
		return nil, errors.Wrap(err, "failed to get booking")
	}

	r.cache.SetJSON(ctx, cacheKey, booking, bookingCacheExpiry)
	return &booking, nil
}

func (r *bookingRepository) GetByReceipt(ctx context.Context, labID string, receiptNumber int64) (*models.PathologyBooking, error) {
	var booking models.PathologyBooking
	err := r.db.WithContext(ctx).
		Where("lab_id = ? AND receipt_number = ?", labID, receiptNumber).
		First(&booking).Error
	if found, err := translate(err); !found {
		return nil, errors.Wrap(err, "failed to get booking by receipt")
	}
	return &booking, nil
}

// List returns bookings created in [from, to).
func (r *bookingRepository) List(ctx context.Context, labID string, from, to time.Time) ([]models.PathologyBooking, error) {
	var bookings []models.PathologyBooking
	err := r.db.WithContext(ctx).
		Where("lab_id = ? AND created_at >= ? AND created_at < ?", labID, from, to).
		Order("receipt_number").
		Find(&bookings).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list bookings")
	}
	return bookings, nil
}

// Update reads the row under SELECT ... FOR UPDATE, hands it to fn and saves
// it when fn reports a change, all in one transaction. The cache is bypassed
// so fn always starts from the committed row. A missing booking yields nil
// without calling fn; an error from fn is returned unwrapped.
func (r *bookingRepository) Update(ctx context.Context, labID, id string, fn func(*models.PathologyBooking) (bool, error)) (*models.PathologyBooking, error) {
	var (
		booking *models.PathologyBooking
		changed bool
		fnErr   error
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.PathologyBooking
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("lab_id = ? AND id = ?", labID, id).
			First(&row).Error
		if found, err := translate(err); !found {
			return err
		}
		booking = &row

		if changed, fnErr = fn(booking); fnErr != nil {
			return fnErr
		}
		if !changed {
			return nil
		}
		return tx.Save(booking).Error
	})
	if fnErr != nil {
		return nil, fnErr
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to update booking")
	}
	if changed {
		r.cache.Invalidate(ctx, r.getBookingCacheKey(labID, id))
	}
	return booking, nil
}

func (r *bookingRepository) MaxReceiptNumber(ctx context.Context, labID string) (int64, error) {
	var max int64
	err := r.db.WithContext(ctx).Model(&models.PathologyBooking{}).
		Where("lab_id = ?", labID).
		Select("COALESCE(MAX(receipt_number), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to read max receipt number")
	}
	return max, nil
}

func (r *bookingRepository) getBookingCacheKey(labID, id string) string {
	return fmt.Sprintf("booking_cache:%s:%s", labID, id)
}
