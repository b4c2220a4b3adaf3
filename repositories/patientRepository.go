package repositories

import (
	"context"
	"fmt"
	"strings"

	"PathLab/cache"
	"PathLab/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type PatientRepository interface {
	Create(ctx context.Context, patient *models.Patient) error
	GetByID(ctx context.Context, labID, id string) (*models.Patient, error)
	List(ctx context.Context, labID string, limit, offset int) ([]models.Patient, error)
	Search(ctx context.Context, labID, query string) ([]models.Patient, error)
	FindDuplicate(ctx context.Context, labID, firstName, lastName, phone string) (*models.Patient, error)
	Update(ctx context.Context, patient *models.Patient) error
	MaxPatientID(ctx context.Context, labID, prefix string) (string, error)
}

type patientRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewPatientRepository(db *gorm.DB, cache *cache.Cache) PatientRepository {
	return &patientRepository{db: db, cache: cache}
}

func (r *patientRepository) Create(ctx context.Context, patient *models.Patient) error {
	if err := r.db.WithContext(ctx).Create(patient).Error; err != nil {
		return errors.Wrap(createErr(err), "failed to create patient")
	}
	return r.cache.DeleteAll(ctx, r.listCachePattern(patient.LabID))
}

func (r *patientRepository) GetByID(ctx context.Context, labID, id string) (*models.Patient, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var patient models.Patient
	cacheKey := r.getPatientCacheKey(labID, id)
	if r.cache.GetJSON(ctx, cacheKey, &patient) {
		return &patient, nil
	}

	err := r.db.WithContext(ctx).Where("lab_id = ? AND id = ?", labID, id).First(&patient).Error
	if found, err := translate(err); !found {
		return nil, errors.Wrap(err, "failed to get patient")
	}

	r.cache.SetJSON(ctx, cacheKey, patient, defaultCacheExpiry)
	return &patient, nil
}

func (r *patientRepository) List(ctx context.Context, labID string, limit, offset int) ([]models.Patient, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cacheKey := fmt.Sprintf("patients_cache:%s:%d:%d", labID, limit, offset)
	var patients []models.Patient
	if r.cache.GetJSON(ctx, cacheKey, &patients) {
		return patients, nil
	}

	err := r.db.WithContext(ctx).
		Where("lab_id = ?", labID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&patients).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list patients")
	}

	r.cache.SetJSON(ctx, cacheKey, patients, listCacheExpiry)
	return patients, nil
}

func (r *patientRepository) Search(ctx context.Context, labID, query string) ([]models.Patient, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	like := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	var patients []models.Patient
	err := r.db.WithContext(ctx).
		Where("lab_id = ?", labID).
		Where("phone LIKE ? OR patient_id = ? OR LOWER(first_name || ' ' || last_name) LIKE ?", like, query, like).
		Order("created_at DESC").
		Limit(50).
		Find(&patients).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to search patients")
	}
	return patients, nil
}

func (r *patientRepository) FindDuplicate(ctx context.Context, labID, firstName, lastName, phone string) (*models.Patient, error) {
	var patient models.Patient
	err := r.db.WithContext(ctx).
		Where("lab_id = ? AND LOWER(first_name) = LOWER(?) AND LOWER(last_name) = LOWER(?) AND phone = ?",
			labID, firstName, lastName, phone).
		First(&patient).Error
	if found, err := translate(err); !found {
		return nil, errors.Wrap(err, "failed to check for existing patient")
	}
	return &patient, nil
}

// Update writes demographics. patient_id and lab_id are never updated.
func (r *patientRepository) Update(ctx context.Context, patient *models.Patient) error {
	err := r.db.WithContext(ctx).Model(&models.Patient{}).
		Where("lab_id = ? AND id = ?", patient.LabID, patient.ID).
		Select("first_name", "last_name", "age_value", "age_unit", "gender", "phone", "email",
			"address_line", "address_city", "address_state", "address_postal_code").
		Updates(patient).Error
	if err != nil {
		return errors.Wrap(err, "failed to update patient")
	}

	if err := r.cache.Delete(ctx, r.getPatientCacheKey(patient.LabID, patient.ID)); err != nil {
		return errors.Wrap(err, "failed to delete patient cache")
	}
	return r.cache.DeleteAll(ctx, r.listCachePattern(patient.LabID))
}

// MaxPatientID returns the highest patient_id with the given prefix, or "".
func (r *patientRepository) MaxPatientID(ctx context.Context, labID, prefix string) (string, error) {
	var max *string
	err := r.db.WithContext(ctx).Model(&models.Patient{}).
		Where("lab_id = ? AND patient_id LIKE ?", labID, prefix+"%").
		Select("MAX(patient_id)").
		Scan(&max).Error
	if err != nil {
		return "", errors.Wrap(err, "failed to read max patient id")
	}
	if max == nil {
		return "", nil
	}
	return *max, nil
}

func (r *patientRepository) getPatientCacheKey(labID, id string) string {
	return fmt.Sprintf("patient_cache:%s:%s", labID, id)
}

func (r *patientRepository) listCachePattern(labID string) string {
	return fmt.Sprintf("patients_cache:%s:*", labID)
}
