package models

import (
	"time"

	"PathLab/billing"
)

// PathologyRegistration records that samples for a receipt were registered
// for processing. While EditAllowed is false the invoice is soft locked.
type PathologyRegistration struct {
	ID            int64     `gorm:"primaryKey;column:id" json:"id"`
	LabID         string    `gorm:"column:lab_id;size:64;not null;uniqueIndex:idx_registration_lab_receipt" json:"lab_id"`
	ReceiptNumber int64     `gorm:"column:receipt_number;not null;uniqueIndex:idx_registration_lab_receipt" json:"receiptNumber"`
	BookingID     string    `gorm:"column:booking_id;type:uuid;not null;index" json:"bookingId"`
	EditAllowed   bool      `gorm:"column:edit_allowed;not null;default:false" json:"editAllowed"`
	CreatedBy     string    `gorm:"column:created_by" json:"createdBy"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (PathologyRegistration) TableName() string {
	return "pathology_registrations"
}

func (r *PathologyRegistration) Facts() *billing.RegistrationFacts {
	if r == nil {
		return nil
	}
	return &billing.RegistrationFacts{EditAllowed: r.EditAllowed}
}

// PathologyReport is the generated result for a receipt. Its existence hard
// locks the invoice; the unique index keeps the first one.
type PathologyReport struct {
	ID            int64     `gorm:"primaryKey;column:id" json:"id"`
	LabID         string    `gorm:"column:lab_id;size:64;not null;uniqueIndex:idx_report_lab_receipt" json:"lab_id"`
	ReceiptNumber int64     `gorm:"column:receipt_number;not null;uniqueIndex:idx_report_lab_receipt" json:"receiptNumber"`
	BookingID     string    `gorm:"column:booking_id;type:uuid;not null;index" json:"bookingId"`
	Findings      string    `gorm:"column:findings;type:text" json:"findings"`
	GeneratedBy   string    `gorm:"column:generated_by" json:"generatedBy"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (PathologyReport) TableName() string {
	return "pathology_reports"
}
