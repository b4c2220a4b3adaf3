package models

import (
	"fmt"
	"time"
)

type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "Scheduled"
	AppointmentCompleted AppointmentStatus = "Completed"
	AppointmentCancelled AppointmentStatus = "Cancelled"
)

// Appointment model
type Appointment struct {
	ID            string            `gorm:"primaryKey;type:uuid;column:id" json:"id"`
	LabID         string            `gorm:"column:lab_id;size:64;not null;uniqueIndex:idx_appointment_lab_code;index" json:"lab_id"`
	AppointmentID string            `gorm:"column:appointment_id;size:32;not null;uniqueIndex:idx_appointment_lab_code" json:"appointment_id"`
	PatientID     string            `gorm:"column:patient_id;type:uuid;not null;index" json:"patient_id"`
	DoctorName    string            `gorm:"column:doctor_name;not null" json:"doctor_name"`
	Department    string            `gorm:"column:department" json:"department"`
	ScheduledAt   time.Time         `gorm:"column:scheduled_at;not null;index" json:"scheduled_at"`
	Status        AppointmentStatus `gorm:"column:status;size:20;not null;check:status IN ('Scheduled', 'Completed', 'Cancelled')" json:"status"`
	Notes         string            `gorm:"column:notes;type:text" json:"notes"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// TransitionTo moves a scheduled appointment to a terminal status.
func (a *Appointment) TransitionTo(next AppointmentStatus) error {
	if a.Status != AppointmentScheduled || (next != AppointmentCompleted && next != AppointmentCancelled) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, a.Status, next)
	}
	a.Status = next
	return nil
}
