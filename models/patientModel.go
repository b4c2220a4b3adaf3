package models

import (
	"strconv"
	"strings"
	"time"
)

type AgeUnit string

const (
	AgeYears  AgeUnit = "Years"
	AgeMonths AgeUnit = "Months"
	AgeDays   AgeUnit = "Days"
)

// Letter is the single-letter unit used on printed receipts.
func (u AgeUnit) Letter() string {
	switch u {
	case AgeYears:
		return "Y"
	case AgeMonths:
		return "M"
	case AgeDays:
		return "D"
	}
	return ""
}

func (u AgeUnit) Valid() bool {
	return u.Letter() != ""
}

// Age is always stored as a value with its unit.
type Age struct {
	Value int     `gorm:"column:value;not null" json:"value"`
	Unit  AgeUnit `gorm:"column:unit;size:10;not null" json:"unit"`
}

// String renders the age as value plus unit letter, e.g. "35Y".
func (a Age) String() string {
	return strconv.Itoa(a.Value) + a.Unit.Letter()
}

type Address struct {
	Line       string `gorm:"column:line" json:"line"`
	City       string `gorm:"column:city" json:"city"`
	State      string `gorm:"column:state" json:"state"`
	PostalCode string `gorm:"column:postal_code" json:"postal_code"`
}

// Format joins the non-empty parts with ", " and appends the postal code
// with a dash.
func (a Address) Format() string {
	var parts []string
	for _, p := range []string{a.Line, a.City, a.State} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	out := strings.Join(parts, ", ")
	if pc := strings.TrimSpace(a.PostalCode); pc != "" {
		if out == "" {
			return pc
		}
		out += " - " + pc
	}
	return out
}

// Patient model
type Patient struct {
	ID        string    `gorm:"primaryKey;type:uuid;column:id" json:"id"`
	LabID     string    `gorm:"column:lab_id;size:64;not null;uniqueIndex:idx_patient_lab_patient_id;index" json:"lab_id"`
	PatientID string    `gorm:"column:patient_id;size:32;not null;uniqueIndex:idx_patient_lab_patient_id" json:"patient_id"`
	FirstName string    `gorm:"column:first_name;not null" json:"first_name"`
	LastName  string    `gorm:"column:last_name;not null;index" json:"last_name"`
	Age       Age       `gorm:"embedded;embeddedPrefix:age_" json:"age"`
	Gender    string    `gorm:"column:gender;check:gender IN ('Male', 'Female', 'Other');not null" json:"gender"`
	Phone     string    `gorm:"column:phone;index" json:"phone"`
	Email     string    `gorm:"column:email" json:"email"`
	Address   Address   `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Patient) TableName() string {
	return "patients"
}

func (p Patient) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// Snapshot copies the fields printed on a booking. The copy is never
// synchronised with the live patient afterwards.
func (p Patient) Snapshot() PatientSnapshot {
	return PatientSnapshot{
		PatientID:          p.ID,
		RegistrationNumber: p.PatientID,
		Name:               p.FullName(),
		Phone:              p.Phone,
		Gender:             p.Gender,
		Age:                p.Age,
		Address:            p.Address,
	}
}
