package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lab is the tenant. Every lab-scoped row carries its ID.
type Lab struct {
	ID        string    `gorm:"primaryKey;type:uuid;column:id" json:"id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Code      string    `gorm:"column:code;size:20;not null;uniqueIndex" json:"code"`
	Address   string    `gorm:"column:address" json:"address"`
	Phone     string    `gorm:"column:phone" json:"phone"`
	Email     string    `gorm:"column:email" json:"email"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Lab) TableName() string {
	return "labs"
}

// TestDefinition is a catalogue entry. Category is the service head used to
// group lines on a receipt.
type TestDefinition struct {
	ID         string          `gorm:"primaryKey;type:uuid;column:id" json:"id"`
	LabID      string          `gorm:"column:lab_id;size:64;not null;uniqueIndex:idx_test_lab_name;index" json:"lab_id"`
	Name       string          `gorm:"column:name;not null;uniqueIndex:idx_test_lab_name" json:"name"`
	Category   string          `gorm:"column:category;not null;index" json:"category"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	SampleType string          `gorm:"column:sample_type" json:"sample_type"`
	IsActive   bool            `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (TestDefinition) TableName() string {
	return "test_definitions"
}

// Counter backs one named sequence. Value only increases.
type Counter struct {
	Name      string    `gorm:"primaryKey;column:name;size:128" json:"name"`
	Value     int64     `gorm:"column:value;not null;default:0" json:"value"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Counter) TableName() string {
	return "counters"
}
