package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Record is embedded by the stored inventory and cashier rows. Rows are
// soft deleted; CreatedBy and UpdatedBy hold cashier ids.
type Record struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	CreatedBy string         `gorm:"type:varchar(64)" json:"created_by"`
	UpdatedBy string         `gorm:"type:varchar(64)" json:"updated_by"`
}

// TouchedBy records cashierID as the latest writer, and as the creator of
// a row that has none yet.
func (r *Record) TouchedBy(cashierID string) {
	if r.CreatedBy == "" {
		r.CreatedBy = cashierID
	}
	r.UpdatedBy = cashierID
}

// BeforeCreate keeps an id chosen by the caller, so seeds and tests can fix
// one up front.
func (r *Record) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
