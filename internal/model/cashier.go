package model

// Cashier is the operator a sale is attributed to.
type Cashier struct {
	Record
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email" validate:"required,email"`
	Name         string `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Phone        string `gorm:"type:varchar(20)" json:"phone,omitempty"`
	Role         string `gorm:"type:varchar(30);not null;default:'CASHIER'" json:"role" validate:"required,oneof=CASHIER SUPERVISOR"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`
	TokenVersion string `gorm:"type:varchar(255);default:''" json:"-"` // single session enforcement
}

// CashierRef identifies the operator on a request. It travels in the
// request context, never in shared state.
type CashierRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c *Cashier) Ref() CashierRef {
	return CashierRef{ID: c.ID.String(), Name: c.Name}
}
