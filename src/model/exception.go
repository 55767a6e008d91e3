package model

import "time"

// Exception is a driver failure persisted for later inspection.
type Exception struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Where the error happened
	Service string `gorm:"size:100;index" json:"service"` // e.g. "futures_executor"
	Module  string `gorm:"size:100;index" json:"module"`  // e.g. "orders"
	Method  string `gorm:"size:100" json:"method"`        // e.g. "OpenPosition"
	Symbol  string `gorm:"size:50;index" json:"symbol"`

	// 0 when the failure happened outside a cycle
	Transaction int `json:"transaction"`

	Message string `gorm:"type:text" json:"message"`
	Stack   string `gorm:"type:text" json:"stack"`

	Level string `gorm:"size:20;index" json:"level"` // debug | info | warn | error | fatal

	// Extra context stored as JSON (optional)
	Context string `gorm:"type:jsonb" json:"context,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
