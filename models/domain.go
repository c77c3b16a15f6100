package models

import (
	"time"
)

// Domain is a host whose links may not be shortened while Blocked is set.
type Domain struct {
	Host      string    `json:"host" db:"host"`
	Blocked   bool      `json:"blocked" db:"blocked"`
	Reason    string    `json:"reason" db:"reason"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
