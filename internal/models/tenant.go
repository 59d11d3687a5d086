package models

import (
	"time"
)

// Tenant represents an isolated business account. Every replicated
// collection is partitioned by its identifier.
//
// A tenant is soft-deleted by clearing Active; the record stays in the
// tenant list so bookings and other history keep a valid reference.
type Tenant struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
