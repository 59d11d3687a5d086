package models

import (
	"time"
)

// Entity is implemented by every item that lives inside a replicated
// collection. The id is used for upsert/delete within the collection; the
// collection itself is still replicated as a whole document.
type Entity interface {
	EntityID() string
}

// Booking is a scheduled appointment for a client with a staff member.
type Booking struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	StaffID   string    `json:"staff_id"`
	ServiceID string    `json:"service_id"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
}

func (b Booking) EntityID() string { return b.ID }

// Client is a customer of the tenant's business.
type Client struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (c Client) EntityID() string { return c.ID }

// Staff is a bookable member of the tenant's team.
type Staff struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role,omitempty"`
	Active bool   `json:"active"`
}

func (s Staff) EntityID() string { return s.ID }

// Service is an offering that can be booked, e.g. a haircut or a class.
type Service struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
}

func (s Service) EntityID() string { return s.ID }
