package domain

import (
	"time"

	"github.com/google/uuid"
)

// Organization represents a tenant whose data partition every upload is scoped to.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewOrganization creates a new organization with immutable pattern
func NewOrganization(name string) Organization {
	now := time.Now()
	return Organization{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WithName returns a new organization with updated name
func (o Organization) WithName(name string) Organization {
	return Organization{
		ID:        o.ID,
		Name:      name,
		CreatedAt: o.CreatedAt,
		UpdatedAt: time.Now(),
	}
}
