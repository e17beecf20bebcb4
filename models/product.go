package models

import "time"

// Product is a catalog entry a license can be issued against. Once a
// license references it the record is read-only from this service's
// perspective; verification matches on Name.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
