package db

import "time"

// Product is a row of the products table.
type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Available bool      `json:"available"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateParams struct {
	Name  string
	Price float64
}

// Patch lists the columns to overwrite. Nil fields keep their stored value.
type Patch struct {
	Name      *string
	Price     *float64
	Available *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Price == nil && p.Available == nil
}
