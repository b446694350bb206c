package domain

import (
	"fmt"
	"time"
)

// Product is a catalog entry.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	InStock     int       `json:"in_stock"`
	Images      []string  `json:"images"`
	CreatedByID int64     `json:"created_by_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate checks catalog constraints.
func (p *Product) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("product missing name")
	}
	if p.Price <= 0 {
		return fmt.Errorf("product price must be greater than zero")
	}
	if p.InStock < 0 {
		return fmt.Errorf("product stock cannot be negative")
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return nil
}
