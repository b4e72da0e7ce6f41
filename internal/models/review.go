package models

import "time"

type Review struct {
	ID         string    `json:"id" db:"id"`
	PropertyID string    `json:"property_id" db:"property_id"`
	TenantID   string    `json:"tenant_id" db:"tenant_id"`
	TenantName *string   `json:"tenant_name,omitempty"`
	Rating     int       `json:"rating" db:"rating"`
	Comment    *string   `json:"comment,omitempty" db:"comment"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
