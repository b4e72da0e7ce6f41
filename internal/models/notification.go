package models

import (
	"encoding/json"
	"time"
)

type NotificationType string

const (
	NotificationJoinRequest NotificationType = "join_request"
)

type Notification struct {
	ID        string           `json:"id" db:"id"`
	UserID    string           `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Data      json.RawMessage  `json:"data,omitempty" db:"data"`
	IsRead    bool             `json:"is_read" db:"is_read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// JoinRequestNotice is what a landlord is told about a new join request.
type JoinRequestNotice struct {
	OccupancyID   string  `json:"occupancy_id"`
	LandlordID    string  `json:"landlord_id"`
	TenantName    string  `json:"tenant_name"`
	PropertyTitle string  `json:"property_title"`
	Message       *string `json:"message,omitempty"`
}
