package model

import "time"

type Opportunity struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Field       string     `json:"field"`
	Country     string     `json:"country"`
	URL         string     `json:"url,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
}

// SharedOpportunity records an opportunity pinned to a room's board.
type SharedOpportunity struct {
	ID            string    `json:"id"`
	RoomID        string    `json:"room_id"`
	OpportunityID string    `json:"opportunity_id"`
	SharedBy      *string   `json:"shared_by,omitempty"`
	SharedByName  string    `json:"shared_by_name,omitempty"`
	Message       string    `json:"message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Opportunity   *Opportunity `json:"opportunity,omitempty"`
}
