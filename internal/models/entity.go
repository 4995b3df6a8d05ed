package models

import "time"

// DateLayout is the calendar-date format used for every due, issue and expiry date.
const DateLayout = "2006-01-02"

type EntityStatus string

const (
	EntityActive  EntityStatus = "active"
	EntityWarning EntityStatus = "warning"
	EntityError   EntityStatus = "error"
)

// Entity is a business unit and the top-level navigation anchor.
type Entity struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Type       string       `json:"type"`
	Status     EntityStatus `json:"status"`
	ItemsCount int          `json:"items_count"`
	NextAction string       `json:"next_action,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// NeedsAttention reports whether the dashboard should highlight the entity.
func (e *Entity) NeedsAttention() bool {
	return e.ItemsCount > 0 || e.NextAction != "" || e.Status != EntityActive
}

type EntityInput struct {
	Name       string       `json:"name"`
	Type       string       `json:"type"`
	Status     EntityStatus `json:"status"`
	NextAction string       `json:"next_action"`
}

// EntityUpdate carries a partial update; nil fields are left untouched.
type EntityUpdate struct {
	Name       *string       `json:"name"`
	Type       *string       `json:"type"`
	Status     *EntityStatus `json:"status"`
	ItemsCount *int          `json:"items_count"`
	NextAction *string       `json:"next_action"`
}

func ValidEntityStatus(s EntityStatus) bool {
	switch s {
	case EntityActive, EntityWarning, EntityError:
		return true
	}
	return false
}
