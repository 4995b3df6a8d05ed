package models

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

type Reminder struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	DueDate     string   `json:"due_date"`
	DueTime     string   `json:"due_time"`
	Priority    Priority `json:"priority"`
	Completed   bool     `json:"completed"`
	EntityID    string   `json:"entity_id,omitempty"`
}

type ReminderInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DueDate     string   `json:"due_date"`
	DueTime     string   `json:"due_time"`
	Priority    Priority `json:"priority"`
	EntityID    string   `json:"entity_id"`
}
