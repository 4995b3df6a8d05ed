package models

import "time"

type BankCategory struct {
	ID           string    `json:"id"`
	EntityID     string    `json:"entity_id"`
	Name         string    `json:"name"`
	AccountCount int       `json:"account_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// BankAccount holds banking credentials. AccountNumber and Password are
// stored encrypted and returned in plain text only to callers that reveal them.
type BankAccount struct {
	ID            string    `json:"id"`
	CategoryID    string    `json:"category_id"`
	BankName      string    `json:"bank_name"`
	AccountNumber string    `json:"account_number"`
	RoutingNumber string    `json:"routing_number"`
	Type          string    `json:"type"`
	Balance       float64   `json:"balance"`
	Currency      string    `json:"currency"`
	Username      string    `json:"username,omitempty"`
	Password      string    `json:"password,omitempty"`
	Email         string    `json:"email,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type BankAccountInput struct {
	BankName      string  `json:"bank_name"`
	AccountNumber string  `json:"account_number"`
	RoutingNumber string  `json:"routing_number"`
	Type          string  `json:"type"`
	Balance       float64 `json:"balance"`
	Currency      string  `json:"currency"`
	Username      string  `json:"username"`
	Password      string  `json:"password"`
	Email         string  `json:"email"`
}
