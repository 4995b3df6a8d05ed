package models

type SearchFilter string

const (
	SearchAll       SearchFilter = "all"
	SearchEntities  SearchFilter = "entities"
	SearchDocuments SearchFilter = "documents"
	SearchInvoices  SearchFilter = "invoices"
)

type SearchResults struct {
	Query     string           `json:"query"`
	Entities  []*Entity        `json:"entities"`
	Documents []*Document      `json:"documents"`
	Invoices  []*VendorInvoice `json:"invoices"`
}

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is an alert derived from the current data.
type Notification struct {
	Kind     string   `json:"kind"`
	RefID    string   `json:"ref_id"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Date     string   `json:"date,omitempty"`
}
