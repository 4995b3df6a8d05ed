package models

type VendorStatus string

const (
	VendorActive   VendorStatus = "Active"
	VendorInactive VendorStatus = "Inactive"
)

type Vendor struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Category    string       `json:"category"`
	ContactName string       `json:"contact_name"`
	Phone       string       `json:"phone"`
	Email       string       `json:"email"`
	Balance     float64      `json:"balance"`
	Status      VendorStatus `json:"status"`
}

type VendorInput struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
}

type VendorInvoice struct {
	ID        string        `json:"id"`
	VendorID  string        `json:"vendor_id"`
	RefNumber string        `json:"ref_number"`
	Amount    float64       `json:"amount"`
	Date      string        `json:"date"`
	DueDate   string        `json:"due_date"`
	Status    InvoiceStatus `json:"status"`
}

type VendorInvoiceInput struct {
	RefNumber string  `json:"ref_number"`
	Amount    float64 `json:"amount"`
	Date      string  `json:"date"`
	DueDate   string  `json:"due_date"`
}
