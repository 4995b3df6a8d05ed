package models

type InvoiceStatus string

const (
	InvoicePaid    InvoiceStatus = "Paid"
	InvoicePending InvoiceStatus = "Pending"
	InvoiceOverdue InvoiceStatus = "Overdue"
	InvoiceUnpaid  InvoiceStatus = "Unpaid"
)

// GosiContributionRate is the share of basic salary expected on a GOSI invoice.
const GosiContributionRate = 0.10

type GosiInvoice struct {
	ID        string        `json:"id"`
	Month     string        `json:"month"`
	Year      int           `json:"year"`
	Amount    float64       `json:"amount"`
	Status    InvoiceStatus `json:"status"`
	DueDate   string        `json:"due_date"`
	IssueDate string        `json:"issue_date"`
}

type GosiInvoiceInput struct {
	Month     string  `json:"month"`
	Year      int     `json:"year"`
	Amount    float64 `json:"amount"`
	DueDate   string  `json:"due_date"`
	IssueDate string  `json:"issue_date"`
}

// InvoiceCheck compares an invoice amount with the contribution expected from salaries.
type InvoiceCheck struct {
	Expected   float64 `json:"expected"`
	Actual     float64 `json:"actual"`
	Difference float64 `json:"difference"`
	Mismatch   bool    `json:"mismatch"`
}

// GosiSummary is the GOSI dashboard headline.
type GosiSummary struct {
	Overdue         *GosiInvoice `json:"overdue,omitempty"`
	Pending         *GosiInvoice `json:"pending,omitempty"`
	ExpectedAmount  float64      `json:"expected_amount"`
	ActiveEmployees int          `json:"active_employees"`
	MismatchedStaff int          `json:"mismatched_staff"`
}

type GosiStatus string

const (
	GosiCorrect GosiStatus = "correct"
	GosiError   GosiStatus = "error"
	GosiReview  GosiStatus = "review"
)

type EmployeeStatus string

const (
	EmployeeActive     EmployeeStatus = "Active"
	EmployeeOnLeave    EmployeeStatus = "On Leave"
	EmployeeTerminated EmployeeStatus = "Terminated"
)

type Employee struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Role        string         `json:"role"`
	Department  string         `json:"department,omitempty"`
	BasicSalary float64        `json:"basic_salary"`
	FullSalary  float64        `json:"full_salary"`
	GosiStatus  GosiStatus     `json:"gosi_status"`
	JoinDate    string         `json:"join_date,omitempty"`
	Status      EmployeeStatus `json:"status"`
}

type EmployeeInput struct {
	Name        string  `json:"name"`
	Role        string  `json:"role"`
	Department  string  `json:"department"`
	BasicSalary float64 `json:"basic_salary"`
	FullSalary  float64 `json:"full_salary"`
	JoinDate    string  `json:"join_date"`
}

// ClassifyGosi flags salaries whose basic component equals the full salary,
// which almost always means allowances were never split out.
func ClassifyGosi(basic, full float64) GosiStatus {
	if basic == full {
		return GosiError
	}
	return GosiCorrect
}

type PayrollStatus string

const (
	PayrollPaid       PayrollStatus = "Paid"
	PayrollProcessing PayrollStatus = "Processing"
)

type PayrollRecord struct {
	ID         string        `json:"id"`
	EmployeeID string        `json:"employee_id"`
	Month      string        `json:"month"`
	Amount     float64       `json:"amount"`
	Status     PayrollStatus `json:"status"`
	Date       string        `json:"date"`
}
