package workspace

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"bizdesk/internal/models"
)

const gosiInvoiceColumns = `id, month, year, amount, status, due_date, issue_date`

func (s *Service) ListGosiInvoices(ctx context.Context) ([]*models.GosiInvoice, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+gosiInvoiceColumns+` FROM gosi_invoices ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list gosi invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*models.GosiInvoice
	for rows.Next() {
		inv := new(models.GosiInvoice)
		if err := rows.Scan(&inv.ID, &inv.Month, &inv.Year, &inv.Amount, &inv.Status, &inv.DueDate, &inv.IssueDate); err != nil {
			return nil, fmt.Errorf("scan gosi invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// ExpectedContribution is the GOSI amount implied by active basic salaries.
func (s *Service) ExpectedContribution(ctx context.Context) (float64, error) {
	var total sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT SUM(basic_salary) FROM employees WHERE status = ?`, models.EmployeeActive,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum basic salaries: %w", err)
	}
	return roundCents(total.Float64 * models.GosiContributionRate), nil
}

// CheckInvoice compares amount with the expected contribution.
func (s *Service) CheckInvoice(ctx context.Context, amount float64) (models.InvoiceCheck, error) {
	expected, err := s.ExpectedContribution(ctx)
	if err != nil {
		return models.InvoiceCheck{}, err
	}
	diff := roundCents(amount - expected)
	return models.InvoiceCheck{
		Expected:   expected,
		Actual:     amount,
		Difference: diff,
		Mismatch:   diff != 0,
	}, nil
}

// GosiSummary picks the first overdue and pending invoices and counts employees.
func (s *Service) GosiSummary(ctx context.Context) (*models.GosiSummary, error) {
	invoices, err := s.ListGosiInvoices(ctx)
	if err != nil {
		return nil, err
	}
	sum := &models.GosiSummary{}
	for _, inv := range invoices {
		switch inv.Status {
		case models.InvoiceOverdue:
			if sum.Overdue == nil {
				sum.Overdue = inv
			}
		case models.InvoicePending:
			if sum.Pending == nil {
				sum.Pending = inv
			}
		}
	}
	if sum.ExpectedAmount, err = s.ExpectedContribution(ctx); err != nil {
		return nil, err
	}
	employees, err := s.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range employees {
		if e.Status == models.EmployeeActive {
			sum.ActiveEmployees++
		}
		if e.GosiStatus == models.GosiError {
			sum.MismatchedStaff++
		}
	}
	return sum, nil
}

// CreateGosiInvoice records an uploaded invoice and reports how it compares
// with the expected contribution.
func (s *Service) CreateGosiInvoice(ctx context.Context, in models.GosiInvoiceInput) (*models.GosiInvoice, models.InvoiceCheck, error) {
	v := &models.ValidationError{}
	if in.Amount <= 0 {
		v.Add("amount", "Invoice amount is required")
	}
	v.Require("month", in.Month, "Month is required")
	if in.Year <= 0 {
		v.Add("year", "Year is required")
	}
	if in.IssueDate == "" {
		in.IssueDate = s.today()
	}
	if !models.ValidDate(in.IssueDate) {
		v.Add("issue_date", "Issue date must be YYYY-MM-DD")
	}
	if in.DueDate != "" && !models.ValidDate(in.DueDate) {
		v.Add("due_date", "Due date must be YYYY-MM-DD")
	}
	if err := v.Err(); err != nil {
		return nil, models.InvoiceCheck{}, err
	}
	if in.DueDate == "" {
		issued, _ := parseDate(in.IssueDate)
		in.DueDate = issued.AddDate(0, 0, 14).Format(models.DateLayout)
	}

	inv := &models.GosiInvoice{
		ID:        uuid.NewString(),
		Month:     strings.TrimSpace(in.Month),
		Year:      in.Year,
		Amount:    in.Amount,
		Status:    models.InvoicePending,
		DueDate:   in.DueDate,
		IssueDate: in.IssueDate,
	}
	if models.PastDue(inv.DueDate, s.now()) {
		inv.Status = models.InvoiceOverdue
	}
	check, err := s.CheckInvoice(ctx, inv.Amount)
	if err != nil {
		return nil, models.InvoiceCheck{}, err
	}
	if err := s.insertGosiInvoice(ctx, s.db, inv); err != nil {
		return nil, models.InvoiceCheck{}, err
	}
	return inv, check, nil
}

func (s *Service) insertGosiInvoice(ctx context.Context, q querier, inv *models.GosiInvoice) error {
	seq, err := nextSeq(ctx, q, "gosi_invoices")
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO gosi_invoices (`+gosiInvoiceColumns+`, seq) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Month, inv.Year, inv.Amount, inv.Status, inv.DueDate, inv.IssueDate, seq,
	)
	if err != nil {
		return fmt.Errorf("insert gosi invoice: %w", err)
	}
	return nil
}

// SetGosiInvoiceStatus marks an invoice paid, pending or overdue.
func (s *Service) SetGosiInvoiceStatus(ctx context.Context, id string, status models.InvoiceStatus) error {
	switch status {
	case models.InvoicePaid, models.InvoicePending, models.InvoiceOverdue:
	default:
		return &models.ValidationError{Fields: map[string]string{"status": "Status must be Paid, Pending or Overdue"}}
	}
	res, err := s.db.ExecContext(ctx, `UPDATE gosi_invoices SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update gosi invoice: %w", err)
	}
	return checkAffected(res)
}

const employeeColumns = `id, name, role, department, basic_salary, full_salary, gosi_status, join_date, status`

func scanEmployee(row interface{ Scan(...any) error }) (*models.Employee, error) {
	e := new(models.Employee)
	err := row.Scan(&e.ID, &e.Name, &e.Role, &e.Department, &e.BasicSalary, &e.FullSalary, &e.GosiStatus, &e.JoinDate, &e.Status)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) ListEmployees(ctx context.Context) ([]*models.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var employees []*models.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func (s *Service) GetEmployee(ctx context.Context, id string) (*models.Employee, error) {
	e, err := scanEmployee(s.db.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get employee: %w", err)
	}
	return e, nil
}

func validateEmployee(in models.EmployeeInput) error {
	v := &models.ValidationError{}
	v.Require("name", in.Name, "Full name is required")
	v.Require("role", in.Role, "Job role is required")
	if in.BasicSalary <= 0 {
		v.Add("basic_salary", "Basic salary must be greater than 0")
	}
	if in.FullSalary <= 0 {
		v.Add("full_salary", "Full salary must be greater than 0")
	}
	if in.BasicSalary > 0 && in.FullSalary > 0 && in.BasicSalary > in.FullSalary {
		v.Add("basic_salary", "Basic salary cannot exceed full salary")
	}
	if in.JoinDate != "" && !models.ValidDate(in.JoinDate) {
		v.Add("join_date", "Join date must be YYYY-MM-DD")
	}
	return v.Err()
}

func (s *Service) CreateEmployee(ctx context.Context, in models.EmployeeInput) (*models.Employee, error) {
	if err := validateEmployee(in); err != nil {
		return nil, err
	}
	e := &models.Employee{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Role:        strings.TrimSpace(in.Role),
		Department:  strings.TrimSpace(in.Department),
		BasicSalary: in.BasicSalary,
		FullSalary:  in.FullSalary,
		GosiStatus:  models.ClassifyGosi(in.BasicSalary, in.FullSalary),
		JoinDate:    in.JoinDate,
		Status:      models.EmployeeActive,
	}
	if err := s.insertEmployee(ctx, s.db, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) insertEmployee(ctx context.Context, q querier, e *models.Employee) error {
	seq, err := nextSeq(ctx, q, "employees")
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO employees (`+employeeColumns+`, seq) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Role, e.Department, e.BasicSalary, e.FullSalary, e.GosiStatus, e.JoinDate, e.Status, seq,
	)
	if err != nil {
		return fmt.Errorf("insert employee: %w", err)
	}
	return nil
}

// UpdateEmployee replaces the editable fields and reclassifies the GOSI status.
func (s *Service) UpdateEmployee(ctx context.Context, id string, in models.EmployeeInput) (*models.Employee, error) {
	if err := validateEmployee(in); err != nil {
		return nil, err
	}
	e, err := s.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Name = strings.TrimSpace(in.Name)
	e.Role = strings.TrimSpace(in.Role)
	e.Department = strings.TrimSpace(in.Department)
	e.BasicSalary = in.BasicSalary
	e.FullSalary = in.FullSalary
	e.GosiStatus = models.ClassifyGosi(in.BasicSalary, in.FullSalary)
	if in.JoinDate != "" {
		e.JoinDate = in.JoinDate
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE employees SET name = ?, role = ?, department = ?, basic_salary = ?, full_salary = ?, gosi_status = ?, join_date = ? WHERE id = ?`,
		e.Name, e.Role, e.Department, e.BasicSalary, e.FullSalary, e.GosiStatus, e.JoinDate, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update employee: %w", err)
	}
	return e, nil
}

// Payroll returns an employee's salary payments, newest first.
func (s *Service) Payroll(ctx context.Context, employeeID string) ([]*models.PayrollRecord, error) {
	if _, err := s.GetEmployee(ctx, employeeID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, employee_id, month, amount, status, date FROM payroll_records WHERE employee_id = ? ORDER BY date DESC, seq DESC`,
		employeeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list payroll: %w", err)
	}
	defer rows.Close()

	var records []*models.PayrollRecord
	for rows.Next() {
		r := new(models.PayrollRecord)
		if err := rows.Scan(&r.ID, &r.EmployeeID, &r.Month, &r.Amount, &r.Status, &r.Date); err != nil {
			return nil, fmt.Errorf("scan payroll record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Service) insertPayroll(ctx context.Context, q querier, r *models.PayrollRecord) error {
	seq, err := nextSeq(ctx, q, "payroll_records")
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO payroll_records (id, employee_id, month, amount, status, date, seq) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.EmployeeID, r.Month, r.Amount, r.Status, r.Date, seq,
	)
	if err != nil {
		return fmt.Errorf("insert payroll record: %w", err)
	}
	return nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
