package workspace

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"bizdesk/internal/models"
)

// vendorSelect computes the balance as the sum of unpaid and overdue invoices.
const vendorSelect = `SELECT v.id, v.name, v.category, v.contact_name, v.phone, v.email, v.status,
	COALESCE((SELECT SUM(i.amount) FROM vendor_invoices i WHERE i.vendor_id = v.id AND i.status IN ('Unpaid', 'Overdue', 'Pending')), 0)
	FROM vendors v`

func scanVendor(row interface{ Scan(...any) error }) (*models.Vendor, error) {
	v := new(models.Vendor)
	if err := row.Scan(&v.ID, &v.Name, &v.Category, &v.ContactName, &v.Phone, &v.Email, &v.Status, &v.Balance); err != nil {
		return nil, err
	}
	v.Balance = roundCents(v.Balance)
	return v, nil
}

func (s *Service) ListVendors(ctx context.Context) ([]*models.Vendor, error) {
	rows, err := s.db.QueryContext(ctx, vendorSelect+` ORDER BY v.seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()

	var vendors []*models.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

func (s *Service) GetVendor(ctx context.Context, id string) (*models.Vendor, error) {
	v, err := scanVendor(s.db.QueryRowContext(ctx, vendorSelect+` WHERE v.id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get vendor: %w", err)
	}
	return v, nil
}

func (s *Service) CreateVendor(ctx context.Context, in models.VendorInput) (*models.Vendor, error) {
	v := &models.ValidationError{}
	v.Require("name", in.Name, "Vendor name is required")
	v.Require("category", in.Category, "Category is required")
	if err := v.Err(); err != nil {
		return nil, err
	}
	vendor := &models.Vendor{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Category:    strings.TrimSpace(in.Category),
		ContactName: strings.TrimSpace(in.ContactName),
		Phone:       strings.TrimSpace(in.Phone),
		Email:       strings.TrimSpace(in.Email),
		Status:      models.VendorActive,
	}
	if err := s.insertVendor(ctx, s.db, vendor); err != nil {
		return nil, err
	}
	return vendor, nil
}

func (s *Service) insertVendor(ctx context.Context, q querier, v *models.Vendor) error {
	seq, err := nextSeq(ctx, q, "vendors")
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO vendors (id, name, category, contact_name, phone, email, status, seq) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Name, v.Category, v.ContactName, v.Phone, v.Email, v.Status, seq,
	)
	if err != nil {
		return fmt.Errorf("insert vendor: %w", err)
	}
	return nil
}

const vendorInvoiceColumns = `id, vendor_id, ref_number, amount, date, due_date, status`

func scanVendorInvoice(row interface{ Scan(...any) error }) (*models.VendorInvoice, error) {
	inv := new(models.VendorInvoice)
	if err := row.Scan(&inv.ID, &inv.VendorID, &inv.RefNumber, &inv.Amount, &inv.Date, &inv.DueDate, &inv.Status); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) ListVendorInvoices(ctx context.Context, vendorID string) ([]*models.VendorInvoice, error) {
	if _, err := s.GetVendor(ctx, vendorID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+vendorInvoiceColumns+` FROM vendor_invoices WHERE vendor_id = ? ORDER BY date DESC, seq DESC`, vendorID,
	)
	if err != nil {
		return nil, fmt.Errorf("list vendor invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*models.VendorInvoice
	for rows.Next() {
		inv, err := scanVendorInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vendor invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// CreateVendorInvoice records an unpaid invoice, or an overdue one when the
// due date already passed.
func (s *Service) CreateVendorInvoice(ctx context.Context, vendorID string, in models.VendorInvoiceInput) (*models.VendorInvoice, error) {
	v := &models.ValidationError{}
	v.Require("ref_number", in.RefNumber, "Reference number is required")
	if in.Amount <= 0 {
		v.Add("amount", "Amount must be greater than 0")
	}
	if in.Date == "" {
		in.Date = s.today()
	}
	if !models.ValidDate(in.Date) {
		v.Add("date", "Date must be YYYY-MM-DD")
	}
	if in.DueDate == "" {
		in.DueDate = in.Date
	}
	if !models.ValidDate(in.DueDate) {
		v.Add("due_date", "Due date must be YYYY-MM-DD")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	if _, err := s.GetVendor(ctx, vendorID); err != nil {
		return nil, err
	}
	inv := &models.VendorInvoice{
		ID:        uuid.NewString(),
		VendorID:  vendorID,
		RefNumber: strings.TrimSpace(in.RefNumber),
		Amount:    in.Amount,
		Date:      in.Date,
		DueDate:   in.DueDate,
		Status:    models.InvoiceUnpaid,
	}
	if models.PastDue(inv.DueDate, s.now()) {
		inv.Status = models.InvoiceOverdue
	}
	if err := s.insertVendorInvoice(ctx, s.db, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) insertVendorInvoice(ctx context.Context, q querier, inv *models.VendorInvoice) error {
	seq, err := nextSeq(ctx, q, "vendor_invoices")
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO vendor_invoices (`+vendorInvoiceColumns+`, seq) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.VendorID, inv.RefNumber, inv.Amount, inv.Date, inv.DueDate, inv.Status, seq,
	)
	if err != nil {
		return fmt.Errorf("insert vendor invoice: %w", err)
	}
	return nil
}

// PayVendorInvoice marks an invoice paid, which drops it from the vendor balance.
func (s *Service) PayVendorInvoice(ctx context.Context, id string) (*models.VendorInvoice, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE vendor_invoices SET status = ? WHERE id = ?`, models.InvoicePaid, id)
	if err != nil {
		return nil, fmt.Errorf("pay vendor invoice: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return nil, err
	}
	return scanVendorInvoice(s.db.QueryRowContext(ctx, `SELECT `+vendorInvoiceColumns+` FROM vendor_invoices WHERE id = ?`, id))
}

// markOverdueInvoices flips unpaid invoices whose due date passed.
func (s *Service) markOverdueInvoices(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE vendor_invoices SET status = ? WHERE status = ? AND due_date < ?`,
		models.InvoiceOverdue, models.InvoiceUnpaid, s.today(),
	)
	if err != nil {
		return 0, fmt.Errorf("mark overdue invoices: %w", err)
	}
	return res.RowsAffected()
}
