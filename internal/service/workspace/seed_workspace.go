package workspace

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bizdesk/internal/models"
)

// Seed loads the demo desk when the store holds no entities. It reports
// whether anything was inserted.
func (s *Service) Seed(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM entities`).Scan(&count); err != nil {
		return false, fmt.Errorf("count entities: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	created := s.now().UTC()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, e := range []*models.Entity{
			{ID: "1", Name: "Main Restaurant LLC", Type: "Food Service", Status: models.EntityActive, ItemsCount: 3, NextAction: "Review GOSI"},
			{ID: "2", Name: "Property Holdings Ltd", Type: "Real Estate", Status: models.EntityWarning, ItemsCount: 5, NextAction: "Renew Insurance"},
			{ID: "3", Name: "Tech Ventures", Type: "Technology", Status: models.EntityActive},
		} {
			e.CreatedAt = created
			if err := s.insertEntity(ctx, tx, e); err != nil {
				return err
			}
		}

		for _, c := range []*models.BankCategory{
			{ID: "c1", EntityID: "1", Name: "Chase Business Accounts"},
			{ID: "c2", EntityID: "1", Name: "Local Operating Accounts"},
		} {
			c.CreatedAt = created
			if err := s.insertCategory(ctx, tx, c); err != nil {
				return err
			}
		}
		for _, a := range []*models.BankAccount{
			{ID: "a1", CategoryID: "c1", BankName: "Chase", AccountNumber: "1234567890", RoutingNumber: "987654321", Type: "Checking", Currency: "SAR", Username: "admin_rest", Password: "securePassword123"},
			{ID: "a2", CategoryID: "c1", BankName: "Chase", AccountNumber: "0987654321", RoutingNumber: "987654321", Type: "Savings", Currency: "SAR", Username: "admin_rest_sav", Password: "securePassword456"},
		} {
			a.CreatedAt = created
			if err := s.insertAccount(ctx, tx, a); err != nil {
				return err
			}
		}

		for _, p := range []*models.GovernmentPortal{
			{ID: "gov1", Name: "ZATCA", URL: "https://zatca.gov.sa", LinkText: "zatca.gov.sa", Username: "3001234567", Password: "Password123"},
			{ID: "gov2", Name: "Muqeem", URL: "https://muqeem.sa", LinkText: "muqeem.sa", Username: "Rest_Admin", Password: "MuqeemPass2023"},
			{ID: "gov3", Name: "GOSI", URL: "https://gosi.gov.sa", LinkText: "gosi.gov.sa", Username: "1010101010", Password: "GosiPassword99"},
		} {
			p.CreatedAt = created
			if err := s.insertPortal(ctx, tx, p); err != nil {
				return err
			}
		}

		for _, inv := range []*models.GosiInvoice{
			{ID: "g1", Month: "October", Year: 2023, Amount: 4500, Status: models.InvoiceOverdue, DueDate: "2023-11-15", IssueDate: "2023-11-01"},
			{ID: "g2", Month: "November", Year: 2023, Amount: 4500, Status: models.InvoicePaid, DueDate: "2023-12-15", IssueDate: "2023-12-01"},
			{ID: "g3", Month: "December", Year: 2023, Amount: 4650, Status: models.InvoicePending, DueDate: "2024-01-15", IssueDate: "2024-01-01"},
		} {
			if err := s.insertGosiInvoice(ctx, tx, inv); err != nil {
				return err
			}
		}

		for _, e := range []*models.Employee{
			{ID: "e1", Name: "Ahmed Al-Sayed", Role: "Manager", BasicSalary: 5000, FullSalary: 8000},
			{ID: "e2", Name: "Sarah Johnson", Role: "Developer", BasicSalary: 7000, FullSalary: 7000},
			{ID: "e3", Name: "Mohammed Ali", Role: "Sales", BasicSalary: 3000, FullSalary: 4500},
		} {
			e.GosiStatus = models.ClassifyGosi(e.BasicSalary, e.FullSalary)
			e.Status = models.EmployeeActive
			if err := s.insertEmployee(ctx, tx, e); err != nil {
				return err
			}
			for _, p := range []struct{ month, date string }{
				{"August", "2023-08-28"},
				{"September", "2023-09-28"},
				{"October", "2023-10-28"},
			} {
				rec := &models.PayrollRecord{
					ID:         fmt.Sprintf("%s-%s", e.ID, p.date[:7]),
					EmployeeID: e.ID,
					Month:      p.month,
					Amount:     e.FullSalary,
					Status:     models.PayrollPaid,
					Date:       p.date,
				}
				if err := s.insertPayroll(ctx, tx, rec); err != nil {
					return err
				}
			}
		}

		for _, p := range []*models.InsurancePolicy{
			{ID: "p1", Provider: "Bupa", PolicyNumber: "POL-2023-9988", ExpirationDate: "2023-12-30", MembersCount: 12, Premium: 15000},
			{ID: "p2", Provider: "Tawuniya", PolicyNumber: "POL-2024-1122", ExpirationDate: "2024-06-15", MembersCount: 5, Premium: 8000},
		} {
			p.Status = models.PolicyStatusAt(p.ExpirationDate, s.now())
			if err := s.insertPolicy(ctx, tx, p); err != nil {
				return err
			}
		}

		for _, v := range []*models.Vendor{
			{ID: "v1", Name: "Office Supplies Co.", Category: "Supplies", ContactName: "John Smith", Phone: "0501234567", Email: "orders@office.com", Status: models.VendorActive},
			{ID: "v2", Name: "Fresh Foods Ltd.", Category: "Inventory", ContactName: "Ali Hassan", Phone: "0559876543", Email: "ali@freshfoods.sa", Status: models.VendorActive},
		} {
			if err := s.insertVendor(ctx, tx, v); err != nil {
				return err
			}
		}
		for _, inv := range []*models.VendorInvoice{
			{ID: "vi1", VendorID: "v1", RefNumber: "INV-001", Amount: 450, Date: "2023-10-15", DueDate: "2023-11-15", Status: models.InvoiceUnpaid},
			{ID: "vi2", VendorID: "v1", RefNumber: "INV-002", Amount: 750, Date: "2023-09-20", DueDate: "2023-10-20", Status: models.InvoiceOverdue},
			{ID: "vi3", VendorID: "v2", RefNumber: "FF-2023-99", Amount: 2000, Date: "2023-10-01", DueDate: "2023-10-01", Status: models.InvoicePaid},
		} {
			if err := s.insertVendorInvoice(ctx, tx, inv); err != nil {
				return err
			}
		}

		for _, name := range models.DefaultFolders {
			if err := insertFolder(ctx, tx, name); err != nil {
				return err
			}
		}
		docs := []*models.Document{
			{ID: "d1", Name: "Commercial Registration.pdf", Type: models.DocumentPDF, Size: "2.4 MB", Date: "2023-01-15", ExpiryDate: "2024-01-15", Folder: "Licenses"},
			{ID: "d2", Name: "Municipality License.pdf", Type: models.DocumentPDF, Size: "1.8 MB", Date: "2023-03-20", ExpiryDate: "2024-03-20", Folder: "Licenses"},
			{ID: "d3", Name: "Lease Agreement.pdf", Type: models.DocumentPDF, Size: "5.1 MB", Date: "2022-06-01", ExpiryDate: "2025-06-01", Folder: "Contracts"},
			{ID: "d4", Name: "Vehicle Registration.jpg", Type: models.DocumentImage, Size: "3.2 MB", Date: "2023-08-10", ExpiryDate: "2024-08-10", Folder: "Vehicle"},
		}
		// listed newest first, so the first seeded document gets the highest seq
		for i, d := range docs {
			if err := insertDocument(ctx, tx, d, int64(len(docs)-i)); err != nil {
				return err
			}
		}

		reminders := []*models.Reminder{
			{ID: "1", Title: "Renew Trade License", DueDate: "2024-03-20", DueTime: "09:00", Priority: models.PriorityHigh},
			{ID: "2", Title: "Submit VAT Return", DueDate: "2024-03-25", DueTime: "14:00", Priority: models.PriorityHigh},
			{ID: "3", Title: "Review Employee Contracts", DueDate: "2024-04-01", DueTime: "10:00", Priority: models.PriorityMedium, Completed: true},
		}
		for i := len(reminders) - 1; i >= 0; i-- {
			if err := s.insertReminder(ctx, tx, reminders[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("seed workspace: %w", err)
	}
	s.logger.Info("workspace seeded", "at", created.Format(time.RFC3339))
	return true, nil
}
