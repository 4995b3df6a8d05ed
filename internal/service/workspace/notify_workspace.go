package workspace

import (
	"context"
	"fmt"

	"bizdesk/internal/models"
)

// Notifications derives the current alert list: overdue GOSI and vendor
// invoices, policies and documents near expiry, and open high-priority reminders.
func (s *Service) Notifications(ctx context.Context) ([]*models.Notification, error) {
	now := s.now()
	var out []*models.Notification

	gosi, err := s.ListGosiInvoices(ctx)
	if err != nil {
		return nil, err
	}
	for _, inv := range gosi {
		if inv.Status == models.InvoiceOverdue {
			out = append(out, &models.Notification{
				Kind:     "gosi_invoice",
				RefID:    inv.ID,
				Title:    "GOSI invoice overdue",
				Message:  fmt.Sprintf("%s %d invoice of %.2f was due on %s", inv.Month, inv.Year, inv.Amount, inv.DueDate),
				Severity: models.SeverityError,
				Date:     inv.DueDate,
			})
		}
	}

	policies, err := s.ListPolicies(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range policies {
		switch p.Status {
		case models.PolicyExpired:
			out = append(out, &models.Notification{
				Kind:     "insurance_policy",
				RefID:    p.ID,
				Title:    "Insurance policy expired",
				Message:  fmt.Sprintf("%s policy %s expired on %s", p.Provider, p.PolicyNumber, p.ExpirationDate),
				Severity: models.SeverityError,
				Date:     p.ExpirationDate,
			})
		case models.PolicyExpiring:
			out = append(out, &models.Notification{
				Kind:     "insurance_policy",
				RefID:    p.ID,
				Title:    "Insurance policy expiring",
				Message:  fmt.Sprintf("%s policy %s expires on %s", p.Provider, p.PolicyNumber, p.ExpirationDate),
				Severity: models.SeverityWarning,
				Date:     p.ExpirationDate,
			})
		}
	}

	docs, err := s.queryDocuments(ctx, `SELECT `+documentColumns+` FROM documents WHERE expiry_date <> '' ORDER BY expiry_date ASC`)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		switch {
		case models.PastDue(d.ExpiryDate, now):
			out = append(out, &models.Notification{
				Kind:     "document",
				RefID:    d.ID,
				Title:    "Document expired",
				Message:  fmt.Sprintf("%s in %s expired on %s", d.Name, d.Folder, d.ExpiryDate),
				Severity: models.SeverityError,
				Date:     d.ExpiryDate,
			})
		case models.DueWithin(d.ExpiryDate, now, models.ExpiringWindow):
			out = append(out, &models.Notification{
				Kind:     "document",
				RefID:    d.ID,
				Title:    "Document expiring",
				Message:  fmt.Sprintf("%s in %s expires on %s", d.Name, d.Folder, d.ExpiryDate),
				Severity: models.SeverityWarning,
				Date:     d.ExpiryDate,
			})
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+vendorInvoiceColumns+` FROM vendor_invoices WHERE status = ? ORDER BY due_date ASC`, models.InvoiceOverdue,
	)
	if err != nil {
		return nil, fmt.Errorf("overdue vendor invoices: %w", err)
	}
	var overdue []*models.VendorInvoice
	for rows.Next() {
		inv, err := scanVendorInvoice(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan vendor invoice: %w", err)
		}
		overdue = append(overdue, inv)
	}
	rows.Close()
	for _, inv := range overdue {
		out = append(out, &models.Notification{
			Kind:     "vendor_invoice",
			RefID:    inv.ID,
			Title:    "Vendor invoice overdue",
			Message:  fmt.Sprintf("Invoice %s for %.2f was due on %s", inv.RefNumber, inv.Amount, inv.DueDate),
			Severity: models.SeverityError,
			Date:     inv.DueDate,
		})
	}

	reminders, err := s.ListReminders(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range reminders {
		if r.Completed || r.Priority != models.PriorityHigh {
			continue
		}
		sev := models.SeverityInfo
		if models.PastDue(r.DueDate, now) {
			sev = models.SeverityWarning
		}
		out = append(out, &models.Notification{
			Kind:     "reminder",
			RefID:    r.ID,
			Title:    r.Title,
			Message:  fmt.Sprintf("Due %s at %s", r.DueDate, r.DueTime),
			Severity: sev,
			Date:     r.DueDate,
		})
	}
	return out, nil
}
