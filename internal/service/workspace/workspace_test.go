package workspace

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdesk/internal/config"
	"bizdesk/internal/models"
	"bizdesk/internal/reveal"
	"bizdesk/internal/storage"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.Open("sqlite3", config.Default())
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(db, "sqlite3"))
	t.Cleanup(func() { db.Close() })
	return db
}

func seededService(t *testing.T, now time.Time) *Service {
	t.Helper()
	svc, err := NewService(openTestDB(t), "test-secret")
	require.NoError(t, err)
	svc.SetClock(func() time.Time { return now })
	seeded, err := svc.Seed(context.Background())
	require.NoError(t, err)
	require.True(t, seeded)
	return svc
}

var dec2023 = time.Date(2023, 12, 15, 10, 0, 0, 0, time.UTC)

func TestSeedIsIdempotent(t *testing.T) {
	svc := seededService(t, dec2023)
	ctx := context.Background()

	again, err := svc.Seed(ctx)
	require.NoError(t, err)
	assert.False(t, again)

	entities, err := svc.ListEntities(ctx)
	require.NoError(t, err)
	require.Len(t, entities, 3)
	assert.Equal(t, "Main Restaurant LLC", entities[0].Name)
	assert.Equal(t, "Tech Ventures", entities[2].Name)
	assert.True(t, entities[1].NeedsAttention())
}

func TestEntityCRUD(t *testing.T) {
	svc := seededService(t, dec2023)
	ctx := context.Background()

	_, err := svc.CreateEntity(ctx, models.EntityInput{Name: " "})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "type")

	e, err := svc.CreateEntity(ctx, models.EntityInput{Name: "Cafe Branch", Type: "Food Service"})
	require.NoError(t, err)
	assert.Equal(t, models.EntityActive, e.Status)

	status := models.EntityWarning
	count := 2
	updated, err := svc.UpdateEntity(ctx, e.ID, models.EntityUpdate{Status: &status, ItemsCount: &count})
	require.NoError(t, err)
	assert.Equal(t, models.EntityWarning, updated.Status)
	assert.Equal(t, 2, updated.ItemsCount)

	got, err := svc.GetEntity(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cafe Branch", got.Name)
	assert.Equal(t, 2, got.ItemsCount)

	require.NoError(t, svc.DeleteEntity(ctx, e.ID))
	_, err = svc.GetEntity(ctx, e.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.ErrorIs(t, svc.DeleteEntity(ctx, e.ID), sql.ErrNoRows)
}

func TestAccountSecretsAreSealed(t *testing.T) {
	svc := seededService(t, dec2023)
	ctx := context.Background()

	var storedNumber, storedPassword string
	err := svc.db.QueryRow(`SELECT account_number_enc, password_enc FROM bank_accounts WHERE id = 'a1'`).Scan(&storedNumber, &storedPassword)
	require.NoError(t, err)
	assert.NotEqual(t, "1234567890", storedNumber)
	assert.NotEqual(t, "securePassword123", storedPassword)

	a, err := svc.GetAccount(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "1234567890", a.AccountNumber)
	assert.Equal(t, "securePassword123", a.Password)

	secret, err := svc.ResolveSecret(ctx, reveal.FieldKey(KindAccount, "a2", "password"))
	require.NoError(t, err)
	assert.Equal(t, "securePassword456", secret)

	secret, err = svc.ResolveSecret(ctx, reveal.FieldKey(KindPortal, "gov2", "password"))
	require.NoError(t, err)
	assert.Equal(t, "MuqeemPass2023", secret)

	_, err = svc.ResolveSecret(ctx, "portal:gov2:url")
	assert.ErrorIs(t, err, ErrUnknownSecret)
	_, err = svc.ResolveSecret(ctx, "portal:missing:password")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, err = svc.ResolveSecret(ctx, "garbage")
	assert.ErrorIs(t, err, reveal.ErrInvalidFieldKey)
}

func TestAccountCountsFollowCreateAndDelete(t *testing.T) {
	svc := seededService(t, dec2023)
	ctx := context.Background()

	categories, err := svc.ListCategories(ctx, "1")
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, 2, categories[0].AccountCount)

	_, err = svc.CreateAccount(ctx, "c2", models.BankAccountInput{BankName: "Al Rajhi"})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Account number is required", verr.Fields["account_number"])

	a, err := svc.CreateAccount(ctx, "c2", models.BankAccountInput{
		BankName:      "Al Rajhi",
		AccountNumber: "5550001111",
		RoutingNumber: "80000",
		Type:          "Checking",
		Password:      "s3cret",
	})
	require.NoError(t, err)
	c2, err := svc.GetCategory(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, 1, c2.AccountCount)

	accounts, err := svc.ListAccounts(ctx, "c2")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "s3cret", accounts[0].Password)

	require.NoError(t, svc.DeleteAccount(ctx, a.ID))
	c2, err = svc.GetCategory(ctx, "c2")
	require.NoError(t, err)
	assert.Zero(t, c2.AccountCount)
	assert.ErrorIs(t, svc.DeleteAccount(ctx, a.ID), sql.ErrNoRows)

	_, err = svc.CreateCategory(ctx, "missing", "Savings")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCreatePortalDerivesLinkText(t *testing.T) {
	svc := seededService(t, dec2023)
	p, err := svc.CreatePortal(context.Background(), models.PortalInput{
		Name: "Qiwa", URL: "www.qiwa.sa/login", Username: "owner", Password: "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://www.qiwa.sa/login", p.URL)
	assert.Equal(t, "qiwa.sa", p.LinkText)

	_, err = svc.CreatePortal(context.Background(), models.PortalInput{Name: "x"})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)
}

func TestGosiSummaryAndInvoiceCheck(t *testing.T) {
	svc := seededService(t, dec2023)
	ctx := context.Background()

	sum, err := svc.GosiSummary(ctx)
	require.NoError(t, err)
	require.NotNil(t, sum.Overdue)
	require.NotNil(t, sum.Pending)
	assert.Equal(t, "g1", sum.Overdue.ID)
	assert.Equal(t, "g3", sum.Pending.ID)
	assert.Equal(t, 1500.0, sum.ExpectedAmount)
	assert.Equal(t, 3, sum.ActiveEmployees)
	assert.Equal(t, 1, sum.MismatchedStaff)

	inv, check, err := svc.CreateGosiInvoice(ctx, models.GosiInvoiceInput{Month: "January", Year: 2024, Amount: 1600})
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePending, inv.Status)
	assert.Equal(t, "2023-12-15", inv.IssueDate)
	assert.Equal(t, "2023-12-29", inv.DueDate)
	assert.True(t, check.Mismatch)
	assert.Equal(t, 100.0, check.Difference)

	_, _, err = svc.CreateGosiInvoice(ctx, models.GosiInvoiceInput{Month: "January", Year: 2024})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Invoice amount is required", verr.Fields["amount"])

	require.NoError(t, svc.SetGosiInvoiceStatus(ctx, "g1", models.InvoicePaid))
	sum, err = svc.GosiSummary(ctx)
	require.NoError(t, err)
	assert.Nil(t, sum.Overdue)
}

func TestEmployeeValidationAndClassification(t *testing.T) {
	svc := seededService(t, dec2023)
	ctx := context.Background()

	_, err := svc.CreateEmployee(ctx, models.EmployeeInput{Name: "Lina", Role: "Chef", BasicSalary: 9000, FullSalary: 6000})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Basic salary cannot exceed full salary", verr.Fields["basic_salary"])

	e, err := svc.CreateEmployee(ctx, models.EmployeeInput{Name: "Lina", Role: "Chef", BasicSalary: 6000, FullSalary: 6000})
	require.NoError(t, err)
	assert.Equal(t, models.GosiError, e.GosiStatus)

	e, err = svc.UpdateEmployee(ctx, e.ID, models.EmployeeInput{Name: "Lina", Role: "Head Chef", BasicSalary: 6000, FullSalary: 9000})
	require.NoError(t, err)
	assert.Equal(t, models.GosiCorrect, e.GosiStatus)
	assert.Equal(t, "Head Chef", e.Role)

	records, err := svc.Payroll(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "October", records[0].Month)
	assert.Equal(t, 8000.0, records[0].Amount)
}

func TestPolicyStatusFollowsClock(t *testing.T) {
	svc := seededService(t, dec2023)
	policies, err := svc.ListPolicies(context.Background())
	require.NoError(t, err)
	require.Len(t, policies, 2)
	assert.Equal(t, models.PolicyExpiring, policies[0].Status)
	assert.Equal(t, models.PolicyActive, policies[1].Status)

	svc.SetClock(func() time.Time { return time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC) })
	require.NoError(t, svc.RefreshStatuses(context.Background()))
	var stored string
	require.NoError(t, svc.db.QueryRow(`SELECT status FROM insurance_policies WHERE id = 'p2'`).Scan(&stored))
	assert.Equal(t, string(models.PolicyExpired), stored)
}

func TestVendorBalanceAndOverdueScan(t *testing.T) {
	svc := seededService(t, time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	vendors, err := svc.ListVendors(ctx)
	require.NoError(t, err)
	require.Len(t, vendors, 2)
	assert.Equal(t, 1200.0, vendors[0].Balance)
	assert.Zero(t, vendors[1].Balance)

	paid, err := svc.PayVendorInvoice(ctx, "vi1")
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, paid.Status)
	v1, err := svc.GetVendor(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 750.0, v1.Balance)

	inv, err := svc.CreateVendorInvoice(ctx, "v2", models.VendorInvoiceInput{RefNumber: "FF-2023-120", Amount: 300, DueDate: "2023-11-10"})
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceUnpaid, inv.Status)

	svc.SetClock(func() time.Time { return time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC) })
	require.NoError(t, svc.RefreshStatuses(ctx))
	invoices, err := svc.ListVendorInvoices(ctx, "v2")
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.Equal(t, models.InvoiceOverdue, invoices[0].Status)

	_, err = svc.ListVendorInvoices(ctx, "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestPrependDocumentsKeepsBatchOrder(t *testing.T) {
	svc := seededService(t, dec2023)
	ctx := context.Background()

	batch := []*models.Document{
		{ID: "n1", Name: "first.pdf", Type: models.DocumentPDF, Size: "1 kB", Date: "2023-12-15"},
		{ID: "n2", Name: "second.png", Type: models.DocumentImage, Size: "2 kB", Date: "2023-12-15"},
	}
	require.NoError(t, svc.PrependDocuments(ctx, "Licenses", batch))

	docs, err := svc.ListDocuments(ctx, "Licenses")
	require.NoError(t, err)
	require.Len(t, docs, 4)
	assert.Equal(t, []string{"n1", "n2", "d1", "d2"}, []string{docs[0].ID, docs[1].ID, docs[2].ID, docs[3].ID})

	folders, err := svc.ListFolders(ctx)
	require.NoError(t, err)
	require.Len(t, folders, len(models.DefaultFolders))
	assert.Equal(t, "Licenses", folders[0].Name)
	assert.Equal(t, 4, folders[0].Count)

	assert.ErrorIs(t, svc.PrependDocuments(ctx, "Nowhere", batch[:1]), sql.ErrNoRows)
	_, err = svc.ListDocuments(ctx, "Nowhere")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCreateFolder(t *testing.T) {
	svc := seededService(t, dec2023)
	ctx := context.Background()

	_, err := svc.CreateFolder(ctx, "  ")
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.CreateFolder(ctx, "licenses")
	assert.ErrorIs(t, err, ErrFolderExists)

	f, err := svc.CreateFolder(ctx, "Tax")
	require.NoError(t, err)
	assert.Equal(t, "Tax", f.Name)
	docs, err := svc.ListDocuments(ctx, "Tax")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestRemindersPrependAndToggle(t *testing.T) {
	svc := seededService(t, dec2023)
	ctx := context.Background()

	reminders, err := svc.ListReminders(ctx)
	require.NoError(t, err)
	require.Len(t, reminders, 3)
	assert.Equal(t, "1", reminders[0].ID)
	assert.True(t, reminders[2].Completed)

	_, err = svc.AddReminder(ctx, models.ReminderInput{Title: "Pay rent"})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Due date is required", verr.Fields["due_date"])
	assert.Equal(t, "Time is required", verr.Fields["due_time"])

	r, err := svc.AddReminder(ctx, models.ReminderInput{Title: "Pay rent", DueDate: "2024-01-01", DueTime: "08:30"})
	require.NoError(t, err)
	assert.False(t, r.Completed)
	assert.Equal(t, models.PriorityMedium, r.Priority)

	reminders, err = svc.ListReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, r.ID, reminders[0].ID)

	toggled, err := svc.ToggleReminder(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)
	again, err := svc.GetReminder(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, again.Completed)

	require.NoError(t, svc.DeleteReminder(ctx, r.ID))
	assert.ErrorIs(t, svc.DeleteReminder(ctx, r.ID), sql.ErrNoRows)
}

func TestSearchFilters(t *testing.T) {
	svc := seededService(t, dec2023)
	ctx := context.Background()

	res, err := svc.Search(ctx, "REST", models.SearchAll)
	require.NoError(t, err)
	require.Len(t, res.Entities, 1)
	assert.Equal(t, "1", res.Entities[0].ID)

	res, err = svc.Search(ctx, "inv-00", models.SearchAll)
	require.NoError(t, err)
	assert.Len(t, res.Invoices, 2)
	assert.Empty(t, res.Entities)

	res, err = svc.Search(ctx, "license", models.SearchEntities)
	require.NoError(t, err)
	assert.Empty(t, res.Documents)

	res, err = svc.Search(ctx, "license", models.SearchDocuments)
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "d2", res.Documents[0].ID)

	res, err = svc.Search(ctx, "100%", models.SearchAll)
	require.NoError(t, err)
	assert.Empty(t, res.Entities)

	_, err = svc.Search(ctx, "x", models.SearchFilter("vendors"))
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestNotificationsDeriveFromData(t *testing.T) {
	svc := seededService(t, dec2023)
	notes, err := svc.Notifications(context.Background())
	require.NoError(t, err)

	kinds := map[string]int{}
	for _, n := range notes {
		kinds[n.Kind]++
	}
	assert.Equal(t, 1, kinds["gosi_invoice"])
	assert.Equal(t, 1, kinds["insurance_policy"])
	assert.Equal(t, 1, kinds["vendor_invoice"])
	assert.Equal(t, 2, kinds["reminder"])
	assert.Zero(t, kinds["document"])

	svc.SetClock(func() time.Time { return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC) })
	notes, err = svc.Notifications(context.Background())
	require.NoError(t, err)
	var docNote *models.Notification
	for _, n := range notes {
		if n.Kind == "document" {
			docNote = n
		}
	}
	require.NotNil(t, docNote)
	assert.Equal(t, "d1", docNote.RefID)
	assert.Equal(t, models.SeverityWarning, docNote.Severity)
}

func TestExpiryScannerStopsWithContext(t *testing.T) {
	svc := seededService(t, time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC))
	ctx, cancel := context.WithCancel(context.Background())
	svc.StartExpiryScanner(ctx, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		var status string
		if err := svc.db.QueryRow(`SELECT status FROM vendor_invoices WHERE id = 'vi1'`).Scan(&status); err != nil {
			return false
		}
		return status == string(models.InvoiceOverdue)
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
}

func TestSecretCipherRejectsTampering(t *testing.T) {
	c, err := newSecretCipher("k")
	require.NoError(t, err)
	sealed, err := c.Encrypt("hello")
	require.NoError(t, err)
	plain, err := c.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "hello", plain)

	other, err := newSecretCipher("other")
	require.NoError(t, err)
	_, err = other.Decrypt(sealed)
	assert.ErrorIs(t, err, errInvalidCiphertext)

	empty, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
