package workspace

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"bizdesk/internal/models"
)

// ListCategories returns the bank categories of one entity.
func (s *Service) ListCategories(ctx context.Context, entityID string) ([]*models.BankCategory, error) {
	if _, err := s.GetEntity(ctx, entityID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, entity_id, name, account_count, created_at FROM bank_categories WHERE entity_id = ? ORDER BY seq ASC`,
		entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("list bank categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.BankCategory
	for rows.Next() {
		c := new(models.BankCategory)
		if err := rows.Scan(&c.ID, &c.EntityID, &c.Name, &c.AccountCount, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan bank category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Service) GetCategory(ctx context.Context, id string) (*models.BankCategory, error) {
	c := new(models.BankCategory)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, entity_id, name, account_count, created_at FROM bank_categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.EntityID, &c.Name, &c.AccountCount, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get bank category: %w", err)
	}
	return c, nil
}

func (s *Service) CreateCategory(ctx context.Context, entityID, name string) (*models.BankCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &models.ValidationError{Fields: map[string]string{"name": "Category name is required"}}
	}
	if _, err := s.GetEntity(ctx, entityID); err != nil {
		return nil, err
	}
	c := &models.BankCategory{ID: uuid.NewString(), EntityID: entityID, Name: name, CreatedAt: s.now().UTC()}
	if err := s.insertCategory(ctx, s.db, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) insertCategory(ctx context.Context, q querier, c *models.BankCategory) error {
	seq, err := nextSeq(ctx, q, "bank_categories")
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO bank_categories (id, entity_id, name, account_count, seq, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.EntityID, c.Name, c.AccountCount, seq, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert bank category: %w", err)
	}
	return nil
}

const accountColumns = `id, category_id, bank_name, account_number_enc, routing_number, account_type, balance, currency, username, password_enc, email, created_at`

// scanAccount reads one row and leaves the sealed fields in AccountNumber and Password.
func scanAccount(row interface{ Scan(...any) error }) (*models.BankAccount, error) {
	a := new(models.BankAccount)
	err := row.Scan(&a.ID, &a.CategoryID, &a.BankName, &a.AccountNumber, &a.RoutingNumber, &a.Type,
		&a.Balance, &a.Currency, &a.Username, &a.Password, &a.Email, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) openAccount(a *models.BankAccount) error {
	number, err := s.cipher.Decrypt(a.AccountNumber)
	if err != nil {
		return fmt.Errorf("decrypt account %s number: %w", a.ID, err)
	}
	password, err := s.cipher.Decrypt(a.Password)
	if err != nil {
		return fmt.Errorf("decrypt account %s password: %w", a.ID, err)
	}
	a.AccountNumber = number
	a.Password = password
	return nil
}

// ListAccounts returns the accounts of a category with secrets in clear text.
// Masking is up to the caller.
func (s *Service) ListAccounts(ctx context.Context, categoryID string) ([]*models.BankAccount, error) {
	if _, err := s.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM bank_accounts WHERE category_id = ? ORDER BY seq ASC`, categoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("list bank accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.BankAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bank account: %w", err)
		}
		if err := s.openAccount(a); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *Service) GetAccount(ctx context.Context, id string) (*models.BankAccount, error) {
	a, err := scanAccount(s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM bank_accounts WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get bank account: %w", err)
	}
	if err := s.openAccount(a); err != nil {
		return nil, err
	}
	return a, nil
}

func validateAccount(in models.BankAccountInput) error {
	v := &models.ValidationError{}
	v.Require("bank_name", in.BankName, "Bank name is required")
	v.Require("account_number", in.AccountNumber, "Account number is required")
	v.Require("routing_number", in.RoutingNumber, "Routing number is required")
	v.Require("type", in.Type, "Account type is required")
	return v.Err()
}

// CreateAccount stores an account under categoryID and bumps the category count.
func (s *Service) CreateAccount(ctx context.Context, categoryID string, in models.BankAccountInput) (*models.BankAccount, error) {
	if err := validateAccount(in); err != nil {
		return nil, err
	}
	if _, err := s.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	a := &models.BankAccount{
		ID:            uuid.NewString(),
		CategoryID:    categoryID,
		BankName:      strings.TrimSpace(in.BankName),
		AccountNumber: strings.TrimSpace(in.AccountNumber),
		RoutingNumber: strings.TrimSpace(in.RoutingNumber),
		Type:          strings.TrimSpace(in.Type),
		Balance:       in.Balance,
		Currency:      strings.ToUpper(strings.TrimSpace(in.Currency)),
		Username:      strings.TrimSpace(in.Username),
		Password:      in.Password,
		Email:         strings.TrimSpace(in.Email),
		CreatedAt:     s.now().UTC(),
	}
	if a.Currency == "" {
		a.Currency = "SAR"
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return s.insertAccount(ctx, tx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) insertAccount(ctx context.Context, q querier, a *models.BankAccount) error {
	number, err := s.cipher.Encrypt(a.AccountNumber)
	if err != nil {
		return fmt.Errorf("encrypt account number: %w", err)
	}
	password, err := s.cipher.Encrypt(a.Password)
	if err != nil {
		return fmt.Errorf("encrypt account password: %w", err)
	}
	seq, err := nextSeq(ctx, q, "bank_accounts")
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO bank_accounts (`+accountColumns+`, seq) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.CategoryID, a.BankName, number, a.RoutingNumber, a.Type,
		a.Balance, a.Currency, a.Username, password, a.Email, a.CreatedAt, seq,
	)
	if err != nil {
		return fmt.Errorf("insert bank account: %w", err)
	}
	if _, err := q.ExecContext(ctx,
		`UPDATE bank_categories SET account_count = account_count + 1 WHERE id = ?`, a.CategoryID,
	); err != nil {
		return fmt.Errorf("bump account count: %w", err)
	}
	return nil
}

// DeleteAccount removes an account and decrements its category count.
func (s *Service) DeleteAccount(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var categoryID string
		if err := tx.QueryRowContext(ctx, `SELECT category_id FROM bank_accounts WHERE id = ?`, id).Scan(&categoryID); err != nil {
			if err == sql.ErrNoRows {
				return err
			}
			return fmt.Errorf("lookup bank account: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM bank_accounts WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete bank account: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE bank_categories SET account_count = account_count - 1 WHERE id = ? AND account_count > 0`, categoryID,
		); err != nil {
			return fmt.Errorf("drop account count: %w", err)
		}
		return nil
	})
}
