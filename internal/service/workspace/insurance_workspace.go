package workspace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bizdesk/internal/models"
)

func parseDate(s string) (time.Time, error) {
	return time.Parse(models.DateLayout, s)
}

// ListPolicies returns every policy with its status derived from today's date.
func (s *Service) ListPolicies(ctx context.Context) ([]*models.InsurancePolicy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, provider, policy_number, expiration_date, members_count, premium FROM insurance_policies ORDER BY seq ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()

	now := s.now()
	var policies []*models.InsurancePolicy
	for rows.Next() {
		p := new(models.InsurancePolicy)
		if err := rows.Scan(&p.ID, &p.Provider, &p.PolicyNumber, &p.ExpirationDate, &p.MembersCount, &p.Premium); err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		p.Status = models.PolicyStatusAt(p.ExpirationDate, now)
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

func (s *Service) CreatePolicy(ctx context.Context, in models.PolicyInput) (*models.InsurancePolicy, error) {
	v := &models.ValidationError{}
	v.Require("provider", in.Provider, "Provider is required")
	v.Require("policy_number", in.PolicyNumber, "Policy number is required")
	if !models.ValidDate(in.ExpirationDate) {
		v.Add("expiration_date", "Expiration date must be YYYY-MM-DD")
	}
	if in.MembersCount < 0 {
		v.Add("members_count", "Members count cannot be negative")
	}
	if in.Premium < 0 {
		v.Add("premium", "Premium cannot be negative")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	p := &models.InsurancePolicy{
		ID:             uuid.NewString(),
		Provider:       strings.TrimSpace(in.Provider),
		PolicyNumber:   strings.TrimSpace(in.PolicyNumber),
		ExpirationDate: in.ExpirationDate,
		Status:         models.PolicyStatusAt(in.ExpirationDate, s.now()),
		MembersCount:   in.MembersCount,
		Premium:        in.Premium,
	}
	if err := s.insertPolicy(ctx, s.db, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) insertPolicy(ctx context.Context, q querier, p *models.InsurancePolicy) error {
	seq, err := nextSeq(ctx, q, "insurance_policies")
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO insurance_policies (id, provider, policy_number, expiration_date, status, members_count, premium, seq) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Provider, p.PolicyNumber, p.ExpirationDate, p.Status, p.MembersCount, p.Premium, seq,
	)
	if err != nil {
		return fmt.Errorf("insert policy: %w", err)
	}
	return nil
}

// refreshPolicyStatuses rewrites stored statuses that drifted from the date.
func (s *Service) refreshPolicyStatuses(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, expiration_date, status FROM insurance_policies`)
	if err != nil {
		return 0, fmt.Errorf("scan policy statuses: %w", err)
	}
	type drift struct {
		id     string
		status models.PolicyStatus
	}
	now := s.now()
	var stale []drift
	for rows.Next() {
		var (
			id, expiration string
			status         models.PolicyStatus
		)
		if err := rows.Scan(&id, &expiration, &status); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan policy status: %w", err)
		}
		if want := models.PolicyStatusAt(expiration, now); want != status {
			stale = append(stale, drift{id: id, status: want})
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, d := range stale {
		if _, err := s.db.ExecContext(ctx, `UPDATE insurance_policies SET status = ? WHERE id = ?`, d.status, d.id); err != nil {
			return 0, fmt.Errorf("update policy %s status: %w", d.id, err)
		}
	}
	return len(stale), nil
}
