package workspace

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"bizdesk/internal/models"
)

const portalColumns = `id, name, url, link_text, username, password_enc, created_at`

func (s *Service) scanPortal(row interface{ Scan(...any) error }) (*models.GovernmentPortal, error) {
	p := new(models.GovernmentPortal)
	if err := row.Scan(&p.ID, &p.Name, &p.URL, &p.LinkText, &p.Username, &p.Password, &p.CreatedAt); err != nil {
		return nil, err
	}
	password, err := s.cipher.Decrypt(p.Password)
	if err != nil {
		return nil, fmt.Errorf("decrypt portal %s password: %w", p.ID, err)
	}
	p.Password = password
	return p, nil
}

func (s *Service) ListPortals(ctx context.Context) ([]*models.GovernmentPortal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+portalColumns+` FROM portals ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list portals: %w", err)
	}
	defer rows.Close()

	var portals []*models.GovernmentPortal
	for rows.Next() {
		p, err := s.scanPortal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan portal: %w", err)
		}
		portals = append(portals, p)
	}
	return portals, rows.Err()
}

func (s *Service) GetPortal(ctx context.Context, id string) (*models.GovernmentPortal, error) {
	p, err := s.scanPortal(s.db.QueryRowContext(ctx, `SELECT `+portalColumns+` FROM portals WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get portal: %w", err)
	}
	return p, nil
}

// CreatePortal stores new portal credentials. The link text is the URL host.
func (s *Service) CreatePortal(ctx context.Context, in models.PortalInput) (*models.GovernmentPortal, error) {
	v := &models.ValidationError{}
	v.Require("name", in.Name, "Portal name is required")
	v.Require("url", in.URL, "URL is required")
	v.Require("username", in.Username, "Username is required")
	v.Require("password", in.Password, "Password is required")
	rawURL := strings.TrimSpace(in.URL)
	if rawURL != "" && !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	linkText := ""
	if rawURL != "" {
		u, err := url.Parse(rawURL)
		if err != nil || u.Host == "" {
			v.Add("url", "URL is not valid")
		} else {
			linkText = strings.TrimPrefix(u.Hostname(), "www.")
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	p := &models.GovernmentPortal{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		URL:       rawURL,
		LinkText:  linkText,
		Username:  strings.TrimSpace(in.Username),
		Password:  in.Password,
		CreatedAt: s.now().UTC(),
	}
	if err := s.insertPortal(ctx, s.db, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) insertPortal(ctx context.Context, q querier, p *models.GovernmentPortal) error {
	password, err := s.cipher.Encrypt(p.Password)
	if err != nil {
		return fmt.Errorf("encrypt portal password: %w", err)
	}
	seq, err := nextSeq(ctx, q, "portals")
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO portals (`+portalColumns+`, seq) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.URL, p.LinkText, p.Username, password, p.CreatedAt, seq,
	)
	if err != nil {
		return fmt.Errorf("insert portal: %w", err)
	}
	return nil
}

func (s *Service) DeletePortal(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM portals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete portal: %w", err)
	}
	return checkAffected(res)
}
