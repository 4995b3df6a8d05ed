package workspace

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"bizdesk/internal/models"
)

const entityColumns = `id, name, type, status, items_count, next_action, created_at`

func scanEntity(row interface{ Scan(...any) error }) (*models.Entity, error) {
	e := new(models.Entity)
	if err := row.Scan(&e.ID, &e.Name, &e.Type, &e.Status, &e.ItemsCount, &e.NextAction, &e.CreatedAt); err != nil {
		return nil, err
	}
	return e, nil
}

// ListEntities returns every entity in creation order.
func (s *Service) ListEntities(ctx context.Context) ([]*models.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+entityColumns+` FROM entities ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var entities []*models.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// GetEntity returns sql.ErrNoRows when id is unknown.
func (s *Service) GetEntity(ctx context.Context, id string) (*models.Entity, error) {
	e, err := scanEntity(s.db.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get entity: %w", err)
	}
	return e, nil
}

func validateEntity(name, typ string, status models.EntityStatus) error {
	v := &models.ValidationError{}
	v.Require("name", name, "Entity name is required")
	v.Require("type", typ, "Entity type is required")
	if !models.ValidEntityStatus(status) {
		v.Add("status", "Status must be active, warning or error")
	}
	return v.Err()
}

func (s *Service) CreateEntity(ctx context.Context, in models.EntityInput) (*models.Entity, error) {
	e := &models.Entity{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(in.Name),
		Type:       strings.TrimSpace(in.Type),
		Status:     in.Status,
		NextAction: strings.TrimSpace(in.NextAction),
		CreatedAt:  s.now().UTC(),
	}
	if e.Status == "" {
		e.Status = models.EntityActive
	}
	if err := validateEntity(e.Name, e.Type, e.Status); err != nil {
		return nil, err
	}
	if err := s.insertEntity(ctx, s.db, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) insertEntity(ctx context.Context, q querier, e *models.Entity) error {
	seq, err := nextSeq(ctx, q, "entities")
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO entities (id, name, type, status, items_count, next_action, seq, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Type, e.Status, e.ItemsCount, e.NextAction, seq, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert entity: %w", err)
	}
	return nil
}

// UpdateEntity applies the non-nil fields of in.
func (s *Service) UpdateEntity(ctx context.Context, id string, in models.EntityUpdate) (*models.Entity, error) {
	e, err := s.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		e.Name = strings.TrimSpace(*in.Name)
	}
	if in.Type != nil {
		e.Type = strings.TrimSpace(*in.Type)
	}
	if in.Status != nil {
		e.Status = *in.Status
	}
	if in.NextAction != nil {
		e.NextAction = strings.TrimSpace(*in.NextAction)
	}
	if in.ItemsCount != nil {
		if *in.ItemsCount < 0 {
			return nil, &models.ValidationError{Fields: map[string]string{"items_count": "Items count cannot be negative"}}
		}
		e.ItemsCount = *in.ItemsCount
	}
	if err := validateEntity(e.Name, e.Type, e.Status); err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE entities SET name = ?, type = ?, status = ?, items_count = ?, next_action = ? WHERE id = ?`,
		e.Name, e.Type, e.Status, e.ItemsCount, e.NextAction, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update entity: %w", err)
	}
	return e, nil
}

// DeleteEntity removes the entity together with its bank categories and accounts.
func (s *Service) DeleteEntity(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	return checkAffected(res)
}
