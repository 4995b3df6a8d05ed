package workspace

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bizdesk/internal/models"
)

const reminderColumns = `id, title, description, due_date, due_time, priority, completed, entity_id`

func scanReminder(row interface{ Scan(...any) error }) (*models.Reminder, error) {
	r := new(models.Reminder)
	if err := row.Scan(&r.ID, &r.Title, &r.Description, &r.DueDate, &r.DueTime, &r.Priority, &r.Completed, &r.EntityID); err != nil {
		return nil, err
	}
	return r, nil
}

// ListReminders returns reminders, most recently added first.
func (s *Service) ListReminders(ctx context.Context) ([]*models.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+reminderColumns+` FROM reminders ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

func (s *Service) GetReminder(ctx context.Context, id string) (*models.Reminder, error) {
	r, err := scanReminder(s.db.QueryRowContext(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get reminder: %w", err)
	}
	return r, nil
}

// AddReminder puts a new open reminder at the top of the list.
func (s *Service) AddReminder(ctx context.Context, in models.ReminderInput) (*models.Reminder, error) {
	v := &models.ValidationError{}
	v.Require("title", in.Title, "Task title is required")
	if in.DueDate == "" {
		v.Add("due_date", "Due date is required")
	} else if !models.ValidDate(in.DueDate) {
		v.Add("due_date", "Due date must be YYYY-MM-DD")
	}
	if in.DueTime == "" {
		v.Add("due_time", "Time is required")
	} else if _, err := time.Parse("15:04", in.DueTime); err != nil {
		v.Add("due_time", "Time must be HH:MM")
	}
	switch in.Priority {
	case "":
		in.Priority = models.PriorityMedium
	case models.PriorityHigh, models.PriorityMedium, models.PriorityLow:
	default:
		v.Add("priority", "Priority must be High, Medium or Low")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	r := &models.Reminder{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		DueDate:     in.DueDate,
		DueTime:     in.DueTime,
		Priority:    in.Priority,
		EntityID:    in.EntityID,
	}
	if err := s.insertReminder(ctx, s.db, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) insertReminder(ctx context.Context, q querier, r *models.Reminder) error {
	seq, err := nextSeq(ctx, q, "reminders")
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO reminders (`+reminderColumns+`, seq) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Title, r.Description, r.DueDate, r.DueTime, r.Priority, r.Completed, r.EntityID, seq,
	)
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

// ToggleReminder flips the completed flag and returns the updated reminder.
func (s *Service) ToggleReminder(ctx context.Context, id string) (*models.Reminder, error) {
	r, err := s.GetReminder(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Completed = !r.Completed
	if _, err := s.db.ExecContext(ctx, `UPDATE reminders SET completed = ? WHERE id = ?`, r.Completed, id); err != nil {
		return nil, fmt.Errorf("toggle reminder: %w", err)
	}
	return r, nil
}

func (s *Service) DeleteReminder(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	return checkAffected(res)
}
