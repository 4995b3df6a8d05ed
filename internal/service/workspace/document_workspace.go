package workspace

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"bizdesk/internal/models"
)

// ListFolders returns folders in creation order with their document counts.
func (s *Service) ListFolders(ctx context.Context) ([]*models.Folder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.name, COUNT(d.id) FROM folders f LEFT JOIN documents d ON d.folder = f.name GROUP BY f.name, f.seq ORDER BY f.seq ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	var folders []*models.Folder
	for rows.Next() {
		f := new(models.Folder)
		if err := rows.Scan(&f.Name, &f.Count); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

func (s *Service) CreateFolder(ctx context.Context, name string) (*models.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &models.ValidationError{Fields: map[string]string{"name": "Folder name is required"}}
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM folders WHERE LOWER(name) = LOWER(?)`, name).Scan(&exists)
		if err != nil {
			return fmt.Errorf("lookup folder: %w", err)
		}
		if exists > 0 {
			return ErrFolderExists
		}
		return insertFolder(ctx, tx, name)
	})
	if err != nil {
		return nil, err
	}
	return &models.Folder{Name: name}, nil
}

func insertFolder(ctx context.Context, q querier, name string) error {
	seq, err := nextSeq(ctx, q, "folders")
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, `INSERT INTO folders (name, seq) VALUES (?, ?)`, name, seq); err != nil {
		return fmt.Errorf("insert folder: %w", err)
	}
	return nil
}

// FolderExists returns sql.ErrNoRows when no folder is called name.
func (s *Service) FolderExists(ctx context.Context, name string) error {
	return folderExists(ctx, s.db, name)
}

func folderExists(ctx context.Context, q querier, name string) error {
	var found string
	err := q.QueryRowContext(ctx, `SELECT name FROM folders WHERE name = ?`, name).Scan(&found)
	if err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lookup folder: %w", err)
	}
	return nil
}

const documentColumns = `id, name, type, size, date, expiry_date, folder`

func scanDocument(row interface{ Scan(...any) error }) (*models.Document, error) {
	d := new(models.Document)
	if err := row.Scan(&d.ID, &d.Name, &d.Type, &d.Size, &d.Date, &d.ExpiryDate, &d.Folder); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) queryDocuments(ctx context.Context, query string, args ...any) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// ListDocuments returns the documents of folder, newest first. An empty folder
// lists every document.
func (s *Service) ListDocuments(ctx context.Context, folder string) ([]*models.Document, error) {
	if folder == "" {
		return s.queryDocuments(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY seq DESC`)
	}
	if err := folderExists(ctx, s.db, folder); err != nil {
		return nil, err
	}
	return s.queryDocuments(ctx, `SELECT `+documentColumns+` FROM documents WHERE folder = ? ORDER BY seq DESC`, folder)
}

func (s *Service) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	d, err := scanDocument(s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

// PrependDocuments stores docs at the head of folder in one transaction,
// keeping their relative order.
func (s *Service) PrependDocuments(ctx context.Context, folder string, docs []*models.Document) error {
	if len(docs) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := folderExists(ctx, tx, folder); err != nil {
			return err
		}
		base, err := nextSeq(ctx, tx, "documents")
		if err != nil {
			return err
		}
		for i, d := range docs {
			d.Folder = folder
			seq := base + int64(len(docs)-1-i)
			if err := insertDocument(ctx, tx, d, seq); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertDocument(ctx context.Context, q querier, d *models.Document, seq int64) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO documents (`+documentColumns+`, seq) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.Type, d.Size, d.Date, d.ExpiryDate, d.Folder, seq,
	)
	if err != nil {
		return fmt.Errorf("insert document %s: %w", d.Name, err)
	}
	return nil
}

func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return checkAffected(res)
}
