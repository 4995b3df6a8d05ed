package workspace

import (
	"context"
	"fmt"
	"strings"

	"bizdesk/internal/models"
)

// Search matches query case-insensitively against entity names and types,
// document names and vendor invoice references.
func (s *Service) Search(ctx context.Context, query string, filter models.SearchFilter) (*models.SearchResults, error) {
	if filter == "" {
		filter = models.SearchAll
	}
	switch filter {
	case models.SearchAll, models.SearchEntities, models.SearchDocuments, models.SearchInvoices:
	default:
		return nil, &models.ValidationError{Fields: map[string]string{"filter": "Filter must be all, entities, documents or invoices"}}
	}

	query = strings.TrimSpace(query)
	res := &models.SearchResults{
		Query:     query,
		Entities:  []*models.Entity{},
		Documents: []*models.Document{},
		Invoices:  []*models.VendorInvoice{},
	}
	if query == "" {
		return res, nil
	}
	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"

	if filter == models.SearchAll || filter == models.SearchEntities {
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+entityColumns+` FROM entities WHERE LOWER(name) LIKE ? ESCAPE '!' OR LOWER(type) LIKE ? ESCAPE '!' ORDER BY seq ASC`,
			pattern, pattern,
		)
		if err != nil {
			return nil, fmt.Errorf("search entities: %w", err)
		}
		for rows.Next() {
			e, err := scanEntity(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan entity: %w", err)
			}
			res.Entities = append(res.Entities, e)
		}
		rows.Close()
	}

	if filter == models.SearchAll || filter == models.SearchDocuments {
		docs, err := s.queryDocuments(ctx,
			`SELECT `+documentColumns+` FROM documents WHERE LOWER(name) LIKE ? ESCAPE '!' ORDER BY seq DESC`, pattern,
		)
		if err != nil {
			return nil, fmt.Errorf("search documents: %w", err)
		}
		res.Documents = append(res.Documents, docs...)
	}

	if filter == models.SearchAll || filter == models.SearchInvoices {
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+vendorInvoiceColumns+` FROM vendor_invoices WHERE LOWER(ref_number) LIKE ? ESCAPE '!' ORDER BY date DESC`, pattern,
		)
		if err != nil {
			return nil, fmt.Errorf("search invoices: %w", err)
		}
		for rows.Next() {
			inv, err := scanVendorInvoice(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan vendor invoice: %w", err)
			}
			res.Invoices = append(res.Invoices, inv)
		}
		rows.Close()
	}
	return res, nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
