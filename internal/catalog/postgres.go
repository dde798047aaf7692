package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"borehole-workers/internal/models"

	"github.com/lib/pq"
)

// PostgresSource reads endpoints from an online resource table with columns
// url, resource_type and type_name.
type PostgresSource struct {
	db    *sql.DB
	query string
}

func NewPostgresSource(db *sql.DB, table string) *PostgresSource {
	return &PostgresSource{
		db: db,
		query: `SELECT url, resource_type, COALESCE(type_name, '') FROM ` + pq.QuoteIdentifier(table) +
			` WHERE UPPER(resource_type) = UPPER($1) AND ($2 = '' OR type_name = $2) ORDER BY id`,
	}
}

func (s *PostgresSource) Endpoints(ctx context.Context, f Filter) ([]models.Endpoint, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.query, f.ResourceType, f.TypeName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer rows.Close()

	var eps []models.Endpoint
	for rows.Next() {
		var ep models.Endpoint
		if err := rows.Scan(&ep.URL, &ep.ResourceType, &ep.TypeName); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
		}
		eps = append(eps, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	return apply(eps, f), nil
}
