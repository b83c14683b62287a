// README: Catalog store backed by PostgreSQL.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"resbot/internal/types"
)

var ErrNotFound = errors.New("catalog row not found")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) GetCompany(ctx context.Context, id types.ID) (*Company, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, name, type, hours, payment_enabled, payment_percent,
               provider_public_key, provider_private_key, config, active
        FROM companies
        WHERE id = $1`, string(id),
	)

	var c Company
	var hoursRaw, configRaw []byte
	err := row.Scan(&c.ID, &c.Name, &c.Type, &hoursRaw, &c.PaymentEnabled, &c.PaymentPercent,
		&c.ProviderPublicKey, &c.ProviderPrivateKey, &configRaw, &c.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(hoursRaw) > 0 {
		if err := json.Unmarshal(hoursRaw, &c.Hours); err != nil {
			return nil, fmt.Errorf("company %s hours: %w", id, err)
		}
	}
	if len(configRaw) > 0 {
		if err := json.Unmarshal(configRaw, &c.Config); err != nil {
			return nil, fmt.Errorf("company %s config: %w", id, err)
		}
	}
	return &c, nil
}

func (s *Store) listProductRows(ctx context.Context, companyID types.ID, category string, equal bool) ([]Product, error) {
	op := "="
	if !equal {
		op = "<>"
	}
	rows, err := s.db.Query(ctx, `
        SELECT id, company_id, name, category, price, duration_min,
               track_stock, stock, min_stock, keywords, metadata, active
        FROM products
        WHERE company_id = $1 AND active AND category `+op+` $2
        ORDER BY name`, string(companyID), category,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Name, &p.Category, &p.Price, &p.DurationMin,
			&p.TrackStock, &p.Stock, &p.MinStock, &p.Keywords, &p.Metadata, &p.Active); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListProducts returns the company's active sellable products.
func (s *Store) ListProducts(ctx context.Context, companyID types.ID) ([]Product, error) {
	return s.listProductRows(ctx, companyID, CategoryService, false)
}

// ListVariants returns the company's service variants with parsed metadata.
func (s *Store) ListVariants(ctx context.Context, companyID types.ID) ([]Variant, error) {
	prods, err := s.listProductRows(ctx, companyID, CategoryService, true)
	if err != nil {
		return nil, err
	}
	out := make([]Variant, 0, len(prods))
	for _, p := range prods {
		var meta VariantMeta
		if len(p.Metadata) > 0 {
			if err := json.Unmarshal(p.Metadata, &meta); err != nil {
				return nil, fmt.Errorf("variant %s metadata: %w", p.ID, err)
			}
		}
		out = append(out, Variant{Product: p, Meta: meta})
	}
	return out, nil
}

func (s *Store) GetProduct(ctx context.Context, id types.ID) (*Product, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, company_id, name, category, price, duration_min,
               track_stock, stock, min_stock, keywords, metadata, active
        FROM products
        WHERE id = $1`, string(id),
	)
	var p Product
	err := row.Scan(&p.ID, &p.CompanyID, &p.Name, &p.Category, &p.Price, &p.DurationMin,
		&p.TrackStock, &p.Stock, &p.MinStock, &p.Keywords, &p.Metadata, &p.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListResources returns active resources of the given type, or all types when
// typ is empty.
func (s *Store) ListResources(ctx context.Context, companyID types.ID, typ string) ([]Resource, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, company_id, type, capacity, available, active, metadata
        FROM resources
        WHERE company_id = $1 AND active AND ($2 = '' OR type = $2)
        ORDER BY capacity`, string(companyID), typ,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Resource
	for rows.Next() {
		var r Resource
		if err := rows.Scan(&r.ID, &r.CompanyID, &r.Type, &r.Capacity, &r.Available, &r.Active, &r.Metadata); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
